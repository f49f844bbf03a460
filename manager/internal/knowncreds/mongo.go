package knowncreds

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/ykhdr/crack-campaign/manager/internal/digest"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const CredentialCollection = "credentials"

type credentialDocument struct {
	Value       string        `bson:"_id"`
	Scheme      digest.Scheme `bson:"scheme"`
	Plaintext   string        `bson:"plaintext"`
	Source      digest.Source `bson:"source"`
	RecoveredAt time.Time     `bson:"recovered_at"`
}

// MongoStore shares recovered credentials between manager instances.
type MongoStore struct {
	database *mongo.Database
}

func NewMongoStore(database *mongo.Database) *MongoStore {
	return &MongoStore{database: database}
}

func (s *MongoStore) Lookup(ctx context.Context, value string) (string, bool, error) {
	var doc credentialDocument
	filter := bson.M{"_id": digest.NormalizeValue(value)}
	err := s.database.Collection(CredentialCollection).FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "error looking up credential")
	}
	return doc.Plaintext, true, nil
}

func (s *MongoStore) Record(ctx context.Context, recovered []digest.Recovered) error {
	now := time.Now().UTC()
	opts := options.Replace().SetUpsert(true)
	for _, r := range recovered {
		doc := credentialDocument{
			Value:       r.Digest.Value,
			Scheme:      r.Scheme,
			Plaintext:   r.Plaintext,
			Source:      r.Source,
			RecoveredAt: now,
		}
		_, err := s.database.Collection(CredentialCollection).ReplaceOne(ctx, bson.M{"_id": doc.Value}, doc, opts)
		if err != nil {
			return errors.Wrap(err, "error saving credential")
		}
	}
	return nil
}
