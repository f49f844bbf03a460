package reportstore

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/ykhdr/crack-campaign/manager/internal/report"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	ReportCollection = "reports"
)

var NotFoundErr = errors.New("not found")

type ReportStore interface {
	Get(ctx context.Context, campaignID string) (*report.Document, error)
	List(ctx context.Context) ([]*report.Document, error)
	Save(ctx context.Context, doc *report.Document) error
}

func copyDocument(doc *report.Document) *report.Document {
	c := *doc
	c.Phases = append([]report.PhaseDocument(nil), doc.Phases...)
	return &c
}

type reportStore struct {
	data     map[string]*report.Document
	database *mongo.Database
	m        sync.RWMutex
}

// NewReportStore persists reports in MongoDB and keeps a read cache.
func NewReportStore(database *mongo.Database) ReportStore {
	return &reportStore{
		data:     make(map[string]*report.Document),
		database: database,
	}
}

func (s *reportStore) Get(ctx context.Context, campaignID string) (*report.Document, error) {
	s.m.RLock()
	doc, exists := s.data[campaignID]
	s.m.RUnlock()
	if exists {
		return copyDocument(doc), nil
	}
	var d report.Document
	filter := bson.M{"_id": campaignID}
	err := s.database.Collection(ReportCollection).FindOne(ctx, filter).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, NotFoundErr
	}
	if err != nil {
		return nil, errors.Wrap(err, "error loading report")
	}
	s.m.Lock()
	s.data[campaignID] = &d
	s.m.Unlock()
	return copyDocument(&d), nil
}

// Save upserts by campaign id, so a report saved before finalization is
// replaced by its final version.
func (s *reportStore) Save(ctx context.Context, doc *report.Document) error {
	s.m.Lock()
	defer s.m.Unlock()
	opts := options.Replace().SetUpsert(true)
	_, err := s.database.Collection(ReportCollection).ReplaceOne(ctx, bson.M{"_id": doc.CampaignID}, doc, opts)
	if err != nil {
		return errors.Wrap(err, "error saving report")
	}
	s.data[doc.CampaignID] = copyDocument(doc)
	return nil
}

func (s *reportStore) List(ctx context.Context) ([]*report.Document, error) {
	cursor, err := s.database.Collection(ReportCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, errors.Wrap(err, "error listing reports")
	}
	defer func() { _ = cursor.Close(ctx) }()
	s.m.Lock()
	defer s.m.Unlock()
	var result []*report.Document
	for cursor.Next(ctx) {
		var doc report.Document
		if err := cursor.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "error listing reports")
		}
		result = append(result, &doc)
		s.data[doc.CampaignID] = copyDocument(&doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, errors.Wrap(err, "error listing reports")
	}
	return result, nil
}

type memoryStore struct {
	data map[string]*report.Document
	m    sync.RWMutex
}

// NewMemoryStore keeps reports for the lifetime of the process.
func NewMemoryStore() ReportStore {
	return &memoryStore{data: make(map[string]*report.Document)}
}

func (s *memoryStore) Get(_ context.Context, campaignID string) (*report.Document, error) {
	s.m.RLock()
	defer s.m.RUnlock()
	doc, exists := s.data[campaignID]
	if !exists {
		return nil, NotFoundErr
	}
	return copyDocument(doc), nil
}

func (s *memoryStore) Save(_ context.Context, doc *report.Document) error {
	s.m.Lock()
	defer s.m.Unlock()
	s.data[doc.CampaignID] = copyDocument(doc)
	return nil
}

func (s *memoryStore) List(_ context.Context) ([]*report.Document, error) {
	s.m.RLock()
	defer s.m.RUnlock()
	result := make([]*report.Document, 0, len(s.data))
	for _, doc := range s.data {
		result = append(result, copyDocument(doc))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}
