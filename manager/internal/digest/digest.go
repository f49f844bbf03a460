package digest

import (
	"context"
	"fmt"
	"strings"
)

// PreRecoveredPhase marks credentials resolved from the known-credentials
// lookup at ingestion, before any phase ran.
const PreRecoveredPhase = -1

type Source string

const (
	SourceEngine Source = "engine"
	SourceKnown  Source = "known"
)

type Digest struct {
	Scheme     Scheme `json:"scheme" bson:"scheme"`
	Value      string `json:"value" bson:"value"`
	Identifier string `json:"identifier,omitempty" bson:"identifier,omitempty"`
	SourceLine string `json:"source_line" bson:"source_line"`
}

func (d Digest) String() string {
	if d.Identifier != "" {
		return fmt.Sprintf("%s:%s", d.Identifier, d.Value)
	}
	return d.Value
}

// Recovered is a digest with its plaintext. Scheme is the scheme the plaintext
// was confirmed under, which differs from Digest.Scheme for ambiguous digests.
type Recovered struct {
	Digest     Digest `json:"digest" bson:"digest"`
	Scheme     Scheme `json:"scheme" bson:"scheme"`
	Plaintext  string `json:"plaintext" bson:"plaintext"`
	PhaseIndex int    `json:"phase_index" bson:"phase_index"`
	Source     Source `json:"source" bson:"source"`
}

// PotLine is the potfile line for r, with the plaintext escaped so it always
// stays on one line.
func (r Recovered) PotLine() string {
	return r.Digest.Value + ":" + EncodePlaintext(r.Plaintext)
}

// KnownCredentials resolves digests that were recovered outside the running
// campaign: earlier runs, other campaigns, manual work between phases.
type KnownCredentials interface {
	Lookup(ctx context.Context, value string) (plaintext string, ok bool, err error)
}

// NormalizeValue lower-cases a hex digest and strips surrounding whitespace.
func NormalizeValue(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
