package phase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ykhdr/crack-campaign/manager/internal/digest"
	"github.com/ykhdr/crack-campaign/manager/internal/engine"
	"github.com/ykhdr/crack-campaign/manager/internal/strategy"
)

const (
	md5Password  = "5f4dcc3b5aa765d61d8327deb882cf99"
	md5Admin     = "21232f297a57a5a743894a0e4a801fc3"
	sha1Password = "5baa61e4c9b93f3f0682250b6cf8331b7ee68fd8"
)

var plaintexts = map[string]string{
	md5Password:  "password",
	md5Admin:     "admin",
	sha1Password: "password",
}

// fakeAdapter recovers every digest listed in crack for the schemes it is
// asked about, or returns err.
type fakeAdapter struct {
	mu       sync.Mutex
	crack    map[digest.Scheme][]string
	timedOut bool
	err      error
	calls    []engine.Invocation
}

func (f *fakeAdapter) Run(_ context.Context, inv engine.Invocation) (*engine.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, inv)
	if f.err != nil {
		return nil, f.err
	}
	res := &engine.Result{TimedOut: f.timedOut}
	for _, v := range f.crack[inv.View.Scheme()] {
		d, ok := inv.View.Lookup(v)
		if !ok {
			continue
		}
		res.Recovered = append(res.Recovered, digest.Recovered{
			Digest:     d,
			Scheme:     inv.View.Scheme(),
			Plaintext:  plaintexts[v],
			PhaseIndex: inv.PhaseIndex,
			Source:     digest.SourceEngine,
		})
	}
	return res, nil
}

type knownMap map[string]string

func (k knownMap) Lookup(_ context.Context, value string) (string, bool, error) {
	p, ok := k[value]
	return p, ok, nil
}

type captureRecorder struct {
	got []digest.Recovered
}

func (c *captureRecorder) Record(_ context.Context, recovered []digest.Recovered) error {
	c.got = append(c.got, recovered...)
	return nil
}

func newSet(digests ...digest.Digest) *digest.Set {
	return digest.NewSet(digests...)
}

func d(scheme digest.Scheme, value string) digest.Digest {
	return digest.Digest{Scheme: scheme, Value: value, SourceLine: value}
}

var dict = strategy.Dictionary("common", "/unused/words.txt", strategy.TierFast)

func TestRunner_Completed(t *testing.T) {
	set := newSet(d(digest.SchemeMD5, md5Password), d(digest.SchemeMD5, md5Admin), d(digest.SchemeSHA1, sha1Password))
	adapter := &fakeAdapter{crack: map[digest.Scheme][]string{digest.SchemeMD5: {md5Password}}}
	recorder := &captureRecorder{}

	out, err := NewRunner(adapter, WithRecorder(recorder)).Run(context.Background(), "c1", 0, dict, set)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, 3, out.InputCount)
	assert.Equal(t, 2, out.Invocations)
	require.Len(t, out.Recovered, 1)
	assert.Equal(t, "password", out.Recovered[0].Plaintext)
	assert.False(t, out.Partial)
	assert.InDelta(t, 1.0/3.0, out.Rate(), 1e-9)

	assert.Equal(t, 2, set.Len())
	assert.False(t, set.Contains(md5Password))
	assert.Len(t, recorder.got, 1)
}

func TestRunner_AmbiguousDigestLeavesLaterViews(t *testing.T) {
	set := newSet(d(digest.SchemeUnknown, md5Password))
	adapter := &fakeAdapter{crack: map[digest.Scheme][]string{digest.SchemeMD5: {md5Password}}}

	out, err := NewRunner(adapter).Run(context.Background(), "c1", 2, dict, set)
	require.NoError(t, err)

	require.Len(t, adapter.calls, 1)
	assert.Equal(t, digest.SchemeMD5, adapter.calls[0].View.Scheme())
	assert.Equal(t, 1, out.InputCount)
	require.Len(t, out.Recovered, 1)
	assert.Equal(t, digest.SchemeMD5, out.Recovered[0].Scheme)
	assert.True(t, set.IsEmpty())
}

func TestRunner_TargetScheme(t *testing.T) {
	set := newSet(d(digest.SchemeMD5, md5Password), d(digest.SchemeSHA1, sha1Password))
	adapter := &fakeAdapter{}
	scoped := dict
	scoped.TargetScheme = digest.SchemeSHA1

	out, err := NewRunner(adapter).Run(context.Background(), "c1", 0, scoped, set)
	require.NoError(t, err)
	assert.Equal(t, 1, out.InputCount)
	require.Len(t, adapter.calls, 1)
	assert.Equal(t, digest.SchemeSHA1, adapter.calls[0].View.Scheme())

	scoped.TargetScheme = digest.SchemeNTLM
	out, err = NewRunner(adapter).Run(context.Background(), "c1", 1, scoped, set)
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, out.Status)
	assert.Len(t, adapter.calls, 1)
}

func TestRunner_TimedOutKeepsPartial(t *testing.T) {
	set := newSet(d(digest.SchemeMD5, md5Password), d(digest.SchemeMD5, md5Admin))
	adapter := &fakeAdapter{
		crack:    map[digest.Scheme][]string{digest.SchemeMD5: {md5Admin}},
		timedOut: true,
	}

	out, err := NewRunner(adapter).Run(context.Background(), "c1", 0, dict, set)
	require.NoError(t, err)
	assert.Equal(t, StatusTimedOut, out.Status)
	assert.True(t, out.Partial)
	assert.Len(t, out.Recovered, 1)
	assert.Equal(t, []string{md5Password}, set.Values())
}

func TestRunner_ParseErrorFailsPhaseOnly(t *testing.T) {
	set := newSet(d(digest.SchemeMD5, md5Password))
	adapter := &fakeAdapter{err: &engine.EngineOutputParseError{Line: 1, Text: "garbage"}}

	out, err := NewRunner(adapter).Run(context.Background(), "c1", 0, dict, set)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, out.Status)
	assert.Empty(t, out.Recovered)
	assert.Contains(t, out.Note, "garbage")
	assert.Equal(t, 1, set.Len())
}

func TestRunner_UnavailableHalts(t *testing.T) {
	set := newSet(d(digest.SchemeMD5, md5Password))
	adapter := &fakeAdapter{err: &engine.EngineUnavailableError{Binary: "hashcat", Err: errors.New("not found")}}

	out, err := NewRunner(adapter).Run(context.Background(), "c1", 0, dict, set)
	var unavailable *engine.EngineUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, StatusFailed, out.Status)
	assert.Empty(t, out.Recovered)
}

func TestRunner_AbortDiscardsResults(t *testing.T) {
	set := newSet(d(digest.SchemeMD5, md5Password), d(digest.SchemeSHA1, sha1Password))
	ctx, cancel := context.WithCancel(context.Background())
	adapter := &abortingAdapter{cancel: cancel}

	out, err := NewRunner(adapter).Run(ctx, "c1", 0, dict, set)
	assert.ErrorIs(t, err, engine.ErrAborted)
	assert.Equal(t, StatusAborted, out.Status)
	assert.Empty(t, out.Recovered)
	assert.Equal(t, 2, set.Len())
}

// abortingAdapter recovers everything in the first view, then cancels the
// campaign during the second.
type abortingAdapter struct {
	cancel context.CancelFunc
	calls  int
}

func (a *abortingAdapter) Run(_ context.Context, inv engine.Invocation) (*engine.Result, error) {
	a.calls++
	if a.calls == 1 {
		first := inv.View.Digests()[0]
		return &engine.Result{Recovered: []digest.Recovered{{Digest: first, Scheme: inv.View.Scheme(), Plaintext: "x"}}}, nil
	}
	a.cancel()
	return nil, engine.ErrAborted
}

func TestRunner_KnownCredentialsFirst(t *testing.T) {
	set := newSet(d(digest.SchemeMD5, md5Password), d(digest.SchemeMD5, md5Admin))
	adapter := &fakeAdapter{crack: map[digest.Scheme][]string{digest.SchemeMD5: {md5Password}}}
	recorder := &captureRecorder{}

	out, err := NewRunner(adapter,
		WithKnown(knownMap{md5Admin: "admin"}),
		WithRecorder(recorder),
	).Run(context.Background(), "c1", 1, dict, set)
	require.NoError(t, err)

	require.Len(t, out.Recovered, 2)
	assert.Equal(t, digest.SourceKnown, out.Recovered[0].Source)
	assert.Equal(t, 1, out.Recovered[0].PhaseIndex)
	assert.Equal(t, digest.SourceEngine, out.Recovered[1].Source)

	require.Len(t, adapter.calls, 1)
	assert.Equal(t, []string{md5Password}, adapter.calls[0].View.Values())
	assert.True(t, set.IsEmpty())
	require.Len(t, recorder.got, 1)
	assert.Equal(t, md5Password, recorder.got[0].Digest.Value)
}

func TestRunner_PassesRemainingBudget(t *testing.T) {
	set := newSet(d(digest.SchemeMD5, md5Password))
	adapter := &fakeAdapter{}
	budgeted := dict
	budgeted.Timeout = time.Hour

	_, err := NewRunner(adapter).Run(context.Background(), "c1", 0, budgeted, set)
	require.NoError(t, err)
	require.Len(t, adapter.calls, 1)
	assert.LessOrEqual(t, adapter.calls[0].Timeout, time.Hour)
	assert.Greater(t, adapter.calls[0].Timeout, 59*time.Minute)
}
