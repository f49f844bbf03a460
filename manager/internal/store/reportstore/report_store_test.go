package reportstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ykhdr/crack-campaign/manager/internal/report"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, NotFoundErr)

	now := time.Now()
	second := &report.Document{CampaignID: "b", CreatedAt: now}
	first := &report.Document{
		CampaignID: "a",
		CreatedAt:  now.Add(-time.Minute),
		Phases:     []report.PhaseDocument{{Index: 0, Name: "rockyou"}},
	}
	require.NoError(t, s.Save(ctx, second))
	require.NoError(t, s.Save(ctx, first))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	got.Phases[0].Name = "mutated"

	again, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "rockyou", again.Phases[0].Name)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].CampaignID)
	assert.Equal(t, "b", list[1].CampaignID)

	require.NoError(t, s.Save(ctx, &report.Document{CampaignID: "a", HaltReason: "stopped"}))
	got, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "stopped", got.HaltReason)
}
