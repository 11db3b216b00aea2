package sqlite

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langextract/backend/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(":memory:")
	require.NoError(t, err)
	require.NoError(t, c.InitSchema())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestInsertAndGetRun(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	score := 0.5
	run := &models.Run{
		Kind:              models.KindAnalyze,
		Language:          "en",
		Domain:            "police",
		Models:            []string{"m1", "m2", "ref"},
		TextHash:          "abc",
		TextChars:         42,
		EntityCount:       3,
		RelationshipCount: 1,
		AgreementScore:    &score,
		LatencyMS:         120,
		Status:            models.StatusOK,
		Result:            json.RawMessage(`{"agreement_score":0.5}`),
	}
	require.NoError(t, c.InsertRun(ctx, run))
	require.NotEmpty(t, run.ID)
	require.False(t, run.CreatedAt.IsZero())

	got, err := c.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.KindAnalyze, got.Kind)
	assert.Equal(t, []string{"m1", "m2", "ref"}, got.Models)
	require.NotNil(t, got.AgreementScore)
	assert.InDelta(t, 0.5, *got.AgreementScore, 1e-9)
	assert.JSONEq(t, `{"agreement_score":0.5}`, string(got.Result))
	assert.Empty(t, got.Error)
	assert.False(t, got.CacheHit)
}

func TestGetRunNotFound(t *testing.T) {
	c := newTestClient(t)

	_, err := c.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRunsNewestFirst(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i, kind := range []string{models.KindExtract, models.KindAnalyze, models.KindExtract} {
		require.NoError(t, c.InsertRun(ctx, &models.Run{
			ID:        string(rune('a' + i)),
			Kind:      kind,
			Language:  "fa",
			Domain:    "general",
			Models:    []string{"m"},
			TextHash:  "h",
			Status:    models.StatusOK,
			Result:    json.RawMessage(`{}`),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	runs, err := c.ListRuns(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "a", runs[2].ID)
	assert.Nil(t, runs[0].Result)

	runs, err = c.ListRuns(ctx, models.KindExtract, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "c", runs[0].ID)
}

func TestStats(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	for _, r := range []models.Run{
		{Kind: models.KindExtract, Status: models.StatusOK, LatencyMS: 100},
		{Kind: models.KindExtract, Status: models.StatusOK, LatencyMS: 300},
		{Kind: models.KindExtract, Status: models.StatusError, LatencyMS: 50, Error: "timeout"},
	} {
		r.Models = []string{"m"}
		require.NoError(t, c.InsertRun(ctx, &r))
	}

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, models.RunStats{Kind: "extract", Status: "error", Count: 1, AvgMS: 50}, stats[0])
	assert.Equal(t, models.RunStats{Kind: "extract", Status: "ok", Count: 2, AvgMS: 200}, stats[1])
}
