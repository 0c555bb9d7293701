package summary

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/industryrunners/pulse/internal/core"
	"github.com/industryrunners/pulse/internal/llm"
	"github.com/industryrunners/pulse/internal/metrics"
)

type fakeProvider struct {
	content string
	err     error
	calls   int
	lastReq llm.Request
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Chat(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.content}, nil
}

func newTestService(t *testing.T, provider llm.Provider) *Service {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "summaries.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	s := NewService(store, provider, zap.NewNop(), metrics.NewRegistry())
	s.now = func() time.Time {
		return time.Date(2025, 6, 20, 18, 0, 0, 0, time.UTC)
	}
	return s
}

func TestGenerateStripsPreamble(t *testing.T) {
	provider := &fakeProvider{
		content: "Sure, here is the summary you asked for.\n\n### Stocks Rally Into The Close\n\nbody",
	}
	s := newTestService(t, provider)

	sum, created, err := s.Generate(context.Background(), "", false)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "2025-06-20", sum.SummaryDate)
	assert.Equal(t, "### Stocks Rally Into The Close\n\nbody", sum.Text)
}

func TestGenerateIsIdempotent(t *testing.T) {
	provider := &fakeProvider{content: "### First Run\n\nbody"}
	s := newTestService(t, provider)
	ctx := context.Background()

	first, created, err := s.Generate(ctx, "", false)
	require.NoError(t, err)
	assert.True(t, created)

	provider.content = "### Second Run\n\nbody"
	second, created, err := s.Generate(ctx, "", false)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, 1, provider.calls)
}

func TestGenerateForceRegenerates(t *testing.T) {
	provider := &fakeProvider{content: "### First Run\n\nbody"}
	s := newTestService(t, provider)
	ctx := context.Background()

	_, _, err := s.Generate(ctx, "", false)
	require.NoError(t, err)

	provider.content = "### Second Run\n\nbody"
	sum, created, err := s.Generate(ctx, "", true)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "### Second Run\n\nbody", sum.Text)
	assert.Equal(t, 2, provider.calls)
}

func TestGenerateSendsPersonaAndTask(t *testing.T) {
	provider := &fakeProvider{content: "### Quiet Session\n\nbody"}
	s := newTestService(t, provider)

	_, _, err := s.Generate(context.Background(), "", false)
	require.NoError(t, err)
	assert.Contains(t, provider.lastReq.System, "veteran markets editor")
	assert.Equal(t, todayPrompt, provider.lastReq.Prompt)
	assert.Equal(t, maxTokens, provider.lastReq.MaxTokens)
}

func TestGenerateExplicitDatePinsPrompt(t *testing.T) {
	provider := &fakeProvider{content: "### Flashback Friday\n\nbody"}
	s := newTestService(t, provider)

	sum, _, err := s.Generate(context.Background(), "2025-06-13", false)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-13", sum.SummaryDate)
	assert.Contains(t, provider.lastReq.Prompt,
		"specifically for the trading day of 2025-06-13")
}

func TestGenerateRejectsMalformedDate(t *testing.T) {
	s := newTestService(t, &fakeProvider{})

	_, _, err := s.Generate(context.Background(), "06/20/2025", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidInput))
}

func TestGenerateEmptyResponseFails(t *testing.T) {
	s := newTestService(t, &fakeProvider{content: "   \n"})

	_, _, err := s.Generate(context.Background(), "", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrLLMFailed))
}

func TestGenerateProviderErrorFails(t *testing.T) {
	s := newTestService(t, &fakeProvider{err: errors.New("rate limited")})

	_, _, err := s.Generate(context.Background(), "", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrLLMFailed))
}

func TestGenerateNoProviderConfigured(t *testing.T) {
	s := newTestService(t, nil)

	_, _, err := s.Generate(context.Background(), "", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrConfigMissing))
}

func TestGenerateCleansUpOldSummaries(t *testing.T) {
	provider := &fakeProvider{content: "### Fresh\n\nbody"}
	s := newTestService(t, provider)
	ctx := context.Background()

	// Seed one stale and one recent summary directly.
	require.NoError(t, s.store.Save(ctx, core.MarketSummary{
		SummaryDate: "2025-06-01", Text: "stale", GeneratedAt: "2025-06-01T21:00:00Z",
	}))
	require.NoError(t, s.store.Save(ctx, core.MarketSummary{
		SummaryDate: "2025-06-18", Text: "recent", GeneratedAt: "2025-06-18T21:00:00Z",
	}))

	_, _, err := s.Generate(ctx, "", false)
	require.NoError(t, err)

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "2025-06-20", latest[0].SummaryDate)
	assert.Equal(t, "2025-06-18", latest[1].SummaryDate)
}

func TestLatestNewestFirstCapped(t *testing.T) {
	s := newTestService(t, &fakeProvider{})
	ctx := context.Background()

	for _, date := range []string{"2025-06-16", "2025-06-17", "2025-06-18", "2025-06-19", "2025-06-20", "2025-06-13"} {
		require.NoError(t, s.store.Save(ctx, core.MarketSummary{
			SummaryDate: date, Text: "body", GeneratedAt: "2025-06-20T21:00:00Z",
		}))
	}

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 5)
	assert.Equal(t, "2025-06-20", latest[0].SummaryDate)
	assert.Equal(t, "2025-06-16", latest[4].SummaryDate)
}

func TestStoreSaveUpserts(t *testing.T) {
	s := newTestService(t, &fakeProvider{})
	ctx := context.Background()

	require.NoError(t, s.store.Save(ctx, core.MarketSummary{
		SummaryDate: "2025-06-20", Text: "v1", GeneratedAt: "2025-06-20T20:00:00Z",
	}))
	require.NoError(t, s.store.Save(ctx, core.MarketSummary{
		SummaryDate: "2025-06-20", Text: "v2", GeneratedAt: "2025-06-20T21:00:00Z",
	}))

	got, err := s.store.GetByDate(ctx, "2025-06-20")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "v2", got.Text)

	missing, err := s.store.GetByDate(ctx, "2025-06-19")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
