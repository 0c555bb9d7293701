package summary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/industryrunners/pulse/internal/calendar"
	"github.com/industryrunners/pulse/internal/core"
	"github.com/industryrunners/pulse/internal/llm"
	"github.com/industryrunners/pulse/internal/metrics"
)

const (
	// keepDays bounds how many days of summaries survive cleanup.
	keepDays = 5
	// latestLimit is how many summaries the read path returns.
	latestLimit = 5

	maxTokens = 4096
)

// Service generates daily market summaries through an LLM provider and
// persists them in the Store.
type Service struct {
	store    *Store
	provider llm.Provider
	log      *zap.Logger
	metrics  *metrics.Registry
	now      func() time.Time
}

// NewService wires a summary service. provider may be nil when no LLM
// is configured; generation then fails with ErrConfigMissing.
func NewService(store *Store, provider llm.Provider, log *zap.Logger, reg *metrics.Registry) *Service {
	return &Service{
		store:    store,
		provider: provider,
		log:      log,
		metrics:  reg,
		now:      time.Now,
	}
}

// Latest returns the most recent summaries, newest first.
func (s *Service) Latest(ctx context.Context) ([]core.MarketSummary, error) {
	return s.store.Latest(ctx, latestLimit)
}

// Generate produces and stores the summary for date (YYYY-MM-DD, empty
// means today in exchange time). An existing summary for the date is
// returned as-is unless force is set.
func (s *Service) Generate(ctx context.Context, date string, force bool) (*core.MarketSummary, bool, error) {
	explicit := date != ""
	if !explicit {
		date = s.now().In(calendar.ExchangeTZ).Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, false, core.WrapError(core.ErrInvalidInput,
			fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date))
	}

	if !force {
		existing, err := s.store.GetByDate(ctx, date)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			s.log.Info("summary already exists", zap.String("date", date))
			return existing, false, nil
		}
	}

	if s.provider == nil {
		return nil, false, core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("no LLM provider configured"))
	}

	prompt := todayPrompt
	if explicit {
		prompt = fmt.Sprintf(datePrompt, date)
	}

	provider := s.provider.Name()
	resp, err := s.provider.Chat(ctx, llm.Request{
		System:    summarySystem,
		Prompt:    prompt,
		MaxTokens: maxTokens,
	})
	if err != nil {
		s.metrics.RecordSummaryGenerated(provider, "error")
		return nil, false, core.WrapError(core.ErrLLMFailed, err)
	}

	text := extractSummary(resp.Content)
	if text == "" {
		s.metrics.RecordSummaryGenerated(provider, "empty")
		return nil, false, core.WrapError(core.ErrLLMFailed,
			fmt.Errorf("provider %s returned an empty summary", provider))
	}

	sum := core.MarketSummary{
		SummaryDate: date,
		Text:        text,
		GeneratedAt: s.now().UTC().Format(time.RFC3339),
	}
	if err := s.store.Save(ctx, sum); err != nil {
		s.metrics.RecordSummaryGenerated(provider, "save_failed")
		return nil, false, err
	}
	s.metrics.RecordSummaryGenerated(provider, "ok")

	if n, err := s.store.DeleteBefore(ctx, cutoffDate(s.now().In(calendar.ExchangeTZ), keepDays)); err != nil {
		s.log.Warn("pruning old summaries", zap.Error(err))
	} else if n > 0 {
		s.log.Info("pruned old summaries", zap.Int64("deleted", n))
	}

	s.log.Info("generated market summary",
		zap.String("date", date),
		zap.String("provider", provider),
		zap.Int("output_tokens", resp.OutputTokens))
	saved, err := s.store.GetByDate(ctx, date)
	if err != nil {
		return nil, false, err
	}
	return saved, true, nil
}

// extractSummary drops any model preamble before the headline marker.
func extractSummary(content string) string {
	if i := strings.Index(content, "###"); i > 0 {
		content = content[i:]
	}
	return strings.TrimSpace(content)
}
