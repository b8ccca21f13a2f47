package sync

import (
	"context"
	"sync"
	"time"

	"github.com/averta/stocksync/internal/catalog/domain"
	"github.com/averta/stocksync/internal/catalog/usecase/command"
	"github.com/averta/stocksync/pkg/logger"
)

// RefreshResult is the retained outcome of the most recent refresh.
type RefreshResult struct {
	Success       bool      `json:"success"`
	Company       string    `json:"company"`
	Location      string    `json:"location"`
	FetchedCount  int       `json:"fetched_count"`
	ParsedCount   int       `json:"parsed_count"`
	UpsertedCount int       `json:"upserted_count"`
	InvalidCount  int       `json:"invalid_count"`
	DurationMs    int64     `json:"duration_ms"`
	Error         string    `json:"error,omitempty"`
	FinishedAt    time.Time `json:"finished_at"`
}

// Status answers external status queries.
type Status struct {
	SchedulerRunning bool           `json:"scheduler_running"`
	IsRefreshing     bool           `json:"is_refreshing"`
	LastResult       *RefreshResult `json:"last_result,omitempty"`
}

// Scheduler owns the live-refresh loop: one interval timer, one busy flag.
// At most one refresh runs at a time; an overlapping tick or concurrent
// manual trigger is a no-op that returns the previous stored result.
type Scheduler struct {
	client   *Client
	upsert   *command.UpsertBatchHandler
	interval time.Duration

	mu         sync.Mutex
	running    bool
	refreshing bool
	last       *RefreshResult
	stop       chan struct{}
}

// NewScheduler creates a new refresh scheduler
func NewScheduler(client *Client, upsert *command.UpsertBatchHandler, interval time.Duration) *Scheduler {
	return &Scheduler{
		client:   client,
		upsert:   upsert,
		interval: interval,
	}
}

// Start launches the timer loop. Starting a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})

	go s.loop(s.stop)

	logger.Logger.Info().
		Dur("interval", s.interval).
		Msg("Refresh scheduler started")
}

// Stop halts the timer loop. An in-flight refresh finishes on its own.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stop)

	logger.Logger.Info().Msg("Refresh scheduler stopped")
}

func (s *Scheduler) loop(stop chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			result := s.Refresh(context.Background())
			if !result.Success {
				// Logged and absorbed; the next tick retries.
				logger.Logger.Warn().
					Str("error", result.Error).
					Msg("Scheduled refresh failed, waiting for next tick")
			}
		}
	}
}

// Status reports scheduler and refresh state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		SchedulerRunning: s.running,
		IsRefreshing:     s.refreshing,
		LastResult:       s.last,
	}
}

// Refresh fetches from the live source and reconciles through the same
// upsert path file imports use. When a refresh is already in flight the
// call collapses onto the stored result of the previous run.
func (s *Scheduler) Refresh(ctx context.Context) *RefreshResult {
	s.mu.Lock()
	if s.refreshing {
		last := s.last
		s.mu.Unlock()
		if last != nil {
			return last
		}
		return &RefreshResult{Error: "refresh already in progress"}
	}
	s.refreshing = true
	s.mu.Unlock()

	result := s.doRefresh(ctx)

	s.mu.Lock()
	s.refreshing = false
	s.last = result
	s.mu.Unlock()
	return result
}

func (s *Scheduler) doRefresh(ctx context.Context) *RefreshResult {
	started := time.Now()
	result := &RefreshResult{
		Company:  s.client.company,
		Location: s.client.location,
	}

	finish := func() *RefreshResult {
		result.DurationMs = time.Since(started).Milliseconds()
		result.FinishedAt = time.Now()
		return result
	}

	outcome, err := s.client.FetchStockItems(ctx)
	if err != nil {
		result.Error = err.Error()
		return finish()
	}

	items := domain.Canonicalize(outcome.Items, time.Now())
	upserted, err := s.upsert.Handle(ctx, command.UpsertBatchCommand{Items: items})
	if err != nil {
		result.Error = err.Error()
		return finish()
	}

	result.Success = true
	result.FetchedCount = outcome.Fetched
	result.ParsedCount = len(outcome.Items)
	result.UpsertedCount = upserted.Upserted
	result.InvalidCount = outcome.Invalid

	logger.Info(ctx).
		Str("variant", outcome.Variant).
		Int("fetched", result.FetchedCount).
		Int("parsed", result.ParsedCount).
		Int("upserted", result.UpsertedCount).
		Int("invalid", result.InvalidCount).
		Msg("Live refresh completed")
	return finish()
}
