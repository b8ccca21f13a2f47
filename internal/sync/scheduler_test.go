package sync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/averta/stocksync/internal/catalog/repository"
	"github.com/averta/stocksync/internal/catalog/usecase/command"
)

func newTestScheduler(endpoint string) (*Scheduler, *repository.MemoryCatalogRepository) {
	repo := repository.NewMemoryCatalogRepository()
	upsert := command.NewUpsertBatchHandler(repo, nil, nil)
	client := newTestClient(endpoint)
	return NewScheduler(client, upsert, time.Hour), repo
}

func TestSchedulerRefresh(t *testing.T) {
	t.Run("successful refresh reconciles into the store", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(stockItemsResponse))
		}))
		defer server.Close()

		scheduler, repo := newTestScheduler(server.URL)
		result := scheduler.Refresh(context.Background())

		if !result.Success {
			t.Fatalf("refresh failed: %s", result.Error)
		}
		if result.FetchedCount != 2 || result.UpsertedCount != 2 {
			t.Errorf("fetched/upserted = %d/%d, want 2/2", result.FetchedCount, result.UpsertedCount)
		}
		if result.Company != "Test Co" {
			t.Errorf("company = %q, want Test Co", result.Company)
		}

		count, _ := repo.CountProducts()
		if count != 2 {
			t.Errorf("product count = %d, want 2", count)
		}

		status := scheduler.Status()
		if status.LastResult == nil || !status.LastResult.Success {
			t.Error("status does not carry the refresh result")
		}
	})

	t.Run("failed refresh is retained with its error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		scheduler, _ := newTestScheduler(server.URL)
		result := scheduler.Refresh(context.Background())

		if result.Success {
			t.Error("result.Success = true, want false")
		}
		if result.Error == "" {
			t.Error("result.Error is empty")
		}
	})

	t.Run("overlapping refresh returns the previous result", func(t *testing.T) {
		scheduler, _ := newTestScheduler("http://127.0.0.1:0")
		previous := &RefreshResult{Success: true, UpsertedCount: 7}

		scheduler.mu.Lock()
		scheduler.refreshing = true
		scheduler.last = previous
		scheduler.mu.Unlock()

		result := scheduler.Refresh(context.Background())
		if result != previous {
			t.Error("overlapping refresh did not collapse onto the stored result")
		}
	})
}

func TestSchedulerStartStop(t *testing.T) {
	scheduler, _ := newTestScheduler("http://127.0.0.1:0")

	scheduler.Start()
	scheduler.Start() // second start is a no-op

	if !scheduler.Status().SchedulerRunning {
		t.Error("SchedulerRunning = false after Start")
	}

	scheduler.Stop()
	scheduler.Stop() // second stop is a no-op

	if scheduler.Status().SchedulerRunning {
		t.Error("SchedulerRunning = true after Stop")
	}
}
