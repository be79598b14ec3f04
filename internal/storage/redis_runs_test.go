package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"subreddit-insights/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRunLogRecordAndTrim(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	log := NewRunLog(rdb, "runs", 3)
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		run := model.Run{ID: fmt.Sprintf("run-%d", i), StartedAt: start, Inserted: i}
		if err := log.Record(ctx, run); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	runs, err := log.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected list trimmed to 3, got %d", len(runs))
	}
	if runs[0].ID != "run-4" || runs[2].ID != "run-2" {
		t.Fatalf("unexpected order: %+v", runs)
	}
	if !runs[0].StartedAt.Equal(start) || runs[0].Inserted != 4 {
		t.Errorf("fields lost: %+v", runs[0])
	}
}

func TestRunLogRecentEmpty(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	runs, err := NewRunLog(rdb, "none", 0).Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected no runs, got %d", len(runs))
	}
}
