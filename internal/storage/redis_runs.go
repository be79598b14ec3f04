package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"subreddit-insights/internal/model"

	"github.com/redis/go-redis/v9"
)

// RunLog keeps the most recent collector runs in a capped Redis list so the
// dashboard can show them without touching the collector's SQLite writes.
type RunLog struct {
	rdb *redis.Client
	key string
	max int
}

func NewRunLog(rdb *redis.Client, key string, max int) *RunLog {
	if max <= 0 {
		max = 50
	}
	return &RunLog{rdb: rdb, key: key, max: max}
}

// Record pushes a run to the head of the list and trims the tail.
func (l *RunLog) Record(ctx context.Context, run model.Run) error {
	b, err := json.Marshal(run)
	if err != nil {
		return err
	}
	pipe := l.rdb.TxPipeline()
	pipe.LPush(ctx, l.key, b)
	pipe.LTrim(ctx, l.key, 0, int64(l.max-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("runlog: record %s: %w", run.ID, err)
	}
	return nil
}

// Recent returns up to n runs, newest first.
func (l *RunLog) Recent(ctx context.Context, n int) ([]model.Run, error) {
	if n <= 0 {
		return nil, nil
	}
	vals, err := l.rdb.LRange(ctx, l.key, 0, int64(n-1)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]model.Run, 0, len(vals))
	for _, v := range vals {
		var r model.Run
		if err := json.Unmarshal([]byte(v), &r); err != nil {
			// skip entries written by an incompatible version
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
