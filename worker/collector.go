package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"subreddit-insights/internal/filter"
	"subreddit-insights/internal/model"
	"subreddit-insights/internal/reddit"

	"github.com/google/uuid"
)

// Source is the subset of the Reddit client used by the collector.
type Source interface {
	Search(ctx context.Context, req reddit.SearchRequest) (reddit.Page, error)
	Comments(ctx context.Context, postID string, limit int) ([]model.Comment, error)
}

// PostStore is where matching posts and their comments end up.
type PostStore interface {
	InsertPosts(ctx context.Context, posts []model.Post) ([]model.Post, error)
	InsertComments(ctx context.Context, comments []model.Comment) (int, error)
}

// RunRecorder keeps a history of runs. Optional.
type RunRecorder interface {
	Record(ctx context.Context, run model.Run) error
}

// CommentOptions controls comment collection for newly stored posts.
type CommentOptions struct {
	Enabled   bool
	Limit     int
	MinLength int
}

// Collector pages through a subreddit search, keeps posts passing Filter and
// stores the ones not seen before. Pages are committed as they arrive, so an
// API error mid-run leaves earlier pages in the database.
type Collector struct {
	Source     Source
	Store      PostStore
	Filter     filter.Filter
	Subreddit  string
	Query      string
	Sort       string
	TimeFilter string
	BatchSize  int
	MaxPages   int
	Comments   CommentOptions
	Runs       RunRecorder
}

// RunOnce performs one collection run. On error the returned Run still holds
// the counts reached before the failure.
func (c *Collector) RunOnce(ctx context.Context) (model.Run, error) {
	run := model.Run{
		ID:        uuid.NewString(),
		Subreddit: c.Subreddit,
		Query:     c.Query,
		StartedAt: time.Now().UTC(),
	}
	err := c.collect(ctx, &run)
	run.FinishedAt = time.Now().UTC()
	if err != nil {
		run.Error = err.Error()
	}
	if c.Runs != nil {
		// the run log is informational; a failure here never fails the run
		if rerr := c.Runs.Record(ctx, run); rerr != nil {
			slog.Warn("collector: record run failed", "run", run.ID, "err", rerr)
		}
	}
	if err != nil {
		slog.Error("collector: run aborted, keeping rows already written",
			"run", run.ID, "pages", run.Pages, "inserted", run.Inserted, "err", err)
		return run, err
	}
	slog.Info("collector: run completed",
		"run", run.ID, "subreddit", c.Subreddit, "pages", run.Pages, "seen", run.Seen,
		"matched", run.Matched, "inserted", run.Inserted, "duplicates", run.Duplicates,
		"comments", run.Comments, "duration", run.Duration())
	return run, nil
}

func (c *Collector) collect(ctx context.Context, run *model.Run) error {
	maxPages := c.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}
	after := ""
	for i := 0; i < maxPages; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := c.Source.Search(ctx, reddit.SearchRequest{
			Subreddit:  c.Subreddit,
			Query:      c.Query,
			Sort:       c.Sort,
			TimeFilter: c.TimeFilter,
			Limit:      c.BatchSize,
			After:      after,
		})
		if err != nil {
			return fmt.Errorf("collector: fetch page %d: %w", i+1, err)
		}
		if len(page.Posts) == 0 {
			slog.Debug("collector: empty page, stopping", "page", i+1)
			return nil
		}
		run.Pages++
		run.Seen += len(page.Posts)

		matched := make([]model.Post, 0, len(page.Posts))
		for _, p := range page.Posts {
			if reason := c.Filter.Check(p); reason != filter.Accepted {
				slog.Debug("collector: post rejected", "id", p.ID, "reason", reason)
				continue
			}
			matched = append(matched, p)
		}
		run.Matched += len(matched)

		inserted, err := c.Store.InsertPosts(ctx, matched)
		if err != nil {
			return fmt.Errorf("collector: store page %d: %w", i+1, err)
		}
		run.Inserted += len(inserted)
		run.Duplicates += len(matched) - len(inserted)

		if c.Comments.Enabled {
			for _, p := range inserted {
				n, err := c.storeComments(ctx, p)
				if err != nil {
					return fmt.Errorf("collector: store comments page %d: %w", i+1, err)
				}
				run.Comments += n
			}
		}
		slog.Info("collector: page stored", "page", i+1, "seen", len(page.Posts),
			"matched", len(matched), "inserted", len(inserted))

		if page.After == "" {
			return nil
		}
		after = page.After
	}
	return nil
}

// storeComments fetches and stores comments for a new post. A failed fetch
// is logged and skipped so one bad thread does not end the run; a failed
// write is returned.
func (c *Collector) storeComments(ctx context.Context, p model.Post) (int, error) {
	if p.NumComments == 0 {
		return 0, nil
	}
	comments, err := c.Source.Comments(ctx, p.ID, c.Comments.Limit)
	if err != nil {
		slog.Error("collector: fetch comments failed", "id", p.ID, "err", err)
		return 0, nil
	}
	keep := comments[:0]
	for _, cm := range comments {
		if utf8.RuneCountInString(cm.Body) < c.Comments.MinLength {
			continue
		}
		keep = append(keep, cm)
	}
	n, err := c.Store.InsertComments(ctx, keep)
	if err != nil {
		return 0, fmt.Errorf("post %s: %w", p.ID, err)
	}
	return n, nil
}
