package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"subreddit-insights/internal/ai"
	"subreddit-insights/internal/analysis"
	"subreddit-insights/internal/config"
	"subreddit-insights/internal/filter"
	"subreddit-insights/internal/reddit"
	"subreddit-insights/internal/redisclient"
	"subreddit-insights/internal/storage"
	"subreddit-insights/worker"

	"github.com/redis/go-redis/v9"
)

// pipeline holds the long-lived pieces shared by collect, analyze and watch.
type pipeline struct {
	cfg   config.Config
	store *storage.SQLiteStore
	rdb   *redis.Client
	runs  *storage.RunLog
}

func newPipeline(cfg config.Config) (*pipeline, error) {
	store, err := storage.Open(cfg.Database.File)
	if err != nil {
		return nil, err
	}
	p := &pipeline{cfg: cfg, store: store}
	if cfg.Redis.Enabled {
		p.rdb = redisclient.New(cfg.Redis)
		p.runs = storage.NewRunLog(p.rdb, cfg.Redis.Key, cfg.Redis.MaxRuns)
	}
	return p, nil
}

func (p *pipeline) Close() {
	if p.rdb != nil {
		p.rdb.Close()
	}
	p.store.Close()
}

func (p *pipeline) collector() (*worker.Collector, error) {
	cfg := p.cfg
	timeout, err := time.ParseDuration(cfg.Reddit.Timeout)
	if err != nil {
		return nil, fmt.Errorf("reddit.timeout: %w", err)
	}
	client := reddit.NewClient(reddit.Config{
		ClientID:     cfg.Reddit.ClientID,
		ClientSecret: cfg.Reddit.ClientSecret,
		UserAgent:    cfg.Reddit.UserAgent,
		BaseURL:      cfg.Reddit.BaseURL,
		AuthURL:      cfg.Reddit.AuthURL,
		Timeout:      timeout,
		RateLimit:    cfg.Reddit.RateLimit,
	})
	c := &worker.Collector{
		Source:     client,
		Store:      p.store,
		Subreddit:  cfg.Subreddit,
		Query:      cfg.SearchQuery,
		Sort:       cfg.Sort,
		TimeFilter: cfg.TimeFilter,
		BatchSize:  cfg.BatchSize,
		MaxPages:   cfg.MaxPagination,
		Filter: filter.Filter{
			MinLength: cfg.PostMinLength,
			Matcher:   filter.NewMatcher(cfg.Keywords),
			Year:      cfg.Year,
		},
		Comments: worker.CommentOptions{
			Enabled:   cfg.Comments.Enabled,
			Limit:     cfg.Comments.Limit,
			MinLength: cfg.Comments.MinLength,
		},
	}
	if p.runs != nil {
		c.Runs = p.runs
	}
	return c, nil
}

func (p *pipeline) generator(runID string) (*analysis.Generator, error) {
	cfg := p.cfg
	timeout, err := time.ParseDuration(cfg.OpenAI.Timeout)
	if err != nil {
		return nil, fmt.Errorf("openai.timeout: %w", err)
	}
	client, err := ai.NewOpenAI(ai.Config{
		APIKey:       cfg.OpenAI.APIKey,
		Model:        cfg.OpenAI.Model,
		BaseURL:      cfg.OpenAI.BaseURL,
		SystemPrompt: cfg.OpenAI.SystemPrompt,
		Temperature:  cfg.OpenAI.Temperature,
		MaxTokens:    cfg.OpenAI.MaxResponseTokens,
		Timeout:      timeout,
	})
	if err != nil {
		return nil, err
	}
	return &analysis.Generator{
		Store:      p.store,
		Analyzer:   client,
		Budget:     ai.NewBudget(cfg.OpenAI.Model),
		MaxTokens:  cfg.OpenAI.MaxInputTokens,
		ReportPath: cfg.OutputFile,
		Subreddit:  cfg.Subreddit,
		Query:      cfg.SearchQuery,
		Year:       cfg.Year,
		RunID:      runID,
	}, nil
}

// analyze runs the generator. An empty database is reported, not failed.
func (p *pipeline) analyze(ctx context.Context, runID string) error {
	gen, err := p.generator(runID)
	if err != nil {
		return err
	}
	if _, err := gen.Generate(ctx); err != nil {
		if errors.Is(err, analysis.ErrNothingToAnalyze) {
			slog.Warn("analyze: database has no posts, skipping", "db", p.store.Path())
			return nil
		}
		return err
	}
	return nil
}

// collectOnce runs one collection and, unless skipped, one analysis.
// Analysis is skipped with a warning when no API key is configured.
func (p *pipeline) collectOnce(ctx context.Context, skipAnalysis bool) error {
	c, err := p.collector()
	if err != nil {
		return err
	}
	run, err := c.RunOnce(ctx)
	if err != nil {
		return err
	}
	p.logTotals(ctx)
	if skipAnalysis {
		return nil
	}
	if p.cfg.OpenAI.APIKey == "" {
		slog.Warn("collect: OPENAI_API_KEY not set, skipping analysis")
		return nil
	}
	return p.analyze(ctx, run.ID)
}

// logTotals reports what the database holds after a run.
func (p *pipeline) logTotals(ctx context.Context) {
	posts, err := p.store.CountPosts(ctx, p.cfg.Year)
	if err != nil {
		slog.Warn("collect: count posts failed", "err", err)
		return
	}
	comments, err := p.store.CountComments(ctx, p.cfg.Year)
	if err != nil {
		slog.Warn("collect: count comments failed", "err", err)
		return
	}
	slog.Info("collect: database totals", "year", p.cfg.Year, "posts", posts, "comments", comments)
}
