// Package analysis sends the stored posts to the language model and appends
// the reply to the report file.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"subreddit-insights/internal/ai"
	"subreddit-insights/internal/model"
	"subreddit-insights/internal/report"
	"subreddit-insights/internal/storage"
)

// ErrNothingToAnalyze is returned when no stored posts match the selection.
var ErrNothingToAnalyze = errors.New("analysis: no posts to analyze")

// PostReader is the read side of the post store.
type PostReader interface {
	ListPosts(ctx context.Context, opts storage.ListOptions) ([]model.Post, error)
	CommentsByPost(ctx context.Context, postID string) ([]model.Comment, error)
}

// Generator builds one prompt from stored posts and records the analysis.
type Generator struct {
	Store      PostReader
	Analyzer   ai.Analyzer
	Budget     *ai.Budget
	MaxTokens  int // input token budget for the prompt
	ReportPath string
	Subreddit  string
	Query      string
	Year       int
	RunID      string // links the entry to a collector run, optional
	Now        func() time.Time
}

// Generate runs a single analysis. A failed request aborts without touching
// the report file.
func (g *Generator) Generate(ctx context.Context) (report.Entry, error) {
	posts, err := g.Store.ListPosts(ctx, storage.ListOptions{Year: g.Year})
	if err != nil {
		return report.Entry{}, fmt.Errorf("analysis: list posts: %w", err)
	}
	if len(posts) == 0 {
		return report.Entry{}, ErrNothingToAnalyze
	}
	text, err := g.buildText(ctx, posts)
	if err != nil {
		return report.Entry{}, err
	}
	text, tokens, cut := g.Budget.Truncate(text, g.MaxTokens)
	if cut {
		slog.Info("analysis: prompt truncated", "tokens", tokens, "exact", g.Budget.Exact())
	}

	out, err := g.Analyzer.Analyze(ctx, text)
	if err != nil {
		return report.Entry{}, fmt.Errorf("analysis: request: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return report.Entry{}, errors.New("analysis: empty response from model")
	}

	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	entry := report.Entry{
		RunID:       g.RunID,
		GeneratedAt: now().UTC(),
		Model:       g.Analyzer.Model(),
		Subreddit:   g.Subreddit,
		Query:       g.Query,
		Year:        g.Year,
		Posts:       len(posts),
		InputTokens: tokens,
		Truncated:   cut,
		Body:        out,
	}
	if err := report.Append(g.ReportPath, entry); err != nil {
		return entry, err
	}
	slog.Info("analysis: report appended", "path", g.ReportPath, "posts", len(posts), "tokens", tokens)
	return entry, nil
}

// buildText lays posts out as "Post: title\nbody" followed by one
// "Comment: body" line per stored comment.
func (g *Generator) buildText(ctx context.Context, posts []model.Post) (string, error) {
	var sb strings.Builder
	for _, p := range posts {
		sb.WriteString("Post: ")
		sb.WriteString(strings.TrimSpace(p.Title))
		sb.WriteString("\n")
		if body := strings.TrimSpace(p.Body); body != "" {
			sb.WriteString(body)
			sb.WriteString("\n")
		}
		comments, err := g.Store.CommentsByPost(ctx, p.ID)
		if err != nil {
			return "", fmt.Errorf("analysis: comments for %s: %w", p.ID, err)
		}
		for _, c := range comments {
			sb.WriteString("Comment: ")
			sb.WriteString(strings.TrimSpace(c.Body))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
