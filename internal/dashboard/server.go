// Package dashboard serves a read-only overview of the collected posts and
// the analysis report.
package dashboard

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"subreddit-insights/internal/filter"
	"subreddit-insights/internal/imagegen"
	"subreddit-insights/internal/model"
	"subreddit-insights/internal/report"
	"subreddit-insights/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

const maxPostsLimit = 500

// RunSource lists recent collector runs.
type RunSource interface {
	Recent(ctx context.Context, n int) ([]model.Run, error)
}

type Options struct {
	DBPath      string
	ReportPath  string
	Subreddit   string
	Year        int
	Matcher     *filter.Matcher
	RecentPosts int
	ReportItems int
	RecentRuns  int
	Runs        RunSource // optional
}

// Server renders the dashboard. The database is opened on first use so the
// dashboard can start before the first collection run.
type Server struct {
	opts   Options
	md     goldmark.Markdown
	engine *gin.Engine

	mu    sync.Mutex
	store *storage.SQLiteStore
}

func New(opts Options) *Server {
	if opts.RecentPosts <= 0 {
		opts.RecentPosts = 10
	}
	if opts.ReportItems <= 0 {
		opts.ReportItems = 5
	}
	if opts.RecentRuns <= 0 {
		opts.RecentRuns = 10
	}
	s := &Server{
		opts: opts,
		md:   goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
	tpl := template.Must(template.New("").Funcs(template.FuncMap{
		"date":    func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04") },
		"percent": percent,
	}).ParseFS(templatesFS, "templates/*.tmpl"))

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.SetHTMLTemplate(tpl)
	r.GET("/", s.handleIndex)
	r.GET("/api/stats", s.handleStats)
	r.GET("/api/posts", s.handlePosts)
	r.GET("/chart/posts-per-day.webp", s.handleChart)
	r.GET("/healthz", s.handleHealth)
	s.engine = r
	return s
}

// Handler returns the dashboard wrapped with OpenTelemetry request spans.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.engine, "dashboard")
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	slog.Info("dashboard: listening", "addr", "http://"+addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases the database handle if one was opened.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return nil
	}
	err := s.store.Close()
	s.store = nil
	return err
}

func (s *Server) openStore() (*storage.SQLiteStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store != nil {
		return s.store, nil
	}
	st, err := storage.OpenExisting(s.opts.DBPath)
	if err != nil {
		return nil, err
	}
	s.store = st
	return st, nil
}

type entryView struct {
	report.Entry
	HTML template.HTML
}

type pageData struct {
	Subreddit     string
	Year          int
	NoData        bool
	DBPath        string
	Error         string
	Stats         Stats
	Posts         []model.Post
	Entries       []entryView
	ReportMissing bool
	ReportPath    string
	Runs          []model.Run
	RenderedAt    time.Time
}

func (s *Server) handleIndex(c *gin.Context) {
	ctx := c.Request.Context()
	data := pageData{
		Subreddit:  s.opts.Subreddit,
		Year:       s.opts.Year,
		DBPath:     s.opts.DBPath,
		ReportPath: s.opts.ReportPath,
		RenderedAt: time.Now(),
	}

	st, err := s.openStore()
	switch {
	case errors.Is(err, storage.ErrNotFound):
		data.NoData = true
	case err != nil:
		data.Error = err.Error()
	default:
		if data.Stats, err = ComputeStats(ctx, st, s.opts.Matcher, s.opts.Year); err != nil {
			data.Error = err.Error()
		} else if data.Posts, err = st.ListPosts(ctx, storage.ListOptions{Limit: s.opts.RecentPosts, Year: s.opts.Year}); err != nil {
			data.Error = err.Error()
		}
		if data.Stats.Posts == 0 && data.Error == "" {
			data.NoData = true
		}
	}

	data.Entries, data.ReportMissing, err = s.reportEntries()
	if err != nil {
		slog.Error("dashboard: read report", "path", s.opts.ReportPath, "err", err)
		if data.Error == "" {
			data.Error = err.Error()
		}
	}

	if s.opts.Runs != nil {
		runs, err := s.opts.Runs.Recent(ctx, s.opts.RecentRuns)
		if err != nil {
			slog.Warn("dashboard: recent runs unavailable", "err", err)
		}
		data.Runs = runs
	}
	c.HTML(http.StatusOK, "page.tmpl", data)
}

func (s *Server) reportEntries() ([]entryView, bool, error) {
	entries, err := report.Read(s.opts.ReportPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	latest := report.Latest(entries, s.opts.ReportItems)
	out := make([]entryView, 0, len(latest))
	for _, e := range latest {
		var buf bytes.Buffer
		if err := s.md.Convert([]byte(e.Body), &buf); err != nil {
			return nil, false, err
		}
		out = append(out, entryView{Entry: e, HTML: template.HTML(buf.String())})
	}
	return out, false, nil
}

// storeOr503 writes a 503 when the database is missing or unreadable.
func (s *Server) storeOr503(c *gin.Context) (*storage.SQLiteStore, bool) {
	st, err := s.openStore()
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no data collected yet"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return nil, false
	}
	return st, true
}

func (s *Server) handleStats(c *gin.Context) {
	st, ok := s.storeOr503(c)
	if !ok {
		return
	}
	stats, err := ComputeStats(c.Request.Context(), st, s.opts.Matcher, s.opts.Year)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handlePosts(c *gin.Context) {
	limit := s.opts.RecentPosts
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	if limit > maxPostsLimit {
		limit = maxPostsLimit
	}
	st, ok := s.storeOr503(c)
	if !ok {
		return
	}
	posts, err := st.ListPosts(c.Request.Context(), storage.ListOptions{Limit: limit, Year: s.opts.Year})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if posts == nil {
		posts = []model.Post{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(posts), "posts": posts})
}

func (s *Server) handleChart(c *gin.Context) {
	st, ok := s.storeOr503(c)
	if !ok {
		return
	}
	sum, err := st.Summarize(c.Request.Context(), s.opts.Year)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	values := make([]int, len(sum.PerDay))
	for i, d := range sum.PerDay {
		values[i] = d.Count
	}
	var buf bytes.Buffer
	if err := imagegen.EncodeWebP(&buf, imagegen.BarChart(values, imagegen.DefaultChart)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/webp", buf.Bytes())
}

func (s *Server) handleHealth(c *gin.Context) {
	_, err := os.Stat(s.opts.DBPath)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": err == nil})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("dashboard: request",
			"method", c.Request.Method, "path", c.Request.URL.Path,
			"status", c.Writer.Status(), "duration", time.Since(start))
	}
}

func percent(part, total int) string {
	if total == 0 {
		return "0%"
	}
	return strconv.FormatFloat(float64(part)*100/float64(total), 'f', 0, 64) + "%"
}
