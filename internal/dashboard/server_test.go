package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"subreddit-insights/internal/filter"
	"subreddit-insights/internal/model"
	"subreddit-insights/internal/report"
	"subreddit-insights/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

var keywords = map[string][]string{
	"exam":  {"exam", "proctor"},
	"tools": {"nmap", "burp"},
}

func seedDB(t *testing.T, path string) {
	t.Helper()
	st, err := storage.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer st.Close()
	ctx := context.Background()
	day := func(d int) time.Time { return time.Date(2024, 4, d, 10, 0, 0, 0, time.UTC) }
	_, err = st.InsertPosts(ctx, []model.Post{
		{ID: "a", Subreddit: "oscp", Title: "Exam day", Body: "used nmap a lot, nmap again", Score: 10, CreatedAt: day(1)},
		{ID: "b", Subreddit: "oscp", Title: "Proctor rules", Body: "webcam questions", Score: 4, CreatedAt: day(1)},
		{ID: "c", Subreddit: "oscp", Title: "Burp tips", Body: "intruder is slow", Score: 1, CreatedAt: day(2)},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := st.InsertComments(ctx, []model.Comment{{ID: "x", PostID: "a", Body: "good luck on the exam"}}); err != nil {
		t.Fatalf("seed comments: %v", err)
	}
}

func TestDashboardWithoutDatabase(t *testing.T) {
	dir := t.TempDir()
	s := New(Options{
		DBPath:     filepath.Join(dir, "missing.db"),
		ReportPath: filepath.Join(dir, "missing.md"),
		Subreddit:  "oscp",
		Matcher:    filter.NewMatcher(keywords),
	})
	defer s.Close()
	h := s.Handler()

	rec := get(t, h, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("index status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "No data yet") || !strings.Contains(body, "not generated yet") {
		t.Errorf("missing notices in page: %s", body)
	}
	for _, p := range []string{"/api/stats", "/api/posts", "/chart/posts-per-day.webp"} {
		if rec := get(t, h, p); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s status = %d, want 503", p, rec.Code)
		}
	}
	rec = get(t, h, "/healthz")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"database":false`) {
		t.Errorf("healthz = %d %s", rec.Code, rec.Body.String())
	}
}

func TestDashboardStatsMatchRowCount(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "posts.db")
	seedDB(t, dbPath)

	s := New(Options{DBPath: dbPath, ReportPath: filepath.Join(dir, "r.md"), Matcher: filter.NewMatcher(keywords)})
	defer s.Close()
	h := s.Handler()

	rec := get(t, h, "/api/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d: %s", rec.Code, rec.Body.String())
	}
	var stats Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}

	st, err := storage.OpenExisting(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	n, err := st.CountPosts(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Posts != n || n != 3 {
		t.Errorf("stats posts = %d, table rows = %d", stats.Posts, n)
	}
	if stats.Comments != 1 || stats.AvgScore != 5 {
		t.Errorf("unexpected aggregates: %+v", stats.Summary)
	}
	if len(stats.PerDay) != 2 || stats.PerDay[0].Count != 2 {
		t.Errorf("unexpected per-day: %+v", stats.PerDay)
	}
	cats := map[string]int{}
	for _, c := range stats.Categories {
		cats[c.Category] = c.Posts
	}
	if cats["exam"] != 2 || cats["tools"] != 2 {
		t.Errorf("unexpected category counts: %+v", stats.Categories)
	}
	for _, k := range stats.Keywords {
		if k.Keyword == "nmap" && k.Posts != 1 {
			t.Errorf("nmap should count once per post, got %d", k.Posts)
		}
	}
}

func TestDashboardPostsAndChart(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "posts.db")
	seedDB(t, dbPath)
	s := New(Options{DBPath: dbPath, ReportPath: filepath.Join(dir, "r.md")})
	defer s.Close()
	h := s.Handler()

	rec := get(t, h, "/api/posts?limit=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("posts status = %d", rec.Code)
	}
	var resp struct {
		Count int          `json:"count"`
		Posts []model.Post `json:"posts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 1 || resp.Posts[0].ID != "c" {
		t.Errorf("unexpected posts: %+v", resp)
	}
	if rec := get(t, h, "/api/posts?limit=zero"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", rec.Code)
	}

	rec = get(t, h, "/chart/posts-per-day.webp")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/webp" {
		t.Fatalf("chart = %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if b := rec.Body.Bytes(); len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WEBP" {
		t.Errorf("chart is not a webp image")
	}
}

func TestDashboardPageRendersReportAndRuns(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "posts.db")
	reportPath := filepath.Join(dir, "analysis.md")
	seedDB(t, dbPath)
	if err := report.Append(reportPath, report.Entry{
		RunID: "r1", GeneratedAt: time.Now(), Model: "gpt-4o-mini", Posts: 3,
		Body: "## Recurring themes\n\n- <script>alert(1)</script> time pressure",
	}); err != nil {
		t.Fatal(err)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	runs := storage.NewRunLog(rdb, "runs", 10)
	if err := runs.Record(context.Background(), model.Run{ID: "r1", StartedAt: time.Now(), Pages: 2, Inserted: 3}); err != nil {
		t.Fatal(err)
	}

	s := New(Options{DBPath: dbPath, ReportPath: reportPath, Subreddit: "oscp", Runs: runs, Matcher: filter.NewMatcher(keywords)})
	defer s.Close()
	rec := get(t, s.Handler(), "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("index status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"<h2>Recurring themes</h2>", "Recent runs", "Exam day", "Keyword frequency"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Errorf("raw html from the report must not be rendered")
	}
	if strings.Contains(body, "No data yet") {
		t.Errorf("unexpected no-data notice")
	}
}
