package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"subreddit-insights/internal/model"
)

// ErrNotFound is returned when the database file does not exist yet.
var ErrNotFound = errors.New("storage: database not found")

// SQLiteStore persists posts and comments in a single SQLite file.
// WAL mode lets the dashboard read while a collector run writes.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path and ensures the schema.
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: create dir: %w", err)
		}
	}
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// one writer per process keeps SQLite locking simple
	db.SetMaxOpenConns(1)
	s := &SQLiteStore{db: db, path: path}
	if err := s.initDB(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenExisting opens the database only if the file is already there.
func OpenExisting(path string) (*SQLiteStore, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	return Open(path)
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) initDB() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS posts (
			id TEXT PRIMARY KEY,
			subreddit TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL,
			body TEXT,
			author TEXT,
			url TEXT,
			permalink TEXT,
			score INTEGER NOT NULL DEFAULT 0,
			num_comments INTEGER NOT NULL DEFAULT 0,
			created_utc INTEGER NOT NULL,
			collected_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS comments (
			id TEXT PRIMARY KEY,
			post_id TEXT NOT NULL,
			author TEXT,
			body TEXT,
			score INTEGER NOT NULL DEFAULT 0,
			created_utc INTEGER NOT NULL,
			FOREIGN KEY (post_id) REFERENCES posts(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_created ON posts(created_utc)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id)`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("storage: init schema: %w", err)
		}
	}
	return nil
}

// InsertPosts stores posts in one transaction, skipping ids already present.
// It returns which posts were new.
func (s *SQLiteStore) InsertPosts(ctx context.Context, posts []model.Post) ([]model.Post, error) {
	if len(posts) == 0 {
		return nil, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO posts (id, subreddit, title, body, author, url, permalink, score, num_comments, created_utc, collected_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO NOTHING`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	var inserted []model.Post
	for _, p := range posts {
		collected := p.CollectedAt
		if collected.IsZero() {
			collected = now
		}
		res, err := stmt.ExecContext(ctx,
			p.ID, p.Subreddit, p.Title, p.Body, p.Author, p.URL, p.Permalink,
			p.Score, p.NumComments, p.CreatedAt.Unix(), collected.Unix(),
		)
		if err != nil {
			return nil, fmt.Errorf("storage: insert post %s: %w", p.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			p.CollectedAt = collected
			inserted = append(inserted, p)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return inserted, nil
}

// InsertComments stores comments, skipping ids already present, and returns
// how many rows were added.
func (s *SQLiteStore) InsertComments(ctx context.Context, comments []model.Comment) (int, error) {
	if len(comments) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO comments (id, post_id, author, body, score, created_utc)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO NOTHING`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	added := 0
	for _, c := range comments {
		res, err := stmt.ExecContext(ctx, c.ID, c.PostID, c.Author, c.Body, c.Score, c.CreatedAt.Unix())
		if err != nil {
			return 0, fmt.Errorf("storage: insert comment %s: %w", c.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return added, nil
}

// ListOptions narrows post listings.
type ListOptions struct {
	Limit int // 0 means no limit
	Year  int // 0 means all years
}

// ListPosts returns stored posts, newest first.
func (s *SQLiteStore) ListPosts(ctx context.Context, opts ListOptions) ([]model.Post, error) {
	where, args := yearClause("created_utc", opts.Year)
	q := `SELECT id, subreddit, title, body, author, url, permalink, score, num_comments, created_utc, collected_at
	FROM posts` + where + ` ORDER BY created_utc DESC, id`
	if opts.Limit > 0 {
		q += " LIMIT " + strconv.Itoa(opts.Limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		var (
			p                  model.Post
			body, author       sql.NullString
			url, permalink     sql.NullString
			created, collected int64
		)
		if err := rows.Scan(&p.ID, &p.Subreddit, &p.Title, &body, &author, &url, &permalink,
			&p.Score, &p.NumComments, &created, &collected); err != nil {
			return nil, err
		}
		p.Body, p.Author, p.URL, p.Permalink = body.String, author.String, url.String, permalink.String
		p.CreatedAt = time.Unix(created, 0).UTC()
		p.CollectedAt = time.Unix(collected, 0).UTC()
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// CommentsByPost returns a post's comments, highest score first.
func (s *SQLiteStore) CommentsByPost(ctx context.Context, postID string) ([]model.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, post_id, author, body, score, created_utc
	FROM comments WHERE post_id = ? ORDER BY score DESC, id`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Comment
	for rows.Next() {
		var (
			c            model.Comment
			author, body sql.NullString
			created      int64
		)
		if err := rows.Scan(&c.ID, &c.PostID, &author, &body, &c.Score, &created); err != nil {
			return nil, err
		}
		c.Author, c.Body = author.String, body.String
		c.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CountPosts returns the number of stored posts created in year (0 for all).
func (s *SQLiteStore) CountPosts(ctx context.Context, year int) (int, error) {
	return countPosts(ctx, s.db, year)
}

// CountComments returns the number of stored comments whose post matches year.
func (s *SQLiteStore) CountComments(ctx context.Context, year int) (int, error) {
	return countComments(ctx, s.db, year)
}

func countPosts(ctx context.Context, q queryer, year int) (int, error) {
	where, args := yearClause("created_utc", year)
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`+where, args...).Scan(&n)
	return n, err
}

func countComments(ctx context.Context, q queryer, year int) (int, error) {
	where, args := yearClause("p.created_utc", year)
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM comments c JOIN posts p ON p.id = c.post_id`+where, args...).Scan(&n)
	return n, err
}

// DayCount is the number of posts created on a UTC day (YYYY-MM-DD).
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// Summary holds the scalar aggregates shown on the dashboard.
type Summary struct {
	Posts    int        `json:"posts"`
	Comments int        `json:"comments"`
	AvgScore float64    `json:"avg_score"`
	PerDay   []DayCount `json:"per_day"`
}

// Summarize computes aggregates in a single read transaction so the numbers
// agree with each other.
func (s *SQLiteStore) Summarize(ctx context.Context, year int) (Summary, error) {
	var sum Summary
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sum, err
	}
	defer tx.Rollback()

	if sum.Posts, err = countPosts(ctx, tx, year); err != nil {
		return sum, err
	}
	if sum.Comments, err = countComments(ctx, tx, year); err != nil {
		return sum, err
	}
	where, args := yearClause("created_utc", year)
	var avg sql.NullFloat64
	if err := tx.QueryRowContext(ctx, `SELECT AVG(score) FROM posts`+where, args...).Scan(&avg); err != nil {
		return sum, err
	}
	sum.AvgScore = avg.Float64

	rows, err := tx.QueryContext(ctx, `SELECT date(created_utc, 'unixepoch') AS day, COUNT(*)
	FROM posts`+where+` GROUP BY day ORDER BY day`, args...)
	if err != nil {
		return sum, err
	}
	defer rows.Close()
	for rows.Next() {
		var dc DayCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return sum, err
		}
		sum.PerDay = append(sum.PerDay, dc)
	}
	return sum, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func yearClause(col string, year int) (string, []any) {
	if year <= 0 {
		return "", nil
	}
	var b strings.Builder
	b.WriteString(" WHERE strftime('%Y', ")
	b.WriteString(col)
	b.WriteString(", 'unixepoch') = ?")
	return b.String(), []any{fmt.Sprintf("%04d", year)}
}
