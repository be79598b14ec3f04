package model

import "time"

// Post is a Reddit submission kept by the collector.
type Post struct {
	ID          string    `json:"id"`
	Subreddit   string    `json:"subreddit"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Author      string    `json:"author"`
	URL         string    `json:"url"`
	Permalink   string    `json:"permalink"`
	Score       int       `json:"score"`
	NumComments int       `json:"num_comments"`
	CreatedAt   time.Time `json:"created_at"`
	CollectedAt time.Time `json:"collected_at"`
}

// Text returns the title and body joined the way filters and prompts see them.
func (p Post) Text() string {
	return p.Title + " " + p.Body
}

// Comment is a top-level or nested reply on a stored post.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// Run summarizes a single collector run.
type Run struct {
	ID         string    `json:"id"`
	Subreddit  string    `json:"subreddit"`
	Query      string    `json:"query"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Pages      int       `json:"pages"`
	Seen       int       `json:"seen"`
	Matched    int       `json:"matched"`
	Inserted   int       `json:"inserted"`
	Duplicates int       `json:"duplicates"`
	Comments   int       `json:"comments"`
	Error      string    `json:"error,omitempty"`
}

// Duration reports how long the run took.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
