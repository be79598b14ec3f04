package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"subreddit-insights/internal/model"

	"golang.org/x/time/rate"
)

const (
	publicBaseURL = "https://www.reddit.com"
	oauthBaseURL  = "https://oauth.reddit.com"
	tokenURL      = "https://www.reddit.com/api/v1/access_token"
)

// Config controls the Reddit API client.
type Config struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	BaseURL      string  // optional override of the API host
	AuthURL      string  // optional override of the token endpoint
	Timeout      time.Duration
	RateLimit    float64 // requests per second, 0 disables pacing
}

// Client is a minimal Reddit API client. With client credentials it uses the
// app-only OAuth flow against oauth.reddit.com; without them it falls back to
// the public .json endpoints.
// Docs: https://www.reddit.com/dev/api
type Client struct {
	baseURL   string
	authURL   string
	id        string
	secret    string
	userAgent string
	public    bool
	client    *http.Client
	limiter   *rate.Limiter

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewClient creates a Reddit client.
func NewClient(cfg Config) *Client {
	public := strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == ""
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = oauthBaseURL
		if public {
			base = publicBaseURL
		}
	}
	auth := strings.TrimSpace(cfg.AuthURL)
	if auth == "" {
		auth = tokenURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = "subreddit-insights/1.0"
	}
	var lim *rate.Limiter
	if cfg.RateLimit > 0 {
		lim = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return &Client{
		baseURL:   strings.TrimRight(base, "/"),
		authURL:   auth,
		id:        cfg.ClientID,
		secret:    cfg.ClientSecret,
		userAgent: ua,
		public:    public,
		client:    &http.Client{Timeout: timeout},
		limiter:   lim,
	}
}

// SearchRequest describes one page of a subreddit search.
type SearchRequest struct {
	Subreddit  string
	Query      string // empty lists the subreddit by Sort instead of searching
	Sort       string
	TimeFilter string
	Limit      int
	After      string // fullname cursor from the previous page
}

// Page is one listing page.
type Page struct {
	Posts []model.Post
	After string // empty when there are no further pages
}

// Search fetches a single page of posts matching req.
func (c *Client) Search(ctx context.Context, req SearchRequest) (Page, error) {
	sub := url.PathEscape(strings.TrimSpace(req.Subreddit))
	q := url.Values{"raw_json": {"1"}}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.After != "" {
		q.Set("after", req.After)
	}
	if req.TimeFilter != "" {
		q.Set("t", req.TimeFilter)
	}
	var path string
	if strings.TrimSpace(req.Query) != "" {
		path = "/r/" + sub + "/search"
		q.Set("q", req.Query)
		q.Set("restrict_sr", "1")
		if req.Sort != "" {
			q.Set("sort", req.Sort)
		}
	} else {
		sort := req.Sort
		switch sort {
		case "hot", "new", "top", "rising", "controversial":
		default:
			sort = "new"
		}
		path = "/r/" + sub + "/" + sort
	}

	var listing listingResponse
	if err := c.getJSON(ctx, path, q, &listing); err != nil {
		return Page{}, err
	}
	now := time.Now().UTC()
	page := Page{After: listing.Data.After, Posts: make([]model.Post, 0, len(listing.Data.Children))}
	for _, child := range listing.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		page.Posts = append(page.Posts, convertPost(child.Data, now))
	}
	slog.Debug("reddit: fetched page", "subreddit", req.Subreddit, "posts", len(page.Posts), "after", page.After)
	return page, nil
}

// Comments fetches the comment tree for a post and flattens it depth-first.
// "more" stubs are not expanded.
func (c *Client) Comments(ctx context.Context, postID string, limit int) ([]model.Comment, error) {
	q := url.Values{"raw_json": {"1"}, "sort": {"top"}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	// reddit returns [postListing, commentListing]
	var listings []listingResponse
	if err := c.getJSON(ctx, "/comments/"+url.PathEscape(postID), q, &listings); err != nil {
		return nil, err
	}
	if len(listings) < 2 {
		return nil, nil
	}
	var out []model.Comment
	flattenComments(postID, listings[1].Data.Children, &out)
	return out, nil
}

func flattenComments(postID string, children []listingChild, out *[]model.Comment) {
	for _, child := range children {
		if child.Kind != "t1" {
			continue
		}
		d := child.Data
		*out = append(*out, model.Comment{
			ID:        d.ID,
			PostID:    postID,
			Author:    d.Author,
			Body:      d.Body,
			Score:     d.Score,
			CreatedAt: time.Unix(int64(d.CreatedUTC), 0).UTC(),
		})
		// replies is "" when empty and a listing object otherwise
		if len(d.Replies) > 0 && d.Replies[0] == '{' {
			var sub listingResponse
			if err := json.Unmarshal(d.Replies, &sub); err == nil {
				flattenComments(postID, sub.Data.Children, out)
			}
		}
	}
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, v any) error {
	if c.public {
		path += ".json"
	}
	endpoint := c.baseURL + path + "?" + q.Encode()
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	if !c.public {
		tok, err := c.accessToken(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("reddit: %s status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("reddit: decode %s: %w", path, err)
	}
	return nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
}

// accessToken returns a cached app-only token, fetching a new one shortly
// before the old one expires.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.expires) {
		return c.token, nil
	}
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.id, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("reddit: token status %d", resp.StatusCode)
	}
	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("reddit: decode token: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("reddit: token error %q", tr.Error)
	}
	ttl := time.Duration(tr.ExpiresIn) * time.Second
	if ttl <= time.Minute {
		ttl = time.Hour
	}
	c.token = tr.AccessToken
	c.expires = time.Now().Add(ttl - time.Minute)
	return c.token, nil
}

func convertPost(d listingData, now time.Time) model.Post {
	permalink := d.Permalink
	if strings.HasPrefix(permalink, "/") {
		permalink = publicBaseURL + permalink
	}
	return model.Post{
		ID:          d.ID,
		Subreddit:   d.Subreddit,
		Title:       d.Title,
		Body:        d.SelfText,
		Author:      d.Author,
		URL:         d.URL,
		Permalink:   permalink,
		Score:       d.Score,
		NumComments: d.NumComments,
		CreatedAt:   time.Unix(int64(d.CreatedUTC), 0).UTC(),
		CollectedAt: now,
	}
}

// Reddit JSON API response types

type listingResponse struct {
	Data struct {
		Children []listingChild `json:"children"`
		After    string         `json:"after"`
	} `json:"data"`
}

type listingChild struct {
	Kind string      `json:"kind"`
	Data listingData `json:"data"`
}

type listingData struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Subreddit   string          `json:"subreddit"`
	Title       string          `json:"title"`
	Author      string          `json:"author"`
	SelfText    string          `json:"selftext"`
	Body        string          `json:"body"`
	URL         string          `json:"url"`
	Permalink   string          `json:"permalink"`
	Score       int             `json:"score"`
	NumComments int             `json:"num_comments"`
	CreatedUTC  float64         `json:"created_utc"`
	Replies     json.RawMessage `json:"replies"`
}
