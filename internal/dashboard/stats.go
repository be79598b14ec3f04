package dashboard

import (
	"context"
	"sort"

	"subreddit-insights/internal/filter"
	"subreddit-insights/internal/model"
	"subreddit-insights/internal/storage"
)

// KeywordCount is how many posts mention a keyword.
type KeywordCount struct {
	Category string `json:"category"`
	Keyword  string `json:"keyword"`
	Posts    int    `json:"posts"`
}

// CategoryCount is how many posts mention any keyword of a category.
type CategoryCount struct {
	Category string `json:"category"`
	Posts    int    `json:"posts"`
}

// Stats is everything the overview shows apart from posts and report entries.
type Stats struct {
	storage.Summary
	Year       int             `json:"year,omitempty"`
	Categories []CategoryCount `json:"categories"`
	Keywords   []KeywordCount  `json:"keywords"`
}

// Store is the read side of the post database used by the dashboard.
type Store interface {
	Summarize(ctx context.Context, year int) (storage.Summary, error)
	ListPosts(ctx context.Context, opts storage.ListOptions) ([]model.Post, error)
}

// ComputeStats reads aggregates at call time. Keyword frequencies are
// counted per post: a post mentioning a keyword twice counts once.
func ComputeStats(ctx context.Context, st Store, m *filter.Matcher, year int) (Stats, error) {
	sum, err := st.Summarize(ctx, year)
	if err != nil {
		return Stats{}, err
	}
	out := Stats{Summary: sum, Year: year}
	if m.Empty() {
		return out, nil
	}
	posts, err := st.ListPosts(ctx, storage.ListOptions{Year: year})
	if err != nil {
		return Stats{}, err
	}

	perCat := map[string]int{}
	perKw := map[[2]string]int{}
	for _, p := range posts {
		for cat, kws := range m.Hits(p.Text()) {
			perCat[cat]++
			for _, kw := range kws {
				perKw[[2]string{cat, kw}]++
			}
		}
	}
	for _, cat := range m.Categories() {
		out.Categories = append(out.Categories, CategoryCount{Category: cat, Posts: perCat[cat]})
		for _, kw := range m.Keywords(cat) {
			out.Keywords = append(out.Keywords, KeywordCount{Category: cat, Keyword: kw, Posts: perKw[[2]string{cat, kw}]})
		}
	}
	sort.SliceStable(out.Keywords, func(i, j int) bool {
		return out.Keywords[i].Posts > out.Keywords[j].Posts
	})
	return out, nil
}
