package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestFillDefaults(t *testing.T) {
	var c Config
	c.BatchSize = 500
	c.FillDefaults()

	if c.BatchSize != 100 {
		t.Errorf("batch size should be capped at 100, got %d", c.BatchSize)
	}
	if c.MaxPagination != 5 {
		t.Errorf("max pagination default: got %d", c.MaxPagination)
	}
	if c.Database.File == "" || c.OutputFile == "" {
		t.Fatalf("expected file defaults, got db=%q report=%q", c.Database.File, c.OutputFile)
	}
	if c.OpenAI.SystemPrompt == "" {
		t.Errorf("expected default system prompt")
	}
	if c.Reddit.RateLimit <= 0 {
		t.Errorf("expected positive rate limit")
	}
}

func TestFillDefaultsKeepsValues(t *testing.T) {
	c := Config{Sort: "top", PostMinLength: 10, Dashboard: DashboardConfig{Addr: ":9000"}}
	c.FillDefaults()
	if c.Sort != "top" || c.PostMinLength != 10 || c.Dashboard.Addr != ":9000" {
		t.Fatalf("explicit values overwritten: %+v", c)
	}
}

func load(t *testing.T, yaml string) (Config, *viper.Viper) {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(yaml)); err != nil {
		t.Fatalf("read config: %v", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	c.FillDefaults()
	return c, v
}

func TestExplicitZeroValuesSurvive(t *testing.T) {
	c, v := load(t, `
subreddit: oscp
keywords:
  exam: [exam]
post_min_length: 0
comments:
  enabled: true
  min_length: 0
openai:
  temperature: 0
`)
	if err := Validate(v.AllSettings()); err != nil {
		t.Fatalf("zero values should validate: %v", err)
	}
	if c.PostMinLength != 0 || c.Comments.MinLength != 0 || c.OpenAI.Temperature != 0 {
		t.Fatalf("explicit zero values overwritten: min=%d comment_min=%d temp=%v",
			c.PostMinLength, c.Comments.MinLength, c.OpenAI.Temperature)
	}
	if !c.Comments.Enabled {
		t.Errorf("sibling keys lost when defaulting comments.min_length")
	}
}

func TestAbsentKeysGetDefaults(t *testing.T) {
	c, _ := load(t, "subreddit: oscp\n")
	if c.PostMinLength != DefaultPostMinLength {
		t.Errorf("post_min_length = %d", c.PostMinLength)
	}
	if c.Comments.MinLength != DefaultCommentMinLength {
		t.Errorf("comments.min_length = %d", c.Comments.MinLength)
	}
	if c.OpenAI.Temperature != DefaultTemperature {
		t.Errorf("temperature = %v", c.OpenAI.Temperature)
	}
}

func validSettings() map[string]any {
	return map[string]any{
		"subreddit":       "oscp",
		"search_query":    "exam",
		"sort":            "new",
		"time_filter":     "year",
		"batch_size":      50,
		"max_pagination":  3,
		"post_min_length": 100,
		"keywords": map[string]any{
			"technical_terms": []any{"buffer overflow", "privesc"},
		},
		"openai": map[string]any{"temperature": 0.7},
	}
}

func TestValidateOK(t *testing.T) {
	if err := Validate(validSettings()); err != nil {
		t.Fatalf("expected valid settings, got %v", err)
	}
}

func TestValidateMissingRequired(t *testing.T) {
	s := validSettings()
	delete(s, "keywords")
	err := Validate(s)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(ve.Error(), "keywords") {
		t.Errorf("expected keywords in error, got %q", ve.Error())
	}
}

func TestValidateBadValues(t *testing.T) {
	s := validSettings()
	s["sort"] = "random"
	s["batch_size"] = 1000
	err := Validate(s)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	paths := map[string]bool{}
	for _, is := range ve.Issues {
		paths[is.Path] = true
	}
	if !paths["/sort"] || !paths["/batch_size"] {
		t.Errorf("expected issues for /sort and /batch_size, got %+v", ve.Issues)
	}
}
