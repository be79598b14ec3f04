package ai

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Analyzer turns a batch of collected text into a written analysis.
type Analyzer interface {
	// Analyze sends text with the configured persona prompt and returns the reply.
	Analyze(ctx context.Context, text string) (string, error)
	// Model names the model used, recorded alongside each report entry.
	Model() string
}

// OpenAIClient implements Analyzer using the OpenAI Chat Completions API.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	system      string
	temperature float32
	maxTokens   int
	timeout     time.Duration
}

type Config struct {
	APIKey       string
	Model        string
	BaseURL      string // optional
	SystemPrompt string
	Temperature  float32
	MaxTokens    int // response token limit, 0 leaves it to the API
	Timeout      time.Duration
}

func NewOpenAI(cfg Config) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai: api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, errors.New("openai: model must be specified")
	}
	var c *openai.Client
	if cfg.BaseURL != "" {
		cc := openai.DefaultConfig(cfg.APIKey)
		cc.BaseURL = cfg.BaseURL
		c = openai.NewClientWithConfig(cc)
	} else {
		c = openai.NewClient(cfg.APIKey)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &OpenAIClient{
		client:      c,
		model:       model,
		system:      strings.TrimSpace(cfg.SystemPrompt),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     timeout,
	}, nil
}

func (o *OpenAIClient) Model() string { return o.model }

func (o *OpenAIClient) Analyze(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	out, err := o.create(ctx, o.system, text)
	if err != nil {
		slog.Error("openai: analyze error", "model", o.model, "err", err)
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (o *OpenAIClient) create(ctx context.Context, system, user string) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	// the request field is omitempty, so an exact 0 would fall back to the
	// API default of 1
	temperature := o.temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}
	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: user})
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    msgs,
		Temperature: temperature,
		MaxTokens:   o.maxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
