package explain

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/Mohammedsanin/NeuroBlock/metric"
	"github.com/Mohammedsanin/NeuroBlock/stage"
)

var errEmptyCompletion = errors.New("chat API returned no completion text")

// Source identifies where an explanation came from.
type Source string

const (
	// SourceModel means the text was generated by the language model
	SourceModel Source = "model"
	// SourceCache means a previously generated text was reused
	SourceCache Source = "cache"
	// SourceFallback means the built-in static text was served
	SourceFallback Source = "fallback"
)

// Explanation is a beginner-level description of one pipeline stage.
type Explanation struct {
	Kind   stage.Kind `json:"kind"`
	Text   string     `json:"text"`
	Source Source     `json:"source"`
}

// Config configures the explanation service.
type Config struct {
	// BaseURL points at an OpenAI-compatible chat API. Empty uses the
	// OpenAI default; a local service like LocalAI works too.
	BaseURL string

	// APIKey authenticates against the API. Optional for local services.
	APIKey string

	// Model is the chat model to use (default: gpt-4o-mini).
	Model string

	// Timeout bounds each generation call (default: 15s).
	Timeout time.Duration

	// CacheTTL controls how long generated texts are reused (default: 1h).
	CacheTTL time.Duration

	// RequestsPerMinute caps calls to the language model (default: 20).
	// Requests beyond the cap are served from the static fallbacks, not
	// queued.
	RequestsPerMinute int

	// Logger for generation logging (optional, defaults to slog.Default()).
	Logger *slog.Logger

	// Metrics counts served explanations by source (optional).
	Metrics *metric.Metrics
}

// Service generates stage explanations, caching aggressively and
// degrading to static texts whenever the language model cannot answer.
// Explain never fails: some explanation is always available.
type Service struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
	cache   *ttlCache
	logger  *slog.Logger
	metrics *metric.Metrics
}

// NewService creates an explanation service backed by a chat API.
func NewService(cfg Config) *Service {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = time.Hour
	}

	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = 20
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "dummy-key" // local services don't need a real key
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   model,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 3),
		cache:   newTTLCache(cacheTTL),
		logger:  logger,
		metrics: cfg.Metrics,
	}
}

// NewStatic creates a service that only serves the built-in texts. Used
// when no API key is configured; the builder stays fully usable.
func NewStatic() *Service {
	return &Service{
		cache:  newTTLCache(time.Hour),
		logger: slog.Default(),
	}
}

// Explain returns a beginner-level explanation for the given stage,
// personalized with dataset context when available. The lookup order is
// cache, then the language model, then the static fallback. Unknown kinds
// get the generic fallback.
func (s *Service) Explain(ctx context.Context, kind stage.Kind, info *DatasetContext) Explanation {
	prompt := userPrompt(kind, info)
	key := contentHash(prompt)

	if text, ok := s.cache.get(key); ok {
		s.metrics.RecordExplanation(string(SourceCache))
		return Explanation{Kind: kind, Text: text, Source: SourceCache}
	}

	if s.client == nil {
		return s.fallback(kind)
	}
	if !s.limiter.Allow() {
		s.logger.Debug("explanation rate limit reached, serving fallback", "kind", kind)
		return s.fallback(kind)
	}

	text, err := s.generate(ctx, prompt)
	if err != nil {
		s.logger.Warn("explanation generation failed, serving fallback",
			"kind", kind, "error", err)
		return s.fallback(kind)
	}

	s.cache.set(key, text)
	s.metrics.RecordExplanation(string(SourceModel))
	return Explanation{Kind: kind, Text: text, Source: SourceModel}
}

func (s *Service) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   256,
		Temperature: 0.4,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", errEmptyCompletion
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (s *Service) fallback(kind stage.Kind) Explanation {
	s.metrics.RecordExplanation(string(SourceFallback))
	return Explanation{Kind: kind, Text: fallbackText(kind), Source: SourceFallback}
}
