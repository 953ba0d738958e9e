// Package openai implements an intent classifier backed by the OpenAI chat
// completions API (or any compatible server).
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/aretw0/wayfinder/internal/logging"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/ports"
	goopenai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// DefaultModel is used when neither the option nor the request names a model.
const DefaultModel = "gpt-4o-mini"

const systemPrompt = `You are an intent classifier for a task-oriented assistant.
Pick exactly one intent from the numbered list that best matches the user's last message.
If several options share the same intent name, also give the option's index within that intent.
If nothing fits, answer with the intent "%s".
Reply with a JSON object: {"intent": "<intent name>", "index": <index or -1>}.`

// Classifier implements ports.IntentClassifier with a chat completion call.
type Classifier struct {
	client      *goopenai.Client
	model       string
	temperature *float32
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// Option configures the Classifier.
type Option func(*config)

type config struct {
	apiKey      string
	baseURL     string
	model       string
	temperature *float32
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// WithAPIKey sets the API key. Defaults to OPENAI_API_KEY.
func WithAPIKey(key string) Option {
	return func(c *config) { c.apiKey = key }
}

// WithBaseURL points the client at a compatible server.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithModel sets the default model.
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float32) Option {
	return func(c *config) { c.temperature = &t }
}

// WithRateLimit paces requests to at most rps per second with the given burst.
// A non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *config) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// New creates a Classifier. It fails when no API key is available.
func New(opts ...Option) (*Classifier, error) {
	cfg := &config{
		apiKey: os.Getenv("OPENAI_API_KEY"),
		model:  DefaultModel,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	clientCfg := goopenai.DefaultConfig(cfg.apiKey)
	if cfg.baseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.baseURL, "/")
	}
	return &Classifier{
		client:      goopenai.NewClientWithConfig(clientCfg),
		model:       cfg.model,
		temperature: cfg.temperature,
		limiter:     cfg.limiter,
		logger:      cfg.logger,
	}, nil
}

// Classify implements ports.IntentClassifier.
func (c *Classifier) Classify(ctx context.Context, req ports.ClassifyRequest) (domain.Prediction, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return domain.Prediction{}, fmt.Errorf("rate limiter: %w", err)
		}
	}

	model := c.model
	if req.Model.Model != "" {
		model = req.Model.Model
	}
	chatReq := goopenai.ChatCompletionRequest{
		Model: model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: fmt.Sprintf(systemPrompt, domain.UnsureIntent)},
			{Role: goopenai.ChatMessageRoleUser, Content: BuildPrompt(req)},
		},
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: req.Model.Temperature,
	}
	if c.temperature != nil {
		chatReq.Temperature = *c.temperature
	}

	c.logger.Debug("Classifying utterance via OpenAI", "model", model, "candidates", len(req.Candidates))
	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Prediction{}, errors.New("OpenAI returned no choices")
	}

	pred := ParseReply(resp.Choices[0].Message.Content)
	c.logger.Debug("Received prediction from OpenAI",
		"prediction", pred.String(),
		"finish_reason", resp.Choices[0].FinishReason)
	return pred, nil
}

type reply struct {
	Intent string `json:"intent"`
	Index  *int   `json:"index"`
}

// ParseReply reads the model output. JSON replies are preferred; plain text
// falls back to the "label__<N>" form.
func ParseReply(content string) domain.Prediction {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.Trim(content, "`\n ")

	var r reply
	if err := json.Unmarshal([]byte(content), &r); err == nil && r.Intent != "" {
		p := domain.Prediction{Label: strings.TrimSpace(r.Intent)}
		if r.Index != nil && *r.Index >= 0 {
			p.Index = *r.Index
			p.Indexed = true
		}
		return p
	}
	return domain.ParsePrediction(content)
}

// BuildPrompt renders the candidate list and conversation for the model.
// Labels are listed in sorted order so prompts are stable across calls.
func BuildPrompt(req ports.ClassifyRequest) string {
	labels := make([]string, 0, len(req.Candidates))
	for label := range req.Candidates {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var b strings.Builder
	b.WriteString("Intents:\n")
	n := 1
	for _, label := range labels {
		for i, cand := range req.Candidates[label] {
			fmt.Fprintf(&b, "%d) %s", n, label)
			if len(req.Candidates[label]) > 1 {
				fmt.Fprintf(&b, " (index %d)", i)
			}
			if def := cand.Attribute.Definition; def != "" {
				fmt.Fprintf(&b, ": %s", def)
			}
			if samples := cand.Attribute.SampleUtterances; len(samples) > 0 {
				fmt.Fprintf(&b, "\n   examples: %s", strings.Join(samples, "; "))
			}
			b.WriteString("\n")
			n++
		}
	}
	if req.History != "" {
		b.WriteString("\nConversation so far:\n")
		b.WriteString(req.History)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nUser's last message: %s\n", req.Utterance)
	return b.String()
}
