package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/aretw0/wayfinder/pkg/adapters/openai"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.IntentClassifier = (*openai.Classifier)(nil)

type chatRequest struct {
	Model          string  `json:"model"`
	Temperature    float32 `json:"temperature"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// fakeServer answers every chat completion with content and captures the last request.
func fakeServer(t *testing.T, content string, status int) (*httptest.Server, *chatRequest, *atomic.Int32) {
	t.Helper()
	var last chatRequest
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&last))

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  last.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &last, &calls
}

func request() ports.ClassifyRequest {
	return ports.ClassifyRequest{
		Utterance: "I want to book a table",
		History:   "assistant: Hello!\nuser: I want to book a table",
		Candidates: domain.IntentPool{
			"make reservation": {
				{Intent: "make reservation", Target: "1", Attribute: domain.EdgeAttribute{
					Weight: 1, Definition: "user wants to book", SampleUtterances: []string{"book a table"},
				}},
				{Intent: "make reservation", Target: "4", Attribute: domain.EdgeAttribute{Weight: 1}},
			},
			domain.UnsureIntent: {domain.UnsureCandidate()},
		},
	}
}

func TestClassifier_JSONReply(t *testing.T) {
	srv, last, _ := fakeServer(t, `{"intent": "make reservation", "index": 1}`, http.StatusOK)
	c, err := openai.New(openai.WithAPIKey("test-key"), openai.WithBaseURL(srv.URL+"/v1"))
	require.NoError(t, err)

	pred, err := c.Classify(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, domain.Prediction{Label: "make reservation", Index: 1, Indexed: true}, pred)

	assert.Equal(t, openai.DefaultModel, last.Model)
	assert.Equal(t, "json_object", last.ResponseFormat.Type)
	require.Len(t, last.Messages, 2)
	assert.Contains(t, last.Messages[0].Content, domain.UnsureIntent)
	assert.Contains(t, last.Messages[1].Content, "I want to book a table")
	assert.Contains(t, last.Messages[1].Content, "user wants to book")
}

func TestClassifier_RequestModelWins(t *testing.T) {
	srv, last, _ := fakeServer(t, `{"intent": "others", "index": -1}`, http.StatusOK)
	c, err := openai.New(openai.WithAPIKey("test-key"), openai.WithBaseURL(srv.URL+"/v1"), openai.WithModel("gpt-4o"))
	require.NoError(t, err)

	req := request()
	req.Model = domain.ModelConfig{Model: "gpt-4.1-mini", Temperature: 0.3}
	pred, err := c.Classify(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.Prediction{Label: domain.UnsureIntent}, pred)
	assert.Equal(t, "gpt-4.1-mini", last.Model)
	assert.InDelta(t, 0.3, last.Temperature, 1e-6)
}

func TestClassifier_ServerError(t *testing.T) {
	srv, _, _ := fakeServer(t, "", http.StatusInternalServerError)
	c, err := openai.New(openai.WithAPIKey("test-key"), openai.WithBaseURL(srv.URL+"/v1"))
	require.NoError(t, err)

	_, err = c.Classify(context.Background(), request())
	assert.Error(t, err)
}

func TestClassifier_RateLimitHonoursContext(t *testing.T) {
	srv, _, calls := fakeServer(t, `{"intent": "others"}`, http.StatusOK)
	c, err := openai.New(
		openai.WithAPIKey("test-key"),
		openai.WithBaseURL(srv.URL+"/v1"),
		openai.WithRateLimit(0.001, 1),
	)
	require.NoError(t, err)

	_, err = c.Classify(context.Background(), request())
	require.NoError(t, err)

	// The bucket is empty now. A canceled context fails fast without a request.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Classify(ctx, request())
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNew_RequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := openai.New()
	assert.Error(t, err)
}

func TestParseReply(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want domain.Prediction
	}{
		{"json", `{"intent":"greet"}`, domain.Prediction{Label: "greet"}},
		{"json index", `{"intent":"greet","index":2}`, domain.Prediction{Label: "greet", Index: 2, Indexed: true}},
		{"json negative index", `{"intent":"greet","index":-1}`, domain.Prediction{Label: "greet"}},
		{"fenced", "```json\n{\"intent\":\"greet\"}\n```", domain.Prediction{Label: "greet"}},
		{"plain text", "greet", domain.Prediction{Label: "greet"}},
		{"legacy index", "greet__<1>", domain.Prediction{Label: "greet", Index: 1, Indexed: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, openai.ParseReply(tt.in))
		})
	}
}

func TestBuildPrompt_Stable(t *testing.T) {
	p := openai.BuildPrompt(request())
	assert.Equal(t, p, openai.BuildPrompt(request()))
	assert.True(t, strings.Index(p, "make reservation") < strings.Index(p, domain.UnsureIntent))
	assert.Contains(t, p, "(index 1)")
	assert.Contains(t, p, "examples: book a table")
}
