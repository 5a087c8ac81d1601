package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/v0xg/gcursor/internal/config"
)

const stepsJSON = `[{"type":"click","value":"Login"}]`

// recordingServer answers every request with body and remembers the last one.
type recordingServer struct {
	*httptest.Server
	mu   sync.Mutex
	last seenRequest
	hits int
}

type seenRequest struct {
	path   string
	header http.Header
	body   map[string]any
}

func (rs *recordingServer) seen() (seenRequest, int) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.last, rs.hits
}

func newRecordingServer(t *testing.T, status int, body string) *recordingServer {
	t.Helper()
	rs := &recordingServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		req := seenRequest{path: r.URL.Path, header: r.Header.Clone()}
		_ = json.Unmarshal(raw, &req.body)

		rs.mu.Lock()
		rs.hits++
		rs.last = req
		rs.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(rs.Close)
	return rs
}

func TestClaudeProvider_Complete(t *testing.T) {
	srv := newRecordingServer(t, http.StatusOK, `{
		"id": "msg_01",
		"type": "message",
		"role": "assistant",
		"model": "claude-sonnet-4-20250514",
		"content": [{"type": "text", "text": `+quoteJSON(stepsJSON)+`}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 12, "output_tokens": 9}
	}`)

	p := NewClaudeProvider(config.LLMConfig{APIKey: "sk-ant-test", BaseURL: srv.URL}, zap.NewNop())
	text, err := p.Complete(context.Background(), "Action: log in")

	require.NoError(t, err)
	assert.Equal(t, stepsJSON, text)
	req, _ := srv.seen()
	assert.Equal(t, "/v1/messages", req.path)
	assert.Equal(t, "sk-ant-test", req.header.Get("X-Api-Key"))
	assert.Equal(t, "claude-sonnet-4-20250514", req.body["model"])
}

func TestClaudeProvider_ErrorIsNotRetried(t *testing.T) {
	srv := newRecordingServer(t, http.StatusInternalServerError, `{"type":"error","error":{"type":"api_error","message":"overloaded"}}`)

	p := NewClaudeProvider(config.LLMConfig{APIKey: "k", BaseURL: srv.URL}, zap.NewNop())
	_, err := p.Complete(context.Background(), "x")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Claude API error")
	_, hits := srv.seen()
	assert.Equal(t, 1, hits)
}

func TestOpenAIProvider_Complete(t *testing.T) {
	srv := newRecordingServer(t, http.StatusOK, `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"model": "gpt-4o",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": `+quoteJSON(stepsJSON)+`}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 7, "total_tokens": 17}
	}`)

	p := NewOpenAIProvider(config.LLMConfig{APIKey: "sk-test", Model: "gpt-4o-mini", BaseURL: srv.URL + "/v1"}, zap.NewNop())
	text, err := p.Complete(context.Background(), "Action: log in")

	require.NoError(t, err)
	assert.Equal(t, stepsJSON, text)
	req, _ := srv.seen()
	assert.Equal(t, "/v1/chat/completions", req.path)
	assert.Equal(t, "Bearer sk-test", req.header.Get("Authorization"))
	assert.Equal(t, "gpt-4o-mini", req.body["model"])
}

func TestOpenAIProvider_NoChoices(t *testing.T) {
	srv := newRecordingServer(t, http.StatusOK, `{"id":"x","object":"chat.completion","choices":[]}`)

	p := NewOpenAIProvider(config.LLMConfig{APIKey: "k", BaseURL: srv.URL + "/v1"}, zap.NewNop())
	_, err := p.Complete(context.Background(), "x")

	assert.EqualError(t, err, "empty response from OpenAI")
}

func TestGeminiProvider_Complete(t *testing.T) {
	srv := newRecordingServer(t, http.StatusOK, `{
		"candidates": [{"content": {"role": "model", "parts": [{"text": `+quoteJSON(stepsJSON)+`}]}, "finishReason": "STOP"}]
	}`)

	p, err := NewGeminiProvider(config.LLMConfig{APIKey: "AIza-test", BaseURL: srv.URL}, zap.NewNop())
	require.NoError(t, err)

	text, err := p.Complete(context.Background(), "Action: log in")

	require.NoError(t, err)
	assert.Equal(t, stepsJSON, text)
	req, _ := srv.seen()
	assert.True(t, strings.HasSuffix(req.path, "models/"+DefaultGeminiModel+":generateContent"), req.path)
	assert.Equal(t, "AIza-test", req.header.Get("X-Goog-Api-Key"))

	genCfg, ok := req.body["generationConfig"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "application/json", genCfg["responseMimeType"])
}

func TestGeminiProvider_EmptyCandidates(t *testing.T) {
	srv := newRecordingServer(t, http.StatusOK, `{"candidates": []}`)

	p, err := NewGeminiProvider(config.LLMConfig{APIKey: "k", BaseURL: srv.URL}, zap.NewNop())
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), "x")
	assert.EqualError(t, err, "empty response from Gemini")
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		want     any
	}{
		{provider: "gemini", want: &GeminiProvider{}},
		{provider: "google", want: &GeminiProvider{}},
		{provider: "claude", want: &ClaudeProvider{}},
		{provider: "anthropic", want: &ClaudeProvider{}},
		{provider: "openai", want: &OpenAIProvider{}},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := NewProvider(config.LLMConfig{Provider: tt.provider, APIKey: "k"}, nil)
			require.NoError(t, err)
			assert.IsType(t, tt.want, p)
		})
	}

	_, err := NewProvider(config.LLMConfig{Provider: "gemini"}, nil)
	assert.ErrorIs(t, err, config.ErrConfiguration)

	_, err = NewProvider(config.LLMConfig{Provider: "llama", APIKey: "k"}, nil)
	assert.Error(t, err)
}

func TestTranslatorWithHTTPProvider(t *testing.T) {
	srv := newRecordingServer(t, http.StatusOK, `{
		"choices": [{"message": {"role": "assistant", "content": `+quoteJSON("```json\n"+stepsJSON+"\n```")+`}}]
	}`)

	p := NewOpenAIProvider(config.LLMConfig{APIKey: "k", BaseURL: srv.URL + "/v1"}, zap.NewNop())
	steps, err := NewTranslator(p, 0, nil).Translate(context.Background(), "click the Login button")

	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "Login", steps[0].Value)
	_, hits := srv.seen()
	assert.Equal(t, 1, hits)
}

func quoteJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
