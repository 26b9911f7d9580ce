package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pawchat/internal/store"
)

func completionServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testSegments() []PromptSegment {
	return []PromptSegment{{Role: "user", Content: "你好"}}
}

func TestChatCompletionResponseShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"openai message content", `{"choices":[{"message":{"content":"回复文本"}}]}`, "回复文本"},
		{"legacy choices text", `{"choices":[{"text":"旧格式回复"}]}`, "旧格式回复"},
		{"bare output string", `{"output":"直出回复"}`, "直出回复"},
	}

	svc := NewLLMService()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := completionServer(t, http.StatusOK, tt.body)
			settings := &store.Settings{Endpoint: srv.URL, Model: "test-model"}

			got, err := svc.ChatCompletion(context.Background(), settings, testSegments())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChatCompletionNoAssistantText(t *testing.T) {
	srv := completionServer(t, http.StatusOK, `{"choices":[{"message":{"content":""}}]}`)
	svc := NewLLMService()
	settings := &store.Settings{Endpoint: srv.URL, Model: "test-model"}

	_, err := svc.ChatCompletion(context.Background(), settings, testSegments())
	assert.ErrorIs(t, err, ErrNoAssistantText)
}

func TestChatCompletionHTTPError(t *testing.T) {
	srv := completionServer(t, http.StatusInternalServerError, `upstream exploded`)
	svc := NewLLMService()
	settings := &store.Settings{Endpoint: srv.URL, Model: "test-model"}

	_, err := svc.ChatCompletion(context.Background(), settings, testSegments())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestChatCompletionInvalidJSON(t *testing.T) {
	srv := completionServer(t, http.StatusOK, `not json at all`)
	svc := NewLLMService()
	settings := &store.Settings{Endpoint: srv.URL, Model: "test-model"}

	_, err := svc.ChatCompletion(context.Background(), settings, testSegments())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")
}

func TestChatCompletionRequestShape(t *testing.T) {
	var gotPath, gotAuth, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	svc := NewLLMService()
	settings := &store.Settings{Endpoint: srv.URL, APIKey: "sk-test", Model: "test-model"}

	_, err := svc.ChatCompletion(context.Background(), settings, testSegments())
	require.NoError(t, err)
	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
}

func TestChatCompletionEndpointNotConfigured(t *testing.T) {
	svc := NewLLMService()
	_, err := svc.ChatCompletion(context.Background(), &store.Settings{}, testSegments())
	assert.Error(t, err)
}

func TestCompletionURL(t *testing.T) {
	assert.Equal(t, "https://api.example.com/v1/chat/completions", completionURL("https://api.example.com/v1"))
	assert.Equal(t, "https://api.example.com/v1/chat/completions", completionURL("https://api.example.com/v1/"))
	assert.Equal(t, "https://api.example.com/v1/chat/completions", completionURL("https://api.example.com/v1/chat/completions"))
}

func TestModelsURL(t *testing.T) {
	assert.Equal(t, "https://api.example.com/v1/models", modelsURL("https://api.example.com/v1"))
	assert.Equal(t, "https://api.example.com/v1/models", modelsURL("https://api.example.com/v1/chat/completions"))
}

func TestListModelsResponseShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"data array of objects", `{"data":[{"id":"model-a"},{"id":"model-b"}]}`, []string{"model-a", "model-b"}},
		{"models array of strings", `{"models":["model-a","model-b"]}`, []string{"model-a", "model-b"}},
		{"bare mixed array", `["model-a",{"name":"model-b"}]`, []string{"model-a", "model-b"}},
	}

	svc := NewLLMService()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := completionServer(t, http.StatusOK, tt.body)
			settings := &store.Settings{Endpoint: srv.URL}

			got, err := svc.ListModels(context.Background(), settings)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListModelsUnrecognizedShape(t *testing.T) {
	srv := completionServer(t, http.StatusOK, `{"something":"else"}`)
	svc := NewLLMService()

	_, err := svc.ListModels(context.Background(), &store.Settings{Endpoint: srv.URL})
	assert.Error(t, err)
}
