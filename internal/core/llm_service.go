package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"pawchat/internal/store"
)

// ErrNoAssistantText means the endpoint answered but no assistant text
// could be found in any recognized response shape.
var ErrNoAssistantText = errors.New("no assistant text in completion response")

// LLMService talks to a configurable OpenAI-chat-completion-compatible
// endpoint. Responses are decoded tolerantly because provider proxies
// disagree on the exact shape; see ChatCompletion and ListModels.
type LLMService struct {
	httpClient *http.Client
}

func NewLLMService() *LLMService {
	// No client timeout: a generation runs to completion or transport
	// failure, and the per-conversation guard covers the interval.
	return &LLMService{httpClient: &http.Client{}}
}

// ChatCompletion sends one completion request and returns the raw
// assistant text. A single attempt, no streaming, no retry.
func (s *LLMService) ChatCompletion(ctx context.Context, settings *store.Settings, segments []PromptSegment) (string, error) {
	if settings.Endpoint == "" {
		return "", fmt.Errorf("completion endpoint is not configured")
	}
	if len(segments) == 0 {
		return "", fmt.Errorf("assembled prompt is empty")
	}

	payload, err := json.Marshal(map[string]any{
		"model":    settings.Model,
		"messages": segments,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, completionURL(settings.Endpoint), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if settings.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+settings.APIKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read completion response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("completion endpoint returned %s: %s", resp.Status, truncateForLog(body))
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("completion response is not valid JSON: %s", truncateForLog(body))
	}

	// Provider proxies vary; try the known shapes in order.
	for _, path := range []string{"choices.0.message.content", "choices.0.text", "output"} {
		if v := gjson.GetBytes(body, path); v.Type == gjson.String && v.Str != "" {
			return v.Str, nil
		}
	}
	return "", ErrNoAssistantText
}

// ListModels fetches the endpoint's model catalogue. Accepts
// {"data":[...]}, {"models":[...]} or a bare array, with entries either
// strings or objects exposing id/name.
func (s *LLMService) ListModels(ctx context.Context, settings *store.Settings) ([]string, error) {
	if settings.Endpoint == "" {
		return nil, fmt.Errorf("completion endpoint is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, modelsURL(settings.Endpoint), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build models request: %w", err)
	}
	if settings.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+settings.APIKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("models request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read models response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("models endpoint returned %s: %s", resp.Status, truncateForLog(body))
	}

	root := gjson.ParseBytes(body)
	list := root.Get("data")
	if !list.IsArray() {
		list = root.Get("models")
	}
	if !list.IsArray() && root.IsArray() {
		list = root
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("unrecognized models response shape: %s", truncateForLog(body))
	}

	var models []string
	list.ForEach(func(_, entry gjson.Result) bool {
		switch {
		case entry.Type == gjson.String:
			models = append(models, entry.Str)
		case entry.Get("id").Type == gjson.String:
			models = append(models, entry.Get("id").Str)
		case entry.Get("name").Type == gjson.String:
			models = append(models, entry.Get("name").Str)
		}
		return true
	})
	return models, nil
}

// completionURL appends /chat/completions to the configured base unless
// the user already pasted the full path.
func completionURL(endpoint string) string {
	base := strings.TrimRight(endpoint, "/")
	if strings.HasSuffix(base, "/chat/completions") {
		return base
	}
	return base + "/chat/completions"
}

func modelsURL(endpoint string) string {
	base := strings.TrimRight(endpoint, "/")
	base = strings.TrimSuffix(base, "/chat/completions")
	return base + "/models"
}

func truncateForLog(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
