package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"pawchat/internal/config"
)

type DiscordUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// DiscordTokenResponse is what the token endpoint hands back for an
// authorization code. Refresh flow and expiry handling live with the
// client; this is exchange glue only.
type DiscordTokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	ExpiresIn    int         `json:"expires_in,omitempty"`
	User         DiscordUser `json:"user"`
}

// ExchangeDiscordCode trades an OAuth authorization code for tokens and
// the user identity at the configured token endpoint.
func ExchangeDiscordCode(ctx context.Context, code string) (*DiscordTokenResponse, error) {
	if config.AppConfig.DiscordClientID == "" {
		return nil, fmt.Errorf("discord client id is not configured")
	}

	payload, err := json.Marshal(map[string]string{
		"code":          code,
		"client_id":     config.AppConfig.DiscordClientID,
		"client_secret": config.AppConfig.DiscordClientSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, config.AppConfig.DiscordTokenURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("token endpoint returned %s", resp.Status)
	}

	var tokenResp DiscordTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" || tokenResp.User.ID == "" {
		return nil, fmt.Errorf("token response is missing access_token or user")
	}
	return &tokenResp, nil
}
