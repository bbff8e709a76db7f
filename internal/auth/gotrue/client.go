// Package gotrue adapts the Supabase GoTrue REST API to auth.IdentityClient.
package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"kern/internal/auth"
)

// Client calls a GoTrue server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a client for the Supabase project at baseURL.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e errorResponse) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// PasswordGrant signs in with email and password.
func (c *Client) PasswordGrant(ctx context.Context, email, password string) (*auth.Grant, error) {
	body := map[string]string{"email": email, "password": password}
	return c.token(ctx, "password", body, auth.ErrInvalidCredentials)
}

// RefreshGrant exchanges a refresh token for a new access token.
func (c *Client) RefreshGrant(ctx context.Context, refreshToken string) (*auth.Grant, error) {
	body := map[string]string{"refresh_token": refreshToken}
	return c.token(ctx, "refresh_token", body, auth.ErrRefreshRejected)
}

// Logout revokes the session behind accessToken. A token the server no
// longer knows counts as logged out.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/v1/logout", nil)
	if err != nil {
		return fmt.Errorf("build logout request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < 300, resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	default:
		return fmt.Errorf("logout: %s", describe(resp))
	}
}

func (c *Client) token(ctx context.Context, grantType string, body any, rejected error) (*auth.Grant, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s grant: %w", grantType, err)
	}

	endpoint := c.baseURL + "/auth/v1/token?" + url.Values{"grant_type": {grantType}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build %s grant request: %w", grantType, err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s grant: %w", grantType, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", rejected, describe(resp))
	default:
		return nil, fmt.Errorf("%s grant: %s", grantType, describe(resp))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode %s grant: %w", grantType, err)
	}
	if tr.AccessToken == "" {
		return nil, errors.New("grant response without access token")
	}

	return &auth.Grant{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		ExpiresIn:    tr.ExpiresIn,
		ExpiresAt:    tr.ExpiresAt,
		User:         auth.User{ID: tr.User.ID, Email: tr.User.Email},
	}, nil
}

// describe summarises an error response for wrapping.
func describe(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var er errorResponse
	if json.Unmarshal(raw, &er) == nil && er.text() != "" {
		return fmt.Sprintf("status %d: %s", resp.StatusCode, er.text())
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}
