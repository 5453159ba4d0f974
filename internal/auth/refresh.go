package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var ErrRefreshRejected = errors.New("auth: refresh rejected")

const refreshPath = "/api/token/refresh"

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
}

// HTTPRefresher exchanges a refresh token at the auth service.
type HTTPRefresher struct {
	baseURL string
	client  *http.Client
}

func NewHTTPRefresher(baseURL string, client *http.Client) *HTTPRefresher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPRefresher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (h *HTTPRefresher) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if refreshToken == "" {
		return TokenPair{}, fmt.Errorf("%w: refresh token is empty", ErrRefreshRejected)
	}

	body, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return TokenPair{}, fmt.Errorf("refresh: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+refreshPath, bytes.NewReader(body))
	if err != nil {
		return TokenPair{}, fmt.Errorf("refresh: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := h.client.Do(req)
	if err != nil {
		return TokenPair{}, fmt.Errorf("refresh: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return TokenPair{}, fmt.Errorf("%w: status %d", ErrRefreshRejected, res.StatusCode)
	}

	var pair TokenPair
	if err := json.NewDecoder(res.Body).Decode(&pair); err != nil {
		return TokenPair{}, fmt.Errorf("refresh: decode response: %w", err)
	}
	if pair.Access == "" {
		return TokenPair{}, fmt.Errorf("%w: response carried no access token", ErrRefreshRejected)
	}
	return pair, nil
}
