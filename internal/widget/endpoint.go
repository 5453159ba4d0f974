package widget

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	APIURLPath      = "/chat/get-api-url/"
	AccessTokenPath = "/chat/get-access-token/"

	maxConfigBody = 64 << 10
)

var ErrConfigFetch = errors.New("widget: config fetch failed")

// Endpoint is where and as whom the widget connects. It is fetched once per
// widget start and never refreshed.
type Endpoint struct {
	APIURL      string
	AccessToken string
}

// ConfigClient reads the endpoint from the page host. The HTTP client must
// carry the session cookie, the same way a browser would.
type ConfigClient struct {
	pageURL string
	client  *http.Client
}

func NewConfigClient(pageURL string, client *http.Client) *ConfigClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &ConfigClient{
		pageURL: strings.TrimRight(pageURL, "/"),
		client:  client,
	}
}

// FetchEndpoint asks for the API URL and then the access token, in that
// order.
func (c *ConfigClient) FetchEndpoint(ctx context.Context) (Endpoint, error) {
	apiURL, err := c.fetchText(ctx, APIURLPath)
	if err != nil {
		return Endpoint{}, err
	}
	token, err := c.fetchText(ctx, AccessTokenPath)
	if err != nil {
		return Endpoint{}, err
	}
	return Endpoint{APIURL: apiURL, AccessToken: token}, nil
}

func (c *ConfigClient) fetchText(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL+path, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrConfigFetch, path, err)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrConfigFetch, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", fmt.Errorf("%w: %s: status %d", ErrConfigFetch, path, res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxConfigBody))
	if err != nil {
		return "", fmt.Errorf("%w: %s: read body: %v", ErrConfigFetch, path, err)
	}

	value := strings.TrimSpace(string(body))
	if value == "" {
		return "", fmt.Errorf("%w: %s: empty body", ErrConfigFetch, path)
	}
	return value, nil
}
