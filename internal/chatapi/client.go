package chatapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pandacare-chat/internal/dto"
)

const RoomsPath = "/api/rest/chat/rooms"

// maxRoomsBody bounds how much history one page render will read.
const maxRoomsBody = 8 << 20

var (
	ErrUnauthorized    = errors.New("chatapi: unauthorized")
	ErrUpstream        = errors.New("chatapi: request failed")
	ErrInvalidResponse = errors.New("chatapi: invalid response")
)

// Client talks to the chat backend's REST API on behalf of a signed-in user.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (c *Client) ListRooms(ctx context.Context, token string) ([]dto.Room, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+RoomsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUpstream, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case res.StatusCode < 200 || res.StatusCode > 299:
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxRoomsBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}

	return ProcessRoomData(body)
}
