// Package client talks to the confessions API and drives the client-side
// view state machine.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"secretheart/internal/models"
	"secretheart/internal/notifications"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// API is the server surface the App depends on.
type API interface {
	ListConfessions(ctx context.Context) ([]models.Confession, error)
	GetConfession(ctx context.Context, id uint) (*models.Confession, error)
	CreateConfession(ctx context.Context, message string) (*models.Confession, error)
	LikeConfession(ctx context.Context, id uint) (*models.Confession, error)
}

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	Status  int
	Message string
	Code    string
	Details string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api: %d %s", e.Status, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return msg
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Client is an HTTP implementation of API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	dialer  *websocket.Dialer
}

// New returns a Client for the server at baseURL (e.g. http://localhost:3000).
// A zero timeout means no timeout.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", baseURL)
	}
	return &Client{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}, nil
}

func (c *Client) endpoint(parts ...string) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/api/" + strings.Join(parts, "/")
	return u.String()
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, wantStatus int, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != wantStatus {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var envelope models.ErrorResponse
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error != "" {
			apiErr.Message = envelope.Error
			apiErr.Code = envelope.Code
			apiErr.Details = envelope.Details
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) ListConfessions(ctx context.Context) ([]models.Confession, error) {
	var out []models.Confession
	if err := c.do(ctx, http.MethodGet, c.endpoint("confessions"), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Confession{}
	}
	return out, nil
}

func (c *Client) GetConfession(ctx context.Context, id uint) (*models.Confession, error) {
	var out models.Confession
	if err := c.do(ctx, http.MethodGet, c.endpoint("confessions", strconv.FormatUint(uint64(id), 10)), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateConfession(ctx context.Context, message string) (*models.Confession, error) {
	var out models.Confession
	body := map[string]string{"message": message}
	if err := c.do(ctx, http.MethodPost, c.endpoint("confessions"), body, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) LikeConfession(ctx context.Context, id uint) (*models.Confession, error) {
	var out models.Confession
	if err := c.do(ctx, http.MethodPost, c.endpoint("confessions", strconv.FormatUint(uint64(id), 10), "like"), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Watch subscribes to the live feed and calls onEvent for every frame until
// ctx is cancelled or the connection drops. A cancelled ctx returns nil.
func (c *Client) Watch(ctx context.Context, onEvent func(notifications.Event)) error {
	u := *c.baseURL
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/ws"

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return &APIError{Status: resp.StatusCode, Message: "live feed unavailable"}
		}
		return fmt.Errorf("dial live feed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read live feed: %w", err)
		}
		var ev notifications.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			continue
		}
		onEvent(ev)
	}
}
