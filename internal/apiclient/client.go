// Package apiclient is a small fasthttp client for the match API, used by
// the health probe binary and handy for scripted smoke tests.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/seegalab/seega-server/pkg/seegadto"
)

type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Health(ctx context.Context) error {
	var out map[string]bool
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/health", "", nil, &out, true); err != nil {
		return err
	}
	if !out["ok"] {
		return errors.New("health endpoint reports not ok")
	}
	return nil
}

func (c *Client) CreateGame(ctx context.Context) (*seegadto.JoinInfo, error) {
	var info seegadto.JoinInfo
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/games", "", nil, &info, false); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) JoinGame(ctx context.Context, gameID, token string) (*seegadto.JoinInfo, error) {
	var info seegadto.JoinInfo
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/games/"+gameID+"/join", token, nil, &info, false); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) GetState(ctx context.Context, gameID, token string) (*seegadto.StateView, error) {
	var state seegadto.StateView
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/games/"+gameID, token, nil, &state, true); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *Client) PlacePiece(ctx context.Context, gameID, token string, x, y int) (*seegadto.ActionResponse, error) {
	var resp seegadto.ActionResponse
	req := seegadto.PlaceRequest{X: x, Y: y}
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/games/"+gameID+"/place", token, req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) MovePiece(ctx context.Context, gameID, token string, fromX, fromY, toX, toY int) (*seegadto.ActionResponse, error) {
	var resp seegadto.ActionResponse
	req := seegadto.MoveRequest{FromX: fromX, FromY: fromY, ToX: toX, ToY: toY}
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/games/"+gameID+"/move", token, req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetValidActions(ctx context.Context, gameID, token string) (*seegadto.ValidActions, error) {
	var actions seegadto.ValidActions
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/games/"+gameID+"/valid-actions", token, nil, &actions, true); err != nil {
		return nil, err
	}
	return &actions, nil
}

func (c *Client) LeaveGame(ctx context.Context, gameID, token string) (*seegadto.LeaveResponse, error) {
	var resp seegadto.LeaveResponse
	if err := c.doJSON(ctx, fasthttp.MethodDelete, "/api/games/"+gameID+"/leave", token, nil, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, in any, out any, retry bool) error {
	url := c.baseURL + path
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(url)
	req.Header.SetContentType("application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry {
		attempts = c.retryMax
		if attempts <= 0 {
			attempts = 1
		}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		deadline := c.computeDeadline(ctx)
		err := c.http.DoDeadline(req, resp, deadline)
		if err != nil {
			if attempt == attempts || !retry {
				return fmt.Errorf("request failed: %w", err)
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			apiErr := decodeAPIError(status, resp.Body())
			if attempt == attempts || !retry || !shouldRetryStatus(status) {
				return apiErr
			}
			lastErr = apiErr
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func decodeAPIError(status int, body []byte) error {
	var er seegadto.ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != "" {
		return fmt.Errorf("api error: status=%d code=%s message=%s", status, er.Code, er.Error)
	}
	return fmt.Errorf("api error: status=%d body=%s", status, truncate(string(body), 512))
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		clientDL := time.Now().Add(c.defaultTimeout)
		if dl.Before(clientDL) {
			return dl
		}
		return clientDL
	}
	return time.Now().Add(c.defaultTimeout)
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base // 100ms, 200ms ...
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
