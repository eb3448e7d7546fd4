package publish

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const apiBase = "https://itch.io/api/1"

// Response is the uniform success/failure shape every API call returns.
// Transient errors are retried internally; after the retry ceiling the
// failure is reported here, never raised.
type Response struct {
	OK         bool
	StatusCode int
	Error      string
	Body       map[string]interface{}
}

// Client is a minimal itch.io REST client with retry/backoff on transient
// failures.
type Client struct {
	http *resty.Client
}

// NewClient creates a Client authenticated by apiKey.
func NewClient(apiKey string) *Client {
	c := resty.New().
		SetBaseURL(apiBase+"/"+apiKey).
		SetTimeout(30*time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(10*time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true // connection errors and timeouts
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})
	return &Client{http: c}
}

// get performs one GET with the configured retry policy and folds the
// outcome into a Response.
func (c *Client) get(ctx context.Context, path string) *Response {
	var body map[string]interface{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		Get(path)
	if err != nil {
		return &Response{OK: false, Error: err.Error()}
	}
	out := &Response{
		StatusCode: resp.StatusCode(),
		Body:       body,
	}
	if resp.IsSuccess() {
		out.OK = true
	} else {
		out.Error = fmt.Sprintf("HTTP %d", resp.StatusCode())
	}
	return out
}

// Credentials verifies the API key.
func (c *Client) Credentials(ctx context.Context) *Response {
	return c.get(ctx, "/credentials-info")
}

// GameStatus fetches the caller's games list as a lightweight reachability
// and auth check before an upload. target is kept for log attribution.
func (c *Client) GameStatus(ctx context.Context, target string) *Response {
	resp := c.get(ctx, "/my-games")
	if !resp.OK && resp.Error != "" {
		resp.Error = fmt.Sprintf("%s (checking %s)", resp.Error, target)
	}
	return resp
}
