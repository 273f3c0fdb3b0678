// Package engineapi talks HTTP to the execution engine: launching runs and
// persisting workflow documents.
package engineapi

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

	"github.com/tidwall/gjson"
)

type (
	// Client is an engine API client.
	Client struct {
		httpClient *http.Client
		baseURL    string
		token      string
	}

	// StatusError is a non-2xx answer from the engine.
	StatusError struct {
		Status  int
		Message string
	}
)

var (
	ErrStartExecution   = errors.New("failed to start execution")
	ErrListWorkflows    = errors.New("failed to list workflows")
	ErrCreateWorkflow   = errors.New("failed to create workflow")
	ErrUpdateWorkflow   = errors.New("failed to update workflow")
	ErrDeleteWorkflow   = errors.New("failed to delete workflow")
	ErrToggleDeployment = errors.New("failed to toggle deployment")
	ErrWorkflowNotFound = errors.New("workflow not found")
	ErrIncompleteRoute  = errors.New("workflow needs project, tenant and path to run")
)

// DefaultTimeout applies when NewClient is given zero.
const DefaultTimeout = 10 * time.Second

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.Status)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// NewClient creates a client for the engine at baseURL. A non-empty token is
// sent as a bearer credential.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// do sends a request and returns the body of a 2xx response. Any other
// status becomes a *StatusError wrapped in kind.
func (c *Client) do(
	ctx context.Context, kind error, method, path string, payload any,
) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", kind, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kind, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kind, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kind, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %w", kind, &StatusError{
			Status:  resp.StatusCode,
			Message: errorMessage(data),
		})
	}
	return data, nil
}

// errorMessage pulls a human readable message out of an error body.
func errorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, key := range []string{"error", "message", "error.message"} {
			if r := gjson.GetBytes(body, key); r.Type == gjson.String && r.Str != "" {
				return r.Str
			}
		}
	}
	return strings.TrimSpace(string(body))
}

func segment(s string) string {
	return url.PathEscape(s)
}
