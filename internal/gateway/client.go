// Package gateway is the typed request/response boundary to the habit
// backend. It attaches the bearer credential, maps HTTP failures to typed
// errors and keeps no state of its own. It never retries.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/joescharf/eyelife/internal/credential"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:8000/api"

// ErrSessionExpired is returned on a 401 response. The stored credential has
// already been cleared; the operation must not be retried.
var ErrSessionExpired = errors.New("session expired, log in again")

const (
	// fallback when the error body cannot be parsed
	unknownErrorMessage = "Unknown error"
	// fallback when the body parses but has no detail
	requestFailedMessage = "Request failed"
)

// RequestFailedError is a non-success response from the backend.
type RequestFailedError struct {
	StatusCode int
	Message    string
}

func (e *RequestFailedError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.StatusCode)
	}
	return e.Message
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var rf *RequestFailedError
	return errors.As(err, &rf) && rf.StatusCode == http.StatusNotFound
}

// Client talks to the backend REST API.
type Client struct {
	baseURL string
	client  *http.Client
	creds   credential.Store

	// OnSessionExpired, when set, runs after a 401 has cleared the
	// credential (the "send the user to login" side effect).
	OnSessionExpired func()
}

// New creates a Client for baseURL using http.DefaultClient.
// creds may be nil, in which case no Authorization header is sent.
func New(baseURL string, creds credential.Store) *Client {
	return NewWithClient(baseURL, nil, creds)
}

// NewWithClient creates a Client with a caller-supplied *http.Client.
func NewWithClient(baseURL string, client *http.Client, creds credential.Store) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		creds:   creds,
	}
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// do sends one request and decodes a successful JSON response into out
// (which may be nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token := c.token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.expireSession(ctx)
		return ErrSessionExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RequestFailedError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(payload),
		}
	}

	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) token(ctx context.Context) string {
	if c.creds == nil {
		return ""
	}
	token, err := c.creds.Get(ctx)
	if err != nil {
		if !errors.Is(err, credential.ErrNotFound) {
			slog.Debug("read credential", "error", err)
		}
		return ""
	}
	return token
}

func (c *Client) expireSession(ctx context.Context) {
	if c.creds != nil {
		if err := c.creds.Clear(ctx); err != nil {
			slog.Warn("clear expired credential", "error", err)
		}
	}
	if c.OnSessionExpired != nil {
		c.OnSessionExpired()
	}
}

// errorMessage extracts the backend's "detail" from an error body.
func errorMessage(payload []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return unknownErrorMessage
	}
	if len(body.Detail) == 0 || string(body.Detail) == "null" {
		return requestFailedMessage
	}

	var detail string
	if err := json.Unmarshal(body.Detail, &detail); err == nil {
		if detail == "" {
			return requestFailedMessage
		}
		return detail
	}

	// Validation failures carry a list of {loc, msg, type}.
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(body.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return requestFailedMessage
}
