package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client wraps calls to the interview backend
type Client struct {
	baseURL    string
	apiKey     string
	token      string
	httpClient *http.Client
}

// NewClient creates a client. apiKey is only needed for admin calls.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// WithToken returns a copy of the client that sends token as a bearer credential
func (c *Client) WithToken(token string) *Client {
	out := *c
	out.token = token
	return &out
}

// WithHTTPClient returns a copy of the client using httpClient
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	out := *c
	out.httpClient = httpClient
	return &out
}

// Error is a non-2xx backend reply
type Error struct {
	Code    int
	Message string
	Detail  any
}

func (e *Error) Error() string {
	if e.Detail != nil {
		return fmt.Sprintf("[BACKEND]: %d %s: %v", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("[BACKEND]: %d %s", e.Code, e.Message)
}

// Request is a single backend call being assembled
type Request struct {
	client  *Client
	ctx     context.Context
	method  string
	path    string
	in      any
	out     any
	headers http.Header
}

// NewRequest starts a JSON request. in and out may be nil.
func (c *Client) NewRequest(ctx context.Context, method, path string, in, out any) *Request {
	return &Request{
		client:  c,
		ctx:     ctx,
		method:  method,
		path:    path,
		in:      in,
		out:     out,
		headers: http.Header{},
	}
}

// WithApiKey sets the X-API-KEY header
func (r *Request) WithApiKey(key string) *Request {
	if key != "" {
		r.headers.Set("X-API-KEY", key)
	}
	return r
}

// WithBearer sets a bearer Authorization header
func (r *Request) WithBearer(token string) *Request {
	if token != "" {
		r.headers.Set("Authorization", "Bearer "+token)
	}
	return r
}

// doJSON performs the request and decodes the reply into out
func (r *Request) doJSON() error {
	// Create request body if input is provided
	var body io.Reader
	if r.in != nil {
		b, err := json.Marshal(r.in)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(b)
	}

	req, err := http.NewRequestWithContext(r.ctx, r.method, r.client.baseURL+r.path, body)
	if err != nil {
		return err
	}
	req.Header = r.headers
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Prefer the envelope message when the backend sent one
		var envelope ApiResponse[any]
		if json.Unmarshal(b, &envelope) == nil && envelope.Message != "" {
			return &Error{Code: resp.StatusCode, Message: envelope.Message, Detail: envelope.Error}
		}
		return &Error{Code: resp.StatusCode, Message: string(b)}
	}

	if r.out == nil {
		return nil
	}
	return json.Unmarshal(b, r.out)
}
