// v0
// internal/supabase/client.go
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/josecookai/clawdmetrics/internal/config"
)

// Transport names the kind of endpoint a request was sent to.
type Transport string

const (
	// TransportRPC is a database remote procedure under /rest/v1/rpc.
	TransportRPC Transport = "rpc"
	// TransportFunction is a deployed function under /functions/v1.
	TransportFunction Transport = "function"
	// TransportREST is a plain table read under /rest/v1.
	TransportREST Transport = "rest"
)

const (
	clientInfo   = "clawdmetrics-go/1"
	maxBodyBytes = 8 << 20
)

// RemoteError is a failed call to the backend. Message carries the text a
// human would see; the other fields are filled when the backend sent them.
type RemoteError struct {
	Transport Transport
	Status    int
	Code      string
	Message   string
	Details   string
	Hint      string
	Err       error
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return "supabase request failed"
	}
	return e.Message
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Client talks to one backend project with a single access key.
type Client struct {
	base string
	key  string
	h    *http.Client
}

// NewClient builds a client for the project at baseURL. A nil httpClient
// uses http.DefaultClient; no timeout is imposed beyond the request
// context.
func NewClient(baseURL, key string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		base: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		key:  strings.TrimSpace(key),
		h:    httpClient,
	}
}

// WithKey returns a copy of the client authenticating with key.
func (c *Client) WithKey(key string) *Client {
	cp := *c
	cp.key = strings.TrimSpace(key)
	return &cp
}

// BaseURL returns the project URL without a trailing slash.
func (c *Client) BaseURL() string { return c.base }

// RPC calls the database procedure name with params as its JSON body.
func (c *Client) RPC(ctx context.Context, name string, params any) (json.RawMessage, error) {
	return c.do(ctx, TransportRPC, http.MethodPost, "/rest/v1/rpc/"+url.PathEscape(name), nil, params)
}

// Invoke calls the deployed function name. A nil body sends no payload.
func (c *Client) Invoke(ctx context.Context, name string, body any) (json.RawMessage, error) {
	return c.do(ctx, TransportFunction, http.MethodPost, "/functions/v1/"+url.PathEscape(name), nil, body)
}

// Select reads rows from table with the given PostgREST query.
func (c *Client) Select(ctx context.Context, table string, query url.Values) (json.RawMessage, error) {
	return c.do(ctx, TransportREST, http.MethodGet, "/rest/v1/"+url.PathEscape(table), query, nil)
}

func (c *Client) do(ctx context.Context, transport Transport, method, path string, query url.Values, body any) (json.RawMessage, error) {
	if c.base == "" || c.key == "" {
		return nil, &RemoteError{
			Transport: transport,
			Message:   config.ErrMissingConnection.Error(),
			Err:       config.ErrMissingConnection,
		}
	}

	endpoint := c.base + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", transport, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, &RemoteError{Transport: transport, Message: err.Error(), Err: err}
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Client-Info", clientInfo)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.h.Do(req)
	if err != nil {
		return nil, networkError(transport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, networkError(transport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(transport, resp.StatusCode, data)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	return json.RawMessage(data), nil
}

func networkError(transport Transport, err error) *RemoteError {
	msg := "fetch failed"
	if transport == TransportFunction {
		msg = "Failed to send a request to the Edge Function"
	}
	return &RemoteError{
		Transport: transport,
		Message:   msg + ": " + err.Error(),
		Details:   err.Error(),
		Err:       err,
	}
}

// errorBody covers both the PostgREST error document and the
// {"error","details"} document returned by functions.
type errorBody struct {
	Code    json.RawMessage `json:"code"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details"`
	Hint    string          `json:"hint"`
}

func statusError(transport Transport, status int, data []byte) *RemoteError {
	re := &RemoteError{Transport: transport, Status: status}

	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil {
		re.Code = rawText(body.Code)
		re.Details = rawText(body.Details)
		re.Hint = body.Hint
		re.Message = firstNonEmpty(body.Message, body.Error, body.Hint)
	} else {
		re.Details = strings.TrimSpace(string(data))
	}

	if transport == TransportFunction {
		detail := firstNonEmpty(re.Message, re.Details)
		if status == http.StatusNotFound {
			re.Message = "Function not found (404)"
		} else {
			re.Message = "Edge Function returned a non-2xx status code"
		}
		re.Details = detail
		return re
	}

	if re.Message == "" {
		re.Message = firstNonEmpty(re.Details, http.StatusText(status))
	}
	return re
}

func rawText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	return string(trimmed)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
