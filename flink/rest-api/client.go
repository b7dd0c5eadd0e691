// Copyright 2025 Andrei Grigoriu
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package restapi is a client for the Flink JobManager monitoring REST API.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// DefaultTimeout bounds every request unless WithTimeout or WithHTTPClient says otherwise
	DefaultTimeout = 30 * time.Second

	// DefaultParallelism is used by RunJar when the request leaves it unset
	DefaultParallelism = 1

	// maxErrorBody caps how much of an error response is kept in RequestError
	maxErrorBody = 4 << 10
)

// Logger receives the client's diagnostic output. *logger.Logger satisfies it.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// Client is the Flink REST API client.
// It holds no mutable state after NewClient returns.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	version       Version
	savepointPath string
	timeout       time.Duration
	tracing       bool
	log           Logger
}

// NewClient creates a new Flink REST API client for the JobManager at baseURL
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: expected http(s)://host[:port]", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		version: VersionAuto,
	}

	for _, opt := range opts {
		opt(c)
	}

	// The caller's *http.Client is never modified
	if c.timeout > 0 || c.tracing {
		hc := *c.httpClient
		if c.timeout > 0 {
			hc.Timeout = c.timeout
		}
		if c.tracing {
			hc.Transport = otelhttp.NewTransport(hc.Transport)
		}
		c.httpClient = &hc
	}

	return c, nil
}

// Option is a functional option for configuring the Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the request timeout. It applies whatever the option
// order, including to a client given with WithHTTPClient.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithVersion pins the Flink version range instead of assuming the 1.x API
func WithVersion(version Version) Option {
	return func(c *Client) {
		c.version = version
	}
}

// WithSavepointPath sets the savepoint RunJar restores from when the request names none
func WithSavepointPath(path string) Option {
	return func(c *Client) {
		c.savepointPath = path
	}
}

// WithLogger attaches a logger for request tracing and swallowed failures
func WithLogger(log Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithTracing wraps the transport with OpenTelemetry HTTP instrumentation
func WithTracing() Option {
	return func(c *Client) {
		c.tracing = true
	}
}

// BaseURL returns the JobManager URL the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Version returns the Flink version range the client is pinned to
func (c *Client) Version() Version {
	return c.version
}

// Close releases idle connections held by the underlying transport
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// doRequest executes an HTTP request and turns transport failures and
// HTTP error statuses into *RequestError
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &RequestError{Method: method, Path: path, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	c.debugf("%s %s (request %s)", method, path, requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RequestError{Method: method, Path: path, Err: err}
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &RequestError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(bodyBytes)),
		}
	}

	return resp, nil
}

// unmarshalResponse reads and unmarshals a JSON response.
// The body is treated as JSON whatever Content-Type the server declared.
func unmarshalResponse(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// discardResponse drains the body so the connection can be reused
func discardResponse(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
}

func (c *Client) debugf(format string, args ...interface{}) {
	if c.log != nil {
		c.log.Debugf(format, args...)
	}
}

func (c *Client) warnf(format string, args ...interface{}) {
	if c.log != nil {
		c.log.Warnf(format, args...)
	}
}

// escape makes an identifier safe to use as a single path segment
func escape(id string) string {
	return url.PathEscape(id)
}

// unmarshalJSON decodes raw the way unmarshalResponse decodes a body
func unmarshalJSON(raw []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}
