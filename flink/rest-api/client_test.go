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

package restapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// newTestServer starts a mock JobManager and a client pointed at it
func newTestServer(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, opts...)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return client
}

// unreachableURL returns the address of a server that has already shut down
func unreachableURL(t *testing.T) string {
	t.Helper()

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	return url
}

type recordingLogger struct {
	debug []string
	warn  []string
}

func (l *recordingLogger) Debugf(format string, args ...interface{}) {
	l.debug = append(l.debug, format)
}

func (l *recordingLogger) Warnf(format string, args ...interface{}) {
	l.warn = append(l.warn, format)
}

func TestNewClient(t *testing.T) {
	client, err := NewClient("http://localhost:8081/")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if client.BaseURL() != "http://localhost:8081" {
		t.Errorf("expected baseURL to be http://localhost:8081, got %s", client.BaseURL())
	}

	if client.Version() != VersionAuto {
		t.Errorf("expected version to be auto, got %s", client.Version())
	}

	if client.httpClient.Timeout != DefaultTimeout {
		t.Errorf("expected default timeout %v, got %v", DefaultTimeout, client.httpClient.Timeout)
	}

	for _, invalid := range []string{"invalid-url", "ftp://localhost:8081", "http://", "://x"} {
		if _, err := NewClient(invalid); err == nil {
			t.Errorf("expected error for invalid URL %q, got nil", invalid)
		}
	}
}

func TestNewClientWithOptions(t *testing.T) {
	httpClient := &http.Client{Timeout: 10 * time.Second}
	log := &recordingLogger{}

	client, err := NewClient("http://localhost:8081",
		WithHTTPClient(httpClient),
		WithVersion(Version2_0Plus),
		WithTimeout(5*time.Second),
		WithSavepointPath("/savepoints"),
		WithLogger(log),
	)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if client.Version() != Version2_0Plus {
		t.Errorf("expected version to be 2.0+, got %s", client.Version())
	}

	if client.httpClient.Timeout != 5*time.Second {
		t.Errorf("expected timeout to be 5s, got %v", client.httpClient.Timeout)
	}

	if httpClient.Timeout != 10*time.Second {
		t.Errorf("caller's HTTP client timeout changed to %v", httpClient.Timeout)
	}

	if client.savepointPath != "/savepoints" {
		t.Errorf("expected savepoint path /savepoints, got %s", client.savepointPath)
	}

	if client.log != log {
		t.Error("expected logger to be attached")
	}
}

func TestWithTimeoutOptionOrder(t *testing.T) {
	tests := []struct {
		name string
		opts func(hc *http.Client) []Option
	}{
		{
			name: "timeout before http client",
			opts: func(hc *http.Client) []Option {
				return []Option{WithTimeout(5 * time.Second), WithHTTPClient(hc)}
			},
		},
		{
			name: "timeout after http client",
			opts: func(hc *http.Client) []Option {
				return []Option{WithHTTPClient(hc), WithTimeout(5 * time.Second)}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shared := &http.Client{}

			client, err := NewClient("http://localhost:8081", tt.opts(shared)...)
			if err != nil {
				t.Fatalf("NewClient failed: %v", err)
			}

			if client.httpClient.Timeout != 5*time.Second {
				t.Errorf("expected timeout to be 5s, got %v", client.httpClient.Timeout)
			}
			if shared.Timeout != 0 {
				t.Errorf("shared HTTP client timeout changed to %v", shared.Timeout)
			}
		})
	}
}

func TestCustomHTTPClientKeptWithoutTimeout(t *testing.T) {
	httpClient := &http.Client{Timeout: 3 * time.Second}

	client, err := NewClient("http://localhost:8081", WithHTTPClient(httpClient))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if client.httpClient != httpClient {
		t.Error("expected custom HTTP client to be used")
	}
}

func TestWithTracing(t *testing.T) {
	httpClient := &http.Client{Timeout: 7 * time.Second}

	client, err := NewClient("http://localhost:8081", WithHTTPClient(httpClient), WithTracing())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if _, ok := client.httpClient.Transport.(*otelhttp.Transport); !ok {
		t.Errorf("expected otelhttp transport, got %T", client.httpClient.Transport)
	}

	if client.httpClient.Timeout != 7*time.Second {
		t.Errorf("expected timeout to be preserved, got %v", client.httpClient.Timeout)
	}

	if httpClient.Transport != nil {
		t.Error("caller's HTTP client must not be modified")
	}
}

func TestRequestHeaders(t *testing.T) {
	log := &recordingLogger{}
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q, want application/json", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header")
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("client must not send credentials")
		}
		w.Write([]byte(`{"files": []}`))
	}, WithLogger(log))

	if _, err := client.ListJars(context.Background()); err != nil {
		t.Fatalf("ListJars failed: %v", err)
	}

	if len(log.debug) == 0 {
		t.Error("expected request to be logged at debug level")
	}
}

func TestResponseWithoutContentType(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		w.Write([]byte(`{"jid": "job-1", "state": "RUNNING"}`))
	})

	job, err := client.JobDetail(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("JobDetail failed: %v", err)
	}

	if job.State() != JobStatusRunning {
		t.Errorf("state = %s, want RUNNING", job.State())
	}
}

func TestRequestErrorCarriesStatus(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"errors": ["boom"]}`))
	})

	err := client.DeleteJar(context.Background(), "jar-1")

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected *RequestError, got %T: %v", err, err)
	}
	if reqErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", reqErr.StatusCode)
	}
	if reqErr.Method != http.MethodDelete || reqErr.Path != "/jars/jar-1" {
		t.Errorf("unexpected request in error: %s %s", reqErr.Method, reqErr.Path)
	}
	if reqErr.Body != `{"errors": ["boom"]}` {
		t.Errorf("body = %q", reqErr.Body)
	}
}

func TestContextCancellation(t *testing.T) {
	// Server that delays response
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(100 * time.Millisecond):
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	})

	// Create context with very short timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := client.ListJobs(ctx)
	if err == nil {
		t.Fatal("expected error due to context timeout, got nil")
	}

	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.StatusCode != 0 {
		t.Errorf("expected transport *RequestError, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded in chain, got %v", err)
	}
}
