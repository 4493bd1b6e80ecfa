package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cabinethttp "github.com/kaleido-biosciences/cabinet-client/internal/http"
	"github.com/kaleido-biosciences/cabinet-client/internal/retry"
	"github.com/kaleido-biosciences/cabinet-client/pkg/cabinet"
)

// MockTokenProvider for testing.
type MockTokenProvider struct {
	token string
	err   error
	calls atomic.Int32
}

func (m *MockTokenProvider) GetToken(_ context.Context) (string, error) {
	m.calls.Add(1)

	return m.token, m.err
}

// MockLogger for testing.
type MockLogger struct {
	mu   sync.Mutex
	logs []map[string]interface{}
}

func (l *MockLogger) record(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logs = append(l.logs, map[string]interface{}{"level": level, "msg": msg, "fields": fields})
}

func (l *MockLogger) Debug(msg string, fields map[string]interface{}) { l.record("debug", msg, fields) }
func (l *MockLogger) Info(msg string, fields map[string]interface{}) { l.record("info", msg, fields) }
func (l *MockLogger) Warn(msg string, fields map[string]interface{}) { l.record("warn", msg, fields) }
func (l *MockLogger) Error(msg string, fields map[string]interface{}) { l.record("error", msg, fields) }

func (l *MockLogger) messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	msgs := make([]string, 0, len(l.logs))
	for _, entry := range l.logs {
		msgs = append(msgs, entry["msg"].(string)) //nolint:forcetypeassert // set by record
	}

	return msgs
}

func fastPolicy() retry.Policy {
	policy := retry.DefaultPolicy()
	policy.Interval = time.Millisecond

	return policy
}

// statusSequence replies with each status in turn, repeating the last one.
func statusSequence(calls *atomic.Int32, statuses ...int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		n := int(calls.Add(1))
		if n > len(statuses) {
			n = len(statuses)
		}

		w.WriteHeader(statuses[n-1])
		_, _ = w.Write([]byte(`{"id":1}`))
	}
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Do(t *testing.T) {
	t.Parallel()

	t.Run("successful request", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/api/plate-maps/1", request.URL.Path)
			assert.Equal(t, "GET", request.Method)
			assert.Equal(t, "Bearer test-token", request.Header.Get("Authorization"))
			assert.Equal(t, "application/json", request.Header.Get("Accept"))
			assert.Equal(t, cabinethttp.DefaultUserAgent, request.Header.Get("User-Agent"))

			_ = json.NewEncoder(writer).Encode(map[string]interface{}{"id": 1, "name": "baa"})
		}))
		defer server.Close()

		client := cabinethttp.NewClient(server.URL+"/api", &MockTokenProvider{token: "test-token"})
		assert.Equal(t, server.URL+"/api/", client.BaseURL())

		resp, err := client.Do(context.Background(), &cabinethttp.Request{Method: "GET", Path: "plate-maps/1"})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, 1, resp.Attempts)

		var result map[string]interface{}
		require.NoError(t, json.Unmarshal(resp.Body, &result))
		assert.Equal(t, "baa", result["name"])
	})

	t.Run("absolute URL with query string", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "name.equals=baa&source.equals=baz%20%2B%20boz&page=0&size=2147483647", request.URL.RawQuery)
			assert.Equal(t, "baz + boz", request.URL.Query().Get("source.equals"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := cabinethttp.NewClient(server.URL+"/api/", nil)
		target := server.URL + "/api/plate-maps?name.equals=baa&source.equals=baz%20%2B%20boz&page=0&size=2147483647"

		resp, err := client.Get(context.Background(), target)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("request with body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "POST", request.Method)
			assert.Equal(t, "application/json", request.Header.Get("Content-Type"))

			var body map[string]string

			_ = json.NewDecoder(request.Body).Decode(&body)
			assert.Equal(t, "G123BBB", body["activityName"])

			writer.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		client := cabinethttp.NewClient(server.URL+"/api/", nil)

		resp, err := client.Post(context.Background(), "plate-maps", map[string]string{"activityName": "G123BBB"})
		require.NoError(t, err)
		assert.Equal(t, 201, resp.StatusCode)
	})

	t.Run("error response", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
			writer.Header().Set("Content-Type", "application/problem+json")
			writer.WriteHeader(http.StatusNotFound)
			_, _ = writer.Write([]byte(`{"title":"Not Found","status":404,"detail":"plate map 9 not found"}`))
		}))
		defer server.Close()

		client := cabinethttp.NewClient(server.URL+"/api/", nil)

		resp, err := client.Get(context.Background(), "plate-maps/9")
		require.Error(t, err)
		assert.Equal(t, 404, resp.StatusCode)
		assert.True(t, cabinet.IsNotFound(err))

		httpErr := &cabinet.HTTPError{}
		require.True(t, errors.As(err, &httpErr))
		require.NotNil(t, httpErr.Problem)
		assert.Equal(t, "plate map 9 not found", httpErr.Problem.Detail)
	})

	t.Run("custom headers", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "custom-value", request.Header.Get("X-Custom-Header"))
			assert.Equal(t, "cabinet-cli", request.Header.Get("User-Agent"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := cabinethttp.NewClient(server.URL+"/api/", nil, cabinethttp.WithUserAgent("cabinet-cli"))

		resp, err := client.Do(context.Background(), &cabinethttp.Request{
			Method:  "GET",
			Path:    "plate-maps",
			Headers: map[string]string{"X-Custom-Header": "custom-value"},
		})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("with debug logging", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		logger := &MockLogger{}
		client := cabinethttp.NewClient(server.URL+"/api/", nil, cabinethttp.WithLogger(logger), cabinethttp.WithDebug(true))

		_, err := client.Get(context.Background(), "plate-maps")
		require.NoError(t, err)

		assert.Contains(t, logger.messages(), "HTTP Request")
		assert.Contains(t, logger.messages(), "HTTP Response")
	})

	t.Run("no debug logging by default", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		logger := &MockLogger{}
		client := cabinethttp.NewClient(server.URL+"/api/", nil, cabinethttp.WithLogger(logger))

		_, err := client.Get(context.Background(), "plate-maps")
		require.NoError(t, err)
		assert.Empty(t, logger.messages())
	})
}

func TestClient_Methods(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		fn     func(*cabinethttp.Client, context.Context) (*cabinethttp.Response, error)
	}{
		{
			name:   "GET",
			method: "GET",
			fn: func(c *cabinethttp.Client, ctx context.Context) (*cabinethttp.Response, error) {
				return c.Get(ctx, "test")
			},
		},
		{
			name:   "POST",
			method: "POST",
			fn: func(c *cabinethttp.Client, ctx context.Context) (*cabinethttp.Response, error) {
				return c.Post(ctx, "test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "PUT",
			method: "PUT",
			fn: func(c *cabinethttp.Client, ctx context.Context) (*cabinethttp.Response, error) {
				return c.Put(ctx, "test", []byte(`{"key":"value"}`))
			},
		},
		{
			name:   "DELETE",
			method: "DELETE",
			fn: func(c *cabinethttp.Client, ctx context.Context) (*cabinethttp.Response, error) {
				return c.Delete(ctx, "/test")
			},
		},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				assert.Equal(t, testCase.method, request.Method)
				assert.Equal(t, "/api/test", request.URL.Path)
				writer.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			client := cabinethttp.NewClient(server.URL+"/api/", nil)
			resp, err := testCase.fn(client, context.Background())
			require.NoError(t, err)
			assert.Equal(t, 200, resp.StatusCode)
		})
	}
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_RetryLogic(t *testing.T) {
	t.Parallel()

	t.Run("retries a 502 once then succeeds", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32

		server := httptest.NewServer(statusSequence(&calls, 502, 200))
		defer server.Close()

		client := cabinethttp.NewClient(server.URL+"/api/", nil, cabinethttp.WithRetryPolicy(fastPolicy()))

		resp, err := client.Get(context.Background(), "plate-maps/1")
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, 2, resp.Attempts)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32

		server := httptest.NewServer(statusSequence(&calls, 502, 504, 502))
		defer server.Close()

		logger := &MockLogger{}
		client := cabinethttp.NewClient(server.URL+"/api/", nil,
			cabinethttp.WithRetryPolicy(fastPolicy()),
			cabinethttp.WithLogger(logger))

		resp, err := client.Get(context.Background(), "plate-maps/1")
		require.Error(t, err)
		assert.True(t, cabinet.IsRetriesExhausted(err))
		assert.False(t, cabinet.IsNotFound(err))
		assert.Equal(t, int32(3), calls.Load())

		exhausted := &cabinet.RetriesExhaustedError{}
		require.True(t, errors.As(err, &exhausted))
		assert.Equal(t, 3, exhausted.Attempts)
		assert.Equal(t, 502, exhausted.StatusCode)
		assert.Equal(t, 502, resp.StatusCode)

		assert.Contains(t, logger.messages(), "Retrying request")
		assert.Contains(t, logger.messages(), "Retries exhausted")
	})

	t.Run("does not retry 500", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32

		server := httptest.NewServer(statusSequence(&calls, 500, 200))
		defer server.Close()

		client := cabinethttp.NewClient(server.URL+"/api/", nil, cabinethttp.WithRetryPolicy(fastPolicy()))

		resp, err := client.Get(context.Background(), "plate-maps/1")
		require.Error(t, err)
		assert.False(t, cabinet.IsRetriesExhausted(err))
		assert.Equal(t, 500, cabinet.StatusCode(err))
		assert.Equal(t, 500, resp.StatusCode)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("unfollowed redirect is an error", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32

		server := httptest.NewServer(statusSequence(&calls, http.StatusNotModified))
		defer server.Close()

		client := cabinethttp.NewClient(server.URL+"/api/", nil, cabinethttp.WithRetryPolicy(fastPolicy()))

		resp, err := client.Get(context.Background(), "plate-maps/1")
		require.Error(t, err)
		assert.Equal(t, http.StatusNotModified, cabinet.StatusCode(err))
		assert.Equal(t, http.StatusNotModified, resp.StatusCode)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32

		server := httptest.NewServer(statusSequence(&calls, 400))
		defer server.Close()

		client := cabinethttp.NewClient(server.URL+"/api/", nil, cabinethttp.WithRetryPolicy(fastPolicy()))

		resp, err := client.Get(context.Background(), "plate-maps")
		require.Error(t, err)
		assert.Equal(t, 400, resp.StatusCode)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("replays the body on every attempt", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			var body map[string]string
			assert.NoError(t, json.NewDecoder(request.Body).Decode(&body))
			assert.Equal(t, "G123BBB", body["activityName"])

			if calls.Add(1) < 3 {
				writer.WriteHeader(http.StatusGatewayTimeout)

				return
			}

			writer.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		client := cabinethttp.NewClient(server.URL+"/api/", nil, cabinethttp.WithRetryPolicy(fastPolicy()))

		resp, err := client.Post(context.Background(), "plate-maps", map[string]string{"activityName": "G123BBB"})
		require.NoError(t, err)
		assert.Equal(t, 201, resp.StatusCode)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("single attempt policy", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32

		server := httptest.NewServer(statusSequence(&calls, 502))
		defer server.Close()

		policy := fastPolicy()
		policy.MaxAttempts = 1

		client := cabinethttp.NewClient(server.URL+"/api/", nil, cabinethttp.WithRetryPolicy(policy))

		_, err := client.Get(context.Background(), "plate-maps")
		require.True(t, cabinet.IsRetriesExhausted(err))
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("token is fetched for every attempt", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32

		server := httptest.NewServer(statusSequence(&calls, 502, 200))
		defer server.Close()

		tokens := &MockTokenProvider{token: "test-token"}
		client := cabinethttp.NewClient(server.URL+"/api/", tokens, cabinethttp.WithRetryPolicy(fastPolicy()))

		_, err := client.Get(context.Background(), "plate-maps")
		require.NoError(t, err)
		assert.Equal(t, int32(2), tokens.calls.Load())
	})

	t.Run("cancelled context stops waiting", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32

		server := httptest.NewServer(statusSequence(&calls, 502))
		defer server.Close()

		policy := retry.DefaultPolicy()
		policy.Interval = time.Hour

		client := cabinethttp.NewClient(server.URL+"/api/", nil, cabinethttp.WithRetryPolicy(policy))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := client.Get(ctx, "plate-maps")
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestClient_AuthenticationFailureAborts(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := httptest.NewServer(statusSequence(&calls, 200))
	defer server.Close()

	tokens := &MockTokenProvider{err: &cabinet.AuthenticationError{StatusCode: 401, Reason: "Bad credentials"}}
	client := cabinethttp.NewClient(server.URL+"/api/", tokens, cabinethttp.WithRetryPolicy(fastPolicy()))

	resp, err := client.Get(context.Background(), "plate-maps/1")
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.True(t, cabinet.IsAuthenticationFailure(err))
	assert.Equal(t, int32(1), tokens.calls.Load())
	assert.Equal(t, int32(0), calls.Load(), "no request may reach the server")
}

func TestClient_ConnectionErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL + "/api/"
	server.Close()

	tokens := &MockTokenProvider{token: "test-token"}
	client := cabinethttp.NewClient(baseURL, tokens, cabinethttp.WithRetryPolicy(fastPolicy()))

	resp, err := client.Get(context.Background(), "plate-maps")
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.False(t, cabinet.IsRetriesExhausted(err))
	assert.Equal(t, int32(1), tokens.calls.Load())
}
