package gemini

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/agro-analytics-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAPIKey        = "test-api-key"
	testModel         = "gemini-2.5-flash"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func testClient(t *testing.T, baseURL string, timeout time.Duration) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), Options{
		APIKey:  testAPIKey,
		Model:   testModel,
		Timeout: timeout,
		BaseURL: baseURL,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), testMetrics())
	require.NoError(t, err)
	return c
}

// requestBody mirrors the generateContent payload fields the client sets.
type requestBody struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
}

func TestClient_GenerateText_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/"+testModel+":generateContent", r.URL.Path)
		assert.Equal(t, testAPIKey, r.Header.Get("x-goog-api-key"))

		var req requestBody
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if assert.Len(t, req.Contents, 1) && assert.Len(t, req.Contents[0].Parts, 1) {
			assert.Equal(t, "Summarize the week.", req.Contents[0].Parts[0].Text)
		}

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{
			"candidates": [{
				"content": {"role": "model", "parts": [{"text": "First paragraph. "}, {"text": "Second paragraph.\n"}]},
				"finishReason": "STOP"
			}]
		}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 5*time.Second)
	text, err := c.GenerateText(context.Background(), "Summarize the week.")

	require.NoError(t, err)
	assert.Equal(t, "First paragraph. Second paragraph.", text)
	assert.Equal(t, 1, testutil.CollectAndCount(c.metrics.NarrativeAPIDuration))
}

func TestClient_GenerateText_Blocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"candidates": [], "promptFeedback": {"blockReason": "SAFETY"}}`))
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL, 5*time.Second).GenerateText(context.Background(), "prompt")

	require.ErrorIs(t, err, ErrEmptyCompletion)
	assert.Contains(t, err.Error(), "SAFETY")
}

func TestClient_GenerateText_NoTextParts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"candidates": [{"content": {"role": "model", "parts": []}, "finishReason": "MAX_TOKENS"}]}`))
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL, 5*time.Second).GenerateText(context.Background(), "prompt")

	require.ErrorIs(t, err, ErrEmptyCompletion)
	assert.Contains(t, err.Error(), "MAX_TOKENS")
}

func TestClient_GenerateText_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL, 5*time.Second).GenerateText(context.Background(), "prompt")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate content")
	assert.Contains(t, err.Error(), "Quota exceeded")
}

func TestClient_GenerateText_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL, 5*time.Second).GenerateText(context.Background(), "prompt")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyCompletion)
}

func TestClient_GenerateText_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL, 50*time.Millisecond).GenerateText(context.Background(), "prompt")
	require.Error(t, err)
}

func TestNewClient(t *testing.T) {
	c, err := NewClient(context.Background(), Options{APIKey: testAPIKey, Model: testModel, Timeout: 30 * time.Second},
		slog.Default(), testMetrics())
	require.NoError(t, err)
	assert.Equal(t, testModel, c.model)
	assert.NotNil(t, c.genai)
}
