package completionclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/api/v1", APIKey: "key-1", Model: "gpt-3.5-turbo", Timeout: 5 * time.Second})
}

func TestCompleteSendsConversationAndReturnsReply(t *testing.T) {
	var got ChatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Python is a language."}}]}`))
	})

	reply, err := client.Complete(context.Background(), []Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "user", Content: "What is Python?"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Python is a language.", reply)
	assert.Equal(t, "gpt-3.5-turbo", got.Model)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, Message{Role: "user", Content: "What is Python?"}, got.Messages[2])
}

func TestCompleteRejectsInvalidJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})

	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "x"}})

	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestCompleteReturnsHTTPErrorOnNon200(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"No auth credentials found"}}`))
	})

	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "x"}})

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
	assert.Contains(t, httpErr.Body, "No auth credentials")
}

func TestCompleteReturnsMissingReply(t *testing.T) {
	for _, body := range []string{`{}`, `{"choices":[]}`, `{"choices":[{"message":{}}]}`} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})

		_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "x"}})

		assert.ErrorIs(t, err, ErrMissingReply, "body=%s", body)
	}
}

func TestCompleteAllowsEmptyContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":""}}]}`))
	})

	reply, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "x"}})

	require.NoError(t, err)
	assert.Equal(t, "", reply)
}
