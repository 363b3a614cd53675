package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vaayushanti/bagspec/common/logger"
)

func newTestClient(url string, retries int) *Client {
	return New(Config{
		APIKey:      "re_test",
		BaseURL:     url,
		SenderEmail: "specs@example.com",
		SenderName:  "Vaayushanti",
		Timeout:     2 * time.Second,
		MaxRetries:  retries,
		Backoff:     time.Millisecond,
	}, logger.Discard())
}

func TestClient_Send(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"msg_123"}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL, 0).Send(context.Background(), Message{
		To:      []string{"client@example.com"},
		Subject: "Filter Bag Specification Request",
		HTML:    "<p>hi</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, "msg_123", res.MessageID)
	assert.Equal(t, "Vaayushanti <specs@example.com>", got.From)
	assert.Equal(t, []string{"client@example.com"}, got.To)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"id":"msg_ok"}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL, 2).Send(context.Background(), Message{
		To: []string{"a@example.com"}, Subject: "s", HTML: "b",
	})
	require.NoError(t, err)
	assert.Equal(t, "msg_ok", res.MessageID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"invalid to"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 3).Send(context.Background(), Message{
		To: []string{"bad"}, Subject: "s", HTML: "b",
	})
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnprocessableEntity, httpErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_NotConfigured(t *testing.T) {
	c := New(Config{}, logger.Discard())
	assert.False(t, c.Enabled())

	_, err := c.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "s"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestConfig_StringHidesKey(t *testing.T) {
	cfg := Config{APIKey: "re_secret", SenderEmail: "s@example.com"}
	assert.NotContains(t, cfg.String(), "re_secret")
}
