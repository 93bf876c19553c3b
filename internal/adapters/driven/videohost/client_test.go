package videohost

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtow/classtow-cli/internal/core/domain"
)

// sessionHost serves the launch/session handshake, completing the session
// after a configurable number of polls.
type sessionHost struct {
	mu         stdsync.Mutex
	launched   bool
	polls      int
	readyAfter int
	neverReady bool
}

func (h *sessionHost) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/lti/launch", func(w http.ResponseWriter, _ *http.Request) {
		h.mu.Lock()
		h.launched = true
		h.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/api/session", func(w http.ResponseWriter, _ *http.Request) {
		h.mu.Lock()
		h.polls++
		ready := !h.neverReady && h.polls >= h.readyAfter
		h.mu.Unlock()

		if !ready {
			fmt.Fprint(w, `{"user_id":"","token":""}`)
			return
		}
		fmt.Fprint(w, `{"user_id":"user-1","token":"token-1"}`)
	})
	return mux
}

func newTestClient(server *httptest.Server) *Client {
	c := New(server.URL)
	c.pollInterval = 5 * time.Millisecond
	c.timeout = 250 * time.Millisecond
	return c
}

func TestStartSession_CompletesAfterPolling(t *testing.T) {
	host := &sessionHost{readyAfter: 3}
	server := httptest.NewServer(host.handler())
	defer server.Close()

	c := newTestClient(server)
	userID, token, err := c.StartSession(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "user-1", userID)
	assert.Equal(t, "token-1", token)
	assert.True(t, host.launched, "the launch precedes polling")
}

func TestStartSession_TimeoutIsNoSession(t *testing.T) {
	host := &sessionHost{neverReady: true}
	server := httptest.NewServer(host.handler())
	defer server.Close()

	c := newTestClient(server)
	_, _, err := c.StartSession(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoSession)
}

func TestListVideos_CarriesToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/courses/1/videos", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		fmt.Fprint(w, `[{"media_id":"m-a","launch_id":"l-a","title":"Lecture 1",
			"url":"https://v/a","mime_type":"video/mp4","size":1024}]`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := New(server.URL)
	listings, err := c.ListVideos(context.Background(), "token-1", 1)
	require.NoError(t, err)

	require.Len(t, listings, 1)
	assert.Equal(t, "m-a", listings[0].MediaID)
	assert.Equal(t, int64(1024), listings[0].Size)
}
