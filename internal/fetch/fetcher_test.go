package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/msmolkin/nwsharvest/internal/series"
)

const bulletinHTML = `<html><body>
<div id="proddiff"></div>
<pre class="glossaryProduct">
CLIMATE REPORT
NATIONAL WEATHER SERVICE
...THE NEW YORK CENTRAL PARK CLIMATE SUMMARY FOR JULY 16 2024...
</pre>
</body></html>`

// countingServer serves the bulletin page, optionally failing the first
// failures requests per version.
type countingServer struct {
	mu       sync.Mutex
	requests map[string]int
	failures int
	noMarker bool
}

func (s *countingServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version := r.URL.Query().Get("version")
		s.mu.Lock()
		s.requests[version]++
		count := s.requests[version]
		s.mu.Unlock()

		if count <= s.failures {
			http.Error(w, "upstream hiccup", http.StatusInternalServerError)
			return
		}
		if s.noMarker {
			fmt.Fprint(w, "<html><body><div>no bulletin here</div></body></html>")
			return
		}
		fmt.Fprint(w, bulletinHTML)
	}
}

func (s *countingServer) count(version string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[version]
}

func newTestClient(t *testing.T, srv *httptest.Server, attempts int) *Client {
	t.Helper()
	s := series.Series{Name: "Test", Site: "OKX", IssuedBy: "NYC", Product: "CLI", BaseURL: srv.URL}
	return NewClient(Config{
		UserAgent: "nwsharvest-test",
		Timeout:   2 * time.Second,
		Attempts:  attempts,
		Backoff:   time.Millisecond,
	}, s, zap.NewNop())
}

func TestFetchSuccess(t *testing.T) {
	t.Parallel()

	backend := &countingServer{requests: map[string]int{}}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	client := newTestClient(t, srv, 3)
	out := client.Fetch(context.Background(), 4)

	require.NoError(t, out.Err)
	require.True(t, out.OK())
	require.Equal(t, 4, out.Version)
	require.Contains(t, out.Content, "CLIMATE REPORT")
	require.Contains(t, out.Content, "NEW YORK CENTRAL PARK")
	require.Equal(t, len(out.Content), out.Bytes)
	require.Greater(t, out.Elapsed, time.Duration(0))
	require.Equal(t, 1, out.Attempts)
	require.Equal(t, 1, backend.count("4"))
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	backend := &countingServer{requests: map[string]int{}, failures: 2}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	client := newTestClient(t, srv, 3)
	out := client.Fetch(context.Background(), 1)

	require.NoError(t, out.Err)
	require.Equal(t, 3, out.Attempts)
	require.Equal(t, 3, backend.count("1"))
}

func TestFetchRetryBudgetExhausted(t *testing.T) {
	t.Parallel()

	backend := &countingServer{requests: map[string]int{}, failures: 100}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	client := newTestClient(t, srv, 3)
	out := client.Fetch(context.Background(), 2)

	require.Error(t, out.Err)
	require.ErrorIs(t, out.Err, ErrNetwork)
	require.False(t, out.OK())
	// Exactly the configured budget, never more.
	require.Equal(t, 3, out.Attempts)
	require.Equal(t, 3, backend.count("2"))
}

func TestFetchBackoffSeparatesAttempts(t *testing.T) {
	t.Parallel()

	backend := &countingServer{requests: map[string]int{}, failures: 100}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	const backoff = 150 * time.Millisecond
	s := series.Series{Name: "Test", Site: "OKX", IssuedBy: "NYC", Product: "CLI", BaseURL: srv.URL}
	client := NewClient(Config{
		UserAgent: "nwsharvest-test",
		Timeout:   2 * time.Second,
		Attempts:  3,
		Backoff:   backoff,
	}, s, zap.NewNop())

	start := time.Now()
	out := client.Fetch(context.Background(), 3)
	elapsed := time.Since(start)

	require.ErrorIs(t, out.Err, ErrNetwork)
	require.Equal(t, 3, out.Attempts)
	require.Equal(t, 3, backend.count("3"))
	// Three attempts are separated by two full backoff pauses.
	require.GreaterOrEqual(t, elapsed, 2*backoff)
}

func TestFetchContentNotFoundIsNotRetried(t *testing.T) {
	t.Parallel()

	backend := &countingServer{requests: map[string]int{}, noMarker: true}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	client := newTestClient(t, srv, 3)
	out := client.Fetch(context.Background(), 5)

	require.Error(t, out.Err)
	require.ErrorIs(t, out.Err, ErrContentNotFound)
	require.NotErrorIs(t, out.Err, ErrNetwork)
	// A missing marker cannot be fixed by retrying.
	require.Equal(t, 1, out.Attempts)
	require.Equal(t, 1, backend.count("5"))
}

func TestFetchCanceledDuringBackoff(t *testing.T) {
	t.Parallel()

	backend := &countingServer{requests: map[string]int{}, failures: 100}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	s := series.Series{Name: "Test", Site: "OKX", IssuedBy: "NYC", Product: "CLI", BaseURL: srv.URL}
	client := NewClient(Config{
		UserAgent: "nwsharvest-test",
		Timeout:   2 * time.Second,
		Attempts:  3,
		Backoff:   10 * time.Second,
	}, s, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	out := client.Fetch(ctx, 1)

	require.Error(t, out.Err)
	require.ErrorIs(t, out.Err, context.Canceled)
	require.Less(t, time.Since(start), 5*time.Second, "cancellation must cut the backoff short")
}

func TestExtractContent(t *testing.T) {
	t.Parallel()

	content, err := extractContent([]byte(bulletinHTML))
	require.NoError(t, err)
	require.Contains(t, content, "CLIMATE SUMMARY")
	require.NotContains(t, content, "<pre")

	_, err = extractContent([]byte("<html><body><p>empty</p></body></html>"))
	require.ErrorIs(t, err, ErrContentNotFound)
}
