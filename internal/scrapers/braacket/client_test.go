package braacket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"braacket-bot/internal/components/telemetry"
	"braacket-bot/internal/scrapers/braacket/braackettest"

	"github.com/stretchr/testify/require"
)

func testClient(tel telemetry.API, retries int) *Client {
	return NewClient(tel, ClientOptions{
		Timeout:   time.Second,
		Retries:   retries,
		RetryUnit: time.Millisecond,
	})
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("<html>ranking</html>"))
	}))
	defer srv.Close()

	body, err := testClient(&telemetry.Recorder{}, 3).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "<html>ranking</html>", string(body))
	require.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestFetchExhaustsRetries(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	rec := &telemetry.Recorder{}
	_, err := testClient(rec, 3).Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrNetwork)
	require.Equal(t, int32(4), atomic.LoadInt32(&attempts))
	require.True(t, rec.Has(telemetry.KindBroken, report_client_fetch))
}

func TestFetchBacksOffLinearly(t *testing.T) {
	var (
		mutex sync.Mutex
		seen  []time.Time
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mutex.Lock()
		seen = append(seen, time.Now())
		mutex.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	unit := 100 * time.Millisecond
	client := NewClient(&telemetry.Recorder{}, ClientOptions{
		Timeout:   time.Second,
		Retries:   3,
		RetryUnit: unit,
	})
	_, err := client.Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrNetwork)

	mutex.Lock()
	defer mutex.Unlock()
	require.Len(t, seen, 4)
	for i := 1; i < len(seen); i++ {
		require.GreaterOrEqual(t, seen[i].Sub(seen[i-1]), unit*time.Duration(i), "wait before attempt %d", i+1)
	}
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(&telemetry.Recorder{}, 3).Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrNetwork)
	require.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestFetchConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	target := srv.URL
	srv.Close()

	_, err := testClient(&telemetry.Recorder{}, 1).Fetch(context.Background(), target)
	require.ErrorIs(t, err, ErrNetwork)
}

func TestFetchDocument(t *testing.T) {
	srv := braackettest.NewServer(t, braackettest.NumberedLeague(450, 200))

	doc, _, err := testClient(&telemetry.Recorder{}, 0).FetchDocument(context.Background(), srv.RankingURL())
	require.NoError(t, err)

	p := DefaultParser()
	total, err := p.DiscoverTotalPlayerCount(doc)
	require.NoError(t, err)
	require.Equal(t, 450, total)

	row, err := p.ExtractPlayerAtCoordinate(doc, 0)
	require.NoError(t, err)
	require.Equal(t, "Player1", row.Name)
	require.Equal(t, srv.PlayerURL("Player1"), row.URL)

	next, ok := p.DiscoverNextPageURL(doc)
	require.True(t, ok)
	doc, _, err = testClient(&telemetry.Recorder{}, 0).FetchDocument(context.Background(), next)
	require.NoError(t, err)
	row, err = p.ExtractPlayerAtCoordinate(doc, 0)
	require.NoError(t, err)
	require.Equal(t, "Player201", row.Name)
}
