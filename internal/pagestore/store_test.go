package pagestore

import (
	"context"
	"net/http"
	"testing"
	"time"

	"braacket-bot/internal/components/chrono"
	"braacket-bot/internal/components/telemetry"
	"braacket-bot/internal/scrapers/braacket"
	"braacket-bot/internal/scrapers/braacket/braackettest"
	"braacket-bot/pkg/migrations"

	"github.com/stretchr/testify/require"
)

func newTestStore(t testing.TB, opts Options) (*Store, *telemetry.Recorder) {
	db, err := migrations.OpenAndMigrateDB(Schema, ":memory:", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	rec := &telemetry.Recorder{}
	client := braacket.NewClient(rec, braacket.ClientOptions{
		Timeout:   time.Second,
		Retries:   -1,
		RetryUnit: time.Millisecond,
	})
	clock := chrono.NewFakeClock(time.Date(2024, 12, 1, 12, 0, 0, 0, time.UTC))
	return New(db, client, braacket.DefaultParser(), clock, rec, opts), rec
}

func TestPersistAndLoadPage(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, Options{})

	_, err := store.LoadPersistedPage(ctx, "https://braacket.com/league/X/ranking", 1)
	require.ErrorIs(t, err, ErrPageNotFound)

	page := Page{URL: "https://braacket.com/league/X/ranking", Raw: []byte("<html><body>first</body></html>")}
	require.NoError(t, store.PersistPage(ctx, page.URL, 1, page))

	page.Raw = []byte("<html><body>second</body></html>")
	require.NoError(t, store.PersistPage(ctx, page.URL, 1, page))

	loaded, err := store.LoadPersistedPage(ctx, page.URL, 1)
	require.NoError(t, err)
	require.True(t, loaded.Offline)
	require.Equal(t, 1, loaded.Number)
	require.Equal(t, "second", loaded.Doc.Find("body").Text())
	require.Equal(t, time.Date(2024, 12, 1, 12, 0, 0, 0, time.UTC), loaded.FetchedAt.UTC())
}

func TestPageFollowsNextLinks(t *testing.T) {
	ctx := context.Background()
	srv := braackettest.NewServer(t, braackettest.NumberedLeague(450, 200))
	store, _ := newTestStore(t, Options{})
	src := braacket.Source{URL: srv.RankingURL()}

	page, err := store.Page(ctx, src, 3)
	require.NoError(t, err)
	require.Equal(t, 3, page.Number)

	row, err := store.Parser().ExtractPlayerAtCoordinate(page.Doc, 0)
	require.NoError(t, err)
	require.Equal(t, "Player401", row.Name)

	for i := 1; i <= 3; i++ {
		require.Equal(t, 1, srv.PageHits(i), "page %d", i)
	}

	// served from memory
	_, err = store.Page(ctx, src, 2)
	require.NoError(t, err)
	_, err = store.Page(ctx, src, 3)
	require.NoError(t, err)
	require.Equal(t, 3, srv.Hits(braackettest.RankingPath))

	// every fetched page was persisted
	persisted, err := store.LoadPersistedPage(ctx, src.URL, 2)
	require.NoError(t, err)
	row, err = store.Parser().ExtractPlayerAtCoordinate(persisted.Doc, 0)
	require.NoError(t, err)
	require.Equal(t, "Player201", row.Name)
}

func TestPageNoMorePages(t *testing.T) {
	srv := braackettest.NewServer(t, braackettest.NumberedLeague(450, 200))
	store, _ := newTestStore(t, Options{})

	_, err := store.Page(context.Background(), braacket.Source{URL: srv.RankingURL()}, 4)
	require.ErrorIs(t, err, ErrNoMorePages)

	_, err = store.Page(context.Background(), braacket.Source{URL: srv.RankingURL()}, 0)
	require.ErrorIs(t, err, braacket.ErrInvalidRank)
}

func TestPageOfflineFallback(t *testing.T) {
	ctx := context.Background()
	srv := braackettest.NewServer(t, braackettest.NumberedLeague(10, 200))
	src := braacket.Source{URL: srv.RankingURL()}

	store, rec := newTestStore(t, Options{OfflineFallback: true})
	_, err := store.Page(ctx, src, 1)
	require.NoError(t, err)

	store.Purge()
	srv.Fail(braackettest.RankingPath, http.StatusBadGateway, 10)

	page, err := store.Page(ctx, src, 1)
	require.NoError(t, err)
	require.True(t, page.Offline)
	require.True(t, rec.Has(telemetry.KindWarning, report_store_fallback))
}

func TestPageWithoutFallback(t *testing.T) {
	ctx := context.Background()
	srv := braackettest.NewServer(t, braackettest.NumberedLeague(10, 200))
	src := braacket.Source{URL: srv.RankingURL()}

	store, _ := newTestStore(t, Options{})
	_, err := store.Page(ctx, src, 1)
	require.NoError(t, err)

	store.Purge()
	srv.Fail(braackettest.RankingPath, http.StatusBadGateway, 10)

	_, err = store.Page(ctx, src, 1)
	require.ErrorIs(t, err, braacket.ErrNetwork)
}
