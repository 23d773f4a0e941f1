package telemetry

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	rec := &Recorder{}
	scoped := NewScopedAPI("braacket_scraper", rec)

	scoped.ReportBroken("client.fetch-page", "boom")
	scoped.ReportWarning("traversal.next-page")
	scoped.ReportCount("cache.entries", 12)

	require.True(t, rec.Has(KindBroken, "client.fetch-page"))
	require.True(t, rec.Has(KindWarning, "traversal.next-page"))
	require.False(t, rec.Has(KindWarning, "client.fetch-page"))

	counts := rec.Reports(KindCount)
	require.Len(t, counts, 1)
	require.Equal(t, "braacket_scraper: cache.entries", counts[0].ID)
	require.Equal(t, int64(12), counts[0].Count)
}

func TestInstrumentRestyDump(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "dump")
	dump, err := NewFilesystemDump(dir)
	require.NoError(t, err)

	rec := &Recorder{}
	client := resty.New()
	InstrumentResty(client, rec, dump)

	res, err := client.R().Get(srv.URL)
	require.NoError(t, err)
	require.Equal(t, 200, res.StatusCode())

	contents, err := os.ReadFile(filepath.Join(dir, "1.txt"))
	require.NoError(t, err)
	require.Contains(t, string(contents), "<html>ok</html>")
	require.NotEmpty(t, rec.Reports(KindDebug))
}
