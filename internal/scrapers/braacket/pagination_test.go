package braacket

import (
	"math/rand"
	"os"
	"testing"

	"braacket-bot/internal/scrapers/braacket/braackettest"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func loadTestdata(t testing.TB, name, pageUrl string) *goquery.Document {
	raw, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	doc, err := ParseDocument(raw, pageUrl)
	require.NoError(t, err)
	return doc
}

func TestResolveCoordinate(t *testing.T) {
	testCases := []struct {
		rank     int
		pageSize int
		expected Coordinate
	}{
		{rank: 1, pageSize: 200, expected: Coordinate{Page: 1, Row: 0}},
		{rank: 200, pageSize: 200, expected: Coordinate{Page: 1, Row: 199}},
		{rank: 201, pageSize: 200, expected: Coordinate{Page: 2, Row: 0}},
		{rank: 437, pageSize: 200, expected: Coordinate{Page: 3, Row: 36}},
		{rank: 7, pageSize: 3, expected: Coordinate{Page: 3, Row: 0}},
		{rank: 1, pageSize: 1, expected: Coordinate{Page: 1, Row: 0}},
	}
	for _, test := range testCases {
		coord, err := ResolveCoordinate(test.rank, test.pageSize)
		require.NoError(t, err)
		require.Equal(t, test.expected, coord, "rank %d", test.rank)
	}
}

func TestResolveCoordinateInvalid(t *testing.T) {
	for _, rank := range []int{0, -1, -200} {
		_, err := ResolveCoordinate(rank, 200)
		require.ErrorIs(t, err, ErrInvalidRank)
	}
	_, err := ResolveCoordinate(1, 0)
	require.ErrorIs(t, err, ErrInvalidRank)
}

func TestResolveCoordinateRoundTrip(t *testing.T) {
	rndm := rand.New(rand.NewSource(42))
	for i := 0; i < 5000; i++ {
		rank := rndm.Intn(100_000) + 1
		pageSize := 200
		if i%2 == 1 {
			pageSize = rndm.Intn(500) + 1
		}

		coord, err := ResolveCoordinate(rank, pageSize)
		require.NoError(t, err)
		require.GreaterOrEqual(t, coord.Row, 0)
		require.Less(t, coord.Row, pageSize)
		require.Equal(t, rank, RankOf(coord, pageSize))
	}
}

func TestParseTotalPlayerCount(t *testing.T) {
	total, err := ParseTotalPlayerCount("Page 1 / 3 — showing 1-200 of 437")
	require.NoError(t, err)
	require.Equal(t, 437, total)

	total, err = ParseTotalPlayerCount("437 players")
	require.NoError(t, err)
	require.Equal(t, 437, total)

	_, err = ParseTotalPlayerCount("no players yet")
	require.ErrorIs(t, err, ErrParse)
}

func TestDiscoverPagination(t *testing.T) {
	p := DefaultParser()
	doc := loadTestdata(t, "ranking_page.html", "https://braacket.com/league/DFWSMASH2/ranking/B96401A8?rows=200")

	next, ok := p.DiscoverNextPageURL(doc)
	require.True(t, ok)
	require.Equal(t, "https://braacket.com/league/DFWSMASH2/ranking/B96401A8?rows=200&page=2", next)

	total, err := p.DiscoverTotalPlayerCount(doc)
	require.NoError(t, err)
	require.Equal(t, 437, total)

	pages, err := p.DiscoverPageCount(doc)
	require.NoError(t, err)
	require.Equal(t, 3, pages)
}

func TestDiscoverNextPageURLLastPage(t *testing.T) {
	p := DefaultParser()

	last := braackettest.RankingPage{
		Players:   []braackettest.Player{{Name: "Last", Href: "/league/TEST/player/last"}},
		Page:      3,
		PageCount: 3,
		FirstRank: 401,
		Total:     401,
		PrevHref:  "/league/TEST/ranking?page=2",
	}
	doc, err := ParseDocument([]byte(last.HTML()), "https://braacket.com/league/TEST/ranking?page=3")
	require.NoError(t, err)

	_, ok := p.DiscoverNextPageURL(doc)
	require.False(t, ok)

	// a page without any pagination widget is a terminal page, not an error
	doc, err = ParseDocument([]byte("<html><body><section></section></body></html>"), "")
	require.NoError(t, err)
	_, ok = p.DiscoverNextPageURL(doc)
	require.False(t, ok)

	_, err = p.DiscoverTotalPlayerCount(doc)
	require.ErrorIs(t, err, ErrParse)
	_, err = p.DiscoverPageCount(doc)
	require.ErrorIs(t, err, ErrParse)
}
