package ranking

import (
	"context"
	"time"

	"braacket-bot/internal/pagestore"
)

// PageInfo describes a single page of the active ranking.
type PageInfo struct {
	Number    int
	URL       string
	Rows      int
	PageCount int
	Total     int
	FetchedAt time.Time
	Offline   bool
}

// InspectPage reads page `number` of the active ranking. With `offline` set, only the
// persisted copy of the page is read.
func (s *Service) InspectPage(ctx context.Context, number int, offline bool) (PageInfo, error) {
	src := s.Source()

	var (
		page pagestore.Page
		err  error
	)
	if offline {
		page, err = s.pages.LoadPersistedPage(ctx, src.URL, number)
	} else {
		page, err = s.pages.Page(ctx, src, number)
	}
	if err != nil {
		return PageInfo{}, err
	}

	rows, err := s.parser.ExtractRows(page.Doc)
	if err != nil {
		return PageInfo{}, err
	}
	info := PageInfo{
		Number:    number,
		URL:       page.URL,
		Rows:      len(rows),
		FetchedAt: page.FetchedAt,
		Offline:   page.Offline,
	}
	// both widgets are optional on the last page of small rankings
	info.PageCount, _ = s.parser.DiscoverPageCount(page.Doc)
	info.Total, _ = s.parser.DiscoverTotalPlayerCount(page.Doc)
	return info, nil
}
