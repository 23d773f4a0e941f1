package ranking

import (
	"context"
	"errors"
	"fmt"

	"braacket-bot/internal/pagestore"
	"braacket-bot/internal/rankcache"
	"braacket-bot/internal/scrapers/braacket"
)

var _ rankcache.SourceFetcher = (*Service)(nil)

// TotalPlayers reads the total player count from the first page of the ranking.
func (s *Service) TotalPlayers(ctx context.Context, src braacket.Source) (int, error) {
	page, err := s.pages.Page(ctx, src, 1)
	if err != nil {
		return 0, err
	}
	return s.parser.DiscoverTotalPlayerCount(page.Doc)
}

// FetchPlayer scrapes the player at a 1-based rank, it never reads the cache.
func (s *Service) FetchPlayer(ctx context.Context, src braacket.Source, rank int) (rankcache.Entry, error) {
	coord, err := braacket.ResolveCoordinate(rank, s.opts.PageSize)
	if err != nil {
		return rankcache.Entry{}, err
	}
	page, err := s.pages.Page(ctx, src, coord.Page)
	if errors.Is(err, pagestore.ErrNoMorePages) {
		return rankcache.Entry{}, fmt.Errorf("%w: %w", rankcache.ErrRankingExhausted, err)
	}
	if err != nil {
		return rankcache.Entry{}, err
	}
	row, err := s.parser.ExtractPlayerAtCoordinate(page.Doc, coord.Row)
	if err != nil {
		return rankcache.Entry{}, fmt.Errorf("rank %d: %w", rank, err)
	}
	return rankcache.Entry{
		PlayerData: row.Name,
		Character:  row.Characters,
		PlayerURL:  row.URL,
		Source:     src.URL,
	}, nil
}

// FetchLosses scrapes the match history of a player. Any failure to get the page fails
// the whole operation, no partial history is returned.
func (s *Service) FetchLosses(ctx context.Context, src braacket.Source, entry rankcache.Entry) (rankcache.Losses, error) {
	if entry.PlayerURL == "" {
		return rankcache.Losses{}, fmt.Errorf("%w: %s has no player page", braacket.ErrLossFetch, entry.PlayerData)
	}
	doc, err := s.pages.FetchDocument(ctx, entry.PlayerURL)
	if err != nil {
		return rankcache.Losses{}, fmt.Errorf("%w: %s: %w", braacket.ErrLossFetch, entry.PlayerData, err)
	}

	opponents := s.parser.ExtractLossOpponents(doc)
	characters := map[string][]string{}
	for _, opponent := range opponents {
		if _, ok := characters[opponent]; ok {
			continue
		}
		characters[opponent] = s.parser.ResolveOpponentCharacters(doc, opponent)
	}
	return rankcache.Losses{
		Opponents:  opponents,
		Characters: characters,
	}, nil
}
