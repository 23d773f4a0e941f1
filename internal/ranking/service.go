// Package ranking implements the operations the chat bot and the cli expose on top of the
// rank cache and the page store.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"braacket-bot/internal/components/assert"
	"braacket-bot/internal/components/telemetry"
	"braacket-bot/internal/icons"
	"braacket-bot/internal/pagestore"
	"braacket-bot/internal/rankcache"
	"braacket-bot/internal/scrapers/braacket"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("braacket.ranking")

const (
	report_service_source = "service.set-ranking-source"
	report_service_clear  = "service.clear-cache"
	report_service_list   = "service.list-top-players"
)

var (
	ErrEmptySource = errors.New("ranking: no region or url given")
	// ErrPlayerNotFound is returned when no player of the ranking matches a name.
	ErrPlayerNotFound = errors.New("ranking: player not found")
)

type Options struct {
	// PageSize is the amount of rows of a ranking page, defaults to 200.
	PageSize int
	// MaxList is the largest top list that can be requested, defaults to 200.
	MaxList int
	// DefaultCount is the size of a top list when none is given, defaults to 15.
	DefaultCount int
	// Regions maps region keys to ranking urls, defaults to DefaultRegions.
	Regions map[string]string
	// InitialSource is a region key or url, defaults to the DFW ranking.
	InitialSource string
	// RequestDelay paces batch jobs.
	RequestDelay time.Duration
}

// Player is a ranked player.
type Player struct {
	Rank       int
	Name       string
	Characters []string
	URL        string
}

// Loss is the number of times a player lost to a single opponent.
type Loss struct {
	Opponent   string
	Count      int
	Characters []string
	Icons      string
}

type PlayerLosses struct {
	Player Player
	Losses []Loss
}

type Service struct {
	pages     *pagestore.Store
	parser    braacket.Parser
	cache     *rankcache.Cache
	populator *rankcache.Populator
	icons     icons.Table
	tel       telemetry.API
	opts      Options
	regions   map[string]string

	sourceMutex sync.Mutex
	source      atomic.Pointer[braacket.Source]
}

func New(pages *pagestore.Store, cache *rankcache.Cache, table icons.Table, tel telemetry.API, opts Options) *Service {
	assert.NotNil(pages)
	assert.NotNil(cache)
	assert.NotNil(tel)

	if opts.PageSize <= 0 {
		opts.PageSize = 200
	}
	if opts.MaxList <= 0 {
		opts.MaxList = 200
	}
	if opts.DefaultCount <= 0 {
		opts.DefaultCount = 15
	}
	if len(opts.Regions) == 0 {
		opts.Regions = DefaultRegions
	}
	if opts.InitialSource == "" {
		opts.InitialSource = "DFW"
	}

	s := &Service{
		pages:   pages,
		parser:  pages.Parser(),
		cache:   cache,
		icons:   table,
		tel:     telemetry.NewScopedAPI("ranking", tel),
		opts:    opts,
		regions: normalizeRegions(opts.Regions),
	}
	src := resolveSource(s.regions, opts.InitialSource)
	src.Version = 1
	s.source.Store(&src)

	s.populator = rankcache.NewPopulator(cache, s, tel, rankcache.BatchOptions{
		RequestDelay: opts.RequestDelay,
	})
	return s
}

func (s *Service) Icons() icons.Table {
	return s.icons
}

// DefaultCount is the size of a top list when the caller gives none.
func (s *Service) DefaultCount() int {
	return s.opts.DefaultCount
}

// ClampCount bounds a requested list size to [1, MaxList].
func (s *Service) ClampCount(count int) int {
	return min(max(count, 1), s.opts.MaxList)
}

func entryPlayer(rank int, entry rankcache.Entry) Player {
	return Player{
		Rank:       rank,
		Name:       entry.PlayerData,
		Characters: entry.Character,
		URL:        entry.PlayerURL,
	}
}

// player reads a rank from the cache, scraping it on a miss.
func (s *Service) player(ctx context.Context, src braacket.Source, rank int) (rankcache.Entry, error) {
	return s.cache.GetOrFetch(ctx, rankcache.Key(rank), src.URL, s.cache.Expiry(), func(ctx context.Context) (rankcache.Entry, error) {
		return s.FetchPlayer(ctx, src, rank)
	})
}

// TopPlayers returns `count` players of the active ranking starting at the first rank of
// page `pageHint` (0 and 1 both start at rank 1).
func (s *Service) TopPlayers(ctx context.Context, count, pageHint int) ([]Player, error) {
	return s.TopPlayersOf(ctx, s.Source(), count, pageHint)
}

// TopPlayersOf is TopPlayers for any source. The list is shorter when the ranking ends early.
func (s *Service) TopPlayersOf(ctx context.Context, src braacket.Source, count, pageHint int) ([]Player, error) {
	count = s.ClampCount(count)
	start := 1
	if pageHint > 1 {
		start = braacket.RankOf(braacket.Coordinate{Page: pageHint}, s.opts.PageSize)
	}

	ctx, span := tracer.Start(ctx, "service:TopPlayers")
	defer span.End()
	span.SetAttributes(
		attribute.String("source", src.URL),
		attribute.Int("start", start),
		attribute.Int("count", count),
	)

	var players []Player
	for rank := start; rank < start+count; rank++ {
		entry, err := s.player(ctx, src, rank)
		if errors.Is(err, rankcache.ErrRankingExhausted) || errors.Is(err, braacket.ErrRowNotFound) {
			if len(players) == 0 {
				return nil, err
			}
			s.tel.ReportDebug(report_service_list, "ranking ended", rank, err)
			break
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to read player")
			return nil, err
		}
		players = append(players, entryPlayer(rank, entry))
	}
	return players, nil
}

// FormatPlayer renders a player as a line of a top list.
func (s *Service) FormatPlayer(p Player) string {
	return fmt.Sprintf("%d. %s %s", p.Rank, p.Name, s.icons.Render(p.Characters))
}

// ListTopPlayers is TopPlayers formatted as chat lines.
func (s *Service) ListTopPlayers(ctx context.Context, count, pageHint int) ([]string, error) {
	return s.ListTopPlayersOf(ctx, s.Source(), count, pageHint)
}

func (s *Service) ListTopPlayersOf(ctx context.Context, src braacket.Source, count, pageHint int) ([]string, error) {
	players, err := s.TopPlayersOf(ctx, src, count, pageHint)
	if err != nil {
		return nil, err
	}
	lines := make([]string, len(players))
	for i, p := range players {
		lines[i] = s.FormatPlayer(p)
	}
	return lines, nil
}

// findCachedName returns the best ranked cached player of the source named `name`.
func (s *Service) findCachedName(src braacket.Source, name string) (int, rankcache.Entry, bool) {
	now := s.cache.Now()
	bestRank := 0
	var best rankcache.Entry
	for key, entry := range s.cache.Entries() {
		rank, ok := rankcache.ParseKey(key)
		if !ok || entry.Source != src.URL || !strings.EqualFold(entry.PlayerData, name) {
			continue
		}
		if now.Sub(entry.Timestamp) >= s.cache.Expiry() {
			continue
		}
		if bestRank == 0 || rank < bestRank {
			bestRank = rank
			best = entry
		}
	}
	return bestRank, best, bestRank > 0
}

// scanForName walks the ranking page by page until a row named `name` is found.
func (s *Service) scanForName(ctx context.Context, src braacket.Source, name string) (int, rankcache.Entry, error) {
	for number := 1; ; number++ {
		page, err := s.pages.Page(ctx, src, number)
		if errors.Is(err, pagestore.ErrNoMorePages) {
			return 0, rankcache.Entry{}, fmt.Errorf("%w: %q in %s", ErrPlayerNotFound, name, src.Label())
		}
		if err != nil {
			return 0, rankcache.Entry{}, err
		}

		index, err := s.parser.FindPlayerByName(page.Doc, name)
		if errors.Is(err, braacket.ErrRowNotFound) {
			continue
		}
		if err != nil {
			return 0, rankcache.Entry{}, err
		}
		row, err := s.parser.ExtractPlayerAtCoordinate(page.Doc, index)
		if err != nil {
			return 0, rankcache.Entry{}, err
		}

		rank := braacket.RankOf(braacket.Coordinate{Page: number, Row: index}, s.opts.PageSize)
		found := rankcache.Entry{
			PlayerData: row.Name,
			Character:  row.Characters,
			PlayerURL:  row.URL,
		}
		entry, err := s.cache.GetOrFetch(ctx, rankcache.Key(rank), src.URL, s.cache.Expiry(), func(ctx context.Context) (rankcache.Entry, error) {
			return found, nil
		})
		if err != nil {
			return 0, rankcache.Entry{}, err
		}
		if !strings.EqualFold(entry.PlayerData, row.Name) {
			// the cached rank belongs to someone else, the ranking moved since it was cached
			found.Source = src.URL
			err = s.cache.Put(ctx, rankcache.Key(rank), found)
			if err != nil {
				return 0, rankcache.Entry{}, err
			}
			entry, _ = s.cache.Get(rankcache.Key(rank))
		}
		return rank, entry, nil
	}
}

// resolvePlayer finds the rank of a player given either its rank (1-based) or its name.
// Both are looked up in the cache before the ranking is scraped.
func (s *Service) resolvePlayer(ctx context.Context, src braacket.Source, nameOrRank string) (int, rankcache.Entry, error) {
	input := strings.TrimSpace(nameOrRank)
	if input == "" {
		return 0, rankcache.Entry{}, fmt.Errorf("%w: empty player name", braacket.ErrInvalidRank)
	}

	rank, err := strconv.Atoi(input)
	if err == nil {
		if rank < 1 {
			return 0, rankcache.Entry{}, fmt.Errorf("%w: %d", braacket.ErrInvalidRank, rank)
		}
		entry, err := s.player(ctx, src, rank)
		if errors.Is(err, rankcache.ErrRankingExhausted) || errors.Is(err, braacket.ErrRowNotFound) {
			return 0, rankcache.Entry{}, fmt.Errorf("%w: rank %d is past the end of %s: %w", braacket.ErrInvalidRank, rank, src.Label(), err)
		}
		return rank, entry, err
	}

	rank, entry, ok := s.findCachedName(src, input)
	if ok {
		return rank, entry, nil
	}
	return s.scanForName(ctx, src, input)
}

// GetPlayerLosses returns every opponent a player lost to, most frequent first.
func (s *Service) GetPlayerLosses(ctx context.Context, nameOrRank string) (PlayerLosses, error) {
	src := s.Source()

	ctx, span := tracer.Start(ctx, "service:GetPlayerLosses")
	defer span.End()
	span.SetAttributes(
		attribute.String("source", src.URL),
		attribute.String("input", nameOrRank),
	)

	rank, _, err := s.resolvePlayer(ctx, src, nameOrRank)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve player")
		return PlayerLosses{}, err
	}

	entry, err := s.cache.GetOrFetchLosses(ctx, rankcache.Key(rank), s.cache.Expiry(), func(ctx context.Context, entry rankcache.Entry) (rankcache.Losses, error) {
		return s.FetchLosses(ctx, src, entry)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch losses")
		return PlayerLosses{}, err
	}

	counts := braacket.AggregateLosses(entry.Losses)
	out := PlayerLosses{
		Player: entryPlayer(rank, entry),
		Losses: make([]Loss, len(counts)),
	}
	for i, c := range counts {
		chars := entry.LossCharacters[c.Opponent]
		out.Losses[i] = Loss{
			Opponent:   c.Opponent,
			Count:      c.Count,
			Characters: chars,
			Icons:      s.icons.Render(chars),
		}
	}
	return out, nil
}

// FormatLoss renders a loss as a chat line.
func FormatLoss(l Loss) string {
	return fmt.Sprintf("%s %s x%d", l.Opponent, l.Icons, l.Count)
}

// ClearCache forgets every cached player and parsed page.
func (s *Service) ClearCache(ctx context.Context) error {
	err := s.cache.InvalidateAll(ctx)
	if err != nil {
		s.tel.ReportBroken(report_service_clear, err)
		return err
	}
	s.pages.Purge()
	return nil
}

// PopulateAllRanks caches every rank of the active source.
func (s *Service) PopulateAllRanks(ctx context.Context) (rankcache.Report, error) {
	return s.populator.PopulateAllRanks(ctx, s.Source())
}

// PopulateAllLosses caches the losses of every rank of the active source.
func (s *Service) PopulateAllLosses(ctx context.Context) (rankcache.Report, error) {
	return s.populator.PopulateAllLosses(ctx, s.Source())
}
