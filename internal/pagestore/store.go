package pagestore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"braacket-bot/internal/components/assert"
	"braacket-bot/internal/components/chrono"
	"braacket-bot/internal/components/telemetry"
	"braacket-bot/internal/scrapers/braacket"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
)

//go:embed schema.sql
var Schema string

var tracer = otel.Tracer("braacket.pagestore")

const (
	report_store_persist  = "store.persist-page"
	report_store_fallback = "store.offline-fallback"
	report_store_traverse = "store.traverse"
)

var (
	// ErrPageNotFound is returned by LoadPersistedPage when the page was never persisted.
	ErrPageNotFound = errors.New("pagestore: page not persisted")
	// ErrNoMorePages is returned when the ranking ends before the requested page.
	ErrNoMorePages = errors.New("pagestore: no more pages")
)

// Page is a single fetched ranking page.
type Page struct {
	Number    int
	URL       string
	Raw       []byte
	Doc       *goquery.Document
	FetchedAt time.Time
	// Offline is true when the page was loaded from the database instead of the network.
	Offline bool
}

type Options struct {
	// MemoTTL is how long parsed pages are reused without refetching, defaults to an hour.
	MemoTTL time.Duration
	// MemoSize is the max amount of parsed pages kept in memory, defaults to 64.
	MemoSize int
	// OfflineFallback serves the persisted copy of a page when fetching it fails.
	OfflineFallback bool
}

type memoKey struct {
	source string
	number int
}

// Store fetches ranking pages, persists their raw html and keeps recently parsed pages in memory.
type Store struct {
	db     *sql.DB
	client *braacket.Client
	parser braacket.Parser
	clock  chrono.API
	tel    telemetry.API
	opts   Options

	memo  *expirable.LRU[memoKey, Page]
	group singleflight.Group
}

// New creates a Store, `db` must already have Schema applied.
func New(db *sql.DB, client *braacket.Client, parser braacket.Parser, clock chrono.API, tel telemetry.API, opts Options) *Store {
	assert.NotNil(db)
	assert.NotNil(client)
	assert.NotNil(clock)
	assert.NotNil(tel)

	if opts.MemoTTL <= 0 {
		opts.MemoTTL = time.Hour
	}
	if opts.MemoSize <= 0 {
		opts.MemoSize = 64
	}

	return &Store{
		db:     db,
		client: client,
		parser: parser,
		clock:  clock,
		tel:    telemetry.NewScopedAPI("pagestore", tel),
		opts:   opts,
		memo:   expirable.NewLRU[memoKey, Page](opts.MemoSize, nil, opts.MemoTTL),
	}
}

func (s *Store) Parser() braacket.Parser {
	return s.parser
}

// FetchPage fetches and parses a page from the network, it does not persist it.
func (s *Store) FetchPage(ctx context.Context, url string) (Page, error) {
	doc, raw, err := s.client.FetchDocument(ctx, url)
	if err != nil {
		return Page{}, err
	}
	return Page{
		URL:       url,
		Raw:       raw,
		Doc:       doc,
		FetchedAt: s.clock.Now(),
	}, nil
}

// FetchDocument fetches and parses any braacket page (ex. a player's page).
func (s *Store) FetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	doc, _, err := s.client.FetchDocument(ctx, url)
	return doc, err
}

// PersistPage writes the raw page under its number, replacing what was there before.
func (s *Store) PersistPage(ctx context.Context, source string, number int, page Page) error {
	fetchedAt := page.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = s.clock.Now()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO ranking_page (source, page_number, url, content, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (source, page_number) DO UPDATE SET
			url = excluded.url,
			content = excluded.content,
			fetched_at = excluded.fetched_at`,
		source, number, page.URL, page.Raw, fetchedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("persist page %d: %w", number, err)
	}
	return nil
}

// LoadPersistedPage reads a page persisted by PersistPage without touching the network.
func (s *Store) LoadPersistedPage(ctx context.Context, source string, number int) (Page, error) {
	var (
		url       string
		raw       []byte
		fetchedAt int64
	)
	err := s.db.QueryRowContext(
		ctx,
		`SELECT url, content, fetched_at FROM ranking_page WHERE source = ? AND page_number = ?`,
		source, number,
	).Scan(&url, &raw, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Page{}, fmt.Errorf("%w: page %d of %s", ErrPageNotFound, number, source)
	}
	if err != nil {
		return Page{}, fmt.Errorf("load page %d: %w", number, err)
	}

	doc, err := braacket.ParseDocument(raw, url)
	if err != nil {
		return Page{}, err
	}
	return Page{
		Number:    number,
		URL:       url,
		Raw:       raw,
		Doc:       doc,
		FetchedAt: time.Unix(fetchedAt, 0),
		Offline:   true,
	}, nil
}

// Page returns page `number` of the ranking. Page 1 is the source url itself, every
// following page is found by following the "next" link of the page before it.
func (s *Store) Page(ctx context.Context, src braacket.Source, number int) (Page, error) {
	if number < 1 {
		return Page{}, fmt.Errorf("%w: page %d", braacket.ErrInvalidRank, number)
	}

	ctx, span := tracer.Start(ctx, "store:Page")
	defer span.End()
	span.SetAttributes(
		attribute.String("source", src.URL),
		attribute.Int("page", number),
	)

	if cached, ok := s.memo.Get(memoKey{source: src.URL, number: number}); ok {
		return cached, nil
	}

	// find the furthest page we can start from without a request
	start := number
	var prev Page
	for start > 1 {
		cached, ok := s.memo.Get(memoKey{source: src.URL, number: start - 1})
		if ok {
			prev = cached
			break
		}
		start--
	}

	for current := start; current <= number; current++ {
		if cached, ok := s.memo.Get(memoKey{source: src.URL, number: current}); ok {
			prev = cached
			continue
		}

		target := src.URL
		if current > 1 {
			next, ok := s.parser.DiscoverNextPageURL(prev.Doc)
			if !ok {
				err := fmt.Errorf("%w: %s ends at page %d", ErrNoMorePages, src.URL, current-1)
				s.tel.ReportDebug(report_store_traverse, err)
				return Page{}, err
			}
			target = next
		}

		page, err := s.load(ctx, src, current, target)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to load page")
			return Page{}, err
		}
		prev = page
	}

	return prev, nil
}

func (s *Store) load(ctx context.Context, src braacket.Source, number int, target string) (Page, error) {
	key := memoKey{source: src.URL, number: number}
	result, err, _ := s.group.Do(fmt.Sprintf("%s#%d", src.URL, number), func() (any, error) {
		if cached, ok := s.memo.Get(key); ok {
			return cached, nil
		}

		page, err := s.FetchPage(ctx, target)
		if err != nil {
			if !s.opts.OfflineFallback || !errors.Is(err, braacket.ErrNetwork) {
				return Page{}, err
			}
			persisted, loadErr := s.LoadPersistedPage(ctx, src.URL, number)
			if loadErr != nil {
				return Page{}, err
			}
			s.tel.ReportWarning(report_store_fallback, err, src.URL, number, persisted.FetchedAt)
			return persisted, nil
		}
		page.Number = number

		err = s.PersistPage(ctx, src.URL, number, page)
		if err != nil {
			s.tel.ReportBroken(report_store_persist, err, src.URL, number)
		}
		s.memo.Add(key, page)
		return page, nil
	})
	if err != nil {
		return Page{}, err
	}
	return result.(Page), nil
}

// Purge forgets every parsed page kept in memory, persisted pages are untouched.
func (s *Store) Purge() {
	s.memo.Purge()
}
