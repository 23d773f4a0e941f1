package rankcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"braacket-bot/internal/components/assert"
	"braacket-bot/internal/components/telemetry"
	"braacket-bot/internal/scrapers/braacket"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

const (
	report_batch_exhausted = "populator.ranking-exhausted"
	report_batch_progress  = "populator.progress"
)

var (
	// ErrBatchRunning is returned when a batch is started while another one is running.
	ErrBatchRunning = errors.New("rankcache: a batch job is already running")
	// ErrRankingExhausted is returned by a SourceFetcher when the ranking has no page for a rank.
	ErrRankingExhausted = errors.New("rankcache: ranking has no more pages")
)

// SourceFetcher scrapes a ranking source rank by rank.
type SourceFetcher interface {
	TotalPlayers(ctx context.Context, src braacket.Source) (int, error)
	FetchPlayer(ctx context.Context, src braacket.Source, rank int) (Entry, error)
	FetchLosses(ctx context.Context, src braacket.Source, entry Entry) (Losses, error)
}

type BatchOptions struct {
	// RequestDelay is the minimum time between two requests made by a batch.
	RequestDelay time.Duration
}

// Report describes the outcome of a batch job.
type Report struct {
	JobID  string
	Source braacket.Source
	Total  int
	Cached int
	// Incomplete is true when the ranking ran out of pages before Total ranks were cached.
	Incomplete bool
	Started    time.Time
	Finished   time.Time
}

func (r Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Populator fills a cache with every rank of a source. Only one batch runs at a time.
type Populator struct {
	cache   *Cache
	fetcher SourceFetcher
	tel     telemetry.API
	opts    BatchOptions
	running sync.Mutex
}

func NewPopulator(cache *Cache, fetcher SourceFetcher, tel telemetry.API, opts BatchOptions) *Populator {
	assert.NotNil(cache)
	assert.NotNil(fetcher)
	assert.NotNil(tel)
	return &Populator{
		cache:   cache,
		fetcher: fetcher,
		tel:     telemetry.NewScopedAPI("rankcache", tel),
		opts:    opts,
	}
}

func (p *Populator) limiter() *rate.Limiter {
	if p.opts.RequestDelay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(p.opts.RequestDelay), 1)
}

func (p *Populator) begin(ctx context.Context, src braacket.Source) (Report, int, error) {
	jobID, err := random.String(8)
	if err != nil {
		return Report{}, 0, err
	}
	report := Report{
		JobID:   jobID,
		Source:  src,
		Started: p.cache.Now(),
	}
	total, err := p.fetcher.TotalPlayers(ctx, src)
	if err != nil {
		return report, 0, err
	}
	report.Total = total
	return report, total, nil
}

func (p *Populator) exhausted(report *Report, rank int, err error) {
	report.Incomplete = true
	p.tel.ReportWarning(report_batch_exhausted, report.JobID, report.Source.URL, rank, report.Total, err)
}

// PopulateAllRanks fetches every rank of `src` and stores each one as soon as it is
// extracted. The first failing rank stops the batch and its error is returned together with
// the progress made so far.
func (p *Populator) PopulateAllRanks(ctx context.Context, src braacket.Source) (Report, error) {
	if !p.running.TryLock() {
		return Report{}, ErrBatchRunning
	}
	defer p.running.Unlock()

	ctx, span := tracer.Start(ctx, "populator:PopulateAllRanks")
	defer span.End()

	report, total, err := p.begin(ctx, src)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read total player count")
		return report, err
	}
	span.SetAttributes(
		attribute.String("job_id", report.JobID),
		attribute.Int("total", total),
	)

	limiter := p.limiter()
	for rank := 1; rank <= total; rank++ {
		err = limiter.Wait(ctx)
		if err != nil {
			break
		}

		var entry Entry
		entry, err = p.fetcher.FetchPlayer(ctx, src, rank)
		if errors.Is(err, ErrRankingExhausted) {
			p.exhausted(&report, rank, err)
			err = nil
			break
		}
		if err != nil {
			err = fmt.Errorf("rank %d: %w", rank, err)
			break
		}

		key := Key(rank)
		prev, _ := p.cache.Get(key)
		entry.Source = src.URL
		entry.Timestamp = p.cache.Now()
		entry = entry.carryLosses(prev)

		err = p.cache.Put(ctx, key, entry)
		if err != nil {
			break
		}
		report.Cached++
		p.tel.ReportCount(report_batch_progress, int64(report.Cached))
	}

	report.Finished = p.cache.Now()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch aborted")
		return report, err
	}
	return report, nil
}

// PopulateAllLosses refreshes the loss history of every rank of `src`. Ranks that are not
// cached yet (or are stale) are fetched first.
func (p *Populator) PopulateAllLosses(ctx context.Context, src braacket.Source) (Report, error) {
	if !p.running.TryLock() {
		return Report{}, ErrBatchRunning
	}
	defer p.running.Unlock()

	ctx, span := tracer.Start(ctx, "populator:PopulateAllLosses")
	defer span.End()

	report, total, err := p.begin(ctx, src)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read total player count")
		return report, err
	}
	span.SetAttributes(
		attribute.String("job_id", report.JobID),
		attribute.Int("total", total),
	)

	limiter := p.limiter()
	for rank := 1; rank <= total; rank++ {
		key := Key(rank)

		var entry Entry
		entry, err = p.cache.GetOrFetch(ctx, key, src.URL, p.cache.Expiry(), func(ctx context.Context) (Entry, error) {
			err := limiter.Wait(ctx)
			if err != nil {
				return Entry{}, err
			}
			return p.fetcher.FetchPlayer(ctx, src, rank)
		})
		if errors.Is(err, ErrRankingExhausted) {
			p.exhausted(&report, rank, err)
			err = nil
			break
		}
		if err != nil {
			err = fmt.Errorf("rank %d: %w", rank, err)
			break
		}

		err = limiter.Wait(ctx)
		if err != nil {
			break
		}
		var losses Losses
		losses, err = p.fetcher.FetchLosses(ctx, src, entry)
		if err != nil {
			err = fmt.Errorf("losses of rank %d (%s): %w", rank, entry.PlayerData, err)
			break
		}

		err = p.cache.Put(ctx, key, entry.WithLosses(losses, p.cache.Now()))
		if err != nil {
			break
		}
		report.Cached++
		p.tel.ReportCount(report_batch_progress, int64(report.Cached))
	}

	report.Finished = p.cache.Now()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch aborted")
		return report, err
	}
	return report, nil
}
