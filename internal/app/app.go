// Package app builds the object graph shared by the bot daemon and the cli.
package app

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"braacket-bot/internal/components/chrono"
	"braacket-bot/internal/components/telemetry"
	"braacket-bot/internal/icons"
	"braacket-bot/internal/pagestore"
	"braacket-bot/internal/rankcache"
	"braacket-bot/internal/ranking"
	"braacket-bot/internal/scrapers/braacket"
	"braacket-bot/pkg/migrations"

	"dario.cat/mergo"
)

type App struct {
	Config  Config
	DB      *sql.DB
	Client  *braacket.Client
	Pages   *pagestore.Store
	Cache   *rankcache.Cache
	Ranking *ranking.Service
	Tel     telemetry.API
}

func parser(cfg ScraperConfig) (braacket.Parser, error) {
	sel := cfg.Selectors
	err := mergo.Merge(&sel, braacket.DefaultSelectors())
	if err != nil {
		return braacket.Parser{}, err
	}
	return braacket.NewParser(sel), nil
}

func iconTable(path string) (icons.Table, error) {
	if path == "" {
		return icons.Default(), nil
	}
	return icons.Load(path)
}

// Build opens the page database and the cache snapshot and wires every component.
// `dump` may be nil.
func Build(ctx context.Context, cfg Config, tel telemetry.API, dump telemetry.HttpDump) (*App, error) {
	db, err := migrations.OpenAndMigrateDB(pagestore.Schema, cfg.Pages.Database, cfg.Pages.AuthToken)
	if err != nil {
		return nil, err
	}

	p, err := parser(cfg.Scraper)
	if err != nil {
		db.Close()
		return nil, err
	}
	table, err := iconTable(cfg.Icons)
	if err != nil {
		db.Close()
		return nil, err
	}

	clock := chrono.StandardImpl{}
	client := braacket.NewClient(tel, braacket.ClientOptions{
		Timeout:           time.Duration(cfg.Scraper.TimeoutSeconds) * time.Second,
		Retries:           cfg.Scraper.Retries,
		RetryUnit:         time.Duration(cfg.Scraper.RetryUnitMs) * time.Millisecond,
		RequestsPerSecond: cfg.Scraper.RequestsPerSecond,
		UserAgent:         cfg.Scraper.UserAgent,
		CloudflareBypass:  cfg.Scraper.CloudflareBypass,
		Dump:              dump,
	})
	pages := pagestore.New(db, client, p, clock, tel, pagestore.Options{
		MemoTTL:         cfg.MemoTTL(),
		OfflineFallback: cfg.Pages.OfflineFallback,
	})

	cache, err := rankcache.New(ctx, rankcache.NewFileStore(cfg.Cache.File, tel), clock, tel, cfg.Expiry())
	if err != nil {
		db.Close()
		return nil, err
	}

	service := ranking.New(pages, cache, table, tel, ranking.Options{
		PageSize:      cfg.Ranking.PageSize,
		MaxList:       cfg.Ranking.MaxList,
		DefaultCount:  cfg.Ranking.DefaultCount,
		Regions:       cfg.Ranking.Regions,
		InitialSource: cfg.Ranking.Source,
		RequestDelay:  time.Duration(cfg.Batch.RequestDelayMs) * time.Millisecond,
	})

	return &App{
		Config:  cfg,
		DB:      db,
		Client:  client,
		Pages:   pages,
		Cache:   cache,
		Ranking: service,
		Tel:     tel,
	}, nil
}

// Close persists the cache one last time and closes the page database.
func (a *App) Close(ctx context.Context) error {
	return errors.Join(
		a.Cache.Persist(ctx),
		a.DB.Close(),
	)
}
