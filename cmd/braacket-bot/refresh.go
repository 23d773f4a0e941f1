package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"braacket-bot/internal/app"
	"braacket-bot/internal/components/chrono"
	"braacket-bot/internal/components/telemetry"
	"braacket-bot/internal/rankcache"
	"braacket-bot/pkg/serviceutil"
)

var errMissingToken = errors.New("no discord token, set BOT_TOKEN or discord.token")

// Refresh periodically caches the whole ranking so commands rarely miss.
type Refresh struct {
	ctx  context.Context
	app  *app.App
	cfg  app.BatchConfig
	cron *chrono.StandardCron
}

func InitRefresh(ctx context.Context, a *app.App, tel telemetry.API, cfg app.BatchConfig) *Refresh {
	r := &Refresh{ctx: ctx, app: a, cfg: cfg}
	if cfg.RefreshCron == "" {
		return r
	}

	cron := chrono.NewStandardCron(tel, time.Local)
	err := cron.Cron(cfg.RefreshCron, r.Run)
	if err != nil {
		serviceutil.Fatal("schedule cache refresh", err)
	}
	r.cron = &cron
	slog.Info("scheduled cache refresh", "cron", cfg.RefreshCron, "losses", cfg.RefreshLosses)
	return r
}

func (r *Refresh) Run() {
	report, err := r.app.Ranking.PopulateAllRanks(r.ctx)
	if errors.Is(err, rankcache.ErrBatchRunning) {
		slog.Info("skipping cache refresh, a batch is already running")
		return
	}
	logReport(r.ctx, "ranks", report, err)
	if err != nil || !r.cfg.RefreshLosses {
		return
	}

	report, err = r.app.Ranking.PopulateAllLosses(r.ctx)
	logReport(r.ctx, "losses", report, err)
}

func (r *Refresh) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}

func logReport(ctx context.Context, kind string, report rankcache.Report, err error) {
	attrs := []any{
		"kind", kind,
		"job", report.JobID,
		"source", report.Source.Label(),
		"cached", report.Cached,
		"total", report.Total,
		"incomplete", report.Incomplete,
		"duration", report.Duration(),
	}
	if err != nil {
		slog.ErrorContext(ctx, "cache refresh failed", append(attrs, "err", err)...)
		return
	}
	slog.InfoContext(ctx, "cache refresh done", attrs...)
}
