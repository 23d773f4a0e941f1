package main

import (
	"context"
	"flag"
	"log/slog"
	"time"

	"braacket-bot/internal/app"
	"braacket-bot/internal/bot"
	"braacket-bot/internal/components/telemetry"
	"braacket-bot/pkg/serviceutil"
)

func main() {
	configPath := flag.String("config", "config.json5", "The config file to read.")
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	dumpHttp := flag.String("dump-http", "", "Write every http exchange into this directory.")
	initialRefresh := flag.Bool("refresh", false, "Cache every rank immediately on run.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	tel := app.InitTelemetry(ctx, "braacket-bot", cfg, *verbose)

	var dump telemetry.HttpDump
	if *dumpHttp != "" {
		fsdump, err := telemetry.NewFilesystemDump(*dumpHttp)
		if err != nil {
			serviceutil.Fatal("create http dump", err)
		}
		dump = fsdump
	}

	a, err := app.Build(ctx, cfg, tel, dump)
	if err != nil {
		serviceutil.Fatal("build app", err)
	}
	defer func() {
		err := a.Close(context.Background())
		if err != nil {
			slog.Warn("failed to close app", "err", err)
		}
	}()

	if cfg.Discord.Token == "" {
		serviceutil.Fatal("start bot", errMissingToken)
	}

	b := bot.New(ctx, a.Ranking, tel, bot.Options{
		Prefix: cfg.Discord.Prefix,
		Admins: cfg.Discord.Admins,
	})
	session, err := bot.Open(cfg.Discord.Token, b)
	if err != nil {
		serviceutil.Fatal("open discord session", err)
	}

	refresher := InitRefresh(ctx, a, tel, cfg.Batch)
	if *initialRefresh {
		go refresher.Run()
	}

	slog.Info("running", "source", a.Ranking.Source().URL, "cached", a.Cache.Len())
	<-ctx.Done()
	slog.Info("shutting down")

	err = session.Close()
	if err != nil {
		slog.Warn("failed to close discord session", "err", err)
	}
	refresher.Stop()

	waited := make(chan struct{})
	go func() {
		b.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(10 * time.Second):
		slog.Warn("cache jobs did not stop in time")
	}
}
