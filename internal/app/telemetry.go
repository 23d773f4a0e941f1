package app

import (
	"context"
	"log/slog"

	"braacket-bot/internal/components/telemetry"
	"braacket-bot/pkg/serviceutil"
)

// InitTelemetry installs the console logger and the otel providers, then returns the
// report API every component logs through. The providers are flushed once ctx is done.
func InitTelemetry(ctx context.Context, serviceName string, cfg Config, verbose bool) telemetry.API {
	verbose = verbose || cfg.Verbose
	serviceutil.InitSlog(verbose)
	if verbose {
		slog.DebugContext(ctx, "verbose logging enabled")
	}

	providers, err := telemetry.Setup(ctx, serviceName, cfg.Telemetry)
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	go func() {
		<-ctx.Done()
		err := providers.Shutdown(context.Background())
		if err != nil {
			slog.Warn("failed to shutdown telemetry", "err", err)
		}
	}()
	telemetry.InstrumentPerfStats(ctx)

	tel, err := telemetry.NewMetricAPI(telemetry.SlogAPI{})
	if err != nil {
		serviceutil.Fatal("setup report metrics", err)
	}
	return tel
}
