package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"braacket-bot/cmd/braacket-cli/cmd/cache"
	"braacket-bot/cmd/braacket-cli/globals"
	"braacket-bot/internal/app"
	"braacket-bot/internal/components/telemetry"
	"braacket-bot/pkg/serviceutil"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	source     string
	dumpHttp   string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json5", "The config file to read.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging.")
	rootCmd.PersistentFlags().StringVar(&source, "source", "", "A region or ranking url to use instead of the configured one.")
	rootCmd.PersistentFlags().StringVar(&dumpHttp, "dump-http", "", "Write every http exchange into this directory.")

	rootCmd.AddCommand(cache.RootCmd)
}

var rootCmd = &cobra.Command{
	Use:   "braacket-cli",
	Short: "braacket-cli reads and caches braacket rankings from the command line.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg, err := app.LoadConfig(configPath)
		if err != nil {
			serviceutil.Fatal("read config", err)
		}
		tel := app.InitTelemetry(cmd.Context(), "braacket-cli", cfg, verbose)

		var dump telemetry.HttpDump
		if dumpHttp != "" {
			fsdump, err := telemetry.NewFilesystemDump(dumpHttp)
			if err != nil {
				serviceutil.Fatal("create http dump", err)
			}
			dump = fsdump
		}

		a, err := app.Build(cmd.Context(), cfg, tel, dump)
		if err != nil {
			serviceutil.Fatal("build app", err)
		}
		if source != "" {
			_, err = a.Ranking.SetRankingSource(source)
			if err != nil {
				serviceutil.Fatal("set source", err)
			}
		}
		cmd.SetContext(globals.Set(cmd.Context(), &globals.Value{App: a}))
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		err := globals.Get(cmd.Context()).App.Close(context.Background())
		if err != nil {
			slog.Warn("failed to close app", "err", err)
		}
	},
}

func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
