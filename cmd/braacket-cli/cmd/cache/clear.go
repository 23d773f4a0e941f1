package cache

import (
	"log/slog"

	"braacket-bot/cmd/braacket-cli/globals"
	"braacket-bot/pkg/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(clearCmd)
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forgets every cached player.",
	Run: func(cmd *cobra.Command, args []string) {
		a := globals.Get(cmd.Context()).App
		err := a.Ranking.ClearCache(cmd.Context())
		if err != nil {
			serviceutil.Fatal("clear cache", err)
		}
		slog.Info("cache cleared", "file", a.Config.Cache.File)
	},
}
