package cache

import (
	"braacket-bot/cmd/braacket-cli/globals"
	"braacket-bot/cmd/braacket-cli/utils"
	"braacket-bot/pkg/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(ranksCmd)
	RootCmd.AddCommand(lossesCmd)
}

var ranksCmd = &cobra.Command{
	Use:   "ranks",
	Short: "Caches every rank of the ranking.",
	Run: func(cmd *cobra.Command, args []string) {
		a := globals.Get(cmd.Context()).App
		report, err := a.Ranking.PopulateAllRanks(cmd.Context())
		utils.RenderReport(report)
		if err != nil {
			serviceutil.Fatal("cache ranks", err)
		}
	},
}

var lossesCmd = &cobra.Command{
	Use:   "losses",
	Short: "Caches the losses of every rank of the ranking.",
	Run: func(cmd *cobra.Command, args []string) {
		a := globals.Get(cmd.Context()).App
		report, err := a.Ranking.PopulateAllLosses(cmd.Context())
		utils.RenderReport(report)
		if err != nil {
			serviceutil.Fatal("cache losses", err)
		}
	},
}
