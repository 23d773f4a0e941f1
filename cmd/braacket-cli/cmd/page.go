package cmd

import (
	"strconv"
	"time"

	"braacket-bot/cmd/braacket-cli/globals"
	"braacket-bot/cmd/braacket-cli/utils"
	"braacket-bot/pkg/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var pageOffline bool

func init() {
	pageCmd.Flags().BoolVar(&pageOffline, "offline", false, "Read the persisted copy of the page instead of fetching it.")
	rootCmd.AddCommand(pageCmd)
}

var pageCmd = &cobra.Command{
	Use:   "page <n> [--offline]",
	Short: "Describes a single page of the ranking.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := globals.Get(cmd.Context()).App

		number, err := strconv.Atoi(args[0])
		if err != nil {
			serviceutil.Fatal("parse page number", err)
		}
		info, err := a.Ranking.InspectPage(cmd.Context(), number, pageOffline)
		if err != nil {
			serviceutil.Fatal("inspect page", err)
		}

		t := utils.NewTable()
		t.AppendRows([]table.Row{
			{"Page", info.Number},
			{"URL", info.URL},
			{"Rows", info.Rows},
			{"Pages", info.PageCount},
			{"Players", info.Total},
			{"Fetched at", info.FetchedAt.Format(time.DateTime)},
			{"Offline", info.Offline},
		})
		t.Render()
	},
}
