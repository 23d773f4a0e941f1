package cmd

import (
	"braacket-bot/cmd/braacket-cli/globals"
	"braacket-bot/cmd/braacket-cli/utils"
	"braacket-bot/pkg/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	topCount int
	topPage  int
)

func init() {
	topCmd.Flags().IntVarP(&topCount, "count", "n", 15, "The amount of players to list, defaults to ranking.default_count.")
	topCmd.Flags().IntVar(&topPage, "page", 1, "The ranking page to start from.")
	rootCmd.AddCommand(topCmd)
}

var topCmd = &cobra.Command{
	Use:   "top [-n <count>] [--page <page>]",
	Short: "Lists the top players of the ranking.",
	Run: func(cmd *cobra.Command, args []string) {
		a := globals.Get(cmd.Context()).App

		count := topCount
		if !cmd.Flags().Changed("count") {
			count = a.Ranking.DefaultCount()
		}
		players, err := a.Ranking.TopPlayers(cmd.Context(), count, topPage)
		if err != nil {
			serviceutil.Fatal("list top players", err)
		}

		t := utils.NewTable()
		t.SetTitle(a.Ranking.Source().Label())
		t.AppendHeader(table.Row{"Rank", "Player", "Characters"})
		for _, p := range players {
			t.AppendRow(table.Row{p.Rank, p.Name, utils.Characters(p.Characters)})
		}
		t.Render()
	},
}
