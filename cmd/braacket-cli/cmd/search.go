package cmd

import (
	"strings"

	"braacket-bot/cmd/braacket-cli/globals"
	"braacket-bot/cmd/braacket-cli/utils"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var searchLimit int

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 25, "The max amount of results.")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <substring>",
	Short: "Searches the cached players by name.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := globals.Get(cmd.Context()).App

		t := utils.NewTable()
		t.AppendHeader(table.Row{"Rank", "Player", "Characters"})
		for _, p := range a.Ranking.SearchNames(strings.Join(args, " "), searchLimit) {
			t.AppendRow(table.Row{p.Rank, p.Name, utils.Characters(p.Characters)})
		}
		t.Render()
	},
}
