package cmd

import (
	"errors"
	"fmt"
	"strings"

	"braacket-bot/cmd/braacket-cli/globals"
	"braacket-bot/cmd/braacket-cli/utils"
	"braacket-bot/internal/ranking"
	"braacket-bot/pkg/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(lossesCmd)
}

var lossesCmd = &cobra.Command{
	Use:   "losses <name | rank>",
	Short: "Lists every opponent a player lost to.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := globals.Get(cmd.Context()).App
		input := strings.Join(args, " ")

		result, err := a.Ranking.GetPlayerLosses(cmd.Context(), input)
		if errors.Is(err, ranking.ErrPlayerNotFound) {
			suggestions := a.Ranking.SuggestNames(input, 5)
			if len(suggestions) > 0 {
				fmt.Printf("did you mean: %s\n", strings.Join(suggestions, ", "))
			}
		}
		if err != nil {
			serviceutil.Fatal("get player losses", err)
		}

		t := utils.NewTable()
		t.SetTitle(fmt.Sprintf("#%d %s", result.Player.Rank, result.Player.Name))
		t.AppendHeader(table.Row{"Opponent", "Losses", "Characters"})
		for _, l := range result.Losses {
			t.AppendRow(table.Row{l.Opponent, l.Count, utils.Characters(l.Characters)})
		}
		t.Render()
	},
}
