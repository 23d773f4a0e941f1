package cache

import (
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "cache",
	Short: "Populates or clears the player cache.",
}
