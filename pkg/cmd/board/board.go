package board

import (
	"github.com/spf13/cobra"
)

func NewBoardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "manage the leaderboard file",
	}
	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newClearCmd())
	cmd.AddCommand(newRemoveCmd())
	cmd.AddCommand(newNewCmd())
	cmd.AddCommand(newShowCmd())
	return cmd
}
