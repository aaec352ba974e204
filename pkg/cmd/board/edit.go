package board

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/lapboard/log"
	"github.com/mpapenbr/lapboard/pkg/config"
	"github.com/mpapenbr/lapboard/pkg/leaderboard"
)

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>...",
		Short: "add players to the leaderboard",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return modify(func(s *leaderboard.Store) error {
				for _, name := range args {
					if err := s.AddPlayer(name); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "added player %s\n", strings.TrimSpace(name))
				}
				return nil
			})
		},
	}
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <name>",
		Short: "reset the best lap of a player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return modify(func(s *leaderboard.Store) error {
				if err := s.ClearPlayer(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cleared player %s\n", args[0])
				return nil
			})
		},
	}
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "remove a player from the leaderboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return modify(func(s *leaderboard.Store) error {
				if err := s.RemovePlayer(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed player %s\n", args[0])
				return nil
			})
		},
	}
}

func newNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "replace the leaderboard file with an empty one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := leaderboard.SaveFile(config.BoardFile, leaderboard.NewStore().Snapshot()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created empty leaderboard %s\n", config.BoardFile)
			return nil
		},
	}
}

// modify loads the board file, applies fn and writes the result back
func modify(fn func(s *leaderboard.Store) error) error {
	store, err := leaderboard.LoadStore(config.BoardFile)
	if err != nil {
		return err
	}
	if err := fn(store); err != nil {
		return err
	}
	if err := leaderboard.SaveFile(config.BoardFile, store.Snapshot()); err != nil {
		return err
	}
	log.Debug("leaderboard updated",
		log.String("file", config.BoardFile), log.Int("players", store.Len()))
	return nil
}
