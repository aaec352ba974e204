package board

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/lapboard/log"
	"github.com/mpapenbr/lapboard/pkg/config"
	"github.com/mpapenbr/lapboard/pkg/leaderboard"
)

var watch bool

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "print the leaderboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := show(cmd.OutOrStdout(), config.BoardFile); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return watchBoard(ctx, config.BoardFile, func() {
				if err := show(cmd.OutOrStdout(), config.BoardFile); err != nil {
					log.Warn("could not show leaderboard", log.ErrorField(err))
				}
			})
		},
	}
	cmd.Flags().BoolVarP(&watch,
		"watch",
		"w",
		false,
		"print the leaderboard again whenever the file changes")
	return cmd
}

func show(w io.Writer, path string) error {
	store, err := leaderboard.LoadStore(path)
	if err != nil {
		return err
	}
	leaderboard.Render(w, store.Snapshot(), "")
	fmt.Fprintln(w)
	return nil
}

// watchBoard calls onChange whenever path was written or replaced.
// The directory is watched since the file is replaced by a rename on save.
func watchBoard(ctx context.Context, path string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	log.Debug("watching leaderboard", log.String("file", abs))
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				onChange()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", log.ErrorField(err))
		}
	}
}
