package poll

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/mpapenbr/lapboard/log"
	"github.com/mpapenbr/lapboard/pkg/config"
	"github.com/mpapenbr/lapboard/pkg/leaderboard"
	"github.com/mpapenbr/lapboard/pkg/processing/lap"
	"github.com/mpapenbr/lapboard/pkg/session"
	"github.com/mpapenbr/lapboard/pkg/telemetry"
	"github.com/mpapenbr/lapboard/pkg/utils/broadcast"
)

// console serializes the output of the command reader and the lap printer
type console struct {
	mu sync.Mutex
	w  io.Writer
}

func (c *console) Println(a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, a...)
}

func NewPollCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "poll",
		Short: "polls the simulator telemetry and records best laps",
		Long: `Polls the shared memory segment of the simulator and records the telemetry
for the selected player. Commands are read line by line from stdin:

  add <name>     add a player
  select <name>  record telemetry for this player
  clear [name]   reset the best lap of a player (default: selected)
  remove <name>  remove a player
  new            start an empty leaderboard
  save [file]    save the leaderboard
  load <file>    load a leaderboard
  show           print the leaderboard
  quit           stop polling`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPoll(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&config.Player,
		"player",
		"p",
		"",
		"player receiving the telemetry (added to the leaderboard if missing)")
	cmd.Flags().StringVar(&config.PollInterval,
		"interval",
		"1s",
		"duration between two telemetry reads")
	cmd.Flags().StringVar(&config.SegmentName,
		"segment",
		telemetry.DefaultSegmentName,
		"name of the shared memory segment")
	cmd.Flags().StringVar(&config.LayoutFile,
		"layout",
		"",
		"yaml file overriding the telemetry record layout")
	cmd.Flags().BoolVar(&config.SharedBestLap,
		"shared-best-lap",
		false,
		"track one best lap for all players")
	cmd.Flags().BoolVar(&config.Autosave,
		"autosave",
		false,
		"save the leaderboard whenever a record changed")
	cmd.Flags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	cmd.Flags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"localhost:4317",
		"Endpoint that receives open telemetry data (use \"stdout\" for local output)")
	return cmd
}

func runPoll(ctx context.Context, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var telemetryHandle *config.Telemetry
	if config.EnableTelemetry {
		log.Info("Enabling telemetry")
		var err error
		if telemetryHandle, err = config.SetupTelemetry(ctx); err != nil {
			log.Warn("Could not setup telemetry", log.ErrorField(err))
		}
		err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
		if err != nil {
			log.Warn("Could not start runtime metrics", log.ErrorField(err))
		}
	}
	if telemetryHandle != nil {
		defer telemetryHandle.Shutdown()
	}

	events := make(chan session.LapEvent, 16)
	laps := broadcast.NewServer("laps", events)
	defer laps.Close()

	sess, err := newSession(session.WithEvents(events))
	if err != nil {
		log.Error("could not create session", log.ErrorField(err))
		return err
	}
	defer sess.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	con := &console{w: out}
	printed := make(chan struct{})
	go func(sub <-chan session.LapEvent) {
		defer close(printed)
		printLaps(sub, con)
	}(laps.Subscribe())
	go readCommands(ctx, stop, sess, in, con)

	log.Info("Polling telemetry",
		log.String("session", sess.ID()),
		log.String("player", sess.Selected()),
		log.String("board", sess.BoardFile()))
	if err := sess.Run(ctx); err != nil {
		return err
	}
	// no more ticks, let the broadcast server drain the pending events
	close(events)
	<-printed

	if err := sess.Save(""); err != nil {
		log.Error("could not save leaderboard", log.ErrorField(err))
		return err
	}
	log.Info("Leaderboard saved", log.String("file", sess.BoardFile()))
	return nil
}

func newSession(extra ...session.Option) (*session.Session, error) {
	layout := telemetry.DefaultLayout()
	if config.LayoutFile != "" {
		var err error
		if layout, err = telemetry.LoadLayout(config.LayoutFile); err != nil {
			return nil, err
		}
	}
	reader, err := telemetry.NewReader(
		telemetry.WithLayout(layout),
		telemetry.WithSegmentName(config.SegmentName))
	if err != nil {
		return nil, err
	}

	interval, err := time.ParseDuration(config.PollInterval)
	if err != nil {
		log.Warn("invalid poll interval, using default",
			log.String("interval", config.PollInterval), log.ErrorField(err))
		interval = session.DefaultInterval
	}

	store, err := leaderboard.LoadStore(config.BoardFile)
	if err != nil {
		reader.Close()
		return nil, err
	}
	player := strings.TrimSpace(config.Player)
	if player != "" {
		if _, ok := store.Get(player); !ok {
			if err := store.AddPlayer(player); err != nil {
				reader.Close()
				return nil, err
			}
		}
	}

	var trackerOpts []lap.TrackerOption
	if config.SharedBestLap {
		trackerOpts = append(trackerOpts, lap.WithSharedBestLap())
	}
	opts := []session.Option{
		session.WithReader(reader),
		session.WithTracker(lap.NewTracker(trackerOpts...)),
		session.WithStore(store),
		session.WithInterval(interval),
		session.WithSelectedPlayer(player),
		session.WithBoardFile(config.BoardFile),
		session.WithAutosave(config.Autosave),
	}
	return session.New(append(opts, extra...)...)
}

func printLaps(events <-chan session.LapEvent, con *console) {
	for ev := range events {
		best, _ := ev.BestLap.Get()
		con.Println(fmt.Sprintf("new best lap for %s: %s (lap %d)",
			ev.Player, leaderboard.FormatLapTime(best), ev.Laps))
	}
}

// readCommands forwards console lines to the session until quit or EOF
func readCommands(
	ctx context.Context,
	stop context.CancelFunc,
	sess *session.Session,
	in io.Reader,
	con *console,
) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "quit") || strings.EqualFold(line, "exit") {
			stop()
			return
		}
		cmd, err := session.ParseCommand(line)
		if err != nil {
			con.Println(err)
			continue
		}
		msg, err := sess.Submit(ctx, cmd)
		switch {
		case errors.Is(err, context.Canceled):
			return
		case err != nil:
			con.Println("error:", err)
		default:
			con.Println(strings.TrimRight(msg, "\n"))
		}
	}
	if err := scanner.Err(); err != nil {
		log.Warn("stopped reading commands", log.ErrorField(err))
	}
}
