package session

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/mpapenbr/lapboard/log"
	"github.com/mpapenbr/lapboard/pkg/leaderboard"
)

type CommandKind string

const (
	CmdAdd    CommandKind = "add"
	CmdClear  CommandKind = "clear"
	CmdSelect CommandKind = "select"
	CmdRemove CommandKind = "remove"
	CmdNew    CommandKind = "new"
	CmdSave   CommandKind = "save"
	CmdLoad   CommandKind = "load"
	CmdShow   CommandKind = "show"
)

var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrMissingArgument  = errors.New("missing argument")
	ErrNoPlayerSelected = errors.New("no player selected")
	ErrNoBoardFile      = errors.New("no leaderboard file configured")
)

// Command is a user action. Arg holds the rest of the input line.
type Command struct {
	Kind CommandKind
	Arg  string
}

var argRequired = map[CommandKind]bool{
	CmdAdd:    true,
	CmdSelect: true,
	CmdRemove: true,
	CmdLoad:   true,
}

// ParseCommand parses lines like "add Max Power" or "save board.csv"
func ParseCommand(line string) (Command, error) {
	keyword, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	cmd := Command{Kind: CommandKind(strings.ToLower(keyword)), Arg: strings.TrimSpace(arg)}
	switch cmd.Kind {
	case CmdAdd, CmdClear, CmdSelect, CmdRemove, CmdNew, CmdSave, CmdLoad, CmdShow:
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, keyword)
	}
	if argRequired[cmd.Kind] && cmd.Arg == "" {
		return Command{}, fmt.Errorf("%w: %s needs an argument", ErrMissingArgument, cmd.Kind)
	}
	return cmd, nil
}

// Execute applies cmd to the session state.
// Must not be called concurrently with Run, use Submit instead.
func (s *Session) Execute(cmd Command) (string, error) {
	s.l.Debug("executing command", log.String("cmd", string(cmd.Kind)), log.String("arg", cmd.Arg))
	switch cmd.Kind {
	case CmdAdd:
		if err := s.store.AddPlayer(cmd.Arg); err != nil {
			return "", err
		}
		return fmt.Sprintf("added player %s", strings.TrimSpace(cmd.Arg)), nil

	case CmdClear:
		name := cmd.Arg
		if name == "" {
			name = s.selected
		}
		if name == "" {
			return "", ErrNoPlayerSelected
		}
		if err := s.store.ClearPlayer(name); err != nil {
			return "", err
		}
		if name == s.selected {
			s.guard.arm()
		}
		return fmt.Sprintf("cleared player %s", name), nil

	case CmdSelect:
		if _, ok := s.store.Get(cmd.Arg); !ok {
			return "", fmt.Errorf("%w: %q", leaderboard.ErrNotFound, cmd.Arg)
		}
		if s.selected != cmd.Arg {
			s.selected = cmd.Arg
			s.guard.arm()
		}
		return fmt.Sprintf("selected player %s", cmd.Arg), nil

	case CmdRemove:
		if err := s.store.RemovePlayer(cmd.Arg); err != nil {
			return "", err
		}
		if s.selected == cmd.Arg {
			s.selected = ""
		}
		return fmt.Sprintf("removed player %s", cmd.Arg), nil

	case CmdNew:
		s.store.Reset()
		s.tracker.Reset()
		s.selected = ""
		return "started new leaderboard", nil

	case CmdSave:
		path := cmd.Arg
		if path == "" {
			path = s.boardFile
		}
		if err := s.Save(path); err != nil {
			return "", err
		}
		return fmt.Sprintf("saved leaderboard to %s", path), nil

	case CmdLoad:
		board, err := leaderboard.LoadFile(cmd.Arg)
		if err != nil {
			return "", err
		}
		if err := s.store.Replace(board); err != nil {
			return "", err
		}
		if _, ok := s.store.Get(s.selected); !ok {
			s.selected = ""
		}
		s.guard.arm()
		s.boardFile = cmd.Arg
		return fmt.Sprintf("loaded %d players from %s", s.store.Len(), cmd.Arg), nil

	case CmdShow:
		var buf bytes.Buffer
		leaderboard.Render(&buf, s.store.Snapshot(), s.selected)
		return buf.String(), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Kind)
}
