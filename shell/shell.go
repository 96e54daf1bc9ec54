// Package shell is an interactive command line for analysing positions
// with the search, the endgame solver and the opening book.
package shell

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"github.com/domino14/othello/board"
	"github.com/domino14/othello/config"
)

var (
	errNoData            = errors.New("no data in this line")
	errWrongOptionSyntax = errors.New("wrong format; all options need arguments")
	errQuit              = errors.New("quit")
)

type shellcmd struct {
	cmd     string
	args    []string
	options CmdOptions
}

// CmdOptions maps -option names to their values.
type CmdOptions map[string]string

func (c CmdOptions) String(key string) string {
	return c[key]
}

func (c CmdOptions) IntDefault(key string, defaultI int) (int, error) {
	v, ok := c[key]
	if !ok {
		return defaultI, nil
	}
	return strconv.Atoi(v)
}

func (c CmdOptions) Bool(key string) bool {
	return strings.ToLower(c[key]) == "true"
}

// extractFields splits a line into a command, positional arguments and
// -key value options.
// isOption reports whether f looks like -name. Boards in compact form also
// start with '-', but they are never a short lowercase word.
func isOption(f string) bool {
	if len(f) < 2 || len(f) > 16 || f[0] != '-' {
		return false
	}
	for i := 1; i < len(f); i++ {
		c := f[i]
		if c >= 'a' && c <= 'z' || (i > 1 && c >= '0' && c <= '9') {
			continue
		}
		return false
	}
	return true
}

func extractFields(line string) (*shellcmd, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errNoData
	}
	cmd := &shellcmd{cmd: fields[0], options: CmdOptions{}}
	for i := 1; i < len(fields); i++ {
		f := fields[i]
		if isOption(f) {
			if i+1 >= len(fields) {
				return nil, errWrongOptionSyntax
			}
			cmd.options[f[1:]] = fields[i+1]
			i++
			continue
		}
		cmd.args = append(cmd.args, f)
	}
	return cmd, nil
}

type Response struct {
	message string
}

func msg(message string) *Response {
	return &Response{message: message}
}

// ShellController holds the game being analysed. The position is stored
// from the mover's point of view; ply parity says which color that is.
type ShellController struct {
	l      *readline.Instance
	config *config.Config

	pos     board.Position
	ply     int
	history []board.Position
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func NewShellController(cfg *config.Config) *ShellController {
	sc := &ShellController{config: cfg}
	sc.newGame()
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[32mothello>\033[0m ",
		HistoryFile:     "/tmp/othello-readline.tmp",
		AutoComplete:    NewShellCompleter(),
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	sc.l = l
	return sc
}

func (sc *ShellController) newGame() {
	sc.pos = board.Start()
	sc.ply = 0
	sc.history = nil
}

func (sc *ShellController) toMove() string {
	if sc.ply%2 == 0 {
		return "black"
	}
	return "white"
}

func (sc *ShellController) display() string {
	return sc.pos.String() + fmt.Sprintf("%s (X) to move, ply %d\n", sc.toMove(), sc.ply)
}

func (sc *ShellController) showMessage(msg string) {
	io.WriteString(sc.l.Stdout(), msg+"\n")
}

func (sc *ShellController) showError(err error) {
	io.WriteString(sc.l.Stderr(), "Error: "+err.Error()+"\n")
}

func (sc *ShellController) dispatch(cmd *shellcmd) (*Response, error) {
	switch cmd.cmd {
	case "new":
		sc.newGame()
		return msg(sc.display()), nil
	case "load":
		return sc.load(cmd)
	case "play", "m":
		return sc.play(cmd)
	case "undo", "p":
		return sc.undo()
	case "s", "show":
		return msg(sc.display()), nil
	case "gen":
		return sc.gen(cmd)
	case "search":
		return sc.search(cmd)
	case "solve":
		return sc.solve(cmd)
	case "bot":
		return sc.bot(cmd)
	case "book":
		return sc.bookLookup()
	case "canon":
		return sc.canon()
	case "autoplay":
		return sc.autoplay(cmd)
	case "help":
		if len(cmd.args) == 0 {
			usage(sc.l.Stderr())
		} else {
			usageTopic(sc.l.Stderr(), cmd.args[0])
		}
		return nil, nil
	case "exit", "bye":
		return nil, errQuit
	}
	log.Debug().Msgf("you said: %v", strconv.Quote(cmd.cmd))
	return nil, fmt.Errorf("unknown command %q; try help", cmd.cmd)
}

func (sc *ShellController) Loop(sig chan os.Signal) {
	defer sc.l.Close()
	sc.showMessage(sc.display())

	for {
		line, err := sc.l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				sig <- syscall.SIGINT
				break
			}
			continue
		} else if err == io.EOF {
			sig <- syscall.SIGINT
			break
		}
		cmd, err := extractFields(line)
		if err == errNoData {
			continue
		}
		if err != nil {
			sc.showError(err)
			continue
		}
		resp, err := sc.dispatch(cmd)
		if err == errQuit {
			sig <- syscall.SIGINT
			break
		}
		if err != nil {
			sc.showError(err)
			continue
		}
		if resp != nil {
			sc.showMessage(resp.message)
		}
	}
	log.Debug().Msg("exiting-readline-loop")
}
