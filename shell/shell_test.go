package shell

import (
	"os"
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/domino14/othello/board"
	"github.com/domino14/othello/config"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	os.Exit(m.Run())
}

func testController() *ShellController {
	cfg := config.DefaultConfig()
	cfg.Set(config.ConfigCacheSizePowerOf2, 12)
	sc := &ShellController{config: cfg}
	sc.newGame()
	return sc
}

func run(t *testing.T, sc *ShellController, line string) (*Response, error) {
	t.Helper()
	cmd, err := extractFields(line)
	if err != nil {
		t.Fatal(err)
	}
	return sc.dispatch(cmd)
}

func TestExtractFields(t *testing.T) {
	is := is.New(t)
	type testdata struct {
		line   string
		expCmd *shellcmd
		expErr error
	}
	cases := []testdata{
		{"", nil, errNoData},
		{"search -depth 6",
			&shellcmd{"search", nil, CmdOptions{"depth": "6"}},
			nil},
		{"play d3 c5",
			&shellcmd{"play", []string{"d3", "c5"}, CmdOptions{}},
			nil},
		{`load "XO--" white -x 1 `,
			&shellcmd{"load", []string{"XO--", "white"}, CmdOptions{"x": "1"}},
			nil,
		},
		{"bot -mid 4 -book",
			nil, errWrongOptionSyntax},
		{"load " + board.Start().Compact() + " -x 1",
			&shellcmd{"load", []string{board.Start().Compact()}, CmdOptions{"x": "1"}},
			nil},
		{"load -OX- black",
			&shellcmd{"load", []string{"-OX-", "black"}, CmdOptions{}},
			nil},
	}
	for _, tc := range cases {
		cmd, err := extractFields(tc.line)
		is.Equal(cmd, tc.expCmd)
		is.Equal(err, tc.expErr)
	}
}

func TestPlayAndUndo(t *testing.T) {
	is := is.New(t)
	sc := testController()

	_, err := run(t, sc, "play d3 c5")
	is.NoErr(err)
	is.Equal(sc.ply, 2)
	is.Equal(sc.toMove(), "black")
	is.Equal(sc.pos.Empties(), 58)

	_, err = run(t, sc, "play a1")
	is.True(err != nil)
	_, err = run(t, sc, "play pass")
	is.True(err != nil)

	_, err = run(t, sc, "undo")
	is.NoErr(err)
	is.Equal(sc.ply, 1)
	is.Equal(sc.toMove(), "white")
	_, err = run(t, sc, "undo")
	is.NoErr(err)
	is.Equal(sc.pos, board.Start())
	_, err = run(t, sc, "undo")
	is.True(err != nil)
}

func TestLoad(t *testing.T) {
	is := is.New(t)
	sc := testController()
	_, err := run(t, sc, "load "+board.Start().Pass().Compact()+" white")
	is.NoErr(err)
	is.Equal(sc.ply, 1)
	is.Equal(sc.pos, board.Start().Pass())
	_, err = run(t, sc, "load XO")
	is.True(err != nil)
}

func TestAnalysisCommands(t *testing.T) {
	is := is.New(t)
	sc := testController()

	resp, err := run(t, sc, "gen")
	is.NoErr(err)
	is.Equal(strings.Count(resp.message, "\n"), 5) // header plus 4 moves

	resp, err = run(t, sc, "search -depth 3 -eval positional")
	is.NoErr(err)
	is.True(strings.HasPrefix(resp.message, "best "))

	_, err = run(t, sc, "solve")
	is.True(err != nil) // too many empties

	full := board.Position{Mover: board.Full >> 24, Opponent: ^(board.Full >> 24)}
	sc.pos = full
	resp, err = run(t, sc, "solve -wld true")
	is.NoErr(err)
	is.True(strings.Contains(resp.message, "score +16"))

	sc.newGame()
	resp, err = run(t, sc, "canon")
	is.NoErr(err)
	is.True(strings.HasPrefix(resp.message, "transform identity"))

	_, err = run(t, sc, "book")
	is.True(err != nil) // no book configured

	resp, err = run(t, sc, "bot -mid 2 -play true")
	is.NoErr(err)
	is.True(strings.Contains(resp.message, "source midgame"))
	is.Equal(sc.ply, 1)

	_, err = run(t, sc, "exit")
	is.Equal(err, errQuit)
}

func TestCompleter(t *testing.T) {
	is := is.New(t)
	c := NewShellCompleter()
	line := []rune("sea")
	matches, n := c.Do(line, len(line))
	is.Equal(n, 3)
	is.Equal(matches, [][]rune{[]rune("rch")})

	line = []rune("search -eval p")
	matches, n = c.Do(line, len(line))
	is.Equal(n, 1)
	is.Equal(matches, [][]rune{[]rune("ositional")})

	line = []rune("bot -")
	matches, _ = c.Do(line, len(line))
	is.Equal(len(matches), 6)
}
