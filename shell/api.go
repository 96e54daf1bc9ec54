package shell

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/domino14/othello/automatic"
	"github.com/domino14/othello/board"
	"github.com/domino14/othello/bot"
	"github.com/domino14/othello/cache"
	"github.com/domino14/othello/config"
	"github.com/domino14/othello/eval"
	"github.com/domino14/othello/protocol"
	"github.com/domino14/othello/search"
	"github.com/domino14/othello/symmetry"
)

const (
	defaultSearchDepth = 4
	// solving takes too long past this
	maxShellSolveEmpties = 22
)

func disks(centidisks int32) string {
	return fmt.Sprintf("%+.2f", float64(centidisks)/eval.DiskScale)
}

func pvString(pv []board.Move) string {
	return strings.Join(lo.Map(pv, func(m board.Move, _ int) string { return m.String() }), " ")
}

func (sc *ShellController) table() *search.Table {
	pow := sc.config.GetInt(config.ConfigCacheSizePowerOf2)
	if pow <= 0 {
		pow = search.SizeForMemory(sc.config.GetFloat64(config.ConfigCacheMemoryFraction))
	}
	return search.NewTable(pow, nil)
}

func (sc *ShellController) evaluator(opts CmdOptions) (eval.Evaluator, error) {
	if name := opts.String("eval"); name != "" {
		return cache.EvaluatorNamed(sc.config, name)
	}
	return cache.Evaluator(sc.config)
}

func (sc *ShellController) load(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return nil, errors.New("usage: load <board> [black|white]")
	}
	p, err := board.ParsePosition(cmd.args[0])
	if err != nil {
		return nil, err
	}
	sc.newGame()
	sc.pos = p
	if len(cmd.args) > 1 && strings.HasPrefix(strings.ToLower(cmd.args[1]), "w") {
		sc.ply = 1
	}
	return msg(sc.display()), nil
}

func (sc *ShellController) playMove(m board.Move) error {
	if m == board.Pass {
		if sc.pos.HasMoves() {
			return errors.New("cannot pass with legal moves available")
		}
		if sc.pos.GameOver() {
			return errors.New("the game is over")
		}
	} else if sc.pos.Moves()&m.Bit() == 0 {
		return fmt.Errorf("%v is not a legal move", m)
	}
	sc.history = append(sc.history, sc.pos)
	sc.pos = sc.pos.Play(m)
	sc.ply++
	return nil
}

func (sc *ShellController) play(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return nil, errors.New("usage: play <move>")
	}
	for _, a := range cmd.args {
		m, err := board.ParseMove(a)
		if err != nil {
			return nil, err
		}
		if err := sc.playMove(m); err != nil {
			return nil, err
		}
	}
	return msg(sc.display()), nil
}

func (sc *ShellController) undo() (*Response, error) {
	if len(sc.history) == 0 {
		return nil, errors.New("nothing to undo")
	}
	sc.pos = sc.history[len(sc.history)-1]
	sc.history = sc.history[:len(sc.history)-1]
	sc.ply--
	return msg(sc.display()), nil
}

type scoredMove struct {
	move  board.Move
	score int32
}

func (sc *ShellController) gen(cmd *shellcmd) (*Response, error) {
	ev, err := sc.evaluator(cmd.options)
	if err != nil {
		return nil, err
	}
	moves := board.MoveList(sc.pos.Moves())
	if len(moves) == 0 {
		return msg("no legal moves; pass"), nil
	}
	scored := make([]scoredMove, 0, len(moves))
	for _, m := range moves {
		child := sc.pos.Play(m)
		var v int32
		if child.GameOver() {
			v = eval.MidgameTerminal(child)
		} else {
			v, err = ev.Evaluate(child)
			if err != nil {
				return nil, err
			}
		}
		scored = append(scored, scoredMove{m, -v})
	}
	slices.SortStableFunc(scored, func(a, b scoredMove) int {
		return int(b.score) - int(a.score)
	})
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-4s %8s %6s\n", "move", "eval", "flips")
	for _, s := range scored {
		flips := board.Flips(s.move, sc.pos.Mover, sc.pos.Opponent)
		fmt.Fprintf(&sb, "%-4s %8s %6d\n", s.move, disks(s.score), bits.OnesCount64(flips))
	}
	return msg(sb.String()), nil
}

func (sc *ShellController) search(cmd *shellcmd) (*Response, error) {
	depth, err := cmd.options.IntDefault("depth", defaultSearchDepth)
	if err != nil {
		return nil, err
	}
	ev, err := sc.evaluator(cmd.options)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := search.NewMidgame(ev, sc.table()).Root(sc.pos, -eval.MaxScore, eval.MaxScore, depth)
	if err != nil {
		return nil, err
	}
	return msg(fmt.Sprintf("best %v  score %s  depth %d  nodes %d  time %v\npv %s",
		res.Move, disks(res.Score), depth, res.Nodes, time.Since(start).Round(time.Millisecond),
		pvString(res.PV))), nil
}

func (sc *ShellController) solve(cmd *shellcmd) (*Response, error) {
	if e := sc.pos.Empties(); e > maxShellSolveEmpties {
		return nil, fmt.Errorf("%d empties is too many to solve here (max %d)", e, maxShellSolveEmpties)
	}
	var window int32 = board.NumCells
	kind := "exact"
	if cmd.options.Bool("wld") {
		window = 1
		kind = "wld"
	}
	start := time.Now()
	res, err := search.NewEndgame(sc.table()).Root(sc.pos, -window, window, search.MaxEndgameDepth)
	if err != nil {
		return nil, err
	}
	return msg(fmt.Sprintf("%s solve: best %v  score %+d disks  nodes %d  time %v\npv %s",
		kind, res.Move, res.Score, res.Nodes, time.Since(start).Round(time.Millisecond),
		pvString(res.PV))), nil
}

func (sc *ShellController) bot(cmd *shellcmd) (*Response, error) {
	b, err := bot.FromConfig(sc.config)
	if err != nil {
		return nil, err
	}
	mid, err := cmd.options.IntDefault("mid", 6)
	if err != nil {
		return nil, err
	}
	end, err := cmd.options.IntDefault("end", 14)
	if err != nil {
		return nil, err
	}
	req := protocol.Request{
		Position:      sc.pos,
		RemainingTime: 6000,
		Params: protocol.DecodeParams(protocol.Params{
			EndDepth:    end,
			MidDepth:    mid,
			Exact:       cmd.options.Bool("exact"),
			AdaptiveWLD: cmd.options.Bool("adaptive"),
			UseBook:     cmd.options.Bool("book"),
		}.Encode()),
	}
	start := time.Now()
	ans, err := b.BestMove(req)
	if err != nil {
		return nil, err
	}
	out := fmt.Sprintf("%v  score %s  source %v  nodes %d  time %v  (%v)",
		ans.Move, disks(ans.Score), ans.Source, ans.Nodes,
		time.Since(start).Round(time.Millisecond), req.Params)
	if cmd.options.Bool("play") {
		if err := sc.playMove(ans.Move); err != nil {
			return nil, err
		}
		out += "\n" + sc.display()
	}
	return msg(out), nil
}

func (sc *ShellController) bookLookup() (*Response, error) {
	bk, err := cache.Book(sc.config)
	if err != nil {
		return nil, err
	}
	if bk == nil {
		return nil, errors.New("no opening book configured; set book-path")
	}
	hit, ok, err := bk.Lookup(sc.pos)
	if err != nil {
		return nil, err
	}
	if !ok {
		return msg("not in book"), nil
	}
	return msg(fmt.Sprintf("book: %v  score %s", hit.Move, disks(hit.Score))), nil
}

func (sc *ShellController) canon() (*Response, error) {
	c, t := symmetry.Canonicalize(sc.pos)
	return msg(fmt.Sprintf("transform %v\n%s\n%s", t, c.Compact(), c.String())), nil
}

func (sc *ShellController) autoplay(cmd *shellcmd) (*Response, error) {
	games, err := cmd.options.IntDefault("games", 100)
	if err != nil {
		return nil, err
	}
	threads, err := cmd.options.IntDefault("threads", 4)
	if err != nil {
		return nil, err
	}
	randomPlies, err := cmd.options.IntDefault("random", 8)
	if err != nil {
		return nil, err
	}
	out := cmd.options.String("out")
	if out == "" {
		out = "/tmp/othello-games.csv"
	}
	b, err := bot.FromConfig(sc.config)
	if err != nil {
		return nil, err
	}
	params := protocol.Params{EndDepth: 12, MidDepth: 4, Exact: true}
	m := &automatic.Match{
		First:       automatic.Player{Name: sc.config.GetString(config.ConfigEvaluator), Bot: b, Params: params},
		Second:      automatic.Player{Name: "heuristic-baseline", Bot: bot.NewBot(sc.config, nil, eval.Heuristic{}), Params: params},
		NumGames:    games,
		Threads:     threads,
		RandomPlies: randomPlies,
	}
	resultsFile, err := os.Create(out)
	if err != nil {
		return nil, err
	}
	defer resultsFile.Close()
	m.Results = resultsFile
	if pf := cmd.options.String("positions"); pf != "" {
		positionsFile, err := os.Create(pf)
		if err != nil {
			return nil, err
		}
		defer positionsFile.Close()
		m.Positions = positionsFile
	}
	if _, err := m.Play(context.Background()); err != nil {
		return nil, err
	}
	if err := resultsFile.Sync(); err != nil {
		return nil, err
	}
	summary, err := automatic.AnalyzeLogFile(out)
	if err != nil {
		return nil, err
	}
	return msg(summary), nil
}
