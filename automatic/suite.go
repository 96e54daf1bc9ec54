package automatic

import (
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/domino14/othello/board"
	"github.com/domino14/othello/bot"
	"github.com/domino14/othello/eval"
	"github.com/domino14/othello/protocol"
	"github.com/domino14/othello/stats"
)

// SuitePosition is one benchmark problem. Board uses the ParsePosition
// format with the side to move as X.
type SuitePosition struct {
	ID    string   `yaml:"id"`
	Board string   `yaml:"board"`
	Best  []string `yaml:"best"`
	// Score is the expected score in disks, if known.
	Score *int `yaml:"score,omitempty"`
}

// Suite is a named list of positions searched with the same params.
type Suite struct {
	Name      string          `yaml:"name"`
	EndDepth  int             `yaml:"endDepth"`
	MidDepth  int             `yaml:"midDepth"`
	Exact     bool            `yaml:"exact"`
	Positions []SuitePosition `yaml:"positions"`
}

func (s *Suite) Params() protocol.Params {
	return protocol.Params{EndDepth: s.EndDepth, MidDepth: s.MidDepth, Exact: s.Exact}
}

// ReadSuite parses a YAML suite and checks every position.
func ReadSuite(r io.Reader) (*Suite, error) {
	s := &Suite{}
	if err := yaml.NewDecoder(r).Decode(s); err != nil {
		return nil, fmt.Errorf("decoding suite: %w", err)
	}
	for _, sp := range s.Positions {
		p, err := board.ParsePosition(sp.Board)
		if err != nil {
			return nil, fmt.Errorf("position %s: %w", sp.ID, err)
		}
		for _, b := range sp.Best {
			m, err := board.ParseMove(b)
			if err != nil {
				return nil, fmt.Errorf("position %s: %w", sp.ID, err)
			}
			if m != board.Pass && p.Moves()&m.Bit() == 0 {
				return nil, fmt.Errorf("position %s: best move %s is not legal", sp.ID, b)
			}
		}
	}
	return s, nil
}

func LoadSuite(path string) (*Suite, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSuite(f)
}

// SuiteResult holds per-position outcomes and aggregate timings.
type SuiteResult struct {
	Solved  int
	Scored  int
	Total   int
	Seconds stats.Samples
	Nodes   stats.Samples
	Misses  []string
}

// RunSuite searches every position with b.
func RunSuite(b *bot.Bot, s *Suite) (*SuiteResult, error) {
	res := &SuiteResult{}
	params := s.Params()
	for _, sp := range s.Positions {
		p, err := board.ParsePosition(sp.Board)
		if err != nil {
			return nil, err
		}
		start := time.Now()
		ans, err := b.BestMove(protocol.Request{Position: p, Params: params})
		if err != nil {
			return nil, fmt.Errorf("position %s: %w", sp.ID, err)
		}
		elapsed := time.Since(start)
		res.Seconds.Push(elapsed.Seconds())
		res.Nodes.Push(float64(ans.Nodes))
		res.Total++

		ok := len(sp.Best) == 0 || slices.ContainsFunc(sp.Best, func(b string) bool {
			m, err := board.ParseMove(b)
			return err == nil && m == ans.Move
		})
		if ok {
			res.Solved++
		} else {
			res.Misses = append(res.Misses, sp.ID)
		}
		if sp.Score != nil && ans.Source == bot.SourceEndgame && params.Exact &&
			ans.Score == int32(*sp.Score)*eval.DiskScale {
			res.Scored++
		}
		log.Debug().Str("id", sp.ID).Str("move", ans.Move.String()).Int32("score", ans.Score).
			Bool("solved", ok).Dur("elapsed", elapsed).Uint64("nodes", ans.Nodes).Msg("suite-position")
	}
	return res, nil
}
