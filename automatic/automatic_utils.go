package automatic

// Computer vs computer matches, for comparing evaluators and collecting
// positions.

import (
	"bufio"
	"context"
	"errors"
	"expvar"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/frand"
)

var (
	CVCCounter *expvar.Int
	IsPlaying  *expvar.Int
)

func init() {
	CVCCounter = expvar.NewInt("cvcCounter")
	IsPlaying = expvar.NewInt("isPlaying")
}

// ResultsHeader is the first line of a results file.
const ResultsHeader = "gameID,black,white,blackDiscs,whiteDiscs,plies\n"

// Match describes a series of games between two players. Colors alternate
// from game to game.
type Match struct {
	First       Player
	Second      Player
	NumGames    int
	Threads     int
	RandomPlies int
	// Seeds make the random openings reproducible; game i uses seed
	// i mod len(Seeds). Without seeds every game gets fresh randomness.
	Seeds [][32]byte
	// Positions receives every position reached as "ply,black,white".
	Positions io.Writer
	// Results receives one line per finished game.
	Results io.Writer
}

func (m *Match) rng(gameID int) *rand.Rand {
	if len(m.Seeds) > 0 {
		return rand.New(rand.NewChaCha8(m.Seeds[gameID%len(m.Seeds)]))
	}
	return rand.New(rand.NewPCG(frand.Uint64n(math.MaxUint64), frand.Uint64n(math.MaxUint64)))
}

func (m *Match) runner(gameID int, logchan chan<- string) *GameRunner {
	r := NewGameRunner(logchan, m.First, m.Second, m.RandomPlies)
	if gameID%2 == 1 {
		r.SwapColors()
	}
	return r
}

// Play runs the match and returns the results ordered by game ID. It stops
// early if ctx is cancelled or a game fails.
func (m *Match) Play(ctx context.Context) ([]GameResult, error) {
	if IsPlaying.Value() > 0 {
		return nil, errors.New("games are already being played, please wait till complete")
	}
	if m.Threads < 1 {
		m.Threads = 1
	}
	log.Debug().Int("games", m.NumGames).Int("threads", m.Threads).Msg("starting-match")
	CVCCounter.Set(0)

	var logchan chan string
	var writerDone sync.WaitGroup
	var writeErr error
	if m.Positions != nil {
		logchan = make(chan string, 100)
		writerDone.Add(1)
		go func() {
			defer writerDone.Done()
			w := bufio.NewWriter(m.Positions)
			for msg := range logchan {
				if writeErr == nil {
					_, writeErr = w.WriteString(msg)
				}
			}
			if writeErr == nil {
				writeErr = w.Flush()
			}
		}()
	}

	results := make([]GameResult, m.NumGames)
	jobs := make(chan int, 100)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for i := 0; i < m.NumGames; i++ {
			select {
			case jobs <- i:
			case <-ctx.Done():
				log.Info().Msg("got stop signal, exiting soon...")
				return ctx.Err()
			}
		}
		return nil
	})
	for t := 0; t < m.Threads; t++ {
		g.Go(func() error {
			IsPlaying.Add(1)
			defer IsPlaying.Add(-1)
			for id := range jobs {
				res, err := m.runner(id, logchan).PlayGame(id, m.rng(id))
				if err != nil {
					return err
				}
				results[id] = res
				CVCCounter.Add(1)
				if n := CVCCounter.Value(); n%100 == 0 {
					log.Info().Int64("games", n).Msg("match-progress")
				}
			}
			return nil
		})
	}

	err := g.Wait()
	if logchan != nil {
		close(logchan)
		writerDone.Wait()
	}
	if err != nil {
		return nil, err
	}
	if writeErr != nil {
		return nil, fmt.Errorf("writing positions: %w", writeErr)
	}
	if m.Results != nil {
		if err := WriteResults(m.Results, results); err != nil {
			return nil, err
		}
	}
	log.Info().Int("games", len(results)).
		Int(m.First.Name, lo.CountBy(results, func(r GameResult) bool { return r.Winner() == m.First.Name })).
		Int(m.Second.Name, lo.CountBy(results, func(r GameResult) bool { return r.Winner() == m.Second.Name })).
		Msg("match-finished")
	return results, nil
}

// Winner is the name of the player with more discs, or "" for a draw.
func (g GameResult) Winner() string {
	switch {
	case g.BlackDiscs > g.WhiteDiscs:
		return g.Black
	case g.WhiteDiscs > g.BlackDiscs:
		return g.White
	}
	return ""
}

// WriteResults writes the results file read by AnalyzeLogFile.
func WriteResults(w io.Writer, results []GameResult) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(ResultsHeader)
	for _, r := range results {
		fmt.Fprintf(bw, "%d,%s,%s,%d,%d,%d\n", r.GameID, r.Black, r.White, r.BlackDiscs, r.WhiteDiscs, r.Plies)
	}
	return bw.Flush()
}
