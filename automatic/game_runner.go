// Package automatic plays computer-vs-computer games and runs benchmark
// position suites against the bot.
package automatic

import (
	"fmt"
	"math/bits"
	"math/rand/v2"

	"github.com/rs/zerolog/log"

	"github.com/domino14/othello/board"
	"github.com/domino14/othello/bot"
	"github.com/domino14/othello/protocol"
)

// Player is a bot plus the params it sends with every request.
type Player struct {
	Name   string
	Bot    *bot.Bot
	Params protocol.Params
}

// GameResult is the outcome of one game, from black's point of view.
type GameResult struct {
	GameID     int
	Black      string
	White      string
	BlackDiscs int
	WhiteDiscs int
	Plies      int
}

func (g GameResult) Margin() int {
	return g.BlackDiscs - g.WhiteDiscs
}

// GameRunner plays games between two players. Every position reached is
// sent to logchan as a "ply,black,white" line when logchan is not nil.
type GameRunner struct {
	players     [2]Player
	randomPlies int
	logchan     chan<- string
}

// NewGameRunner returns a runner whose games open with randomPlies random
// moves before the players take over.
func NewGameRunner(logchan chan<- string, black, white Player, randomPlies int) *GameRunner {
	return &GameRunner{
		players:     [2]Player{black, white},
		randomPlies: randomPlies,
		logchan:     logchan,
	}
}

// SwapColors exchanges black and white.
func (r *GameRunner) SwapColors() {
	r.players[0], r.players[1] = r.players[1], r.players[0]
}

// colors converts a position at the given ply back to (black, white).
func colors(p board.Position, ply int) (uint64, uint64) {
	if ply%2 == 0 {
		return p.Mover, p.Opponent
	}
	return p.Opponent, p.Mover
}

func (r *GameRunner) logPosition(p board.Position, ply int) {
	if r.logchan == nil {
		return
	}
	black, white := colors(p, ply)
	r.logchan <- fmt.Sprintf("%d,%d,%d\n", ply, black, white)
}

// PlayGame plays one game to the end. rng drives the random opening.
// Passes count as plies so that ply parity always gives the side to move.
func (r *GameRunner) PlayGame(gameID int, rng *rand.Rand) (GameResult, error) {
	p := board.Start()
	ply := 0
	for !p.GameOver() {
		r.logPosition(p, ply)
		var m board.Move
		if !p.HasMoves() {
			m = board.Pass
		} else if ply < r.randomPlies {
			moves := board.MoveList(p.Moves())
			m = moves[rng.IntN(len(moves))]
		} else {
			pl := r.players[ply%2]
			ans, err := pl.Bot.BestMove(protocol.Request{Position: p, Params: pl.Params})
			if err != nil {
				return GameResult{}, fmt.Errorf("game %d ply %d: %w", gameID, ply, err)
			}
			m = ans.Move
			if m != board.Pass && p.Moves()&m.Bit() == 0 {
				return GameResult{}, fmt.Errorf("game %d ply %d: %s played illegal %v", gameID, ply, pl.Name, m)
			}
		}
		p = p.Play(m)
		ply++
	}
	r.logPosition(p, ply)

	black, white := colors(p, ply)
	res := GameResult{
		GameID:     gameID,
		Black:      r.players[0].Name,
		White:      r.players[1].Name,
		BlackDiscs: bits.OnesCount64(black),
		WhiteDiscs: bits.OnesCount64(white),
		Plies:      ply,
	}
	log.Debug().Int("game", gameID).Int("black", res.BlackDiscs).
		Int("white", res.WhiteDiscs).Int("plies", ply).Msg("game-over")
	return res, nil
}
