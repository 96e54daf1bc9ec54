package automatic

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/domino14/othello/stats"
)

// AnalyzeLogFile summarizes a match results file.
func AnalyzeLogFile(filepath string) (string, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return "", err
	}
	defer file.Close()
	return AnalyzeResults(file)
}

// AnalyzeResults reads results written by WriteResults. Win rates are from
// the point of view of the player in the first game's black seat.
func AnalyzeResults(in io.Reader) (string, error) {
	r := csv.NewReader(in)

	// Record looks like:
	// gameID,black,white,blackDiscs,whiteDiscs,plies
	margin := &stats.Statistic{}
	blackMargin := &stats.Statistic{}

	p1wl := 0.0
	blackWL := 0.0
	gamesPlayed := 0
	var p1Name, p2Name string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if record[0] == "gameID" {
			continue
		}
		black, white := record[1], record[2]
		if p1Name == "" {
			p1Name, p2Name = black, white
		}
		bd, err := strconv.Atoi(record[3])
		if err != nil {
			return "", err
		}
		wd, err := strconv.Atoi(record[4])
		if err != nil {
			return "", err
		}
		blackMargin.Push(float64(bd - wd))

		p1Margin := bd - wd
		if black != p1Name {
			p1Margin = -p1Margin
		}
		margin.Push(float64(p1Margin))
		switch {
		case p1Margin > 0:
			p1wl += 1.0
		case p1Margin == 0:
			p1wl += 0.5
		}
		switch {
		case bd > wd:
			blackWL += 1.0
		case bd == wd:
			blackWL += 0.5
		}
		gamesPlayed++
	}
	if gamesPlayed == 0 {
		return "No games played\n", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Games played: %d\n", gamesPlayed)
	fmt.Fprintf(&sb, "%v wins: %.1f (%.3f%%)\n", p1Name, p1wl, 100.0*p1wl/float64(gamesPlayed))
	fmt.Fprintf(&sb, "%v wins: %.1f (%.3f%%)\n", p2Name, float64(gamesPlayed)-p1wl,
		100.0*(float64(gamesPlayed)-p1wl)/float64(gamesPlayed))
	fmt.Fprintf(&sb, "Black wins: %.1f (%.3f%%)\n", blackWL, 100.0*blackWL/float64(gamesPlayed))
	fmt.Fprintf(&sb, "%v mean margin: %.3f ± %.3f (95%%)  Stdev: %.3f\n",
		p1Name, margin.Mean(), margin.ConfidenceInterval(95), margin.Stdev())
	fmt.Fprintf(&sb, "Black mean margin: %.3f  Stdev: %.3f\n", blackMargin.Mean(), blackMargin.Stdev())
	return sb.String(), nil
}
