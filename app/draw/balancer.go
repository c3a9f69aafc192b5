// Package draw splits a selection of players into two balanced teams.
package draw

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
)

// ErrImbalance is issued when the drawn teams differ in size even after
// the redistribution pass. It should never happen for a valid input.
var ErrImbalance = errors.New("teams are not of equal size")

// ErrInvalidInput indicates that the selection of players cannot be drawn.
type ErrInvalidInput struct {
	Count  int
	Reason string
}

// Error returns the error message.
func (e ErrInvalidInput) Error() string {
	return fmt.Sprintf("invalid draw of %d players: %s", e.Count, e.Reason)
}

// Rand is a source of uniform random integers in [0, n).
// *rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

type globalRand struct{}

func (globalRand) Intn(n int) int { return rand.Intn(n) }

// Teams is the result of a draw.
type Teams struct {
	A []Player `json:"teamA"`
	B []Player `json:"teamB"`
}

// Balancer draws fair teams. The zero value uses the global random source
// and is safe for concurrent use.
type Balancer struct {
	Rand Rand
}

// Partition splits players into two teams of equal size. Goalkeepers are
// dealt first, alternating between the teams, so two keepers never end up
// on the same side. Defenders, midfielders and forwards follow in that
// order, continuing the same alternation. Each position group is shuffled
// beforehand, so repeated draws over the same players differ.
func (b Balancer) Partition(players []Player) (Teams, error) {
	if err := validate(players); err != nil {
		return Teams{}, err
	}

	buckets := make(map[Position][]Player, len(Positions))
	for _, pl := range players {
		buckets[pl.Position] = append(buckets[pl.Position], pl)
	}
	for _, pos := range Positions {
		b.shuffle(buckets[pos])
	}

	var teams Teams
	keepers := buckets[Goalkeeper]
	b.deal(&teams, keepers, 0)

	counter := len(keepers)
	for _, pos := range Positions[1:] {
		counter = b.deal(&teams, buckets[pos], counter)
	}

	if len(teams.A) == len(players)/2 && len(teams.B) == len(players)/2 {
		log.Printf("[DEBUG] drawn %d players, %v", len(players), Report(teams.A, teams.B))
		return teams, nil
	}

	log.Printf("[WARN] unbalanced draw %d vs %d of %d players, redistributing",
		len(teams.A), len(teams.B), len(players))

	return b.redistribute(players, keepers)
}

// redistribute deals the keepers as usual and then alternates all the other
// players pooled together in one shuffled sequence.
func (b Balancer) redistribute(players, keepers []Player) (Teams, error) {
	var rest []Player
	for _, pl := range players {
		if pl.Position != Goalkeeper {
			rest = append(rest, pl)
		}
	}
	b.shuffle(rest)

	var teams Teams
	b.deal(&teams, rest, b.deal(&teams, keepers, 0))

	if len(teams.A) != len(teams.B) || len(teams.A)+len(teams.B) != len(players) {
		return Teams{}, fmt.Errorf("redistribute %d players, got %d vs %d: %w",
			len(players), len(teams.A), len(teams.B), ErrImbalance)
	}

	return teams, nil
}

// deal appends players to team A on even counter values and to team B on
// odd ones, returning the counter after the last player.
func (b Balancer) deal(teams *Teams, players []Player, counter int) int {
	for _, pl := range players {
		if counter%2 == 0 {
			teams.A = append(teams.A, pl)
		} else {
			teams.B = append(teams.B, pl)
		}
		counter++
	}
	return counter
}

// shuffle is a Fisher-Yates shuffle in place.
func (b Balancer) shuffle(players []Player) {
	rnd := b.Rand
	if rnd == nil {
		rnd = globalRand{}
	}

	for i := len(players) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		players[i], players[j] = players[j], players[i]
	}
}

func validate(players []Player) error {
	switch {
	case len(players) < 2:
		return ErrInvalidInput{Count: len(players), Reason: "at least 2 players required"}
	case len(players)%2 != 0:
		return ErrInvalidInput{Count: len(players), Reason: "player count must be even"}
	}

	for _, pl := range players {
		if !pl.Position.Valid() {
			return ErrInvalidInput{
				Count:  len(players),
				Reason: fmt.Sprintf("player %q has unknown position %q", pl.Name, pl.Position),
			}
		}
	}

	return nil
}
