package draw

import (
	"fmt"
	"strings"
)

// Split holds a count for each of the two teams.
type Split struct {
	A int `json:"teamA"`
	B int `json:"teamB"`
}

// Balance describes how positions are spread between the teams.
type Balance struct {
	Positions map[Position]Split `json:"positions"`
	Power     Split              `json:"power"`
}

// Report counts players of each position in both teams. Every known
// position is present in the result, with zero counts if nobody plays it.
func Report(teamA, teamB []Player) Balance {
	res := Balance{
		Positions: make(map[Position]Split, len(Positions)),
		Power:     Split{A: len(teamA), B: len(teamB)},
	}

	for _, pos := range Positions {
		res.Positions[pos] = Split{}
	}

	for _, pl := range teamA {
		s := res.Positions[pl.Position]
		s.A++
		res.Positions[pl.Position] = s
	}

	for _, pl := range teamB {
		s := res.Positions[pl.Position]
		s.B++
		res.Positions[pl.Position] = s
	}

	return res
}

// String returns the balance in format "GK 1:1, DF 2:1, ... total 5:5".
func (b Balance) String() string {
	parts := make([]string, 0, len(Positions)+1)
	for _, pos := range Positions {
		s := b.Positions[pos]
		parts = append(parts, fmt.Sprintf("%s %d:%d", pos, s.A, s.B))
	}
	parts = append(parts, fmt.Sprintf("total %d:%d", b.Power.A, b.Power.B))
	return strings.Join(parts, ", ")
}
