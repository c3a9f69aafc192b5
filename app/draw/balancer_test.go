package draw

import (
	"fmt"
	"math/rand"
	"slices"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func squad(counts map[Position]int) []Player {
	var res []Player
	for _, pos := range Positions {
		for i := range counts[pos] {
			id := fmt.Sprintf("%s-%d", pos, i)
			res = append(res, Player{ID: id, Name: strings.ToUpper(id), Position: pos})
		}
	}
	return res
}

func ids(players ...[]Player) []string {
	var res []string
	for _, team := range players {
		for _, pl := range team {
			res = append(res, pl.ID)
		}
	}
	sort.Strings(res)
	return res
}

func keepers(team []Player) int {
	n := 0
	for _, pl := range team {
		if pl.Position == Goalkeeper {
			n++
		}
	}
	return n
}

func TestBalancer_Partition_Sizes(t *testing.T) {
	tbl := []map[Position]int{
		{Forward: 2},
		{Goalkeeper: 2},
		{Goalkeeper: 1, Defender: 1},
		{Goalkeeper: 1, Defender: 2, Midfielder: 2, Forward: 5},
		{Goalkeeper: 2, Defender: 4, Midfielder: 6, Forward: 8},
		{Goalkeeper: 3, Defender: 3, Midfielder: 1, Forward: 1},
		{Goalkeeper: 4, Midfielder: 2},
		{Defender: 7, Midfielder: 7},
		{Goalkeeper: 1, Defender: 5, Midfielder: 6, Forward: 10},
	}

	for i, counts := range tbl {
		t.Run(fmt.Sprintf("case %d", i), func(t *testing.T) {
			players := squad(counts)
			b := Balancer{Rand: rand.New(rand.NewSource(int64(i)))}

			for range 20 {
				teams, err := b.Partition(players)
				require.NoError(t, err)
				assert.Len(t, teams.A, len(players)/2)
				assert.Len(t, teams.B, len(players)/2)
				assert.Equal(t, ids(players), ids(teams.A, teams.B), "every player drawn exactly once")
			}
		})
	}
}

func TestBalancer_Partition_KeepersSplit(t *testing.T) {
	players := squad(map[Position]int{Goalkeeper: 2, Defender: 3, Midfielder: 5, Forward: 4})

	var b Balancer
	for range 500 {
		teams, err := b.Partition(players)
		require.NoError(t, err)
		assert.Equal(t, 1, keepers(teams.A))
		assert.Equal(t, 1, keepers(teams.B))
	}
}

func TestBalancer_Partition_SingleKeeperGoesToA(t *testing.T) {
	players := squad(map[Position]int{Goalkeeper: 1, Defender: 3, Forward: 4})

	var b Balancer
	for range 50 {
		teams, err := b.Partition(players)
		require.NoError(t, err)
		assert.Equal(t, 1, keepers(teams.A))
		assert.Equal(t, 0, keepers(teams.B))
	}
}

func TestBalancer_Partition_ThreeKeepers(t *testing.T) {
	players := squad(map[Position]int{Goalkeeper: 3, Defender: 2, Forward: 3})

	var b Balancer
	for range 50 {
		teams, err := b.Partition(players)
		require.NoError(t, err)
		assert.Equal(t, 2, keepers(teams.A))
		assert.Equal(t, 1, keepers(teams.B))
		assert.Len(t, teams.A, 4)
		assert.Len(t, teams.B, 4)
	}
}

func TestBalancer_Partition_InvalidInput(t *testing.T) {
	tbl := []struct {
		name    string
		players []Player
		reason  string
	}{
		{name: "empty", players: nil, reason: "at least 2 players required"},
		{name: "single", players: squad(map[Position]int{Forward: 1}), reason: "at least 2 players required"},
		{name: "odd", players: squad(map[Position]int{Goalkeeper: 2, Defender: 3, Forward: 4}), reason: "player count must be even"},
		{
			name:    "unknown position",
			players: []Player{{ID: "1", Name: "A", Position: Forward}, {ID: "2", Name: "B", Position: "XX"}},
			reason:  `player "B" has unknown position "XX"`,
		},
	}

	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			teams, err := Balancer{}.Partition(tt.players)
			require.Error(t, err)

			var invalid ErrInvalidInput
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.reason, invalid.Reason)
			assert.Equal(t, len(tt.players), invalid.Count)
			assert.Empty(t, teams.A)
			assert.Empty(t, teams.B)
		})
	}
}

func TestBalancer_Partition_Random(t *testing.T) {
	players := squad(map[Position]int{Goalkeeper: 2, Defender: 5, Midfielder: 5, Forward: 6})
	require.Len(t, players, 18)

	var b Balancer
	seen := map[string]bool{}
	for range 100 {
		teams, err := b.Partition(players)
		require.NoError(t, err)
		seen[strings.Join(ids(teams.A), ",")] = true
	}

	assert.Greater(t, len(seen), 1, "repeated draws should differ")
}

func TestBalancer_Partition_Seeded(t *testing.T) {
	players := squad(map[Position]int{Goalkeeper: 2, Defender: 4, Midfielder: 4, Forward: 4})

	first, err := Balancer{Rand: rand.New(rand.NewSource(42))}.Partition(players)
	require.NoError(t, err)
	second, err := Balancer{Rand: rand.New(rand.NewSource(42))}.Partition(players)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBalancer_Partition_Alternation(t *testing.T) {
	// a source that always picks the current index keeps every bucket in input order
	players := squad(map[Position]int{Goalkeeper: 2, Defender: 3, Midfielder: 2, Forward: 3})

	teams, err := Balancer{Rand: identityRand{}}.Partition(players)
	require.NoError(t, err)

	assert.Equal(t, []string{"GK-0", "DF-0", "DF-2", "MC-1", "FW-1"}, idsInOrder(teams.A))
	assert.Equal(t, []string{"GK-1", "DF-1", "MC-0", "FW-0", "FW-2"}, idsInOrder(teams.B))
}

func TestBalancer_Partition_KeepsInput(t *testing.T) {
	players := squad(map[Position]int{Goalkeeper: 2, Defender: 4, Midfielder: 6, Forward: 8})
	orig := slices.Clone(players)

	var b Balancer
	for range 10 {
		_, err := b.Partition(players)
		require.NoError(t, err)
	}

	assert.Equal(t, orig, players)
}

func TestBalancer_Partition_TwentyPlayers(t *testing.T) {
	players := squad(map[Position]int{Goalkeeper: 2, Defender: 4, Midfielder: 6, Forward: 8})

	var b Balancer
	seen := map[string]bool{}
	for range 50 {
		teams, err := b.Partition(players)
		require.NoError(t, err)
		require.Len(t, teams.A, 10)
		require.Len(t, teams.B, 10)
		assert.Equal(t, 1, keepers(teams.A))
		assert.Equal(t, 1, keepers(teams.B))

		rep := Report(teams.A, teams.B)
		for _, pos := range Positions {
			s := rep.Positions[pos]
			assert.LessOrEqual(t, abs(s.A-s.B), 1, "position %s spread %d:%d", pos, s.A, s.B)
		}
		seen[strings.Join(ids(teams.A), ",")] = true
	}

	assert.Greater(t, len(seen), 1)
}

// redistribution is not reachable with a validated input, it is checked
// directly to make sure it still deals a balanced result.
func TestBalancer_redistribute(t *testing.T) {
	players := squad(map[Position]int{Goalkeeper: 2, Defender: 3, Midfielder: 4, Forward: 3})
	gks := players[:2]

	b := Balancer{Rand: rand.New(rand.NewSource(7))}
	teams, err := b.redistribute(players, gks)
	require.NoError(t, err)
	assert.Len(t, teams.A, 6)
	assert.Len(t, teams.B, 6)
	assert.Equal(t, 1, keepers(teams.A))
	assert.Equal(t, 1, keepers(teams.B))
	assert.Equal(t, ids(players), ids(teams.A, teams.B))

	_, err = b.redistribute(players[:3], gks)
	assert.ErrorIs(t, err, ErrImbalance)
}

type identityRand struct{}

func (identityRand) Intn(n int) int { return n - 1 }

func idsInOrder(team []Player) []string {
	res := make([]string, len(team))
	for i, pl := range team {
		res[i] = pl.ID
	}
	return res
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
