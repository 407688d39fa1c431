package maplist

import (
	"math/rand/v2"
	"testing"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stages(ids ...int) []StageID {
	out := make([]StageID, len(ids))
	for i, id := range ids {
		out[i] = StageID(id)
	}
	return out
}

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// byMode splits the generated list into each mode's draw order.
func byMode(rounds [][]Entry) map[Mode][]StageID {
	out := make(map[Mode][]StageID)
	for _, round := range rounds {
		for _, e := range round {
			out[e.Mode] = append(out[e.Mode], e.StageID)
		}
	}
	return out
}

var fullPool = map[Mode][]StageID{
	"SZ": stages(1, 2, 3, 4, 5, 6),
	"TC": stages(1, 3, 7, 8, 9),
	"RM": stages(2, 4, 10, 11),
	"CB": stages(5, 6, 12),
}

func TestGenerate_Shape(t *testing.T) {
	modes := []Mode{"SZ", "TC", "RM", "CB"}
	rounds, err := Generate(fullPool, modes, []int{3, 5, 7}, Options{Rand: seeded(1)})
	require.NoError(t, err)

	require.Len(t, rounds, 3)
	assert.Len(t, rounds[0], 3)
	assert.Len(t, rounds[1], 5)
	assert.Len(t, rounds[2], 7)

	// Modes cycle across round boundaries.
	assert.Equal(t, Mode("SZ"), rounds[0][0].Mode)
	assert.Equal(t, Mode("RM"), rounds[0][2].Mode)
	assert.Equal(t, Mode("CB"), rounds[1][0].Mode)
	assert.Equal(t, Mode("SZ"), rounds[1][1].Mode)

	for _, round := range rounds {
		for _, e := range round {
			assert.Contains(t, fullPool[e.Mode], e.StageID)
		}
	}
}

func TestGenerate_NoRecentRepeatsAndFullCoverage(t *testing.T) {
	modes := []Mode{"SZ", "TC", "RM", "CB"}
	sizes := []int{3, 3, 5, 5, 7, 7, 5, 5, 3, 7, 7, 5}

	for seed := uint64(0); seed < 50; seed++ {
		rounds, err := Generate(fullPool, modes, sizes, Options{Rand: seeded(seed)})
		require.NoError(t, err)

		for mode, drawn := range byMode(rounds) {
			for i := range drawn {
				for j := max(0, i-Backlog); j < i; j++ {
					require.NotEqual(t, drawn[j], drawn[i], "seed %d mode %s repeats within the backlog at %d", seed, mode, i)
				}
			}

			pool := fullPool[mode]
			if len(drawn) >= len(pool) {
				assert.ElementsMatch(t, pool, drawn[:len(pool)], "seed %d mode %s", seed, mode)
			}
		}
	}
}

func TestGenerate_SmallPools(t *testing.T) {
	testCases := []struct {
		name  string
		pool  []StageID
		check func(t *testing.T, drawn []StageID)
	}{
		{
			name: "two stages alternate",
			pool: stages(1, 2),
			check: func(t *testing.T, drawn []StageID) {
				for i := 1; i < len(drawn); i++ {
					assert.NotEqual(t, drawn[i-1], drawn[i])
				}
			},
		},
		{
			name: "one stage repeats",
			pool: stages(4),
			check: func(t *testing.T, drawn []StageID) {
				for _, s := range drawn {
					assert.Equal(t, StageID(4), s)
				}
			},
		},
		{
			name: "duplicates are ignored",
			pool: stages(1, 1, 2, 2, 3),
			check: func(t *testing.T, drawn []StageID) {
				assert.ElementsMatch(t, stages(1, 2, 3), drawn[:3])
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rounds, err := Generate(map[Mode][]StageID{"SZ": tc.pool}, []Mode{"SZ"}, []int{5, 5}, Options{Rand: seeded(7)})
			require.NoError(t, err)
			drawn := byMode(rounds)["SZ"]
			require.Len(t, drawn, 10)
			tc.check(t, drawn)
		})
	}
}

func TestGenerate_Reproducible(t *testing.T) {
	modes := []Mode{"SZ", "TC"}
	first, err := Generate(fullPool, modes, []int{5, 5, 5}, Options{Rand: seeded(42)})
	require.NoError(t, err)
	second, err := Generate(fullPool, modes, []int{5, 5, 5}, Options{Rand: seeded(42)})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerate_Popularity(t *testing.T) {
	pool := map[Mode][]StageID{"SZ": stages(1, 2, 3, 4, 5)}
	popularity := map[Mode]map[StageID]float64{"SZ": {1: 100, 2: 1}}

	rounds, err := Generate(pool, []Mode{"SZ"}, []int{7, 7, 7, 7}, Options{Popularity: popularity, Rand: seeded(3)})
	require.NoError(t, err)

	drawn := byMode(rounds)["SZ"]
	count := 0
	for i, s := range drawn {
		if s == 1 {
			count++
		}
		for j := max(0, i-Backlog); j < i; j++ {
			require.NotEqual(t, drawn[j], s)
		}
	}
	// Stage 1 is drawn whenever the backlog allows it.
	assert.GreaterOrEqual(t, count, len(drawn)/4)
}

func TestGenerate_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		pool  map[Mode][]StageID
		modes []Mode
		sizes []int
	}{
		{name: "no modes", pool: fullPool, modes: nil, sizes: []int{3}},
		{name: "empty pool", pool: map[Mode][]StageID{"SZ": nil}, modes: []Mode{"SZ"}, sizes: []int{3}},
		{name: "unknown mode", pool: fullPool, modes: []Mode{"TW"}, sizes: []int{3}},
		{name: "empty round", pool: fullPool, modes: []Mode{"SZ"}, sizes: []int{3, 0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Generate(tc.pool, tc.modes, tc.sizes, Options{Rand: seeded(1)})
			assert.ErrorIs(t, err, bracket.ErrValidation)
		})
	}
}
