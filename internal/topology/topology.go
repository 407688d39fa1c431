// Package topology computes the abstract shape of elimination brackets:
// how many rounds each side has, how many matches per round, their names
// and default best-of.
package topology

import (
	"fmt"
	"math/bits"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/seeding"
)

type RoundSpec struct {
	Side    bracket.Side
	Number  int
	Matches int
	Name    string
	BestOf  int
}

type Bracket struct {
	Type         bracket.StageType
	Participants int
	// Number of round-1 slots, always a power of two.
	Size    int
	Winners []RoundSpec
	Losers  []RoundSpec
	// Grand Finals and Bracket Reset. Empty for single elimination.
	Finals []RoundSpec
	// Set when no two first-round losers can meet, so the first losers round
	// would only contain BYEs. Winners round 1 losers then drop straight into
	// what would have been losers round 2.
	SkipsFirstLosersRound bool
}

type Counts struct {
	Winners int
	Losers  int
}

// Counts reports the winners-side rounds (finals included) and the losers-side
// rounds.
func (b *Bracket) Counts() Counts {
	return Counts{Winners: len(b.Winners) + len(b.Finals), Losers: len(b.Losers)}
}

// Rounds lists every round in emission order: winners, losers, finals.
func (b *Bracket) Rounds() []RoundSpec {
	out := make([]RoundSpec, 0, len(b.Winners)+len(b.Losers)+len(b.Finals))
	out = append(out, b.Winners...)
	out = append(out, b.Losers...)
	return append(out, b.Finals...)
}

// WinnersDepth is log2(Size): the number of winners rounds before the finals.
func (b *Bracket) WinnersDepth() int {
	return bits.TrailingZeros(uint(b.Size))
}

// EliminationBracket returns the topology for n participants placed with the
// standard inner_outer seeding, which gives the BYEs to the top seeds.
func EliminationBracket(n int, t bracket.StageType) (*Bracket, error) {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i + 1
	}
	slots, err := seeding.EliminationSlots(ids, seeding.InnerOuter, false)
	if err != nil {
		return nil, err
	}
	return Build(Occupancy(slots), t)
}

// Occupancy marks which round-1 slots hold a real participant.
func Occupancy(slots []*int) []bool {
	occupied := make([]bool, len(slots))
	for i, s := range slots {
		occupied[i] = s != nil
	}
	return occupied
}

// Build returns the topology for a concrete round-1 layout.
func Build(occupied []bool, t bracket.StageType) (*Bracket, error) {
	if !t.IsElimination() {
		return nil, fmt.Errorf("%w: %q is not an elimination bracket", bracket.ErrValidation, t)
	}

	n := 0
	for _, o := range occupied {
		if o {
			n++
		}
	}
	if n < 2 {
		return nil, fmt.Errorf("%w: at least 2 participants are required, got %d", bracket.ErrValidation, n)
	}
	size := seeding.NextPowerOfTwo(n)
	if len(occupied) != size {
		return nil, fmt.Errorf("%w: %d participants need %d slots, got %d", bracket.ErrValidation, n, size, len(occupied))
	}

	b := &Bracket{Type: t, Participants: n, Size: size}
	depth := b.WinnersDepth()

	for r := 1; r <= depth; r++ {
		b.Winners = append(b.Winners, RoundSpec{Side: bracket.WinnersSide, Number: r, Matches: size >> r})
	}

	if t == bracket.DoubleElimination {
		b.SkipsFirstLosersRound = depth >= 2 && !firstLosersRoundPlayable(occupied)
		b.Losers = losersRounds(size, depth, b.SkipsFirstLosersRound)
		// The losers finalist can always win the grand final, so the reset
		// round is always needed.
		b.Finals = []RoundSpec{
			{Side: bracket.FinalsSide, Number: 1, Matches: 1},
			{Side: bracket.FinalsSide, Number: 2, Matches: 1},
		}
	}

	label(b)
	return b, nil
}

// firstLosersRoundPlayable simulates round 1: a match only produces a loser
// when both slots are filled, and the first losers round pairs the losers of
// adjacent matches.
func firstLosersRoundPlayable(occupied []bool) bool {
	losers := make([]bool, len(occupied)/2)
	for j := range losers {
		losers[j] = occupied[2*j] && occupied[2*j+1]
	}
	for j := 0; j+1 < len(losers); j += 2 {
		if losers[j] && losers[j+1] {
			return true
		}
	}
	return false
}

// losersRounds alternates a reduction round (survivors play each other) with
// a drop-in round (survivors meet the losers of the next winners round),
// until a single match remains.
func losersRounds(size, depth int, skipFirst bool) []RoundSpec {
	var rounds []RoundSpec
	number := 0
	for k := 1; k < depth; k++ {
		matches := size >> (k + 1)
		if !(k == 1 && skipFirst) {
			number++
			rounds = append(rounds, RoundSpec{Side: bracket.LosersSide, Number: number, Matches: matches})
		}
		number++
		rounds = append(rounds, RoundSpec{Side: bracket.LosersSide, Number: number, Matches: matches})
	}
	return rounds
}
