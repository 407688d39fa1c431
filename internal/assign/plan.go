// Package assign turns a seeded participant list and a bracket topology into
// concrete group, round and match records ready to be inserted into the
// store.
package assign

import (
	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/topology"
)

// RoundKey names a round independently of storage ids.
type RoundKey struct {
	Side   bracket.Side
	Number int
}

type Options struct {
	// Best-of overrides per round. Rounds not listed keep the default.
	BestOf map[RoundKey]int
}

type PlannedRound struct {
	Round   bracket.Round
	Matches []bracket.Match
}

// Plan is generator output. Ids are local and 0-based in emission order:
// groups, rounds and matches reference each other by these ids, and match
// destinations point at local match ids.
type Plan struct {
	Type     bracket.StageType
	Topology *topology.Bracket
	Groups   []bracket.Group
	Rounds   []PlannedRound
}

// Matches returns every match in id order.
func (p *Plan) Matches() []bracket.Match {
	var out []bracket.Match
	for _, r := range p.Rounds {
		out = append(out, r.Matches...)
	}
	return out
}

// ChildCount is the number of games stored under a match. A best-of-1 match
// is its own game and has none.
func ChildCount(bestOf int) int {
	if bestOf <= 1 {
		return 0
	}
	return bestOf
}
