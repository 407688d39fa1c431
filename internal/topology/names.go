package topology

import (
	"fmt"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
)

const (
	defaultBestOf = 3
	finalBestOf   = 5
	grandBestOf   = 7
)

func label(b *Bracket) {
	for i := range b.Winners {
		r := &b.Winners[i]
		last := i == len(b.Winners)-1
		switch {
		case b.Type == bracket.SingleElimination && last:
			r.Name = "Finals"
		case b.Type == bracket.SingleElimination:
			r.Name = fmt.Sprintf("Round %d", r.Number)
		default:
			r.Name = fmt.Sprintf("Winners Round %d", r.Number)
		}
		r.BestOf = defaultBestOf
		if last {
			r.BestOf = finalBestOf
		}
	}

	for i := range b.Losers {
		r := &b.Losers[i]
		r.Name = fmt.Sprintf("Losers Round %d", r.Number)
		r.BestOf = defaultBestOf
		if i == len(b.Losers)-1 {
			r.BestOf = finalBestOf
		}
	}

	for i := range b.Finals {
		r := &b.Finals[i]
		r.Name = "Grand Finals"
		if r.Number == 2 {
			r.Name = "Bracket Reset"
		}
		r.BestOf = grandBestOf
	}
}

// RoundNames lists round names in emission order.
func RoundNames(b *Bracket) []string {
	rounds := b.Rounds()
	names := make([]string, len(rounds))
	for i, r := range rounds {
		names[i] = r.Name
	}
	return names
}

// DefaultBestOf lists the default best-of per round in emission order. It
// grows toward the finals.
func DefaultBestOf(b *Bracket) []int {
	rounds := b.Rounds()
	bestOf := make([]int, len(rounds))
	for i, r := range rounds {
		bestOf[i] = r.BestOf
	}
	return bestOf
}
