package assign

import (
	"fmt"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/topology"
	"github.com/AdamBeresnev/bracket-engine/internal/utils"
)

// source is where a match slot gets its participant from.
type source struct {
	match int
	loser bool
}

type draft struct {
	match *bracket.Match
	// Round-1 seeds; nil entries are BYEs.
	seeds []*int
	first bool
	feeds [2][]source
	// Whether a real participant can ever reach each slot.
	occupied [2]bool
}

func (d *draft) canWin() bool  { return d.occupied[0] || d.occupied[1] }
func (d *draft) canLose() bool { return d.occupied[0] && d.occupied[1] }

type roundDraft struct {
	round bracket.Round
	ids   []int
}

type eliminationBuilder struct {
	opts   Options
	drafts []*draft
	rounds []*roundDraft
}

// TournamentRoundsForDB builds every round and match of an elimination
// bracket from an already seeded slot list: seeded[2i] and seeded[2i+1] meet
// in round 1 and nil entries are BYEs. The length must be exactly the slot
// count the topology expects for the number of real participants; nothing is
// built otherwise.
func TournamentRoundsForDB(t bracket.StageType, seeded []*int, opts Options) (*Plan, error) {
	if err := checkParticipants(seeded); err != nil {
		return nil, err
	}
	if err := checkBestOf(opts); err != nil {
		return nil, err
	}

	topo, err := topology.Build(topology.Occupancy(seeded), t)
	if err != nil {
		return nil, err
	}

	b := &eliminationBuilder{opts: opts}
	b.build(topo, seeded)
	b.resolve()

	plan := &Plan{Type: t, Topology: topo}
	plan.Groups = append(plan.Groups, bracket.Group{ID: 0, Number: bracket.WinnersGroupNumber})
	if t == bracket.DoubleElimination {
		plan.Groups = append(plan.Groups,
			bracket.Group{ID: 1, Number: bracket.LosersGroupNumber},
			bracket.Group{ID: 2, Number: bracket.FinalsGroupNumber},
		)
	}

	for _, rd := range b.rounds {
		pr := PlannedRound{Round: rd.round}
		for _, id := range rd.ids {
			pr.Matches = append(pr.Matches, *b.drafts[id].match)
		}
		plan.Rounds = append(plan.Rounds, pr)
	}
	return plan, nil
}

func checkParticipants(seeded []*int) error {
	seen := make(map[int]bool)
	for _, s := range seeded {
		if s == nil {
			continue
		}
		if seen[*s] {
			return fmt.Errorf("%w: participant %d is seeded twice", bracket.ErrValidation, *s)
		}
		seen[*s] = true
	}
	if len(seen) < 2 {
		return fmt.Errorf("%w: at least 2 participants are required, got %d", bracket.ErrValidation, len(seen))
	}
	return nil
}

func checkBestOf(opts Options) error {
	for key, bestOf := range opts.BestOf {
		if bestOf < 1 {
			return fmt.Errorf("%w: best-of for %s round %d must be positive, got %d", bracket.ErrValidation, key.Side, key.Number, bestOf)
		}
	}
	return nil
}

func groupFor(side bracket.Side) int {
	switch side {
	case bracket.LosersSide:
		return 1
	case bracket.FinalsSide:
		return 2
	}
	return 0
}

func (b *eliminationBuilder) newRound(rs topology.RoundSpec) []int {
	bestOf := rs.BestOf
	if override, ok := b.opts.BestOf[RoundKey{Side: rs.Side, Number: rs.Number}]; ok {
		bestOf = override
	}

	rd := &roundDraft{
		round: bracket.Round{
			ID:      len(b.rounds),
			GroupID: groupFor(rs.Side),
			Number:  rs.Number,
			Side:    rs.Side,
			Name:    rs.Name,
			BestOf:  bestOf,
		},
	}
	for i := 0; i < rs.Matches; i++ {
		id := len(b.drafts)
		b.drafts = append(b.drafts, &draft{match: &bracket.Match{
			ID:         id,
			GroupID:    rd.round.GroupID,
			RoundID:    rd.round.ID,
			Number:     i + 1,
			ChildCount: ChildCount(bestOf),
		}})
		rd.ids = append(rd.ids, id)
	}
	b.rounds = append(b.rounds, rd)
	return rd.ids
}

// link routes the winner (or loser) of from into a slot of to.
func (b *eliminationBuilder) link(from, to int, order bracket.SlotOrder, loser bool) {
	m := b.drafts[from].match
	if loser {
		m.LoserDestinationID = utils.Ptr(to)
		m.LoserDestinationOrder = order
	} else {
		m.WinnerDestinationID = utils.Ptr(to)
		m.WinnerDestinationOrder = order
	}
	slot := order.Slot() - 1
	b.drafts[to].feeds[slot] = append(b.drafts[to].feeds[slot], source{match: from, loser: loser})
}

// parityOrder puts even matches of a round in the upper slot of their
// destination and odd ones in the lower slot.
func parityOrder(j int) bracket.SlotOrder {
	return bracket.OrderForSlot(j%2 + 1)
}

func (b *eliminationBuilder) build(topo *topology.Bracket, seeded []*int) {
	depth := topo.WinnersDepth()

	winners := make([][]int, depth+1)
	for _, rs := range topo.Winners {
		winners[rs.Number] = b.newRound(rs)
	}
	for i, id := range winners[1] {
		d := b.drafts[id]
		d.first = true
		d.seeds = seeded[2*i : 2*i+2]
	}
	for r := 1; r < depth; r++ {
		for j, id := range winners[r] {
			b.link(id, winners[r+1][j/2], parityOrder(j), false)
		}
	}

	if topo.Type != bracket.DoubleElimination {
		return
	}

	losers := topo.Losers
	nextLosers := func() []int {
		rs := losers[0]
		losers = losers[1:]
		return b.newRound(rs)
	}

	var previous []int
	for k := 1; k < depth; k++ {
		switch {
		case k == 1 && !topo.SkipsFirstLosersRound:
			reduction := nextLosers()
			for j, id := range winners[1] {
				b.link(id, reduction[j/2], parityOrder(j), true)
			}
			previous = reduction
		case k > 1:
			reduction := nextLosers()
			for j, id := range previous {
				b.link(id, reduction[j/2], parityOrder(j), false)
			}
			previous = reduction
		}

		dropIn := nextLosers()
		count := len(dropIn)
		// Alternate the drop-in order so early rematches are pushed back.
		for j, id := range winners[k+1] {
			target := j
			if k%2 == 1 {
				target = count - 1 - j
			}
			b.link(id, dropIn[target], bracket.SlotUpper, true)
		}
		if previous == nil {
			for j, id := range winners[1] {
				b.link(id, dropIn[j/2], bracket.SlotLower, true)
			}
		} else {
			for j, id := range previous {
				b.link(id, dropIn[j], bracket.SlotLower, false)
			}
		}
		previous = dropIn
	}

	grandFinal := b.newRound(topo.Finals[0])[0]
	reset := b.newRound(topo.Finals[1])[0]

	b.link(winners[depth][0], grandFinal, bracket.SlotUpper, false)
	if previous == nil {
		b.link(winners[depth][0], grandFinal, bracket.SlotLower, true)
	} else {
		b.link(previous[0], grandFinal, bracket.SlotLower, false)
	}
	// The reset is only played when the losers-side finalist takes the grand
	// final; the winners-side finalist stays in the upper slot.
	b.link(grandFinal, reset, bracket.SlotLower, false)
	b.link(grandFinal, reset, bracket.SlotUpper, true)
}

// resolve fills opponents and statuses. Drafts are visited in id order, and
// every source has a lower id than the match it feeds.
func (b *eliminationBuilder) resolve() {
	for _, d := range b.drafts {
		if d.first {
			for slot := 0; slot < 2; slot++ {
				d.occupied[slot] = d.seeds[slot] != nil
			}
			continue
		}
		for slot := 0; slot < 2; slot++ {
			for _, src := range d.feeds[slot] {
				from := b.drafts[src.match]
				if (src.loser && from.canLose()) || (!src.loser && from.canWin()) {
					d.occupied[slot] = true
				}
			}
		}
	}

	for _, d := range b.drafts {
		m := d.match
		for slot := 1; slot <= 2; slot++ {
			switch {
			case d.first && d.seeds[slot-1] != nil:
				pos := 2*(m.Number-1) + slot
				m.SetOpponent(slot, &bracket.Opponent{ID: utils.Ptr(*d.seeds[slot-1]), Position: utils.Ptr(pos)})
			case d.first, !d.occupied[slot-1]:
				m.SetOpponent(slot, nil)
			case m.Opponent(slot) == nil:
				// Not filled by an earlier BYE advance.
				m.SetOpponent(slot, &bracket.Opponent{})
			}
		}
		b.settle(d)
	}
}

// settle sets the status of a freshly resolved match and advances a lone
// participant facing a BYE.
func (b *eliminationBuilder) settle(d *draft) {
	m := d.match
	if !d.canWin() {
		m.Status = bracket.MatchArchived
		return
	}

	known := 0
	for slot := 1; slot <= 2; slot++ {
		if m.Opponent(slot).IsKnown() {
			known++
		}
	}

	if d.canLose() {
		switch known {
		case 2:
			m.Status = bracket.MatchReady
		case 1:
			m.Status = bracket.MatchWaiting
		default:
			m.Status = bracket.MatchLocked
		}
		return
	}

	// Exactly one slot can ever be filled.
	slot := 1
	if m.Opponent1.IsBye() {
		slot = 2
	}
	if known == 0 {
		m.Status = bracket.MatchLocked
		return
	}

	winner := m.Opponent(slot)
	winner.Result = bracket.ResultWin
	m.Status = bracket.MatchCompleted

	if m.WinnerDestinationID == nil {
		return
	}
	dest := b.drafts[*m.WinnerDestinationID].match
	order := m.WinnerDestinationOrder
	dest.SetOpponent(order.Slot(), &bracket.Opponent{ID: utils.Ptr(*winner.ID), Order: order})
}
