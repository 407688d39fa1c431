package service

import (
	"sort"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
)

type RoundView struct {
	Round   bracket.Round
	Matches []bracket.Match
}

type PoolView struct {
	Group  bracket.Group
	Rounds []RoundView
}

// BracketView is a stage laid out for display. Elimination stages fill the
// three sides, round robin stages fill Pools.
type BracketView struct {
	Stage        bracket.Stage
	Winners      []RoundView
	Losers       []RoundView
	Finals       []RoundView
	Pools        []PoolView
	Participants map[int]bracket.Participant
}

func PrepareView(data *StageData) BracketView {
	view := BracketView{Stage: *data.Stage, Participants: data.Participants}

	byRound := make(map[int][]bracket.Match)
	for _, m := range data.Matches {
		byRound[m.RoundID] = append(byRound[m.RoundID], m)
	}

	rounds := make([]RoundView, 0, len(data.Rounds))
	for _, r := range data.Rounds {
		matches := byRound[r.ID]
		sort.Slice(matches, func(i, j int) bool {
			return matches[i].Number < matches[j].Number
		})
		rounds = append(rounds, RoundView{Round: r, Matches: matches})
	}
	sort.SliceStable(rounds, func(i, j int) bool {
		return rounds[i].Round.Number < rounds[j].Round.Number
	})

	if data.Stage.Type == bracket.RoundRobin {
		groups := append([]bracket.Group(nil), data.Groups...)
		sort.Slice(groups, func(i, j int) bool { return groups[i].Number < groups[j].Number })
		for _, g := range groups {
			pool := PoolView{Group: g}
			for _, r := range rounds {
				if r.Round.GroupID == g.ID {
					pool.Rounds = append(pool.Rounds, r)
				}
			}
			view.Pools = append(view.Pools, pool)
		}
		return view
	}

	for _, r := range rounds {
		switch r.Round.Side {
		case bracket.WinnersSide:
			view.Winners = append(view.Winners, r)
		case bracket.LosersSide:
			view.Losers = append(view.Losers, r)
		case bracket.FinalsSide:
			view.Finals = append(view.Finals, r)
		}
	}
	return view
}

// ParticipantName is the display name for a slot.
func (v BracketView) ParticipantName(o *bracket.Opponent) string {
	switch {
	case o.IsBye():
		return "BYE"
	case !o.IsKnown():
		return "TBD"
	}
	if p, ok := v.Participants[*o.ID]; ok {
		return p.Name
	}
	return "?"
}
