package main

import (
	"context"
	"fmt"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/service"
)

func (a *app) printStage(ctx context.Context, stageID int) error {
	data, err := a.stages.Get(ctx, stageID)
	if err != nil {
		return err
	}
	view := service.PrepareView(data)

	fmt.Fprintf(a.out, "%s (%s)\n", view.Stage.Name, view.Stage.Type)
	for _, pool := range view.Pools {
		fmt.Fprintf(a.out, "\nGroup %d\n", pool.Group.Number)
		a.printRounds(view, pool.Rounds)
	}
	a.printRounds(view, view.Winners)
	a.printRounds(view, view.Losers)
	a.printRounds(view, view.Finals)
	return nil
}

func (a *app) printRounds(view service.BracketView, rounds []service.RoundView) {
	for _, r := range rounds {
		fmt.Fprintf(a.out, "\n%s (best of %d)\n", r.Round.Name, max(r.Round.BestOf, 1))
		for _, m := range r.Matches {
			fmt.Fprintf(a.out, "  #%-4d %-10s %s vs %s\n", m.ID, m.Status,
				side(view, m, 1), side(view, m, 2))
		}
	}
}

func side(view service.BracketView, m bracket.Match, slot int) string {
	o := m.Opponent(slot)
	name := view.ParticipantName(o)
	if o == nil {
		return name
	}
	switch {
	case m.IsWinner(slot):
		return fmt.Sprintf("%s [W %d]", name, o.Score)
	case m.IsLoser(slot) && o.Forfeit:
		return fmt.Sprintf("%s [forfeit]", name)
	case m.IsLoser(slot):
		return fmt.Sprintf("%s [L %d]", name, o.Score)
	case o.Score > 0:
		return fmt.Sprintf("%s (%d)", name, o.Score)
	}
	return name
}
