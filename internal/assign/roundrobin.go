package assign

import (
	"fmt"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/roundrobin"
	"github.com/AdamBeresnev/bracket-engine/internal/utils"
)

const defaultRoundRobinBestOf = 3

// RoundRobinRoundsForDB builds one group per participant list, each with its
// own circle-method schedule. Pairings that land on the bye seat are not
// stored. Best-of overrides are keyed by round number with an empty side.
func RoundRobinRoundsForDB(groups [][]int, mode roundrobin.Mode, opts Options) (*Plan, error) {
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: at least one group is required", bracket.ErrValidation)
	}
	if err := checkBestOf(opts); err != nil {
		return nil, err
	}
	seen := make(map[int]bool)
	for gi, group := range groups {
		if len(group) < 2 {
			return nil, fmt.Errorf("%w: group %d needs at least 2 participants, got %d", bracket.ErrValidation, gi+1, len(group))
		}
		for _, id := range group {
			if seen[id] {
				return nil, fmt.Errorf("%w: participant %d appears in more than one slot", bracket.ErrValidation, id)
			}
			seen[id] = true
		}
	}

	plan := &Plan{Type: bracket.RoundRobin}
	matchID := 0
	for gi, group := range groups {
		plan.Groups = append(plan.Groups, bracket.Group{ID: gi, Number: gi + 1})

		schedule, err := roundrobin.Schedule(group, mode)
		if err != nil {
			return nil, err
		}
		for ri, pairings := range schedule {
			bestOf := defaultRoundRobinBestOf
			if override, ok := opts.BestOf[RoundKey{Number: ri + 1}]; ok {
				bestOf = override
			}
			pr := PlannedRound{Round: bracket.Round{
				ID:      len(plan.Rounds),
				GroupID: gi,
				Number:  ri + 1,
				Name:    fmt.Sprintf("Round %d", ri+1),
				BestOf:  bestOf,
			}}
			for _, p := range pairings {
				if p.Bye {
					continue
				}
				pr.Matches = append(pr.Matches, bracket.Match{
					ID:         matchID,
					GroupID:    gi,
					RoundID:    pr.Round.ID,
					Number:     len(pr.Matches) + 1,
					Status:     bracket.MatchReady,
					ChildCount: ChildCount(bestOf),
					Opponent1:  &bracket.Opponent{ID: utils.Ptr(p.Opponent1)},
					Opponent2:  &bracket.Opponent{ID: utils.Ptr(p.Opponent2)},
				})
				matchID++
			}
			plan.Rounds = append(plan.Rounds, pr)
		}
	}
	return plan, nil
}
