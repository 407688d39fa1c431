package bracket

import (
	"github.com/google/uuid"
)

type StageType string

const (
	SingleElimination StageType = "single_elimination"
	DoubleElimination StageType = "double_elimination"
	RoundRobin        StageType = "round_robin"
)

func (t StageType) IsElimination() bool {
	return t == SingleElimination || t == DoubleElimination
}

func (t StageType) Valid() bool {
	return t.IsElimination() || t == RoundRobin
}

// StageSettings is stored alongside the stage so a bracket can be regenerated
// from the same inputs.
type StageSettings struct {
	SeedOrdering   string `json:"seed_ordering,omitempty"`
	BalanceByes    bool   `json:"balance_byes,omitempty"`
	GroupCount     int    `json:"group_count,omitempty"`
	RoundRobinMode string `json:"round_robin_mode,omitempty"`
	Size           int    `json:"size,omitempty"`
}

type Stage struct {
	ID           int           `json:"id"`
	TournamentID uuid.UUID     `json:"tournament_id"`
	Name         string        `json:"name"`
	Type         StageType     `json:"type"`
	Number       int           `json:"number"`
	Settings     StageSettings `json:"settings"`
}

// Group is a round-robin pool, or one side of an elimination bracket.
type Group struct {
	ID      int `json:"id"`
	StageID int `json:"stage_id"`
	Number  int `json:"number"`
}

// Elimination brackets use fixed group numbers per side.
const (
	WinnersGroupNumber = 1
	LosersGroupNumber  = 2
	FinalsGroupNumber  = 3
)

type Side string

const (
	WinnersSide Side = "winners"
	LosersSide  Side = "losers"
	FinalsSide  Side = "finals"
)

type Round struct {
	ID      int    `json:"id"`
	StageID int    `json:"stage_id"`
	GroupID int    `json:"group_id"`
	Number  int    `json:"number"`
	Side    Side   `json:"side"`
	Name    string `json:"name,omitempty"`
	BestOf  int    `json:"best_of,omitempty"`
}

// Position is the signed form of the round's place in the bracket: the depth
// on the winners side, minus the depth on the losers side, 0 for the finals.
// Round robin rounds use their number.
func (r Round) Position() int {
	switch r.Side {
	case LosersSide:
		return -r.Number
	case FinalsSide:
		return 0
	default:
		return r.Number
	}
}

// IsGrandFinal reports whether the round is the first of the finals.
func (r Round) IsGrandFinal() bool {
	return r.Side == FinalsSide && r.Number == 1
}
