package bracket

type MatchStatus string

const (
	// Neither opponent is known yet.
	MatchLocked MatchStatus = "locked"
	// One opponent is known, the other is still to be decided.
	MatchWaiting   MatchStatus = "waiting"
	MatchReady     MatchStatus = "ready"
	MatchRunning   MatchStatus = "running"
	MatchCompleted MatchStatus = "completed"
	// The match will never be played (double BYE, unused bracket reset).
	MatchArchived MatchStatus = "archived"
)

type Result string

const (
	ResultWin  Result = "win"
	ResultLoss Result = "loss"
	ResultDraw Result = "draw"
)

// SlotOrder tells which side of a destination match a participant lands in.
type SlotOrder string

const (
	SlotUpper SlotOrder = "UPPER"
	SlotLower SlotOrder = "LOWER"
)

// Slot returns the opponent slot (1 or 2) for the order.
func (o SlotOrder) Slot() int {
	if o == SlotLower {
		return 2
	}
	return 1
}

// OrderForSlot is the inverse of SlotOrder.Slot.
func OrderForSlot(slot int) SlotOrder {
	if slot == 2 {
		return SlotLower
	}
	return SlotUpper
}

// Opponent is one side of a match. A nil *Opponent is a BYE; an Opponent with
// a nil ID is a slot whose participant is not decided yet.
type Opponent struct {
	ID       *int      `json:"id"`
	Position *int      `json:"position,omitempty"`
	Order    SlotOrder `json:"order,omitempty"`
	Score    int       `json:"score,omitempty"`
	Result   Result    `json:"result,omitempty"`
	Forfeit  bool      `json:"forfeit,omitempty"`
}

func (o *Opponent) IsBye() bool {
	return o == nil
}

func (o *Opponent) IsKnown() bool {
	return o != nil && o.ID != nil
}

type Match struct {
	ID         int         `json:"id"`
	StageID    int         `json:"stage_id"`
	GroupID    int         `json:"group_id"`
	RoundID    int         `json:"round_id"`
	Number     int         `json:"number"`
	Status     MatchStatus `json:"status"`
	ChildCount int         `json:"child_count"`

	Opponent1 *Opponent `json:"opponent1"`
	Opponent2 *Opponent `json:"opponent2"`

	WinnerDestinationID    *int      `json:"winner_destination_id,omitempty"`
	WinnerDestinationOrder SlotOrder `json:"winner_destination_order,omitempty"`

	LoserDestinationID    *int      `json:"loser_destination_id,omitempty"`
	LoserDestinationOrder SlotOrder `json:"loser_destination_order,omitempty"`
}

// Opponent returns the opponent in slot 1 or 2.
func (m *Match) Opponent(slot int) *Opponent {
	if slot == 2 {
		return m.Opponent2
	}
	return m.Opponent1
}

func (m *Match) SetOpponent(slot int, o *Opponent) {
	if slot == 2 {
		m.Opponent2 = o
		return
	}
	m.Opponent1 = o
}

// WinnerSlot is 1 or 2 once the match has a winner, 0 otherwise.
func (m *Match) WinnerSlot() int {
	if m.Status != MatchCompleted {
		return 0
	}
	for slot := 1; slot <= 2; slot++ {
		if o := m.Opponent(slot); o != nil && o.Result == ResultWin {
			return slot
		}
	}
	return 0
}

func (m *Match) IsWinner(slot int) bool {
	return m.WinnerSlot() == slot
}

func (m *Match) IsLoser(slot int) bool {
	w := m.WinnerSlot()
	return w != 0 && w != slot
}

// MatchGame is a single game of a best-of match.
type MatchGame struct {
	ID        int         `json:"id"`
	StageID   int         `json:"stage_id"`
	ParentID  int         `json:"parent_id"`
	Number    int         `json:"number"`
	Status    MatchStatus `json:"status"`
	Opponent1 *Opponent   `json:"opponent1"`
	Opponent2 *Opponent   `json:"opponent2"`
}
