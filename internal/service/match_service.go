package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
)

// MatchService reports results and moves participants through the bracket.
// It performs no permission checks. Reports on the same match must be
// serialised by the caller.
type MatchService struct {
	store *store.Store
}

func NewMatchService(s *store.Store) *MatchService {
	return &MatchService{store: s}
}

// ReportGame records the winner of one game of a best-of match. The match is
// resolved once a side holds a majority of the games.
func (s *MatchService) ReportGame(ctx context.Context, matchID, number, winnerSlot int) (*bracket.Match, error) {
	if winnerSlot != 1 && winnerSlot != 2 {
		return nil, fmt.Errorf("%w: winner slot must be 1 or 2, got %d", bracket.ErrValidation, winnerSlot)
	}

	var result *bracket.Match
	err := s.store.Atomic(ctx, func(tx *store.Store) error {
		m, err := loadMatch(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if err := checkPlayable(m); err != nil {
			return err
		}

		games, err := store.SelectWhere[bracket.MatchGame](ctx, tx, store.MatchGames, store.Filter{"parent_id": matchID, "number": number})
		if err != nil {
			return err
		}
		if len(games) == 0 {
			return fmt.Errorf("%w: game %d of match %d", bracket.ErrNotFound, number, matchID)
		}
		game := games[0]
		if game.Status != bracket.MatchReady {
			return fmt.Errorf("%w: game %d of match %d is %s", bracket.ErrConsistency, number, matchID, game.Status)
		}

		game.Status = bracket.MatchCompleted
		setResults(game.Opponent1, game.Opponent2, winnerSlot)
		if !tx.Update(ctx, store.MatchGames, game.ID, game) {
			return fmt.Errorf("failed to update game %d", game.ID)
		}

		score := m.Opponent(winnerSlot).Score + 1
		patch := map[string]any{"status": bracket.MatchRunning}
		patch[fmt.Sprintf("opponent%d", winnerSlot)] = map[string]any{"score": score}
		if !tx.UpdateWhere(ctx, store.Matches, store.Filter{"id": matchID}, patch) {
			return fmt.Errorf("failed to update match %d", matchID)
		}

		if m, err = loadMatch(ctx, tx, matchID); err != nil {
			return err
		}
		if score > m.ChildCount/2 {
			if err := s.complete(ctx, tx, m, winnerSlot, false); err != nil {
				return err
			}
		}

		result, err = loadMatch(ctx, tx, matchID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ResolveWinner decides a match directly, without games.
func (s *MatchService) ResolveWinner(ctx context.Context, matchID, participantID int) (*bracket.Match, error) {
	return s.decide(ctx, matchID, participantID, false)
}

// Forfeit decides a match against participantID.
func (s *MatchService) Forfeit(ctx context.Context, matchID, participantID int) (*bracket.Match, error) {
	return s.decide(ctx, matchID, participantID, true)
}

func (s *MatchService) decide(ctx context.Context, matchID, participantID int, forfeit bool) (*bracket.Match, error) {
	var result *bracket.Match
	err := s.store.Atomic(ctx, func(tx *store.Store) error {
		m, err := loadMatch(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if err := checkPlayable(m); err != nil {
			return err
		}

		slot := slotOf(m, participantID)
		if slot == 0 {
			return fmt.Errorf("%w: participant %d is not in match %d", bracket.ErrValidation, participantID, matchID)
		}
		if forfeit {
			slot = 3 - slot
		}

		if err := s.complete(ctx, tx, m, slot, forfeit); err != nil {
			return err
		}
		result, err = loadMatch(ctx, tx, matchID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// complete marks the winner and sends both participants on. Every
// destination is loaded before anything is written.
func (s *MatchService) complete(ctx context.Context, tx *store.Store, m *bracket.Match, winnerSlot int, forfeit bool) error {
	winner, loser := m.Opponent(winnerSlot), m.Opponent(3-winnerSlot)
	if !winner.IsKnown() || (loser != nil && !loser.IsKnown()) {
		return fmt.Errorf("%w: match %d does not have both opponents", bracket.ErrConsistency, m.ID)
	}

	winnerDest, err := destination(ctx, tx, m.WinnerDestinationID)
	if err != nil {
		return err
	}
	loserDest, err := destination(ctx, tx, m.LoserDestinationID)
	if err != nil {
		return err
	}

	setResults(m.Opponent1, m.Opponent2, winnerSlot)
	if loser != nil {
		loser.Forfeit = forfeit
	}
	m.Status = bracket.MatchCompleted
	if err := saveMatch(ctx, tx, m); err != nil {
		return err
	}
	if err := archiveUnplayedGames(ctx, tx, m.ID); err != nil {
		return err
	}
	slog.Debug("match completed", "match_id", m.ID, "winner", *winner.ID)

	// The winners-side finalist taking the grand final ends the bracket.
	ends, err := endsBracket(ctx, tx, m, winnerSlot)
	if err != nil {
		return err
	}
	if ends {
		winnerDest.Status = bracket.MatchArchived
		if err := saveMatch(ctx, tx, winnerDest); err != nil {
			return err
		}
		return archiveUnplayedGames(ctx, tx, winnerDest.ID)
	}

	if winnerDest != nil {
		if err := s.place(ctx, tx, winnerDest.ID, m.WinnerDestinationOrder, *winner.ID); err != nil {
			return err
		}
	}
	if loserDest != nil && loser != nil {
		if err := s.place(ctx, tx, loserDest.ID, m.LoserDestinationOrder, *loser.ID); err != nil {
			return err
		}
	}
	return nil
}

// place writes a participant into a destination slot and settles the
// destination, advancing the participant again when it faces a BYE.
func (s *MatchService) place(ctx context.Context, tx *store.Store, destID int, order bracket.SlotOrder, participantID int) error {
	dest, err := loadMatch(ctx, tx, destID)
	if err != nil {
		return err
	}
	slot := order.Slot()
	if o := dest.Opponent(slot); o.IsBye() || o.IsKnown() {
		return fmt.Errorf("%w: slot %d of match %d cannot take a participant", bracket.ErrConsistency, slot, destID)
	}

	patch := map[string]any{
		fmt.Sprintf("opponent%d", slot): map[string]any{"id": participantID, "order": order},
	}
	if !tx.UpdateWhere(ctx, store.Matches, store.Filter{"id": destID}, patch) {
		return fmt.Errorf("failed to update match %d", destID)
	}

	if dest, err = loadMatch(ctx, tx, destID); err != nil {
		return err
	}
	if dest.Opponent(3 - slot).IsBye() {
		return s.complete(ctx, tx, dest, slot, false)
	}

	dest.Status = waitingStatus(dest)
	if err := saveMatch(ctx, tx, dest); err != nil {
		return err
	}
	return syncGames(ctx, tx, dest)
}

// Undo reopens a completed match. Participants it sent on are taken back,
// which fails when a destination has already been played.
func (s *MatchService) Undo(ctx context.Context, matchID int) (*bracket.Match, error) {
	var result *bracket.Match
	err := s.store.Atomic(ctx, func(tx *store.Store) error {
		m, err := loadMatch(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if m.Status != bracket.MatchCompleted {
			return fmt.Errorf("%w: match %d is %s, not completed", bracket.ErrConsistency, matchID, m.Status)
		}
		if m.Opponent1.IsBye() || m.Opponent2.IsBye() {
			return fmt.Errorf("%w: match %d was decided by a BYE", bracket.ErrConsistency, matchID)
		}
		if err := checkUndo(ctx, tx, m); err != nil {
			return err
		}

		if err := s.takeBack(ctx, tx, m); err != nil {
			return err
		}
		for _, o := range []*bracket.Opponent{m.Opponent1, m.Opponent2} {
			*o = bracket.Opponent{ID: o.ID, Position: o.Position, Order: o.Order}
		}
		m.Status = bracket.MatchReady
		if err := saveMatch(ctx, tx, m); err != nil {
			return err
		}
		if err := resetGames(ctx, tx, m); err != nil {
			return err
		}

		result, err = loadMatch(ctx, tx, matchID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// checkUndo walks the destinations of a completed match. Matches that were
// only completed by a BYE are walked through.
func checkUndo(ctx context.Context, tx *store.Store, m *bracket.Match) error {
	if ends, err := endsBracket(ctx, tx, m, m.WinnerSlot()); err != nil || ends {
		return err
	}
	for _, id := range []*int{m.WinnerDestinationID, m.LoserDestinationID} {
		dest, err := destination(ctx, tx, id)
		if err != nil || dest == nil {
			return err
		}
		switch dest.Status {
		case bracket.MatchRunning:
			return fmt.Errorf("%w: match %d is already running", bracket.ErrConsistency, dest.ID)
		case bracket.MatchCompleted:
			if !dest.Opponent1.IsBye() && !dest.Opponent2.IsBye() {
				return fmt.Errorf("%w: match %d has already been played", bracket.ErrConsistency, dest.ID)
			}
			if err := checkUndo(ctx, tx, dest); err != nil {
				return err
			}
		}
	}
	return nil
}

// takeBack removes the participants a completed match sent on.
func (s *MatchService) takeBack(ctx context.Context, tx *store.Store, m *bracket.Match) error {
	winnerSlot := m.WinnerSlot()
	ends, err := endsBracket(ctx, tx, m, winnerSlot)
	if err != nil {
		return err
	}
	if ends {
		reset, err := loadMatch(ctx, tx, *m.WinnerDestinationID)
		if err != nil {
			return err
		}
		reset.Status = bracket.MatchLocked
		if err := saveMatch(ctx, tx, reset); err != nil {
			return err
		}
		return syncGames(ctx, tx, reset)
	}

	if m.WinnerDestinationID != nil {
		winner := m.Opponent(winnerSlot)
		if err := s.unplace(ctx, tx, *m.WinnerDestinationID, m.WinnerDestinationOrder, *winner.ID); err != nil {
			return err
		}
	}
	if loser := m.Opponent(3 - winnerSlot); m.LoserDestinationID != nil && loser != nil {
		if err := s.unplace(ctx, tx, *m.LoserDestinationID, m.LoserDestinationOrder, *loser.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *MatchService) unplace(ctx context.Context, tx *store.Store, destID int, order bracket.SlotOrder, participantID int) error {
	dest, err := loadMatch(ctx, tx, destID)
	if err != nil {
		return err
	}

	if dest.Status == bracket.MatchCompleted {
		// Completed against a BYE when the participant arrived.
		if err := s.takeBack(ctx, tx, dest); err != nil {
			return err
		}
	}

	slot := order.Slot()
	if o := dest.Opponent(slot); !o.IsKnown() || *o.ID != participantID {
		return fmt.Errorf("%w: participant %d is not in slot %d of match %d", bracket.ErrConsistency, participantID, slot, destID)
	}
	dest.SetOpponent(slot, &bracket.Opponent{})
	if other := dest.Opponent(3 - slot); other != nil {
		*other = bracket.Opponent{ID: other.ID, Position: other.Position, Order: other.Order}
	}
	dest.Status = waitingStatus(dest)
	if err := saveMatch(ctx, tx, dest); err != nil {
		return err
	}
	return syncGames(ctx, tx, dest)
}

func loadMatch(ctx context.Context, tx *store.Store, id int) (*bracket.Match, error) {
	m, err := store.SelectByID[bracket.Match](ctx, tx, store.Matches, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("%w: match %d", bracket.ErrNotFound, id)
	}
	return m, nil
}

// destination loads a linked match. A link that does not resolve is a
// consistency error rather than a missing resource.
func destination(ctx context.Context, tx *store.Store, id *int) (*bracket.Match, error) {
	if id == nil {
		return nil, nil
	}
	m, err := loadMatch(ctx, tx, *id)
	if errors.Is(err, bracket.ErrNotFound) {
		return nil, fmt.Errorf("%w: destination match %d does not exist", bracket.ErrConsistency, *id)
	}
	return m, err
}

func saveMatch(ctx context.Context, tx *store.Store, m *bracket.Match) error {
	if !tx.Update(ctx, store.Matches, m.ID, m) {
		return fmt.Errorf("failed to update match %d", m.ID)
	}
	return nil
}

func checkPlayable(m *bracket.Match) error {
	if m.Status != bracket.MatchReady && m.Status != bracket.MatchRunning {
		return fmt.Errorf("%w: match %d is %s", bracket.ErrConsistency, m.ID, m.Status)
	}
	if !m.Opponent1.IsKnown() || !m.Opponent2.IsKnown() {
		return fmt.Errorf("%w: match %d does not have both opponents", bracket.ErrConsistency, m.ID)
	}
	return nil
}

func slotOf(m *bracket.Match, participantID int) int {
	for slot := 1; slot <= 2; slot++ {
		if o := m.Opponent(slot); o.IsKnown() && *o.ID == participantID {
			return slot
		}
	}
	return 0
}

// endsBracket reports whether the winners-side finalist took the grand final,
// which leaves the bracket reset unplayed. The grand final is found by its
// round: in a two player bracket the winners final also sends both players
// to one match.
func endsBracket(ctx context.Context, tx *store.Store, m *bracket.Match, winnerSlot int) (bool, error) {
	if winnerSlot != 1 || m.WinnerDestinationID == nil {
		return false, nil
	}
	r, err := store.SelectByID[bracket.Round](ctx, tx, store.Rounds, m.RoundID)
	if err != nil {
		return false, err
	}
	if r == nil {
		return false, fmt.Errorf("%w: round %d of match %d does not exist", bracket.ErrConsistency, m.RoundID, m.ID)
	}
	return r.IsGrandFinal(), nil
}

func waitingStatus(m *bracket.Match) bracket.MatchStatus {
	known := 0
	for slot := 1; slot <= 2; slot++ {
		if m.Opponent(slot).IsKnown() {
			known++
		}
	}
	switch known {
	case 2:
		return bracket.MatchReady
	case 1:
		return bracket.MatchWaiting
	}
	return bracket.MatchLocked
}

func setResults(o1, o2 *bracket.Opponent, winnerSlot int) {
	winner, loser := o1, o2
	if winnerSlot == 2 {
		winner, loser = o2, o1
	}
	if winner != nil {
		winner.Result = bracket.ResultWin
	}
	if loser != nil {
		loser.Result = bracket.ResultLoss
	}
}

func gamesOf(ctx context.Context, tx *store.Store, matchID int) ([]bracket.MatchGame, error) {
	return store.SelectWhere[bracket.MatchGame](ctx, tx, store.MatchGames, store.Filter{"parent_id": matchID})
}

// syncGames copies the match opponents and status onto its unplayed games.
func syncGames(ctx context.Context, tx *store.Store, m *bracket.Match) error {
	games, err := gamesOf(ctx, tx, m.ID)
	if err != nil {
		return err
	}
	for _, g := range games {
		if g.Status == bracket.MatchCompleted {
			continue
		}
		g.Status = gameStatus(m.Status)
		g.Opponent1, g.Opponent2 = idOnly(m.Opponent1), idOnly(m.Opponent2)
		if !tx.Update(ctx, store.MatchGames, g.ID, g) {
			return fmt.Errorf("failed to update game %d", g.ID)
		}
	}
	return nil
}

func archiveUnplayedGames(ctx context.Context, tx *store.Store, matchID int) error {
	games, err := gamesOf(ctx, tx, matchID)
	if err != nil {
		return err
	}
	for _, g := range games {
		if g.Status == bracket.MatchCompleted || g.Status == bracket.MatchArchived {
			continue
		}
		g.Status = bracket.MatchArchived
		if !tx.Update(ctx, store.MatchGames, g.ID, g) {
			return fmt.Errorf("failed to update game %d", g.ID)
		}
	}
	return nil
}

// resetGames makes every game of a reopened match playable again.
func resetGames(ctx context.Context, tx *store.Store, m *bracket.Match) error {
	games, err := gamesOf(ctx, tx, m.ID)
	if err != nil {
		return err
	}
	for _, g := range games {
		g.Status = bracket.MatchReady
		g.Opponent1, g.Opponent2 = idOnly(m.Opponent1), idOnly(m.Opponent2)
		if !tx.Update(ctx, store.MatchGames, g.ID, g) {
			return fmt.Errorf("failed to update game %d", g.ID)
		}
	}
	return nil
}
