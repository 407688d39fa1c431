package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AdamBeresnev/bracket-engine/internal/assign"
	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/roundrobin"
	"github.com/AdamBeresnev/bracket-engine/internal/seeding"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
	"github.com/AdamBeresnev/bracket-engine/internal/utils"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type StageService struct {
	store *store.Store
}

func NewStageService(s *store.Store) *StageService {
	return &StageService{store: s}
}

type StageInput struct {
	TournamentID uuid.UUID
	Name         string
	Type         bracket.StageType
	Number       int
	// Participant ids in seed order.
	Seeding  []int
	Settings bracket.StageSettings
	BestOf   map[assign.RoundKey]int
}

type StageData struct {
	Stage        *bracket.Stage
	Groups       []bracket.Group
	Rounds       []bracket.Round
	Matches      []bracket.Match
	Games        []bracket.MatchGame
	Participants map[int]bracket.Participant
}

// Plan seeds the participants and builds the stage's records without
// storing anything.
func Plan(in StageInput) (*assign.Plan, error) {
	opts := assign.Options{BestOf: in.BestOf}

	switch in.Type {
	case bracket.SingleElimination, bracket.DoubleElimination:
		method := seeding.InnerOuter
		if in.Settings.SeedOrdering != "" {
			m, err := seeding.ParseMethod(in.Settings.SeedOrdering)
			if err != nil {
				return nil, err
			}
			method = m
		}

		slots, err := seeding.EliminationSlots(in.Seeding, method, in.Settings.BalanceByes)
		if err != nil {
			return nil, err
		}
		if in.Settings.Size != 0 && in.Settings.Size != len(slots) {
			return nil, fmt.Errorf("%w: %d participants need a bracket of %d, got size %d",
				bracket.ErrValidation, len(in.Seeding), len(slots), in.Settings.Size)
		}
		return assign.TournamentRoundsForDB(in.Type, slots, opts)

	case bracket.RoundRobin:
		count := max(in.Settings.GroupCount, 1)
		method := seeding.SeedOptimized
		if in.Settings.SeedOrdering != "" {
			m, err := seeding.ParseGroupMethod(in.Settings.SeedOrdering)
			if err != nil {
				return nil, err
			}
			method = m
		}
		mode, err := roundrobin.ParseMode(in.Settings.RoundRobinMode)
		if err != nil {
			return nil, err
		}

		dealt, err := seeding.ApplyGroups(method, in.Seeding, count)
		if err != nil {
			return nil, err
		}
		groups, err := roundrobin.MakeGroups(seeding.Flatten(dealt), count)
		if err != nil {
			return nil, err
		}
		return assign.RoundRobinRoundsForDB(groups, mode, opts)
	}

	return nil, fmt.Errorf("%w: unknown stage type %q", bracket.ErrValidation, in.Type)
}

// Create plans the stage and inserts every record in one transaction, so a
// half generated stage is never visible.
func (s *StageService) Create(ctx context.Context, in StageInput) (*bracket.Stage, error) {
	plan, err := Plan(in)
	if err != nil {
		return nil, err
	}

	stage := bracket.Stage{
		TournamentID: in.TournamentID,
		Name:         in.Name,
		Type:         in.Type,
		Number:       max(in.Number, 1),
		Settings:     in.Settings,
	}

	err = s.store.Atomic(ctx, func(tx *store.Store) error {
		stage.ID = tx.Insert(ctx, store.Stages, stage)
		if stage.ID < 0 {
			return fmt.Errorf("failed to insert stage")
		}
		return insertPlan(ctx, tx, stage.ID, plan)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("stage created", "stage_id", stage.ID, "type", stage.Type, "participants", len(in.Seeding), "matches", len(plan.Matches()))
	return &stage, nil
}

// insertPlan stores a plan and maps its local ids onto store ids.
func insertPlan(ctx context.Context, tx *store.Store, stageID int, plan *assign.Plan) error {
	groupIDs := make(map[int]int)
	for _, g := range plan.Groups {
		local := g.ID
		g.StageID = stageID
		if g.ID = tx.Insert(ctx, store.Groups, g); g.ID < 0 {
			return fmt.Errorf("failed to insert group %d", g.Number)
		}
		groupIDs[local] = g.ID
	}

	roundIDs := make(map[int]int)
	for _, pr := range plan.Rounds {
		r := pr.Round
		r.StageID = stageID
		r.GroupID = groupIDs[r.GroupID]
		if r.ID = tx.Insert(ctx, store.Rounds, r); r.ID < 0 {
			return fmt.Errorf("failed to insert round %d", pr.Round.Number)
		}
		roundIDs[pr.Round.ID] = r.ID
	}

	// Destinations point forward, so matches are stored first and linked
	// afterwards.
	matches := plan.Matches()
	matchIDs := make(map[int]int, len(matches))
	for i := range matches {
		m := matches[i]
		m.StageID = stageID
		m.GroupID = groupIDs[m.GroupID]
		m.RoundID = roundIDs[m.RoundID]
		m.WinnerDestinationID, m.LoserDestinationID = nil, nil
		id := tx.Insert(ctx, store.Matches, m)
		if id < 0 {
			return fmt.Errorf("failed to insert match %d", matches[i].ID)
		}
		matchIDs[matches[i].ID] = id
		matches[i].ID = id
		matches[i].StageID = stageID
		matches[i].GroupID = m.GroupID
		matches[i].RoundID = m.RoundID
	}

	for _, m := range matches {
		if m.WinnerDestinationID == nil && m.LoserDestinationID == nil {
			continue
		}
		if m.WinnerDestinationID != nil {
			m.WinnerDestinationID = utils.Ptr(matchIDs[*m.WinnerDestinationID])
		}
		if m.LoserDestinationID != nil {
			m.LoserDestinationID = utils.Ptr(matchIDs[*m.LoserDestinationID])
		}
		if !tx.Update(ctx, store.Matches, m.ID, m) {
			return fmt.Errorf("failed to link match %d", m.ID)
		}
	}

	var games []any
	for _, m := range matches {
		for n := 1; n <= m.ChildCount; n++ {
			games = append(games, bracket.MatchGame{
				StageID:   stageID,
				ParentID:  m.ID,
				Number:    n,
				Status:    gameStatus(m.Status),
				Opponent1: idOnly(m.Opponent1),
				Opponent2: idOnly(m.Opponent2),
			})
		}
	}
	if len(games) > 0 && !tx.InsertMany(ctx, store.MatchGames, games) {
		return fmt.Errorf("failed to insert match games")
	}
	return nil
}

func (s *StageService) Get(ctx context.Context, stageID int) (*StageData, error) {
	stage, err := store.SelectByID[bracket.Stage](ctx, s.store, store.Stages, stageID)
	if err != nil {
		return nil, err
	}
	if stage == nil {
		return nil, fmt.Errorf("%w: stage %d", bracket.ErrNotFound, stageID)
	}

	byStage := store.Filter{"stage_id": stageID}
	data := &StageData{Stage: stage}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		data.Groups, err = store.SelectWhere[bracket.Group](gCtx, s.store, store.Groups, byStage)
		return err
	})
	g.Go(func() (err error) {
		data.Rounds, err = store.SelectWhere[bracket.Round](gCtx, s.store, store.Rounds, byStage)
		return err
	})
	g.Go(func() (err error) {
		data.Matches, err = store.SelectWhere[bracket.Match](gCtx, s.store, store.Matches, byStage)
		return err
	})
	g.Go(func() (err error) {
		data.Games, err = store.SelectWhere[bracket.MatchGame](gCtx, s.store, store.MatchGames, byStage)
		return err
	})
	g.Go(func() error {
		participants, err := store.SelectWhere[bracket.Participant](gCtx, s.store, store.Participants, store.Filter{"tournament_id": stage.TournamentID})
		if err != nil {
			return err
		}
		data.Participants = make(map[int]bracket.Participant, len(participants))
		for _, p := range participants {
			data.Participants[p.ID] = p
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load stage %d: %w", stageID, err)
	}
	return data, nil
}

// Delete removes a stage and everything generated for it.
func (s *StageService) Delete(ctx context.Context, stageID int) error {
	return s.store.Atomic(ctx, func(tx *store.Store) error {
		stage, err := store.SelectByID[bracket.Stage](ctx, tx, store.Stages, stageID)
		if err != nil {
			return err
		}
		if stage == nil {
			return fmt.Errorf("%w: stage %d", bracket.ErrNotFound, stageID)
		}

		byStage := store.Filter{"stage_id": stageID}
		for _, table := range []store.Table{store.MatchGames, store.Matches, store.Rounds, store.Groups} {
			if !tx.DeleteWhere(ctx, table, byStage) {
				return fmt.Errorf("failed to delete %s rows of stage %d", table, stageID)
			}
		}
		if !tx.DeleteWhere(ctx, store.Stages, store.Filter{"id": stageID}) {
			return fmt.Errorf("failed to delete stage %d", stageID)
		}
		return nil
	})
}

func idOnly(o *bracket.Opponent) *bracket.Opponent {
	if o == nil {
		return nil
	}
	return &bracket.Opponent{ID: o.ID}
}

// gameStatus is the status of a game that has not been played yet.
func gameStatus(parent bracket.MatchStatus) bracket.MatchStatus {
	switch parent {
	case bracket.MatchRunning:
		return bracket.MatchReady
	case bracket.MatchCompleted:
		return bracket.MatchArchived
	}
	return parent
}
