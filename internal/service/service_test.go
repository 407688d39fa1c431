package service

import (
	"context"
	"testing"

	"github.com/AdamBeresnev/bracket-engine/internal/assign"
	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/db"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	store        *store.Store
	participants *ParticipantService
	stages       *StageService
	matches      *MatchService
	tournamentID uuid.UUID
}

func newTestEnv(t *testing.T, backend store.Backend) *testEnv {
	t.Helper()
	s := store.New(backend)
	return &testEnv{
		store:        s,
		participants: NewParticipantService(s),
		stages:       NewStageService(s),
		matches:      NewMatchService(s),
		tournamentID: uuid.New(),
	}
}

// setupSQLBackend creates an in-memory SQLite database and applies migrations
func setupSQLBackend(t *testing.T) store.Backend {
	t.Helper()

	database, err := db.Open(db.DriverSQLite, "file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, db.RunMigrations(database, db.DriverSQLite))
	return store.NewSQLBackend(database)
}

// createStage registers n participants and builds a stage over them.
func (e *testEnv) createStage(t *testing.T, n int, stageType bracket.StageType, settings bracket.StageSettings, bestOf map[assign.RoundKey]int) *bracket.Stage {
	t.Helper()
	ctx := context.Background()

	names := make([]string, n)
	for i := range names {
		names[i] = string(rune('A' + i))
	}
	participants, err := e.participants.Register(ctx, e.tournamentID, names)
	require.NoError(t, err)

	seeds := make([]int, n)
	for i, p := range participants {
		seeds[i] = p.ID
	}

	stage, err := e.stages.Create(ctx, StageInput{
		TournamentID: e.tournamentID,
		Name:         "Main",
		Type:         stageType,
		Seeding:      seeds,
		Settings:     settings,
		BestOf:       bestOf,
	})
	require.NoError(t, err)
	return stage
}

func (e *testEnv) match(t *testing.T, id int) *bracket.Match {
	t.Helper()
	m, err := store.SelectByID[bracket.Match](context.Background(), e.store, store.Matches, id)
	require.NoError(t, err)
	require.NotNil(t, m, "match %d", id)
	return m
}

func (e *testEnv) resolve(t *testing.T, matchID, participantID int) {
	t.Helper()
	_, err := e.matches.ResolveWinner(context.Background(), matchID, participantID)
	require.NoError(t, err)
}
