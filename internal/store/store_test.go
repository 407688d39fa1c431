package store

import (
	"context"
	"os"
	"testing"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/db"
	"github.com/AdamBeresnev/bracket-engine/internal/utils"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupSQLBackend creates an in-memory SQLite database and applies migrations
func setupSQLBackend(t *testing.T) Backend {
	t.Helper()

	database, err := db.Open(db.DriverSQLite, "file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, db.RunMigrations(database, db.DriverSQLite))
	return NewSQLBackend(database)
}

func setupRedisBackend(t *testing.T) Backend {
	t.Helper()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })

	prefix := "bracket-test:" + t.Name() + ":"
	backend := NewRedisBackend(client, prefix)
	for _, table := range []Table{Participants, Stages, Groups, Rounds, Matches, MatchGames} {
		require.NoError(t, backend.Truncate(context.Background(), table))
	}
	return backend
}

var backends = []struct {
	name  string
	setup func(t *testing.T) Backend
}{
	{name: "memory", setup: func(t *testing.T) Backend { return NewMemoryBackend() }},
	{name: "sqlite", setup: setupSQLBackend},
	{name: "redis", setup: setupRedisBackend},
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s *Store)) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			fn(t, New(b.setup(t)))
		})
	}
}

func TestInsert(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()

		assert.Equal(t, 0, s.Insert(ctx, Participants, bracket.Participant{Name: "Alice"}))
		assert.Equal(t, 1, s.Insert(ctx, Participants, bracket.Participant{Name: "Bob"}))

		got, err := SelectByID[bracket.Participant](ctx, s, Participants, 1)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 1, got.ID)
		assert.Equal(t, "Bob", got.Name)

		missing, err := SelectByID[bracket.Participant](ctx, s, Participants, 7)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}

func TestInsert_Malformed(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()

		assert.Equal(t, -1, s.Insert(ctx, Participants, []int{1, 2}))
		assert.Equal(t, -1, s.Insert(ctx, Participants, map[string]any{"bad": make(chan int)}))
		assert.False(t, s.InsertMany(ctx, Participants, []any{
			bracket.Participant{Name: "Alice"},
			"not an object",
		}))

		rows, err := Select[bracket.Participant](ctx, s, Participants)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

func TestInsertMany(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()

		require.Equal(t, 0, s.Insert(ctx, Participants, bracket.Participant{Name: "Alice"}))
		assert.True(t, s.InsertMany(ctx, Participants, []any{
			bracket.Participant{Name: "Bob"},
			bracket.Participant{Name: "Carol"},
		}))

		rows, err := Select[bracket.Participant](ctx, s, Participants)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		for i, p := range rows {
			assert.Equal(t, i, p.ID)
		}
		assert.Equal(t, "Carol", rows[2].Name)
	})
}

func TestSelect_IndependentCopy(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()

		id := s.Insert(ctx, Matches, bracket.Match{Opponent1: &bracket.Opponent{ID: utils.Ptr(3)}})
		require.Equal(t, 0, id)

		first, err := SelectByID[bracket.Match](ctx, s, Matches, id)
		require.NoError(t, err)
		first.Opponent1.ID = utils.Ptr(99)
		first.Status = bracket.MatchCompleted

		second, err := SelectByID[bracket.Match](ctx, s, Matches, id)
		require.NoError(t, err)
		assert.Equal(t, 3, *second.Opponent1.ID)
		assert.Empty(t, second.Status)
	})
}

func TestSelectWhere(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()

		require.True(t, s.InsertMany(ctx, Matches, []any{
			bracket.Match{StageID: 0, Number: 1, Status: bracket.MatchReady, Opponent1: &bracket.Opponent{ID: utils.Ptr(1)}},
			bracket.Match{StageID: 0, Number: 2, Status: bracket.MatchLocked, Opponent1: &bracket.Opponent{}},
			bracket.Match{StageID: 1, Number: 1, Status: bracket.MatchReady},
		}))

		testCases := []struct {
			name     string
			filter   Filter
			expected []int
		}{
			{name: "single field", filter: Filter{"stage_id": 0}, expected: []int{0, 1}},
			{name: "and", filter: Filter{"stage_id": 0, "status": bracket.MatchReady}, expected: []int{0}},
			{name: "nested path", filter: Filter{"opponent1.id": 1}, expected: []int{0}},
			{name: "nil matches missing", filter: Filter{"opponent1.id": nil, "stage_id": 0}, expected: []int{1}},
			{name: "no match", filter: Filter{"number": 5}, expected: nil},
			{name: "empty filter", filter: Filter{}, expected: []int{0, 1, 2}},
			{name: "by id", filter: Filter{"id": 2}, expected: []int{2}},
			{name: "missing id", filter: Filter{"id": 9}, expected: nil},
			{name: "wildcard is literal", filter: Filter{"stat*": bracket.MatchReady}, expected: nil},
			{name: "query is literal", filter: Filter{"#(number==1).id": 0}, expected: nil},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				rows, err := SelectWhere[bracket.Match](ctx, s, Matches, tc.filter)
				require.NoError(t, err)

				var ids []int
				for _, m := range rows {
					ids = append(ids, m.ID)
				}
				assert.Equal(t, tc.expected, ids)
			})
		}
	})
}

func TestUpdate(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()

		id := s.Insert(ctx, Participants, bracket.Participant{Name: "Alice"})
		assert.True(t, s.Update(ctx, Participants, id, bracket.Participant{Name: "Alicia"}))
		assert.False(t, s.Update(ctx, Participants, 42, bracket.Participant{Name: "Nobody"}))

		got, err := SelectByID[bracket.Participant](ctx, s, Participants, id)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, "Alicia", got.Name)
	})
}

func TestUpdateWhere_MergesNestedObjects(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()

		id := s.Insert(ctx, Matches, bracket.Match{
			Status:    bracket.MatchReady,
			Opponent1: &bracket.Opponent{ID: utils.Ptr(4), Position: utils.Ptr(1)},
			Opponent2: &bracket.Opponent{ID: utils.Ptr(5)},
		})

		ok := s.UpdateWhere(ctx, Matches, Filter{"id": id}, map[string]any{
			"status":    bracket.MatchRunning,
			"opponent1": map[string]any{"score": 2},
		})
		require.True(t, ok)

		got, err := SelectByID[bracket.Match](ctx, s, Matches, id)
		require.NoError(t, err)
		assert.Equal(t, bracket.MatchRunning, got.Status)
		assert.Equal(t, 2, got.Opponent1.Score)
		assert.Equal(t, 4, *got.Opponent1.ID)
		assert.Equal(t, 1, *got.Opponent1.Position)
		assert.Equal(t, 5, *got.Opponent2.ID)
	})
}

func TestUpdateWhere_MergesOneLevelDeep(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()

		id := s.Insert(ctx, Stages, map[string]any{
			"name":                  "Main",
			"settings":              map[string]any{"a": map[string]any{"x": 1, "y": 2}, "b": true},
			"winner_destination_id": 4,
		})
		require.Equal(t, 0, id)

		ok := s.UpdateWhere(ctx, Stages, Filter{"name": "Main"}, map[string]any{
			"settings":              map[string]any{"a": map[string]any{"x": 3}},
			"winner_destination_id": nil,
		})
		require.True(t, ok)

		got, err := SelectByID[map[string]any](ctx, s, Stages, id)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"id":   float64(0),
			"name": "Main",
			// The second level is replaced, not merged.
			"settings":              map[string]any{"a": map[string]any{"x": float64(3)}, "b": true},
			"winner_destination_id": nil,
		}, *got)
	})
}

func TestBackend_GetAndNextID(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			backend := b.setup(t)

			next, err := backend.NextID(ctx, Rounds)
			require.NoError(t, err)
			assert.Equal(t, 0, next)

			require.NoError(t, backend.Put(ctx, Rounds, 4, []byte(`{"id":4}`)))
			require.NoError(t, backend.Put(ctx, Rounds, 1, []byte(`{"id":1}`)))

			next, err = backend.NextID(ctx, Rounds)
			require.NoError(t, err)
			assert.Equal(t, 5, next)

			doc, err := backend.Get(ctx, Rounds, 4)
			require.NoError(t, err)
			assert.JSONEq(t, `{"id":4}`, string(doc))

			doc, err = backend.Get(ctx, Rounds, 2)
			require.NoError(t, err)
			assert.Nil(t, doc)
		})
	}
}

func TestDelete(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()

		require.True(t, s.InsertMany(ctx, Rounds, []any{
			bracket.Round{StageID: 0, Number: 1},
			bracket.Round{StageID: 0, Number: 2},
			bracket.Round{StageID: 1, Number: 1},
		}))

		assert.True(t, s.DeleteWhere(ctx, Rounds, Filter{"stage_id": 0}))
		rows, err := Select[bracket.Round](ctx, s, Rounds)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, 2, rows[0].ID)

		// Ids keep growing from the current max.
		assert.Equal(t, 3, s.Insert(ctx, Rounds, bracket.Round{StageID: 2}))

		assert.True(t, s.Delete(ctx, Rounds))
		rows, err = Select[bracket.Round](ctx, s, Rounds)
		require.NoError(t, err)
		assert.Empty(t, rows)
		assert.Equal(t, 0, s.Insert(ctx, Rounds, bracket.Round{}))
	})
}

func TestAtomic_RollsBack(t *testing.T) {
	for _, b := range backends[:2] {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := New(b.setup(t))
			require.Equal(t, 0, s.Insert(ctx, Stages, bracket.Stage{Name: "Kept"}))

			err := s.Atomic(ctx, func(tx *Store) error {
				require.Equal(t, 1, tx.Insert(ctx, Stages, bracket.Stage{Name: "Dropped"}))
				require.True(t, tx.DeleteWhere(ctx, Stages, Filter{"name": "Kept"}))
				return bracket.ErrConsistency
			})
			assert.ErrorIs(t, err, bracket.ErrConsistency)

			rows, err := Select[bracket.Stage](ctx, s, Stages)
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, "Kept", rows[0].Name)
		})
	}
}
