package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/config"
	"github.com/AdamBeresnev/bracket-engine/internal/maplist"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePool(t *testing.T) {
	pool, err := parsePool("SZ=1, 2,3; TC=4 ;")
	require.NoError(t, err)
	assert.Equal(t, map[maplist.Mode][]maplist.StageID{
		"SZ": {1, 2, 3},
		"TC": {4},
	}, pool)

	_, err = parsePool("SZ")
	assert.ErrorIs(t, err, bracket.ErrValidation)

	_, err = parsePool("SZ=1,x")
	assert.ErrorIs(t, err, bracket.ErrValidation)
}

func TestExitCode(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: fmt.Errorf("%w: bad", bracket.ErrValidation), want: 2},
		{name: "consistency", err: fmt.Errorf("%w: bad", bracket.ErrConsistency), want: 2},
		{name: "not found", err: fmt.Errorf("%w: match 3", bracket.ErrNotFound), want: 2},
		{name: "other", err: errors.New("disk on fire"), want: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, exitCode(tc.err))
		})
	}
}

func TestRun_MemoryBackendRejectsStoredStages(t *testing.T) {
	t.Setenv("STORE_BACKEND", config.BackendMemory)

	testCases := []struct {
		name string
		args []string
		want int
	}{
		{name: "show", args: []string{"show", "-stage", "0"}, want: 2},
		{name: "report", args: []string{"report", "-match", "0", "-winner", "Alice"}, want: 2},
		{name: "undo", args: []string{"undo", "-match", "0"}, want: 2},
		{name: "maplist needs no store", args: []string{"maplist", "-pool", "SZ=1,2,3", "-modes", "SZ", "-rounds", "1"}, want: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, run(tc.args))
		})
	}
}

func newTestApp() (*app, *bytes.Buffer) {
	out := &bytes.Buffer{}
	a := &app{cfg: &config.Config{StoreBackend: config.BackendMemory, MapListSeed: 7}, out: out}
	a.setStore(store.New(store.NewMemoryBackend()))
	return a, out
}

func TestGenerateReportUndo(t *testing.T) {
	ctx := context.Background()
	a, out := newTestApp()

	err := generate(ctx, a, []string{"-participants", `Alice Bob "Team Liquid" Dave`})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Team Liquid")
	assert.Contains(t, out.String(), "Alice vs Dave")

	out.Reset()
	require.NoError(t, report(ctx, a, []string{"-match", "0", "-winner", "alice"}))
	assert.Contains(t, out.String(), "match 0 is completed")
	assert.Contains(t, out.String(), "Alice [W 0]")

	out.Reset()
	require.NoError(t, undo(ctx, a, []string{"-match", "0"}))
	assert.Contains(t, out.String(), "match 0 reopened")

	err = report(ctx, a, []string{"-match", "0", "-winner", "Team Liquid"})
	assert.ErrorIs(t, err, bracket.ErrValidation)
}

func TestMapList(t *testing.T) {
	a, out := newTestApp()

	err := mapList(context.Background(), a, []string{"-pool", "SZ=1,2,3;TC=4,5,6", "-modes", "SZ,TC", "-rounds", "3,5"})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Round 1: SZ "))
	assert.Len(t, strings.Split(lines[1], ", "), 5)
}
