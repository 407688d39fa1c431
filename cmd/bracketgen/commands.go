package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/config"
	"github.com/AdamBeresnev/bracket-engine/internal/maplist"
	"github.com/AdamBeresnev/bracket-engine/internal/service"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
	"github.com/google/uuid"
)

type app struct {
	cfg          *config.Config
	out          io.Writer
	store        *store.Store
	participants *service.ParticipantService
	stages       *service.StageService
	matches      *service.MatchService
}

func (a *app) setStore(s *store.Store) {
	a.store = s
	a.participants = service.NewParticipantService(s)
	a.stages = service.NewStageService(s)
	a.matches = service.NewMatchService(s)
}

type command struct {
	needsStore bool
	// Set for commands that work on a stage made by an earlier run.
	readsStored bool
	run         func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"generate": {needsStore: true, run: generate},
	"show":     {needsStore: true, readsStored: true, run: show},
	"report":   {needsStore: true, readsStored: true, run: report},
	"undo":     {needsStore: true, readsStored: true, run: undo},
	"maplist":  {run: mapList},
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", bracket.ErrValidation, err)
	}
	return nil
}

func generate(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	tournament := fs.String("tournament", "", "tournament id (a new one when empty)")
	name := fs.String("name", "Main", "stage name")
	stageType := fs.String("type", string(bracket.SingleElimination), "single_elimination, double_elimination or round_robin")
	participants := fs.String("participants", "", `participant names in seed order, e.g. 'Alice "Team Liquid" Bob'`)
	ordering := fs.String("ordering", "", "seed ordering, or group ordering for round robin")
	balance := fs.Bool("balance-byes", false, "spread BYEs so no match gets two")
	groups := fs.Int("groups", 1, "round robin group count")
	mode := fs.String("mode", "simple", "round robin mode: simple or double")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	tournamentID := uuid.New()
	if *tournament != "" {
		id, err := uuid.Parse(*tournament)
		if err != nil {
			return fmt.Errorf("%w: bad tournament id: %v", bracket.ErrValidation, err)
		}
		tournamentID = id
	}

	names, err := service.ParseNames(*participants)
	if err != nil {
		return err
	}
	registered, err := a.participants.Register(ctx, tournamentID, names)
	if err != nil {
		return err
	}
	seeds := make([]int, len(registered))
	for i, p := range registered {
		seeds[i] = p.ID
	}

	settings := bracket.StageSettings{SeedOrdering: *ordering}
	if bracket.StageType(*stageType) == bracket.RoundRobin {
		settings.GroupCount = *groups
		settings.RoundRobinMode = *mode
	} else {
		settings.BalanceByes = *balance
	}

	stage, err := a.stages.Create(ctx, service.StageInput{
		TournamentID: tournamentID,
		Name:         *name,
		Type:         bracket.StageType(*stageType),
		Seeding:      seeds,
		Settings:     settings,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "tournament %s, stage %d\n\n", tournamentID, stage.ID)
	return a.printStage(ctx, stage.ID)
}

func show(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	stageID := fs.Int("stage", 0, "stage id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	return a.printStage(ctx, *stageID)
}

func report(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	matchID := fs.Int("match", -1, "match id")
	winner := fs.String("winner", "", "winner name, matched loosely")
	game := fs.Int("game", 0, "game number; decides the whole match when 0")
	forfeit := fs.Bool("forfeit", false, "the named participant forfeits instead")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	m, err := store.SelectByID[bracket.Match](ctx, a.store, store.Matches, *matchID)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("%w: match %d", bracket.ErrNotFound, *matchID)
	}
	stage, err := store.SelectByID[bracket.Stage](ctx, a.store, store.Stages, m.StageID)
	if err != nil {
		return err
	}
	if stage == nil {
		return fmt.Errorf("%w: stage %d", bracket.ErrNotFound, m.StageID)
	}
	p, err := a.participants.Find(ctx, stage.TournamentID, *winner)
	if err != nil {
		return err
	}

	switch {
	case *forfeit:
		m, err = a.matches.Forfeit(ctx, *matchID, p.ID)
	case *game > 0:
		slot := 0
		for s := 1; s <= 2; s++ {
			if o := m.Opponent(s); o.IsKnown() && *o.ID == p.ID {
				slot = s
			}
		}
		if slot == 0 {
			return fmt.Errorf("%w: %s does not play in match %d", bracket.ErrValidation, p.Name, *matchID)
		}
		m, err = a.matches.ReportGame(ctx, *matchID, *game, slot)
	default:
		m, err = a.matches.ResolveWinner(ctx, *matchID, p.ID)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "match %d is %s\n\n", m.ID, m.Status)
	return a.printStage(ctx, m.StageID)
}

func undo(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("undo", flag.ContinueOnError)
	matchID := fs.Int("match", -1, "match id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	m, err := a.matches.Undo(ctx, *matchID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "match %d reopened\n\n", m.ID)
	return a.printStage(ctx, m.StageID)
}

func mapList(_ context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("maplist", flag.ContinueOnError)
	pool := fs.String("pool", "", "stages per mode, e.g. 'SZ=1,2,3;TC=4,5,6'")
	modes := fs.String("modes", "", "comma separated mode rotation, e.g. SZ,TC")
	rounds := fs.String("rounds", "", "comma separated games per round, e.g. 3,5,7")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	parsedPool, err := parsePool(*pool)
	if err != nil {
		return err
	}
	sizes, err := parseInts(*rounds)
	if err != nil {
		return err
	}
	var rotation []maplist.Mode
	for _, m := range splitList(*modes, ",") {
		rotation = append(rotation, maplist.Mode(m))
	}

	opts := maplist.Options{}
	if a.cfg.MapListSeed != 0 {
		opts.Rand = rand.New(rand.NewPCG(a.cfg.MapListSeed, a.cfg.MapListSeed))
	}

	list, err := maplist.Generate(parsedPool, rotation, sizes, opts)
	if err != nil {
		return err
	}
	for i, round := range list {
		entries := make([]string, len(round))
		for j, e := range round {
			entries[j] = fmt.Sprintf("%s %d", e.Mode, e.StageID)
		}
		fmt.Fprintf(a.out, "Round %d: %s\n", i+1, strings.Join(entries, ", "))
	}
	return nil
}

func parsePool(s string) (map[maplist.Mode][]maplist.StageID, error) {
	pool := make(map[maplist.Mode][]maplist.StageID)
	for _, part := range splitList(s, ";") {
		mode, list, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("%w: bad pool entry %q", bracket.ErrValidation, part)
		}
		ids, err := parseInts(list)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			pool[maplist.Mode(strings.TrimSpace(mode))] = append(pool[maplist.Mode(strings.TrimSpace(mode))], maplist.StageID(id))
		}
	}
	return pool, nil
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, part := range splitList(s, ",") {
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", bracket.ErrValidation, part)
		}
		out = append(out, v)
	}
	return out, nil
}

func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
