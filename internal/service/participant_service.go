package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
	"github.com/go-andiamo/splitter"
	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

type ParticipantService struct {
	store *store.Store
}

func NewParticipantService(s *store.Store) *ParticipantService {
	return &ParticipantService{store: s}
}

var nameSplitter, _ = splitter.NewSplitter(' ', splitter.DoubleQuotes, splitter.LeftRightDoubleDoubleQuotes)

// ParseNames splits a space separated list of names. Quoted names may
// contain spaces, e.g. `Alice "Team Liquid" Bob`.
func ParseNames(input string) ([]string, error) {
	var names []string
	for _, line := range strings.Split(input, "\n") {
		parts, err := nameSplitter.Split(line)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", bracket.ErrValidation, err)
		}
		for _, part := range parts {
			name := strings.NewReplacer(`"`, "", "“", "", "”", "").Replace(part)
			name = strings.TrimSpace(name)
			if name != "" {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

// Register stores the participants in the given order, which is also their
// seed order.
func (s *ParticipantService) Register(ctx context.Context, tournamentID uuid.UUID, names []string) ([]bracket.Participant, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no participant names given", bracket.ErrValidation)
	}

	var participants []bracket.Participant
	err := s.store.Atomic(ctx, func(tx *store.Store) error {
		for _, name := range names {
			p := bracket.Participant{TournamentID: tournamentID, Name: name}
			p.ID = tx.Insert(ctx, store.Participants, p)
			if p.ID < 0 {
				return fmt.Errorf("failed to insert participant %q", name)
			}
			participants = append(participants, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return participants, nil
}

func (s *ParticipantService) List(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Participant, error) {
	return store.SelectWhere[bracket.Participant](ctx, s.store, store.Participants, store.Filter{"tournament_id": tournamentID})
}

// Find resolves a typed name to a participant of the tournament. An exact
// (case-insensitive) match wins, otherwise the closest fuzzy match is used.
func (s *ParticipantService) Find(ctx context.Context, tournamentID uuid.UUID, name string) (*bracket.Participant, error) {
	participants, err := s.List(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	lookup := make(map[string]int, len(participants))
	targets := make([]string, 0, len(participants))
	for i, p := range participants {
		lower := strings.ToLower(p.Name)
		if _, ok := lookup[lower]; !ok {
			lookup[lower] = i
			targets = append(targets, lower)
		}
	}

	query := strings.ToLower(strings.TrimSpace(name))
	if i, ok := lookup[query]; ok {
		return &participants[i], nil
	}

	ranks := fuzzy.RankFind(query, targets)
	if len(ranks) == 0 {
		return nil, fmt.Errorf("%w: no participant matches %q", bracket.ErrNotFound, name)
	}
	sort.Sort(ranks)
	return &participants[lookup[ranks[0].Target]], nil
}
