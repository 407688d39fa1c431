// Package roundrobin splits participants into pools and schedules
// everyone-plays-everyone rounds inside a pool.
package roundrobin

import (
	"fmt"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
)

type Mode string

const (
	// Every pair meets once.
	Simple Mode = "simple"
	// Every pair meets twice, the second leg with sides swapped.
	Double Mode = "double"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", Simple:
		return Simple, nil
	case Double:
		return Double, nil
	}
	return "", fmt.Errorf("%w: unknown round robin mode %q", bracket.ErrValidation, s)
}

// Pairing is one slot of a round. When Bye is set, Opponent1 sits the round
// out and Opponent2 is the zero value.
type Pairing[T any] struct {
	Opponent1 T
	Opponent2 T
	Bye       bool
}

// MakeGroups splits list into k contiguous groups. Sizes differ by at most
// one and the earlier groups take the remainder.
func MakeGroups[T any](list []T, k int) ([][]T, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: group count must be positive, got %d", bracket.ErrValidation, k)
	}
	if k > len(list) {
		return nil, fmt.Errorf("%w: cannot split %d participants into %d groups", bracket.ErrValidation, len(list), k)
	}

	groups := make([][]T, 0, k)
	base, extra := len(list)/k, len(list)%k
	start := 0
	for g := 0; g < k; g++ {
		size := base
		if g < extra {
			size++
		}
		groups = append(groups, list[start:start+size:start+size])
		start += size
	}
	return groups, nil
}

// MakeRoundRobinMatches schedules a single round robin with the circle
// method: seat 0 stays put while the other seats rotate one step per round.
// An odd count gets a virtual BYE seat, so there are n-1 rounds for even n
// and n rounds for odd n, each with ceil(n/2) pairings.
func MakeRoundRobinMatches[T any](participants []T) ([][]Pairing[T], error) {
	if len(participants) < 2 {
		return nil, fmt.Errorf("%w: round robin needs at least 2 participants, got %d", bracket.ErrValidation, len(participants))
	}

	// -1 is the BYE seat.
	seats := make([]int, len(participants))
	for i := range seats {
		seats[i] = i
	}
	if len(seats)%2 == 1 {
		seats = append(seats, -1)
	}
	n := len(seats)

	rounds := make([][]Pairing[T], 0, n-1)
	for r := 0; r < n-1; r++ {
		round := make([]Pairing[T], 0, n/2)
		for i := 0; i < n/2; i++ {
			a, b := seats[i], seats[n-1-i]
			// Alternate sides for the fixed seat so it isn't always opponent 1.
			if i == 0 && r%2 == 1 {
				a, b = b, a
			}
			round = append(round, pairing(participants, a, b))
		}
		rounds = append(rounds, round)

		// Rotate everything but seat 0 one step clockwise.
		last := seats[n-1]
		copy(seats[2:], seats[1:n-1])
		seats[1] = last
	}
	return rounds, nil
}

func pairing[T any](participants []T, a, b int) Pairing[T] {
	switch {
	case a < 0:
		return Pairing[T]{Opponent1: participants[b], Bye: true}
	case b < 0:
		return Pairing[T]{Opponent1: participants[a], Bye: true}
	}
	return Pairing[T]{Opponent1: participants[a], Opponent2: participants[b]}
}

// Schedule returns the rounds for mode. Double appends a second leg with the
// opponents swapped.
func Schedule[T any](participants []T, mode Mode) ([][]Pairing[T], error) {
	rounds, err := MakeRoundRobinMatches(participants)
	if err != nil {
		return nil, err
	}
	if mode != Double {
		return rounds, nil
	}

	second := make([][]Pairing[T], 0, len(rounds))
	for _, round := range rounds {
		swapped := make([]Pairing[T], 0, len(round))
		for _, p := range round {
			if !p.Bye {
				p.Opponent1, p.Opponent2 = p.Opponent2, p.Opponent1
			}
			swapped = append(swapped, p)
		}
		second = append(second, swapped)
	}
	return append(rounds, second...), nil
}
