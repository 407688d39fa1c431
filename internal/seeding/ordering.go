// Package seeding orders seed lists and places BYEs in them.
package seeding

import (
	"fmt"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
)

// Method is a flat seed ordering strategy.
type Method string

const (
	Natural          Method = "natural"
	Reverse          Method = "reverse"
	HalfShift        Method = "half_shift"
	ReverseHalfShift Method = "reverse_half_shift"
	PairFlip         Method = "pair_flip"
	InnerOuter       Method = "inner_outer"
)

// GroupMethod deals seeds into groups. Kept apart from Method so the two
// group strategies can't be passed where a flat ordering is expected.
type GroupMethod string

const (
	EffortBalanced GroupMethod = "groups.effort_balanced"
	SeedOptimized  GroupMethod = "groups.seed_optimized"
)

// Each strategy returns the permutation as source indices: out[i] = in[p[i]].
var permutations = map[Method]func(n int) ([]int, error){
	Natural:          natural,
	Reverse:          reverse,
	HalfShift:        halfShift,
	ReverseHalfShift: reverseHalfShift,
	PairFlip:         pairFlip,
	InnerOuter:       innerOuter,
}

var groupDeals = map[GroupMethod]func(n, k int) [][]int{
	EffortBalanced: effortBalanced,
	SeedOptimized:  seedOptimized,
}

func ParseMethod(s string) (Method, error) {
	m := Method(s)
	if _, ok := permutations[m]; !ok {
		return "", fmt.Errorf("%w: unknown seed ordering %q", bracket.ErrValidation, s)
	}
	return m, nil
}

func ParseGroupMethod(s string) (GroupMethod, error) {
	m := GroupMethod(s)
	if _, ok := groupDeals[m]; !ok {
		return "", fmt.Errorf("%w: unknown group ordering %q", bracket.ErrValidation, s)
	}
	return m, nil
}

// Apply returns a reordered copy of seeds. The input is never modified.
func Apply[T any](method Method, seeds []T) ([]T, error) {
	perm, ok := permutations[method]
	if !ok {
		return nil, fmt.Errorf("%w: unknown seed ordering %q", bracket.ErrValidation, method)
	}

	idx, err := perm(len(seeds))
	if err != nil {
		return nil, err
	}

	out := make([]T, len(seeds))
	for i, from := range idx {
		out[i] = seeds[from]
	}
	return out, nil
}

// ApplyGroups deals seeds into k groups, keeping seed order inside a group.
func ApplyGroups[T any](method GroupMethod, seeds []T, k int) ([][]T, error) {
	deal, ok := groupDeals[method]
	if !ok {
		return nil, fmt.Errorf("%w: unknown group ordering %q", bracket.ErrValidation, method)
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: group count must be positive, got %d", bracket.ErrValidation, k)
	}

	groups := make([][]T, 0, k)
	for _, members := range deal(len(seeds), k) {
		g := make([]T, 0, len(members))
		for _, i := range members {
			g = append(g, seeds[i])
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// Flatten concatenates groups group-major.
func Flatten[T any](groups [][]T) []T {
	var out []T
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func natural(n int) ([]int, error) {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx, nil
}

func reverse(n int) ([]int, error) {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = n - 1 - i
	}
	return idx, nil
}

func halfShift(n int) ([]int, error) {
	idx := make([]int, n)
	half := n / 2
	for i := range idx {
		idx[i] = (i + half) % n
	}
	return idx, nil
}

func reverseHalfShift(n int) ([]int, error) {
	half := n / 2
	idx := make([]int, 0, n)
	for i := half - 1; i >= 0; i-- {
		idx = append(idx, i)
	}
	for i := n - 1; i >= half; i-- {
		idx = append(idx, i)
	}
	return idx, nil
}

func pairFlip(n int) ([]int, error) {
	idx, _ := natural(n)
	for i := 0; i+1 < n; i += 2 {
		idx[i], idx[i+1] = idx[i+1], idx[i]
	}
	return idx, nil
}

// innerOuter builds the classic bracket order by doubling: every seed s in a
// bracket of size c is followed by its opponent c-1-s in a bracket of size 2c.
func innerOuter(n int) ([]int, error) {
	if n == 0 {
		return []int{}, nil
	}
	if n&(n-1) != 0 {
		return nil, fmt.Errorf("%w: inner_outer needs a power of two seeds, got %d", bracket.ErrValidation, n)
	}

	order := []int{0}
	for len(order) < n {
		next := make([]int, 0, len(order)*2)
		count := len(order) * 2
		for _, seed := range order {
			next = append(next, seed, count-1-seed)
		}
		order = next
	}
	return order, nil
}

func effortBalanced(n, k int) [][]int {
	groups := make([][]int, k)
	for i := 0; i < n; i++ {
		groups[i%k] = append(groups[i%k], i)
	}
	return groups
}

// seedOptimized snake-drafts: 1..k, then k..1, and so on.
func seedOptimized(n, k int) [][]int {
	groups := make([][]int, k)
	for i := 0; i < n; i++ {
		pass, pos := i/k, i%k
		if pass%2 == 1 {
			pos = k - 1 - pos
		}
		groups[pos] = append(groups[pos], i)
	}
	return groups
}
