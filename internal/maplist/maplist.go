// Package maplist draws the stage (map) and mode played in each game of a
// round, avoiding short-run repeats while covering every stage evenly.
package maplist

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
)

type Mode string

type StageID int

type Entry struct {
	Mode    Mode    `json:"mode"`
	StageID StageID `json:"stage_id"`
}

// Backlog is how many of a mode's most recent stages may not be drawn again.
const Backlog = 2

// Popularity draws are retried this many times before falling back to
// buckets.
const maxWeightedAttempts = 20

type Options struct {
	// Vote weights per mode and stage. Modes without weights use buckets only.
	Popularity map[Mode]map[StageID]float64
	// Source of randomness. A nil Rand gets a randomly seeded one.
	Rand *rand.Rand
}

// Generate returns one list of entries per round, roundSizes[i] entries for
// round i. Modes are cycled through in order across the whole list.
func Generate(pool map[Mode][]StageID, modes []Mode, roundSizes []int, opts Options) ([][]Entry, error) {
	if len(modes) == 0 {
		return nil, fmt.Errorf("%w: at least one mode is required", bracket.ErrValidation)
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	draws := make(map[Mode]*drawer)
	for _, mode := range modes {
		if _, ok := draws[mode]; ok {
			continue
		}
		stages := uniq(pool[mode])
		if len(stages) == 0 {
			return nil, fmt.Errorf("%w: no stages for mode %q", bracket.ErrValidation, mode)
		}
		draws[mode] = newDrawer(stages, opts.Popularity[mode], rng)
	}

	out := make([][]Entry, 0, len(roundSizes))
	next := 0
	for i, size := range roundSizes {
		if size < 1 {
			return nil, fmt.Errorf("%w: round %d has size %d", bracket.ErrValidation, i+1, size)
		}
		round := make([]Entry, 0, size)
		for range size {
			mode := modes[next%len(modes)]
			next++
			round = append(round, Entry{Mode: mode, StageID: draws[mode].draw()})
		}
		out = append(out, round)
	}
	return out, nil
}

// drawer holds one mode's eligibility buckets. A drawn stage moves one
// bucket up and becomes eligible again once every lower bucket is empty.
type drawer struct {
	buckets [][]StageID
	recent  []StageID
	window  int
	weights map[StageID]float64
	rng     *rand.Rand
}

func newDrawer(stages []StageID, weights map[StageID]float64, rng *rand.Rand) *drawer {
	return &drawer{
		buckets: [][]StageID{slices.Clone(stages)},
		window:  min(Backlog, len(stages)-1),
		weights: weights,
		rng:     rng,
	}
}

func (d *drawer) draw() StageID {
	stage, ok := d.weighted()
	if !ok {
		stage = d.fromBuckets()
	}
	d.promote(stage)

	d.recent = append(d.recent, stage)
	if len(d.recent) > d.window {
		d.recent = d.recent[len(d.recent)-d.window:]
	}
	return stage
}

func (d *drawer) fromBuckets() StageID {
	for _, bucket := range d.buckets {
		var candidates []StageID
		for _, s := range bucket {
			if !slices.Contains(d.recent, s) {
				candidates = append(candidates, s)
			}
		}
		if len(candidates) > 0 {
			return candidates[d.rng.IntN(len(candidates))]
		}
	}
	// Unreachable while the window is smaller than the pool.
	return d.buckets[0][0]
}

// weighted samples by vote weight, re-drawing while the pick is recent.
func (d *drawer) weighted() (StageID, bool) {
	var total float64
	for _, bucket := range d.buckets {
		for _, s := range bucket {
			total += max(d.weights[s], 0)
		}
	}
	if total <= 0 {
		return 0, false
	}

	for range maxWeightedAttempts {
		s := d.sample(d.rng.Float64() * total)
		if !slices.Contains(d.recent, s) {
			return s, true
		}
	}
	return 0, false
}

// sample returns the stage whose weight range holds target.
func (d *drawer) sample(target float64) StageID {
	var last StageID
	for _, bucket := range d.buckets {
		for _, s := range bucket {
			w := max(d.weights[s], 0)
			if w == 0 {
				continue
			}
			if target < w {
				return s
			}
			target -= w
			last = s
		}
	}
	return last
}

// promote moves a stage into the next bucket.
func (d *drawer) promote(stage StageID) {
	for i, bucket := range d.buckets {
		j := slices.Index(bucket, stage)
		if j < 0 {
			continue
		}
		d.buckets[i] = slices.Delete(bucket, j, j+1)
		if i+1 == len(d.buckets) {
			d.buckets = append(d.buckets, nil)
		}
		d.buckets[i+1] = append(d.buckets[i+1], stage)
		break
	}
	for len(d.buckets) > 0 && len(d.buckets[0]) == 0 {
		d.buckets = d.buckets[1:]
	}
}

func uniq(stages []StageID) []StageID {
	seen := make(map[StageID]bool, len(stages))
	var out []StageID
	for _, s := range stages {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
