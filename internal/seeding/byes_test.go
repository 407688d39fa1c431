package seeding

import (
	"testing"

	"github.com/AdamBeresnev/bracket-engine/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(values ...int) []*int {
	out := make([]*int, len(values))
	for i, v := range values {
		if v != 0 {
			out[i] = utils.Ptr(v)
		}
	}
	return out
}

// values turns a slot list back into ints with 0 for BYE.
func values(slots []*int) []int {
	out := make([]int, len(slots))
	for i, s := range slots {
		out[i] = utils.Deref(s, 0)
	}
	return out
}

func TestNextPowerOfTwo(t *testing.T) {
	assert.Equal(t, 1, NextPowerOfTwo(0))
	assert.Equal(t, 2, NextPowerOfTwo(2))
	assert.Equal(t, 8, NextPowerOfTwo(5))
	assert.Equal(t, 16, NextPowerOfTwo(16))
	assert.Equal(t, 64, NextPowerOfTwo(38))
}

func TestBalanceByes(t *testing.T) {
	testCases := []struct {
		name     string
		seeds    []*int
		size     int
		expected []int
	}{
		{
			name:     "full bracket",
			seeds:    ids(1, 2, 3, 4),
			expected: []int{1, 2, 3, 4},
		},
		{
			name:     "five on eight",
			seeds:    ids(1, 2, 3, 4, 5),
			expected: []int{1, 2, 3, 0, 4, 0, 5, 0},
		},
		{
			name:     "six on eight",
			seeds:    ids(1, 2, 3, 4, 5, 6),
			expected: []int{1, 2, 3, 4, 5, 0, 6, 0},
		},
		{
			name:     "fewer participants than pairs",
			seeds:    ids(1, 2, 3),
			size:     8,
			expected: []int{1, 0, 2, 0, 3, 0, 0, 0},
		},
		{
			name:     "existing byes are ignored",
			seeds:    ids(0, 1, 0, 0, 2, 3, 4, 5),
			expected: []int{1, 2, 3, 0, 4, 0, 5, 0},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, values(BalanceByes(tc.seeds, tc.size)))
		})
	}
}

func TestBalanceByes_Idempotent(t *testing.T) {
	for n := 2; n <= 40; n++ {
		seeds := make([]*int, n)
		for i := range seeds {
			seeds[i] = utils.Ptr(i + 1)
		}
		size := NextPowerOfTwo(n)

		once := BalanceByes(seeds, size)
		twice := BalanceByes(once, size)
		assert.Equal(t, values(once), values(twice), "n=%d", n)

		// Scattering byes through the input changes nothing.
		scattered := Pad(seeds, size)
		reversedByes := append(make([]*int, size-n), seeds...)
		assert.Equal(t, values(once), values(BalanceByes(scattered, size)), "n=%d", n)
		assert.Equal(t, values(once), values(BalanceByes(reversedByes, size)), "n=%d", n)
	}
}

func TestBalanceByes_NoDoubleByeWhileRealMatchRemains(t *testing.T) {
	for n := 2; n <= 64; n++ {
		seeds := make([]*int, n)
		for i := range seeds {
			seeds[i] = utils.Ptr(i + 1)
		}
		slots := BalanceByes(seeds, 0)
		require.Len(t, slots, NextPowerOfTwo(n))

		present := 0
		for i := 0; i < len(slots); i += 2 {
			assert.False(t, slots[i] == nil && slots[i+1] == nil, "n=%d pair %d has two byes", n, i/2)
			if slots[i] != nil {
				present++
			}
			if slots[i+1] != nil {
				present++
			}
		}
		assert.Equal(t, n, present)
	}
}

func TestEliminationSlots(t *testing.T) {
	slots, err := EliminationSlots([]int{1, 2, 3, 4, 5}, InnerOuter, false)
	require.NoError(t, err)
	// Seeds 6..8 are BYEs and face the top three seeds.
	assert.Equal(t, []int{1, 0, 4, 5, 2, 0, 3, 0}, values(slots))

	slots, err = EliminationSlots([]int{1, 2, 3, 4, 5}, "", true)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4, 5, 0, 2, 0, 3, 0}, values(slots))

	_, err = EliminationSlots([]int{1}, InnerOuter, false)
	assert.Error(t, err)
}
