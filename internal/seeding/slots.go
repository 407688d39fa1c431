package seeding

import (
	"fmt"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/utils"
)

// EliminationSlots lays participants, given in seed order, out on the round-1
// slots of an elimination bracket. Missing seeds up to the next power of two
// become BYEs before ordering, so the top seeds are the ones that skip round 1.
// An empty method means inner_outer.
func EliminationSlots(participants []int, method Method, balance bool) ([]*int, error) {
	if len(participants) < 2 {
		return nil, fmt.Errorf("%w: at least 2 participants are required, got %d", bracket.ErrValidation, len(participants))
	}
	if method == "" {
		method = InnerOuter
	}

	size := NextPowerOfTwo(len(participants))
	slots, err := Apply(method, Pad(utils.Ptrs(participants), size))
	if err != nil {
		return nil, err
	}
	if balance {
		slots = BalanceByes(slots, size)
	}
	return slots, nil
}
