package seeding

// NextPowerOfTwo returns the smallest power of two >= n (1 for n <= 1).
func NextPowerOfTwo(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}

// BalanceByes spreads BYEs (nil entries) over a pair-adjacent seed list of
// targetSize slots. Existing BYEs in seeds are ignored, so the result only
// depends on the order of real participants. A targetSize <= 0 means the
// next power of two, as does a target too small to hold every participant.
//
// The strongest seeds are paired against each other and the remaining ones,
// the seeds visited last, each face a BYE. No pair gets two BYEs unless there
// are fewer participants than pairs.
func BalanceByes(seeds []*int, targetSize int) []*int {
	players := make([]*int, 0, len(seeds))
	for _, s := range seeds {
		if s != nil {
			players = append(players, s)
		}
	}

	if targetSize <= 0 || targetSize < len(players) {
		targetSize = NextPowerOfTwo(len(players))
	}
	if targetSize == 1 {
		return resize(players, 1)
	}

	out := make([]*int, 0, targetSize)

	if len(players) < targetSize/2 {
		for _, s := range players {
			out = append(out, s, nil)
		}
		return resize(out, targetSize)
	}

	byes := targetSize - len(players)
	playing := len(players) - byes
	for i := 0; i+1 < playing; i += 2 {
		out = append(out, players[i], players[i+1])
	}
	for _, s := range players[playing:] {
		out = append(out, s, nil)
	}
	return resize(out, targetSize)
}

func resize(slots []*int, size int) []*int {
	if len(slots) > size {
		return slots[:size]
	}
	for len(slots) < size {
		slots = append(slots, nil)
	}
	return slots
}

// Pad appends BYEs to seeds up to size.
func Pad(seeds []*int, size int) []*int {
	out := make([]*int, len(seeds), max(size, len(seeds)))
	copy(out, seeds)
	return resize(out, max(size, len(seeds)))
}
