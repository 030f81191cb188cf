package engine

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/arena-gg/tourney/internal/bracket"
)

// Slot is one bracket position in round 1. A nil Entry is a bye.
type Slot struct {
	Entry *bracket.Entry
}

// Seeder orders registered entries into bracket slots. The RNG is only
// used for random seeding and is injected so callers control
// reproducibility.
type Seeder struct {
	rng *rand.Rand
}

func NewSeeder(rng *rand.Rand) *Seeder {
	return &Seeder{rng: rng}
}

// BracketSize gets the nearest power of 2 while rounding up, so with
// input 5 it returns 8 and so on.
func BracketSize(count int) int {
	if count <= 0 {
		return 0
	}

	log2 := math.Ceil(math.Log2(float64(count)))
	return int(math.Pow(2, log2))
}

// seedPlacement expands the standard anti-clash placement over a
// power-of-two bracket: index i of the result is the 0-based seed that
// lands in slot i, pairing seed 1 vs seed N, 2 vs N-1 and so on.
func seedPlacement(bracketSize int) []int {
	if bracketSize == 0 {
		return nil
	}

	slots := []int{0}
	for len(slots) < bracketSize {
		var next []int
		currentCount := len(slots) * 2

		for _, seed := range slots {
			next = append(next, seed)
			next = append(next, (currentCount-1)-seed)
		}
		slots = next
	}

	return slots
}

// Seed annotates entries with 1-based seeds in registration order (or a
// shuffled order for random seeding) and places them into round-1 slots
// according to the method. Excess slots beyond the entry count are byes.
func (s *Seeder) Seed(entries []bracket.Entry, method bracket.SeedingMethod) ([]bracket.Entry, []Slot, error) {
	if len(entries) < 2 {
		return nil, nil, fmt.Errorf("%w: got %d", ErrInvalidEntryCount, len(entries))
	}

	seen := make(map[int]bool, len(entries))
	for _, e := range entries {
		if e.Seed == nil {
			continue
		}
		if seen[*e.Seed] {
			return nil, nil, fmt.Errorf("%w: seed %d", ErrConflictingSeeds, *e.Seed)
		}
		seen[*e.Seed] = true
	}

	seeded := make([]bracket.Entry, len(entries))
	copy(seeded, entries)

	if method == bracket.SeedRandom {
		s.rng.Shuffle(len(seeded), func(i, j int) {
			seeded[i], seeded[j] = seeded[j], seeded[i]
		})
	}

	for i := range seeded {
		seed := i + 1
		seeded[i].Seed = &seed
	}

	size := BracketSize(len(seeded))
	slots := make([]Slot, size)

	switch method {
	case bracket.SeedStandard:
		for slot, seedIdx := range seedPlacement(size) {
			if seedIdx < len(seeded) {
				slots[slot].Entry = &seeded[seedIdx]
			}
		}
	default:
		// Sequential and random placements fill slots in seed order; the
		// byes trail at the bottom of the bracket.
		for i := range seeded {
			slots[i].Entry = &seeded[i]
		}
	}

	return seeded, slots, nil
}
