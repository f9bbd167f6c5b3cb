// Package entropy provides reproducible random streams for the simulation.
// Nothing here reads system entropy: every stream is derived from the session
// seed plus a salt, so the same inputs always replay the same numbers.
package entropy

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
)

// yearSalt decorrelates consecutive years drawn from the same session seed.
const yearSalt = 73856093

// YearSeed derives the per-year seed: seed XOR (year × salt).
func YearSeed(seed int64, year int) int64 {
	return seed ^ (int64(year) * yearSalt)
}

// Stream returns a PCG generator keyed by seed and salt. Two calls with the
// same arguments produce identical sequences.
func Stream(seed int64, salt string) *rand.Rand {
	// Non-cryptographic PRNG is intentional for deterministic simulation behavior.
	// #nosec G404
	return rand.New(rand.NewPCG(seedWord(seed, salt+":a"), seedWord(seed, salt+":b")))
}

// DayStream is a stream for one simulated day of one subsystem.
func DayStream(seed int64, salt string, day int) *rand.Rand {
	return Stream(seed, fmt.Sprintf("%s:%d", salt, day))
}

// Signed returns a uniform value in [-1, 1).
func Signed(r *rand.Rand) float64 {
	return r.Float64()*2 - 1
}

func seedWord(seed int64, salt string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(fmt.Sprintf("%d:%s", seed, salt)))
	return h.Sum64()
}
