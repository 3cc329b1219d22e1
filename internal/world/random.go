package world

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// IDLength is the number of base-36 characters in generated entity ids.
const IDLength = 9

func DeterministicSeedValue(rootSeed, label string) int64 {
	hasher := fnv.New64a()
	hasher.Write([]byte(rootSeed))
	hasher.Write([]byte{0})
	hasher.Write([]byte(label))
	sum := hasher.Sum64()
	if sum == 0 {
		sum = 1
	}
	return int64(sum)
}

func NewDeterministicRNG(rootSeed, label string) *rand.Rand {
	seedValue := DeterministicSeedValue(rootSeed, label)
	return rand.New(rand.NewSource(seedValue))
}

func RandomFloat(rng *rand.Rand) float64 {
	if rng == nil {
		return rand.New(rand.NewSource(DeterministicSeedValue(DefaultSeed, "world"))).Float64()
	}
	return rng.Float64()
}

func RandomRange(rng *rand.Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + RandomFloat(rng)*(hi-lo)
}

// IDSource issues entity ids and display colours. The world never assumes
// ids are unique and retries on collision.
type IDSource interface {
	NewID() string
	PlayerColor() string
	FoodColor() string
}

// SeededIDs draws ids and colours from a deterministic RNG.
type SeededIDs struct {
	rng *rand.Rand
}

func NewSeededIDs(rng *rand.Rand) *SeededIDs {
	if rng == nil {
		rng = NewDeterministicRNG(DefaultSeed, "ids")
	}
	return &SeededIDs{rng: rng}
}

func (s *SeededIDs) NewID() string {
	var b strings.Builder
	b.Grow(IDLength)
	for range IDLength {
		b.WriteByte(idAlphabet[s.rng.Intn(len(idAlphabet))])
	}
	return b.String()
}

func (s *SeededIDs) PlayerColor() string {
	return hsl(s.rng.Float64()*360, 60, 50)
}

func (s *SeededIDs) FoodColor() string {
	return hsl(s.rng.Float64()*360, 70, 60)
}

func hsl(hue float64, saturation, lightness int) string {
	return fmt.Sprintf("hsl(%d, %d%%, %d%%)", int(math.Floor(hue)), saturation, lightness)
}
