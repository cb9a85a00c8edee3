package ledger

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
)

// Entropy draws topic indexes. seed binds the draw to its inputs; the
// generator state supplies the unpredictable part.
type Entropy interface {
	Draw(seed []byte, space uint8) uint8
}

// SeededEntropy is a deterministic generator: the same seed and the same
// sequence of draws yields the same indexes
type SeededEntropy struct {
	rng *rand.Rand
}

func NewEntropy(seed uint64) *SeededEntropy {
	return &SeededEntropy{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *SeededEntropy) Draw(seed []byte, space uint8) uint8 {
	h := fnv.New64a()
	_, _ = h.Write(seed)
	return uint8((h.Sum64() ^ s.rng.Uint64()) % uint64(space))
}

// drawSeed joins the inputs of a draw with its nonce
func drawSeed(nonce uint64, parts ...string) []byte {
	buf := binary.BigEndian.AppendUint64(nil, nonce)
	for _, p := range parts {
		buf = append(buf, p...)
		buf = append(buf, 0)
	}
	return buf
}
