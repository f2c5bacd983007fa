package accesscode

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/vncsmyrnk/contestvote/internal/core/ports"
)

const (
	Alphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	DefaultLength = 8
)

type RandomGenerator struct {
	length int
}

func NewRandomGenerator(length int) ports.AccessCodeGenerator {
	if length <= 0 {
		length = DefaultLength
	}
	return &RandomGenerator{length: length}
}

// Generate draws each character uniformly from Alphabet.
func (g *RandomGenerator) Generate() (string, error) {
	base := big.NewInt(int64(len(Alphabet)))
	code := make([]byte, g.length)
	for i := range code {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", fmt.Errorf("failed to read random byte: %w", err)
		}
		code[i] = Alphabet[n.Int64()]
	}
	return string(code), nil
}
