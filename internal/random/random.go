// Package random produces the opaque identifiers handed out as codes and tokens.
package random

import (
	"crypto/rand"
	"math/big"
	"sync"
)

// Alphanumeric is the alphabet tokens are drawn from.
const Alphanumeric = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Generator returns a random string of the requested length.
type Generator interface {
	Generate(length int) string
}

// AlphabetGenerator draws characters uniformly from a fixed alphabet using crypto/rand.
type AlphabetGenerator struct {
	alphabet []byte
	max      *big.Int
}

// NewAlphabetGenerator creates a generator over alphabet. An empty alphabet
// falls back to Alphanumeric.
func NewAlphabetGenerator(alphabet string) *AlphabetGenerator {
	if alphabet == "" {
		alphabet = Alphanumeric
	}
	return &AlphabetGenerator{
		alphabet: []byte(alphabet),
		max:      big.NewInt(int64(len(alphabet))),
	}
}

// Default returns an alphanumeric generator.
func Default() *AlphabetGenerator {
	return NewAlphabetGenerator(Alphanumeric)
}

// Generate implements Generator.
func (g *AlphabetGenerator) Generate(length int) string {
	if length <= 0 {
		return ""
	}
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, g.max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken
			panic("random: reading entropy: " + err.Error())
		}
		out[i] = g.alphabet[n.Int64()]
	}
	return string(out)
}

// Sequence replays a fixed list of values, cycling when exhausted.
// The requested length is ignored; it exists for deterministic tests.
type Sequence struct {
	values []string
	next   int
	mu     sync.Mutex
}

// NewSequence creates a Sequence over values.
func NewSequence(values ...string) *Sequence {
	return &Sequence{values: values}
}

// Generate implements Generator.
func (s *Sequence) Generate(int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return ""
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}
