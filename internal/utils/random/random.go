// Package random provides uniform integer sources for winner draws.
package random

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	mrand "math/rand/v2"
	"sync"
)

// ErrEmptyRange is returned when Intn is asked for a value in [0, 0).
var ErrEmptyRange = errors.New("random: n must be positive")

// Source yields uniformly distributed integers in [0, n).
type Source interface {
	Intn(n int) (int, error)
}

type cryptoSource struct{}

// Crypto returns a Source backed by crypto/rand.
func Crypto() Source {
	return cryptoSource{}
}

func (cryptoSource) Intn(n int) (int, error) {
	if n <= 0 {
		return 0, ErrEmptyRange
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to generate random number: %w", err)
	}
	return int(v.Int64()), nil
}

type seededSource struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// Seeded returns a deterministic Source. Two sources built from the same
// seed produce the same sequence. Safe for concurrent use.
func Seeded(seed uint64) Source {
	return &seededSource{rng: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *seededSource) Intn(n int) (int, error) {
	if n <= 0 {
		return 0, ErrEmptyRange
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n), nil
}
