// Package util provides utility functions for the Lantern application.
package util

import (
	crand "crypto/rand"
	"encoding/hex"
	"math/rand/v2"
	"sync"
	"time"
)

// Picker selects random elements from string pools. It is safe for concurrent use.
// A Picker built with NewSeededPicker yields a reproducible sequence.
type Picker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPicker creates a Picker seeded from the current time.
func NewPicker() *Picker {
	now := uint64(time.Now().UnixNano())
	return NewSeededPicker(now, now>>32|now<<32)
}

// NewSeededPicker creates a Picker with a fixed PCG seed.
func NewSeededPicker(seed1, seed2 uint64) *Picker {
	return &Picker{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

// IntN returns a pseudo-random int in [0, n). It returns 0 when n <= 0.
func (p *Picker) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.IntN(n)
}

// Choice returns a random element of pool, or "" for an empty pool.
func (p *Picker) Choice(pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[p.IntN(len(pool))]
}

// GenerateRandomHex generates a random hexadecimal string of the specified length
// from the operating system's secure random source.
func GenerateRandomHex(length int) string {
	if length <= 0 {
		return ""
	}

	buf := make([]byte, (length+1)/2)
	_, _ = crand.Read(buf)
	return hex.EncodeToString(buf)[:length]
}

// GenerateRandomID generates a random ID with the specified prefix and hex length.
func GenerateRandomID(prefix string, hexLength int) string {
	return prefix + GenerateRandomHex(hexLength)
}

// GenerateSessionID generates an unguessable chat session ID with "s_" prefix.
func GenerateSessionID() string {
	return GenerateRandomID("s_", 32)
}
