/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package bingo

import (
	crand "crypto/rand"
	"math/rand/v2"
)

// Seeded returns a deterministic generator. The same seed always deals the
// same sequence of boards.
func Seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Random returns a generator seeded from crypto/rand.
func Random() *rand.Rand {
	var seed [32]byte
	// crypto/rand.Read never returns an error; it crashes the program if
	// the system source fails.
	_, _ = crand.Read(seed[:])
	return rand.New(rand.NewChaCha8(seed))
}
