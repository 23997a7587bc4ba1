package roulette

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// cryptoSource — источник math/rand/v2 поверх crypto/rand.
type cryptoSource struct{}

func (cryptoSource) Uint64() uint64 {
	var b [8]byte
	// crypto/rand.Read на поддерживаемых платформах не возвращает ошибку
	_, _ = crand.Read(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

// NewRand возвращает генератор для боевых розыгрышей.
// Исход нельзя предсказать по предыдущим выдачам.
func NewRand() *rand.Rand {
	return rand.New(cryptoSource{})
}
