package game

import (
	"crypto/rand"
	"math/big"
)

// Random is the source of every game decision that must be unpredictable.
type Random interface {
	// IntN returns a uniform integer in [0, n). n must be positive.
	IntN(n int) int
}

// SecureRandom draws from crypto/rand. It is the only source used outside tests.
var SecureRandom Random = cryptoRandom{}

type cryptoRandom struct{}

func (cryptoRandom) IntN(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("game: crypto/rand failed: " + err.Error())
	}
	return int(v.Int64())
}

// Choice returns a uniformly chosen element of items, which must be non-empty.
func Choice[T any](r Random, items []T) T {
	return items[r.IntN(len(items))]
}

// Sample returns k distinct elements of items in random order.
func Sample[T any](r Random, items []T, k int) []T {
	pool := append([]T(nil), items...)
	if k > len(pool) {
		k = len(pool)
	}
	for i := 0; i < k; i++ {
		j := i + r.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}

// Shuffle returns a random permutation of items.
func Shuffle[T any](r Random, items []T) []T {
	return Sample(r, items, len(items))
}
