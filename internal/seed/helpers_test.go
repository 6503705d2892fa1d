package seed

import (
	"math/rand/v2"

	"github.com/shopspring/decimal"
)

func newDeterministicRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func decimalFromInt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}
