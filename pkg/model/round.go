package model

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// Round rounds the exact binary value of v to the given number of decimal
// places, ties to even. 7018.125 is a true tie and rounds to 7018.12; 0.7575
// is stored just below the tie and rounds to 0.757. Non-finite values are
// returned unchanged.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return exactDecimal(v).RoundBank(places).InexactFloat64()
}

// exactDecimal expands v without loss, unlike decimal.NewFromFloat, which
// starts from the shortest string that round-trips.
func exactDecimal(v float64) decimal.Decimal {
	frac, exp := math.Frexp(v)
	mant := big.NewInt(int64(frac * (1 << 53)))
	exp -= 53
	if exp >= 0 {
		return decimal.NewFromBigInt(mant.Lsh(mant, uint(exp)), 0)
	}
	// m * 2^e == m * 5^-e * 10^e
	pow5 := new(big.Int).Exp(big.NewInt(5), big.NewInt(int64(-exp)), nil)
	return decimal.NewFromBigInt(mant.Mul(mant, pow5), int32(exp))
}
