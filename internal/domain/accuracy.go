package domain

import "github.com/shopspring/decimal"

// ComputeAccuracy returns correct/(correct+incorrect) as a percentage rounded
// to two decimals, or nil when the question was never answered.
func ComputeAccuracy(correct, incorrect int) *float64 {
	total := correct + incorrect
	if total <= 0 {
		return nil
	}
	pct := decimal.NewFromInt(int64(correct)).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(int64(total)), 2)
	v, _ := pct.Float64()
	return &v
}
