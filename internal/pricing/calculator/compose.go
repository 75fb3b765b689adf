package calculator

import "github.com/xhoantran/HotelMS-server/internal/pricing/domain"

// Compose sums the percentages and increments of factors and applies them as
// ceil(base * (100 + Σp) / 100) + Σi. The scaled part and the result are floored at zero.
func Compose(base int64, factors ...domain.Factor) int64 {
	var pct, inc int64
	for _, f := range factors {
		pct += int64(f.Percentage)
		inc += f.Increment
	}

	scaled := base * (100 + pct)
	if scaled < 0 {
		scaled = 0
	}
	rate := ceilDiv(scaled, 100) + inc
	if rate < 0 {
		return 0
	}
	return rate
}

func ceilDiv(n, d int64) int64 {
	return (n + d - 1) / d
}
