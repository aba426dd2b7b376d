package aggregator

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// medianOf computes the median of the given prices: the middle element of
// the sorted values, or the average of the two middle elements for an even
// count. The input slice is not modified.
func medianOf(prices []decimal.Decimal) decimal.Decimal {
	n := len(prices)
	if n == 0 {
		return decimal.Zero
	}

	sorted := make([]decimal.Decimal, n)
	copy(sorted, prices)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LessThan(sorted[j])
	})

	if n%2 == 1 {
		return sorted[n/2]
	}
	return sorted[n/2-1].Add(sorted[n/2]).Div(decimal.NewFromInt(2))
}

// meanOf computes the arithmetic mean of the given prices.
func meanOf(prices []decimal.Decimal) decimal.Decimal {
	if len(prices) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, p := range prices {
		sum = sum.Add(p)
	}
	return sum.Div(decimal.NewFromInt(int64(len(prices))))
}

// variancePercent computes the population standard deviation of the prices
// relative to their mean, as a percentage. Population (divide by N) rather
// than sample stddev keeps the value deterministic for a single observation.
func variancePercent(prices []decimal.Decimal, mean decimal.Decimal) float64 {
	n := len(prices)
	if n == 0 {
		return 0
	}
	meanF := mean.InexactFloat64()
	if meanF == 0 {
		return 0
	}

	var sumSquares float64
	for _, p := range prices {
		d := p.InexactFloat64() - meanF
		sumSquares += d * d
	}
	stddev := math.Sqrt(sumSquares / float64(n))

	return stddev / meanF * 100
}

// confidence combines the source-agreement ratio and cross-source dispersion
// into a [0, 1] score. The two signals are averaged rather than multiplied
// so a single weak dimension does not zero out the score; dispersion is
// scaled so confidence from that dimension reaches zero at 10% variance.
func confidence(successCount, totalCount int, variancePct float64) float64 {
	if totalCount == 0 {
		return 0
	}
	ratio := float64(successCount) / float64(totalCount)
	dispersion := math.Max(0, 1-variancePct/10)

	score := (ratio + dispersion) / 2
	return math.Min(1, math.Max(0, score))
}
