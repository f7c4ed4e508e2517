package billing

import (
	"fmt"
	"math"
	"sort"
)

// TrendDirection describes the month-over-month movement of spend.
type TrendDirection string

const (
	TrendUp      TrendDirection = "Up"
	TrendDown    TrendDirection = "Down"
	TrendFlat    TrendDirection = "Flat"
	TrendUnknown TrendDirection = "Unknown"
)

// ForecastResult is the ephemeral output of trend and forecast computation.
// It is recomputed on every query and never persisted by the core.
type ForecastResult struct {
	TrendDirection TrendDirection
	TrendPercent   float64
	ForecastAmount float64
	Confidence     string
}

// Forecast method weights and caps. The tiers exist because a single model is
// either too naive for rich history or too data-hungry for short history.
var ewmaWeights = []float64{0.35, 0.25, 0.15, 0.10, 0.08, 0.07}

// ComputeTrendAndForecast consumes a chronologically ordered monthly series
// and produces the trend plus a next-period forecast. The method is selected
// by series length; all division uses absolute denominators so net-negative
// months (discount-dominated) cannot flip signs mid-formula.
func ComputeTrendAndForecast(series []MonthPoint) ForecastResult {
	res := ForecastResult{TrendDirection: TrendUnknown}
	n := len(series)
	if n == 0 {
		res.Confidence = "no data"
		return res
	}

	values := make([]float64, n)
	for i, p := range series {
		values[i] = p.Total
	}
	last := values[n-1]

	if n >= 2 {
		prev := values[n-2]
		if prev != 0 {
			res.TrendPercent = (last - prev) / math.Abs(prev) * 100
			switch {
			case last == prev:
				res.TrendDirection = TrendFlat
			case last > prev:
				res.TrendDirection = TrendUp
			default:
				res.TrendDirection = TrendDown
			}
		}
	}

	switch {
	case n < 2:
		// flat carry-forward; nothing to extrapolate from
		res.ForecastAmount = last
		res.Confidence = "carry-forward (single month) ±50%"
	case n == 2:
		res.ForecastAmount = dampedGrowthForecast(values)
		res.Confidence = "damped growth ±40%"
	case n <= 5:
		res.ForecastAmount = regressionForecast(values)
		res.Confidence = fmt.Sprintf("linear regression ±%.0f%%", confidenceBand(values))
	case n <= 11:
		res.ForecastAmount = weightedAverageForecast(values)
		res.Confidence = fmt.Sprintf("weighted moving average ±%.0f%%", confidenceBand(values))
	default:
		res.ForecastAmount = ensembleForecast(values)
		res.Confidence = fmt.Sprintf("12-month ensemble ±%.0f%%", confidenceBand(values))
	}

	if n >= 4 {
		if adjusted, ok := dampAnomaly(values, res.ForecastAmount); ok {
			res.ForecastAmount = adjusted
			res.Confidence += ", anomaly-adjusted"
		}
	}
	return res
}

// dampedGrowthForecast handles the two-point regime: project the growth
// ratio, damped harder when the ratio is extreme, and keep the result within
// 30% of the last month in either direction.
func dampedGrowthForecast(values []float64) float64 {
	last, prev := values[len(values)-1], values[len(values)-2]
	if prev == 0 {
		return last
	}
	ratio := last / math.Abs(prev)
	damping := 0.7
	if ratio < 0.75 || ratio > 1.5 {
		damping = 0.5
	}
	forecast := last * (1 + (ratio-1)*damping)
	return clampAround(forecast, last, 0.3)
}

// regressionForecast handles 3-5 points: least-squares projection one step
// forward plus a damped second-difference acceleration term.
func regressionForecast(values []float64) float64 {
	n := len(values)
	slope, intercept := linearRegression(values)
	forecast := slope*float64(n) + intercept

	// acceleration: the damped change-of-change over the last three points
	accel := (values[n-1] - values[n-2]) - (values[n-2] - values[n-3])
	forecast += accel * 0.4

	last := values[n-1]
	if last > 0 {
		forecast = math.Min(math.Max(forecast, last*0.5), last*2)
	}
	return forecast
}

// weightedAverageForecast handles 6-11 points: an exponentially-weighted
// average front-loaded on the latest six months, scaled by a capped growth
// factor comparing the two halves of the series.
func weightedAverageForecast(values []float64) float64 {
	n := len(values)
	var ewma, weightSum float64
	for i, w := range ewmaWeights {
		idx := n - 1 - i
		if idx < 0 {
			break
		}
		ewma += values[idx] * w
		weightSum += w
	}
	if weightSum > 0 {
		ewma /= weightSum
	}

	half := n / 2
	firstAvg := mean(values[:half])
	secondAvg := mean(values[half:])
	growth := 1.0
	if firstAvg != 0 {
		growth = secondAvg / math.Abs(firstAvg)
	}
	growth = math.Min(math.Max(growth, 0.9), 1.1)
	return ewma * growth
}

// ensembleForecast handles 12+ points: 60% trend-growth projection, 40%
// seasonally-adjusted moving average.
func ensembleForecast(values []float64) float64 {
	n := len(values)
	last := values[n-1]

	// trend model: average of the last up-to-6 month-over-month ratios
	ratios := 0.0
	count := 0
	for i := n - 1; i > 0 && count < 6; i-- {
		if values[i-1] == 0 {
			continue
		}
		ratios += values[i] / math.Abs(values[i-1])
		count++
	}
	trendForecast := last
	if count > 0 {
		trendForecast = last * (ratios / float64(count))
	}

	// moving-average model with a seasonal factor
	ma := mean(values[n-3:])
	factor := seasonalFactor(values)
	maForecast := ma * factor

	return 0.6*trendForecast + 0.4*maForecast
}

// seasonalFactor compares the forecast month against the same calendar month
// one year prior. With exactly 12 points there is no prior-year observation
// for the next month, so the first-half/second-half growth is sixth-rooted
// into a per-month factor instead. Clamped to [0.8, 1.2] either way.
func seasonalFactor(values []float64) float64 {
	n := len(values)
	factor := 1.0
	if n > 12 {
		sameMonthLastYear := values[n-12]
		lo := n - 14
		if lo < 0 {
			lo = 0
		}
		base := mean(values[lo : n-10])
		if base != 0 {
			factor = sameMonthLastYear / math.Abs(base)
		}
	} else {
		firstHalf := mean(values[:6])
		secondHalf := mean(values[6:])
		if firstHalf != 0 {
			growth := secondHalf / math.Abs(firstHalf)
			if growth > 0 {
				factor = math.Pow(growth, 1.0/6.0)
			}
		}
	}
	return math.Min(math.Max(factor, 0.8), 1.2)
}

// dampAnomaly blends the forecast toward recent history when the latest
// month is an outlier: >30% off the median of the series and >25% off the
// trailing three-month average.
func dampAnomaly(values []float64, forecast float64) (float64, bool) {
	n := len(values)
	last := values[n-1]
	med := median(values)
	trailing := mean(values[n-3:])

	medDev := deviation(last, med)
	trailDev := deviation(last, trailing)
	if medDev <= 0.30 || trailDev <= 0.25 {
		return forecast, false
	}
	anchor := 0.5*trailing + 0.5*med
	return 0.4*forecast + 0.6*anchor, true
}

func deviation(v, ref float64) float64 {
	if ref == 0 {
		return math.Abs(v)
	}
	return math.Abs(v-ref) / math.Abs(ref)
}

// confidenceBand derives an approximate ±N% band from the coefficient of
// variation, floored and capped to keep the label meaningful.
func confidenceBand(values []float64) float64 {
	m := mean(values)
	if m == 0 {
		return 50
	}
	sd := stddev(values, m)
	cv := sd / math.Abs(m) * 100
	return math.Min(math.Max(cv, 5), 50)
}

// linearRegression fits y = slope*x + intercept over x = 0..n-1.
func linearRegression(values []float64) (slope, intercept float64) {
	n := float64(len(values))
	if n < 2 {
		return 0, 0
	}
	var sumX, sumY, sumXY, sumX2 float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}
	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return 0, mean(values)
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

// clampAround bounds v within ±frac of anchor's magnitude.
func clampAround(v, anchor, frac float64) float64 {
	delta := frac * math.Abs(anchor)
	if v > anchor+delta {
		return anchor + delta
	}
	if v < anchor-delta {
		return anchor - delta
	}
	return v
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func stddev(values []float64, m float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}
