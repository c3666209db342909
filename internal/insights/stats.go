package insights

import "math"

// SignificanceThreshold is the confidence percentage at or above which an
// experiment result counts as statistically significant.
const SignificanceThreshold = 95.0

const (
	gammaEpsilon = 1e-12
	gammaMaxIter = 500
	// zAlpha and zBeta are the standard normal quantiles for a two-sided 95%
	// confidence level and 80% power.
	zAlpha = 1.959964
	zBeta  = 0.841621
)

// observedCell is one row of the contingency table: converted vs not.
type observedCell struct {
	variant     string
	visitors    int64
	conversions int64
}

// chiSquareStatistic computes the test statistic for the variant-by-outcome
// contingency table. Rows with zero visitors must be filtered out by the
// caller; expected counts of zero (no conversions anywhere, or everyone
// converted) make the test undefined and yield 0.
func chiSquareStatistic(cells []observedCell) float64 {
	var totalVisitors, totalConversions int64
	for _, cell := range cells {
		totalVisitors += cell.visitors
		totalConversions += cell.conversions
	}
	if totalVisitors == 0 || totalConversions == 0 || totalConversions == totalVisitors {
		return 0
	}

	convertedShare := float64(totalConversions) / float64(totalVisitors)
	var statistic float64
	for _, cell := range cells {
		expectedConverted := float64(cell.visitors) * convertedShare
		expectedNot := float64(cell.visitors) - expectedConverted
		observedConverted := float64(cell.conversions)
		observedNot := float64(cell.visitors - cell.conversions)

		statistic += square(observedConverted-expectedConverted) / expectedConverted
		statistic += square(observedNot-expectedNot) / expectedNot
	}
	return statistic
}

func square(v float64) float64 { return v * v }

// chiSquarePValue returns P(X >= statistic) for a chi-square distribution
// with df degrees of freedom, via the regularized upper incomplete gamma
// function Q(df/2, statistic/2).
func chiSquarePValue(statistic float64, df int) float64 {
	if df < 1 || statistic <= 0 || math.IsNaN(statistic) {
		return 1
	}
	return 1 - regularizedGammaP(float64(df)/2, statistic/2)
}

// regularizedGammaP computes P(a, x), the regularized lower incomplete gamma
// function, using the series expansion for x < a+1 and the continued fraction
// otherwise (Numerical Recipes 6.2).
func regularizedGammaP(a, x float64) float64 {
	if a <= 0 || x < 0 {
		return 0
	}
	if x == 0 {
		return 0
	}
	if x < a+1 {
		return gammaSeries(a, x)
	}
	return 1 - gammaContinuedFraction(a, x)
}

func gammaSeries(a, x float64) float64 {
	lg, _ := math.Lgamma(a)
	ap := a
	sum := 1 / a
	term := sum
	for i := 0; i < gammaMaxIter; i++ {
		ap++
		term *= x / ap
		sum += term
		if math.Abs(term) < math.Abs(sum)*gammaEpsilon {
			break
		}
	}
	return sum * math.Exp(-x+a*math.Log(x)-lg)
}

func gammaContinuedFraction(a, x float64) float64 {
	const tiny = 1e-300

	lg, _ := math.Lgamma(a)
	b := x + 1 - a
	c := 1 / tiny
	d := 1 / b
	h := d
	for i := 1; i <= gammaMaxIter; i++ {
		an := -float64(i) * (float64(i) - a)
		b += 2
		d = an*d + b
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = b + an/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		del := d * c
		h *= del
		if math.Abs(del-1) < gammaEpsilon {
			break
		}
	}
	return math.Exp(-x+a*math.Log(x)-lg) * h
}

// minimumSampleSize estimates the per-variant visitor count needed to detect
// the difference between the two conversion rates at 95% confidence and 80%
// power (standard two-proportion formula). Returns 0 when the rates give no
// effect to size.
func minimumSampleSize(p1, p2 float64) int64 {
	diff := math.Abs(p1 - p2)
	if diff == 0 || p1 < 0 || p2 < 0 || p1 > 1 || p2 > 1 {
		return 0
	}
	pooled := (p1 + p2) / 2
	numerator := zAlpha*math.Sqrt(2*pooled*(1-pooled)) + zBeta*math.Sqrt(p1*(1-p1)+p2*(1-p2))
	n := square(numerator) / square(diff)
	if math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
		return 0
	}
	return int64(math.Ceil(n))
}
