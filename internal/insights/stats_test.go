package insights

import (
	"math"
	"testing"
)

func TestChiSquareDetectsRealDifference(t *testing.T) {
	cells := []observedCell{
		{variant: "A", visitors: 1000, conversions: 50},
		{variant: "B", visitors: 1000, conversions: 80},
	}
	statistic := chiSquareStatistic(cells)
	if statistic <= 3.841 {
		t.Fatalf("statistic = %f, want > 3.841 (95%% critical value for df=1)", statistic)
	}
	p := chiSquarePValue(statistic, 1)
	if p >= 0.05 {
		t.Fatalf("p-value = %f, want < 0.05", p)
	}
}

func TestChiSquareSmallSampleNotSignificant(t *testing.T) {
	cells := []observedCell{
		{variant: "A", visitors: 50, conversions: 5},
		{variant: "B", visitors: 50, conversions: 6},
	}
	statistic := chiSquareStatistic(cells)
	p := chiSquarePValue(statistic, 1)
	if p < 0.05 {
		t.Fatalf("p-value = %f, small-sample noise should not be significant", p)
	}
}

func TestChiSquareIdenticalRatesIsZero(t *testing.T) {
	cells := []observedCell{
		{variant: "A", visitors: 400, conversions: 40},
		{variant: "B", visitors: 400, conversions: 40},
	}
	if statistic := chiSquareStatistic(cells); statistic != 0 {
		t.Fatalf("statistic = %f, want 0 for identical rates", statistic)
	}
}

func TestChiSquareDegenerateTables(t *testing.T) {
	noConversions := []observedCell{
		{variant: "A", visitors: 100, conversions: 0},
		{variant: "B", visitors: 100, conversions: 0},
	}
	if statistic := chiSquareStatistic(noConversions); statistic != 0 {
		t.Fatalf("statistic = %f for all-zero conversions, want 0", statistic)
	}
	allConversions := []observedCell{
		{variant: "A", visitors: 100, conversions: 100},
		{variant: "B", visitors: 100, conversions: 100},
	}
	if statistic := chiSquareStatistic(allConversions); statistic != 0 {
		t.Fatalf("statistic = %f for all-converted table, want 0", statistic)
	}
}

func TestChiSquarePValueMatchesCriticalValues(t *testing.T) {
	cases := []struct {
		statistic float64
		df        int
		wantP     float64
	}{
		{3.841, 1, 0.05},
		{6.635, 1, 0.01},
		{5.991, 2, 0.05},
		{7.815, 3, 0.05},
	}
	for _, tc := range cases {
		p := chiSquarePValue(tc.statistic, tc.df)
		if math.Abs(p-tc.wantP) > 0.001 {
			t.Fatalf("chiSquarePValue(%f, %d) = %f, want ~%f", tc.statistic, tc.df, p, tc.wantP)
		}
	}
}

func TestChiSquarePValueInvalidInputs(t *testing.T) {
	if p := chiSquarePValue(0, 1); p != 1 {
		t.Fatalf("zero statistic p = %f, want 1", p)
	}
	if p := chiSquarePValue(5, 0); p != 1 {
		t.Fatalf("zero df p = %f, want 1", p)
	}
	if p := chiSquarePValue(math.NaN(), 1); p != 1 {
		t.Fatalf("NaN statistic p = %f, want 1", p)
	}
}

func TestMinimumSampleSize(t *testing.T) {
	n := minimumSampleSize(0.05, 0.08)
	if n < 900 || n > 1200 {
		t.Fatalf("sample size = %d, want roughly 1050 for a 5%%→8%% lift", n)
	}
	if n := minimumSampleSize(0.1, 0.1); n != 0 {
		t.Fatalf("identical rates should size to 0, got %d", n)
	}
	if n := minimumSampleSize(-0.1, 0.2); n != 0 {
		t.Fatalf("out-of-range rate should size to 0, got %d", n)
	}
}
