package insights

import (
	"time"

	"github.com/shopspring/decimal"
)

// VariantStats aggregates one experiment arm over the requested range.
type VariantStats struct {
	Variant           string          `json:"variant"`
	Visitors          int64           `json:"visitors"`
	Conversions       int64           `json:"conversions"`
	ConversionRate    float64         `json:"conversionRate"`
	Revenue           decimal.Decimal `json:"revenue"`
	RevenuePerVisitor decimal.Decimal `json:"revenuePerVisitor"`
}

// Totals sums the per-variant stats.
type Totals struct {
	Visitors       int64           `json:"visitors"`
	Conversions    int64           `json:"conversions"`
	ConversionRate float64         `json:"conversionRate"`
	Revenue        decimal.Decimal `json:"revenue"`
}

// Verdict is the outcome of the chi-square independence test over the
// variant-by-conversion contingency table.
type Verdict struct {
	ChiSquare         float64 `json:"chiSquare"`
	DegreesOfFreedom  int     `json:"degreesOfFreedom"`
	PValue            float64 `json:"pValue"`
	Confidence        float64 `json:"confidence"`
	IsSignificant     bool    `json:"isSignificant"`
	WinningVariant    *string `json:"winningVariant,omitempty"`
	MinimumSampleSize int64   `json:"minimumSampleSize,omitempty"`
}

// Report is the full recomputed-on-demand view of an experiment. It is never
// persisted; every request derives it fresh from assignment and purchase rows.
type Report struct {
	ExperimentName string         `json:"experimentName"`
	Start          time.Time      `json:"start"`
	End            time.Time      `json:"end"`
	GeneratedAt    time.Time      `json:"generatedAt"`
	Variants       []VariantStats `json:"variants"`
	Totals         Totals         `json:"totals"`
	Verdict        Verdict        `json:"verdict"`
}

// Params selects the experiment and date range to aggregate. A zero Start or
// End leaves that side of the range unbounded.
type Params struct {
	ExperimentName string
	Start          time.Time
	End            time.Time
}
