package insights

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/prepjourney/prepjourney-backend/internal/experiments"
	"github.com/prepjourney/prepjourney-backend/pkg/db/models"
	pkgerrors "github.com/prepjourney/prepjourney-backend/pkg/errors"
	"github.com/prepjourney/prepjourney-backend/pkg/logger"
)

type assignmentSource interface {
	ListByExperiment(ctx context.Context, experimentName string, since, until time.Time) ([]models.VariantAssignment, error)
}

type purchaseSource interface {
	ListByUsersInRange(ctx context.Context, userIDs []string, since, until time.Time) ([]models.PurchaseRecord, error)
}

type experimentFinder interface {
	Get(ctx context.Context, name string) (*experiments.View, error)
}

// Service derives experiment reports on demand by joining assignment rows
// against purchase rows. Nothing it produces is persisted.
type Service struct {
	experiments experimentFinder
	assignments assignmentSource
	purchases   purchaseSource
	logg        *logger.Logger
	now         func() time.Time
}

// NewService wires the insights engine.
func NewService(finder experimentFinder, assignments assignmentSource, purchases purchaseSource, logg *logger.Logger) *Service {
	return &Service{
		experiments: finder,
		assignments: assignments,
		purchases:   purchases,
		logg:        logg,
		now:         time.Now,
	}
}

// Report aggregates per-variant conversion metrics for the experiment over
// the given range and runs the significance test. Sparse data (zero visitors,
// a single usable variant) yields a zeroed verdict, not an error.
func (s *Service) Report(ctx context.Context, params Params) (*Report, error) {
	name := strings.TrimSpace(params.ExperimentName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "experiment name is required")
	}
	if !params.Start.IsZero() && !params.End.IsZero() && params.End.Before(params.Start) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date range end precedes start")
	}

	experiment, err := s.experiments.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	rows, err := s.assignments.ListByExperiment(ctx, name, params.Start, params.End)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading assignments")
	}

	// Forced assignments (negative bucket) are admin overrides, not organic
	// traffic; they stay out of the stats. Each user counts once per variant.
	usersByVariant := map[string]map[string]struct{}{}
	for variant := range experiment.TrafficSplit {
		usersByVariant[variant] = map[string]struct{}{}
	}
	var userIDs []string
	seenUsers := map[string]struct{}{}
	for _, row := range rows {
		if row.Bucket < 0 {
			continue
		}
		users, ok := usersByVariant[row.Variant]
		if !ok {
			users = map[string]struct{}{}
			usersByVariant[row.Variant] = users
		}
		users[row.UserID] = struct{}{}
		if _, seen := seenUsers[row.UserID]; !seen {
			seenUsers[row.UserID] = struct{}{}
			userIDs = append(userIDs, row.UserID)
		}
	}

	purchases, err := s.purchases.ListByUsersInRange(ctx, userIDs, params.Start, params.End)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading purchases")
	}
	revenueByUser := map[string]decimal.Decimal{}
	for _, purchase := range purchases {
		revenueByUser[purchase.UserID] = revenueByUser[purchase.UserID].Add(centsToDecimal(purchase.AmountCents))
	}

	report := &Report{
		ExperimentName: name,
		Start:          params.Start,
		End:            params.End,
		GeneratedAt:    s.now().UTC(),
		Totals: Totals{
			Revenue: decimal.Zero,
		},
	}

	variantNames := make([]string, 0, len(usersByVariant))
	for variant := range usersByVariant {
		variantNames = append(variantNames, variant)
	}
	sort.Strings(variantNames)

	for _, variant := range variantNames {
		stats := VariantStats{
			Variant:           variant,
			Visitors:          int64(len(usersByVariant[variant])),
			Revenue:           decimal.Zero,
			RevenuePerVisitor: decimal.Zero,
		}
		for userID := range usersByVariant[variant] {
			revenue, converted := revenueByUser[userID]
			if !converted {
				continue
			}
			stats.Conversions++
			stats.Revenue = stats.Revenue.Add(revenue)
		}
		if stats.Visitors > 0 {
			stats.ConversionRate = float64(stats.Conversions) / float64(stats.Visitors)
			stats.RevenuePerVisitor = stats.Revenue.DivRound(decimal.NewFromInt(stats.Visitors), 4)
		}
		report.Variants = append(report.Variants, stats)
		report.Totals.Visitors += stats.Visitors
		report.Totals.Conversions += stats.Conversions
		report.Totals.Revenue = report.Totals.Revenue.Add(stats.Revenue)
	}
	if report.Totals.Visitors > 0 {
		report.Totals.ConversionRate = float64(report.Totals.Conversions) / float64(report.Totals.Visitors)
	}

	report.Verdict = s.verdict(ctx, name, report.Variants)
	return report, nil
}

// verdict runs the chi-square independence test over variants with traffic.
// Zero-visitor variants are dropped from the contingency table; fewer than
// two usable variants leaves the verdict zeroed.
func (s *Service) verdict(ctx context.Context, experiment string, variants []VariantStats) Verdict {
	var cells []observedCell
	for _, stats := range variants {
		if stats.Visitors == 0 {
			continue
		}
		cells = append(cells, observedCell{
			variant:     stats.Variant,
			visitors:    stats.Visitors,
			conversions: stats.Conversions,
		})
	}
	if len(cells) < 2 {
		return Verdict{PValue: 1}
	}

	statistic := chiSquareStatistic(cells)
	df := len(cells) - 1
	verdict := Verdict{
		ChiSquare:        statistic,
		DegreesOfFreedom: df,
		PValue:           1,
	}
	if statistic > 0 {
		verdict.PValue = chiSquarePValue(statistic, df)
		verdict.Confidence = (1 - verdict.PValue) * 100
	}
	verdict.IsSignificant = verdict.Confidence >= SignificanceThreshold

	if verdict.IsSignificant {
		winner := cells[0]
		winnerRate := rateOf(winner)
		for _, cell := range cells[1:] {
			rate := rateOf(cell)
			// Ties resolve to the lexicographically first variant; cells are
			// already in sorted order, so only a strictly better rate wins.
			if rate > winnerRate {
				winner = cell
				winnerRate = rate
			}
		}
		name := winner.variant
		verdict.WinningVariant = &name

		logCtx := s.logg.WithFields(ctx, map[string]any{
			"experiment": experiment,
			"winner":     name,
			"confidence": verdict.Confidence,
		})
		s.logg.Info(logCtx, "experiment reached significance")
	}

	verdict.MinimumSampleSize = sampleSizeAdvisory(cells)
	return verdict
}

// sampleSizeAdvisory sizes the test for the spread between the best and worst
// observed conversion rates.
func sampleSizeAdvisory(cells []observedCell) int64 {
	if len(cells) < 2 {
		return 0
	}
	low, high := rateOf(cells[0]), rateOf(cells[0])
	for _, cell := range cells[1:] {
		rate := rateOf(cell)
		if rate < low {
			low = rate
		}
		if rate > high {
			high = rate
		}
	}
	return minimumSampleSize(low, high)
}

func rateOf(cell observedCell) float64 {
	if cell.visitors == 0 {
		return 0
	}
	return float64(cell.conversions) / float64(cell.visitors)
}

func centsToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
