package insights

import (
	"encoding/csv"
	"io"
	"strconv"
)

var csvHeader = []string{"variant", "visitors", "conversions", "conversion_rate", "revenue", "revenue_per_visitor"}

// WriteCSV serializes the per-variant rows of a report for dashboard
// download, one flat row per variant.
func WriteCSV(w io.Writer, report *Report) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, stats := range report.Variants {
		row := []string{
			stats.Variant,
			strconv.FormatInt(stats.Visitors, 10),
			strconv.FormatInt(stats.Conversions, 10),
			strconv.FormatFloat(stats.ConversionRate, 'f', 4, 64),
			stats.Revenue.StringFixed(2),
			stats.RevenuePerVisitor.StringFixed(2),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// CSVFilename names the export download for an experiment.
func CSVFilename(experimentName string) string {
	return "experiment-" + experimentName + "-metrics.csv"
}
