package writer

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"fundflow/models"
)

// expectancyHeader is the flat CSV layout, one column per parquet field.
var expectancyHeader = []string{
	"instrument", "long_exchange", "short_exchange", "spread",
	"long_funding_rate", "long_interval_hours", "long_mean_funding_8h",
	"long_avg_fill_price", "long_taker_fee",
	"short_funding_rate", "short_interval_hours", "short_mean_funding_8h",
	"short_avg_fill_price", "short_taker_fee",
	"execution_cost", "funding_pnl_8h", "expectancy",
}

func writeExpectancyCSV(path string, records []models.ExpectancyRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(expectancyHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write(expectancyCSVRow(rec)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// expectancyCSVRow renders one record, absent values as empty cells.
func expectancyCSVRow(rec models.ExpectancyRecord) []string {
	return []string{
		rec.Instrument,
		rec.LongExchange,
		rec.ShortExchange,
		formatFloat(rec.Spread),
		formatOptional(rec.Long.FundingRate),
		formatOptional(rec.Long.IntervalHours),
		formatOptional(rec.Long.MeanFunding8h),
		formatOptional(rec.Long.AvgFillPrice),
		formatOptional(rec.Long.TakerFeeAmount),
		formatOptional(rec.Short.FundingRate),
		formatOptional(rec.Short.IntervalHours),
		formatOptional(rec.Short.MeanFunding8h),
		formatOptional(rec.Short.AvgFillPrice),
		formatOptional(rec.Short.TakerFeeAmount),
		formatOptional(rec.ExecutionCost),
		formatOptional(rec.FundingPnL8h),
		formatOptional(rec.Expectancy),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
