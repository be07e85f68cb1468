package writer

import (
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"fundflow/models"
)

// shortlistRow is the parquet layout for one ranked opportunity.
type shortlistRow struct {
	Instrument    string  `parquet:"name=instrument, type=BYTE_ARRAY, convertedtype=UTF8"`
	LongExchange  string  `parquet:"name=long_exchange, type=BYTE_ARRAY, convertedtype=UTF8"`
	ShortExchange string  `parquet:"name=short_exchange, type=BYTE_ARRAY, convertedtype=UTF8"`
	Spread        float64 `parquet:"name=spread, type=DOUBLE"`
}

// expectancyRow is the parquet layout for one fully evaluated opportunity.
// Leg fields are OPTIONAL: a null cell means the value could not be
// obtained, which is different from zero.
type expectancyRow struct {
	Instrument    string  `parquet:"name=instrument, type=BYTE_ARRAY, convertedtype=UTF8"`
	LongExchange  string  `parquet:"name=long_exchange, type=BYTE_ARRAY, convertedtype=UTF8"`
	ShortExchange string  `parquet:"name=short_exchange, type=BYTE_ARRAY, convertedtype=UTF8"`
	Spread        float64 `parquet:"name=spread, type=DOUBLE"`

	LongFundingRate   *float64 `parquet:"name=long_funding_rate, type=DOUBLE, repetitiontype=OPTIONAL"`
	LongIntervalHours *float64 `parquet:"name=long_interval_hours, type=DOUBLE, repetitiontype=OPTIONAL"`
	LongMeanFunding8h *float64 `parquet:"name=long_mean_funding_8h, type=DOUBLE, repetitiontype=OPTIONAL"`
	LongAvgFillPrice  *float64 `parquet:"name=long_avg_fill_price, type=DOUBLE, repetitiontype=OPTIONAL"`
	LongTakerFee      *float64 `parquet:"name=long_taker_fee, type=DOUBLE, repetitiontype=OPTIONAL"`

	ShortFundingRate   *float64 `parquet:"name=short_funding_rate, type=DOUBLE, repetitiontype=OPTIONAL"`
	ShortIntervalHours *float64 `parquet:"name=short_interval_hours, type=DOUBLE, repetitiontype=OPTIONAL"`
	ShortMeanFunding8h *float64 `parquet:"name=short_mean_funding_8h, type=DOUBLE, repetitiontype=OPTIONAL"`
	ShortAvgFillPrice  *float64 `parquet:"name=short_avg_fill_price, type=DOUBLE, repetitiontype=OPTIONAL"`
	ShortTakerFee      *float64 `parquet:"name=short_taker_fee, type=DOUBLE, repetitiontype=OPTIONAL"`

	ExecutionCost *float64 `parquet:"name=execution_cost, type=DOUBLE, repetitiontype=OPTIONAL"`
	FundingPnL8h  *float64 `parquet:"name=funding_pnl_8h, type=DOUBLE, repetitiontype=OPTIONAL"`
	Expectancy    *float64 `parquet:"name=expectancy, type=DOUBLE, repetitiontype=OPTIONAL"`
}

func toShortlistRow(opp models.Opportunity) shortlistRow {
	return shortlistRow{
		Instrument:    opp.Instrument,
		LongExchange:  opp.LongExchange,
		ShortExchange: opp.ShortExchange,
		Spread:        opp.Spread,
	}
}

func toExpectancyRow(rec models.ExpectancyRecord) expectancyRow {
	return expectancyRow{
		Instrument:    rec.Instrument,
		LongExchange:  rec.LongExchange,
		ShortExchange: rec.ShortExchange,
		Spread:        rec.Spread,

		LongFundingRate:   rec.Long.FundingRate,
		LongIntervalHours: rec.Long.IntervalHours,
		LongMeanFunding8h: rec.Long.MeanFunding8h,
		LongAvgFillPrice:  rec.Long.AvgFillPrice,
		LongTakerFee:      rec.Long.TakerFeeAmount,

		ShortFundingRate:   rec.Short.FundingRate,
		ShortIntervalHours: rec.Short.IntervalHours,
		ShortMeanFunding8h: rec.Short.MeanFunding8h,
		ShortAvgFillPrice:  rec.Short.AvgFillPrice,
		ShortTakerFee:      rec.Short.TakerFeeAmount,

		ExecutionCost: rec.ExecutionCost,
		FundingPnL8h:  rec.FundingPnL8h,
		Expectancy:    rec.Expectancy,
	}
}

func compressionCodec(name string) parquet.CompressionCodec {
	switch name {
	case "snappy":
		return parquet.CompressionCodec_SNAPPY
	case "gzip":
		return parquet.CompressionCodec_GZIP
	case "lzo":
		return parquet.CompressionCodec_LZO
	default:
		return parquet.CompressionCodec_UNCOMPRESSED
	}
}

// writeParquetFile writes rows to path. sample is a pointer to the zero row
// type, rows must be a slice of that type.
func writeParquetFile(path string, sample interface{}, write func(pw *writer.ParquetWriter) error, compression string) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create parquet file %s: %w", path, err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, sample, 4)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = compressionCodec(compression)

	if err := write(pw); err != nil {
		pw.WriteStop()
		return err
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finalize parquet file: %w", err)
	}
	return nil
}
