package processor

import (
	"errors"
	"sort"
	"time"

	"fundflow/models"
)

// ErrIntervalUnknown is returned when a funding history is too short to
// infer the settlement interval. Callers must treat the normalized rate as
// absent rather than assume a cadence.
var ErrIntervalUnknown = errors.New("funding interval indeterminate")

// Normalization is the result of rescaling a funding history onto the
// common 8-hour basis.
type Normalization struct {
	IntervalHours float64
	MeanFunding8h float64
}

// Normalize infers an exchange's funding cadence from historical settlement
// timestamps and rescales the mean settled rate to an 8-hour equivalent.
//
// The most recent event is always discarded: it is the in-progress interval
// and has not settled. The interval is the mode of the consecutive
// timestamp deltas, which keeps one irregular gap from skewing the
// estimate. Ties resolve to the smallest delta.
func Normalize(history []models.FundingEvent) (*Normalization, error) {
	if len(history) < 1 {
		return nil, ErrIntervalUnknown
	}
	settled := history[:len(history)-1]
	if len(settled) < 2 {
		return nil, ErrIntervalUnknown
	}

	deltas := make(map[time.Duration]int, len(settled)-1)
	for i := 1; i < len(settled); i++ {
		d := settled[i].Timestamp.Sub(settled[i-1].Timestamp)
		deltas[d]++
	}

	keys := make([]time.Duration, 0, len(deltas))
	for d := range deltas {
		keys = append(keys, d)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var mode time.Duration
	best := 0
	for _, d := range keys {
		if deltas[d] > best {
			best = deltas[d]
			mode = d
		}
	}
	intervalHours := mode.Hours()
	if intervalHours <= 0 {
		return nil, ErrIntervalUnknown
	}

	var sum float64
	for _, ev := range settled {
		sum += ev.Rate
	}
	mean := sum / float64(len(settled))

	return &Normalization{
		IntervalHours: intervalHours,
		MeanFunding8h: mean / intervalHours * 8,
	}, nil
}
