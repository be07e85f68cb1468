package processor

import (
	"sort"

	"fundflow/models"
)

// SortByExpectancy orders records best first. Records whose expectancy
// could not be computed sink to the bottom without disturbing the relative
// order they arrived in.
func SortByExpectancy(records []models.ExpectancyRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].Expectancy, records[j].Expectancy
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
}
