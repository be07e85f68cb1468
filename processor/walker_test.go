package processor

import (
	"errors"
	"math"
	"testing"

	"fundflow/models"
)

func TestWalkBookSingleLevel(t *testing.T) {
	levels := []models.BookLevel{{Price: 100, Quantity: 50}}
	fill, err := WalkBook(levels, 1000)
	if err != nil {
		t.Fatalf("WalkBook: %v", err)
	}
	if fill.AveragePrice != 100 {
		t.Errorf("avg price = %v, want 100", fill.AveragePrice)
	}
	if fill.FilledQuantity != 10 {
		t.Errorf("filled = %v, want 10", fill.FilledQuantity)
	}
}

func TestWalkBookConsumesDepth(t *testing.T) {
	// 5 units at 100 exhausts 500; the rest fills at 110.
	levels := []models.BookLevel{
		{Price: 100, Quantity: 5},
		{Price: 110, Quantity: 100},
	}
	fill, err := WalkBook(levels, 1000)
	if err != nil {
		t.Fatalf("WalkBook: %v", err)
	}
	wantQty := 5 + 500.0/110
	if math.Abs(fill.FilledQuantity-wantQty) > 1e-9 {
		t.Errorf("filled = %v, want %v", fill.FilledQuantity, wantQty)
	}
	wantAvg := 1000 / wantQty
	if math.Abs(fill.AveragePrice-wantAvg) > 1e-9 {
		t.Errorf("avg price = %v, want %v", fill.AveragePrice, wantAvg)
	}
}

func TestWalkBookPartialFill(t *testing.T) {
	levels := []models.BookLevel{{Price: 100, Quantity: 2}}
	fill, err := WalkBook(levels, 1000)
	if err != nil {
		t.Fatalf("WalkBook: %v", err)
	}
	if fill.FilledQuantity != 2 {
		t.Errorf("filled = %v, want 2 (book exhausted)", fill.FilledQuantity)
	}
	if fill.AveragePrice != 100 {
		t.Errorf("avg price = %v, want 100", fill.AveragePrice)
	}
}

func TestWalkBookEmptySide(t *testing.T) {
	if _, err := WalkBook(nil, 1000); !errors.Is(err, ErrNoLiquidity) {
		t.Fatalf("err = %v, want ErrNoLiquidity", err)
	}
	if _, err := WalkBook([]models.BookLevel{}, 1000); !errors.Is(err, ErrNoLiquidity) {
		t.Fatalf("err = %v, want ErrNoLiquidity", err)
	}
}

func TestWalkBookBudgetInvariant(t *testing.T) {
	books := [][]models.BookLevel{
		{{Price: 99.7, Quantity: 1.3}, {Price: 101.2, Quantity: 0.4}, {Price: 105, Quantity: 9}},
		{{Price: 0.0421, Quantity: 50000}, {Price: 0.0433, Quantity: 120000}},
		{{Price: 64231.5, Quantity: 0.001}},
	}
	for i, levels := range books {
		fill, err := WalkBook(levels, 1000)
		if err != nil {
			t.Fatalf("book %d: %v", i, err)
		}
		if fill.FilledQuantity*fill.AveragePrice > 1000+1e-9 {
			t.Errorf("book %d: spent %v exceeds budget", i, fill.FilledQuantity*fill.AveragePrice)
		}
	}
}

func TestWalkBookIdempotent(t *testing.T) {
	levels := []models.BookLevel{
		{Price: 100, Quantity: 3},
		{Price: 101, Quantity: 8},
	}
	first, err := WalkBook(levels, 1000)
	if err != nil {
		t.Fatalf("WalkBook: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := WalkBook(levels, 1000)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if *again != *first {
			t.Fatalf("run %d: %+v != %+v", i, again, first)
		}
	}
}
