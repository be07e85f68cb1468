package models

import "testing"

func TestFloat(t *testing.T) {
	p := Float(0.0005)
	if p == nil || *p != 0.0005 {
		t.Fatalf("unexpected pointer value: %v", p)
	}
	// Zero must still be a present value, distinct from absence.
	z := Float(0)
	if z == nil {
		t.Fatal("Float(0) returned nil")
	}
}

func TestFundingTableMissingCell(t *testing.T) {
	table := FundingTable{
		"BTC": {"binance": 0.0001},
	}
	if _, ok := table["BTC"]["okx"]; ok {
		t.Fatal("expected missing cell for okx")
	}
	if _, ok := table["BTC"]["binance"]; !ok {
		t.Fatal("expected binance cell to be present")
	}
}
