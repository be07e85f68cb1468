package gateway

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errNotListed = errors.New("not listed")

func TestResolveFirstConvention(t *testing.T) {
	var tried []string
	err := Resolve("binance", "BTC", func(err error) bool { return errors.Is(err, errNotListed) },
		func(contract string) error {
			tried = append(tried, contract)
			return nil
		})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(tried) != 1 || tried[0] != "BTCUSDT" {
		t.Errorf("expected single USDT attempt, got %v", tried)
	}
}

func TestResolveFallsThroughConventions(t *testing.T) {
	var tried []string
	err := Resolve("okx", "BTC", func(err error) bool { return errors.Is(err, errNotListed) },
		func(contract string) error {
			tried = append(tried, contract)
			if contract == "BTC-USDC-SWAP" {
				return nil
			}
			return errNotListed
		})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []string{"BTC-USDT-SWAP", "BTC-USD-SWAP", "BTC-USDC-SWAP"}
	if len(tried) != len(want) {
		t.Fatalf("tried %v, want %v", tried, want)
	}
	for i := range want {
		if tried[i] != want[i] {
			t.Errorf("attempt %d = %s, want %s", i, tried[i], want[i])
		}
	}
}

func TestResolveAllConventionsFail(t *testing.T) {
	err := Resolve("binance", "NOPE", func(err error) bool { return true },
		func(string) error { return errNotListed })
	if !errors.Is(err, ErrSymbolNotFound) {
		t.Fatalf("err = %v, want ErrSymbolNotFound", err)
	}
}

func TestResolveAbortsOnTransientError(t *testing.T) {
	transient := errors.New("connection reset")
	calls := 0
	err := Resolve("binance", "BTC", func(err error) bool { return errors.Is(err, errNotListed) },
		func(string) error {
			calls++
			return transient
		})
	if !errors.Is(err, transient) {
		t.Fatalf("err = %v, want transient error surfaced", err)
	}
	if calls != 1 {
		t.Errorf("transient error should stop resolution, got %d calls", calls)
	}
}

func TestRetryPolicyDefaultsToSingleAttempt(t *testing.T) {
	calls := 0
	p := RetryPolicy{}
	_ = p.Do(context.Background(), func() error {
		calls++
		return errors.New("boom")
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryPolicyRetriesTransient(t *testing.T) {
	calls := 0
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("timeout")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryPolicySkipsSymbolMisses(t *testing.T) {
	calls := 0
	p := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond}
	err := p.Do(context.Background(), func() error {
		calls++
		return ErrSymbolNotFound
	})
	if !errors.Is(err, ErrSymbolNotFound) {
		t.Fatalf("err = %v", err)
	}
	if calls != 1 {
		t.Errorf("symbol miss retried %d times", calls)
	}
}

func TestRetryPolicyHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Hour}
	err := p.Do(ctx, func() error { return errors.New("timeout") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRegistryLookup(t *testing.T) {
	reg := Registry{}
	if _, ok := reg.Lookup("binance"); ok {
		t.Fatal("empty registry should not resolve")
	}
}
