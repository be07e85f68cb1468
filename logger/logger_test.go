package logger

import (
	"os"
	"testing"
)

func TestWithComponent(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("test")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "test" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	// Ensure environment variables do not override the provided level
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("invalid", "json", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestWithEnv(t *testing.T) {
	os.Setenv("FOO", "bar")
	log := Logger()
	entry := log.WithEnv("FOO")
	if v, ok := entry.Entry.Data["FOO"]; !ok || v != "bar" {
		t.Fatalf("env field not set: %v", entry.Entry.Data)
	}
}

func TestScanCounters(t *testing.T) {
	before := legsEvaluated
	IncrementLegEvaluated(true)
	IncrementLegEvaluated(false)
	if legsEvaluated != before+2 {
		t.Errorf("legs evaluated = %d, want %d", legsEvaluated, before+2)
	}

	IncrementGatewayFetch("binance", 128)
	v, ok := exchangeStats.Load("binance")
	if !ok {
		t.Fatal("binance stats not recorded")
	}
	if v.(*exchangeStat).requests < 1 {
		t.Error("request count not incremented")
	}

	writesBefore, bytesBefore := artifactWrites, artifactBytes
	IncrementArtifactWrite(512)
	IncrementArtifactWrite(1024)
	if artifactWrites != writesBefore+2 {
		t.Errorf("artifact writes = %d, want %d", artifactWrites, writesBefore+2)
	}
	if artifactBytes != bytesBefore+1536 {
		t.Errorf("artifact bytes = %d, want %d", artifactBytes, bytesBefore+1536)
	}
}
