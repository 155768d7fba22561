package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
stream:
  symbol: BTCUSDT
`

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Stream.Symbol != "BTCUSDT" {
		t.Errorf("symbol = %q, want BTCUSDT", c.Stream.Symbol)
	}
	if c.Stream.Timeframe != "5m" {
		t.Errorf("timeframe = %q, want 5m", c.Stream.Timeframe)
	}
	if c.Server.Port != 8080 {
		t.Errorf("server port = %d, want 8080", c.Server.Port)
	}
	if c.Confluence.Mode != "WEIGHTED" {
		t.Errorf("confluence mode = %q, want WEIGHTED", c.Confluence.Mode)
	}
	if c.Evaluator.Deadline != 200*time.Millisecond {
		t.Errorf("evaluator deadline = %v, want 200ms", c.Evaluator.Deadline)
	}
	if c.Simulator.InitialEquity != 10000 {
		t.Errorf("initial equity = %v, want 10000", c.Simulator.InitialEquity)
	}
	if c.Kafka.Enabled {
		t.Error("kafka should be disabled by default")
	}
}

func TestLoadMissingSymbolFails(t *testing.T) {
	if _, err := Load(writeConfig(t, "environment: production\n")); err == nil {
		t.Fatal("expected validation error for missing symbol")
	}
}

func TestLoadInvalidModeFails(t *testing.T) {
	cfg := minimalConfig + `
confluence:
  mode: SOMETIMES
`
	if _, err := Load(writeConfig(t, cfg)); err == nil {
		t.Fatal("expected validation error for unknown mode")
	}
}

func TestLoadInvalidTimeframeFails(t *testing.T) {
	cfg := `
stream:
  symbol: BTCUSDT
  timeframe: 7m
`
	if _, err := Load(writeConfig(t, cfg)); err == nil {
		t.Fatal("expected validation error for unsupported timeframe")
	}
}

func TestLoadKafkaEnabledNeedsBrokers(t *testing.T) {
	cfg := minimalConfig + `
kafka:
  enabled: true
`
	if _, err := Load(writeConfig(t, cfg)); err == nil {
		t.Fatal("expected error for enabled kafka without brokers")
	}
}

func TestLoadNegativeDetectorWeightFails(t *testing.T) {
	cfg := minimalConfig + `
detectors:
  classic_rsi:
    enabled: true
    weight: -2
`
	if _, err := Load(writeConfig(t, cfg)); err == nil {
		t.Fatal("expected error for negative detector weight")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("SYMBOL", "ETHUSDT")
	t.Setenv("CONFLUENCE_MODE", "majority")

	c, err := LoadWithEnv(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("LoadWithEnv: %v", err)
	}
	if c.Stream.Symbol != "ETHUSDT" {
		t.Errorf("symbol = %q, want ETHUSDT", c.Stream.Symbol)
	}
	if c.Confluence.Mode != "MAJORITY" {
		t.Errorf("mode = %q, want MAJORITY", c.Confluence.Mode)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
