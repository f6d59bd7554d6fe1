package models

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseScanMode(t *testing.T) {
	for in, want := range map[string]ScanMode{"domain": ScanDomain, " Table ": ScanTable, "BOTH": ScanBoth} {
		got, err := ParseScanMode(in)
		if err != nil || got != want {
			t.Errorf("ParseScanMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseScanMode("hosts"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestEffectiveDepth(t *testing.T) {
	tests := map[int]int{0: 0, 1: 1, 5: 5, -1: MaxRecursionDepth, -50: MaxRecursionDepth, 1000: MaxRecursionDepth}
	for depth, want := range tests {
		b := BruteConfig{Depth: depth}
		if got := b.EffectiveDepth(); got != want {
			t.Errorf("EffectiveDepth(%d) = %d, want %d", depth, got, want)
		}
	}
}

func TestBruteConfigValidate(t *testing.T) {
	valid := DefaultBruteConfig()
	valid.Domain = "example.com"
	if err := valid.Validate(); err != nil {
		t.Fatalf("default config with a domain should be valid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*BruteConfig)
		want   string
	}{
		{"bad scan", func(b *BruteConfig) { b.Scan = "all" }, "brute.scan"},
		{"missing domain", func(b *BruteConfig) { b.Domain = "" }, "brute.domain"},
		{"zero attempts", func(b *BruteConfig) { b.Attempts = 0 }, "brute.attempts"},
		{"hostname nameserver", func(b *BruteConfig) { b.Nameserver = "dns.google" }, "brute.nameserver"},
		{"negative workers", func(b *BruteConfig) { b.Workers = -1 }, "brute.workers"},
		{"negative rate", func(b *BruteConfig) { b.RateLimit = -2 }, "brute.rate_limit"},
		{"negative timeout", func(b *BruteConfig) { b.Timeout = -time.Second }, "durations"},
		{"delay range inverted", func(b *BruteConfig) { b.DelayMin = time.Second; b.DelayMax = time.Millisecond }, "delay_max"},
	}
	for _, tt := range tests {
		b := valid
		tt.mutate(&b)
		err := b.Validate()
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: expected ErrInvalidConfig, got %v", tt.name, err)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: expected %q in %q", tt.name, tt.want, err.Error())
		}
	}

	table := valid
	table.Scan = ScanTable
	table.Domain = ""
	if err := table.Validate(); err != nil {
		t.Errorf("table scans need no domain: %v", err)
	}

	withPort := valid
	withPort.Nameserver = "127.0.0.1:5353"
	if err := withPort.Validate(); err != nil {
		t.Errorf("nameserver with port should be valid: %v", err)
	}
}

func TestConfigSaveLoad(t *testing.T) {
	for _, name := range []string{"config.yaml", "config.json"} {
		path := filepath.Join(t.TempDir(), name)
		cfg := DefaultConfig()
		cfg.Brute.Depth = 2
		cfg.Brute.Workers = 4
		cfg.Reporting.Formats = []string{"json", "csv"}

		if err := cfg.Save(path); err != nil {
			t.Fatalf("%s: Save: %v", name, err)
		}
		loaded := &Config{}
		if err := loaded.Load(path); err != nil {
			t.Fatalf("%s: Load: %v", name, err)
		}
		if loaded.Brute.Depth != 2 || loaded.Brute.Workers != 4 || loaded.Brute.Timeout != 2*time.Second {
			t.Errorf("%s: brute section not round-tripped: %+v", name, loaded.Brute)
		}
		if len(loaded.Reporting.Formats) != 2 {
			t.Errorf("%s: formats not round-tripped: %v", name, loaded.Reporting.Formats)
		}
	}
}

func TestConfigValidateCollectsProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Global.LogLevel = "loud"
	cfg.Reporting.Formats = []string{"pdf"}
	cfg.Brute.Attempts = 0

	err := cfg.Validate()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	for _, want := range []string{"global.log_level", "reporting.format", "brute.attempts"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %q", want, err.Error())
		}
	}
}
