package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"
	"gopkg.in/yaml.v3"
)

const MaxRecursionDepth = 127

var ErrInvalidConfig = errors.New("invalid configuration")

type ScanMode string

const (
	ScanDomain ScanMode = "domain"
	ScanTable  ScanMode = "table"
	ScanBoth   ScanMode = "both"
)

func ParseScanMode(s string) (ScanMode, error) {
	switch m := ScanMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ScanDomain, ScanTable, ScanBoth:
		return m, nil
	default:
		return "", fmt.Errorf("%w: scan must be set to either 'domain', 'table', or 'both' (got %q)", ErrInvalidConfig, s)
	}
}

func (m ScanMode) IncludesDomain() bool { return m == ScanDomain || m == ScanBoth }
func (m ScanMode) IncludesTable() bool  { return m == ScanTable || m == ScanBoth }

type Config struct {
	Global    GlobalConfig    `yaml:"global" json:"global"`
	Brute     BruteConfig     `yaml:"brute" json:"brute"`
	Reporting ReportingConfig `yaml:"reporting" json:"reporting"`
	Storage   StorageConfig   `yaml:"storage" json:"storage"`
	Metrics   MetricsConfig   `yaml:"metrics" json:"metrics"`
}

type GlobalConfig struct {
	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`
	LogFile   string `yaml:"log_file" json:"log_file"`
	DataDir   string `yaml:"data_dir" json:"data_dir"`
}

// BruteConfig is the resolved configuration record handed to the engine.
// It is read-only once a run has started.
type BruteConfig struct {
	Domain     string        `yaml:"domain" json:"domain"`
	Wordlist   string        `yaml:"wordlist" json:"wordlist"`
	Nameserver string        `yaml:"nameserver" json:"nameserver"`
	Attempts   int           `yaml:"attempts" json:"attempts"`
	Depth      int           `yaml:"depth" json:"depth"`
	Scan       ScanMode      `yaml:"scan" json:"scan"`
	Glue       bool          `yaml:"glue" json:"glue"`
	Workers    int           `yaml:"workers" json:"workers"`
	RateLimit  float64       `yaml:"rate_limit" json:"rate_limit"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	Lifetime   time.Duration `yaml:"lifetime" json:"lifetime"`
	Backoff    time.Duration `yaml:"retry_backoff" json:"retry_backoff"`
	MaxRuntime time.Duration `yaml:"max_runtime" json:"max_runtime"`
	DelayMin   time.Duration `yaml:"delay_min" json:"delay_min"`
	DelayMax   time.Duration `yaml:"delay_max" json:"delay_max"`
}

type ReportingConfig struct {
	Formats   []string `yaml:"formats" json:"formats"`
	OutputDir string   `yaml:"output_dir" json:"output_dir"`
	Compress  bool     `yaml:"compress" json:"compress"`
}

type StorageConfig struct {
	Path        string `yaml:"path" json:"path"`
	Compression bool   `yaml:"compression" json:"compression"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
}

func DefaultBruteConfig() BruteConfig {
	return BruteConfig{
		Wordlist:   "./data/hostnames.txt",
		Nameserver: "8.8.8.8",
		Attempts:   3,
		Depth:      0,
		Scan:       ScanDomain,
		Glue:       true,
		Workers:    1,
		Timeout:    2 * time.Second,
		Lifetime:   3 * time.Second,
	}
}

func DefaultConfig() *Config {
	return &Config{
		Global: GlobalConfig{
			LogLevel:  "info",
			LogFormat: "text",
			DataDir:   "./data",
		},
		Brute: DefaultBruteConfig(),
		Reporting: ReportingConfig{
			Formats:   []string{"txt"},
			OutputDir: "./reports",
		},
		Storage: StorageConfig{
			Path:        "./data/hosts.json",
			Compression: false,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9109",
		},
	}
}

// EffectiveDepth maps a negative depth to the recursion cap.
func (b BruteConfig) EffectiveDepth() int {
	if b.Depth < 0 {
		return MaxRecursionDepth
	}
	if b.Depth > MaxRecursionDepth {
		return MaxRecursionDepth
	}
	return b.Depth
}

func (b BruteConfig) Validate() error {
	errs := b.problems(true)
	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalidConfig, strings.Join(errs, "\n  - "))
	}
	return nil
}

// problems lists every invalid field. A saved profile may omit the target
// domain, it is then supplied per run.
func (b BruteConfig) problems(requireDomain bool) []string {
	var errs []string

	switch b.Scan {
	case ScanDomain, ScanTable, ScanBoth:
		if requireDomain && b.Scan.IncludesDomain() && strings.TrimSpace(b.Domain) == "" {
			errs = append(errs, "brute.domain is required when scan includes 'domain'")
		}
	default:
		errs = append(errs, fmt.Sprintf("brute.scan must be set to either 'domain', 'table', or 'both' (got %q)", string(b.Scan)))
	}
	if b.Attempts < 1 {
		errs = append(errs, "brute.attempts must be >= 1")
	}
	if b.Nameserver == "" {
		errs = append(errs, "brute.nameserver must not be empty")
	} else if host, _, err := net.SplitHostPort(b.Nameserver); err == nil {
		if net.ParseIP(host) == nil {
			errs = append(errs, "brute.nameserver must be an IP address")
		}
	} else if net.ParseIP(b.Nameserver) == nil {
		errs = append(errs, "brute.nameserver must be an IP address")
	}
	if b.Wordlist == "" {
		errs = append(errs, "brute.wordlist must not be empty")
	}
	if b.Workers < 0 {
		errs = append(errs, "brute.workers must be >= 0")
	}
	if b.RateLimit < 0 {
		errs = append(errs, "brute.rate_limit must be >= 0")
	}
	if b.Timeout < 0 || b.Lifetime < 0 || b.Backoff < 0 || b.MaxRuntime < 0 || b.DelayMin < 0 || b.DelayMax < 0 {
		errs = append(errs, "brute durations (timeout, lifetime, retry_backoff, max_runtime, delay_min, delay_max) must be >= 0")
	}
	if b.DelayMax > 0 && b.DelayMax < b.DelayMin {
		errs = append(errs, "brute.delay_max must not be below brute.delay_min")
	}
	return errs
}

func (c *Config) Validate() error {
	var errs []string

	switch strings.ToLower(c.Global.LogLevel) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic":
	default:
		errs = append(errs, "global.log_level must be one of trace|debug|info|warn|error|fatal|panic")
	}
	switch strings.ToLower(c.Global.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, "global.log_format must be text or json")
	}

	for _, f := range c.Reporting.Formats {
		switch f {
		case "txt", "csv", "json", "yaml":
		default:
			errs = append(errs, fmt.Sprintf("reporting.format %q is not supported", f))
		}
	}
	if len(c.Reporting.Formats) > 0 && c.Reporting.OutputDir == "" {
		errs = append(errs, "reporting.output_dir must not be empty")
	}
	if c.Storage.Path == "" {
		errs = append(errs, "storage.path must not be empty")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, "metrics.addr must be set when metrics are enabled")
	}

	errs = append(errs, c.Brute.problems(false)...)

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalidConfig, strings.Join(errs, "\n  - "))
	}
	return nil
}

func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
	default:
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("atomically write config: %w", err)
	}
	return nil
}

func (c *Config) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse yaml: %w", err)
		}
	}

	return c.Validate()
}
