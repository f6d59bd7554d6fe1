package commands

import (
	"fmt"
	"strings"
	"github.com/spf13/viper"
	"github.com/bl4ck0w1/hostbrute/pkg/models"
)

// SetDefaults seeds v with the values of models.DefaultConfig under the
// same keys the YAML config file uses.
func SetDefaults(v *viper.Viper) {
	d := models.DefaultConfig()

	v.SetDefault("quiet", false)
	v.SetDefault("global.log_level", d.Global.LogLevel)
	v.SetDefault("global.log_format", d.Global.LogFormat)
	v.SetDefault("global.log_file", d.Global.LogFile)
	v.SetDefault("global.data_dir", d.Global.DataDir)

	v.SetDefault("brute.domain", d.Brute.Domain)
	v.SetDefault("brute.wordlist", d.Brute.Wordlist)
	v.SetDefault("brute.nameserver", d.Brute.Nameserver)
	v.SetDefault("brute.attempts", d.Brute.Attempts)
	v.SetDefault("brute.depth", d.Brute.Depth)
	v.SetDefault("brute.scan", string(d.Brute.Scan))
	v.SetDefault("brute.glue", d.Brute.Glue)
	v.SetDefault("brute.workers", d.Brute.Workers)
	v.SetDefault("brute.rate_limit", d.Brute.RateLimit)
	v.SetDefault("brute.timeout", d.Brute.Timeout)
	v.SetDefault("brute.lifetime", d.Brute.Lifetime)
	v.SetDefault("brute.retry_backoff", d.Brute.Backoff)
	v.SetDefault("brute.max_runtime", d.Brute.MaxRuntime)
	v.SetDefault("brute.delay_min", d.Brute.DelayMin)
	v.SetDefault("brute.delay_max", d.Brute.DelayMax)
	v.SetDefault("brute.adaptive_rate", false)
	v.SetDefault("brute.progress", true)

	v.SetDefault("reporting.formats", d.Reporting.Formats)
	v.SetDefault("reporting.output_dir", d.Reporting.OutputDir)
	v.SetDefault("reporting.compress", d.Reporting.Compress)

	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.compression", d.Storage.Compression)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
}

// ResolveConfig builds the typed configuration from flags, environment and
// config file as merged by v. The scan mode is kept verbatim so validation
// reports the value that was given.
func ResolveConfig(v *viper.Viper) (*models.Config, error) {
	cfg := &models.Config{
		Global: models.GlobalConfig{
			LogLevel:  v.GetString("global.log_level"),
			LogFormat: v.GetString("global.log_format"),
			LogFile:   v.GetString("global.log_file"),
			DataDir:   v.GetString("global.data_dir"),
		},
		Brute: models.BruteConfig{
			Domain:     strings.TrimSpace(v.GetString("brute.domain")),
			Wordlist:   v.GetString("brute.wordlist"),
			Nameserver: strings.TrimSpace(v.GetString("brute.nameserver")),
			Attempts:   v.GetInt("brute.attempts"),
			Depth:      v.GetInt("brute.depth"),
			Scan:       models.ScanMode(strings.ToLower(strings.TrimSpace(v.GetString("brute.scan")))),
			Glue:       v.GetBool("brute.glue"),
			Workers:    v.GetInt("brute.workers"),
			RateLimit:  v.GetFloat64("brute.rate_limit"),
			Timeout:    v.GetDuration("brute.timeout"),
			Lifetime:   v.GetDuration("brute.lifetime"),
			Backoff:    v.GetDuration("brute.retry_backoff"),
			MaxRuntime: v.GetDuration("brute.max_runtime"),
			DelayMin:   v.GetDuration("brute.delay_min"),
			DelayMax:   v.GetDuration("brute.delay_max"),
		},
		Reporting: models.ReportingConfig{
			Formats:   normalizeFormats(v.GetStringSlice("reporting.formats")),
			OutputDir: v.GetString("reporting.output_dir"),
			Compress:  v.GetBool("reporting.compress"),
		},
		Storage: models.StorageConfig{
			Path:        v.GetString("storage.path"),
			Compression: v.GetBool("storage.compression"),
		},
		Metrics: models.MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Addr:    v.GetString("metrics.addr"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}
	return cfg, nil
}

func normalizeFormats(in []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, f := range in {
		for _, part := range strings.Split(f, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part == "" || part == "none" || seen[part] {
				continue
			}
			seen[part] = true
			out = append(out, part)
		}
	}
	return out
}
