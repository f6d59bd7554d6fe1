package commands

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/bl4ck0w1/hostbrute/pkg/models"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestResolveConfigDefaults(t *testing.T) {
	cfg, err := ResolveConfig(newTestViper())
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}
	want := models.DefaultConfig()
	if cfg.Brute != want.Brute {
		t.Errorf("brute = %+v, want %+v", cfg.Brute, want.Brute)
	}
	if cfg.Storage != want.Storage || cfg.Metrics != want.Metrics {
		t.Errorf("storage/metrics = %+v %+v", cfg.Storage, cfg.Metrics)
	}
	if strings.Join(cfg.Reporting.Formats, ",") != "txt" {
		t.Errorf("formats = %v", cfg.Reporting.Formats)
	}
}

func TestResolveConfigEnvironment(t *testing.T) {
	t.Setenv("HOSTBRUTE_BRUTE_NAMESERVER", "127.0.0.1:5353")
	t.Setenv("HOSTBRUTE_BRUTE_DEPTH", "-1")
	t.Setenv("HOSTBRUTE_BRUTE_TIMEOUT", "500ms")
	t.Setenv("HOSTBRUTE_BRUTE_SCAN", "Both")

	v := newTestViper()
	v.SetEnvPrefix("HOSTBRUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	cfg, err := ResolveConfig(v)
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}
	b := cfg.Brute
	if b.Nameserver != "127.0.0.1:5353" || b.Depth != -1 || b.Timeout != 500*time.Millisecond || b.Scan != models.ScanBoth {
		t.Fatalf("environment not applied: %+v", b)
	}
	if b.EffectiveDepth() != models.MaxRecursionDepth {
		t.Errorf("EffectiveDepth = %d", b.EffectiveDepth())
	}
}

func TestResolveConfigRejectsInvalid(t *testing.T) {
	cases := map[string]func(v *viper.Viper){
		"scan":       func(v *viper.Viper) { v.Set("brute.scan", "zone") },
		"attempts":   func(v *viper.Viper) { v.Set("brute.attempts", 0) },
		"nameserver": func(v *viper.Viper) { v.Set("brute.nameserver", "dns.google") },
		"format":     func(v *viper.Viper) { v.Set("reporting.formats", []string{"pdf"}) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			v := newTestViper()
			mutate(v)
			if _, err := ResolveConfig(v); !errors.Is(err, models.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestNormalizeFormats(t *testing.T) {
	got := normalizeFormats([]string{"TXT, csv", "json", "csv", "none", ""})
	if strings.Join(got, ",") != "txt,csv,json" {
		t.Fatalf("got %v", got)
	}
	if normalizeFormats([]string{"none"}) != nil {
		t.Fatal("none should disable reports")
	}
}

func TestParseValueForKey(t *testing.T) {
	cases := []struct {
		key, raw string
		want     interface{}
	}{
		{"brute.glue", "false", false},
		{"brute.attempts", "5", 5},
		{"brute.rate_limit", "2.5", 2.5},
		{"brute.timeout", "1500ms", "1.5s"},
		{"brute.nameserver", "1.1.1.1", "1.1.1.1"},
	}
	for _, tc := range cases {
		if got := parseValueForKey(tc.key, tc.raw); got != tc.want {
			t.Errorf("parseValueForKey(%q, %q) = %#v, want %#v", tc.key, tc.raw, got, tc.want)
		}
	}
	list, ok := parseValueForKey("reporting.formats", "txt, json").([]string)
	if !ok || strings.Join(list, ",") != "txt,json" {
		t.Errorf("list = %#v", list)
	}
}

func TestSetProfileValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := models.DefaultConfig().Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := setProfileValue(path, "brute.nameserver", "9.9.9.9"); err != nil {
		t.Fatalf("setProfileValue: %v", err)
	}
	if _, err := setProfileValue(path, "brute.timeout", "750ms"); err != nil {
		t.Fatalf("setProfileValue: %v", err)
	}

	cfg := &models.Config{}
	if err := cfg.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Brute.Nameserver != "9.9.9.9" || cfg.Brute.Timeout != 750*time.Millisecond {
		t.Fatalf("profile not updated: %+v", cfg.Brute)
	}

	before, _ := os.ReadFile(path)
	if _, err := setProfileValue(path, "brute.scan", "zone"); !errors.Is(err, models.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) {
		t.Error("invalid value must not be written")
	}
}

func TestRunTarget(t *testing.T) {
	r := &models.RunResult{Config: models.BruteConfig{Domain: "example.com", Scan: models.ScanBoth}}
	if got := runTarget(r); got != "example.com + hosts table" {
		t.Errorf("both = %q", got)
	}
	r.Config.Scan = models.ScanTable
	if got := runTarget(r); got != "(hosts table)" {
		t.Errorf("table = %q", got)
	}
}

func TestCompletionCommand(t *testing.T) {
	root := &cobra.Command{Use: "hostbrute"}
	root.AddCommand(NewCompletionCommand())

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"completion", "bash"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out.String(), "hostbrute") {
		t.Fatal("bash completion script does not mention the binary")
	}

	root.SetArgs([]string{"completion", "tcsh"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected an error for an unsupported shell")
	}
}
