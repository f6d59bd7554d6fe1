package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
	"github.com/bl4ck0w1/hostbrute/pkg/models"
)

func NewConfigureCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Manage hostbrute configuration",
		Long: `Manage hostbrute configuration profiles, view the resolved settings
and initialize configuration files.`,
	}

	cmd.AddCommand(newConfigureInitCommand())
	cmd.AddCommand(newConfigureShowCommand())
	cmd.AddCommand(newConfigureListCommand())
	cmd.AddCommand(newConfigureSetCommand())
	cmd.AddCommand(newConfigureGetCommand())
	return cmd
}

func newConfigureInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [profile]",
		Short: "Initialize a new configuration profile",
		Long:  `Initialize a new configuration profile with default values (YAML).`,
		Args:  cobra.MaximumNArgs(1),
		RunE:  runConfigureInit,
	}
	cmd.Flags().Bool("force", false, "Overwrite an existing profile without asking")
	return cmd
}

func newConfigureShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		Long:  `Show the configuration after merging defaults, config file, environment and flags.`,
		Args:  cobra.NoArgs,
		RunE:  runConfigureShow,
	}
}

func newConfigureListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available configuration profiles",
		RunE:  runConfigureList,
	}
}

func newConfigureSetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value for the selected profile.
Supports dotted keys (e.g. "brute.nameserver") and basic type parsing:
- booleans: true/false
- integers/floats: 10, 2.5
- durations (for timeout, lifetime, backoff and runtime keys): "2s", "10m"
- string lists: "txt,csv" -> ["txt","csv"]
The profile is validated before it is written.`,
		Args: cobra.ExactArgs(2),
		RunE: runConfigureSet,
	}
	cmd.Flags().StringP("profile", "p", "config", "Configuration profile")
	return cmd
}

func newConfigureGetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE:  runConfigureGet,
	}
	cmd.Flags().StringP("profile", "p", "config", "Configuration profile")
	return cmd
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".hostbrute"), nil
}

func profilePath(profile string) (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	profile = strings.TrimSpace(profile)
	if profile == "" {
		profile = "config"
	}
	return filepath.Join(dir, models.SanitizeFilename(profile)+".yaml"), nil
}

func runConfigureInit(cmd *cobra.Command, args []string) error {
	profile := "config"
	if len(args) > 0 {
		profile = args[0]
	}
	configFile, err := profilePath(profile)
	if err != nil {
		return err
	}

	force, _ := cmd.Flags().GetBool("force")
	if _, err := os.Stat(configFile); err == nil && !force {
		logrus.Warnf("Configuration file already exists: %s", configFile)
		ok, ierr := confirmOverwrite()
		if ierr != nil {
			return ierr
		}
		if !ok {
			logrus.Info("Configuration initialization cancelled")
			return nil
		}
	}

	if err := models.DefaultConfig().Save(configFile); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	logrus.Infof("Configuration initialized: %s", configFile)
	return nil
}

func runConfigureShow(cmd *cobra.Command, args []string) error {
	cfg, err := ResolveConfig(viper.GetViper())
	if err != nil {
		return err
	}
	source := viper.ConfigFileUsed()
	if source == "" {
		source = "(defaults)"
	}

	fmt.Printf("Configuration from %s\n", source)
	fmt.Println("═══════════════════════════════════════════════════════════════")
	printConfig(os.Stdout, cfg)
	return nil
}

func printConfig(out io.Writer, cfg *models.Config) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	b := cfg.Brute

	fmt.Fprintln(w, "GENERAL SETTINGS:\t")
	fmt.Fprintf(w, "  Log Level:\t%s\n", cfg.Global.LogLevel)
	fmt.Fprintf(w, "  Log Format:\t%s\n", cfg.Global.LogFormat)
	fmt.Fprintf(w, "  Data Directory:\t%s\n", cfg.Global.DataDir)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "BRUTE SETTINGS:\t")
	fmt.Fprintf(w, "  Domain:\t%s\n", b.Domain)
	fmt.Fprintf(w, "  Wordlist:\t%s\n", b.Wordlist)
	fmt.Fprintf(w, "  Nameserver:\t%s\n", b.Nameserver)
	fmt.Fprintf(w, "  Scan:\t%s\n", b.Scan)
	fmt.Fprintf(w, "  Depth:\t%d (effective %d)\n", b.Depth, b.EffectiveDepth())
	fmt.Fprintf(w, "  Glue:\t%t\n", b.Glue)
	fmt.Fprintf(w, "  Attempts:\t%d\n", b.Attempts)
	fmt.Fprintf(w, "  Workers:\t%d\n", b.Workers)
	fmt.Fprintf(w, "  Rate Limit:\t%g/s\n", b.RateLimit)
	fmt.Fprintf(w, "  Timeout / Lifetime:\t%s / %s\n", b.Timeout, b.Lifetime)
	fmt.Fprintf(w, "  Retry Backoff:\t%s\n", b.Backoff)
	fmt.Fprintf(w, "  Max Runtime:\t%s\n", b.MaxRuntime)
	fmt.Fprintf(w, "  Query Delay:\t%s - %s\n", b.DelayMin, b.DelayMax)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "OUTPUT SETTINGS:\t")
	fmt.Fprintf(w, "  Report Formats:\t%v\n", cfg.Reporting.Formats)
	fmt.Fprintf(w, "  Report Directory:\t%s\n", cfg.Reporting.OutputDir)
	fmt.Fprintf(w, "  Hosts Table:\t%s\n", cfg.Storage.Path)
	fmt.Fprintf(w, "  Metrics:\t%t (%s)\n", cfg.Metrics.Enabled, cfg.Metrics.Addr)

	_ = w.Flush()
}

func runConfigureList(cmd *cobra.Command, args []string) error {
	dir, err := configDir()
	if err != nil {
		return err
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return fmt.Errorf("failed to list configuration files: %w", err)
	}
	if len(files) == 0 {
		logrus.Info("No configuration profiles found. Run 'hostbrute configure init' to create one.")
		return nil
	}

	fmt.Println("Available configuration profiles:")
	fmt.Println("═══════════════════════════════════════════════════════════════")
	for _, file := range files {
		fmt.Printf("  • %s\n", strings.TrimSuffix(filepath.Base(file), ".yaml"))
	}
	return nil
}

func runConfigureSet(cmd *cobra.Command, args []string) error {
	profile, _ := cmd.Flags().GetString("profile")
	key := strings.TrimSpace(args[0])
	path, err := profilePath(profile)
	if err != nil {
		return err
	}
	val, err := setProfileValue(path, key, args[1])
	if err != nil {
		return err
	}
	logrus.Infof("Set %s = %v in profile %s", key, val, profile)
	return nil
}

// setProfileValue updates one dotted key of the YAML profile at path. The
// result must still load as a valid configuration.
func setProfileValue(path, key, raw string) (interface{}, error) {
	doc, err := loadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	val := parseValueForKey(key, raw)
	setNested(doc, strings.Split(key, "."), val)

	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	cfg := models.DefaultConfig()
	if err := yaml.Unmarshal(out, cfg); err != nil {
		return nil, fmt.Errorf("value %q does not fit %s: %w", raw, key, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return nil, err
	}
	if err := os.Rename(tmp, path); err != nil {
		return nil, err
	}
	return val, nil
}

func runConfigureGet(cmd *cobra.Command, args []string) error {
	profile, _ := cmd.Flags().GetString("profile")
	key := strings.TrimSpace(args[0])
	path, err := profilePath(profile)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("profile %s does not exist", profile)
	}

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to load profile %s: %w", profile, err)
	}
	fmt.Printf("%s = %v\n", key, v.Get(key))
	return nil
}

func loadConfigFile(path string) (map[string]interface{}, error) {
	doc := map[string]interface{}{}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return doc, nil
}

func setNested(dst map[string]interface{}, keys []string, val interface{}) {
	if len(keys) == 0 {
		return
	}
	if len(keys) == 1 {
		dst[keys[0]] = val
		return
	}
	k := keys[0]
	child, ok := dst[k].(map[string]interface{})
	if !ok {
		child = map[string]interface{}{}
	}
	setNested(child, keys[1:], val)
	dst[k] = child
}

func parseValueForKey(key, s string) interface{} {
	trim := strings.TrimSpace(s)

	if strings.Contains(trim, ",") {
		parts := strings.Split(trim, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				out = append(out, t)
			}
		}
		return out
	}

	if b, err := strconv.ParseBool(trim); err == nil {
		return b
	}

	if i, err := strconv.Atoi(trim); err == nil {
		return i
	}

	if f, err := strconv.ParseFloat(trim, 64); err == nil {
		return f
	}

	if containsAny(strings.ToLower(key), []string{"timeout", "lifetime", "backoff", "runtime", "delay"}) {
		if d, err := time.ParseDuration(trim); err == nil {
			return d.String()
		}
	}
	return trim
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func confirmOverwrite() (bool, error) {
	fmt.Print("Configuration file already exists. Overwrite? (y/N): ")
	reader := bufio.NewReader(os.Stdin)
	resp, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	resp = strings.TrimSpace(resp)
	return resp == "y" || resp == "Y", nil
}
