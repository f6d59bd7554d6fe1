package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/bl4ck0w1/hostbrute/cmd/hostbrute/commands"
	"github.com/bl4ck0w1/hostbrute/pkg/models"
	"github.com/bl4ck0w1/hostbrute/pkg/utils"
)

var (
	version   = "1.0.0"
	commit    = "unknown"
	buildDate = "unknown"
)

var appLogger *utils.Logger

var rootCmd = &cobra.Command{
	Use:     "hostbrute",
	Short:   "hostbrute - DNS hostname and subdomain brute forcer",
	Long:    "hostbrute detects wildcard DNS, brute forces A/CNAME hostnames from a wordlist and recurses into NS delegated subdomains.",
	Version: version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		if err := initLogging(); err != nil {
			return err
		}

		if err := ensureDirs(); err != nil {
			logrus.Warnf("Failed to ensure directories: %v", err)
		}

		if !viper.GetBool("quiet") && cmd.Name() == "brute" {
			printBanner()
		}
		return nil
	},
}

func Execute() {
	err := rootCmd.Execute()
	if appLogger != nil {
		_ = appLogger.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.hostbrute/config.yaml)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet mode (no banner or progress output)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error, fatal); debug shows every lookup")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().String("log-file", "", "log file path")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("global.log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("global.log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("global.log_file", rootCmd.PersistentFlags().Lookup("log-file"))

	rootCmd.AddCommand(commands.NewBruteCommand(version))
	rootCmd.AddCommand(commands.NewHostsCommand())
	rootCmd.AddCommand(commands.NewRunsCommand())
	rootCmd.AddCommand(commands.NewConfigureCommand())
	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, buildDate))
	rootCmd.AddCommand(commands.NewCompletionCommand())

	installConsolidatedHelp(rootCmd)

	rootCmd.SetVersionTemplate(fmt.Sprintf("hostbrute %s (commit %s, built %s)\n", version, commit, buildDate))
}

func initConfig() error {
	commands.SetDefaults(viper.GetViper())
	viper.SetEnvPrefix("HOSTBRUTE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("get home dir: %w", err)
		}
		viper.AddConfigPath(filepath.Join(home, ".hostbrute"))
		viper.AddConfigPath("/etc/hostbrute/")
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logrus.Warnf("Failed reading config file: %v", err)
		}
	} else {
		logrus.Debugf("Using config file: %s", viper.ConfigFileUsed())
	}

	return nil
}

func initLogging() error {
	logConfig := utils.LogConfig{
		Level:         viper.GetString("global.log_level"),
		Format:        viper.GetString("global.log_format"),
		FileLocation:  viper.GetString("global.log_file"),
		EnableConsole: true,
	}

	logger, err := utils.NewLogger(logConfig, "hostbrute", version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize structured logger, falling back: %v\n", err)
		logrus.SetLevel(logrus.InfoLevel)
		return nil
	}

	appLogger = logger
	logrus.SetOutput(logger.Out)
	logrus.SetLevel(logger.Level)
	logrus.SetFormatter(logger.Formatter)

	for _, hooks := range logger.Hooks {
		for _, h := range hooks {
			logrus.AddHook(h)
		}
	}
	return nil
}

func ensureDirs() error {
	dirs := []string{
		viper.GetString("global.data_dir"),
		filepath.Dir(viper.GetString("storage.path")),
	}
	if len(viper.GetStringSlice("reporting.formats")) > 0 {
		dirs = append(dirs, viper.GetString("reporting.output_dir"))
	}
	for _, d := range dirs {
		if d == "" || d == "." {
			continue
		}
		if err := utils.EnsureDir(d); err != nil {
			return fmt.Errorf("ensure dir %s: %w", d, err)
		}
	}
	return nil
}

func printBanner() {
	const banner = `
  _               _   _                _
 | |__   ___  ___| |_| |__  _ __ _   _| |_ ___
 | '_ \ / _ \/ __| __| '_ \| '__| | | | __/ _ \
 | | | | (_) \__ \ |_| |_) | |  | |_| | ||  __/
 |_| |_|\___/|___/\__|_.__/|_|   \__,_|\__\___|   v%s

`
	fmt.Fprintf(os.Stderr, banner, version)
	fmt.Fprintf(os.Stderr, "Build: %s (%s) | %s/%s\n\n", commit, buildDate, runtime.GOOS, runtime.GOARCH)
}

func installConsolidatedHelp(root *cobra.Command) {
	defaultHelp := root.HelpFunc()
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != root {
			defaultHelp(cmd, args)
			return
		}

		fmt.Println("USAGE:")
		fmt.Println("  hostbrute [command] [global flags]")
		fmt.Println()
		fmt.Println("GLOBAL FLAGS:")
		home, _ := os.UserHomeDir()
		fmt.Printf("  -c, --config string      config file (default is %s)\n", filepath.Join(home, ".hostbrute", "config.yaml"))
		fmt.Printf("  -q, --quiet              quiet mode (no banner or progress output)\n")
		fmt.Printf("  -l, --log-level string   log level (debug, info, warn, error, fatal) (default %q)\n", "info")
		fmt.Printf("      --log-format string  log format (text, json) (default %q)\n", "text")
		fmt.Printf("      --log-file string    log file path\n")
		fmt.Printf("  -v, --version            version for hostbrute\n\n")

		cmds := []*cobra.Command{}
		for _, c := range root.Commands() {
			if c.IsAvailableCommand() && !c.Hidden {
				cmds = append(cmds, c)
			}
		}
		sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name() < cmds[j].Name() })
		fmt.Println("COMMANDS:")
		for _, c := range cmds {
			fmt.Printf("  %-12s %s\n", c.Name(), c.Short)
		}
		fmt.Println()

		fmt.Println("ENVIRONMENT:")
		fmt.Println("  Every config key can be set as HOSTBRUTE_<SECTION>_<KEY>, e.g. HOSTBRUTE_BRUTE_NAMESERVER.")
		fmt.Printf("  Unbounded recursion (--depth -1) stops at depth %d.\n\n", models.MaxRecursionDepth)

		fmt.Println("NOTES:")
		fmt.Println("  • Use \"hostbrute [command] --help\" for focused help on any command.")
		fmt.Println("  • Autocomplete instructions are printed by `hostbrute completion --help`.")
	})
}

func main() {
	startTime := time.Now()
	Execute()
	if strings.EqualFold(viper.GetString("global.log_level"), "debug") {
		logrus.Debugf("Execution completed in %v", time.Since(startTime))
	}
}
