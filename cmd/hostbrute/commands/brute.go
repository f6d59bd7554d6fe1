package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/bl4ck0w1/hostbrute/internal/bruteforce"
	"github.com/bl4ck0w1/hostbrute/internal/reporting"
	"github.com/bl4ck0w1/hostbrute/internal/resolver"
	"github.com/bl4ck0w1/hostbrute/internal/storage"
	"github.com/bl4ck0w1/hostbrute/internal/timing"
	"github.com/bl4ck0w1/hostbrute/pkg/models"
	"github.com/bl4ck0w1/hostbrute/pkg/utils"
)

func NewBruteCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "brute [domain]",
		Short: "Brute force hostnames and subdomains of a domain",
		Long: `Detect wildcard DNS for the target, then query every wordlist label as an
A/CNAME host and, when recursion is enabled, as an NS delegated subdomain that is
brute forced in turn. With --scan table (or both) every host already in the hosts
table is used as a target too.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrute(cmd, args, version)
		},
	}

	cmd.Flags().StringP("domain", "d", "", "Target domain (required for scan modes domain and both)")
	cmd.Flags().StringP("wordlist", "w", "./data/hostnames.txt", "Wordlist of hostname labels")
	cmd.Flags().StringP("nameserver", "n", "8.8.8.8", "Nameserver IP to query (optionally ip:port)")
	cmd.Flags().IntP("attempts", "a", 3, "Attempts per lookup before giving up on timeouts")
	cmd.Flags().IntP("depth", "r", 0, "Subdomain recursion depth (0 none, -1 unbounded)")
	cmd.Flags().StringP("scan", "s", "domain", "Targets to brute force (domain, table, both)")
	cmd.Flags().Bool("glue", true, "Only query NS records for labels that resolved as hosts")
	cmd.Flags().IntP("workers", "t", 1, "Concurrent lookups per domain")
	cmd.Flags().Float64("rate", 0, "Maximum queries per second (0 unlimited)")
	cmd.Flags().Bool("adaptive-rate", false, "Lower the query rate while the nameserver times out")
	cmd.Flags().Duration("timeout", resolver.DefaultTimeout, "Timeout of a single DNS attempt")
	cmd.Flags().Duration("lifetime", resolver.DefaultLifetime, "Overall time budget of one query")
	cmd.Flags().Duration("retry-backoff", 0, "Base backoff between timed out attempts")
	cmd.Flags().Duration("max-runtime", 0, "Stop the run after this long (0 none)")
	cmd.Flags().Duration("delay", 0, "Minimum random delay before each query")
	cmd.Flags().Duration("delay-max", 0, "Maximum random delay before each query")
	cmd.Flags().StringP("output", "o", "./reports", "Report output directory")
	cmd.Flags().StringSliceP("formats", "f", []string{"txt"}, "Report formats (txt, csv, json, yaml, none)")
	cmd.Flags().String("store", "./data/hosts.json", "Hosts table file")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address during the run")
	cmd.Flags().Bool("progress", true, "Show per-domain progress bars")

	_ = viper.BindPFlag("brute.domain", cmd.Flags().Lookup("domain"))
	_ = viper.BindPFlag("brute.wordlist", cmd.Flags().Lookup("wordlist"))
	_ = viper.BindPFlag("brute.nameserver", cmd.Flags().Lookup("nameserver"))
	_ = viper.BindPFlag("brute.attempts", cmd.Flags().Lookup("attempts"))
	_ = viper.BindPFlag("brute.depth", cmd.Flags().Lookup("depth"))
	_ = viper.BindPFlag("brute.scan", cmd.Flags().Lookup("scan"))
	_ = viper.BindPFlag("brute.glue", cmd.Flags().Lookup("glue"))
	_ = viper.BindPFlag("brute.workers", cmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("brute.rate_limit", cmd.Flags().Lookup("rate"))
	_ = viper.BindPFlag("brute.adaptive_rate", cmd.Flags().Lookup("adaptive-rate"))
	_ = viper.BindPFlag("brute.timeout", cmd.Flags().Lookup("timeout"))
	_ = viper.BindPFlag("brute.lifetime", cmd.Flags().Lookup("lifetime"))
	_ = viper.BindPFlag("brute.retry_backoff", cmd.Flags().Lookup("retry-backoff"))
	_ = viper.BindPFlag("brute.max_runtime", cmd.Flags().Lookup("max-runtime"))
	_ = viper.BindPFlag("brute.delay_min", cmd.Flags().Lookup("delay"))
	_ = viper.BindPFlag("brute.delay_max", cmd.Flags().Lookup("delay-max"))
	_ = viper.BindPFlag("reporting.output_dir", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("reporting.formats", cmd.Flags().Lookup("formats"))
	_ = viper.BindPFlag("storage.path", cmd.Flags().Lookup("store"))
	_ = viper.BindPFlag("metrics.addr", cmd.Flags().Lookup("metrics-addr"))
	_ = viper.BindPFlag("brute.progress", cmd.Flags().Lookup("progress"))

	return cmd
}

func runBrute(cmd *cobra.Command, args []string, version string) error {
	if len(args) > 0 {
		viper.Set("brute.domain", args[0])
	}
	if cmd.Flags().Changed("metrics-addr") {
		viper.Set("metrics.enabled", true)
	}

	cfg, err := ResolveConfig(viper.GetViper())
	if err != nil {
		return err
	}
	logger := logrus.StandardLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.Brute.MaxRuntime > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, cfg.Brute.MaxRuntime)
		defer stop()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			logrus.Info("Received interrupt signal, stopping after in-flight lookups...")
			cancel()
		case <-ctx.Done():
		}
	}()

	metrics, err := utils.NewBruteMetrics(cfg.Metrics.Enabled)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.StartServerWithContext(ctx, cfg.Metrics.Addr); err != nil {
				logrus.Warnf("Metrics server stopped: %v", err)
			}
		}()
		logrus.Infof("Serving metrics on http://%s/metrics", cfg.Metrics.Addr)
	}

	store, err := storage.NewHostStore(cfg.Storage.Path, cfg.Storage.Compression, logger)
	if err != nil {
		return fmt.Errorf("failed to open hosts table: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logrus.Warnf("Failed to flush hosts table: %v", err)
		}
	}()

	client := resolver.NewClient(resolver.Config{
		Nameserver: cfg.Brute.Nameserver,
		Timeout:    cfg.Brute.Timeout,
		Lifetime:   cfg.Brute.Lifetime,
	}, metrics, logger)
	retrier := resolver.NewRetrier(client, cfg.Brute.Attempts, logger)
	retrier.SetBackoff(cfg.Brute.Backoff)
	if limiter := queryPacing(cfg.Brute, logger); limiter != nil {
		retrier.SetLimiter(limiter)
	}

	var tracker *reporting.ProgressTracker
	opts := bruteforce.Options{
		Config:   cfg.Brute,
		Resolver: retrier,
		Store:    store,
		Reporter: reporting.NewLogReporter(logger, metrics),
		Metrics:  metrics,
		Logger:   logger,
	}
	if viper.GetBool("brute.progress") && !viper.GetBool("quiet") {
		tracker = reporting.NewProgressTracker(os.Stderr)
		opts.Progress = tracker
	}

	engine, err := bruteforce.NewEngine(opts)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	logrus.Infof("Brute forcing against nameserver %s", client.Server())
	result, runErr := engine.Run(ctx)
	if tracker != nil {
		tracker.Wait()
	}
	if result == nil {
		return runErr
	}

	saveCtx := context.WithoutCancel(ctx)
	if err := store.SaveRun(saveCtx, result); err != nil {
		logrus.Warnf("Failed to save run summary: %v", err)
	}
	if err := exportReports(cfg, result, version, logger); err != nil {
		logrus.Warnf("Report generation incomplete: %v", err)
	}
	displaySummary(result)

	switch {
	case errors.Is(runErr, context.DeadlineExceeded):
		return fmt.Errorf("run stopped after max runtime %s", cfg.Brute.MaxRuntime)
	case errors.Is(runErr, context.Canceled):
		logrus.Info("Run cancelled by user")
		return nil
	default:
		return runErr
	}
}

// queryPacing combines the rate limit and the random delay, nil when both
// are off.
func queryPacing(b models.BruteConfig, logger *logrus.Logger) resolver.Limiter {
	var members []timing.Waiter
	if b.RateLimit > 0 {
		burst := int(b.RateLimit)
		if burst < 1 {
			burst = 1
		}
		members = append(members, timing.NewRateLimiter(b.RateLimit, burst, viper.GetBool("brute.adaptive_rate"), logger))
	}
	if b.DelayMin > 0 || b.DelayMax > 0 {
		members = append(members, timing.NewDelayer(b.DelayMin, b.DelayMax))
	}
	if len(members) == 0 {
		return nil
	}
	return timing.NewChain(members...)
}

func exportReports(cfg *models.Config, result *models.RunResult, version string, logger *logrus.Logger) error {
	if len(cfg.Reporting.Formats) == 0 {
		return nil
	}
	rg, err := reporting.NewReportGenerator(cfg.Reporting, logger)
	if err != nil {
		return err
	}
	paths, err := rg.Export(result, version, cfg.Reporting.Formats)
	for _, p := range paths {
		logrus.Infof("Generated report: %s", p)
	}
	return err
}

func displaySummary(result *models.RunResult) {
	if viper.GetBool("quiet") {
		return
	}
	summary := `
Run Summary:
═══════════════════════════════════════════════════════════════
Run ID:          %s
Status:          %s
Domains:         %d scanned, %d skipped, %d failed
Hosts Found:     %d (%d new)
Subdomains:      %d
Queries:         %d
Duration:        %s
═══════════════════════════════════════════════════════════════
`
	s := result.Stats
	fmt.Printf(summary,
		result.RunID,
		result.Status,
		s.DomainsScanned, s.DomainsSkipped, s.DomainsFailed,
		s.TotalHosts, s.NewHosts,
		s.NewSubdomains,
		s.Queries,
		utils.HumanizeDuration(result.Duration()),
	)
}
