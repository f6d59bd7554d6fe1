package bruteforce

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"github.com/bl4ck0w1/hostbrute/internal/resolver"
	"github.com/bl4ck0w1/hostbrute/internal/wordlist"
	"github.com/bl4ck0w1/hostbrute/pkg/models"
	"github.com/bl4ck0w1/hostbrute/pkg/utils"
)

type Options struct {
	Config   models.BruteConfig
	Resolver Resolver
	Store    HostStore
	Reporter Reporter
	Progress Progress
	Metrics  *utils.MetricsCollector
	Logger   *logrus.Logger
}

type Engine struct {
	cfg      models.BruteConfig
	resolver Resolver
	store    HostStore
	reporter Reporter
	progress Progress
	detector *WildcardDetector
	metrics  *utils.MetricsCollector
	logger   *logrus.Logger
}

func NewEngine(opts Options) (*Engine, error) {
	if opts.Resolver == nil {
		return nil, fmt.Errorf("engine requires a resolver")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("engine requires a host store")
	}
	if opts.Reporter == nil {
		return nil, fmt.Errorf("engine requires a reporter")
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Progress == nil {
		opts.Progress = noopProgress{}
	}

	return &Engine{
		cfg:      opts.Config,
		resolver: opts.Resolver,
		store:    opts.Store,
		reporter: opts.Reporter,
		progress: opts.Progress,
		detector: NewWildcardDetector(opts.Resolver, opts.Reporter, opts.Logger),
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}, nil
}

// run is the mutable state of a single Run call.
type run struct {
	queue  *WorkQueue
	stats  *Stats
	depth  int
	words  []string
	mu     sync.Mutex
	result *models.RunResult
}

func (r *run) record(d models.Discovery) {
	r.mu.Lock()
	r.result.Discoveries = append(r.result.Discoveries, d)
	r.mu.Unlock()
}

// Run brute-forces every queued domain until the queue drains or ctx is
// done. On cancellation the partial result is returned with ctx.Err().
func (e *Engine) Run(ctx context.Context) (*models.RunResult, error) {
	cfg := e.cfg
	if err := cfg.Validate(); err != nil {
		e.reporter.Error("%v", err)
		return nil, err
	}

	r := &run{
		queue: NewWorkQueue(1024),
		stats: &Stats{},
		depth: cfg.EffectiveDepth(),
		result: &models.RunResult{
			RunID:     utils.GenerateShortID(),
			Config:    cfg,
			StartTime: time.Now().UTC(),
		},
	}

	if err := e.seed(ctx, r.queue); err != nil {
		e.reporter.Error("%v", err)
		return nil, err
	}

	wl, err := wordlist.Load(cfg.Wordlist, e.logger)
	if err != nil {
		if errors.Is(err, wordlist.ErrNotFound) {
			e.reporter.Error("Wordlist file not found.")
		} else {
			e.reporter.Error("Failed to load wordlist: %v", err)
		}
		return nil, err
	}
	r.words = wl.Words

	log := e.logger.WithFields(logrus.Fields{"run_id": r.result.RunID, "words": len(r.words), "depth": r.depth})
	log.Infof("Starting brute force of %d domain(s)", r.queue.Len())

	for ctx.Err() == nil {
		entry, ok := r.queue.Pop()
		if !ok {
			break
		}
		e.metrics.SetGauge(utils.MetricQueueDepth, float64(r.queue.Len()), prometheus.Labels{})
		outcome := e.processDomain(ctx, r, entry)
		r.result.Domains = append(r.result.Domains, outcome)
	}

	stats := r.stats.Snapshot()
	e.reporter.Info("%d total hosts found.", stats.TotalHosts)
	if stats.NewHosts > 0 {
		e.reporter.Alert("%d NEW hosts found!", stats.NewHosts)
	}
	if r.depth > 0 {
		e.reporter.Info("%d subdomains found!", stats.NewSubdomains)
	}

	r.result.Stats = stats
	r.result.EndTime = time.Now().UTC()
	r.result.Status = models.StatusCompleted
	if err := ctx.Err(); err != nil {
		r.result.Status = models.StatusCancelled
		log.Warnf("Run cancelled: %v", err)
		return r.result, err
	}
	log.WithFields(logrus.Fields{
		"duration": r.result.Duration().String(),
		"domains":  r.queue.Enqueued(),
	}).Info("Brute force complete")
	return r.result, nil
}

func (e *Engine) seed(ctx context.Context, q *WorkQueue) error {
	if e.cfg.Scan.IncludesDomain() {
		domain, err := utils.NormalizeHostname(e.cfg.Domain)
		if err != nil {
			return fmt.Errorf("%w: domain: %v", models.ErrInvalidConfig, err)
		}
		q.Push(models.QueueEntry{Domain: domain, Level: 0})
	}
	if e.cfg.Scan.IncludesTable() {
		hosts, err := e.store.Hosts(ctx)
		if err != nil {
			return fmt.Errorf("reading hosts table: %w", err)
		}
		for _, h := range hosts {
			q.Push(models.QueueEntry{Domain: strings.ToLower(h), Level: 0})
		}
	}
	return nil
}

func (e *Engine) processDomain(ctx context.Context, r *run, entry models.QueueEntry) models.DomainOutcome {
	out := models.DomainOutcome{Domain: entry.Domain, Level: entry.Level}
	log := e.logger.WithFields(logrus.Fields{"domain": entry.Domain, "level": entry.Level})

	checkNS := entry.Level < r.depth
	state, err := e.detector.Detect(ctx, entry.Domain, checkNS)
	if err != nil {
		if ctx.Err() != nil {
			out.Status = models.StatusCancelled
			return out
		}
		e.reporter.Error("Invalid nameserver. Cannot brute force hostnames for %s.", entry.Domain)
		log.WithError(err).Debug("Wildcard check failed")
		r.stats.domainsSkipped.Add(1)
		out.Status = models.StatusSkipped
		out.Error = err.Error()
		return out
	}
	out.Wildcard = state

	// A host wildcard leaves only the NS stage, which glue or an NS
	// wildcard rules out too.
	if state.HostWildcard && (state.NSWildcard || e.cfg.Glue) {
		r.stats.domainsSkipped.Add(1)
		out.Status = models.StatusSkipped
		return out
	}

	workers := e.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	e.progress.DomainStarted(entry.Domain, len(r.words))
	defer e.progress.DomainFinished(entry.Domain)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, word := range r.words {
		if gctx.Err() != nil {
			break
		}
		host := word + "." + entry.Domain
		g.Go(func() error {
			defer e.progress.WordDone(entry.Domain)
			return e.bruteHost(gctx, r, entry, state, host)
		})
	}
	err = g.Wait()

	switch {
	case ctx.Err() != nil:
		out.Status = models.StatusCancelled
	case err != nil:
		e.reporter.Error("Nameserver failed while brute forcing %s: %v", entry.Domain, err)
		r.stats.domainsFailed.Add(1)
		out.Status = models.StatusFailed
		out.Error = err.Error()
	default:
		r.stats.domainsScanned.Add(1)
		out.Status = models.StatusCompleted
	}
	return out
}

// bruteHost runs the A/CNAME stage and, when its gate holds, the NS stage
// for one candidate. A non-nil error aborts the rest of the domain.
func (e *Engine) bruteHost(ctx context.Context, r *run, entry models.QueueEntry, state models.WildcardState, host string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	aFound, aExhausted := false, false

	if !state.HostWildcard {
		r.stats.queries.Add(1)
		answers, err := e.resolver.Resolve(ctx, host, uint16(models.TypeA))
		switch {
		case err == nil:
			aFound = e.handleHostAnswers(ctx, r, entry, host, answers)
		case resolver.IsDefinitiveNegative(err):
			e.reporter.Verbose("%s => Not a host.", host)
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, resolver.ErrExhausted):
			e.reporter.Verbose("%s => Request timed out.", host)
			aExhausted = true
		default:
			return fmt.Errorf("A lookup for %s: %w", host, err)
		}
	}

	if state.NSWildcard || aExhausted || (e.cfg.Glue && !aFound) {
		return nil
	}

	r.stats.queries.Add(1)
	answers, err := e.resolver.Resolve(ctx, host, uint16(models.TypeNS))
	switch {
	case err == nil:
		e.handleNSAnswers(ctx, r, entry, host, answers)
	case resolver.IsDefinitiveNegative(err):
		e.reporter.Verbose("%s => Not a subdomain.", host)
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, resolver.ErrExhausted):
		e.reporter.Verbose("%s => Request timed out.", host)
	default:
		return fmt.Errorf("NS lookup for %s: %w", host, err)
	}
	return nil
}

func (e *Engine) handleHostAnswers(ctx context.Context, r *run, entry models.QueueEntry, host string, answers []models.Answer) bool {
	aFound := false
	for _, a := range answers {
		switch a.Type {
		case models.TypeA:
			e.reporter.Alert("%s => (A) %s - Host found!", host, a.Value)
			e.found(ctx, r, entry, host, host, a)
			aFound = true
		case models.TypeCNAME:
			e.reporter.Alert("%s => (CNAME) %s - Host found!", host, a.Value)
			if a.Value != host {
				e.found(ctx, r, entry, host, a.Value, a)
			}
			e.found(ctx, r, entry, host, host, a)
		}
	}
	return aFound
}

func (e *Engine) handleNSAnswers(ctx context.Context, r *run, entry models.QueueEntry, host string, answers []models.Answer) {
	for _, a := range answers {
		if a.Type != models.TypeNS {
			continue
		}
		if entry.Level+1 <= r.depth && r.queue.Push(models.QueueEntry{Domain: host, Level: entry.Level + 1}) {
			e.reporter.Alert("%s => (NS) %s - Subdomain found!", host, host)
			isNew := e.addHost(ctx, host)
			if isNew {
				r.stats.newSubdomains.Add(1)
			}
			d := e.discovery(entry, host, host, a, isNew)
			d.Subdomain = true
			r.record(d)
			e.reporter.Discovered(d)
		}
		e.reporter.Alert("%s => (NS) %s - Host found!", host, a.Value)
		e.found(ctx, r, entry, host, a.Value, a)
	}
}

// found stores name, counts it and emits the discovery.
func (e *Engine) found(ctx context.Context, r *run, entry models.QueueEntry, candidate, name string, a models.Answer) {
	isNew := e.addHost(ctx, name)
	r.stats.hostFound(isNew)
	d := e.discovery(entry, candidate, name, a, isNew)
	r.record(d)
	e.reporter.Discovered(d)
}

// addHost stores an answer that was already received, so a canceled run
// does not drop it.
func (e *Engine) addHost(ctx context.Context, name string) bool {
	isNew, err := e.store.AddHost(context.WithoutCancel(ctx), name)
	if err != nil {
		e.reporter.Error("Failed to store host %s: %v", name, err)
	}
	return isNew
}

func (e *Engine) discovery(entry models.QueueEntry, candidate, host string, a models.Answer, isNew bool) models.Discovery {
	return models.Discovery{
		Host:      host,
		Candidate: candidate,
		Type:      a.Type,
		Value:     a.Value,
		IsNew:     isNew,
		Domain:    entry.Domain,
		Level:     entry.Level,
		FoundAt:   time.Now().UTC(),
	}
}
