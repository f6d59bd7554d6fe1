package bruteforce

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"github.com/bl4ck0w1/hostbrute/internal/resolver"
	"github.com/bl4ck0w1/hostbrute/internal/wordlist"
	"github.com/bl4ck0w1/hostbrute/pkg/models"
)

func TestInvalidScanModeIssuesNoQuery(t *testing.T) {
	for _, scan := range []string{"", "all", "hosts", "Domain "} {
		cfg := testConfig(t, "www")
		cfg.Scan = models.ScanMode(scan)
		res := newFakeResolver()
		rep := &recordingReporter{}

		_, err := newTestEngine(t, cfg, res, newFakeStore(), rep).Run(context.Background())
		if !errors.Is(err, models.ErrInvalidConfig) {
			t.Errorf("scan %q: expected ErrInvalidConfig, got %v", scan, err)
		}
		if res.total() != 0 {
			t.Errorf("scan %q: expected no queries, got %d", scan, res.total())
		}
		if len(rep.errors) != 1 {
			t.Errorf("scan %q: expected a single error report, got %v", scan, rep.errors)
		}
	}
}

func TestMissingWordlistIssuesNoQuery(t *testing.T) {
	cfg := testConfig(t, "www")
	cfg.Wordlist = cfg.Wordlist + ".missing"
	res := newFakeResolver()
	rep := &recordingReporter{}

	_, err := newTestEngine(t, cfg, res, newFakeStore(), rep).Run(context.Background())
	if !errors.Is(err, wordlist.ErrNotFound) {
		t.Fatalf("expected wordlist.ErrNotFound, got %v", err)
	}
	if res.total() != 0 {
		t.Errorf("expected no queries, got %d", res.total())
	}
	if !has(rep.errors, "Wordlist file not found.") {
		t.Errorf("expected the missing wordlist error, got %v", rep.errors)
	}
}

func TestSingleHostFound(t *testing.T) {
	cfg := testConfig(t, "www", "mail")
	res := newFakeResolver()
	res.on("www.example.com", models.TypeA, aRecord("www.example.com", "192.0.2.1"))
	store := newFakeStore()
	rep := &recordingReporter{}

	result, err := newTestEngine(t, cfg, res, store, rep).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(rep.alerts) != 2 || rep.alerts[0] != "www.example.com => (A) 192.0.2.1 - Host found!" {
		t.Errorf("unexpected alerts %v", rep.alerts)
	}
	if !has(rep.info, "1 total hosts found.") || !has(rep.alerts, "1 NEW hosts found!") {
		t.Errorf("unexpected summary info=%v alerts=%v", rep.info, rep.alerts)
	}
	for _, m := range rep.info {
		if strings.Contains(m, "subdomains found") {
			t.Errorf("subdomain summary should only appear with recursion, got %q", m)
		}
	}
	if !has(rep.verbose, "mail.example.com => Not a host.") {
		t.Errorf("expected a trace for mail.example.com, got %v", rep.verbose)
	}
	if res.count("www.example.com", models.TypeNS) != 0 {
		t.Error("NS stage must not run without recursion")
	}
	if result.Stats.TotalHosts != 1 || result.Stats.NewHosts != 1 || result.Stats.DomainsScanned != 1 {
		t.Errorf("unexpected stats %+v", result.Stats)
	}
	if len(result.Discoveries) != 1 || !result.Discoveries[0].IsNew {
		t.Errorf("unexpected discoveries %+v", result.Discoveries)
	}
	if !store.hosts["www.example.com"] {
		t.Error("host should be stored")
	}
}

func TestKnownHostIsNotNew(t *testing.T) {
	cfg := testConfig(t, "www")
	res := newFakeResolver()
	res.on("www.example.com", models.TypeA, aRecord("www.example.com", "192.0.2.1"))
	rep := &recordingReporter{}

	result, err := newTestEngine(t, cfg, res, newFakeStore("www.example.com"), rep).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Stats.TotalHosts != 1 || result.Stats.NewHosts != 0 {
		t.Errorf("unexpected stats %+v", result.Stats)
	}
	for _, a := range rep.alerts {
		if strings.Contains(a, "NEW hosts") {
			t.Errorf("no NEW alert expected, got %q", a)
		}
	}
}

func TestHostWildcardSkipsWordQueries(t *testing.T) {
	cfg := testConfig(t, "www", "mail", "ftp")
	res := newFakeResolver()
	res.on(ProbeHost("example.com"), models.TypeA, aRecord(ProbeHost("example.com"), "192.0.2.99"))
	rep := &recordingReporter{}

	result, err := newTestEngine(t, cfg, res, newFakeStore(), rep).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(rep.warnings) != 1 || rep.warnings[0] != "Wildcard DNS entry found. Cannot brute force hostnames for example.com." {
		t.Errorf("expected a single wildcard warning, got %v", rep.warnings)
	}
	for _, w := range []string{"www", "mail", "ftp"} {
		if n := res.count(w+".example.com", models.TypeA); n != 0 {
			t.Errorf("%s: expected no A queries, got %d", w, n)
		}
	}
	if res.total() != 1 {
		t.Errorf("only the probe should be queried, got %v", res.calls)
	}
	if !has(rep.info, "0 total hosts found.") {
		t.Errorf("unexpected summary %v", rep.info)
	}
	if result.Domains[0].Status != models.StatusSkipped || !result.Domains[0].Wildcard.HostWildcard {
		t.Errorf("unexpected domain outcome %+v", result.Domains[0])
	}
}

func TestHostWildcardStillRunsNSStageWithoutGlue(t *testing.T) {
	cfg := testConfig(t, "dev")
	cfg.Depth = 1
	cfg.Glue = false
	res := newFakeResolver()
	res.on(ProbeHost("example.com"), models.TypeA, aRecord(ProbeHost("example.com"), "192.0.2.99"))
	rep := &recordingReporter{}

	if _, err := newTestEngine(t, cfg, res, newFakeStore(), rep).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.count("dev.example.com", models.TypeA) != 0 {
		t.Error("A stage must be skipped for a wildcard domain")
	}
	if res.count("dev.example.com", models.TypeNS) != 1 {
		t.Error("NS stage should run when glue is disabled")
	}
}

func TestNSDelegationEnqueuesSubdomainOnce(t *testing.T) {
	cfg := testConfig(t, "ns1")
	cfg.Depth = 1
	cfg.Glue = false
	res := newFakeResolver()
	res.on("ns1.example.com", models.TypeNS,
		nsRecord("ns1.example.com", "ns1.example.com"),
		nsRecord("ns1.example.com", "dns.provider.com"))
	rep := &recordingReporter{}

	result, err := newTestEngine(t, cfg, res, newFakeStore(), rep).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if n := countOf(rep.alerts, "ns1.example.com => (NS) ns1.example.com - Subdomain found!"); n != 1 {
		t.Errorf("expected one subdomain alert, got %d in %v", n, rep.alerts)
	}
	for _, want := range []string{
		"ns1.example.com => (NS) ns1.example.com - Host found!",
		"ns1.example.com => (NS) dns.provider.com - Host found!",
	} {
		if !has(rep.alerts, want) {
			t.Errorf("missing alert %q in %v", want, rep.alerts)
		}
	}

	if len(result.Domains) != 2 || result.Domains[1].Domain != "ns1.example.com" || result.Domains[1].Level != 1 {
		t.Fatalf("expected ns1.example.com to be processed once at level 1, got %+v", result.Domains)
	}
	if res.count("ns1.ns1.example.com", models.TypeA) != 1 {
		t.Error("the new subdomain should be brute forced")
	}
	if res.count(ProbeHost("ns1.example.com"), models.TypeNS) != 0 || res.count("ns1.ns1.example.com", models.TypeNS) != 0 {
		t.Error("recursion must stop at the configured depth")
	}
	if result.Stats.TotalHosts != 2 || result.Stats.NewSubdomains != 1 {
		t.Errorf("unexpected stats %+v", result.Stats)
	}
	if !has(rep.info, "1 subdomains found!") {
		t.Errorf("expected subdomain summary, got %v", rep.info)
	}
}

func TestKnownSubdomainIsNotCounted(t *testing.T) {
	cfg := testConfig(t, "sub")
	cfg.Depth = 1
	cfg.Glue = false
	res := newFakeResolver()
	res.on("sub.example.com", models.TypeNS, nsRecord("sub.example.com", "ns.provider.com"))
	rep := &recordingReporter{}

	result, err := newTestEngine(t, cfg, res, newFakeStore("sub.example.com"), rep).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !has(rep.alerts, "sub.example.com => (NS) sub.example.com - Subdomain found!") {
		t.Errorf("expected the subdomain alert, got %v", rep.alerts)
	}
	if len(result.Domains) != 2 || result.Domains[1].Domain != "sub.example.com" {
		t.Fatalf("a known subdomain is still brute forced, got %+v", result.Domains)
	}
	if result.Stats.NewSubdomains != 0 {
		t.Errorf("expected 0 new subdomains, got %d", result.Stats.NewSubdomains)
	}
	if !has(rep.info, "0 subdomains found!") {
		t.Errorf("expected a zero subdomain summary, got %v", rep.info)
	}
	for _, d := range result.Discoveries {
		if d.Subdomain && d.IsNew {
			t.Errorf("known subdomain reported as new: %+v", d)
		}
	}
}

func TestCNAMECounting(t *testing.T) {
	cfg := testConfig(t, "www")
	res := newFakeResolver()
	res.on("www.example.com", models.TypeA,
		cnameRecord("www.example.com", "edge.cdn.net"),
		aRecord("edge.cdn.net", "192.0.2.5"))
	rep := &recordingReporter{}

	result, err := newTestEngine(t, cfg, res, newFakeStore(), rep).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !has(rep.alerts, "www.example.com => (CNAME) edge.cdn.net - Host found!") {
		t.Errorf("missing CNAME alert in %v", rep.alerts)
	}
	// target + host for the CNAME, host again for the A record
	if result.Stats.TotalHosts != 3 || result.Stats.NewHosts != 2 {
		t.Errorf("unexpected stats %+v", result.Stats)
	}
}

func TestCNAMEToItselfCountsOnce(t *testing.T) {
	cfg := testConfig(t, "www")
	res := newFakeResolver()
	res.on("www.example.com", models.TypeA, cnameRecord("www.example.com", "www.example.com"))

	result, err := newTestEngine(t, cfg, res, newFakeStore(), &recordingReporter{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Stats.TotalHosts != 1 {
		t.Errorf("expected 1 host, got %+v", result.Stats)
	}
}

func TestGlueGatesNSStage(t *testing.T) {
	tests := []struct {
		glue      bool
		wantWWWNS int
		wantFTPNS int
	}{
		{glue: true, wantWWWNS: 1, wantFTPNS: 0},
		{glue: false, wantWWWNS: 1, wantFTPNS: 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("glue=%v", tt.glue), func(t *testing.T) {
			cfg := testConfig(t, "www", "ftp")
			cfg.Depth = 1
			cfg.Glue = tt.glue
			res := newFakeResolver()
			res.on("www.example.com", models.TypeA, aRecord("www.example.com", "192.0.2.1"))

			if _, err := newTestEngine(t, cfg, res, newFakeStore(), &recordingReporter{}).Run(context.Background()); err != nil {
				t.Fatalf("Run: %v", err)
			}
			if n := res.count("www.example.com", models.TypeNS); n != tt.wantWWWNS {
				t.Errorf("www NS queries: expected %d, got %d", tt.wantWWWNS, n)
			}
			if n := res.count("ftp.example.com", models.TypeNS); n != tt.wantFTPNS {
				t.Errorf("ftp NS queries: expected %d, got %d", tt.wantFTPNS, n)
			}
		})
	}
}

// timeoutQuerier times out for one name and answers NXDOMAIN otherwise.
type timeoutQuerier struct {
	slow  string
	calls map[string]int
}

func (q *timeoutQuerier) Query(ctx context.Context, host string, qtype uint16) ([]models.Answer, error) {
	q.calls[lookupKey(host, qtype)]++
	if host == q.slow {
		return nil, resolver.ErrTimeout
	}
	return nil, resolver.ErrNoSuchName
}

func TestTimeoutsRetriedExactlyMaxAttempts(t *testing.T) {
	cfg := testConfig(t, "www", "mail")
	cfg.Attempts = 3
	cfg.Depth = 1
	cfg.Glue = false
	q := &timeoutQuerier{slow: "www.example.com", calls: make(map[string]int)}
	rep := &recordingReporter{}

	retrier := resolver.NewRetrier(q, cfg.Attempts, quietLogger())
	if _, err := newTestEngine(t, cfg, retrier, newFakeStore(), rep).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if n := q.calls[lookupKey("www.example.com", uint16(models.TypeA))]; n != 3 {
		t.Errorf("expected 3 attempts for the timing out host, got %d", n)
	}
	if n := q.calls[lookupKey("mail.example.com", uint16(models.TypeA))]; n != 1 {
		t.Errorf("NXDOMAIN must not be retried, got %d attempts", n)
	}
	if n := q.calls[lookupKey("www.example.com", uint16(models.TypeNS))]; n != 0 {
		t.Errorf("NS stage must be skipped after an exhausted A stage, got %d", n)
	}
	if n := q.calls[lookupKey("mail.example.com", uint16(models.TypeNS))]; n != 1 {
		t.Errorf("NS stage should run once for mail without glue, got %d", n)
	}
	if !has(rep.verbose, "www.example.com => Request timed out.") {
		t.Errorf("expected a timeout trace, got %v", rep.verbose)
	}
}

func TestUnavailableNameserverScopedToDomain(t *testing.T) {
	cfg := testConfig(t, "www", "mail")
	cfg.Scan = models.ScanBoth
	res := newFakeResolver()
	res.fail("www.example.com", models.TypeA, resolver.ErrServerUnavailable)
	res.on("www.other.org", models.TypeA, aRecord("www.other.org", "192.0.2.7"))
	rep := &recordingReporter{}

	result, err := newTestEngine(t, cfg, res, newFakeStore("other.org"), rep).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Domains) != 2 {
		t.Fatalf("both domains should be processed, got %+v", result.Domains)
	}
	if result.Domains[0].Domain != "example.com" || result.Domains[0].Status != models.StatusFailed {
		t.Errorf("unexpected first outcome %+v", result.Domains[0])
	}
	if result.Domains[1].Domain != "other.org" || result.Domains[1].Status != models.StatusCompleted {
		t.Errorf("unexpected second outcome %+v", result.Domains[1])
	}
	if res.count("www.example.com", models.TypeA) != 1 {
		t.Error("an unavailable nameserver must not be retried")
	}
	if len(rep.errors) != 1 {
		t.Errorf("expected one error report, got %v", rep.errors)
	}
	if result.Stats.DomainsFailed != 1 || result.Stats.TotalHosts != 1 {
		t.Errorf("unexpected stats %+v", result.Stats)
	}
}

func TestWildcardProbeFailureSkipsDomain(t *testing.T) {
	cfg := testConfig(t, "www")
	res := newFakeResolver()
	res.fail(ProbeHost("example.com"), models.TypeA, fmt.Errorf("%w: %w", resolver.ErrExhausted, resolver.ErrTimeout))
	rep := &recordingReporter{}

	result, err := newTestEngine(t, cfg, res, newFakeStore(), rep).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !has(rep.errors, "Invalid nameserver. Cannot brute force hostnames for example.com.") {
		t.Errorf("expected invalid nameserver error, got %v", rep.errors)
	}
	if res.count("www.example.com", models.TypeA) != 0 {
		t.Error("no word should be queried for a skipped domain")
	}
	if result.Stats.DomainsSkipped != 1 {
		t.Errorf("unexpected stats %+v", result.Stats)
	}
}

func TestUnboundedDepthIsCapped(t *testing.T) {
	cfg := testConfig(t, "sub")
	cfg.Depth = -1
	cfg.Glue = false
	res := newFakeResolver()
	res.fn = func(host string, qtype uint16) ([]models.Answer, error) {
		if qtype == uint16(models.TypeNS) && strings.HasPrefix(host, "sub.") {
			return []models.Answer{nsRecord(host, "ns.provider.net")}, nil
		}
		return nil, resolver.ErrNoSuchName
	}

	result, err := newTestEngine(t, cfg, res, newFakeStore(), &recordingReporter{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Domains) != models.MaxRecursionDepth+1 {
		t.Fatalf("expected %d domains, got %d", models.MaxRecursionDepth+1, len(result.Domains))
	}
	last := result.Domains[len(result.Domains)-1]
	if last.Level != models.MaxRecursionDepth || !last.Wildcard.NSWildcard {
		t.Errorf("deepest domain should not recurse further: %+v", last)
	}
	if result.Stats.NewSubdomains != models.MaxRecursionDepth {
		t.Errorf("expected %d subdomains, got %d", models.MaxRecursionDepth, result.Stats.NewSubdomains)
	}
}

func TestCancelledRunReturnsPartialResult(t *testing.T) {
	cfg := testConfig(t, "www")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := newFakeResolver()

	result, err := newTestEngine(t, cfg, res, newFakeStore(), &recordingReporter{}).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result == nil || result.Status != models.StatusCancelled {
		t.Fatalf("expected a cancelled result, got %+v", result)
	}
	if res.total() != 0 {
		t.Errorf("no query should start after cancellation, got %d", res.total())
	}
}

func TestWorkersFindEveryHost(t *testing.T) {
	words := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		words = append(words, fmt.Sprintf("h%02d", i))
	}
	cfg := testConfig(t, words...)
	cfg.Workers = 8
	res := newFakeResolver()
	for i := 0; i < 40; i += 2 {
		host := fmt.Sprintf("h%02d.example.com", i)
		res.on(host, models.TypeA, aRecord(host, "192.0.2.1"))
	}
	rep := &recordingReporter{}

	result, err := newTestEngine(t, cfg, res, newFakeStore(), rep).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Stats.TotalHosts != 20 || result.Stats.NewHosts != 20 {
		t.Errorf("unexpected stats %+v", result.Stats)
	}
	if len(rep.discoveries) != 20 {
		t.Errorf("expected 20 discoveries, got %d", len(rep.discoveries))
	}
}

func TestStoreErrorIsReported(t *testing.T) {
	cfg := testConfig(t, "www")
	res := newFakeResolver()
	res.on("www.example.com", models.TypeA, aRecord("www.example.com", "192.0.2.1"))
	store := newFakeStore()
	store.addErr = errors.New("disk full")
	rep := &recordingReporter{}

	result, err := newTestEngine(t, cfg, res, store, rep).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rep.errors) != 1 || !strings.Contains(rep.errors[0], "disk full") {
		t.Errorf("expected the store error to be reported, got %v", rep.errors)
	}
	if result.Stats.TotalHosts != 1 || result.Stats.NewHosts != 0 {
		t.Errorf("unexpected stats %+v", result.Stats)
	}
}

func TestNewEngineRequiresCollaborators(t *testing.T) {
	if _, err := NewEngine(Options{Store: newFakeStore(), Reporter: &recordingReporter{}}); err == nil {
		t.Error("expected an error without a resolver")
	}
	if _, err := NewEngine(Options{Resolver: newFakeResolver(), Reporter: &recordingReporter{}}); err == nil {
		t.Error("expected an error without a store")
	}
	if _, err := NewEngine(Options{Resolver: newFakeResolver(), Store: newFakeStore()}); err == nil {
		t.Error("expected an error without a reporter")
	}
}
