package bruteforce

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"github.com/sirupsen/logrus"
	"github.com/bl4ck0w1/hostbrute/internal/resolver"
	"github.com/bl4ck0w1/hostbrute/pkg/models"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func lookupKey(host string, qtype uint16) string {
	return fmt.Sprintf("%s/%s", host, models.RecordType(qtype))
}

// fakeResolver answers from a table keyed by "host/TYPE". Unknown names
// are NXDOMAIN unless fn is set.
type fakeResolver struct {
	mu      sync.Mutex
	answers map[string][]models.Answer
	errs    map[string]error
	fn      func(host string, qtype uint16) ([]models.Answer, error)
	calls   []string
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		answers: make(map[string][]models.Answer),
		errs:    make(map[string]error),
	}
}

func (f *fakeResolver) on(host string, rt models.RecordType, answers ...models.Answer) {
	f.answers[lookupKey(host, uint16(rt))] = answers
}

func (f *fakeResolver) fail(host string, rt models.RecordType, err error) {
	f.errs[lookupKey(host, uint16(rt))] = err
}

func (f *fakeResolver) Resolve(ctx context.Context, host string, qtype uint16) ([]models.Answer, error) {
	key := lookupKey(host, qtype)
	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()

	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	if a, ok := f.answers[key]; ok {
		return a, nil
	}
	if f.fn != nil {
		return f.fn(host, qtype)
	}
	return nil, resolver.ErrNoSuchName
}

func (f *fakeResolver) count(host string, rt models.RecordType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := lookupKey(host, uint16(rt))
	n := 0
	for _, c := range f.calls {
		if c == key {
			n++
		}
	}
	return n
}

func (f *fakeResolver) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func aRecord(name, ip string) models.Answer {
	return models.Answer{Type: models.TypeA, Name: name, Value: ip}
}

func cnameRecord(name, target string) models.Answer {
	return models.Answer{Type: models.TypeCNAME, Name: name, Value: target}
}

func nsRecord(name, target string) models.Answer {
	return models.Answer{Type: models.TypeNS, Name: name, Value: target}
}

type fakeStore struct {
	mu     sync.Mutex
	hosts  map[string]bool
	addErr error
}

func newFakeStore(existing ...string) *fakeStore {
	s := &fakeStore{hosts: make(map[string]bool)}
	for _, h := range existing {
		s.hosts[h] = true
	}
	return s
}

func (s *fakeStore) AddHost(ctx context.Context, host string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addErr != nil {
		return false, s.addErr
	}
	if s.hosts[host] {
		return false, nil
	}
	s.hosts[host] = true
	return true, nil
}

func (s *fakeStore) Hosts(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.hosts))
	for h := range s.hosts {
		out = append(out, h)
	}
	sort.Strings(out)
	return out, nil
}

type recordingReporter struct {
	mu          sync.Mutex
	info        []string
	verbose     []string
	alerts      []string
	warnings    []string
	errors      []string
	discoveries []models.Discovery
}

func (r *recordingReporter) add(dst *[]string, format string, args ...interface{}) {
	r.mu.Lock()
	*dst = append(*dst, fmt.Sprintf(format, args...))
	r.mu.Unlock()
}

func (r *recordingReporter) Info(f string, a ...interface{})    { r.add(&r.info, f, a...) }
func (r *recordingReporter) Verbose(f string, a ...interface{}) { r.add(&r.verbose, f, a...) }
func (r *recordingReporter) Alert(f string, a ...interface{})   { r.add(&r.alerts, f, a...) }
func (r *recordingReporter) Warn(f string, a ...interface{})    { r.add(&r.warnings, f, a...) }
func (r *recordingReporter) Error(f string, a ...interface{})   { r.add(&r.errors, f, a...) }

func (r *recordingReporter) Discovered(d models.Discovery) {
	r.mu.Lock()
	r.discoveries = append(r.discoveries, d)
	r.mu.Unlock()
}

func has(msgs []string, want string) bool {
	for _, m := range msgs {
		if m == want {
			return true
		}
	}
	return false
}

func countOf(msgs []string, want string) int {
	n := 0
	for _, m := range msgs {
		if m == want {
			n++
		}
	}
	return n
}

func writeWordlist(t *testing.T, words ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hostnames.txt")
	if err := os.WriteFile(path, []byte(strings.Join(words, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write wordlist: %v", err)
	}
	return path
}

func testConfig(t *testing.T, words ...string) models.BruteConfig {
	t.Helper()
	cfg := models.DefaultBruteConfig()
	cfg.Domain = "example.com"
	cfg.Nameserver = "127.0.0.1"
	cfg.Wordlist = writeWordlist(t, words...)
	return cfg
}

func newTestEngine(t *testing.T, cfg models.BruteConfig, res Resolver, store HostStore, rep Reporter) *Engine {
	t.Helper()
	e, err := NewEngine(Options{Config: cfg, Resolver: res, Store: store, Reporter: rep, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}
