package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"github.com/Masterminds/semver/v3"
	"github.com/sirupsen/logrus"
	"github.com/bl4ck0w1/hostbrute/pkg/models"
	"github.com/bl4ck0w1/hostbrute/pkg/utils"
)

// HostStore is the hosts table: a set of hostnames persisted as a JSON
// document. New hosts are written in batches; Close writes the remainder.
type HostStore struct {
	path        string
	runsDir     string
	compression bool
	logger      *logrus.Logger

	flushEvery    int
	flushInterval time.Duration

	mu        sync.RWMutex
	hosts     map[string]*models.HostRecord
	dirty     bool
	pending   int
	lastFlush time.Time
}

const (
	DefaultFlushEvery    = 256
	DefaultFlushInterval = 5 * time.Second
)

// StoreFormat is written into every hosts document. Documents are readable
// when their format satisfies storeCompat.
const StoreFormat = "1.1.0"

var (
	storeCompat = mustConstraint("^1.0")

	ErrIncompatibleStore = errors.New("incompatible host store format")
)

func mustConstraint(c string) *semver.Constraints {
	cs, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return cs
}

type hostsDocument struct {
	Version   string              `json:"version"`
	UpdatedAt time.Time           `json:"updated_at"`
	Hosts     []models.HostRecord `json:"hosts"`
}

func NewHostStore(path string, compression bool, logger *logrus.Logger) (*HostStore, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if path == "" {
		return nil, fmt.Errorf("host store path must not be empty")
	}

	path = withCompressionSuffix(path, compression)
	base := strings.TrimSuffix(strings.TrimSuffix(path, ".gz"), filepath.Ext(strings.TrimSuffix(path, ".gz")))

	hs := &HostStore{
		path:        path,
		runsDir:     base + "_runs",
		compression: compression,
		logger:      logger,
		hosts:       make(map[string]*models.HostRecord),

		flushEvery:    DefaultFlushEvery,
		flushInterval: DefaultFlushInterval,
		lastFlush:     time.Now(),
	}
	if err := hs.load(); err != nil {
		return nil, err
	}
	return hs, nil
}

func (hs *HostStore) Path() string { return hs.path }

// SetFlushPolicy sets how many new hosts, or how much time since the last
// write, trigger a write of the document. every <= 1 writes every new host;
// a zero interval disables the timer.
func (hs *HostStore) SetFlushPolicy(every int, interval time.Duration) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	if every < 1 {
		every = 1
	}
	hs.flushEvery = every
	hs.flushInterval = max(0, interval)
}

func (hs *HostStore) load() error {
	var doc hostsDocument
	if err := readJSON(hs.path, &doc); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			hs.logger.Debugf("Host store %s does not exist yet", hs.path)
			return nil
		}
		return fmt.Errorf("load host store: %w", err)
	}
	if err := checkFormat(doc.Version); err != nil {
		return fmt.Errorf("load host store %s: %w", hs.path, err)
	}
	for i := range doc.Hosts {
		rec := doc.Hosts[i]
		hs.hosts[rec.Name] = &rec
	}
	hs.logger.Debugf("Loaded %d hosts from %s", len(hs.hosts), hs.path)
	return nil
}

func checkFormat(v string) error {
	if v == "" {
		return nil
	}
	ver, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: bad version %q: %v", ErrIncompatibleStore, v, err)
	}
	if !storeCompat.Check(ver) {
		return fmt.Errorf("%w: version %s does not satisfy %s", ErrIncompatibleStore, ver, storeCompat)
	}
	return nil
}

// AddHost inserts host and reports whether it was not stored before. A
// failed batch write keeps the host pending and returns the error.
func (hs *HostStore) AddHost(ctx context.Context, host string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	name, err := utils.NormalizeHostname(host)
	if err != nil {
		return false, fmt.Errorf("add host: %w", err)
	}

	hs.mu.Lock()
	defer hs.mu.Unlock()

	now := time.Now().UTC()
	if rec, ok := hs.hosts[name]; ok {
		rec.LastSeen = now
		rec.Seen++
		hs.dirty = true
		return false, nil
	}

	hs.hosts[name] = &models.HostRecord{Name: name, FirstSeen: now, LastSeen: now, Seen: 1}
	hs.dirty = true
	hs.pending++
	if hs.flushDueLocked() {
		if err := hs.flushLocked(); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (hs *HostStore) flushDueLocked() bool {
	if hs.pending >= hs.flushEvery {
		return true
	}
	return hs.flushInterval > 0 && time.Since(hs.lastFlush) >= hs.flushInterval
}

// Pending is the number of new hosts not yet written.
func (hs *HostStore) Pending() int {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	return hs.pending
}

// Hosts returns every stored hostname in ascending order.
func (hs *HostStore) Hosts(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hs.mu.RLock()
	defer hs.mu.RUnlock()

	out := make([]string, 0, len(hs.hosts))
	for name := range hs.hosts {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (hs *HostStore) Records() []models.HostRecord {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	return hs.recordsLocked()
}

func (hs *HostStore) recordsLocked() []models.HostRecord {
	out := make([]models.HostRecord, 0, len(hs.hosts))
	for _, rec := range hs.hosts {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (hs *HostStore) Len() int {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	return len(hs.hosts)
}

// Flush persists pending hosts and LastSeen updates.
func (hs *HostStore) Flush() error {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	if !hs.dirty {
		return nil
	}
	return hs.flushLocked()
}

func (hs *HostStore) flushLocked() error {
	doc := hostsDocument{
		Version:   StoreFormat,
		UpdatedAt: time.Now().UTC(),
		Hosts:     hs.recordsLocked(),
	}
	if err := writeJSONAtomic(hs.path, doc, hs.compression); err != nil {
		return fmt.Errorf("persist host store: %w", err)
	}
	hs.dirty = false
	hs.pending = 0
	hs.lastFlush = time.Now()
	return nil
}

func (hs *HostStore) Close() error {
	return hs.Flush()
}

func (hs *HostStore) Remove() error {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.hosts = make(map[string]*models.HostRecord)
	hs.dirty = false
	hs.pending = 0
	if err := os.Remove(hs.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove host store: %w", err)
	}
	return nil
}
