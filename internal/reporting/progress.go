package reporting

import (
	"io"
	"sync"
	"time"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// ProgressTracker draws one bar per brute forced domain.
type ProgressTracker struct {
	p    *mpb.Progress
	mu   sync.Mutex
	bars map[string]*domainBar
}

type domainBar struct {
	bar  *mpb.Bar
	last time.Time
}

func NewProgressTracker(w io.Writer) *ProgressTracker {
	return &ProgressTracker{
		p:    mpb.New(mpb.WithOutput(w), mpb.WithWidth(48)),
		bars: make(map[string]*domainBar),
	}
}

func (t *ProgressTracker) DomainStarted(domain string, words int) {
	bar := t.p.AddBar(int64(words),
		mpb.BarOptional(mpb.BarRemoveOnComplete(), true),
		mpb.PrependDecorators(
			decor.Name(domain, decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.CountersNoUnit("[%d / %d]", decor.WCSyncWidth),
			decor.Percentage(decor.WCSyncSpace),
			decor.OnComplete(
				decor.EwmaETA(decor.ET_STYLE_GO, 30, decor.WCSyncSpace), "done",
			),
		),
	)
	t.mu.Lock()
	t.bars[domain] = &domainBar{bar: bar, last: time.Now()}
	t.mu.Unlock()
}

func (t *ProgressTracker) WordDone(domain string) {
	t.mu.Lock()
	db, ok := t.bars[domain]
	var elapsed time.Duration
	if ok {
		now := time.Now()
		elapsed = now.Sub(db.last)
		db.last = now
	}
	t.mu.Unlock()
	if ok {
		db.bar.EwmaIncrement(elapsed)
	}
}

func (t *ProgressTracker) DomainFinished(domain string) {
	t.mu.Lock()
	db, ok := t.bars[domain]
	delete(t.bars, domain)
	t.mu.Unlock()
	if ok {
		db.bar.SetTotal(-1, true)
	}
}

// Wait completes any bar still open and blocks until rendering stops.
func (t *ProgressTracker) Wait() {
	t.mu.Lock()
	for domain, db := range t.bars {
		db.bar.Abort(true)
		delete(t.bars, domain)
	}
	t.mu.Unlock()
	t.p.Wait()
}
