package reporting

import (
	"io"
	"sync"
	"testing"
)

func TestProgressTrackerLifecycle(t *testing.T) {
	tr := NewProgressTracker(io.Discard)

	tr.DomainStarted("example.com", 3)
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.WordDone("example.com")
		}()
	}
	wg.Wait()
	tr.DomainFinished("example.com")

	tr.DomainStarted("dev.example.com", 5)
	tr.WordDone("dev.example.com")
	tr.WordDone("unknown.example.com")

	tr.Wait()
	if len(tr.bars) != 0 {
		t.Fatalf("bars left open: %d", len(tr.bars))
	}
}
