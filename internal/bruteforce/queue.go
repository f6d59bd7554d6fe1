package bruteforce

import (
	"sync"
	"github.com/bl4ck0w1/hostbrute/pkg/models"
)

// WorkQueue is the FIFO of domains awaiting brute-forcing. A name is
// accepted at most once per run, even after it has been popped.
type WorkQueue struct {
	mu      sync.Mutex
	entries []models.QueueEntry
	seen    map[string]struct{}
}

func NewWorkQueue(expected int) *WorkQueue {
	if expected < 0 {
		expected = 0
	}
	return &WorkQueue{
		seen: make(map[string]struct{}, expected),
	}
}

// Push appends e unless its domain was enqueued before. It reports whether
// the entry was added.
func (q *WorkQueue) Push(e models.QueueEntry) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.seen[e.Domain]; ok {
		return false
	}
	q.seen[e.Domain] = struct{}{}
	q.entries = append(q.entries, e)
	return true
}

func (q *WorkQueue) Pop() (models.QueueEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return models.QueueEntry{}, false
	}
	e := q.entries[0]
	q.entries[0] = models.QueueEntry{}
	q.entries = q.entries[1:]
	return e, true
}

func (q *WorkQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Enqueued is the number of distinct domains accepted so far.
func (q *WorkQueue) Enqueued() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.seen)
}
