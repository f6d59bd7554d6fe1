package timing

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Delayer waits a random duration in [min, max] before each query.
type Delayer struct {
	minDelay time.Duration
	maxDelay time.Duration

	mu         sync.Mutex
	delayCount int64
	totalDelay time.Duration
}

func NewDelayer(minDelay, maxDelay time.Duration) *Delayer {
	if minDelay < 0 {
		minDelay = 0
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Delayer{minDelay: minDelay, maxDelay: maxDelay}
}

func (d *Delayer) Wait(ctx context.Context) error {
	delay := d.calculateDelay()
	d.mu.Lock()
	d.delayCount++
	d.totalDelay += delay
	d.mu.Unlock()

	if delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(delay)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Delayer) calculateDelay() time.Duration {
	if d.maxDelay <= d.minDelay {
		return d.minDelay
	}
	return d.minDelay + time.Duration(rand.Int63n(int64(d.maxDelay-d.minDelay+1)))
}

func (d *Delayer) GetStats() map[string]interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()

	avg := time.Duration(0)
	if d.delayCount > 0 {
		avg = d.totalDelay / time.Duration(d.delayCount)
	}
	return map[string]interface{}{
		"total_delays":     d.delayCount,
		"total_delay_time": d.totalDelay,
		"average_delay":    avg,
		"min_delay":        d.minDelay,
		"max_delay":        d.maxDelay,
	}
}

type Waiter interface {
	Wait(ctx context.Context) error
}

// Chain waits on every member in order. Query outcomes are forwarded to the
// members that adapt to them.
type Chain []Waiter

func NewChain(members ...Waiter) Chain {
	var c Chain
	for _, m := range members {
		if m != nil {
			c = append(c, m)
		}
	}
	return c
}

func (c Chain) Wait(ctx context.Context) error {
	for _, m := range c {
		if err := m.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c Chain) RecordSuccess() {
	for _, m := range c {
		if fb, ok := m.(interface{ RecordSuccess() }); ok {
			fb.RecordSuccess()
		}
	}
}

func (c Chain) RecordFailure() {
	for _, m := range c {
		if fb, ok := m.(interface{ RecordFailure() }); ok {
			fb.RecordFailure()
		}
	}
}
