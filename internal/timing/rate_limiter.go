package timing

import (
	"context"
	"sync"
	"time"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RateLimiter paces DNS queries. A zero rate disables pacing. In adaptive
// mode the rate is lowered while queries keep timing out and raised back
// towards the base rate once they succeed again.
type RateLimiter struct {
	limiter  *rate.Limiter
	mu       sync.RWMutex
	logger   *logrus.Logger
	baseRate rate.Limit
	burst    int
	adaptive bool

	requestCount int64
	successCount int64
	failureCount int64
	blockedCount int64
	lastReset    time.Time

	adjustmentStep    float64
	minRate           rate.Limit
	increaseThreshold float64
	decreaseThreshold float64
	successEMA        float64
	successEMAInit    bool
	emaAlpha          float64
	adjustEvery       int64
}

func NewRateLimiter(qps float64, burst int, adaptive bool, logger *logrus.Logger) *RateLimiter {
	if logger == nil {
		logger = logrus.New()
	}
	if burst < 1 {
		burst = 1
	}

	limit := rate.Limit(qps)
	if qps <= 0 {
		limit = rate.Inf
		adaptive = false
	}

	minRate := limit / 10
	if minRate < 0.1 {
		minRate = 0.1
	}

	return &RateLimiter{
		limiter:           rate.NewLimiter(limit, burst),
		logger:            logger,
		baseRate:          limit,
		burst:             burst,
		adaptive:          adaptive,
		lastReset:         time.Now(),
		adjustmentStep:    0.10,
		minRate:           minRate,
		increaseThreshold: 0.90,
		decreaseThreshold: 0.50,
		emaAlpha:          0.2,
		adjustEvery:       50,
	}
}

func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	rl.requestCount++
	rl.mu.Unlock()

	if err := rl.limiter.Wait(ctx); err != nil {
		rl.mu.Lock()
		rl.blockedCount++
		rl.mu.Unlock()
		return err
	}
	return nil
}

func (rl *RateLimiter) RecordSuccess() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.successCount++
	rl.observeLocked(1)
}

func (rl *RateLimiter) RecordFailure() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.failureCount++
	rl.observeLocked(0)
}

func (rl *RateLimiter) observeLocked(sample float64) {
	if !rl.successEMAInit {
		rl.successEMA = sample
		rl.successEMAInit = true
	} else {
		rl.successEMA = rl.emaAlpha*sample + (1-rl.emaAlpha)*rl.successEMA
	}
	if !rl.adaptive {
		return
	}
	if (rl.successCount+rl.failureCount)%rl.adjustEvery == 0 {
		rl.adjustRateLocked()
	}
}

func (rl *RateLimiter) adjustRateLocked() {
	current := rl.limiter.Limit()
	newRate := current

	switch {
	case rl.successEMA > rl.increaseThreshold:
		newRate = current * rate.Limit(1+rl.adjustmentStep)
	case rl.successEMA < rl.decreaseThreshold:
		newRate = current * rate.Limit(1-rl.adjustmentStep)
	}

	if newRate < rl.minRate {
		newRate = rl.minRate
	}
	if newRate > rl.baseRate {
		newRate = rl.baseRate
	}

	if newRate != current {
		rl.limiter.SetLimit(newRate)
		rl.logger.Debugf("Adjusted query rate from %.2f to %.2f (successEMA=%.2f)", current, newRate, rl.successEMA)
	}
}

func (rl *RateLimiter) Limit() rate.Limit {
	return rl.limiter.Limit()
}

func (rl *RateLimiter) SetAdjustEvery(n int64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if n > 0 {
		rl.adjustEvery = n
	}
}

func (rl *RateLimiter) GetStats() map[string]interface{} {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return map[string]interface{}{
		"current_rate":     float64(rl.limiter.Limit()),
		"base_rate":        float64(rl.baseRate),
		"burst":            rl.burst,
		"adaptive":         rl.adaptive,
		"success_rate_ema": rl.successEMA,
		"request_count":    rl.requestCount,
		"success_count":    rl.successCount,
		"failure_count":    rl.failureCount,
		"blocked_count":    rl.blockedCount,
		"last_reset":       rl.lastReset,
	}
}
