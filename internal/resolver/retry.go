package resolver

import (
	"context"
	"fmt"
	"math/rand"
	"time"
	mdns "github.com/miekg/dns"
	"github.com/sirupsen/logrus"
	"github.com/bl4ck0w1/hostbrute/pkg/models"
)

// Limiter paces outgoing queries.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Feedback is implemented by limiters that adapt to query outcomes.
type Feedback interface {
	RecordSuccess()
	RecordFailure()
}

// Retrier retries a Querier on timeouts only. Definitive negatives and an
// unavailable nameserver are returned after the first attempt.
type Retrier struct {
	querier      Querier
	maxAttempts  int
	backoff      time.Duration
	jitterFactor float64
	limiter      Limiter
	logger       *logrus.Logger
}

func NewRetrier(querier Querier, maxAttempts int, logger *logrus.Logger) *Retrier {
	if logger == nil {
		logger = logrus.New()
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Retrier{
		querier:      querier,
		maxAttempts:  maxAttempts,
		jitterFactor: 0.3,
		logger:       logger,
	}
}

func (r *Retrier) SetBackoff(base time.Duration) {
	if base < 0 {
		base = 0
	}
	r.backoff = base
}

func (r *Retrier) SetLimiter(l Limiter) { r.limiter = l }

func (r *Retrier) MaxAttempts() int { return r.maxAttempts }

// Resolve runs one retry context: its attempt counter is local to the call.
func (r *Retrier) Resolve(ctx context.Context, host string, qtype uint16) ([]models.Answer, error) {
	typ := mdns.TypeToString[qtype]

	for attempt := 1; ; attempt++ {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		answers, err := r.querier.Query(ctx, host, qtype)
		r.feedback(err)
		switch {
		case err == nil:
			r.logger.Debugf("%s %s answered with %d records (attempt %d/%d)", host, typ, len(answers), attempt, r.maxAttempts)
			return answers, nil
		case IsTimeout(err):
			if attempt >= r.maxAttempts {
				r.logger.Debugf("Giving up on %s %s after %d attempts", host, typ, attempt)
				return nil, fmt.Errorf("%w: %w", ErrExhausted, err)
			}
		default:
			r.logger.Debugf("%s %s: %v (attempt %d/%d, not retried)", host, typ, err, attempt, r.maxAttempts)
			return nil, err
		}

		if err := r.wait(ctx, attempt); err != nil {
			return nil, err
		}
	}
}

func (r *Retrier) feedback(err error) {
	fb, ok := r.limiter.(Feedback)
	if !ok {
		return
	}
	if IsTimeout(err) {
		fb.RecordFailure()
	} else if err == nil || IsDefinitiveNegative(err) {
		fb.RecordSuccess()
	}
}

func (r *Retrier) wait(ctx context.Context, attempt int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.backoff <= 0 {
		return nil
	}
	select {
	case <-time.After(r.calculateBackoff(attempt)):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Retrier) calculateBackoff(attempt int) time.Duration {
	backoff := r.backoff * time.Duration(1<<(attempt-1))
	if limit := r.backoff * 10; backoff > limit {
		backoff = limit
	}
	scale := 1 + r.jitterFactor*(2*rand.Float64()-1)
	return time.Duration(float64(backoff) * scale)
}
