package bruteforce

import (
	"context"
	"github.com/bl4ck0w1/hostbrute/pkg/models"
)

// Resolver performs a lookup with retries. resolver.Retrier satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, host string, qtype uint16) ([]models.Answer, error)
}

// HostStore is the hosts table. AddHost reports whether host was not
// stored before; Hosts returns every stored name in ascending order.
type HostStore interface {
	AddHost(ctx context.Context, host string) (bool, error)
	Hosts(ctx context.Context) ([]string, error)
}

// Reporter receives status messages and discoveries. Implementations must
// be safe for concurrent use when the engine runs more than one worker.
type Reporter interface {
	Info(format string, args ...interface{})
	Verbose(format string, args ...interface{})
	Alert(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	Discovered(d models.Discovery)
}

// Progress observes per-domain word progress.
type Progress interface {
	DomainStarted(domain string, words int)
	WordDone(domain string)
	DomainFinished(domain string)
}

type noopProgress struct{}

func (noopProgress) DomainStarted(string, int) {}
func (noopProgress) WordDone(string)           {}
func (noopProgress) DomainFinished(string)     {}
