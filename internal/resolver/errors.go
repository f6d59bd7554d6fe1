package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	mdns "github.com/miekg/dns"
)

var (
	ErrNoSuchName        = errors.New("no such name")
	ErrNoAnswer          = errors.New("no answer")
	ErrTimeout           = errors.New("request timed out")
	ErrServerUnavailable = errors.New("nameserver unavailable")
	ErrExhausted         = errors.New("retry attempts exhausted")
)

// IsDefinitiveNegative reports whether err means the name or record does
// not exist. Such outcomes are never retried.
func IsDefinitiveNegative(err error) bool {
	return errors.Is(err, ErrNoSuchName) || errors.Is(err, ErrNoAnswer)
}

func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

func IsServerUnavailable(err error) bool {
	return errors.Is(err, ErrServerUnavailable)
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "answer"
	case errors.Is(err, ErrNoSuchName):
		return "nxdomain"
	case errors.Is(err, ErrNoAnswer):
		return "noanswer"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrServerUnavailable):
		return "unavailable"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

// classifyExchangeError maps a transport failure onto the resolver taxonomy.
// A canceled parent context is returned untouched so the caller can stop.
func classifyExchangeError(parent context.Context, err error) error {
	if perr := parent.Err(); perr != nil {
		return perr
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrServerUnavailable, err)
}

func classifyRcode(rcode int) error {
	switch rcode {
	case mdns.RcodeSuccess:
		return nil
	case mdns.RcodeNameError:
		return ErrNoSuchName
	default:
		return fmt.Errorf("%w: server answered %s", ErrServerUnavailable, mdns.RcodeToString[rcode])
	}
}
