package bruteforce

import (
	"context"
	"errors"
	"fmt"
	"github.com/sirupsen/logrus"
	"github.com/bl4ck0w1/hostbrute/internal/resolver"
	"github.com/bl4ck0w1/hostbrute/pkg/models"
)

// WildcardProbeLabel is prefixed to a domain to build a name that should
// never exist.
const WildcardProbeLabel = "sudhfydgssjdue"

var ErrInvalidNameserver = errors.New("invalid nameserver")

type WildcardDetector struct {
	resolver Resolver
	reporter Reporter
	logger   *logrus.Logger
}

func NewWildcardDetector(r Resolver, reporter Reporter, logger *logrus.Logger) *WildcardDetector {
	if logger == nil {
		logger = logrus.New()
	}
	return &WildcardDetector{resolver: r, reporter: reporter, logger: logger}
}

func ProbeHost(domain string) string {
	return WildcardProbeLabel + "." + domain
}

// Detect probes domain for wildcard A/CNAME answers and, when checkNS is
// set, for wildcard NS answers. Without checkNS the NS wildcard flag is
// forced so that no subdomain discovery is attempted.
func (d *WildcardDetector) Detect(ctx context.Context, domain string, checkNS bool) (models.WildcardState, error) {
	var state models.WildcardState
	probe := ProbeHost(domain)

	_, err := d.resolver.Resolve(ctx, probe, uint16(models.TypeA))
	switch {
	case err == nil:
		state.HostWildcard = true
		d.reporter.Warn("Wildcard DNS entry found. Cannot brute force hostnames for %s.", domain)
	case resolver.IsDefinitiveNegative(err):
		d.reporter.Verbose("No Wildcard DNS entry found. Attempting to brute force A & CNAME records for %s.", domain)
	case ctx.Err() != nil:
		return state, ctx.Err()
	default:
		return state, fmt.Errorf("%w: A probe for %s: %w", ErrInvalidNameserver, domain, err)
	}

	if !checkNS {
		state.NSWildcard = true
		d.logState(domain, state)
		return state, nil
	}

	_, err = d.resolver.Resolve(ctx, probe, uint16(models.TypeNS))
	switch {
	case err == nil:
		state.NSWildcard = true
		d.reporter.Warn("Wildcard DNS entry found. Cannot brute force nameservers for %s.", domain)
	case resolver.IsDefinitiveNegative(err):
		d.reporter.Verbose("No Wildcard DNS entry found. Attempting to brute force NS records for %s.", domain)
	case ctx.Err() != nil:
		return state, ctx.Err()
	case errors.Is(err, resolver.ErrExhausted):
		state.NSWildcard = true
		d.reporter.Warn("NS wildcard probe for %s timed out. Cannot brute force nameservers for %s.", domain, domain)
	default:
		return state, fmt.Errorf("%w: NS probe for %s: %w", ErrInvalidNameserver, domain, err)
	}

	d.logState(domain, state)
	return state, nil
}

func (d *WildcardDetector) logState(domain string, state models.WildcardState) {
	d.logger.WithFields(logrus.Fields{
		"domain":        domain,
		"host_wildcard": state.HostWildcard,
		"ns_wildcard":   state.NSWildcard,
	}).Debug("Wildcard check complete")
}
