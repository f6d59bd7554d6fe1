package bruteforce

import (
	"sync/atomic"
	"github.com/bl4ck0w1/hostbrute/pkg/models"
)

// Stats accumulates the counters of one run. Safe for concurrent use.
type Stats struct {
	totalHosts     atomic.Int64
	newHosts       atomic.Int64
	newSubdomains  atomic.Int64
	domainsScanned atomic.Int64
	domainsSkipped atomic.Int64
	domainsFailed  atomic.Int64
	queries        atomic.Int64
}

func (s *Stats) hostFound(isNew bool) {
	s.totalHosts.Add(1)
	if isNew {
		s.newHosts.Add(1)
	}
}

func (s *Stats) Snapshot() models.RunStats {
	return models.RunStats{
		TotalHosts:     s.totalHosts.Load(),
		NewHosts:       s.newHosts.Load(),
		NewSubdomains:  s.newSubdomains.Load(),
		DomainsScanned: s.domainsScanned.Load(),
		DomainsSkipped: s.domainsSkipped.Load(),
		DomainsFailed:  s.domainsFailed.Load(),
		Queries:        s.queries.Load(),
	}
}
