package models

import "time"

type RunStats struct {
	TotalHosts     int64 `json:"total_hosts" yaml:"total_hosts"`
	NewHosts       int64 `json:"new_hosts" yaml:"new_hosts"`
	NewSubdomains  int64 `json:"new_subdomains" yaml:"new_subdomains"`
	DomainsScanned int64 `json:"domains_scanned" yaml:"domains_scanned"`
	DomainsSkipped int64 `json:"domains_skipped" yaml:"domains_skipped"`
	DomainsFailed  int64 `json:"domains_failed" yaml:"domains_failed"`
	Queries        int64 `json:"queries" yaml:"queries"`
}

type DomainOutcome struct {
	Domain   string        `json:"domain" yaml:"domain"`
	Level    int           `json:"level" yaml:"level"`
	Wildcard WildcardState `json:"wildcard" yaml:"wildcard"`
	Status   string        `json:"status" yaml:"status"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
}

const (
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

type RunResult struct {
	RunID       string          `json:"run_id" yaml:"run_id"`
	Config      BruteConfig     `json:"config" yaml:"config"`
	StartTime   time.Time       `json:"start_time" yaml:"start_time"`
	EndTime     time.Time       `json:"end_time" yaml:"end_time"`
	Status      string          `json:"status" yaml:"status"`
	Stats       RunStats        `json:"stats" yaml:"stats"`
	Domains     []DomainOutcome `json:"domains" yaml:"domains"`
	Discoveries []Discovery     `json:"discoveries" yaml:"discoveries"`
}

func (r *RunResult) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return time.Since(r.StartTime)
	}
	return r.EndTime.Sub(r.StartTime)
}
