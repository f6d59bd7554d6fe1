package models

import (
	"regexp"
	"sort"
	"time"
)

const (
	ReportFormatTXT  = "txt"
	ReportFormatCSV  = "csv"
	ReportFormatJSON = "json"
	ReportFormatYAML = "yaml"
)

var filenameSanitizer = regexp.MustCompile(`[^\w\-.]+`)

// RunReport is the exported view of a finished run.
type RunReport struct {
	Metadata    ReportMetadata  `json:"metadata" yaml:"metadata"`
	Summary     RunStats        `json:"summary" yaml:"summary"`
	Domains     []DomainOutcome `json:"domains" yaml:"domains"`
	Hosts       []ReportedHost  `json:"hosts" yaml:"hosts"`
	Discoveries []Discovery     `json:"discoveries" yaml:"discoveries"`
	GeneratedAt time.Time       `json:"generated_at" yaml:"generated_at"`
}

type ReportMetadata struct {
	RunID       string    `json:"run_id" yaml:"run_id"`
	Target      string    `json:"target" yaml:"target"`
	Scan        ScanMode  `json:"scan" yaml:"scan"`
	Nameserver  string    `json:"nameserver" yaml:"nameserver"`
	Depth       int       `json:"depth" yaml:"depth"`
	Status      string    `json:"status" yaml:"status"`
	ToolVersion string    `json:"tool_version" yaml:"tool_version"`
	Duration    string    `json:"duration" yaml:"duration"`
	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
}

// ReportedHost groups every answer seen for one hostname.
type ReportedHost struct {
	Name      string   `json:"name" yaml:"name"`
	Types     []string `json:"types" yaml:"types"`
	Values    []string `json:"values" yaml:"values"`
	New       bool     `json:"new" yaml:"new"`
	Subdomain bool     `json:"subdomain" yaml:"subdomain"`
}

// HostsFromDiscoveries collapses discoveries into one entry per host,
// sorted by name. Values are only taken from answers to the host's own
// query, so a CNAME or NS target does not list itself.
func HostsFromDiscoveries(discoveries []Discovery) []ReportedHost {
	type entry struct {
		host   ReportedHost
		types  map[string]bool
		values map[string]bool
	}
	byName := make(map[string]*entry)

	for _, d := range discoveries {
		e, ok := byName[d.Host]
		if !ok {
			e = &entry{host: ReportedHost{Name: d.Host}, types: map[string]bool{}, values: map[string]bool{}}
			byName[d.Host] = e
		}
		if t := d.Type.String(); !e.types[t] {
			e.types[t] = true
			e.host.Types = append(e.host.Types, t)
		}
		if d.Host == d.Candidate && d.Value != "" && !e.values[d.Value] {
			e.values[d.Value] = true
			e.host.Values = append(e.host.Values, d.Value)
		}
		e.host.New = e.host.New || d.IsNew
		e.host.Subdomain = e.host.Subdomain || d.Subdomain
	}

	out := make([]ReportedHost, 0, len(byName))
	for _, e := range byName {
		out = append(out, e.host)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func SanitizeFilename(s string) string {
	s = filenameSanitizer.ReplaceAllString(s, "_")
	if s == "" {
		return "report"
	}
	return s
}
