package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var domainLabelRE = regexp.MustCompile(`^[a-zA-Z0-9\-_]+$`)

// RecordType is the numeric DNS type code of an answer.
type RecordType uint16

const (
	TypeA     RecordType = 1
	TypeNS    RecordType = 2
	TypeCNAME RecordType = 5
)

func (t RecordType) String() string {
	switch t {
	case TypeA:
		return "A"
	case TypeNS:
		return "NS"
	case TypeCNAME:
		return "CNAME"
	default:
		return fmt.Sprintf("TYPE%d", uint16(t))
	}
}

func (t RecordType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *RecordType) UnmarshalText(b []byte) error {
	switch strings.ToUpper(string(b)) {
	case "A":
		*t = TypeA
	case "NS":
		*t = TypeNS
	case "CNAME":
		*t = TypeCNAME
	default:
		var n uint16
		if _, err := fmt.Sscanf(strings.ToUpper(string(b)), "TYPE%d", &n); err != nil {
			return fmt.Errorf("unknown record type %q", string(b))
		}
		*t = RecordType(n)
	}
	return nil
}

type Answer struct {
	Type  RecordType `json:"type" yaml:"type"`
	Name  string     `json:"name" yaml:"name"`
	Value string     `json:"value" yaml:"value"`
	TTL   uint32     `json:"ttl" yaml:"ttl"`
}

// Discovery is one reported host. Subdomain is set when the host was found
// through an NS delegation and queued for brute-forcing.
type Discovery struct {
	Host      string     `json:"host" yaml:"host"`
	Candidate string     `json:"candidate" yaml:"candidate"`
	Type      RecordType `json:"type" yaml:"type"`
	Value     string     `json:"value" yaml:"value"`
	IsNew     bool       `json:"is_new" yaml:"is_new"`
	Subdomain bool       `json:"subdomain" yaml:"subdomain"`
	Domain    string     `json:"domain" yaml:"domain"`
	Level     int        `json:"level" yaml:"level"`
	FoundAt   time.Time  `json:"found_at" yaml:"found_at"`
}

type QueueEntry struct {
	Domain string `json:"domain" yaml:"domain"`
	Level  int    `json:"level" yaml:"level"`
}

type WildcardState struct {
	HostWildcard bool `json:"host_wildcard" yaml:"host_wildcard"`
	NSWildcard   bool `json:"ns_wildcard" yaml:"ns_wildcard"`
}

// HostRecord is one row of the hosts table.
type HostRecord struct {
	Name      string    `json:"name" yaml:"name"`
	FirstSeen time.Time `json:"first_seen" yaml:"first_seen"`
	LastSeen  time.Time `json:"last_seen" yaml:"last_seen"`
	Seen      int       `json:"seen" yaml:"seen"`
}

func IsValidHostname(domain string) bool {
	domain = strings.TrimSuffix(domain, ".")
	if domain == "" || len(domain) > 253 {
		return false
	}
	for _, part := range strings.Split(domain, ".") {
		if len(part) == 0 || len(part) > 63 {
			return false
		}
		if !domainLabelRE.MatchString(part) {
			return false
		}
		if part[0] == '-' || part[len(part)-1] == '-' {
			return false
		}
	}
	return true
}
