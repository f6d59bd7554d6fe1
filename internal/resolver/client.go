package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"
	mdns "github.com/miekg/dns"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/bl4ck0w1/hostbrute/pkg/models"
	"github.com/bl4ck0w1/hostbrute/pkg/utils"
)

const (
	DefaultTimeout  = 2 * time.Second
	DefaultLifetime = 3 * time.Second
)

// Querier issues a single DNS query. Client is the network implementation.
type Querier interface {
	Query(ctx context.Context, host string, qtype uint16) ([]models.Answer, error)
}

type Config struct {
	Nameserver string
	Timeout    time.Duration
	Lifetime   time.Duration
}

type Client struct {
	server    string
	timeout   time.Duration
	lifetime  time.Duration
	udpClient *mdns.Client
	tcpClient *mdns.Client
	metrics   *utils.MetricsCollector
	logger    *logrus.Logger
}

func NewClient(cfg Config, metrics *utils.MetricsCollector, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = DefaultLifetime
	}
	if cfg.Lifetime < cfg.Timeout {
		cfg.Lifetime = cfg.Timeout
	}

	udp := &mdns.Client{
		Net:          "udp",
		Timeout:      cfg.Timeout,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		UDPSize:      1232,
	}
	tcp := &mdns.Client{
		Net:          "tcp",
		Timeout:      cfg.Timeout,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	}

	return &Client{
		server:    utils.WithDefaultPort(cfg.Nameserver),
		timeout:   cfg.Timeout,
		lifetime:  cfg.Lifetime,
		udpClient: udp,
		tcpClient: tcp,
		metrics:   metrics,
		logger:    logger,
	}
}

func (c *Client) Server() string { return c.server }

// Query performs exactly one exchange with the nameserver. A truncated UDP
// reply is re-asked over TCP within the same lifetime budget.
func (c *Client) Query(ctx context.Context, host string, qtype uint16) ([]models.Answer, error) {
	name, err := utils.NormalizeHostname(host)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSuchName, err)
	}
	if _, ok := mdns.IsDomainName(name); !ok || len(name) > 253 {
		return nil, fmt.Errorf("%w: %q is not a valid domain name", ErrNoSuchName, name)
	}

	qctx, cancel := context.WithTimeout(ctx, c.lifetime)
	defer cancel()

	msg := new(mdns.Msg)
	msg.SetQuestion(mdns.Fqdn(name), qtype)
	msg.RecursionDesired = true
	msg.SetEdns0(1232, false)

	start := time.Now()
	resp, _, err := c.udpClient.ExchangeContext(qctx, msg, c.server)
	if err == nil && resp != nil && resp.Truncated {
		c.logger.Debugf("Truncated answer for %s, retrying over TCP", name)
		resp, _, err = c.tcpClient.ExchangeContext(qctx, msg, c.server)
	}

	var answers []models.Answer
	switch {
	case err != nil:
		err = classifyExchangeError(ctx, err)
	case resp == nil:
		err = fmt.Errorf("%w: nil DNS response", ErrServerUnavailable)
	default:
		answers, err = c.parseResponse(resp)
	}

	typ := mdns.TypeToString[qtype]
	c.metrics.ObserveHistogram(utils.MetricQueryDuration, time.Since(start).Seconds(), prometheus.Labels{"type": typ})
	c.metrics.IncCounter(utils.MetricQueries, prometheus.Labels{"type": typ, "outcome": outcomeLabel(err)})

	if err != nil {
		return nil, err
	}
	return answers, nil
}

func (c *Client) parseResponse(resp *mdns.Msg) ([]models.Answer, error) {
	if err := classifyRcode(resp.Rcode); err != nil {
		return nil, err
	}

	out := make([]models.Answer, 0, len(resp.Answer))
	for _, rr := range resp.Answer {
		if rr == nil {
			continue
		}
		if a, ok := c.parseRecord(rr); ok {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoAnswer
	}
	return out, nil
}

func (c *Client) parseRecord(rr mdns.RR) (models.Answer, bool) {
	trimDot := func(s string) string { return strings.ToLower(strings.TrimSuffix(s, ".")) }

	a := models.Answer{
		Name: trimDot(rr.Header().Name),
		TTL:  rr.Header().Ttl,
	}
	switch rr := rr.(type) {
	case *mdns.A:
		a.Type = models.TypeA
		a.Value = rr.A.String()
	case *mdns.CNAME:
		a.Type = models.TypeCNAME
		a.Value = trimDot(rr.Target)
	case *mdns.NS:
		a.Type = models.TypeNS
		a.Value = trimDot(rr.Ns)
	default:
		c.logger.Debugf("Ignoring %s record for %s", mdns.TypeToString[rr.Header().Rrtype], a.Name)
		return models.Answer{}, false
	}
	return a, true
}
