package reporting

import (
	"strconv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/bl4ck0w1/hostbrute/pkg/models"
	"github.com/bl4ck0w1/hostbrute/pkg/utils"
)

// LogReporter sends engine messages to logrus. Verbose lines are logged at
// debug level, alerts at info with alert=true.
type LogReporter struct {
	logger  *logrus.Logger
	metrics *utils.MetricsCollector
}

func NewLogReporter(logger *logrus.Logger, metrics *utils.MetricsCollector) *LogReporter {
	if logger == nil {
		logger = logrus.New()
	}
	return &LogReporter{logger: logger, metrics: metrics}
}

func (r *LogReporter) Info(format string, args ...interface{}) {
	r.logger.Infof(format, args...)
}

func (r *LogReporter) Verbose(format string, args ...interface{}) {
	r.logger.Debugf(format, args...)
}

func (r *LogReporter) Alert(format string, args ...interface{}) {
	r.logger.WithField("alert", true).Infof(format, args...)
}

func (r *LogReporter) Warn(format string, args ...interface{}) {
	r.logger.Warnf(format, args...)
}

func (r *LogReporter) Error(format string, args ...interface{}) {
	r.logger.Errorf(format, args...)
}

func (r *LogReporter) Discovered(d models.Discovery) {
	r.metrics.IncCounter(utils.MetricHostsFound, prometheus.Labels{
		"type": d.Type.String(),
		"new":  strconv.FormatBool(d.IsNew),
	})
	r.logger.WithFields(logrus.Fields{
		"host":      d.Host,
		"type":      d.Type.String(),
		"value":     d.Value,
		"new":       d.IsNew,
		"subdomain": d.Subdomain,
		"domain":    d.Domain,
		"level":     d.Level,
	}).Debug("Discovery recorded")
}
