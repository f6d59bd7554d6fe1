package formatters

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"gopkg.in/yaml.v3"
	"github.com/bl4ck0w1/hostbrute/pkg/models"
)

type JSONFormatter struct{}

func (JSONFormatter) Format(report *models.RunReport) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json report: %w", err)
	}
	return append(data, '\n'), nil
}

func (JSONFormatter) FileExtension() string { return models.ReportFormatJSON }

type YAMLFormatter struct{}

func (YAMLFormatter) Format(report *models.RunReport) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return nil, fmt.Errorf("marshal yaml report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (YAMLFormatter) FileExtension() string { return models.ReportFormatYAML }

// CSVFormatter writes one row per discovery.
type CSVFormatter struct{}

var csvHeader = []string{"host", "type", "value", "candidate", "domain", "level", "new", "subdomain", "found_at"}

func (CSVFormatter) Format(report *models.RunReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, d := range report.Discoveries {
		row := []string{
			d.Host,
			d.Type.String(),
			d.Value,
			d.Candidate,
			d.Domain,
			strconv.Itoa(d.Level),
			strconv.FormatBool(d.IsNew),
			strconv.FormatBool(d.Subdomain),
			d.FoundAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row for %s: %w", d.Host, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (CSVFormatter) FileExtension() string { return models.ReportFormatCSV }

// ParseCSVHosts reads the host column back from a CSV report.
func ParseCSVHosts(data []byte) ([]string, error) {
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	hosts := make([]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		hosts = append(hosts, rec[0])
	}
	return hosts, nil
}
