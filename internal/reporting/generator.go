package reporting

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
	"github.com/sirupsen/logrus"
	"github.com/bl4ck0w1/hostbrute/internal/reporting/formatters"
	"github.com/bl4ck0w1/hostbrute/pkg/models"
	"github.com/bl4ck0w1/hostbrute/pkg/utils"
)

type ReportGenerator struct {
	formatters map[string]Formatter
	logger     *logrus.Logger
	mu         sync.RWMutex
	config     models.ReportingConfig
}

type Formatter interface {
	Format(report *models.RunReport) ([]byte, error)
	FileExtension() string
}

func NewReportGenerator(config models.ReportingConfig, logger *logrus.Logger) (*ReportGenerator, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if config.OutputDir == "" {
		return nil, fmt.Errorf("report output directory must not be empty")
	}
	if err := utils.EnsureDir(config.OutputDir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	rg := &ReportGenerator{
		formatters: make(map[string]Formatter),
		logger:     logger,
		config:     config,
	}

	rg.RegisterFormatter(models.ReportFormatTXT, formatters.NewTXTFormatter())
	rg.RegisterFormatter(models.ReportFormatCSV, formatters.CSVFormatter{})
	rg.RegisterFormatter(models.ReportFormatJSON, formatters.JSONFormatter{})
	rg.RegisterFormatter(models.ReportFormatYAML, formatters.YAMLFormatter{})

	return rg, nil
}

func (rg *ReportGenerator) RegisterFormatter(name string, formatter Formatter) {
	rg.mu.Lock()
	defer rg.mu.Unlock()
	rg.formatters[name] = formatter
}

func (rg *ReportGenerator) SupportedFormats() []string {
	rg.mu.RLock()
	defer rg.mu.RUnlock()
	names := make([]string, 0, len(rg.formatters))
	for k := range rg.formatters {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// BuildReport derives the exported view of a run.
func BuildReport(result *models.RunResult, version string) *models.RunReport {
	cfg := result.Config
	target := cfg.Domain
	if cfg.Scan == models.ScanTable {
		target = "hosts table"
	}
	return &models.RunReport{
		Metadata: models.ReportMetadata{
			RunID:       result.RunID,
			Target:      target,
			Scan:        cfg.Scan,
			Nameserver:  cfg.Nameserver,
			Depth:       cfg.EffectiveDepth(),
			Status:      result.Status,
			ToolVersion: version,
			Duration:    utils.HumanizeDuration(result.Duration()),
			StartedAt:   result.StartTime,
		},
		Summary:     result.Stats,
		Domains:     result.Domains,
		Hosts:       models.HostsFromDiscoveries(result.Discoveries),
		Discoveries: result.Discoveries,
		GeneratedAt: time.Now().UTC(),
	}
}

func (rg *ReportGenerator) ExportReport(report *models.RunReport, format string) (string, error) {
	rg.mu.RLock()
	formatter, exists := rg.formatters[format]
	rg.mu.RUnlock()
	if !exists {
		return "", fmt.Errorf("unsupported report format: %s", format)
	}

	data, err := formatter.Format(report)
	if err != nil {
		return "", fmt.Errorf("failed to format report: %w", err)
	}

	outPath := filepath.Join(rg.config.OutputDir, rg.generateFilename(report.Metadata, formatter.FileExtension()))
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	if rg.config.Compress {
		compressedPath, cerr := rg.compressReport(outPath)
		if cerr != nil {
			rg.logger.Warnf("Failed to compress report: %v", cerr)
		} else {
			_ = os.Remove(outPath)
			outPath = compressedPath
		}
	}

	rg.logger.Infof("Report exported to %s", outPath)
	return outPath, nil
}

// Export writes the run in every requested format. Formats that fail are
// skipped and reported together.
func (rg *ReportGenerator) Export(result *models.RunResult, version string, formats []string) ([]string, error) {
	report := BuildReport(result, version)
	var (
		paths []string
		errs  []error
	)
	for _, f := range formats {
		p, err := rg.ExportReport(report, f)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f, err))
			continue
		}
		paths = append(paths, p)
	}
	return paths, errors.Join(errs...)
}

func (rg *ReportGenerator) generateFilename(metadata models.ReportMetadata, ext string) string {
	tstamp := metadata.StartedAt.Format("20060102_150405")
	return fmt.Sprintf("hostbrute_%s_%s_%s.%s", models.SanitizeFilename(metadata.Target), tstamp, metadata.RunID, ext)
}

func (rg *ReportGenerator) compressReport(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dstPath := path + ".gz"
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", err
	}
	defer func() { _ = dst.Close() }()

	gw := gzip.NewWriter(dst)
	gw.Name = filepath.Base(path)
	gw.ModTime = time.Now()

	_, copyErr := io.Copy(gw, src)
	closeErr := gw.Close()
	if copyErr != nil {
		return "", copyErr
	}
	if closeErr != nil {
		return "", closeErr
	}
	return dstPath, nil
}
