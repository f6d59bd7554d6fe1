package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"github.com/bl4ck0w1/hostbrute/pkg/models"
)

// SaveRun writes a run summary next to the hosts table.
func (hs *HostStore) SaveRun(ctx context.Context, result *models.RunResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if result == nil || result.RunID == "" {
		return fmt.Errorf("invalid run result: missing run id")
	}

	name := fmt.Sprintf("run_%s_%s.json", result.StartTime.UTC().Format("20060102_150405"), result.RunID)
	path := withCompressionSuffix(filepath.Join(hs.runsDir, name), hs.compression)
	if err := writeJSONAtomic(path, result, hs.compression); err != nil {
		return fmt.Errorf("save run %s: %w", result.RunID, err)
	}
	hs.logger.Debugf("Run %s saved to %s", result.RunID, path)
	return nil
}

// ListRuns returns saved runs, oldest first. Unreadable files are skipped.
func (hs *HostStore) ListRuns(ctx context.Context) ([]*models.RunResult, error) {
	entries, err := os.ReadDir(hs.runsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read runs directory: %w", err)
	}

	runs := make([]*models.RunResult, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := strings.ToLower(e.Name())
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if !(strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".json.gz")) {
			continue
		}

		var r models.RunResult
		if err := readJSON(filepath.Join(hs.runsDir, e.Name()), &r); err != nil {
			hs.logger.Warnf("Failed to parse run %s: %v", e.Name(), err)
			continue
		}
		runs = append(runs, &r)
	}

	sort.SliceStable(runs, func(i, j int) bool { return runs[i].StartTime.Before(runs[j].StartTime) })
	return runs, nil
}

func (hs *HostStore) FindRun(ctx context.Context, runID string) (*models.RunResult, error) {
	runs, err := hs.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range runs {
		if r.RunID == runID {
			return r, nil
		}
	}
	return nil, fmt.Errorf("no run found with id %s", runID)
}
