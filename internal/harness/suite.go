package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// SuiteResult summarizes a directory of scenarios.
type SuiteResult struct {
	Total    int               `json:"total"`
	Passed   int               `json:"passed"`
	Failed   int               `json:"failed"`
	Failures []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure describes one failed scenario.
type ScenarioFailure struct {
	Scenario string   `json:"scenario"`
	Path     string   `json:"path"`
	Errors   []string `json:"errors"`
}

// Discover returns the scenario files under path, sorted. A file path is
// returned as is.
func Discover(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("scenario path: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ext := strings.ToLower(filepath.Ext(p)); ext == ".yaml" || ext == ".yml" {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", path, err)
	}
	sort.Strings(files)
	return files, nil
}

// RunSuite loads and runs every scenario under path.
func RunSuite(ctx context.Context, path string, logger *zap.Logger) (*SuiteResult, error) {
	files, err := Discover(path)
	if err != nil {
		return nil, err
	}

	out := &SuiteResult{}
	for _, file := range files {
		out.Total++
		fail := func(name string, errs ...string) {
			out.Failed++
			out.Failures = append(out.Failures, ScenarioFailure{Scenario: name, Path: file, Errors: errs})
		}

		scenario, err := LoadScenario(file)
		if err != nil {
			fail(filepath.Base(file), fmt.Sprintf("failed to load scenario: %v", err))
			continue
		}
		result, err := RunWithLogger(ctx, scenario, logger)
		if err != nil {
			fail(scenario.Name, fmt.Sprintf("scenario execution failed: %v", err))
			continue
		}
		if !result.Pass {
			fail(scenario.Name, result.Errors...)
			continue
		}
		out.Passed++
	}
	return out, nil
}
