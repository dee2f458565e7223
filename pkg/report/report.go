// Package report writes run results to disk: report.json, an HTML page
// and Allure result files.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/devicelab-dev/gesture-runner/pkg/core"
)

// Report file names inside the output directory.
const (
	JSONFile  = "report.json"
	HTMLFile  = "report.html"
	AllureDir = "allure-results"
)

// WriteJSON writes the suite to <dir>/report.json.
func WriteJSON(dir string, suite *core.SuiteResult) (string, error) {
	data, err := json.MarshalIndent(suite, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	path := filepath.Join(dir, JSONFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// ReadJSON reads <dir>/report.json back.
func ReadJSON(dir string) (*core.SuiteResult, error) {
	data, err := os.ReadFile(filepath.Join(dir, JSONFile))
	if err != nil {
		return nil, err
	}
	var suite core.SuiteResult
	if err := json.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("parse %s: %w", JSONFile, err)
	}
	return &suite, nil
}
