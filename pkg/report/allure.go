package report

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/devicelab-dev/gesture-runner/pkg/core"
	"github.com/devicelab-dev/gesture-runner/pkg/logger"
)

// Allure result schema types.

// AllureResult represents a single test result in Allure format.
type AllureResult struct {
	UUID          string              `json:"uuid"`
	HistoryID     string              `json:"historyId"`
	FullName      string              `json:"fullName"`
	Name          string              `json:"name"`
	Status        string              `json:"status"`
	Stage         string              `json:"stage"`
	Start         int64               `json:"start"`
	Stop          int64               `json:"stop"`
	Labels        []AllureLabel       `json:"labels"`
	StatusDetails AllureStatusDetails `json:"statusDetails"`
	Steps         []AllureStep        `json:"steps"`
	Attachments   []AllureAttachment  `json:"attachments"`
}

// AllureStep represents a step within a test result.
type AllureStep struct {
	Name          string              `json:"name"`
	Status        string              `json:"status"`
	Stage         string              `json:"stage"`
	Start         int64               `json:"start"`
	Stop          int64               `json:"stop"`
	StatusDetails AllureStatusDetails `json:"statusDetails"`
	Attachments   []AllureAttachment  `json:"attachments"`
}

// AllureAttachment represents a file attachment.
type AllureAttachment struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Type   string `json:"type"`
}

// AllureLabel represents a label on a test result.
type AllureLabel struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AllureStatusDetails holds failure message and trace.
type AllureStatusDetails struct {
	Message string `json:"message,omitempty"`
	Trace   string `json:"trace,omitempty"`
}

// AllureCategory defines a failure category with regex matching.
type AllureCategory struct {
	Name            string   `json:"name"`
	MatchedStatuses []string `json:"matchedStatuses"`
	MessageRegex    string   `json:"messageRegex,omitempty"`
}

// AllureEnvironment is written to environment.properties.
type AllureEnvironment struct {
	Driver    string
	ServerURL string
	Version   string
}

// GenerateAllure writes one result file per scenario plus categories and
// environment files to <reportDir>/allure-results/.
func GenerateAllure(reportDir string, suite *core.SuiteResult, env AllureEnvironment) error {
	allureDir := filepath.Join(reportDir, AllureDir)
	if err := os.MkdirAll(allureDir, 0o755); err != nil {
		return fmt.Errorf("create allure-results dir: %w", err)
	}

	for i := range suite.Scenarios {
		sc := &suite.Scenarios[i]
		result := buildAllureResult(sc)

		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal allure result for %s: %w", sc.ID, err)
		}
		resultPath := filepath.Join(allureDir, result.UUID+"-result.json")
		if err := os.WriteFile(resultPath, data, 0o644); err != nil {
			return fmt.Errorf("write allure result %s: %w", sc.ID, err)
		}
		copyAttachments(reportDir, allureDir, sc.Steps)
	}

	if err := writeAllureCategories(allureDir); err != nil {
		return err
	}
	return writeAllureEnvironment(allureDir, suite, env)
}

func buildAllureResult(sc *core.ScenarioResult) AllureResult {
	labels := []AllureLabel{
		{Name: "suite", Value: sc.Name},
		{Name: "framework", Value: "gesture-runner"},
	}
	if sc.FilePath != "" {
		labels = append(labels, AllureLabel{Name: "parentSuite", Value: filepath.Base(sc.FilePath)})
	}
	if sc.DeviceID != "" {
		labels = append(labels, AllureLabel{Name: "host", Value: sc.DeviceID})
	}
	if sc.SessionID != "" {
		labels = append(labels, AllureLabel{Name: "thread", Value: sc.SessionID})
	}

	steps := make([]AllureStep, 0, len(sc.Steps))
	var attachments []AllureAttachment
	for _, st := range sc.Steps {
		step := buildAllureStep(st)
		steps = append(steps, step)
		attachments = append(attachments, step.Attachments...)
	}

	uuid := sc.ID
	if uuid == "" {
		uuid = fnv32aHash(sc.Name + ":" + sc.FilePath + ":" + sc.StartTime.String())
	}
	start := sc.StartTime.UnixMilli()

	return AllureResult{
		UUID:          uuid,
		HistoryID:     fnv32aHash(sc.Name + ":" + sc.FilePath),
		FullName:      sc.Name,
		Name:          sc.Name,
		Status:        mapAllureStatus(sc.Status),
		Stage:         "finished",
		Start:         start,
		Stop:          start + sc.Duration.Milliseconds(),
		Labels:        labels,
		StatusDetails: AllureStatusDetails{Message: sc.Error},
		Steps:         steps,
		Attachments:   attachments,
	}
}

func buildAllureStep(st core.StepResult) AllureStep {
	name := st.Command
	if st.Description != "" {
		name = st.Description
	}

	var details AllureStatusDetails
	if st.Error != "" {
		details.Message = st.Error
		if st.Category != core.ErrCategoryNone {
			details.Trace = "category: " + st.Category.String()
		}
	} else if st.Status == core.StatusSkipped {
		details.Message = st.Message
	}

	var attachments []AllureAttachment
	for _, a := range st.Attachments {
		if a.Path == "" {
			continue
		}
		attachments = append(attachments, AllureAttachment{
			Name:   a.Name,
			Source: attachmentSource(a.Path),
			Type:   a.ContentType,
		})
	}

	start := st.StartTime.UnixMilli()
	return AllureStep{
		Name:          name,
		Status:        mapAllureStatus(st.Status),
		Stage:         "finished",
		Start:         start,
		Stop:          start + st.Duration.Milliseconds(),
		StatusDetails: details,
		Attachments:   attachments,
	}
}

// attachmentSource flattens a report-relative path into a unique file name
// inside allure-results.
func attachmentSource(path string) string {
	return strings.ReplaceAll(filepath.ToSlash(filepath.Clean(path)), "/", "_")
}

// copyAttachments copies step artifacts into allure-results/ flat.
func copyAttachments(reportDir, allureDir string, steps []core.StepResult) {
	for _, st := range steps {
		for _, a := range st.Attachments {
			if a.Path == "" {
				continue
			}
			copyFile(filepath.Join(reportDir, a.Path), filepath.Join(allureDir, attachmentSource(a.Path)))
		}
	}
}

// copyFile copies src to dst. Missing sources are ignored.
func copyFile(src, dst string) {
	in, err := os.Open(src)
	if err != nil {
		return
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		logger.Warn("failed to copy %s to %s: %v", src, dst, err)
	}
}

// mapAllureStatus maps a step status to Allure's vocabulary. Allure calls
// infrastructure errors "broken".
func mapAllureStatus(s core.StepStatus) string {
	switch s {
	case core.StatusPassed:
		return "passed"
	case core.StatusFailed:
		return "failed"
	case core.StatusErrored:
		return "broken"
	case core.StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

func fnv32aHash(s string) string {
	h := fnv.New32a()
	h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}

func writeAllureCategories(allureDir string) error {
	categories := []AllureCategory{
		{Name: "Assertion Failed", MatchedStatuses: []string{"failed"}},
		{Name: "Element Not Found", MatchedStatuses: []string{"broken"}, MessageRegex: "(?i).*(element not found|stale element).*"},
		{Name: "Scroll Not Exhausted", MatchedStatuses: []string{"broken"}, MessageRegex: "(?i).*scroll.*"},
		{Name: "Timeout", MatchedStatuses: []string{"broken"}, MessageRegex: "(?i).*(timeout|timed out).*"},
		{Name: "Connection Error", MatchedStatuses: []string{"broken"}, MessageRegex: "(?i).*(connection|server).*"},
		{Name: "Gesture Rejected", MatchedStatuses: []string{"broken"}, MessageRegex: "(?i).*gesture.*"},
	}

	data, err := json.MarshalIndent(categories, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}
	if err := os.WriteFile(filepath.Join(allureDir, "categories.json"), data, 0o644); err != nil {
		return fmt.Errorf("write categories.json: %w", err)
	}
	return nil
}

func writeAllureEnvironment(allureDir string, suite *core.SuiteResult, env AllureEnvironment) error {
	var b strings.Builder
	b.WriteString("framework=gesture-runner\n")
	fmt.Fprintf(&b, "run.id=%s\n", suite.RunID)
	if env.Version != "" {
		fmt.Fprintf(&b, "runner.version=%s\n", env.Version)
	}
	if env.Driver != "" {
		fmt.Fprintf(&b, "runner.driver=%s\n", env.Driver)
	}
	if env.ServerURL != "" {
		fmt.Fprintf(&b, "server.url=%s\n", env.ServerURL)
	}

	devices := map[string]bool{}
	var list []string
	for _, sc := range suite.Scenarios {
		if sc.DeviceID != "" && !devices[sc.DeviceID] {
			devices[sc.DeviceID] = true
			list = append(list, sc.DeviceID)
		}
	}
	if len(list) > 0 {
		fmt.Fprintf(&b, "devices=%s\n", strings.Join(list, ","))
	}

	if err := os.WriteFile(filepath.Join(allureDir, "environment.properties"), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write environment.properties: %w", err)
	}
	return nil
}
