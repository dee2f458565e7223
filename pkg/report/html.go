package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/devicelab-dev/gesture-runner/pkg/core"
)

// HTMLConfig contains configuration for HTML report generation.
type HTMLConfig struct {
	OutputPath string // Path to write the HTML file (default: <reportDir>/report.html)
	Title      string // Report title (default: "Gesture Report")
}

// GenerateHTML renders the suite as a single self-contained HTML page.
// Hierarchy attachments are linked relative to the report directory.
func GenerateHTML(reportDir string, suite *core.SuiteResult, cfg HTMLConfig) (string, error) {
	if cfg.Title == "" {
		cfg.Title = "Gesture Report"
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = filepath.Join(reportDir, HTMLFile)
	}

	html, err := renderHTML(buildHTMLData(suite, cfg))
	if err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	if err := os.WriteFile(cfg.OutputPath, []byte(html), 0o644); err != nil {
		return "", fmt.Errorf("write html: %w", err)
	}
	return cfg.OutputPath, nil
}

// HTMLData contains all data needed for the HTML template.
type HTMLData struct {
	Title       string
	GeneratedAt string
	RunID       string
	Duration    string
	PassRate    float64
	Total       int
	Passed      int
	Failed      int
	Skipped     int
	Scenarios   []scenarioHTML
}

type scenarioHTML struct {
	Name        string
	File        string
	Device      string
	Status      string
	Error       string
	Duration    string
	DurationPct float64
	Steps       []stepHTML
}

type stepHTML struct {
	Description string
	Status      string
	Category    string
	Message     string
	Error       string
	Duration    string
	Links       []core.Attachment
}

func buildHTMLData(suite *core.SuiteResult, cfg HTMLConfig) HTMLData {
	var maxDuration time.Duration
	for _, sc := range suite.Scenarios {
		if sc.Duration > maxDuration {
			maxDuration = sc.Duration
		}
	}

	scenarios := make([]scenarioHTML, 0, len(suite.Scenarios))
	for _, sc := range suite.Scenarios {
		steps := make([]stepHTML, 0, len(sc.Steps))
		for _, st := range sc.Steps {
			s := stepHTML{
				Description: st.Description,
				Status:      st.Status.String(),
				Message:     st.Message,
				Error:       st.Error,
				Duration:    formatDuration(st.Duration),
			}
			if s.Description == "" {
				s.Description = st.Command
			}
			if st.Category != core.ErrCategoryNone {
				s.Category = st.Category.String()
			}
			for _, a := range st.Attachments {
				if a.Path != "" {
					s.Links = append(s.Links, a)
				}
			}
			steps = append(steps, s)
		}

		var pct float64
		if maxDuration > 0 {
			pct = float64(sc.Duration) / float64(maxDuration) * 100
		}
		scenarios = append(scenarios, scenarioHTML{
			Name:        sc.Name,
			File:        sc.FilePath,
			Device:      sc.DeviceID,
			Status:      sc.Status.String(),
			Error:       sc.Error,
			Duration:    formatDuration(sc.Duration),
			DurationPct: pct,
			Steps:       steps,
		})
	}

	var passRate float64
	if suite.TotalScenarios > 0 {
		passRate = float64(suite.PassedScenarios) / float64(suite.TotalScenarios) * 100
	}

	return HTMLData{
		Title:       cfg.Title,
		GeneratedAt: time.Now().Format("2006-01-02 15:04:05"),
		RunID:       suite.RunID,
		Duration:    formatDuration(suite.Duration),
		PassRate:    passRate,
		Total:       suite.TotalScenarios,
		Passed:      suite.PassedScenarios,
		Failed:      suite.FailedScenarios,
		Skipped:     suite.SkippedScenarios,
		Scenarios:   scenarios,
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}

func renderHTML(data HTMLData) (string, error) {
	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        :root {
            --bg: #f9fafb;
            --card: #ffffff;
            --border: #e5e7eb;
            --text: #111827;
            --muted: #6b7280;
            --passed: #16a34a;
            --failed: #dc2626;
            --errored: #ea580c;
            --skipped: #0891b2;
        }
        body { margin: 0; font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; background: var(--bg); color: var(--text); }
        header { padding: 16px 24px; background: var(--card); border-bottom: 1px solid var(--border); display: flex; justify-content: space-between; align-items: baseline; }
        header h1 { margin: 0; font-size: 18px; }
        header span { color: var(--muted); font-size: 13px; }
        main { max-width: 1100px; margin: 24px auto; padding: 0 24px; }
        .summary { display: flex; gap: 24px; margin-bottom: 24px; font-size: 14px; }
        .summary b { font-size: 22px; display: block; }
        details { background: var(--card); border: 1px solid var(--border); border-radius: 6px; margin-bottom: 8px; }
        summary { padding: 10px 14px; cursor: pointer; display: flex; gap: 12px; align-items: center; }
        .dot { width: 10px; height: 10px; border-radius: 50%; flex: none; }
        .dot.passed { background: var(--passed); } .dot.failed { background: var(--failed); }
        .dot.errored { background: var(--errored); } .dot.skipped { background: var(--skipped); }
        .name { font-weight: 600; flex: 1; }
        .meta { color: var(--muted); font-size: 12px; }
        .bar { width: 120px; height: 6px; background: var(--border); border-radius: 3px; }
        .bar div { height: 100%; background: var(--muted); border-radius: 3px; }
        table { width: 100%; border-collapse: collapse; font-size: 13px; }
        td { padding: 6px 14px; border-top: 1px solid var(--border); vertical-align: top; }
        td.status { width: 70px; font-weight: 600; }
        td.status.passed { color: var(--passed); } td.status.failed { color: var(--failed); }
        td.status.errored { color: var(--errored); } td.status.skipped { color: var(--skipped); }
        .error { color: var(--failed); font-family: ui-monospace, monospace; white-space: pre-wrap; margin-top: 4px; }
    </style>
</head>
<body>
<header>
    <h1>{{.Title}}</h1>
    <span>run {{.RunID}} · {{.GeneratedAt}}</span>
</header>
<main>
    <div class="summary">
        <div><b>{{.Total}}</b>scenarios</div>
        <div><b style="color: var(--passed)">{{.Passed}}</b>passed</div>
        <div><b style="color: var(--failed)">{{.Failed}}</b>failed</div>
        <div><b style="color: var(--skipped)">{{.Skipped}}</b>skipped</div>
        <div><b>{{printf "%.0f" .PassRate}}%</b>pass rate</div>
        <div><b>{{.Duration}}</b>duration</div>
    </div>
    {{range .Scenarios}}
    <details {{if ne .Status "passed"}}open{{else}}data-passed{{end}}>
        <summary>
            <span class="dot {{.Status}}"></span>
            <span class="name">{{.Name}}</span>
            <span class="meta">{{if .Device}}{{.Device}} · {{end}}{{len .Steps}} steps · {{.Duration}}</span>
            <span class="bar"><div style="width: {{printf "%.1f" .DurationPct}}%"></div></span>
        </summary>
        {{if .Error}}<div class="error" style="padding: 0 14px 10px">{{.Error}}</div>{{end}}
        <table>
            {{range .Steps}}
            <tr>
                <td class="status {{.Status}}">{{.Status}}</td>
                <td>
                    {{.Description}}
                    {{if .Message}}<div class="meta">{{.Message}}</div>{{end}}
                    {{if .Error}}<div class="error">{{if .Category}}[{{.Category}}] {{end}}{{.Error}}</div>{{end}}
                    {{range .Links}}<div class="meta"><a href="{{.Path}}">{{.Name}}</a></div>{{end}}
                </td>
                <td class="meta">{{.Duration}}</td>
            </tr>
            {{end}}
        </table>
    </details>
    {{end}}
</main>
</body>
</html>
`
