package cli

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/devicelab-dev/gesture-runner/pkg/core"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// slowThreshold marks steps that took suspiciously long.
const slowThreshold = 5 * time.Second

var colorsEnabled = true

func init() {
	// Respect NO_COLOR environment variable
	if os.Getenv("NO_COLOR") != "" {
		colorsEnabled = false
		return
	}
	// Check if stdout is a terminal
	if fileInfo, err := os.Stdout.Stat(); err == nil {
		if (fileInfo.Mode() & os.ModeCharDevice) == 0 {
			colorsEnabled = false
		}
	}
}

// color returns the color code if colors are enabled, empty string otherwise
func color(c string) string {
	if colorsEnabled {
		return c
	}
	return ""
}

// progressPrinter prints live progress. In parallel mode output from
// different devices interleaves, so step lines are prefixed with the
// scenario name.
type progressPrinter struct {
	mu       sync.Mutex
	parallel bool
	current  string
}

func newProgressPrinter(parallel bool) *progressPrinter {
	return &progressPrinter{parallel: parallel}
}

func (p *progressPrinter) onScenarioStart(idx, total int, name, file string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = name
	fmt.Printf("\n  %s[%d/%d]%s %s%s%s (%s)\n",
		color(colorCyan), idx+1, total, color(colorReset),
		color(colorBold), name, color(colorReset), file)
	if !p.parallel {
		fmt.Println(strings.Repeat("─", 60))
	}
}

func (p *progressPrinter) onStepComplete(idx int, desc string, status core.StepStatus, d time.Duration, errMsg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.parallel {
		desc = fmt.Sprintf("[%s] %s", p.current, desc)
	}
	durStr := formatDuration(d)

	switch status {
	case core.StatusPassed:
		symbol, symbolColor, durColor := "✓", color(colorGreen), ""
		if d >= slowThreshold {
			symbol, symbolColor, durColor = "⚠", color(colorYellow), color(colorYellow)
		}
		fmt.Printf("    %s%s%s %s %s(%s)%s\n",
			symbolColor, symbol, color(colorReset), desc, durColor, durStr, color(colorReset))
	case core.StatusSkipped:
		fmt.Printf("    %s-%s %s (%s)\n", color(colorCyan), color(colorReset), desc, durStr)
		if errMsg != "" {
			fmt.Printf("      %s╰─%s %s\n", color(colorGray), color(colorReset), errMsg)
		}
	default:
		fmt.Printf("    %s✗%s %s (%s)\n", color(colorRed), color(colorReset), desc, durStr)
		if errMsg != "" {
			fmt.Printf("      %s╰─%s %s\n", color(colorGray), color(colorReset), errMsg)
		}
	}
}

func (p *progressPrinter) onScenarioEnd(name string, status core.StepStatus, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if status.IsSuccess() {
		fmt.Printf("%s✓ %s%s %s%s%s\n",
			color(colorGreen), color(colorReset), name, color(colorGray), formatDuration(d), color(colorReset))
	} else {
		fmt.Printf("%s✗ %s%s %s(%s) %s%s\n",
			color(colorRed), color(colorReset), name, color(colorGray), status, formatDuration(d), color(colorReset))
	}
}

func printSummary(suite *core.SuiteResult) {
	totalSteps, passedSteps, failedSteps, skippedSteps := 0, 0, 0, 0
	for _, sc := range suite.Scenarios {
		totalSteps += sc.TotalSteps
		passedSteps += sc.PassedSteps
		failedSteps += sc.FailedSteps
		skippedSteps += sc.SkippedSteps
	}

	fmt.Println()
	if passedSteps > 0 {
		fmt.Printf("  %s%d steps passing%s (%s)\n", color(colorGreen), passedSteps, color(colorReset), formatDuration(suite.Duration))
	}
	if failedSteps > 0 {
		fmt.Printf("  %s%d steps failing%s\n", color(colorRed), failedSteps, color(colorReset))
	}
	if skippedSteps > 0 {
		fmt.Printf("  %s%d steps skipped%s\n", color(colorCyan), skippedSteps, color(colorReset))
	}
	fmt.Println()

	tableWidth := 104
	fmt.Println(strings.Repeat("═", tableWidth))
	fmt.Printf("  %-32s %-16s %7s %7s %6s %6s %6s %10s\n", "Scenario", "Device", "Status", "Steps", "Pass", "Fail", "Skip", "Duration")
	fmt.Println(strings.Repeat("─", tableWidth))

	for _, sc := range suite.Scenarios {
		status, statusColor := "✓ PASS", color(colorGreen)
		switch sc.Status {
		case core.StatusFailed:
			status, statusColor = "✗ FAIL", color(colorRed)
		case core.StatusErrored:
			status, statusColor = "✗ ERR", color(colorRed)
		case core.StatusSkipped:
			status, statusColor = "- SKIP", color(colorCyan)
		}

		device := sc.DeviceID
		if device == "" {
			device = "-"
		}

		fmt.Printf("  %-32s %-16s %s%7s%s %7d %6d %6d %6d %10s\n",
			truncate(sc.Name, 32), truncate(device, 16), statusColor, status, color(colorReset),
			sc.TotalSteps, sc.PassedSteps, sc.FailedSteps, sc.SkippedSteps,
			formatDuration(sc.Duration))
		if sc.Error != "" {
			fmt.Printf("    %s╰─%s %s\n", color(colorGray), color(colorReset), sc.Error)
		}
	}

	fmt.Println(strings.Repeat("─", tableWidth))
	statusStr := fmt.Sprintf("%d/%d", suite.PassedScenarios, suite.TotalScenarios)
	statusColor := color(colorGreen)
	if suite.FailedScenarios > 0 {
		statusColor = color(colorRed)
	}
	fmt.Printf("  %s%-32s%s %-16s %s%7s%s %7d %6d %6d %6d %10s\n",
		color(colorBold), "TOTAL", color(colorReset), "",
		statusColor, statusStr, color(colorReset),
		totalSteps, passedSteps, failedSteps, skippedSteps,
		formatDuration(suite.Duration))
	fmt.Println(strings.Repeat("═", tableWidth))
	fmt.Println()
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

// formatDuration formats a duration to a human-readable string.
// Shows milliseconds for values < 1s, seconds otherwise.
func formatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	mins := ms / 60000
	secs := (ms % 60000) / 1000
	return fmt.Sprintf("%dm %ds", mins, secs)
}
