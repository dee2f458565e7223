// Package cli provides the command-line interface for gesture-runner.
package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Usage:   "Path to workspace config.yaml (default: ./config.yaml if present)",
		EnvVars: []string{"GESTURE_RUNNER_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "server-url",
		Aliases: []string{"appium-url"},
		Usage:   "Automation server URL",
		EnvVars: []string{"APPIUM_URL"},
	},
	&cli.StringFlag{
		Name:  "base-path",
		Usage: "Server base path (default: /wd/hub)",
	},
	&cli.StringFlag{
		Name:    "device",
		Aliases: []string{"udid"},
		Usage:   "Device ID to run on (comma-separated for parallel runs)",
		EnvVars: []string{"GESTURE_RUNNER_DEVICE"},
	},
	&cli.StringFlag{
		Name:    "platform",
		Aliases: []string{"p"},
		Usage:   "platformName capability (default: Android)",
	},
	&cli.StringFlag{
		Name:  "automation-name",
		Usage: "appium:automationName capability (default: UiAutomator2)",
	},
	&cli.StringFlag{
		Name:    "app-file",
		Usage:   "App binary (.apk, .ipa) sent as appium:app",
		EnvVars: []string{"GESTURE_RUNNER_APP_FILE"},
	},
	&cli.StringFlag{
		Name:  "caps",
		Usage: "JSON file with extra capabilities",
	},
	&cli.BoolFlag{
		Name:  "launch",
		Usage: "Launch a local Appium server for each session",
	},
	&cli.StringFlag{
		Name:    "appium-js",
		Usage:   "Path to appium's main.js for --launch",
		EnvVars: []string{"APPIUM_JS"},
	},
	&cli.StringFlag{
		Name:    "driver",
		Aliases: []string{"d"},
		Usage:   "Session driver (appium, mock)",
		Value:   "appium",
		EnvVars: []string{"GESTURE_RUNNER_DRIVER"},
	},
	&cli.StringFlag{
		Name:  "mock-source",
		Usage: "Page source XML the mock driver serves (e.g. a captured hierarchy)",
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable verbose logging",
		EnvVars: []string{"GESTURE_RUNNER_VERBOSE"},
	},
	&cli.StringFlag{
		Name:  "log-file",
		Usage: "Log file (default: <output>/gesture-runner.log)",
	},
	&cli.BoolFlag{
		Name:  "no-ansi",
		Usage: "Disable ANSI colors",
	},
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "gesture-runner",
		Usage:   "Run touch-gesture UI scenarios through an Appium server",
		Version: Version,
		Description: `gesture-runner drives a mobile app through a remote Appium server using
locator queries and gesture commands (tap, drag, long press, scroll, rotate).

Examples:
  gesture-runner run
  gesture-runner run drag-drop scenarios/
  gesture-runner --launch --appium-js ~/appium/build/lib/main.js run long-click
  gesture-runner --device emulator-5554,emulator-5556 run scenarios/
  gesture-runner list --steps
  gesture-runner server status`,
		Flags: GlobalFlags,
		Before: func(c *cli.Context) error {
			if c.Bool("no-ansi") {
				colorsEnabled = false
			}
			return nil
		},
		Commands: []*cli.Command{
			runCommand,
			listCommand,
			serverCommand,
			hierarchyCommand,
		},
	}
}

// Execute runs the CLI.
func Execute() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
