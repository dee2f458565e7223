package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/devicelab-dev/gesture-runner/pkg/config"
	"github.com/devicelab-dev/gesture-runner/pkg/server"
	"github.com/urfave/cli/v2"
)

var serverCommand = &cli.Command{
	Name:  "server",
	Usage: "Inspect or run the Appium server",
	Subcommands: []*cli.Command{
		{
			Name:   "status",
			Usage:  "Probe the configured server's /status endpoint",
			Action: runServerStatus,
		},
		{
			Name:  "start",
			Usage: "Launch a local Appium server and keep it running until interrupted",
			Description: `Uses server.launch from config.yaml (or defaults) and --appium-js.

Examples:
  gesture-runner --appium-js ~/appium/build/lib/main.js server start`,
			Action: runServerStart,
		},
	},
}

func runServerStatus(c *cli.Context) error {
	opts, err := loadSessionOptions(c)
	if err != nil {
		return err
	}
	endpoint := opts.Workspace.Session("").Endpoint()

	status, err := server.Probe(c.Context, endpoint)
	if err != nil {
		fmt.Printf("%s✗%s %s unreachable: %v\n", color(colorRed), color(colorReset), endpoint, err)
		return cli.Exit("", 1)
	}

	version := status.Version
	if version == "" {
		version = "unknown"
	}
	if !status.Ready {
		fmt.Printf("%s✗%s %s not ready (version %s): %s\n", color(colorRed), color(colorReset), endpoint, version, status.Message)
		return cli.Exit("", 1)
	}
	fmt.Printf("%s✓%s %s ready (version %s)", color(colorGreen), color(colorReset), endpoint, version)
	if status.Message != "" {
		fmt.Printf(": %s", status.Message)
	}
	fmt.Println()
	return nil
}

func runServerStart(c *cli.Context) error {
	opts, err := loadSessionOptions(c)
	if err != nil {
		return err
	}
	ws := opts.Workspace
	if ws.Server.Launch == nil {
		ws.Server.Launch = &config.Launch{AppiumJS: c.String("appium-js")}
		ws.ApplyDefaults()
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := server.Start(ctx, *ws.Server.Launch, ws.Server.BasePath)
	if err != nil {
		return err
	}
	fmt.Printf("%s✓%s Appium %s listening at %s (Ctrl+C to stop)\n",
		color(colorGreen), color(colorReset), svc.Version(), svc.Endpoint())

	<-ctx.Done()
	fmt.Println("Stopping server...")
	return svc.Stop()
}
