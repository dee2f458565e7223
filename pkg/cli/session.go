package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/devicelab-dev/gesture-runner/pkg/config"
	"github.com/devicelab-dev/gesture-runner/pkg/core"
	"github.com/devicelab-dev/gesture-runner/pkg/driver/appium"
	"github.com/devicelab-dev/gesture-runner/pkg/driver/mock"
	"github.com/devicelab-dev/gesture-runner/pkg/executor"
	"github.com/devicelab-dev/gesture-runner/pkg/logger"
	"github.com/urfave/cli/v2"
)

// Driver names accepted by --driver.
const (
	driverAppium = "appium"
	driverMock   = "mock"
)

// SessionOptions are the global flags that shape a session.
type SessionOptions struct {
	Workspace  *config.Config
	Driver     string
	Devices    []string
	MockSource string
}

// loadSessionOptions loads the workspace config and applies global flag
// overrides. Flags win over the config file.
func loadSessionOptions(c *cli.Context) (*SessionOptions, error) {
	var ws *config.Config
	var err error
	if path := c.String("config"); path != "" {
		ws, err = config.Load(path)
	} else {
		ws, err = config.LoadFromDir(".")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if v := c.String("server-url"); v != "" {
		ws.Server.URL = v
	}
	if v := c.String("base-path"); v != "" {
		ws.Server.BasePath = v
	}
	if v := c.String("platform"); v != "" {
		ws.Capabilities.PlatformName = v
	}
	if v := c.String("automation-name"); v != "" {
		ws.Capabilities.AutomationName = v
	}
	if v := c.String("app-file"); v != "" {
		ws.Capabilities.App = v
	}
	if path := c.String("caps"); path != "" {
		caps, err := loadCapabilities(path)
		if err != nil {
			return nil, err
		}
		if ws.Capabilities.Extra == nil {
			ws.Capabilities.Extra = make(map[string]interface{}, len(caps))
		}
		for k, v := range caps {
			ws.Capabilities.Extra[k] = v
		}
	}
	if c.Bool("launch") && ws.Server.Launch == nil {
		ws.Server.Launch = &config.Launch{}
	}
	if v := c.String("appium-js"); v != "" && ws.Server.Launch != nil {
		ws.Server.Launch.AppiumJS = v
	}

	ws.ApplyDefaults()
	if err := ws.Validate(); err != nil {
		return nil, err
	}

	driver := strings.ToLower(c.String("driver"))
	if driver != driverAppium && driver != driverMock {
		return nil, fmt.Errorf("unknown driver %q (use appium or mock)", driver)
	}

	devices := parseDevices(c.String("device"))
	if devices == nil {
		devices = ws.Devices
	}

	return &SessionOptions{
		Workspace:  ws,
		Driver:     driver,
		Devices:    devices,
		MockSource: c.String("mock-source"),
	}, nil
}

// Factory returns the session factory for the idx-th device. Launched
// servers get consecutive ports so parallel workers do not collide.
func (o *SessionOptions) Factory(deviceID string, idx int) (executor.SessionFactory, error) {
	if o.Driver == driverMock {
		return o.mockFactory(deviceID)
	}

	sess := o.Workspace.Session(deviceID)
	if sess.Launch != nil && idx > 0 {
		sess.Launch.Port += idx
		sess.ServerURL = sess.Launch.LocalURL()
	}
	return func(ctx context.Context) (core.Session, error) {
		s, err := appium.Start(ctx, sess)
		if err != nil {
			return nil, err
		}
		return s, nil
	}, nil
}

func (o *SessionOptions) mockFactory(deviceID string) (executor.SessionFactory, error) {
	var source string
	if o.MockSource != "" {
		data, err := os.ReadFile(o.MockSource)
		if err != nil {
			return nil, fmt.Errorf("failed to read mock source: %w", err)
		}
		source = string(data)
	}

	return func(ctx context.Context) (core.Session, error) {
		s := mock.New(mock.Config{
			SessionID: "mock-" + core.NewID(),
			Lenient:   true,
		})
		if source != "" {
			s.SetSources(source)
		}
		logger.Info("mock session %s for device %q", s.ID(), deviceID)
		return s, nil
	}, nil
}

// parseDevices parses the --device flag value into a slice of device ids.
// Returns nil if no devices are specified.
func parseDevices(deviceFlag string) []string {
	if deviceFlag == "" {
		return nil
	}
	var devices []string
	for _, d := range strings.Split(deviceFlag, ",") {
		if d = strings.TrimSpace(d); d != "" {
			devices = append(devices, d)
		}
	}
	return devices
}

// loadCapabilities loads extra capabilities from a JSON file.
func loadCapabilities(capsFile string) (map[string]interface{}, error) {
	data, err := os.ReadFile(capsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read caps file: %w", err)
	}

	var caps map[string]interface{}
	if err := json.Unmarshal(data, &caps); err != nil {
		return nil, fmt.Errorf("failed to parse caps JSON: %w", err)
	}
	return caps, nil
}
