// Package config handles configuration for gesture-runner.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/devicelab-dev/gesture-runner/pkg/core"
	"gopkg.in/yaml.v3"
)

// Defaults
const (
	DefaultServerURL         = "http://127.0.0.1:4723"
	DefaultBasePath          = "/wd/hub"
	DefaultConnectTimeout    = 2 * time.Minute
	DefaultStartupTimeout    = 60 * time.Second
	DefaultLaunchAddress     = "0.0.0.0"
	DefaultLaunchPort        = 4723
	DefaultServerVersion     = ">= 2.0.0"
	DefaultScrollIterations  = 50
	DefaultScrollTimeout     = 60 * time.Second
	DefaultSettleTimeout     = 5 * time.Second
	DefaultSettleInterval    = 250 * time.Millisecond
	DefaultPlatformName      = "Android"
	DefaultAutomationName    = "UiAutomator2"
	DefaultNewCommandTimeout = 300
)

// Config represents the workspace configuration (config.yaml).
type Config struct {
	Server       Server              `yaml:"server"`
	Capabilities Capabilities        `yaml:"capabilities"`
	Scroll       Scroll              `yaml:"scroll"`
	Settle       Settle              `yaml:"settle"`
	Artifacts    core.ArtifactConfig `yaml:"artifacts"`

	// Scenario selection: built-in names or YAML file paths/globs
	Scenarios []string `yaml:"scenarios"`

	// Devices for parallel runs; one session per device
	Devices []string `yaml:"devices"`
}

// Server describes where the automation server lives.
type Server struct {
	URL            string        `yaml:"url"`            // e.g. http://127.0.0.1:4723
	BasePath       string        `yaml:"basePath"`       // e.g. /wd/hub
	ConnectTimeout time.Duration `yaml:"connectTimeout"` // Session handshake timeout
	Launch         *Launch       `yaml:"launch"`         // Set to launch a local server per session
}

// Launch configures a locally managed Appium server process.
type Launch struct {
	Node           string        `yaml:"node"`           // Node binary (default: node)
	AppiumJS       string        `yaml:"appiumJS"`       // Path to appium build/lib/main.js
	Address        string        `yaml:"address"`        // Bind address (default: 0.0.0.0)
	Port           int           `yaml:"port"`           // Listen port (default: 4723)
	Args           []string      `yaml:"args"`           // Extra server arguments
	StartupTimeout time.Duration `yaml:"startupTimeout"` // Readiness wait
	Version        string        `yaml:"version"`        // Semver constraint on the server build
	LogPath        string        `yaml:"logPath"`        // Server output file (default: runner log)
}

// Capabilities are the values negotiated at session start.
// Extra carries pass-through capabilities the runner does not interpret.
type Capabilities struct {
	PlatformName      string                 `yaml:"platformName"`
	AutomationName    string                 `yaml:"automationName"`
	DeviceName        string                 `yaml:"deviceName"`
	UDID              string                 `yaml:"udid"`
	App               string                 `yaml:"app"`
	NewCommandTimeout int                    `yaml:"newCommandTimeout"` // seconds
	Extra             map[string]interface{} `yaml:"extra"`
}

// Scroll bounds the scroll-until-exhausted loop.
type Scroll struct {
	MaxIterations int           `yaml:"maxIterations"`
	Timeout       time.Duration `yaml:"timeout"`
}

// Settle controls polling waits that replace fixed post-gesture sleeps.
type Settle struct {
	Timeout  time.Duration `yaml:"timeout"`
	Interval time.Duration `yaml:"interval"`
}

// Session is the immutable per-session view of the configuration.
type Session struct {
	ServerURL      string
	BasePath       string
	ConnectTimeout time.Duration
	Capabilities   Capabilities
	Launch         *Launch
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{Artifacts: core.DefaultArtifactConfig()}
	cfg.ApplyDefaults()
	return cfg
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	cfg := &Config{Artifacts: core.DefaultArtifactConfig()}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, core.ErrInvalidConfig.WithMessage(fmt.Sprintf("%s: invalid YAML", path)).WithCause(err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromDir looks for config.yaml or config.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	// Try config.yaml first
	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// Try config.yml
	configPath = filepath.Join(dir, "config.yml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// No config file found, return defaults
	return Default(), nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Server.URL == "" {
		c.Server.URL = DefaultServerURL
	}
	if c.Server.BasePath == "" {
		c.Server.BasePath = DefaultBasePath
	}
	if c.Server.ConnectTimeout <= 0 {
		c.Server.ConnectTimeout = DefaultConnectTimeout
	}
	if l := c.Server.Launch; l != nil {
		if l.Node == "" {
			l.Node = "node"
		}
		if l.AppiumJS == "" {
			l.AppiumJS = GetAppiumJS()
		}
		if l.Address == "" {
			l.Address = DefaultLaunchAddress
		}
		if l.Port == 0 {
			l.Port = DefaultLaunchPort
		}
		if l.StartupTimeout <= 0 {
			l.StartupTimeout = DefaultStartupTimeout
		}
		if l.Version == "" {
			l.Version = DefaultServerVersion
		}
	}

	if c.Capabilities.PlatformName == "" {
		c.Capabilities.PlatformName = DefaultPlatformName
	}
	if c.Capabilities.AutomationName == "" {
		c.Capabilities.AutomationName = DefaultAutomationName
	}
	if c.Capabilities.NewCommandTimeout == 0 {
		c.Capabilities.NewCommandTimeout = DefaultNewCommandTimeout
	}

	if c.Scroll.MaxIterations <= 0 {
		c.Scroll.MaxIterations = DefaultScrollIterations
	}
	if c.Scroll.Timeout <= 0 {
		c.Scroll.Timeout = DefaultScrollTimeout
	}
	if c.Settle.Timeout <= 0 {
		c.Settle.Timeout = DefaultSettleTimeout
	}
	if c.Settle.Interval <= 0 {
		c.Settle.Interval = DefaultSettleInterval
	}
}

// Validate checks the configuration for values the runner cannot use.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("server.url %q is not an absolute URL", c.Server.URL))
	}
	if l := c.Server.Launch; l != nil {
		if l.Port <= 0 || l.Port > 65535 {
			return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("server.launch.port %d out of range", l.Port))
		}
	}
	if c.Capabilities.NewCommandTimeout < 0 {
		return core.ErrInvalidConfig.WithMessage("capabilities.newCommandTimeout must not be negative")
	}
	if c.Settle.Interval > c.Settle.Timeout {
		return core.ErrInvalidConfig.WithMessage("settle.interval must not exceed settle.timeout")
	}
	return nil
}

// Session returns the session configuration for one device.
// An empty deviceID keeps the configured capabilities.
func (c *Config) Session(deviceID string) Session {
	caps := c.Capabilities
	caps.Extra = cloneMap(c.Capabilities.Extra)
	if deviceID != "" {
		caps.DeviceName = deviceID
		caps.UDID = deviceID
	}

	s := Session{
		ServerURL:      c.Server.URL,
		BasePath:       c.Server.BasePath,
		ConnectTimeout: c.Server.ConnectTimeout,
		Capabilities:   caps,
	}
	if c.Server.Launch != nil {
		launch := *c.Server.Launch
		launch.Args = append([]string(nil), c.Server.Launch.Args...)
		s.Launch = &launch
		s.ServerURL = launch.LocalURL()
	}
	return s
}

// Endpoint returns the server URL joined with the base path.
func (s Session) Endpoint() string {
	base := strings.TrimSuffix(s.ServerURL, "/")
	path := strings.Trim(s.BasePath, "/")
	if path == "" {
		return base
	}
	return base + "/" + path
}

// LocalURL returns the URL clients use to reach a launched server.
func (l Launch) LocalURL() string {
	host := l.Address
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, l.Port)
}

// Map renders the capabilities in W3C form with appium: vendor prefixes.
// Typed fields win over Extra entries with the same key.
func (c Capabilities) Map() map[string]interface{} {
	caps := make(map[string]interface{}, len(c.Extra)+6)
	for k, v := range c.Extra {
		caps[k] = v
	}

	caps["platformName"] = c.PlatformName
	if c.AutomationName != "" {
		caps["appium:automationName"] = c.AutomationName
	}
	if c.DeviceName != "" {
		caps["appium:deviceName"] = c.DeviceName
	}
	if c.UDID != "" {
		caps["appium:udid"] = c.UDID
	}
	if c.App != "" {
		app := c.App
		if abs, err := filepath.Abs(app); err == nil && !strings.Contains(app, "://") {
			app = abs
		}
		caps["appium:app"] = app
	}
	if c.NewCommandTimeout > 0 {
		caps["appium:newCommandTimeout"] = c.NewCommandTimeout
	}
	return caps
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
