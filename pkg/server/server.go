// Package server launches and supervises a local Appium server process.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Masterminds/semver"
	"github.com/cenkalti/backoff"
	"github.com/devicelab-dev/gesture-runner/pkg/config"
	"github.com/devicelab-dev/gesture-runner/pkg/core"
	"github.com/devicelab-dev/gesture-runner/pkg/logger"
)

const (
	probeInterval = 500 * time.Millisecond
	probeTimeout  = 2 * time.Second
)

// stopTimeout is how long Stop waits after SIGTERM before killing.
var stopTimeout = 10 * time.Second

// Status is the readiness document served at <endpoint>/status.
type Status struct {
	Ready   bool
	Message string
	Version string
}

// Service is a running server process owned by one session.
type Service struct {
	cmd      *exec.Cmd
	endpoint string
	version  string
	logFile  *os.File

	done    chan struct{}
	waitErr error

	stopOnce sync.Once
	stopErr  error
}

// Start launches the server described by l, serving under basePath, and
// blocks until it answers its status probe or l.StartupTimeout elapses.
// Failures are ErrServerStartup.
func Start(ctx context.Context, l config.Launch, basePath string) (*Service, error) {
	args := append([]string{l.AppiumJS,
		"--address", l.Address,
		"--port", strconv.Itoa(l.Port),
		"--base-path", "/" + strings.Trim(basePath, "/"),
	}, l.Args...)

	s := &Service{
		cmd:      exec.Command(l.Node, args...), //#nosec G204 -- binary and args come from user config
		endpoint: config.Session{ServerURL: l.LocalURL(), BasePath: basePath}.Endpoint(),
		done:     make(chan struct{}),
	}

	out := logger.GetWriter()
	if l.LogPath != "" {
		f, err := os.Create(l.LogPath)
		if err != nil {
			return nil, core.ErrServerStartup.WithMessage("failed to create server log file").WithCause(err)
		}
		s.logFile = f
		out = f
	}
	s.cmd.Stdout = out
	s.cmd.Stderr = out

	logger.Info("Starting Appium server: %s %s", l.Node, strings.Join(args, " "))
	if err := s.cmd.Start(); err != nil {
		s.closeLog()
		return nil, core.ErrServerStartup.WithMessage(fmt.Sprintf("failed to start %s", l.Node)).WithCause(err)
	}

	go func() {
		s.waitErr = s.cmd.Wait()
		close(s.done)
	}()

	status, err := s.waitForReady(ctx, l.StartupTimeout)
	if err != nil {
		_ = s.Stop()
		return nil, core.ErrServerStartup.WithDetails(map[string]interface{}{
			"endpoint": s.endpoint,
		}).WithCause(err)
	}
	s.version = status.Version

	if err := CheckVersion(status.Version, l.Version); err != nil {
		_ = s.Stop()
		return nil, err
	}

	logger.Info("Appium server ready at %s (version %s)", s.endpoint, displayVersion(s.version))
	return s, nil
}

// Endpoint returns the URL sessions should connect to, base path included.
func (s *Service) Endpoint() string { return s.endpoint }

// Version returns the version the server reported when it became ready.
func (s *Service) Version() string { return s.version }

// Stop sends SIGTERM, kills the process if it is still running after
// stopTimeout, and waits for it to exit. Safe to call twice.
func (s *Service) Stop() error {
	s.stopOnce.Do(func() {
		defer s.closeLog()

		select {
		case <-s.done:
			return
		default:
		}

		if err := s.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			logger.Debug("SIGTERM failed, killing server: %v", err)
		} else {
			select {
			case <-s.done:
				logger.Info("Appium server stopped")
				return
			case <-time.After(stopTimeout):
				logger.Warn("Appium server ignored SIGTERM for %v, killing it", stopTimeout)
			}
		}

		if err := s.cmd.Process.Kill(); err != nil {
			s.stopErr = fmt.Errorf("failed to kill server process: %w", err)
			return
		}

		select {
		case <-s.done:
			logger.Info("Appium server killed")
		case <-time.After(stopTimeout):
			s.stopErr = fmt.Errorf("server process did not exit within %v", stopTimeout)
		}
	})
	return s.stopErr
}

func (s *Service) closeLog() {
	if s.logFile != nil {
		s.logFile.Close()
		s.logFile = nil
	}
}

func (s *Service) waitForReady(ctx context.Context, timeout time.Duration) (Status, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var status Status
	probe := func() error {
		select {
		case <-s.done:
			return backoff.Permanent(fmt.Errorf("server exited before becoming ready: %v", s.waitErr))
		default:
		}

		st, err := Probe(ctx, s.endpoint)
		if err != nil {
			return err
		}
		if !st.Ready {
			return fmt.Errorf("server not ready: %s", st.Message)
		}
		status = st
		return nil
	}

	notify := func(err error, next time.Duration) {
		logger.Debug("Waiting for Appium server: %v (retry in %v)", err, next)
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(probeInterval), ctx)
	if err := backoff.RetryNotify(probe, b, notify); err != nil {
		if ctx.Err() != nil {
			return Status{}, fmt.Errorf("not ready after %v: %w", timeout, err)
		}
		return Status{}, err
	}
	return status, nil
}

// Probe fetches <endpoint>/status once.
func Probe(ctx context.Context, endpoint string) (Status, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(endpoint, "/")+"/status", nil)
	if err != nil {
		return Status{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Status{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Status{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Status{}, fmt.Errorf("status probe returned HTTP %d", resp.StatusCode)
	}

	var doc struct {
		Value struct {
			Ready   bool   `json:"ready"`
			Message string `json:"message"`
			Build   struct {
				Version string `json:"version"`
			} `json:"build"`
		} `json:"value"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return Status{}, fmt.Errorf("failed to parse status response: %w", err)
	}

	return Status{
		Ready:   doc.Value.Ready,
		Message: doc.Value.Message,
		Version: doc.Value.Build.Version,
	}, nil
}

// CheckVersion verifies a reported server version against a semver
// constraint such as ">= 2.0.0". An empty constraint accepts anything; an
// unreported version is accepted with a warning.
func CheckVersion(version, constraint string) error {
	if constraint == "" {
		return nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("invalid server version constraint %q", constraint)).WithCause(err)
	}
	if version == "" {
		logger.Warn("Appium server did not report a version; skipping %q check", constraint)
		return nil
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return core.ErrServerStartup.WithMessage(fmt.Sprintf("unparseable server version %q", version)).WithCause(err)
	}
	if !c.Check(v) {
		return core.ErrServerStartup.WithMessage(fmt.Sprintf("server version %s does not satisfy %q", version, constraint))
	}
	return nil
}

func displayVersion(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
