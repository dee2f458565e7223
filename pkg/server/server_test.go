package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/devicelab-dev/gesture-runner/pkg/config"
	"github.com/devicelab-dev/gesture-runner/pkg/core"
)

func writeJSON(w http.ResponseWriter, data interface{}) {
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func statusServer(t *testing.T, readyAfter int32, version string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wd/hub/status" || r.Method != http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		n := atomic.AddInt32(&calls, 1)
		writeJSON(w, map[string]interface{}{
			"value": map[string]interface{}{
				"ready":   n > readyAfter,
				"message": "starting",
				"build":   map[string]interface{}{"version": version},
			},
		})
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func TestProbe(t *testing.T) {
	server, _ := statusServer(t, 0, "2.11.3")

	st, err := Probe(context.Background(), server.URL+"/wd/hub")
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if !st.Ready {
		t.Error("expected ready status")
	}
	if st.Version != "2.11.3" {
		t.Errorf("expected version 2.11.3, got %q", st.Version)
	}
}

func TestProbeHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	if _, err := Probe(context.Background(), server.URL); err == nil {
		t.Error("expected error for HTTP 503")
	}
}

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		version    string
		constraint string
		wantErr    bool
	}{
		{"2.11.3", ">= 2.0.0", false},
		{"1.22.3", ">= 2.0.0", true},
		{"", ">= 2.0.0", false},
		{"2.0.0", "", false},
		{"not-a-version", ">= 2.0.0", true},
		{"2.0.0", "!!bad", true},
	}

	for _, tt := range tests {
		t.Run(tt.version+" "+tt.constraint, func(t *testing.T) {
			err := CheckVersion(tt.version, tt.constraint)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckVersion(%q, %q) error = %v, wantErr %v", tt.version, tt.constraint, err, tt.wantErr)
			}
		})
	}
}

func TestCheckVersionErrorKinds(t *testing.T) {
	if err := CheckVersion("1.0.0", ">= 2.0.0"); !errors.Is(err, core.ErrServerStartup) {
		t.Errorf("expected ErrServerStartup, got %v", err)
	}
	if err := CheckVersion("2.0.0", "!!bad"); !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

// fakeLaunch returns launch settings that run a shell script in place of
// node and point the status probe at server.
func fakeLaunch(t *testing.T, server *httptest.Server, script string) config.Launch {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}

	path := filepath.Join(t.TempDir(), "appium.sh")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	host, portStr, err := net.SplitHostPort(server.Listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(portStr)

	return config.Launch{
		Node:           "/bin/sh",
		AppiumJS:       path,
		Address:        host,
		Port:           port,
		StartupTimeout: 5 * time.Second,
		Version:        ">= 2.0.0",
		LogPath:        filepath.Join(t.TempDir(), "appium.log"),
	}
}

func TestStartAndStop(t *testing.T) {
	server, calls := statusServer(t, 2, "2.5.1")
	l := fakeLaunch(t, server, "#!/bin/sh\necho \"$@\"\nexec sleep 30\n")

	svc, err := Start(context.Background(), l, "wd/hub")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if atomic.LoadInt32(calls) < 3 {
		t.Errorf("expected readiness polling, got %d probes", atomic.LoadInt32(calls))
	}
	if svc.Version() != "2.5.1" {
		t.Errorf("expected version 2.5.1, got %q", svc.Version())
	}
	if svc.Endpoint() != l.LocalURL()+"/wd/hub" {
		t.Errorf("unexpected endpoint %q", svc.Endpoint())
	}

	if err := svc.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
	if err := svc.Stop(); err != nil {
		t.Errorf("second Stop should be a no-op, got %v", err)
	}

	select {
	case <-svc.done:
	default:
		t.Error("process still running after Stop")
	}

	log, _ := os.ReadFile(l.LogPath)
	if want := "--base-path /wd/hub"; !strings.Contains(string(log), want) {
		t.Errorf("expected server args to contain %q, got %q", want, log)
	}
}

func TestStopSendsTermFirst(t *testing.T) {
	server, _ := statusServer(t, 0, "2.5.1")
	l := fakeLaunch(t, server, "#!/bin/sh\ntrap 'echo got-term; exit 0' TERM\nwhile true; do sleep 0.1; done\n")

	svc, err := Start(context.Background(), l, "/wd/hub")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	start := time.Now()
	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if time.Since(start) >= stopTimeout {
		t.Error("a process that honours SIGTERM should not wait for the kill")
	}

	log, _ := os.ReadFile(l.LogPath)
	if !strings.Contains(string(log), "got-term") {
		t.Errorf("expected the server to receive SIGTERM, log %q", log)
	}
}

func TestStopKillsAfterTimeout(t *testing.T) {
	orig := stopTimeout
	stopTimeout = 200 * time.Millisecond
	t.Cleanup(func() { stopTimeout = orig })

	server, _ := statusServer(t, 0, "2.5.1")
	l := fakeLaunch(t, server, "#!/bin/sh\ntrap '' TERM\nexec sleep 30\n")

	svc, err := Start(context.Background(), l, "/wd/hub")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	start := time.Now()
	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < stopTimeout {
		t.Errorf("expected Stop to wait %v before killing, took %v", stopTimeout, elapsed)
	}
	select {
	case <-svc.done:
	default:
		t.Error("process still running after Stop")
	}
}

func TestStartProcessExits(t *testing.T) {
	server, _ := statusServer(t, 1000, "2.5.1")
	l := fakeLaunch(t, server, "#!/bin/sh\nexit 3\n")

	start := time.Now()
	_, err := Start(context.Background(), l, "/wd/hub")
	if !errors.Is(err, core.ErrServerStartup) {
		t.Fatalf("expected ErrServerStartup, got %v", err)
	}
	if time.Since(start) > 4*time.Second {
		t.Error("expected early exit to fail before the startup timeout")
	}
}

func TestStartVersionMismatch(t *testing.T) {
	server, _ := statusServer(t, 0, "1.22.0")
	l := fakeLaunch(t, server, "#!/bin/sh\nexec sleep 30\n")

	_, err := Start(context.Background(), l, "/wd/hub")
	if !errors.Is(err, core.ErrServerStartup) {
		t.Fatalf("expected ErrServerStartup, got %v", err)
	}
}

func TestStartMissingBinary(t *testing.T) {
	l := config.Launch{
		Node:           filepath.Join(t.TempDir(), "no-such-node"),
		AppiumJS:       "main.js",
		Address:        "127.0.0.1",
		Port:           1,
		StartupTimeout: time.Second,
	}
	_, err := Start(context.Background(), l, "/wd/hub")
	if !errors.Is(err, core.ErrServerStartup) {
		t.Fatalf("expected ErrServerStartup, got %v", err)
	}
}
