package infra

import (
	"context"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focus_mode/internal/domain"
)

// CommandRunner abstracts command execution for testing.
type CommandRunner interface {
	Run(name string, args ...string) error
	Output(name string, args ...string) ([]byte, error)
}

// RealCommandRunner executes real system commands.
type RealCommandRunner struct{}

// Run executes a command and waits for it to complete.
func (r *RealCommandRunner) Run(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// Output executes a command and returns its stdout.
func (r *RealCommandRunner) Output(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

// X11Inspector implements domain.WindowInspector for X11 desktops.
// Two-tier resolution: a precise xdotool/xprop WM_CLASS query first, then a
// highest-CPU process heuristic via the process manager. Any failure in both
// tiers yields UnknownApp; this inspector never returns an error.
type X11Inspector struct {
	cmdRunner      CommandRunner
	processManager domain.ProcessManager
	logger         *zap.Logger
}

// NewX11Inspector creates a window inspector.
func NewX11Inspector(pm domain.ProcessManager, logger *zap.Logger) *X11Inspector {
	return &X11Inspector{
		cmdRunner:      &RealCommandRunner{},
		processManager: pm,
		logger:         logger,
	}
}

// NewX11InspectorWithRunner creates an inspector with an injectable command
// runner (for testing).
func NewX11InspectorWithRunner(runner CommandRunner, pm domain.ProcessManager, logger *zap.Logger) *X11Inspector {
	return &X11Inspector{
		cmdRunner:      runner,
		processManager: pm,
		logger:         logger,
	}
}

// GetActiveApp returns the lowercased foreground app identifier, or
// UnknownApp when neither tier can resolve it.
func (x *X11Inspector) GetActiveApp(ctx context.Context) string {
	if name, ok := x.queryWindowSystem(); ok {
		return name
	}

	name, err := x.processManager.TopByCPU()
	if err != nil {
		x.logger.Debug("process fallback failed", zap.Error(err))
		return domain.UnknownApp
	}
	return name
}

// queryWindowSystem resolves the active window's WM_CLASS via xdotool/xprop.
func (x *X11Inspector) queryWindowSystem() (string, bool) {
	windowID, err := x.cmdRunner.Output("xdotool", "getactivewindow")
	if err != nil {
		x.logger.Debug("xdotool query failed", zap.Error(err))
		return "", false
	}

	wmClass, err := x.cmdRunner.Output("xprop", "-id", strings.TrimSpace(string(windowID)), "WM_CLASS")
	if err != nil {
		x.logger.Debug("xprop query failed", zap.Error(err))
		return "", false
	}

	name := parseWMClass(string(wmClass))
	if name == "" {
		return "", false
	}
	return name, true
}

// parseWMClass extracts the app name from an xprop WM_CLASS reply, e.g.
// `WM_CLASS(STRING) = "Navigator", "firefox"` -> "firefox".
// The second string is the class (app identity); the first is the instance.
// xprop reports "WM_CLASS:  not found." with exit 0 for bare windows, so a
// reply without "=" counts as a miss.
func parseWMClass(raw string) string {
	eq := strings.Index(raw, "=")
	if eq < 0 {
		return ""
	}
	parts := strings.Split(raw[eq+1:], ",")
	last := parts[len(parts)-1]
	last = strings.ReplaceAll(last, `"`, "")
	return strings.ToLower(strings.TrimSpace(last))
}

// Ensure X11Inspector implements domain.WindowInspector.
var _ domain.WindowInspector = (*X11Inspector)(nil)
