package infra

import (
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focus_mode/internal/domain"
)

// GNOME shell commands driven by the actuator.
const (
	dockSchema  = "org.gnome.shell.extensions.dash-to-dock"
	defaultSink = "@DEFAULT_SINK@"
)

// GnomeActuator implements domain.PolicyActuator for GNOME desktops.
// ModeDistracted hides the dock and mutes the default sink; ModeProductive
// reverses both. Each sub-action is independently best-effort: a missing
// dash-to-dock extension must not stop the audio toggle, and no failure
// propagates past this layer.
type GnomeActuator struct {
	cmdRunner CommandRunner
	logger    *zap.Logger
}

// NewGnomeActuator creates a policy actuator.
func NewGnomeActuator(logger *zap.Logger) *GnomeActuator {
	return &GnomeActuator{
		cmdRunner: &RealCommandRunner{},
		logger:    logger,
	}
}

// NewGnomeActuatorWithRunner creates an actuator with an injectable command
// runner (for testing).
func NewGnomeActuatorWithRunner(runner CommandRunner, logger *zap.Logger) *GnomeActuator {
	return &GnomeActuator{
		cmdRunner: runner,
		logger:    logger,
	}
}

// Apply adjusts dock visibility and audio mute for the given mode.
func (a *GnomeActuator) Apply(mode domain.Mode) {
	switch mode {
	case domain.ModeDistracted:
		a.setDockAutohide(true)
		a.setMuted(true)
		a.logger.Info("focus policies enforced", zap.String("mode", string(mode)))
	case domain.ModeProductive:
		a.setDockAutohide(false)
		a.setMuted(false)
		a.logger.Info("focus policies relaxed", zap.String("mode", string(mode)))
	default:
		a.logger.Warn("ignoring unknown mode", zap.String("mode", string(mode)))
	}
}

func (a *GnomeActuator) setDockAutohide(hide bool) {
	value := "false"
	if hide {
		value = "true"
	}
	if err := a.cmdRunner.Run("gsettings", "set", dockSchema, "autohide", value); err != nil {
		a.logger.Warn("dock toggle failed", zap.Bool("autohide", hide), zap.Error(err))
	}
}

func (a *GnomeActuator) setMuted(muted bool) {
	value := "0"
	if muted {
		value = "1"
	}
	if err := a.cmdRunner.Run("pactl", "set-sink-mute", defaultSink, value); err != nil {
		a.logger.Warn("audio mute toggle failed", zap.Bool("muted", muted), zap.Error(err))
	}
}

// Ensure GnomeActuator implements domain.PolicyActuator.
var _ domain.PolicyActuator = (*GnomeActuator)(nil)
