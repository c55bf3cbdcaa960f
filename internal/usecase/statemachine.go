// Package usecase contains application business logic.
package usecase

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focus_mode/internal/domain"
	"github.com/eliteGoblin/focusd/focus_mode/internal/policy"
)

// TimestampLayout is the session record timestamp format.
const TimestampLayout = "2006-01-02 15:04:05"

// StateMachine drives one detect-classify-enforce cycle per tick.
// It holds the current enforcement mode and fires side effects only when
// the observed label differs from that mode, so a distracting app staying
// in the foreground does not rewrite the hosts file on every tick.
//
// Side effects within a transition run in fixed order: blocklist mutation,
// then policy actuation, then session logging. A session record is never
// written before its environment changes were at least attempted.
type StateMachine struct {
	inspector      domain.WindowInspector
	classifier     *policy.Classifier
	blocklist      domain.BlocklistManager
	actuator       domain.PolicyActuator
	sessions       domain.SessionLog
	processManager domain.ProcessManager
	terminate      bool
	logger         *zap.Logger

	currentMode domain.Mode
	now         func() time.Time
}

// NewStateMachine creates a focus state machine starting in ModeNone.
func NewStateMachine(
	inspector domain.WindowInspector,
	classifier *policy.Classifier,
	blocklist domain.BlocklistManager,
	actuator domain.PolicyActuator,
	sessions domain.SessionLog,
	logger *zap.Logger,
) *StateMachine {
	return &StateMachine{
		inspector:   inspector,
		classifier:  classifier,
		blocklist:   blocklist,
		actuator:    actuator,
		sessions:    sessions,
		logger:      logger,
		currentMode: domain.ModeNone,
		now:         time.Now,
	}
}

// WithTermination enables terminating processes that match blacklist
// entries while a distracting app is in the foreground.
func (sm *StateMachine) WithTermination(pm domain.ProcessManager) *StateMachine {
	sm.processManager = pm
	sm.terminate = true
	return sm
}

// WithClock overrides the clock (for testing).
func (sm *StateMachine) WithClock(now func() time.Time) *StateMachine {
	sm.now = now
	return sm
}

// CurrentMode returns the mode set by the last confirmed transition.
func (sm *StateMachine) CurrentMode() domain.Mode {
	return sm.currentMode
}

// Tick runs one detect-classify-enforce cycle.
// Collaborator failures are handled per their recovery policy (logged,
// permission problems surfaced with a hint); only genuinely unexpected
// conditions return an error, which the caller treats as fatal.
func (sm *StateMachine) Tick(ctx context.Context) error {
	appName := strings.ToLower(sm.inspector.GetActiveApp(ctx))
	label := sm.classifier.Classify(appName)

	sm.logger.Debug("tick",
		zap.String("app", appName),
		zap.String("label", string(label)),
		zap.String("mode", string(sm.currentMode)))

	switch label {
	case domain.LabelDistracting:
		if sm.terminate {
			sm.terminateMatching(appName)
		}
		if sm.currentMode != domain.ModeDistracted {
			return sm.transition(appName, domain.ModeDistracted)
		}

	case domain.LabelProductive:
		if sm.currentMode != domain.ModeProductive {
			return sm.transition(appName, domain.ModeProductive)
		}
	}

	// Neutral, or label already matches the stored mode: no side effect.
	return nil
}

// transition runs the block-and-enforce or unblock-and-relax sequence and
// commits the new mode.
func (sm *StateMachine) transition(appName string, mode domain.Mode) error {
	sm.logger.Info("mode transition",
		zap.String("app", appName),
		zap.String("from", string(sm.currentMode)),
		zap.String("to", string(mode)))

	entries, err := sm.blocklist.Entries()
	if err != nil {
		return err
	}

	if mode == domain.ModeDistracted {
		err = sm.blocklist.Block(entries)
	} else {
		err = sm.blocklist.Unblock(entries)
	}
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			// The daemon cannot escalate privileges itself; report and
			// carry on with the remaining policies.
			sm.logger.Error("no permission to modify the redirect file, run with sudo or use user-space DNS blocking",
				zap.Error(err))
		} else {
			return err
		}
	}

	sm.actuator.Apply(mode)

	ts := sm.now().Format(TimestampLayout)
	if err := sm.sessions.Append(appName, mode, ts); err != nil {
		// A missed log record does not stop enforcement.
		sm.logger.Warn("failed to append session record", zap.Error(err))
	}

	sm.currentMode = mode
	return nil
}

// terminateMatching terminates processes whose names contain a blacklist
// entry matched by the foreground app. Best effort.
func (sm *StateMachine) terminateMatching(appName string) {
	for _, pattern := range sm.classifier.MatchingBlacklist(appName) {
		pids, err := sm.processManager.FindByName(pattern)
		if err != nil {
			sm.logger.Warn("failed to find processes",
				zap.String("pattern", pattern), zap.Error(err))
			continue
		}
		for _, pid := range pids {
			if err := sm.processManager.Terminate(pid); err != nil {
				sm.logger.Warn("failed to terminate process",
					zap.Int("pid", pid), zap.Error(err))
				continue
			}
			sm.logger.Info("terminated distracting process",
				zap.String("pattern", pattern), zap.Int("pid", pid))
		}
	}
}
