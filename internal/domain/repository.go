package domain

import "context"

// WindowInspector detects the current foreground application.
// Implementations never return an error: any detection failure yields
// UnknownApp. Returned names are not guaranteed lowercase; callers
// normalize before classification.
type WindowInspector interface {
	// GetActiveApp returns the foreground app identifier, or UnknownApp.
	GetActiveApp(ctx context.Context) string
}

// PolicyActuator applies environment-level side effects for a mode.
// ModeDistracted: hide dock, mute default audio sink.
// ModeProductive: show dock, unmute default audio sink.
// Each sub-action is best-effort; a dock failure must not prevent the
// audio action from being attempted. Failures are logged and swallowed
// inside the implementation, never raised past this boundary.
type PolicyActuator interface {
	Apply(mode Mode)
}

// SessionLog is an append-only store of mode transition records.
type SessionLog interface {
	// Init creates the schema if needed. Idempotent.
	Init() error

	// Append inserts a new session record.
	Append(appName string, mode Mode, timestamp string) error

	// Recent returns up to limit records, newest first (for status display).
	Recent(limit int) ([]SessionRecord, error)

	// Close releases the underlying store.
	Close() error
}

// BlocklistManager owns the blocklist source file and the shared hosts-style
// redirect file. All redirect-file mutations happen under an exclusive
// advisory lock so concurrent external editors are serialized.
type BlocklistManager interface {
	// Entries reads the blocklist source file, skipping blanks and comments.
	// Creates the file if absent. The result is re-read on every call so
	// user edits take effect on the next transition.
	Entries() ([]string, error)

	// Block ensures exactly one redirect line exists per entry.
	// No-op when entries is empty. Idempotent.
	Block(entries []string) error

	// Unblock removes every redirect-file line containing any entry,
	// preserving all unrelated lines and their order.
	Unblock(entries []string) error
}

// ProcessManager handles OS process operations.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	// FindByName returns PIDs of processes matching the pattern (substring,
	// case-insensitive).
	FindByName(pattern string) ([]int, error)

	// Terminate sends SIGTERM to a process by PID.
	Terminate(pid int) error

	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool

	// TopByCPU returns the name of the process with the highest CPU usage,
	// lowercased. Used as the window-detection fallback heuristic.
	TopByCPU() (string, error)
}

// KeyProvider abstracts the source of the session store encryption key.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}
