// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

// AppLabel is the classification result for one observed foreground app.
type AppLabel string

const (
	LabelProductive  AppLabel = "productive"
	LabelDistracting AppLabel = "distracting"
	LabelNeutral     AppLabel = "neutral"
)

// Mode is the daemon's current enforcement state.
// ModeNone is the valid initial value before the first classification.
type Mode string

const (
	ModeNone       Mode = ""
	ModeProductive Mode = "productive"
	ModeDistracted Mode = "distracted"
)

// UnknownApp is returned by a WindowInspector when detection fails.
const UnknownApp = "unknown"

// SessionRecord is one append-only entry in the session store.
// Created exactly once per confirmed mode transition, never mutated.
type SessionRecord struct {
	ID        int64
	AppName   string
	Mode      Mode
	Timestamp string
}

// FocusLists holds the configured app name lists used for classification.
// Matching is case-insensitive substring; a blacklist match wins over a
// whitelist match.
type FocusLists struct {
	Whitelist []string
	Blacklist []string
}
