// Package policy implements app classification against the configured
// whitelist and blacklist.
package policy

import (
	"strings"

	"github.com/eliteGoblin/focusd/focus_mode/internal/domain"
)

// Classifier labels foreground app names as productive, distracting or
// neutral. Matching is case-insensitive substring: "chrome" matches
// "chromium-browser". Blacklist wins when both lists match.
type Classifier struct {
	lists domain.FocusLists
}

// NewClassifier creates a classifier for the given lists.
func NewClassifier(lists domain.FocusLists) *Classifier {
	return &Classifier{lists: lists}
}

// Classify returns the label for an app name.
// UnknownApp classifies as neutral unless it substring-matches a list entry.
func (c *Classifier) Classify(appName string) domain.AppLabel {
	name := strings.ToLower(appName)

	if matchesAny(name, c.lists.Blacklist) {
		return domain.LabelDistracting
	}
	if matchesAny(name, c.lists.Whitelist) {
		return domain.LabelProductive
	}
	return domain.LabelNeutral
}

// MatchingBlacklist returns the blacklist entries contained in appName.
// Used by the terminate-distracting feature to pick process patterns.
func (c *Classifier) MatchingBlacklist(appName string) []string {
	name := strings.ToLower(appName)

	var matched []string
	for _, entry := range c.lists.Blacklist {
		if entry != "" && strings.Contains(name, strings.ToLower(entry)) {
			matched = append(matched, entry)
		}
	}
	return matched
}

func matchesAny(name string, entries []string) bool {
	for _, entry := range entries {
		if entry != "" && strings.Contains(name, strings.ToLower(entry)) {
			return true
		}
	}
	return false
}
