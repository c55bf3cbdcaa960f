// Package infra implements infrastructure concerns (window detection,
// policy actuation, hosts blocking, session persistence).
package infra

import (
	"fmt"
	"os"
	"strings"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focus_mode/internal/domain"
)

// HostsBlocklist implements domain.BlocklistManager against a hosts-style
// redirect file. Every read-modify-write of the redirect file runs under an
// exclusive advisory lock on the file itself, so cooperating external
// editors (or a stray second daemon) cannot interleave writes.
//
// The redirect file is rewritten in place (truncate, not rename) so the
// inode the advisory lock protocol is keyed on stays stable.
type HostsBlocklist struct {
	blocklistPath string
	hostsPath     string
	redirectIP    string
	logger        *zap.Logger
}

// NewHostsBlocklist creates a blocklist manager.
func NewHostsBlocklist(blocklistPath, hostsPath, redirectIP string, logger *zap.Logger) *HostsBlocklist {
	return &HostsBlocklist{
		blocklistPath: blocklistPath,
		hostsPath:     hostsPath,
		redirectIP:    redirectIP,
		logger:        logger,
	}
}

// Entries reads the blocklist source file, creating it if absent.
// Blank lines and "#" comments are skipped. Re-read on every call so user
// edits take effect on the next transition.
func (h *HostsBlocklist) Entries() ([]string, error) {
	f, err := os.OpenFile(h.blocklistPath, os.O_CREATE|os.O_RDONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open blocklist file: %w", err)
	}
	defer f.Close()

	data, err := os.ReadFile(h.blocklistPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read blocklist file: %w", err)
	}

	var entries []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	return entries, nil
}

// Block ensures exactly one "<redirect-ip> <hostname>" line exists per
// entry. Idempotent: entries already present are left alone. No-op when
// entries is empty (the redirect file is not touched at all).
func (h *HostsBlocklist) Block(entries []string) error {
	if len(entries) == 0 {
		h.logger.Debug("no blocklist entries configured, skipping block")
		return nil
	}

	lock := flock.New(h.hostsPath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock %s: %w", h.hostsPath, err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := os.ReadFile(h.hostsPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", h.hostsPath, err)
	}

	existing := make(map[string]struct{})
	for _, line := range strings.Split(string(data), "\n") {
		existing[strings.TrimSpace(line)] = struct{}{}
	}

	var missing []string
	for _, entry := range entries {
		record := h.redirectIP + " " + entry
		if _, ok := existing[record]; !ok {
			missing = append(missing, record)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	f, err := os.OpenFile(h.hostsPath, os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s for append: %w", h.hostsPath, err)
	}
	defer f.Close()

	// Guard against a final line missing its newline, otherwise the first
	// appended record would glue onto it.
	prefix := ""
	if len(data) > 0 && data[len(data)-1] != '\n' {
		prefix = "\n"
	}

	if _, err := f.WriteString(prefix + strings.Join(missing, "\n") + "\n"); err != nil {
		return fmt.Errorf("failed to append to %s: %w", h.hostsPath, err)
	}

	for _, record := range missing {
		h.logger.Info("blocked site", zap.String("record", record))
	}
	return nil
}

// Unblock removes every line containing any entry, preserving all other
// lines and their order. Safe no-op when nothing is blocked.
func (h *HostsBlocklist) Unblock(entries []string) error {
	if len(entries) == 0 {
		return nil
	}

	lock := flock.New(h.hostsPath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock %s: %w", h.hostsPath, err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := os.ReadFile(h.hostsPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", h.hostsPath, err)
	}

	lines := strings.Split(string(data), "\n")
	// Preserve the presence/absence of a trailing newline.
	trailingNewline := strings.HasSuffix(string(data), "\n")
	if trailingNewline && len(lines) > 0 {
		lines = lines[:len(lines)-1]
	}

	kept := make([]string, 0, len(lines))
	removed := 0
	for _, line := range lines {
		if containsAnyEntry(line, entries) {
			removed++
			continue
		}
		kept = append(kept, line)
	}
	if removed == 0 {
		return nil
	}

	out := strings.Join(kept, "\n")
	if trailingNewline && out != "" {
		out += "\n"
	}

	// Rewrite in place to keep the locked inode.
	f, err := os.OpenFile(h.hostsPath, os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s for rewrite: %w", h.hostsPath, err)
	}
	defer f.Close()

	if _, err := f.WriteString(out); err != nil {
		return fmt.Errorf("failed to rewrite %s: %w", h.hostsPath, err)
	}

	h.logger.Info("unblocked sites", zap.Int("lines_removed", removed))
	return nil
}

func containsAnyEntry(line string, entries []string) bool {
	for _, entry := range entries {
		if entry != "" && strings.Contains(line, entry) {
			return true
		}
	}
	return false
}

// Ensure HostsBlocklist implements domain.BlocklistManager.
var _ domain.BlocklistManager = (*HostsBlocklist)(nil)
