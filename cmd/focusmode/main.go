// Package main is the CLI entry point for focusmode.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/focusd/focus_mode/internal/config"
	"github.com/eliteGoblin/focusd/focus_mode/internal/daemon"
	"github.com/eliteGoblin/focusd/focus_mode/internal/domain"
	"github.com/eliteGoblin/focusd/focus_mode/internal/infra"
	"github.com/eliteGoblin/focusd/focus_mode/internal/policy"
	"github.com/eliteGoblin/focusd/focus_mode/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "focusmode",
	Short: "Focus mode daemon - enforces focus policies per foreground app",
	Long: `focusmode monitors which application is in the foreground, classifies
it as productive or distracting, and enforces environment policies on
each change: website blocking via the hosts file, audio mute, and dock
visibility. Sessions are recorded to an encrypted local store.`,
	Version: Version,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the focus daemon in the foreground",
	Long: `Starts the monitoring loop and blocks until interrupted.
SIGINT/SIGTERM stop the daemon with full cleanup: configured sites are
unblocked and productive policies restored, exactly as a normal stop.

Modifying /etc/hosts requires root; without it, website blocking is
reported as unavailable while the remaining policies still apply.`,
	RunE: runRun,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show blocked state and recent focus sessions",
	RunE:  runStatus,
}

var unblockCmd = &cobra.Command{
	Use:   "unblock",
	Short: "Manually remove all configured redirect entries and relax policies",
	Long: `One-shot cleanup for when a daemon process died without the chance
to run its exit cleanup (e.g. SIGKILL or power loss).`,
	RunE: runUnblock,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   runVersion,
}

var (
	configPath string
	jsonOutput bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ~/.focusmode/config.yaml)")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(unblockCmd)
	rootCmd.AddCommand(versionCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := createLogger()
	defer func() { _ = logger.Sync() }()

	pm := infra.NewProcessManager()
	inspector := infra.NewX11Inspector(pm, logger)
	classifier := policy.NewClassifier(cfg.Lists())
	actuator := infra.NewGnomeActuator(logger)
	blocklist := infra.NewHostsBlocklist(
		config.ExpandHome(cfg.BlocklistPath), cfg.HostsPath, cfg.RedirectIP, logger)

	sessions, err := openSessionLog(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = sessions.Close() }()

	sm := usecase.NewStateMachine(inspector, classifier, blocklist, actuator, sessions, logger)
	if cfg.TerminateDistracting {
		sm.WithTermination(pm)
	}

	controller := daemon.NewController(sm, blocklist, actuator, cfg.PollInterval, logger)
	if !controller.Start() {
		return fmt.Errorf("focus daemon is already running")
	}

	fmt.Println("Focus mode daemon running. Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	// Interrupt gets the same cleanup as an explicit stop.
	controller.Stop()
	fmt.Println("Focus mode stopped, policies reset.")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	fmt.Println("\n=== focusmode Status ===")

	blocklist := infra.NewHostsBlocklist(
		config.ExpandHome(cfg.BlocklistPath), cfg.HostsPath, cfg.RedirectIP, zap.NewNop())
	entries, err := blocklist.Entries()
	if err != nil {
		return fmt.Errorf("failed to read blocklist: %w", err)
	}

	blocked := blockedEntries(cfg, entries)
	if len(blocked) > 0 {
		fmt.Println("Websites: BLOCKED")
		for _, e := range blocked {
			fmt.Printf("  - %s -> %s\n", e, cfg.RedirectIP)
		}
	} else {
		fmt.Println("Websites: not blocked")
	}

	sessions, err := openSessionLog(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = sessions.Close() }()

	records, err := sessions.Recent(10)
	if err != nil {
		return fmt.Errorf("failed to read session log: %w", err)
	}

	fmt.Println("\nRecent sessions:")
	if len(records) == 0 {
		fmt.Println("  (none)")
	}
	for _, r := range records {
		fmt.Printf("  %s  %-11s %s\n", r.Timestamp, r.Mode, r.AppName)
	}

	fmt.Println("========================")
	return nil
}

// blockedEntries returns the configured entries currently present in the
// redirect file.
func blockedEntries(cfg *config.Config, entries []string) []string {
	data, err := os.ReadFile(cfg.HostsPath)
	if err != nil {
		return nil
	}
	content := string(data)

	var blocked []string
	for _, e := range entries {
		if strings.Contains(content, cfg.RedirectIP+" "+e) {
			blocked = append(blocked, e)
		}
	}
	return blocked
}

func runUnblock(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := createLogger()
	defer func() { _ = logger.Sync() }()

	blocklist := infra.NewHostsBlocklist(
		config.ExpandHome(cfg.BlocklistPath), cfg.HostsPath, cfg.RedirectIP, logger)

	entries, err := blocklist.Entries()
	if err != nil {
		return fmt.Errorf("failed to read blocklist: %w", err)
	}
	if err := blocklist.Unblock(entries); err != nil {
		return fmt.Errorf("failed to unblock: %w", err)
	}

	infra.NewGnomeActuator(logger).Apply(domain.ModeProductive)

	fmt.Println("All configured sites unblocked, policies relaxed.")
	return nil
}

func openSessionLog(cfg *config.Config) (domain.SessionLog, error) {
	dataDir := config.ExpandHome(cfg.DataDir)

	key, err := infra.EnsureKey(infra.NewFileKeyProvider(dataDir))
	if err != nil {
		return nil, fmt.Errorf("failed to set up session key: %w", err)
	}

	sessions, err := infra.NewEncryptedSessionLog(dataDir, key)
	if err != nil {
		return nil, err
	}
	if err := sessions.Init(); err != nil {
		sessions.Close()
		return nil, fmt.Errorf("failed to initialize session log: %w", err)
	}
	return sessions, nil
}

func createLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout", "/var/tmp/focusmode.log"}
	cfg.ErrorOutputPaths = []string{"stderr", "/var/tmp/focusmode.error.log"}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		// Fallback to stdout if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("focusmode %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
