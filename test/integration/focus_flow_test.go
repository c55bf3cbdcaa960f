//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focus_mode/internal/daemon"
	"github.com/eliteGoblin/focusd/focus_mode/internal/domain"
	"github.com/eliteGoblin/focusd/focus_mode/internal/infra"
	"github.com/eliteGoblin/focusd/focus_mode/internal/policy"
	"github.com/eliteGoblin/focusd/focus_mode/internal/usecase"
)

const baseHosts = `127.0.0.1 localhost
192.168.1.10 nas.local
`

// scriptedInspector replays a fixed app sequence, then repeats the last
// entry. Safe for use from the daemon worker goroutine.
type scriptedInspector struct {
	mu   sync.Mutex
	apps []string
	idx  int
}

func (s *scriptedInspector) GetActiveApp(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.apps) == 0 {
		return domain.UnknownApp
	}
	app := s.apps[s.idx]
	if s.idx < len(s.apps)-1 {
		s.idx++
	}
	return app
}

func (s *scriptedInspector) setApps(apps ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apps = apps
	s.idx = 0
}

// recordingRunner captures desktop commands instead of executing them.
type recordingRunner struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recordingRunner) Run(name string, args ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]string{name}, args...))
	return nil
}

func (r *recordingRunner) Output(name string, args ...string) ([]byte, error) {
	return nil, nil
}

func (r *recordingRunner) commandLines() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...)
}

var _ = Describe("Focus enforcement flow", func() {
	var (
		tmpDir        string
		hostsPath     string
		blocklistPath string
		inspector     *scriptedInspector
		runner        *recordingRunner
		blocklist     *infra.HostsBlocklist
		actuator      *infra.GnomeActuator
		sessions      *infra.EncryptedSessionLog
		sm            *usecase.StateMachine
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "focusmode-integration-*")
		Expect(err).NotTo(HaveOccurred())

		hostsPath = filepath.Join(tmpDir, "hosts")
		Expect(os.WriteFile(hostsPath, []byte(baseHosts), 0644)).To(Succeed())

		blocklistPath = filepath.Join(tmpDir, "blocked_sites.txt")
		Expect(os.WriteFile(blocklistPath, []byte("youtube.com\nfacebook.com\n"), 0644)).To(Succeed())

		logger := zap.NewNop()
		inspector = &scriptedInspector{}
		runner = &recordingRunner{}
		blocklist = infra.NewHostsBlocklist(blocklistPath, hostsPath, "127.0.0.1", logger)
		actuator = infra.NewGnomeActuatorWithRunner(runner, logger)

		key, err := infra.EnsureKey(infra.NewFileKeyProvider(tmpDir))
		Expect(err).NotTo(HaveOccurred())
		sessions, err = infra.NewEncryptedSessionLog(tmpDir, key)
		Expect(err).NotTo(HaveOccurred())
		Expect(sessions.Init()).To(Succeed())

		classifier := policy.NewClassifier(domain.FocusLists{
			Whitelist: []string{"code", "gnome-terminal"},
			Blacklist: []string{"firefox", "vlc"},
		})
		sm = usecase.NewStateMachine(inspector, classifier, blocklist, actuator, sessions, logger)
	})

	AfterEach(func() {
		sessions.Close()
		os.RemoveAll(tmpDir)
	})

	hostsContent := func() string {
		data, err := os.ReadFile(hostsPath)
		Expect(err).NotTo(HaveOccurred())
		return string(data)
	}

	Describe("single transitions", func() {
		Context("when a distracting app takes the foreground", func() {
			It("blocks the configured sites and enforces policies", func() {
				inspector.setApps("firefox")

				Expect(sm.Tick(context.Background())).To(Succeed())

				content := hostsContent()
				Expect(content).To(ContainSubstring("127.0.0.1 youtube.com"))
				Expect(content).To(ContainSubstring("127.0.0.1 facebook.com"))
				Expect(content).To(ContainSubstring("192.168.1.10 nas.local"))

				Expect(runner.commandLines()).To(ConsistOf(
					[]string{"gsettings", "set", "org.gnome.shell.extensions.dash-to-dock", "autohide", "true"},
					[]string{"pactl", "set-sink-mute", "@DEFAULT_SINK@", "1"},
				))

				records, err := sessions.Recent(10)
				Expect(err).NotTo(HaveOccurred())
				Expect(records).To(HaveLen(1))
				Expect(records[0].AppName).To(Equal("firefox"))
				Expect(records[0].Mode).To(Equal(domain.ModeDistracted))
			})

			It("does not rewrite the hosts file on repeated ticks", func() {
				inspector.setApps("firefox")

				Expect(sm.Tick(context.Background())).To(Succeed())
				blocked := hostsContent()

				Expect(sm.Tick(context.Background())).To(Succeed())
				Expect(sm.Tick(context.Background())).To(Succeed())

				Expect(hostsContent()).To(Equal(blocked))

				records, err := sessions.Recent(10)
				Expect(err).NotTo(HaveOccurred())
				Expect(records).To(HaveLen(1))
			})
		})

		Context("when focus returns to a productive app", func() {
			It("restores the hosts file and relaxes policies", func() {
				inspector.setApps("firefox", "code")

				Expect(sm.Tick(context.Background())).To(Succeed())
				Expect(sm.Tick(context.Background())).To(Succeed())

				Expect(hostsContent()).To(Equal(baseHosts))

				calls := runner.commandLines()
				Expect(calls).To(HaveLen(4))
				Expect(calls[2]).To(Equal(
					[]string{"gsettings", "set", "org.gnome.shell.extensions.dash-to-dock", "autohide", "false"}))
				Expect(calls[3]).To(Equal(
					[]string{"pactl", "set-sink-mute", "@DEFAULT_SINK@", "0"}))

				records, err := sessions.Recent(10)
				Expect(err).NotTo(HaveOccurred())
				Expect(records).To(HaveLen(2))
				// Recent returns newest first
				Expect(records[0].AppName).To(Equal("code"))
				Expect(records[0].Mode).To(Equal(domain.ModeProductive))
				Expect(records[1].AppName).To(Equal("firefox"))
			})
		})

		Context("when only neutral apps are seen", func() {
			It("leaves the environment untouched", func() {
				inspector.setApps("nautilus", domain.UnknownApp)

				Expect(sm.Tick(context.Background())).To(Succeed())
				Expect(sm.Tick(context.Background())).To(Succeed())

				Expect(hostsContent()).To(Equal(baseHosts))
				Expect(runner.commandLines()).To(BeEmpty())

				records, err := sessions.Recent(10)
				Expect(err).NotTo(HaveOccurred())
				Expect(records).To(BeEmpty())
			})
		})

		Context("when the blocklist source file is empty", func() {
			It("skips the hosts file but still applies policies", func() {
				Expect(os.WriteFile(blocklistPath, nil, 0644)).To(Succeed())
				inspector.setApps("firefox")

				Expect(sm.Tick(context.Background())).To(Succeed())

				Expect(hostsContent()).To(Equal(baseHosts))
				Expect(runner.commandLines()).To(HaveLen(2))
			})
		})
	})

	Describe("daemon lifecycle", func() {
		var controller *daemon.Controller

		BeforeEach(func() {
			controller = daemon.NewController(sm, blocklist, actuator, 10*time.Millisecond, zap.NewNop())
		})

		Context("when stopped while distracted", func() {
			It("unblocks everything before Stop returns", func() {
				inspector.setApps("firefox")

				Expect(controller.Start()).To(BeTrue())
				Eventually(hostsContent, time.Second, 5*time.Millisecond).
					Should(ContainSubstring("127.0.0.1 youtube.com"))

				Expect(controller.Stop()).To(BeTrue())

				Expect(hostsContent()).To(Equal(baseHosts))

				calls := runner.commandLines()
				Expect(calls).NotTo(BeEmpty())
				// Cleanup re-applies productive policies as its final act
				Expect(calls[len(calls)-1]).To(Equal(
					[]string{"pactl", "set-sink-mute", "@DEFAULT_SINK@", "0"}))
				Expect(controller.IsRunning()).To(BeFalse())
			})
		})

		Context("when a tick fails fatally", func() {
			It("cleans up before the worker dies", func() {
				inspector.setApps("firefox")

				Expect(controller.Start()).To(BeTrue())
				Eventually(hostsContent, time.Second, 5*time.Millisecond).
					Should(ContainSubstring("127.0.0.1 youtube.com"))

				// Make the next Entries() call fail: blocklist source gone and
				// unreadable, so a later transition errors out of the worker.
				Expect(os.Remove(blocklistPath)).To(Succeed())
				Expect(os.Mkdir(blocklistPath, 0755)).To(Succeed())
				inspector.setApps("code")

				Eventually(controller.IsRunning, time.Second, 5*time.Millisecond).
					Should(BeFalse())

				// Entries() also fails during cleanup, but policies still relax
				calls := runner.commandLines()
				Expect(calls[len(calls)-1]).To(Equal(
					[]string{"pactl", "set-sink-mute", "@DEFAULT_SINK@", "0"}))
			})
		})

		Context("when restarted", func() {
			It("supports a second monitoring cycle", func() {
				inspector.setApps("firefox")

				Expect(controller.Start()).To(BeTrue())
				Eventually(hostsContent, time.Second, 5*time.Millisecond).
					Should(ContainSubstring("127.0.0.1 youtube.com"))
				Expect(controller.Stop()).To(BeTrue())

				inspector.setApps("firefox")
				Expect(controller.Start()).To(BeTrue())
				Eventually(hostsContent, time.Second, 5*time.Millisecond).
					Should(ContainSubstring("127.0.0.1 youtube.com"))
				Expect(controller.Stop()).To(BeTrue())

				Expect(hostsContent()).To(Equal(baseHosts))
			})
		})
	})
})
