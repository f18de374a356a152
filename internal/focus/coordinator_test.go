package focus

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focuslock/focuslock/internal/config"
	"github.com/focuslock/focuslock/internal/events"
	"github.com/focuslock/focuslock/internal/model"
	"github.com/focuslock/focuslock/internal/network"
	"github.com/focuslock/focuslock/internal/process"
	"github.com/focuslock/focuslock/internal/session"
	"github.com/focuslock/focuslock/internal/timer"
)

const baseHosts = "127.0.0.1\tlocalhost\n"

// sysRunner stands in for osascript, pfctl and friends. The privileged batch
// is emulated by copying the staged hosts file into place.
type sysRunner struct {
	paths network.Paths
}

func (r sysRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	if name == "osascript" {
		data, err := os.ReadFile(filepath.Join(r.paths.StagingDir, "focuslock_hosts_temp"))
		if err != nil {
			return nil, nil, err
		}
		return nil, nil, os.WriteFile(r.paths.Hosts, data, 0644)
	}
	return nil, nil, nil
}

type noDNS struct{}

func (noDNS) LookupIPv4(context.Context, string) ([]string, error) { return nil, nil }

type procTable struct {
	mu    sync.Mutex
	procs []process.Process
}

func (t *procTable) List(context.Context) ([]process.Process, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]process.Process(nil), t.procs...), nil
}

func (t *procTable) Kill(_ context.Context, pid int32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, p := range t.procs {
		if p.PID == pid {
			t.procs = append(t.procs[:i], t.procs[i+1:]...)
			break
		}
	}
	return nil
}

type noExec struct{}

func (noExec) ExecutableName(string) (string, bool) { return "", false }

type fixture struct {
	c      *Coordinator
	dir    string
	paths  network.Paths
	table  *procTable
	saved  []*config.Config
	saveMu sync.Mutex
}

func newFixture(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		dir: filepath.Join(root, "config"),
		paths: network.Paths{
			Hosts:      filepath.Join(root, "hosts"),
			StagingDir: root,
			BackupDir:  filepath.Join(root, "config"),
			Anchor:     network.Anchor,
		},
		table: &procTable{},
	}
	require.NoError(t, os.WriteFile(f.paths.Hosts, []byte(baseHosts), 0644))

	cfg := config.Default()
	cfg.BlockedSites = []string{"example.com"}
	cfg.BlockedApps = []string{"Slack"}
	if mutate != nil {
		mutate(cfg)
	}

	c, err := New(Options{
		ConfigDir: f.dir,
		Config:    cfg,
		Persist: func(cfg *config.Config) error {
			f.saveMu.Lock()
			f.saved = append(f.saved, cfg)
			f.saveMu.Unlock()
			return nil
		},
		HostsPaths:     f.paths,
		Runner:         sysRunner{paths: f.paths},
		DNS:            noDNS{},
		ProcessTable:   f.table,
		Executables:    noExec{},
		TimerInterval:  2 * time.Millisecond,
		PollInterval:   2 * time.Millisecond,
		SuppressWindow: 200 * time.Millisecond,
	})
	require.NoError(t, err)
	f.c = c
	t.Cleanup(func() {
		c.Stop()
		c.CleanupOnExit(context.Background())
	})
	return f
}

func (f *fixture) hosts(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(f.paths.Hosts)
	require.NoError(t, err)
	return string(data)
}

func (f *fixture) saves() int {
	f.saveMu.Lock()
	defer f.saveMu.Unlock()
	return len(f.saved)
}

func TestStartStop_BlocksAndRestoresHosts(t *testing.T) {
	f := newFixture(t, nil)
	sub := f.c.Events().Subscribe(256)

	status, err := f.c.Start(context.Background(), timer.StartOptions{})
	require.NoError(t, err)
	assert.Equal(t, model.StateWorking, status.State)
	assert.True(t, f.c.Focusing())
	assert.True(t, f.c.BlockingActive())
	assert.Contains(t, f.hosts(t), "0.0.0.0 www.example.com")
	assert.GreaterOrEqual(t, f.saves(), 1, "quota and last focus duration persisted")

	status = f.c.Stop()
	f.c.Wait()
	assert.Equal(t, model.StateIdle, status.State)
	assert.False(t, f.c.Focusing())
	assert.Equal(t, baseHosts, f.hosts(t))

	var sawClose bool
	for len(sub) > 0 {
		if e := <-sub; e.Type == events.TypeOverlayClose {
			sawClose = true
		}
	}
	assert.True(t, sawClose)
}

func TestHideOverlay_GenerationGuardsReenable(t *testing.T) {
	f := newFixture(t, nil)

	f.c.HideOverlay()
	assert.True(t, f.c.OverlaySuppressed())

	time.Sleep(120 * time.Millisecond)
	f.c.HideOverlay()

	// The first hide's window has elapsed, but the newer hide still holds
	time.Sleep(120 * time.Millisecond)
	assert.True(t, f.c.OverlaySuppressed())

	assert.Eventually(t, func() bool { return !f.c.OverlaySuppressed() }, time.Second, time.Millisecond)
}

func TestBlockedAppEvent_RespectsSuppression(t *testing.T) {
	f := newFixture(t, nil)
	sub := f.c.Events().Subscribe(256)

	f.c.HideOverlay()
	f.table.mu.Lock()
	f.table.procs = []process.Process{{PID: 7, Name: "Slack"}}
	f.table.mu.Unlock()

	_, err := f.c.Start(context.Background(), timer.StartOptions{})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		procs, _ := f.table.List(context.Background())
		return len(procs) == 0
	}, time.Second, time.Millisecond, "blocked app is killed")

	for len(sub) > 0 {
		assert.NotEqual(t, events.TypeBlockedAppDetected, (<-sub).Type)
	}
}

func TestStartup_CleansResidualBlockWithoutSession(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, os.WriteFile(f.paths.Hosts, []byte(network.RenderSection(baseHosts, []string{"stale.example"})), 0644))

	require.NoError(t, f.c.Startup(context.Background()))
	assert.Equal(t, baseHosts, f.hosts(t))
	assert.False(t, f.c.Focusing())
}

func TestStartup_DiscardsUnreadableSession(t *testing.T) {
	f := newFixture(t, nil)
	store, err := session.NewStore(f.dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0644))
	require.NoError(t, os.WriteFile(f.paths.Hosts, []byte(network.RenderSection(baseHosts, []string{"example.com"})), 0644))

	require.NoError(t, f.c.Startup(context.Background()))
	assert.False(t, f.c.Focusing())
	assert.False(t, f.c.BlockingActive())
	assert.Equal(t, baseHosts, f.hosts(t))
	assert.False(t, store.Exists())
}

func TestStartup_RestoresSession(t *testing.T) {
	f := newFixture(t, nil)
	store, err := session.NewStore(f.dir)
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, store.Save(session.New(now, 600, 10, 5, 1)))
	blocked := network.RenderSection(baseHosts, []string{"example.com", "www.example.com"})
	require.NoError(t, os.WriteFile(f.paths.Hosts, []byte(blocked), 0644))

	require.NoError(t, f.c.Startup(context.Background()))
	f.c.Wait()

	status := f.c.Status()
	assert.Equal(t, model.StateWorking, status.State)
	assert.InDelta(t, 600, status.RemainingSeconds, 2)
	assert.Equal(t, 1, status.EmergencyRemaining)
	assert.True(t, f.c.Focusing())
	assert.Equal(t, blocked, f.hosts(t), "existing block is kept as is")
}

func TestCleanupOnExit(t *testing.T) {
	t.Run("active session keeps block", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.c.Start(context.Background(), timer.StartOptions{})
		require.NoError(t, err)

		f.c.CleanupOnExit(context.Background())
		assert.True(t, f.c.BlockingActive())
		assert.True(t, f.c.store.Exists())
	})

	t.Run("idle removes block", func(t *testing.T) {
		f := newFixture(t, nil)
		require.NoError(t, os.WriteFile(f.paths.Hosts, []byte(network.RenderSection(baseHosts, []string{"x.com"})), 0644))

		f.c.CleanupOnExit(context.Background())
		assert.Equal(t, baseHosts, f.hosts(t))
	})
}

func TestUpdateConfig_FansOut(t *testing.T) {
	f := newFixture(t, nil)

	cfg := f.c.Config()
	cfg.BlockedSites = []string{"https://www.Reddit.com/r/golang"}
	cfg.BlockedApps = []string{"Discord"}
	cfg.Pomodoro.WorkMinutes = 40
	require.NoError(t, f.c.UpdateConfig(cfg))

	assert.Equal(t, []string{"www.reddit.com", "reddit.com"}, f.c.BlockedDomains())
	assert.Equal(t, []string{"Discord"}, f.c.apps.Apps())
	assert.Equal(t, []string{"https://www.Reddit.com/r/golang"}, f.c.sites.Sites())
	assert.Equal(t, 40, f.c.Status().WorkMinutes)

	bad := f.c.Config()
	bad.Mode = "never"
	assert.ErrorIs(t, f.c.UpdateConfig(bad), config.ErrInvalid)
	assert.Equal(t, config.ModeManual, f.c.Config().Mode)
}

func TestUpdateConfig_NeverRestartsPolling(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.c.Start(context.Background(), timer.StartOptions{})
	require.NoError(t, err)
	require.True(t, f.c.apps.Polling())

	cfg := f.c.Config()
	cfg.BlockedApps = []string{"Discord"}
	require.NoError(t, f.c.UpdateConfig(cfg))
	assert.True(t, f.c.apps.Polling())

	_, err = f.c.Cancel()
	require.NoError(t, err)
	assert.False(t, f.c.apps.Polling())

	// A config write landing after teardown leaves the poller stopped
	require.NoError(t, f.c.UpdateConfig(f.c.Config()))
	assert.False(t, f.c.apps.Polling())
}

func TestSaveConfig_Persists(t *testing.T) {
	f := newFixture(t, nil)

	cfg := f.c.Config()
	cfg.Pomodoro.BreakMinutes = 15
	require.NoError(t, f.c.SaveConfig(cfg))

	assert.Equal(t, 1, f.saves())
	assert.Equal(t, 15, f.c.Pomodoro().BreakMinutes)
}

func TestReloadConfig_ReadsDisk(t *testing.T) {
	f := newFixture(t, nil)

	onDisk := config.Default()
	onDisk.BlockedSites = []string{"news.ycombinator.com"}
	onDisk.BlockedApps = []string{"Steam"}
	require.NoError(t, config.Save(f.dir, onDisk))

	require.NoError(t, f.c.ReloadConfig())
	assert.Equal(t, []string{"news.ycombinator.com", "www.news.ycombinator.com"}, f.c.BlockedDomains())
	assert.Equal(t, []string{"Steam"}, f.c.apps.Apps())
}

func TestScheduleChange(t *testing.T) {
	f := newFixture(t, nil)

	f.c.onScheduleChange(true)
	assert.True(t, f.c.Focusing())
	assert.True(t, f.c.scheduledActive.Load())

	f.c.onScheduleChange(false)
	f.c.Wait()
	assert.False(t, f.c.Focusing())
	assert.Equal(t, baseHosts, f.hosts(t))

	// A manual session is not ended by leaving a window
	_, err := f.c.Start(context.Background(), timer.StartOptions{})
	require.NoError(t, err)
	f.c.onScheduleChange(true)
	f.c.onScheduleChange(false)
	assert.True(t, f.c.Focusing())
}

func TestSchedule_Info(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Mode = config.ModeScheduled
		cfg.Schedules = []config.Schedule{{Enabled: true, Start: "00:00", End: "23:59"}}
	})

	info := f.c.Schedule()
	assert.True(t, info.Scheduled)
	if time.Now().Hour() == 23 && time.Now().Minute() == 59 {
		t.Skip("outside the only window")
	}
	assert.True(t, info.InWindow)
	assert.Equal(t, "23:59", info.CurrentEnd)
}
