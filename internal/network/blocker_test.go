package network

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const originalHosts = "##\n# Host Database\n##\n127.0.0.1\tlocalhost\n::1\tlocalhost\n"

func newTestBlocker(t *testing.T) (*Blocker, *fakeRunner, Paths) {
	t.Helper()
	root := t.TempDir()
	paths := Paths{
		Hosts:      filepath.Join(root, "hosts"),
		StagingDir: filepath.Join(root, "staging"),
		BackupDir:  filepath.Join(root, "config"),
		Anchor:     Anchor,
	}
	require.NoError(t, os.MkdirAll(paths.StagingDir, 0755))
	require.NoError(t, os.WriteFile(paths.Hosts, []byte(originalHosts), 0644))

	runner := &fakeRunner{
		paths: paths,
		digOutput: map[string]string{
			"example.com": "93.184.216.34\n",
			"reddit.com":  "151.101.1.140\n151.101.65.140\n",
		},
	}
	return NewBlocker(paths, runner, nil), runner, paths
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestBlock_EmptyListIsNoop(t *testing.T) {
	b, runner, paths := newTestBlocker(t)

	require.NoError(t, b.Block(context.Background()))
	assert.Empty(t, runner.names())
	assert.Equal(t, originalHosts, readFile(t, paths.Hosts))
	assert.False(t, b.IsBlockingActive())
}

func TestBlock_WritesSectionAndRules(t *testing.T) {
	b, runner, paths := newTestBlocker(t)
	b.SetSites([]string{"https://example.com/", "reddit.com", "unresolvable.test"})

	require.NoError(t, b.Block(context.Background()))

	hosts := readFile(t, paths.Hosts)
	assert.True(t, strings.HasPrefix(hosts, originalHosts))
	for _, d := range []string{"example.com", "www.example.com", "reddit.com", "www.reddit.com", "unresolvable.test", "www.unresolvable.test"} {
		assert.Contains(t, hosts, "0.0.0.0 "+d+"\n")
		assert.Contains(t, hosts, "127.0.0.1 "+d+"\n")
	}
	assert.True(t, b.IsBlockingActive())

	rules := runner.stagedRules()
	assert.Contains(t, rules, "to 93.184.216.34 port {80, 443}")
	assert.Contains(t, rules, "to 151.101.65.140 port {80, 443}")

	// The backup holds the pre-block content
	assert.Equal(t, originalHosts, readFile(t, paths.BackupPath()))

	// Staged files are removed after the batch
	_, err := os.Stat(paths.stagedHosts())
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(paths.stagedRules())
	assert.True(t, os.IsNotExist(err))

	// Exactly one escalation carrying the whole batch
	escalations := 0
	for _, name := range runner.names() {
		if name == "osascript" {
			escalations++
		}
	}
	assert.Equal(t, 1, escalations)
	c, _ := runner.find("osascript")
	script := c.joined()
	assert.Contains(t, script, "with administrator privileges")
	assert.Contains(t, script, "pfctl -a 'focuslock' -f")
	assert.Contains(t, script, "dscacheutil -flushcache")
	assert.Contains(t, script, "chmod 646")
}

func TestBlock_NoResolvedIPsSkipsPf(t *testing.T) {
	b, runner, _ := newTestBlocker(t)
	b.SetSites([]string{"unresolvable.test"})

	require.NoError(t, b.Block(context.Background()))

	c, ok := runner.find("osascript")
	require.True(t, ok)
	assert.NotContains(t, c.joined(), "pfctl")
}

func TestBlock_Cancelled(t *testing.T) {
	b, runner, paths := newTestBlocker(t)
	runner.escalateErr = errors.New("exit status 1")
	runner.stderr = "execution error: User cancelled. (-128)"
	b.SetSites([]string{"example.com"})

	err := b.Block(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPrivilegeCancelled)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	assert.Equal(t, originalHosts, readFile(t, paths.Hosts))
	assert.False(t, b.IsBlockingActive())
}

func TestBlock_EscalationFailure(t *testing.T) {
	b, runner, _ := newTestBlocker(t)
	runner.escalateErr = errors.New("exit status 1")
	runner.stderr = "cp: /etc/hosts: Operation not permitted"
	b.SetSites([]string{"example.com"})

	err := b.Block(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.NotErrorIs(t, err, ErrPrivilegeCancelled)
	assert.Contains(t, err.Error(), "Operation not permitted")
}

func TestUnblock_RestoresOriginal(t *testing.T) {
	b, runner, paths := newTestBlocker(t)
	b.SetSites([]string{"example.com", "reddit.com"})

	require.NoError(t, b.Block(context.Background()))
	// The privileged batch leaves the hosts file writable by the user
	require.NoError(t, os.Chmod(paths.Hosts, 0646))
	require.NoError(t, b.Unblock(context.Background()))

	assert.Equal(t, originalHosts, readFile(t, paths.Hosts))
	assert.False(t, b.IsBlockingActive())

	info, err := os.Stat(paths.Hosts)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0646), info.Mode().Perm())

	c, ok := runner.find("pfctl")
	require.True(t, ok)
	assert.Equal(t, []string{"-a", Anchor, "-F", "all"}, c.args)

	_, err = os.Stat(paths.stagedRules())
	assert.True(t, os.IsNotExist(err))
}

func TestUnblock_ContinuesPastFailures(t *testing.T) {
	b, runner, paths := newTestBlocker(t)
	blocked := RenderSection(originalHosts, []string{"example.com"})
	require.NoError(t, os.WriteFile(paths.Hosts, []byte(blocked), 0644))

	runner.failing = map[string]bool{"pfctl": true, "dscacheutil": true}

	err := b.Unblock(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flush dns cache")

	// hosts cleanup and the mDNSResponder restart still ran
	assert.Equal(t, originalHosts, readFile(t, paths.Hosts))
	_, ok := runner.find("killall")
	assert.True(t, ok)
}

func TestCleanupIfNeeded_IgnoresSiteList(t *testing.T) {
	b, _, paths := newTestBlocker(t)
	blocked := RenderSection(originalHosts, []string{"stale.example"})
	require.NoError(t, os.WriteFile(paths.Hosts, []byte(blocked), 0644))

	b.SetSites(nil)
	require.NoError(t, b.CleanupIfNeeded(context.Background()))
	assert.Equal(t, originalHosts, readFile(t, paths.Hosts))
}

func TestUnblock_WithoutSectionLeavesHostsUntouched(t *testing.T) {
	b, _, paths := newTestBlocker(t)
	custom := "127.0.0.1 localhost" // no trailing newline
	require.NoError(t, os.WriteFile(paths.Hosts, []byte(custom), 0644))

	require.NoError(t, b.Unblock(context.Background()))
	assert.Equal(t, custom, readFile(t, paths.Hosts))
}

func TestBlockScript_QuotesPaths(t *testing.T) {
	p := Paths{Hosts: "/etc/hosts", StagingDir: "/tmp/it's here", Anchor: "focuslock"}
	script := blockScript(p, true)

	assert.Contains(t, script, `cp '/tmp/it'\''s here/focuslock_hosts_temp' '/etc/hosts'`)
	assert.True(t, strings.HasSuffix(script, "chmod 646 '/etc/hosts'"))
}

func TestAppleScriptString(t *testing.T) {
	assert.Equal(t, `"echo \"hi\" \\ there"`, appleScriptString(`echo "hi" \ there`))
}
