package network

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/focuslock/focuslock/internal/logging"
	"github.com/focuslock/focuslock/internal/metrics"
)

const (
	stagedHostsName = "focuslock_hosts_temp"
	stagedRulesName = "focuslock_pf_rules.conf"
	backupName      = "hosts.backup"
)

// Paths locates every file the blocker reads or writes.
type Paths struct {
	Hosts      string // system hostname-override file
	StagingDir string // world-readable dir for files handed to the privileged batch
	BackupDir  string // durable dir for the pre-block hosts backup
	Anchor     string // pf anchor name
}

// DefaultPaths returns the system locations with the backup kept in configDir.
func DefaultPaths(configDir string) Paths {
	return Paths{
		Hosts:      "/etc/hosts",
		StagingDir: "/tmp",
		BackupDir:  configDir,
		Anchor:     Anchor,
	}
}

func (p Paths) stagedHosts() string { return filepath.Join(p.StagingDir, stagedHostsName) }
func (p Paths) stagedRules() string { return filepath.Join(p.StagingDir, stagedRulesName) }

// BackupPath returns the location of the pre-block hosts backup.
func (p Paths) BackupPath() string { return filepath.Join(p.BackupDir, backupName) }

// Blocker applies and removes the hosts and pf site block.
type Blocker struct {
	paths    Paths
	runner   Runner
	resolver Resolver
	log      zerolog.Logger

	mu    sync.Mutex
	sites []string
}

// NewBlocker creates a blocker. A nil resolver falls back to dig through runner.
func NewBlocker(paths Paths, runner Runner, resolver Resolver) *Blocker {
	if runner == nil {
		runner = ExecRunner{}
	}
	if resolver == nil {
		resolver = DigResolver{Runner: runner}
	}
	if paths.Anchor == "" {
		paths.Anchor = Anchor
	}
	return &Blocker{
		paths:    paths,
		runner:   runner,
		resolver: resolver,
		log:      logging.Component("network"),
	}
}

// SetSites replaces the raw site list.
func (b *Blocker) SetSites(sites []string) {
	b.mu.Lock()
	b.sites = append([]string(nil), sites...)
	b.mu.Unlock()
}

// Sites returns a copy of the raw site list.
func (b *Blocker) Sites() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.sites...)
}

// Block blocks the current site list. It is a no-op when the list is empty.
// The only user-visible prompt is the single privileged batch; a dismissed
// prompt yields ErrPrivilegeCancelled.
func (b *Blocker) Block(ctx context.Context) (err error) {
	sites := b.Sites()

	domains := Domains(sites)
	if len(domains) == 0 {
		return nil
	}
	defer func() { metrics.BlockOperation("block", err) }()

	b.log.Info().Int("domains", len(domains)).Msg("Blocking sites")

	ips := ResolveAll(ctx, b.resolver, BareDomains(sites), func(domain string, err error) {
		b.log.Warn().Err(err).Str("domain", domain).Msg("Resolve failed, continuing with hosts only")
	})
	b.log.Debug().Strs("ips", ips).Msg("Resolved addresses")

	current, err := os.ReadFile(b.paths.Hosts)
	if err != nil {
		return errors.Wrap(err, "read hosts file")
	}

	if err := b.backup(string(current)); err != nil {
		return err
	}

	if err := os.WriteFile(b.paths.stagedHosts(), []byte(RenderSection(string(current), domains)), 0644); err != nil {
		return errors.Wrap(err, "write staged hosts file")
	}
	defer os.Remove(b.paths.stagedHosts())

	withRules := len(ips) > 0
	if withRules {
		if err := os.WriteFile(b.paths.stagedRules(), []byte(RenderRules(ips)), 0644); err != nil {
			return errors.Wrap(err, "write staged pf rules")
		}
		defer os.Remove(b.paths.stagedRules())
	}

	if err := escalate(ctx, b.runner, blockScript(b.paths, withRules)); err != nil {
		return err
	}

	b.log.Info().Int("domains", len(domains)).Int("ips", len(ips)).Msg("Sites blocked")
	return nil
}

// Unblock removes the managed hosts section and flushes the pf anchor without
// elevation. Every step runs even if an earlier one fails; the first failure is
// returned for logging.
func (b *Blocker) Unblock(ctx context.Context) error {
	var firstErr error
	record := func(step string, err error) {
		if err == nil {
			return
		}
		b.log.Warn().Err(err).Str("step", step).Msg("Unblock step failed")
		if firstErr == nil {
			firstErr = errors.Wrap(err, step)
		}
	}

	if _, stderr, err := b.runner.Run(ctx, "pfctl", "-a", b.paths.Anchor, "-F", "all"); err != nil {
		b.log.Debug().Err(err).Str("stderr", string(stderr)).Msg("pf flush failed")
	}

	content, err := os.ReadFile(b.paths.Hosts)
	switch {
	case err != nil:
		record("read hosts file", err)
	case HasSection(string(content)):
		// Written in place; the file keeps the mode the privileged batch gave it.
		record("write hosts file", os.WriteFile(b.paths.Hosts, []byte(StripSection(string(content))), 0644))
	}

	_, _, err = b.runner.Run(ctx, "dscacheutil", "-flushcache")
	record("flush dns cache", err)
	_, _, err = b.runner.Run(ctx, "killall", "-HUP", "mDNSResponder")
	record("restart mDNSResponder", err)

	_ = os.Remove(b.paths.stagedHosts())
	_ = os.Remove(b.paths.stagedRules())

	metrics.BlockOperation("unblock", firstErr)
	b.log.Info().Msg("Site block removed")
	return firstErr
}

// IsBlockingActive reports whether the hosts file carries the managed markers.
func (b *Blocker) IsBlockingActive() bool {
	content, err := os.ReadFile(b.paths.Hosts)
	if err != nil {
		return false
	}
	return HasSection(string(content))
}

// CleanupIfNeeded removes residual block state left by an unclean shutdown.
// The markers alone drive what is removed; the site list is not consulted.
func (b *Blocker) CleanupIfNeeded(ctx context.Context) error {
	b.log.Debug().Msg("Checking for residual block state")
	return b.Unblock(ctx)
}

// backup writes the hosts content, minus any managed section, to the backup path.
func (b *Blocker) backup(current string) error {
	if err := os.MkdirAll(b.paths.BackupDir, 0755); err != nil {
		return errors.Wrap(err, "create backup directory")
	}
	if err := os.WriteFile(b.paths.BackupPath(), []byte(StripSection(current)), 0644); err != nil {
		return errors.Wrap(err, "write hosts backup")
	}
	return nil
}
