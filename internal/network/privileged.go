package network

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrPermissionDenied is returned when the privileged batch could not run.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrPrivilegeCancelled is returned when the user dismissed the authorization prompt.
	ErrPrivilegeCancelled = errors.WithMessage(ErrPermissionDenied, "authorization cancelled by user")
)

// shellQuote wraps a string in single quotes with proper escaping for shell interpolation.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}

// appleScriptString quotes s as an AppleScript string literal.
func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// blockScript builds the single shell command run with elevated rights.
// pf failures are tolerated so a missing pf anchor never blocks the hosts write.
func blockScript(p Paths, withRules bool) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("cp %s %s", shellQuote(p.stagedHosts()), shellQuote(p.Hosts)))
	if withRules {
		parts = append(parts, fmt.Sprintf("(pfctl -a %s -f %s 2>/dev/null || true)", shellQuote(p.Anchor), shellQuote(p.stagedRules())))
		parts = append(parts, "(pfctl -e 2>/dev/null || true)")
	}
	parts = append(parts, "dscacheutil -flushcache")
	parts = append(parts, "killall -HUP mDNSResponder")
	parts = append(parts, fmt.Sprintf("chmod 646 %s", shellQuote(p.Hosts)))

	return strings.Join(parts, " && ")
}

// escalate runs script once with administrator privileges through osascript.
func escalate(ctx context.Context, runner Runner, script string) error {
	apple := fmt.Sprintf("do shell script %s with administrator privileges", appleScriptString(script))

	_, stderr, err := runner.Run(ctx, "osascript", "-e", apple)
	if err == nil {
		return nil
	}

	msg := strings.TrimSpace(string(stderr))
	if strings.Contains(msg, "User cancelled") || strings.Contains(msg, "(-128)") {
		return ErrPrivilegeCancelled
	}
	if msg == "" {
		msg = err.Error()
	}
	return errors.Wrap(ErrPermissionDenied, msg)
}
