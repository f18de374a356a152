package process

import (
	"strings"
)

// protectedPrefixes are never matched, whatever the block list says.
var protectedPrefixes = []string{
	"com.apple.",
	"kernel",
	"launchd",
	"systemd",
	"focuslock",
	"finder",
	"windowserver",
	"activitymonitor",
}

// subprocessSuffixes mark helper processes spawned by an app.
var subprocessSuffixes = buildSuffixes("helper", "renderer", "gpu", "utility", "plugin")

// minContainsLen is the shortest candidate allowed to match by substring.
const minContainsLen = 3

func buildSuffixes(words ...string) []string {
	var out []string
	for _, sep := range []string{" ", "_", "-"} {
		for _, w := range words {
			out = append(out, sep+w)
		}
	}
	return out
}

// IsProtected reports whether a process name belongs to the system or to focuslock.
func IsProtected(name string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range protectedPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// Entry is one block list app and the lowercase process names it may run as.
type Entry struct {
	Name       string
	Candidates []string
}

// Matches reports whether the process name matches any candidate.
// Helper subprocesses are never matched. Short candidates only match exactly.
func (e Entry) Matches(processName string) bool {
	lower := strings.ToLower(processName)

	for _, suffix := range subprocessSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return false
		}
	}

	for _, c := range e.Candidates {
		if lower == c {
			return true
		}
	}
	for _, c := range e.Candidates {
		if len(c) >= minContainsLen && strings.Contains(lower, c) {
			return true
		}
	}
	return false
}

// NewEntry builds the candidate list for an app: its display name plus the
// bundle executable name when the resolver knows it.
func NewEntry(name string, resolver ExecutableResolver) Entry {
	entry := Entry{Name: name, Candidates: []string{strings.ToLower(name)}}
	if resolver == nil {
		return entry
	}
	if exec, ok := resolver.ExecutableName(name); ok {
		exec = strings.ToLower(exec)
		if exec != entry.Candidates[0] {
			entry.Candidates = append(entry.Candidates, exec)
		}
	}
	return entry
}

// Entries builds an Entry for every app in the list.
func Entries(apps []string, resolver ExecutableResolver) []Entry {
	entries := make([]Entry, 0, len(apps))
	for _, app := range apps {
		entries = append(entries, NewEntry(app, resolver))
	}
	return entries
}
