package network

import (
	"strings"
)

// Markers delimiting the managed section of the hosts file.
const (
	MarkerStart = "# === FOCUSLOCK BLOCK START ==="
	MarkerEnd   = "# === FOCUSLOCK BLOCK END ==="
)

// HasSection reports whether content contains a managed section.
func HasSection(content string) bool {
	return strings.Contains(content, MarkerStart)
}

// StripSection removes every managed section from content.
// Trailing blank lines are collapsed so that strip(render(x)) == strip(x).
func StripSection(content string) string {
	var kept []string
	inBlock := false

	for _, line := range strings.Split(content, "\n") {
		if strings.Contains(line, MarkerStart) {
			inBlock = true
			continue
		}
		if strings.Contains(line, MarkerEnd) {
			inBlock = false
			continue
		}
		if !inBlock {
			kept = append(kept, line)
		}
	}

	result := strings.TrimRight(strings.Join(kept, "\n"), "\n")
	if result == "" {
		return ""
	}
	return result + "\n"
}

// RenderSection appends a fresh managed section for domains to content.
// Any existing section is removed first. Each domain maps to both 0.0.0.0 and 127.0.0.1.
func RenderSection(content string, domains []string) string {
	var sb strings.Builder

	sb.WriteString(StripSection(content))
	sb.WriteString("\n")
	sb.WriteString(MarkerStart)
	sb.WriteString("\n")
	for _, domain := range domains {
		sb.WriteString("0.0.0.0 " + domain + "\n")
		sb.WriteString("127.0.0.1 " + domain + "\n")
	}
	sb.WriteString(MarkerEnd)
	sb.WriteString("\n")

	return sb.String()
}
