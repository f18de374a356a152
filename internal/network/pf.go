package network

import (
	"fmt"
	"sort"
	"strings"
)

// Anchor is the pf anchor holding the block rules.
const Anchor = "focuslock"

// RenderRules generates the pf rule file content, one rule per IP.
func RenderRules(ips []string) string {
	sorted := append([]string(nil), ips...)
	sort.Strings(sorted)

	var sb strings.Builder
	sb.WriteString("# Focuslock - Site Blocking Rules\n")
	for _, ip := range sorted {
		fmt.Fprintf(&sb, "block drop out proto tcp from any to %s port {80, 443}\n", ip)
	}
	return sb.String()
}
