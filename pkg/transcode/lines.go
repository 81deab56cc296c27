package transcode

import "strings"

// SplitLines breaks s on "\n" and keeps the newline on every fragment but the last.
// An empty string yields a single empty fragment, so JoinLines(SplitLines(s)) == s always holds.
func SplitLines(s string) []string {
	parts := strings.Split(s, "\n")
	for i := 0; i < len(parts)-1; i++ {
		parts[i] += "\n"
	}
	return parts
}

// JoinLines concatenates the fragments in order.
func JoinLines(fragments []string) string {
	return strings.Join(fragments, "")
}
