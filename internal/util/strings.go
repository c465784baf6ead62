// Package util provides small helpers shared across the social-auth library.
package util

import "strings"

// SafeTruncate truncates a string to maxLen characters without panicking.
// Used when logging secrets (states, codes, tokens) where only a short
// prefix may appear in logs.
//
// Example:
//
//	SafeTruncate("very-long-state-abc123", 8) // Returns: "very-lon"
//	SafeTruncate("short", 10)                 // Returns: "short"
func SafeTruncate(s string, maxLen int) string {
	if maxLen < 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// SplitAndTrim splits a comma-separated configuration value into its
// non-empty, whitespace-trimmed segments. Empty segments (including those
// produced by trailing commas) are discarded.
func SplitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
