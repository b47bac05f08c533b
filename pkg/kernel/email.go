package kernel

import "strings"

// NormalizeEmail lowercases and trims an address. Every lookup keyed by email
// goes through it so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
