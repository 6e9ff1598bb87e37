package normalize

import "strings"

// Address lowercases and trims a hex address string. An empty or
// whitespace-only input normalizes to "" — callers treat that as absent.
func Address(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// AddressesEqual compares two addresses case-insensitively after trimming.
func AddressesEqual(a, b string) bool {
	return Address(a) == Address(b) && Address(a) != ""
}
