// Package normalize canonicalizes URLs for equality comparison.
//
// Every dedup decision in the system (item merge, search result
// classification, highlighted-URL matching) goes through URL here; two URLs
// are considered the same page exactly when their normalized forms are equal.
package normalize

import "strings"

// URL returns the canonical form of a URL: lowercased, scheme and leading
// "www." label stripped, single trailing slash removed. It is total (never
// fails; unparsable input is just lowercased and trimmed) and idempotent.
func URL(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))

	// Trim to a fixed point so stacked prefixes ("www.www.example.com",
	// "http://https://example.com") normalize the same as their collapsed
	// forms; a single pass over them would not be idempotent.
	for {
		t := strings.TrimPrefix(s, "https://")
		t = strings.TrimPrefix(t, "http://")
		t = strings.TrimPrefix(t, "www.")
		if t == s {
			break
		}
		s = t
	}
	// TrimRight rather than a single TrimSuffix keeps the function
	// idempotent for inputs like "example.com//".
	s = strings.TrimRight(s, "/")

	return s
}

// Equal reports whether two URLs identify the same page under URL.
func Equal(a, b string) bool {
	return URL(a) == URL(b)
}
