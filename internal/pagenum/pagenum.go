// Package pagenum resolves page ordinals from scan filenames.
//
// Scanned archives mix two naming conventions: originals carry the page
// number as a trailing three-digit group ("parish_register_026.png"), while
// storage-renamed uploads carry it as a three-digit prefix followed by a
// random suffix ("026_fwlK4fY.png"). The resolver applies an ordered rule
// chain, most specific first, and never guesses: when no rule matches the
// caller decides the fallback.
package pagenum

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Rule is a single named pattern in the resolution chain. The capture
// group holds the digit run.
type Rule struct {
	Name    string
	pattern *regexp.Regexp
}

// Ordered chain, first match wins. The prefix rule outranks the trailing
// rule so a random storage suffix that happens to end in three digits
// cannot shadow the real page number.
var rules = []Rule{
	{Name: "prefix-three-digits", pattern: regexp.MustCompile(`^(\d{3})[ ._-]`)},
	{Name: "trailing-three-digits", pattern: regexp.MustCompile(`(?:^|\D)(\d{3})$`)},
	{Name: "prefix-digits", pattern: regexp.MustCompile(`^(\d+)`)},
	{Name: "trailing-digits", pattern: regexp.MustCompile(`(\d+)$`)},
}

// Resolve extracts a positive page number from a filename. It returns
// (0, false) when no rule yields a positive value. A matched run of zeros
// falls through to the next rule rather than producing page zero.
func Resolve(filename string) (int, bool) {
	base := baseName(filename)
	if base == "" {
		return 0, false
	}

	for _, rule := range rules {
		m := rule.pattern.FindStringSubmatch(base)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			continue
		}
		return n, true
	}
	return 0, false
}

// ResolveRule is Resolve plus the name of the rule that matched, for
// repair reports that explain where each correction came from.
func ResolveRule(filename string) (int, string, bool) {
	base := baseName(filename)
	if base == "" {
		return 0, "", false
	}

	for _, rule := range rules {
		m := rule.pattern.FindStringSubmatch(base)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			continue
		}
		return n, rule.Name, true
	}
	return 0, "", false
}

// RuleNames returns the chain's rule names in precedence order.
func RuleNames() []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name
	}
	return names
}

// baseName strips any directory prefix and the final extension.
func baseName(filename string) string {
	base := filepath.Base(filename)
	if idx := strings.LastIndexByte(base, '.'); idx >= 0 {
		base = base[:idx]
	}
	return base
}
