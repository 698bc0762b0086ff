// Package country resolves loose country-name spellings into equivalence classes.
package country

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// MinSubstringLength is the shortest contained name that may match by substring.
const MinSubstringLength = 5

// Matches reports whether candidate and target name the same country. It is
// pure and symmetric.
func Matches(candidate, target string) bool {
	a, b := normalize(candidate), normalize(target)
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	if ga, ok := groupIndex[a]; ok {
		if gb, ok := groupIndex[b]; ok && ga == gb {
			return true
		}
	}
	return containsLong(a, b) || containsLong(b, a)
}

// Canonical returns the canonical name of the alias group containing name, or
// the normalized name when it belongs to no group.
func Canonical(name string) string {
	n := normalize(name)
	if g, ok := groupIndex[n]; ok {
		return aliasGroups[g][0]
	}
	return n
}

func containsLong(outer, inner string) bool {
	return utf8.RuneCountInString(inner) >= MinSubstringLength && strings.Contains(outer, inner)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(cases.Fold().String(s)), " ")
}
