// Package normalize produces the comparison keys used for uniqueness checks.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Email trims and lowercases an email address.
func Email(email string) string {
	return key(email)
}

// LabelName returns the per-owner uniqueness key of a label name.
func LabelName(name string) string {
	return key(name)
}

// key trims, composes and lowercases s. A Caser is stateful, so each call
// builds its own.
func key(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	return cases.Lower(language.Und).String(s)
}
