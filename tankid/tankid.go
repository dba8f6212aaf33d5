/*
Package tankid normalizes and formats gas-tank identifiers.

PURPOSE:
  Tank IDs arrive from the field in every shape humans can produce:
  "A-01", "a1", full-width "Ａ０１", "A_1". Every lookup in the status
  table goes through the canonical form produced here, so the rest of
  the system never compares raw IDs.

KEY FUNCTIONS:
  Normalize:     raw ID -> canonical key (lookup form)
  Match:         tolerant equality ("A1" matches "A-01")
  FormatDisplay: canonical key -> display form ("A1" -> "A-01")

DESIGN PRINCIPLES:
  1. Pure functions, no state, no errors: bad input degrades to ""
  2. Idempotent: Normalize(Normalize(x)) == Normalize(x)
  3. Numeric-suffix tolerance is deliberate - it absorbs data-entry
     variance between paper tags and the status sheet

SEE ALSO:
  - inventory/validator.go: resolves every submitted ID through Normalize
  - inventory/writer.go: writes FormatDisplay forms into the history log
*/
package tankid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	separators = strings.NewReplacer("-", "", "−", "", "ー", "", "_", "", " ", "", "　", "")

	numericID = regexp.MustCompile(`^([A-Z]+)(\d+)$`)
	okID      = regexp.MustCompile(`^([A-Z]+)(OK)$`)
)

// Normalize converts a raw tank ID into its canonical key: full-width
// alphanumerics folded to half-width, uppercased, separators stripped.
// Empty input yields "".
func Normalize(id string) string {
	if id == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		// Full-width 0-9A-Za-z to half-width.
		if (r >= '０' && r <= '９') || (r >= 'Ａ' && r <= 'Ｚ') || (r >= 'ａ' && r <= 'ｚ') {
			r -= 0xFEE0
		}
		b.WriteRune(r)
	}
	return separators.Replace(strings.ToUpper(b.String()))
}

// Match reports whether two IDs refer to the same tank. IDs match when
// their canonical forms are equal, or when both are letter-prefix +
// digits with the same prefix and numerically equal digits, so "A1"
// matches "A-01" but not "A2" or "B1".
func Match(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return true
	}
	ma := numericID.FindStringSubmatch(na)
	mb := numericID.FindStringSubmatch(nb)
	if ma == nil || mb == nil {
		return false
	}
	if ma[1] != mb[1] {
		return false
	}
	va, errA := strconv.Atoi(ma[2])
	vb, errB := strconv.Atoi(mb[2])
	return errA == nil && errB == nil && va == vb
}

// FormatDisplay renders a tank ID for logs and screens. Canonical
// PREFIX+digits becomes "PREFIX-NN" zero-padded to two digits;
// PREFIX+"OK" becomes "PREFIX-OK"; anything else passes through as-is.
func FormatDisplay(id string) string {
	if id == "" {
		return ""
	}
	s := Normalize(id)
	if m := numericID.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[2])
		if err == nil {
			return fmt.Sprintf("%s-%02d", m[1], n)
		}
	}
	if m := okID.FindStringSubmatch(s); m != nil {
		return m[1] + "-" + m[2]
	}
	return id
}

// Prefix returns the leading letter run of a canonical ID, or "" when
// the ID does not start with a letter. Used to group tanks by series.
func Prefix(id string) string {
	s := Normalize(id)
	for i, r := range s {
		if r < 'A' || r > 'Z' {
			return s[:i]
		}
	}
	return s
}
