package shared

import "strings"

// NormalizePostalCode widens a postal code to the given width by left-padding
// with zeros. Postal codes are compared as fixed-width strings, never as
// locale-dependent numbers: "0750" and "750" are the same code, "34710" and
// "4710" are not.
func NormalizePostalCode(code string, width int) string {
	code = strings.TrimSpace(code)
	if len(code) >= width {
		return code
	}
	return strings.Repeat("0", width-len(code)) + code
}

// PostalCodeInRange reports whether code falls inside the inclusive
// [from, to] range. All three values are zero-padded to the widest of the
// bounds before comparison so that numeric-looking codes of differing
// lengths order correctly.
func PostalCodeInRange(code, from, to string) bool {
	code = strings.TrimSpace(code)
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if code == "" {
		return false
	}
	if from == "" && to == "" {
		return false
	}

	width := len(code)
	if len(from) > width {
		width = len(from)
	}
	if len(to) > width {
		width = len(to)
	}

	code = NormalizePostalCode(code, width)
	if from != "" && code < NormalizePostalCode(from, width) {
		return false
	}
	if to != "" && code > NormalizePostalCode(to, width) {
		return false
	}
	return true
}
