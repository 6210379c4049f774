package catalog

import (
	"regexp"
	"strings"
)

var (
	isbn10Prefix = regexp.MustCompile(`^ISBN(?:-10)?:? `)
	isbn13Prefix = regexp.MustCompile(`^ISBN(?:-13)?:? `)
	isbn10Body   = regexp.MustCompile(`^[0-9]{1,5}[- ]?[0-9]+[- ]?[0-9]+[- ]?[0-9X]$`)
	isbn13Body   = regexp.MustCompile(`^97[89][- ]?[0-9]{1,5}[- ]?[0-9]+[- ]?[0-9]+[- ]?[0-9]$`)
)

// IsISBN10Shaped reports whether value looks like an ISBN-10: ten characters without
// separators, or thirteen characters split into four groups by hyphens or spaces.
// The check digit is not verified.
func IsISBN10Shaped(value string) bool {
	body := isbn10Prefix.ReplaceAllString(value, "")
	if !isbn10Body.MatchString(body) {
		return false
	}

	switch len(body) {
	case 10:
		return separatorCount(body) == 0
	case 13:
		return separatorCount(body) == 3
	default:
		return false
	}
}

// IsISBN13Shaped reports whether value looks like an ISBN-13 starting with 978 or 979:
// thirteen digits, or seventeen characters split into five groups.
func IsISBN13Shaped(value string) bool {
	body := isbn13Prefix.ReplaceAllString(value, "")
	if !isbn13Body.MatchString(body) {
		return false
	}

	switch len(body) {
	case 13:
		return separatorCount(body) == 0
	case 17:
		return separatorCount(body) == 4
	default:
		return false
	}
}

func separatorCount(value string) int {
	return strings.Count(value, "-") + strings.Count(value, " ")
}
