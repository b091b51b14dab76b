// Package price normalizes scraped price text into numeric values.
package price

import (
	"strconv"
	"strings"
)

// Parse strips everything except digits, commas and periods, treats commas
// as decimal points and parses the remainder. ok is false for empty input or
// text that does not form a single decimal number.
func Parse(text string) (value float64, ok bool) {
	if text == "" {
		return 0, false
	}
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r == ',':
			b.WriteByte('.')
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Comparable parses both values and reports whether a numeric comparison is possible.
func Comparable(oldText, newText string) (oldValue, newValue float64, ok bool) {
	oldValue, okOld := Parse(oldText)
	newValue, okNew := Parse(newText)
	return oldValue, newValue, okOld && okNew
}
