// Package lineitem splits document text into candidate lines and picks out
// the trailing monetary amounts of price lines.
package lineitem

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// pricePattern matches a line ending in <digits>.<two digits>
var pricePattern = regexp.MustCompile(`(?m)^.*?\b(\d+\.\d{2})$`)

var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// normalizeBreaks converts CRLF and CR line endings to LF
func normalizeBreaks(text string) string {
	return lineBreaks.Replace(text)
}

// Lines returns the non-blank lines of text in order. Lines are returned as
// they appear, without trimming.
func Lines(text string) []string {
	var lines []string
	for _, line := range strings.Split(normalizeBreaks(text), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// Amounts returns the trailing amount of every price line in text, in the
// order the lines appear
func Amounts(text string) []decimal.Decimal {
	matches := pricePattern.FindAllStringSubmatch(normalizeBreaks(text), -1)
	amounts := make([]decimal.Decimal, 0, len(matches))
	for _, m := range matches {
		// the pattern only admits plain decimals
		amounts = append(amounts, decimal.RequireFromString(m[1]))
	}
	return amounts
}

// AmountOf returns the trailing amount of a single line
func AmountOf(line string) (decimal.Decimal, bool) {
	m := pricePattern.FindStringSubmatch(line)
	if m == nil {
		return decimal.Decimal{}, false
	}
	return decimal.RequireFromString(m[1]), true
}
