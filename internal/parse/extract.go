package parse

import (
	"regexp"
	"strconv"
	"strings"

	"orderdesk/internal/unit"
)

// Extraction is the quantity/unit reading for one line plus the remaining
// text, which becomes the item name candidate.
type Extraction struct {
	Quantity float64
	Unit     unit.Unit
	Rest     string
}

var (
	unitToken = unit.TokenPattern()

	reSpacedDecimal = regexp.MustCompile(`(?i)(?:^|\s)0[\s.,]+(\d+)\s*(` + unitToken + `)\b`)
	reNumberUnit    = regexp.MustCompile(`(?i)\b(\d+(?:[.,]\d+)?)\s*(` + unitToken + `)\b`)
	reXNum          = regexp.MustCompile(`(?i)(?:^|\s)x\s*(\d+(?:[.,]\d+)?)\b`)
	reNumX          = regexp.MustCompile(`(?i)(?:^|\s)(\d+(?:[.,]\d+)?)\s*x\b`)
	reTrailingNum   = regexp.MustCompile(`(?:^|\s)(\d+(?:[.,]\d+)?)\s*$`)
	reLeadingNum    = regexp.MustCompile(`^\s*(\d+(?:[.,]\d+)?)(?:\s|$)`)
	reUnitAlone     = regexp.MustCompile(`(?i)(?:^|\s)(` + unitToken + `)(?:\s|$)`)
	reSpaces        = regexp.MustCompile(`\s+`)
)

type quantityMatcher func(line string) (qty float64, u unit.Unit, rest string, ok bool)

// Matchers run in order; the first hit wins and stops the search. A
// unit-only fallback runs afterwards when no unit was captured.
var quantityMatchers = []quantityMatcher{
	matchSpacedDecimal,
	matchNumberWithUnit,
	matchXNotation,
	matchTrailingNumber,
	matchLeadingNumber,
}

// Extract reads quantity and unit out of one list line. Lines without a
// quantity default to 1; lines without a recognizable unit leave it empty.
func Extract(line string) Extraction {
	ext := Extraction{Quantity: 1}
	rest := line
	for _, match := range quantityMatchers {
		q, u, remainder, ok := match(rest)
		if !ok {
			continue
		}
		if q > 0 {
			ext.Quantity = q
		}
		ext.Unit = u
		rest = remainder
		break
	}
	if ext.Unit == "" {
		if m := reUnitAlone.FindStringSubmatchIndex(rest); m != nil {
			if u, ok := unit.Normalize(rest[m[2]:m[3]]); ok {
				ext.Unit = u
				rest = cut(rest, m[0], m[1])
			}
		}
	}
	ext.Rest = normalizeSpaces(rest)
	return ext
}

// "0 5 kg" is a decimal typed with a space. Only fires when the leading
// digit group is exactly 0, so "10 5 kg" stays untouched.
func matchSpacedDecimal(line string) (float64, unit.Unit, string, bool) {
	m := reSpacedDecimal.FindStringSubmatchIndex(line)
	if m == nil {
		return 0, "", line, false
	}
	q, err := strconv.ParseFloat("0."+line[m[2]:m[3]], 64)
	if err != nil {
		return 0, "", line, false
	}
	u, _ := unit.Normalize(line[m[4]:m[5]])
	return q, u, cut(line, m[0], m[1]), true
}

func matchNumberWithUnit(line string) (float64, unit.Unit, string, bool) {
	m := reNumberUnit.FindStringSubmatchIndex(line)
	if m == nil {
		return 0, "", line, false
	}
	q, ok := parseNumber(line[m[2]:m[3]])
	if !ok {
		return 0, "", line, false
	}
	u, _ := unit.Normalize(line[m[4]:m[5]])
	return q, u, cut(line, m[0], m[1]), true
}

func matchXNotation(line string) (float64, unit.Unit, string, bool) {
	for _, re := range []*regexp.Regexp{reXNum, reNumX} {
		m := re.FindStringSubmatchIndex(line)
		if m == nil {
			continue
		}
		if q, ok := parseNumber(line[m[2]:m[3]]); ok {
			return q, "", cut(line, m[0], m[1]), true
		}
	}
	return 0, "", line, false
}

func matchTrailingNumber(line string) (float64, unit.Unit, string, bool) {
	m := reTrailingNum.FindStringSubmatchIndex(line)
	if m == nil {
		return 0, "", line, false
	}
	q, ok := parseNumber(line[m[2]:m[3]])
	if !ok {
		return 0, "", line, false
	}
	return q, "", cut(line, m[0], m[1]), true
}

func matchLeadingNumber(line string) (float64, unit.Unit, string, bool) {
	m := reLeadingNum.FindStringSubmatchIndex(line)
	if m == nil {
		return 0, "", line, false
	}
	q, ok := parseNumber(line[m[2]:m[3]])
	if !ok {
		return 0, "", line, false
	}
	return q, "", cut(line, m[0], m[1]), true
}

func parseNumber(token string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(token, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func cut(line string, start, end int) string {
	return line[:start] + " " + line[end:]
}

func normalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}
