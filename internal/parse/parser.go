package parse

import (
	"context"
	"regexp"
	"strings"

	"orderdesk/internal"
)

var reNonAlnum = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)

// Parser is the local deterministic backend.
type Parser struct {
	matcher *Matcher
}

func New(opts Options) *Parser {
	return &Parser{matcher: NewMatcher(opts)}
}

// ParseItems implements the backend contract. It never returns an error:
// unusable lines drop out silently, an empty catalog classifies every line
// as a new item, and empty alias rules apply no rewrites.
func (p *Parser) ParseItems(_ context.Context, text string, catalog []internal.CatalogItem, rules internal.AliasRules) ([]internal.ParsedItem, error) {
	aliases := CombineAliases(rules)

	items := make([]internal.ParsedItem, 0)
	for _, line := range splitLines(text) {
		if item, ok := p.parseLine(line, catalog, aliases); ok {
			items = append(items, item)
		}
	}
	return Aggregate(items), nil
}

// Aggregate merges repeated mentions of the same item, summing quantities
// into the first occurrence and keeping first-occurrence order. The key is
// the catalog id for matched items and the lowercased name for new ones.
func Aggregate(items []internal.ParsedItem) []internal.ParsedItem {
	out := make([]internal.ParsedItem, 0, len(items))
	byKey := map[string]int{}
	for _, item := range items {
		key := aggregationKey(item)
		if at, seen := byKey[key]; seen {
			out[at].Quantity += item.Quantity
			continue
		}
		byKey[key] = len(out)
		out = append(out, item)
	}
	return out
}

// parseLine turns one raw line into at most one item: extract quantity and
// unit, clean the remainder into a name candidate, alias it, match it.
func (p *Parser) parseLine(line string, catalog []internal.CatalogItem, aliases map[string]string) (internal.ParsedItem, bool) {
	ext := Extract(line)
	candidate := cleanCandidate(ext.Rest)
	if candidate == "" {
		return internal.ParsedItem{}, false
	}
	candidate = applyAliases(candidate, aliases)

	if match := p.matcher.FindBest(candidate, catalog); match != nil {
		// The catalog unit is authoritative; whatever the user typed is
		// discarded for matched items.
		return internal.ParsedMatch(match.ID, ext.Quantity, match.Unit), true
	}
	return internal.ParsedNew(candidate, ext.Quantity, ext.Unit), true
}

func aggregationKey(item internal.ParsedItem) string {
	if item.Kind == internal.ItemMatched {
		return "id:" + item.MatchedItemID
	}
	return "new:" + strings.ToLower(item.NewItemName)
}

func cleanCandidate(rest string) string {
	return normalizeSpaces(reNonAlnum.ReplaceAllString(rest, " "))
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
