package ai

import (
	"fmt"
	"sort"
	"strings"

	"orderdesk/internal"
	"orderdesk/internal/parse"
	"orderdesk/internal/unit"
)

// Catalogs larger than this are cut off in the prompt; the tail still
// matches locally, the model just cannot reference it by id.
const maxCatalogRows = 400

const systemPrompt = "You turn free-form supply lists into structured order items. " +
	"Reply with a single JSON array and nothing else: no prose, no code fences."

func buildUserPrompt(text string, catalog []internal.CatalogItem, rules internal.AliasRules) string {
	var b strings.Builder

	b.WriteString("Parse every line of the item list at the end into one object of a JSON array.\n")
	b.WriteString("Object fields:\n")
	b.WriteString("- \"matchedItemId\": id of the catalog item the line clearly refers to; omit when nothing fits.\n")
	b.WriteString("- \"newItemName\": cleaned item name when no catalog item fits; never set both fields.\n")
	b.WriteString("- \"quantity\": positive number; use 1 when the line names no amount.\n")
	b.WriteString("- \"unit\": only for new items, one of: " + unitVocabulary() + "; omit when unsure. Matched items never carry a unit.\n")
	b.WriteString("Apply the aliases before matching. Merge repeated mentions of one item by summing quantities. Skip lines without an item name.\n")

	if aliases := parse.CombineAliases(rules); len(aliases) > 0 {
		sources := make([]string, 0, len(aliases))
		for src := range aliases {
			sources = append(sources, src)
		}
		sort.Strings(sources)

		b.WriteString("\nAliases (typed text -> canonical name):\n")
		for _, src := range sources {
			fmt.Fprintf(&b, "%s -> %s\n", src, aliases[src])
		}
	}

	if len(catalog) > 0 {
		b.WriteString("\nCatalog (id | name | unit):\n")
		rows := catalog
		if len(rows) > maxCatalogRows {
			rows = rows[:maxCatalogRows]
		}
		for _, it := range rows {
			fmt.Fprintf(&b, "%s | %s | %s\n", it.ID, it.Name, it.Unit)
		}
		if len(catalog) > maxCatalogRows {
			fmt.Fprintf(&b, "(%d more items omitted)\n", len(catalog)-maxCatalogRows)
		}
	}

	b.WriteString("\nItem list:\n")
	b.WriteString(text)
	return b.String()
}

func unitVocabulary() string {
	units := unit.All()
	parts := make([]string, len(units))
	for i, u := range units {
		parts[i] = string(u)
	}
	return strings.Join(parts, ", ")
}
