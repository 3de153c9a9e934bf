package unit

import (
	"sort"
	"strings"
)

// Unit is a canonical order unit. Raw tokens normalize into this closed
// vocabulary; tokens outside it are never guessed at.
type Unit string

const (
	Piece    Unit = "pc"
	Kilogram Unit = "kg"
	Liter    Unit = "l"
	Roll     Unit = "roll"
	Block    Unit = "block"
	Box      Unit = "box"
	Pack     Unit = "pack"
	Bottle   Unit = "bottle"
	Can      Unit = "can"
	Glass    Unit = "glass"
	Case     Unit = "case"
	Carton   Unit = "carton"
	Jar      Unit = "jar"
)

var synonyms = map[string]Unit{
	"pc": Piece, "pcs": Piece, "piece": Piece, "pieces": Piece,
	"kg": Kilogram, "kgs": Kilogram, "kilo": Kilogram, "kilos": Kilogram, "kilogram": Kilogram, "kilograms": Kilogram,
	"l": Liter, "liter": Liter, "liters": Liter, "litre": Liter, "litres": Liter,
	"roll": Roll, "rolls": Roll,
	"block": Block, "blocks": Block,
	"box": Box, "boxes": Box, "bx": Box,
	"pack": Pack, "packs": Pack, "pax": Pack, "pk": Pack,
	"bottle": Bottle, "bottles": Bottle, "btl": Bottle, "btls": Bottle, "bt": Bottle,
	"can": Can, "cans": Can,
	"glass": Glass, "glasses": Glass,
	"case": Case, "cases": Case,
	"carton": Carton, "cartons": Carton, "ctn": Carton,
	"jar": Jar, "jars": Jar,
}

// Normalize maps a raw token onto the canonical vocabulary. Matching is
// case-insensitive and ignores surrounding space; unknown tokens report false.
func Normalize(raw string) (Unit, bool) {
	u, ok := synonyms[strings.ToLower(strings.TrimSpace(raw))]
	return u, ok
}

// All lists the canonical units in declaration order.
func All() []Unit {
	return []Unit{Piece, Kilogram, Liter, Roll, Block, Box, Pack, Bottle, Can, Glass, Case, Carton, Jar}
}

// TokenPattern returns a regexp alternation over every known token, longest
// first so that e.g. "pcs" is not consumed as "pc".
func TokenPattern() string {
	toks := make([]string, 0, len(synonyms))
	for t := range synonyms {
		toks = append(toks, t)
	}
	sort.Slice(toks, func(i, j int) bool {
		if len(toks[i]) != len(toks[j]) {
			return len(toks[i]) > len(toks[j])
		}
		return toks[i] < toks[j]
	})
	return strings.Join(toks, "|")
}
