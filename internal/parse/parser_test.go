package parse

import (
	"context"
	"testing"

	"orderdesk/internal"
	"orderdesk/internal/unit"
)

func TestParseItemsEndToEnd(t *testing.T) {
	catalog := []internal.CatalogItem{item("i1", "Angkor Beer (can)", unit.Can)}
	text := "angkor beer x5\nAngkor Beer 3"

	got, err := New(Options{}).ParseItems(context.Background(), text, catalog, internal.AliasRules{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d items want 1", len(got))
	}
	want := internal.ParsedMatch("i1", 8, unit.Can)
	if got[0] != want {
		t.Fatalf("got %+v want %+v", got[0], want)
	}
}

func TestParseItemsAggregatesRepeatedLines(t *testing.T) {
	got, err := New(Options{}).ParseItems(context.Background(), "2kg carrots\n2kg carrots", nil, internal.AliasRules{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d items want 1", len(got))
	}
	if got[0].Quantity != 4 {
		t.Fatalf("quantity got %v want 4", got[0].Quantity)
	}
}

func TestParseItemsMatchedUnitOverridesTyped(t *testing.T) {
	catalog := []internal.CatalogItem{item("i1", "Angkor Beer (can)", unit.Can)}

	got, err := New(Options{}).ParseItems(context.Background(), "angkor beer 2 btl", catalog, internal.AliasRules{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Kind != internal.ItemMatched {
		t.Fatalf("got %+v want one matched item", got)
	}
	if got[0].Unit != unit.Can {
		t.Fatalf("unit got %q want %q", got[0].Unit, unit.Can)
	}
}

func TestParseItemsNewItemKeepsExtractedUnit(t *testing.T) {
	got, err := New(Options{}).ParseItems(context.Background(), "2kg carrots", nil, internal.AliasRules{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d items want 1", len(got))
	}
	want := internal.ParsedNew("carrots", 2, unit.Kilogram)
	if got[0] != want {
		t.Fatalf("got %+v want %+v", got[0], want)
	}
}

func TestParseItemsQuantityDefaultsToOne(t *testing.T) {
	got, err := New(Options{}).ParseItems(context.Background(), "Angkor Beer", nil, internal.AliasRules{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d items want 1", len(got))
	}
	if got[0].Quantity != 1 {
		t.Fatalf("quantity got %v want 1", got[0].Quantity)
	}
	if got[0].NewItemName != "Angkor Beer" {
		t.Fatalf("name got %q want %q", got[0].NewItemName, "Angkor Beer")
	}
}

func TestParseItemsDropsUnusableLines(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{name: "blank lines", text: "\n\n  \n"},
		{name: "numbers only", text: "5\n12"},
		{name: "punctuation only", text: "---\n***"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := New(Options{}).ParseItems(context.Background(), tc.text, nil, internal.AliasRules{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != 0 {
				t.Fatalf("got %d items want 0: %+v", len(got), got)
			}
		})
	}
}

func TestParseItemsWeakMatchFallsThroughToNewItem(t *testing.T) {
	catalog := []internal.CatalogItem{
		item("c1", "Chicken Breast", unit.Kilogram),
		item("c2", "Chicken Thigh", unit.Kilogram),
		item("c3", "Beef Chicken Mix", unit.Pack),
	}

	got, err := New(Options{}).ParseItems(context.Background(), "chicken", catalog, internal.AliasRules{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Kind != internal.ItemNew {
		t.Fatalf("got %+v want one new item", got)
	}
	if got[0].NewItemName != "chicken" {
		t.Fatalf("name got %q want %q", got[0].NewItemName, "chicken")
	}
}

func TestParseItemsAppliesAliases(t *testing.T) {
	catalog := []internal.CatalogItem{item("i1", "Angkor Beer (can)", unit.Can)}

	t.Run("global alias", func(t *testing.T) {
		rules := internal.AliasRules{Global: map[string]string{"ab": "angkor beer"}}
		got, err := New(Options{}).ParseItems(context.Background(), "ab x2", catalog, rules)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || got[0].MatchedItemID != "i1" {
			t.Fatalf("got %+v want match on i1", got)
		}
		if got[0].Quantity != 2 {
			t.Fatalf("quantity got %v want 2", got[0].Quantity)
		}
	})

	t.Run("per-store wins over global", func(t *testing.T) {
		rules := internal.AliasRules{
			Global:   map[string]string{"ab": "apple brandy"},
			PerStore: map[string]string{"AB": "angkor beer"},
		}
		got, err := New(Options{}).ParseItems(context.Background(), "ab", catalog, rules)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || got[0].MatchedItemID != "i1" {
			t.Fatalf("got %+v want match on i1", got)
		}
	})
}

func TestParseItemsAggregatesNewItemsCaseInsensitively(t *testing.T) {
	got, err := New(Options{}).ParseItems(context.Background(), "Carrots 2\ncarrots 3", nil, internal.AliasRules{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d items want 1", len(got))
	}
	if got[0].NewItemName != "Carrots" || got[0].Quantity != 5 {
		t.Fatalf("got %+v want Carrots qty 5", got[0])
	}
}

func TestCombineAliases(t *testing.T) {
	rules := internal.AliasRules{
		Global:   map[string]string{" Coke ": "Coca Cola", "ab": "apple brandy"},
		PerStore: map[string]string{"AB": "Angkor Beer"},
	}
	combined := CombineAliases(rules)
	if got := combined["coke"]; got != "Coca Cola" {
		t.Fatalf("coke got %q want %q", got, "Coca Cola")
	}
	if got := combined["ab"]; got != "Angkor Beer" {
		t.Fatalf("ab got %q want %q (per-store must win)", got, "Angkor Beer")
	}
}
