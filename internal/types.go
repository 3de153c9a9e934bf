package internal

import (
	"context"

	"orderdesk/internal/unit"
)

type CatalogItem struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Unit       unit.Unit `json:"unit"`
	SupplierID string    `json:"supplierId,omitempty"`
}

// AliasRules maps raw user-typed phrases to canonical catalog phrases.
// PerStore entries win over Global entries on the same key.
type AliasRules struct {
	Global   map[string]string `json:"global,omitempty"`
	PerStore map[string]string `json:"perStore,omitempty"`
}

// AliasRow is one stored alias rule. An empty Scope means the rule is
// global; otherwise Scope holds the store the rule belongs to.
type AliasRow struct {
	Scope  string `json:"scope"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type ParsedItemKind string

const (
	ItemMatched ParsedItemKind = "matched"
	ItemNew     ParsedItemKind = "new"
)

// ParsedItem is one structured result line. Kind decides which name field is
// set: MatchedItemID for ItemMatched, NewItemName for ItemNew, never both.
// Matched items always carry the catalog item's unit.
type ParsedItem struct {
	Kind          ParsedItemKind `json:"kind"`
	MatchedItemID string         `json:"matchedItemId,omitempty"`
	NewItemName   string         `json:"newItemName,omitempty"`
	Quantity      float64        `json:"quantity"`
	Unit          unit.Unit      `json:"unit,omitempty"`
}

func ParsedMatch(itemID string, qty float64, u unit.Unit) ParsedItem {
	return ParsedItem{Kind: ItemMatched, MatchedItemID: itemID, Quantity: qty, Unit: u}
}

func ParsedNew(name string, qty float64, u unit.Unit) ParsedItem {
	return ParsedItem{Kind: ItemNew, NewItemName: name, Quantity: qty, Unit: u}
}

// Parser is the contract both backends honor. The local parser never returns
// an error; the AI backend returns typed sentinel errors and no partials.
type Parser interface {
	ParseItems(ctx context.Context, text string, catalog []CatalogItem, rules AliasRules) ([]ParsedItem, error)
}

type ParseSummary struct {
	Lines    int `json:"lines"`
	Matched  int `json:"matched"`
	NewItems int `json:"newItems"`
}

func Summarize(items []ParsedItem) ParseSummary {
	s := ParseSummary{Lines: len(items)}
	for _, it := range items {
		if it.Kind == ItemMatched {
			s.Matched++
		} else {
			s.NewItems++
		}
	}
	return s
}

type OrderStatus string

const (
	OrderOpen       OrderStatus = "open"
	OrderDispatched OrderStatus = "dispatched"
	OrderOnTheWay   OrderStatus = "on_the_way"
	OrderCompleted  OrderStatus = "completed"
)

type OrderItem struct {
	ItemID   string    `json:"itemId"`
	Name     string    `json:"name"`
	Quantity float64   `json:"quantity"`
	Unit     unit.Unit `json:"unit,omitempty"`
}

type Order struct {
	ID         string      `json:"id"`
	StoreID    string      `json:"storeId"`
	SupplierID string      `json:"supplierId"`
	Status     OrderStatus `json:"status"`
	CreatedAt  string      `json:"createdAt"`
	UpdatedAt  string      `json:"updatedAt"`
	Items      []OrderItem `json:"items"`
}

type ParseRun struct {
	ID        int
	Source    string
	Backend   string
	Lines     int
	Matched   int
	NewItems  int
	CreatedAt string
}
