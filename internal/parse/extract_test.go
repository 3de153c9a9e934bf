package parse

import (
	"testing"

	"orderdesk/internal/unit"
)

func TestExtract(t *testing.T) {
	cases := []struct {
		name  string
		input string
		qty   float64
		unit  unit.Unit
		rest  string
	}{
		{name: "number glued to unit", input: "2kg carrots", qty: 2, unit: unit.Kilogram, rest: "carrots"},
		{name: "number spaced from unit", input: "pork belly 2 kg", qty: 2, unit: unit.Kilogram, rest: "pork belly"},
		{name: "decimal dot", input: "1.5l water", qty: 1.5, unit: unit.Liter, rest: "water"},
		{name: "decimal comma", input: "0,5 l milk", qty: 0.5, unit: unit.Liter, rest: "milk"},
		{name: "spaced decimal repair", input: "0 5 kg rice", qty: 0.5, unit: unit.Kilogram, rest: "rice"},
		{name: "spaced decimal needs leading zero", input: "10 5 kg rice", qty: 5, unit: unit.Kilogram, rest: "10 rice"},
		{name: "x before number", input: "angkor beer x5", qty: 5, unit: "", rest: "angkor beer"},
		{name: "x after number", input: "5x coke", qty: 5, unit: "", rest: "coke"},
		{name: "x with space", input: "x 2 napkins", qty: 2, unit: "", rest: "napkins"},
		{name: "trailing number", input: "Angkor Beer 3", qty: 3, unit: "", rest: "Angkor Beer"},
		{name: "leading number", input: "3 onions", qty: 3, unit: "", rest: "onions"},
		{name: "no quantity defaults to one", input: "Angkor Beer", qty: 1, unit: "", rest: "Angkor Beer"},
		{name: "unit only fallback", input: "beer btl", qty: 1, unit: unit.Bottle, rest: "beer"},
		{name: "trailing number then unit fallback", input: "tissue roll 4", qty: 4, unit: unit.Roll, rest: "tissue"},
		{name: "unit synonym plural", input: "6 bottles soda", qty: 6, unit: unit.Bottle, rest: "soda"},
		{name: "empty line", input: "", qty: 1, unit: "", rest: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Extract(tc.input)
			if got.Quantity != tc.qty {
				t.Fatalf("quantity got %v want %v", got.Quantity, tc.qty)
			}
			if got.Unit != tc.unit {
				t.Fatalf("unit got %q want %q", got.Unit, tc.unit)
			}
			if got.Rest != tc.rest {
				t.Fatalf("rest got %q want %q", got.Rest, tc.rest)
			}
		})
	}
}

func TestExtractStopsAfterFirstHit(t *testing.T) {
	// One quantity pattern consumed, later numbers stay in the name text.
	got := Extract("coca 1.5l x2")
	if got.Quantity != 1.5 || got.Unit != unit.Liter {
		t.Fatalf("got %v %q want 1.5 l", got.Quantity, got.Unit)
	}
	if got.Rest != "coca x2" {
		t.Fatalf("rest got %q want %q", got.Rest, "coca x2")
	}
}
