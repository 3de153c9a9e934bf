package storage

import (
	"path/filepath"
	"testing"

	"orderdesk/internal"
	"orderdesk/internal/unit"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCatalogRoundTrip(t *testing.T) {
	db := openTestDB(t)

	items := []internal.CatalogItem{
		{ID: "i1", Name: "Angkor Beer (can)", Unit: unit.Can, SupplierID: "s1"},
		{ID: "i2", Name: "Jasmine Rice", Unit: unit.Kilogram, SupplierID: "s2"},
	}
	if err := db.UpsertCatalogItems(items); err != nil {
		t.Fatal(err)
	}

	got, err := db.ListCatalogItems("")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len=%d", len(got))
	}
	if got[0] != items[0] {
		t.Fatalf("got %+v want %+v", got[0], items[0])
	}

	bySupplier, err := db.ListCatalogItems("s2")
	if err != nil {
		t.Fatal(err)
	}
	if len(bySupplier) != 1 || bySupplier[0].ID != "i2" {
		t.Fatalf("supplier filter got %+v", bySupplier)
	}

	if err := db.UpsertCatalogItems([]internal.CatalogItem{
		{ID: "i1", Name: "Angkor Beer (bottle)", Unit: unit.Bottle, SupplierID: "s1"},
	}); err != nil {
		t.Fatal(err)
	}
	one, err := db.GetCatalogItem("i1")
	if err != nil {
		t.Fatal(err)
	}
	if one == nil || one.Unit != unit.Bottle {
		t.Fatalf("got %+v", one)
	}

	missing, err := db.GetCatalogItem("ghost")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Fatalf("expected nil, got %+v", missing)
	}
}

func TestAliasScoping(t *testing.T) {
	db := openTestDB(t)

	if err := db.SetAlias("", "ab", "angkor beer"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetAlias("store-1", "ab", "abc juice"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetAlias("store-2", "cc", "coca cola"); err != nil {
		t.Fatal(err)
	}

	rules, err := db.AliasRulesFor("store-1")
	if err != nil {
		t.Fatal(err)
	}
	if rules.Global["ab"] != "angkor beer" {
		t.Fatalf("global = %v", rules.Global)
	}
	if rules.PerStore["ab"] != "abc juice" {
		t.Fatalf("perStore = %v", rules.PerStore)
	}
	if _, ok := rules.PerStore["cc"]; ok {
		t.Fatal("store-2 rule leaked into store-1 scope")
	}

	all, err := db.ListAliases()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("len=%d", len(all))
	}

	if err := db.DeleteAlias("store-1", "ab"); err != nil {
		t.Fatal(err)
	}
	rules, err = db.AliasRulesFor("store-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(rules.PerStore) != 0 {
		t.Fatalf("perStore = %v", rules.PerStore)
	}
}

func TestOrderLifecycle(t *testing.T) {
	db := openTestDB(t)

	o := internal.Order{
		ID:         "o1",
		StoreID:    "store-1",
		SupplierID: "s1",
		Status:     internal.OrderOpen,
		Items: []internal.OrderItem{
			{ItemID: "i1", Name: "Angkor Beer (can)", Quantity: 8, Unit: unit.Can},
			{ItemID: "i9", Name: "Carrots", Quantity: 2, Unit: unit.Kilogram},
		},
	}
	if err := db.InsertOrder(o); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetOrder("o1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("order missing")
	}
	if got.Status != internal.OrderOpen || got.CreatedAt == "" {
		t.Fatalf("got %+v", got)
	}
	if len(got.Items) != 2 || got.Items[0].Quantity != 8 || got.Items[0].Unit != unit.Can {
		t.Fatalf("items = %+v", got.Items)
	}

	if err := db.UpdateOrderStatus("o1", internal.OrderDispatched); err != nil {
		t.Fatal(err)
	}
	got, err = db.GetOrder("o1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != internal.OrderDispatched {
		t.Fatalf("status = %s", got.Status)
	}

	if err := db.UpdateOrderStatus("ghost", internal.OrderCompleted); err == nil {
		t.Fatal("expected error for unknown order")
	}

	list, err := db.ListOrders(internal.OrderDispatched, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != "o1" {
		t.Fatalf("list = %+v", list)
	}
	list, err = db.ListOrders("", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("list = %+v", list)
	}

	missing, err := db.GetOrder("ghost")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Fatalf("expected nil, got %+v", missing)
	}
}

func TestParseRuns(t *testing.T) {
	db := openTestDB(t)

	if err := db.InsertParseRun(internal.ParseRun{Source: "api", Backend: "local", Lines: 3, Matched: 2, NewItems: 1}); err != nil {
		t.Fatal(err)
	}
	runs, err := db.ListParseRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Backend != "local" || runs[0].Matched != 2 {
		t.Fatalf("runs = %+v", runs)
	}
	if runs[0].CreatedAt == "" {
		t.Fatal("createdAt not set")
	}
}
