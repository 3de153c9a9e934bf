// Package export writes parse results and orders to XLSX workbooks.
package export

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"orderdesk/internal"
)

// ParsedItemsToXLSX writes one row per parsed item. Matched items are
// resolved against the catalog so the sheet shows names, not just ids.
func ParsedItemsToXLSX(items []internal.ParsedItem, catalog []internal.CatalogItem, outputPath string) error {
	byID := make(map[string]internal.CatalogItem, len(catalog))
	for _, it := range catalog {
		byID[it.ID] = it
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{"kind", "item_id", "name", "quantity", "unit", "supplier_id"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, item := range items {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, string(item.Kind))
		set(4, item.Quantity)
		set(5, string(item.Unit))
		if item.Kind == internal.ItemMatched {
			set(2, item.MatchedItemID)
			if entry, ok := byID[item.MatchedItemID]; ok {
				set(3, entry.Name)
				set(6, entry.SupplierID)
			}
		} else {
			set(3, item.NewItemName)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

// OrderToXLSX writes an order sheet a supplier can work from: a few
// header rows with order metadata, then the item table.
func OrderToXLSX(order internal.Order, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	meta := [][]any{
		{"order_id", order.ID},
		{"store_id", order.StoreID},
		{"supplier_id", order.SupplierID},
		{"status", string(order.Status)},
		{"created_at", order.CreatedAt},
	}
	for i, kv := range meta {
		for c, v := range kv {
			cell, _ := excelize.CoordinatesToCellName(c+1, i+1)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	headerRow := len(meta) + 2
	headers := []string{"item_id", "name", "quantity", "unit"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, item := range order.Items {
		r := headerRow + 1 + i
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}
		set(1, item.ItemID)
		set(2, item.Name)
		set(3, item.Quantity)
		set(4, string(item.Unit))
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}
