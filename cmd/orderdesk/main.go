package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"orderdesk/internal"
	"orderdesk/internal/ai"
	"orderdesk/internal/config"
	"orderdesk/internal/export"
	"orderdesk/internal/intake"
	"orderdesk/internal/orders"
	"orderdesk/internal/parse"
	"orderdesk/internal/storage"
	"orderdesk/internal/unit"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "catalog:import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "price list xlsx (columns: name, unit, supplier)")
		supplier := fs.String("supplier", "", "default supplier id for rows without one")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}
		items, err := readCatalogXLSX(*file, *supplier)
		must(err)
		if len(items) == 0 {
			must(fmt.Errorf("no catalog rows in %s", *file))
		}
		must(db.UpsertCatalogItems(items))
		fmt.Printf("catalog import done items=%d\n", len(items))
	case "catalog:list":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		supplier := fs.String("supplier", "", "only list this supplier's items")
		_ = fs.Parse(os.Args[2:])
		items, err := db.ListCatalogItems(*supplier)
		must(err)
		for _, it := range items {
			fmt.Printf("%s  %-32s unit=%-8s supplier=%s\n", it.ID, it.Name, it.Unit, it.SupplierID)
		}
		fmt.Printf("total: %d\n", len(items))
	case "alias:set":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		source := fs.String("source", "", "raw phrase to replace")
		target := fs.String("target", "", "canonical phrase")
		store := fs.String("store", "", "store id (empty = global rule)")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*source) == "" || strings.TrimSpace(*target) == "" {
			must(fmt.Errorf("--source and --target are required"))
		}
		must(db.SetAlias(*store, strings.TrimSpace(*source), strings.TrimSpace(*target)))
		fmt.Printf("alias set scope=%q %s -> %s\n", *store, *source, *target)
	case "alias:list":
		rows, err := db.ListAliases()
		must(err)
		for _, row := range rows {
			scope := row.Scope
			if scope == "" {
				scope = "(global)"
			}
			fmt.Printf("%-12s %s -> %s\n", scope, row.Source, row.Target)
		}
	case "parse":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "input file (txt|html|xlsx|pdf|eml)")
		text := fs.String("text", "", "inline item list")
		inType := fs.String("type", "", "override input kind: text|html|xlsx|pdf|eml")
		store := fs.String("store", "", "store id for alias scoping")
		backend := fs.String("backend", "local", "local|ai")
		out := fs.String("out", "", "write results to xlsx")
		_ = fs.Parse(os.Args[2:])

		body, err := readInput(*input, *text, *inType)
		must(err)
		catalog, err := db.ListCatalogItems("")
		must(err)
		items, used, err := parseText(context.Background(), cfg, db, log, body, *store, *backend, catalog)
		must(err)

		summary := internal.Summarize(items)
		must(db.InsertParseRun(internal.ParseRun{Source: "cli", Backend: used, Lines: summary.Lines, Matched: summary.Matched, NewItems: summary.NewItems}))
		printItems(items, catalog)
		fmt.Printf("parsed backend=%s lines=%d matched=%d new=%d\n", used, summary.Lines, summary.Matched, summary.NewItems)
		if strings.TrimSpace(*out) != "" {
			must(export.ParsedItemsToXLSX(items, catalog, *out))
			fmt.Printf("results written to %s\n", *out)
		}
	case "order:create":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "input file (txt|html|xlsx|pdf|eml)")
		text := fs.String("text", "", "inline item list")
		inType := fs.String("type", "", "override input kind: text|html|xlsx|pdf|eml")
		store := fs.String("store", "", "store id")
		supplier := fs.String("supplier", "", "supplier id")
		backend := fs.String("backend", "local", "local|ai")
		out := fs.String("out", "", "write order sheet to xlsx")
		_ = fs.Parse(os.Args[2:])

		body, err := readInput(*input, *text, *inType)
		must(err)
		catalog, err := db.ListCatalogItems("")
		must(err)
		items, used, err := parseText(context.Background(), cfg, db, log, body, *store, *backend, catalog)
		must(err)
		if len(items) == 0 {
			must(fmt.Errorf("no items parsed from input"))
		}

		summary := internal.Summarize(items)
		must(db.InsertParseRun(internal.ParseRun{Source: "cli", Backend: used, Lines: summary.Lines, Matched: summary.Matched, NewItems: summary.NewItems}))

		order, err := orders.NewService(db).CreateFromParse(*store, *supplier, items)
		must(err)
		fmt.Printf("order created id=%s status=%s items=%d backend=%s\n", order.ID, order.Status, len(order.Items), used)
		for _, it := range order.Items {
			fmt.Printf("  %-32s qty=%g unit=%s\n", it.Name, it.Quantity, it.Unit)
		}
		if strings.TrimSpace(*out) != "" {
			must(export.OrderToXLSX(order, *out))
			fmt.Printf("order sheet written to %s\n", *out)
		}
	case "order:status":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("id", "", "order id")
		status := fs.String("status", "", "dispatched|on_the_way|completed")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*id) == "" || strings.TrimSpace(*status) == "" {
			must(fmt.Errorf("--id and --status are required"))
		}
		next, err := orders.ParseStatus(*status)
		must(err)
		order, err := orders.NewService(db).UpdateStatus(*id, next)
		must(err)
		fmt.Printf("order %s -> %s\n", order.ID, order.Status)
	case "orders:list":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		status := fs.String("status", "", "filter: open|dispatched|on_the_way|completed")
		limit := fs.Int("limit", 20, "max orders")
		_ = fs.Parse(os.Args[2:])
		var filter internal.OrderStatus
		if strings.TrimSpace(*status) != "" {
			filter, err = orders.ParseStatus(*status)
			must(err)
		}
		list, err := orders.NewService(db).List(filter, *limit)
		must(err)
		for _, o := range list {
			fmt.Printf("%s  %-12s store=%-10s supplier=%-10s %s\n", o.ID, o.Status, o.StoreID, o.SupplierID, o.CreatedAt)
		}
	case "runs:list":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 20, "max runs")
		_ = fs.Parse(os.Args[2:])
		runs, err := db.ListParseRuns(*limit)
		must(err)
		for _, run := range runs {
			fmt.Printf("#%d %-4s backend=%-6s lines=%d matched=%d new=%d %s\n", run.ID, run.Source, run.Backend, run.Lines, run.Matched, run.NewItems, run.CreatedAt)
		}
	default:
		usage()
		os.Exit(1)
	}
}

// readInput turns the --input/--text flags into engine text, one item
// per line.
func readInput(path, text, kindOverride string) (string, error) {
	if strings.TrimSpace(text) != "" {
		return text, nil
	}
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("--input or --text is required")
	}

	kind := intake.KindForPath(path)
	if strings.TrimSpace(kindOverride) != "" {
		kind = intake.Kind(strings.ToLower(strings.TrimSpace(kindOverride)))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	lines, err := intake.Lines(kind, data)
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

func parseText(ctx context.Context, cfg config.Config, db *storage.DB, log zerolog.Logger, text, storeID, backend string, catalog []internal.CatalogItem) ([]internal.ParsedItem, string, error) {
	rules, err := db.AliasRulesFor(storeID)
	if err != nil {
		return nil, "", err
	}

	local := parse.New(parse.Options{ScoreThreshold: cfg.MatchScoreThreshold, PhraseBonus: cfg.MatchPhraseBonus})
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "local":
		items, err := local.ParseItems(ctx, text, catalog, rules)
		return items, "local", err
	case "ai":
		items, err := ai.NewClient(cfg).ParseItems(ctx, text, catalog, rules)
		if err != nil && cfg.AIFallbackLocal {
			log.Warn().Err(err).Msg("ai backend failed, falling back to local parser")
			items, err = local.ParseItems(ctx, text, catalog, rules)
			return items, "local", err
		}
		return items, "ai", err
	}
	return nil, "", fmt.Errorf("unsupported backend: %s", backend)
}

func printItems(items []internal.ParsedItem, catalog []internal.CatalogItem) {
	names := make(map[string]string, len(catalog))
	for _, it := range catalog {
		names[it.ID] = it.Name
	}
	for _, it := range items {
		if it.Kind == internal.ItemMatched {
			fmt.Printf("matched  %-32s qty=%g unit=%-8s id=%s\n", names[it.MatchedItemID], it.Quantity, it.Unit, it.MatchedItemID)
		} else {
			fmt.Printf("new      %-32s qty=%g unit=%s\n", it.NewItemName, it.Quantity, it.Unit)
		}
	}
}

// readCatalogXLSX reads a price list: column A name, column B unit,
// column C supplier id. A header row is skipped.
func readCatalogXLSX(path, defaultSupplier string) ([]internal.CatalogItem, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := []internal.CatalogItem{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		for i, row := range rows {
			name := cellAt(row, 0)
			if name == "" {
				continue
			}
			if i == 0 && looksLikeCatalogHeader(name) {
				continue
			}
			item := internal.CatalogItem{
				ID:         uuid.NewString(),
				Name:       name,
				SupplierID: cellAt(row, 2),
			}
			if item.SupplierID == "" {
				item.SupplierID = defaultSupplier
			}
			if u, ok := unit.Normalize(cellAt(row, 1)); ok {
				item.Unit = u
			}
			out = append(out, item)
		}
	}
	return out, nil
}

func cellAt(row []string, idx int) string {
	if idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

func looksLikeCatalogHeader(first string) bool {
	lower := strings.ToLower(first)
	return strings.Contains(lower, "name") || strings.Contains(lower, "item") || strings.Contains(lower, "product")
}

func usage() {
	fmt.Println("usage: orderdesk <command>")
	fmt.Println("commands:")
	fmt.Println("  catalog:import --file=prices.xlsx [--supplier=s1]")
	fmt.Println("  catalog:list [--supplier=s1]")
	fmt.Println("  alias:set --source=ab --target=\"angkor beer\" [--store=store-1]")
	fmt.Println("  alias:list")
	fmt.Println("  parse --input=list.txt|--text=\"beer x2\" [--type=...] [--store=...] [--backend=local|ai] [--out=result.xlsx]")
	fmt.Println("  order:create --input=...|--text=... --store=... --supplier=... [--backend=local|ai] [--out=order.xlsx]")
	fmt.Println("  order:status --id=... --status=dispatched|on_the_way|completed")
	fmt.Println("  orders:list [--status=open] [--limit=20]")
	fmt.Println("  runs:list [--limit=20]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
