package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"orderdesk/internal"
	"orderdesk/internal/unit"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS catalog_items (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  unit TEXT NOT NULL DEFAULT '',
  supplierId TEXT NOT NULL DEFAULT '',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_catalog_items_name ON catalog_items(name);
CREATE INDEX IF NOT EXISTS idx_catalog_items_supplier ON catalog_items(supplierId);

CREATE TABLE IF NOT EXISTS alias_rules (
  scope TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL,
  target TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (scope, source)
);

CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  storeId TEXT NOT NULL DEFAULT '',
  supplierId TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'open',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);

CREATE TABLE IF NOT EXISTS order_items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  orderId TEXT NOT NULL,
  itemId TEXT NOT NULL,
  name TEXT NOT NULL,
  qty REAL NOT NULL,
  unit TEXT NOT NULL DEFAULT '',
  FOREIGN KEY(orderId) REFERENCES orders(id)
);
CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(orderId);

CREATE TABLE IF NOT EXISTS parse_runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  source TEXT NOT NULL,
  backend TEXT NOT NULL,
  lines INTEGER NOT NULL,
  matched INTEGER NOT NULL,
  newItems INTEGER NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertCatalogItems(items []internal.CatalogItem) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO catalog_items (id, name, unit, supplierId, updatedAt)
VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(id) DO UPDATE SET
  name=excluded.name,
  unit=excluded.unit,
  supplierId=excluded.supplierId,
  updatedAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, it := range items {
		if _, err := stmt.Exec(it.ID, it.Name, string(it.Unit), it.SupplierID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListCatalogItems returns the catalog sorted by name; an empty supplierID
// lists every supplier.
func (d *DB) ListCatalogItems(supplierID string) ([]internal.CatalogItem, error) {
	query := `SELECT id, name, unit, supplierId FROM catalog_items ORDER BY name COLLATE NOCASE, id`
	args := []any{}
	if supplierID != "" {
		query = `SELECT id, name, unit, supplierId FROM catalog_items WHERE supplierId = ? ORDER BY name COLLATE NOCASE, id`
		args = append(args, supplierID)
	}
	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.CatalogItem
	for rows.Next() {
		var it internal.CatalogItem
		var u string
		if err := rows.Scan(&it.ID, &it.Name, &u, &it.SupplierID); err != nil {
			return nil, err
		}
		it.Unit = unit.Unit(u)
		out = append(out, it)
	}
	return out, rows.Err()
}

func (d *DB) GetCatalogItem(id string) (*internal.CatalogItem, error) {
	var it internal.CatalogItem
	var u string
	err := d.conn.QueryRow(`SELECT id, name, unit, supplierId FROM catalog_items WHERE id = ?`, id).
		Scan(&it.ID, &it.Name, &u, &it.SupplierID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	it.Unit = unit.Unit(u)
	return &it, nil
}

func (d *DB) SetAlias(scope, source, target string) error {
	_, err := d.conn.Exec(`
INSERT INTO alias_rules (scope, source, target) VALUES (?, ?, ?)
ON CONFLICT(scope, source) DO UPDATE SET target = excluded.target, updatedAt = CURRENT_TIMESTAMP
`, scope, source, target)
	return err
}

func (d *DB) DeleteAlias(scope, source string) error {
	_, err := d.conn.Exec(`DELETE FROM alias_rules WHERE scope = ? AND source = ?`, scope, source)
	return err
}

func (d *DB) ListAliases() ([]internal.AliasRow, error) {
	rows, err := d.conn.Query(`SELECT scope, source, target FROM alias_rules ORDER BY scope, source`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.AliasRow
	for rows.Next() {
		var row internal.AliasRow
		if err := rows.Scan(&row.Scope, &row.Source, &row.Target); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// AliasRulesFor loads the global rules plus the rules scoped to storeID.
func (d *DB) AliasRulesFor(storeID string) (internal.AliasRules, error) {
	rows, err := d.conn.Query(`SELECT scope, source, target FROM alias_rules WHERE scope = '' OR scope = ?`, storeID)
	if err != nil {
		return internal.AliasRules{}, err
	}
	defer rows.Close()

	rules := internal.AliasRules{Global: map[string]string{}, PerStore: map[string]string{}}
	for rows.Next() {
		var scope, source, target string
		if err := rows.Scan(&scope, &source, &target); err != nil {
			return internal.AliasRules{}, err
		}
		if scope == "" {
			rules.Global[source] = target
		} else {
			rules.PerStore[source] = target
		}
	}
	return rules, rows.Err()
}

func (d *DB) InsertOrder(o internal.Order) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT INTO orders (id, storeId, supplierId, status) VALUES (?, ?, ?, ?)`,
		o.ID, o.StoreID, o.SupplierID, string(o.Status)); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO order_items (orderId, itemId, name, qty, unit) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, it := range o.Items {
		if _, err := stmt.Exec(o.ID, it.ItemID, it.Name, it.Quantity, string(it.Unit)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) GetOrder(id string) (*internal.Order, error) {
	var o internal.Order
	var status string
	err := d.conn.QueryRow(`SELECT id, storeId, supplierId, status, createdAt, updatedAt FROM orders WHERE id = ?`, id).
		Scan(&o.ID, &o.StoreID, &o.SupplierID, &status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	o.Status = internal.OrderStatus(status)

	rows, err := d.conn.Query(`SELECT itemId, name, qty, unit FROM order_items WHERE orderId = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it internal.OrderItem
		var u string
		if err := rows.Scan(&it.ItemID, &it.Name, &it.Quantity, &u); err != nil {
			return nil, err
		}
		it.Unit = unit.Unit(u)
		o.Items = append(o.Items, it)
	}
	return &o, rows.Err()
}

// ListOrders returns order rows without their items, newest first.
// An empty status lists every order.
func (d *DB) ListOrders(status internal.OrderStatus, limit int) ([]internal.Order, error) {
	query := `SELECT id, storeId, supplierId, status, createdAt, updatedAt FROM orders`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY createdAt DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Order
	for rows.Next() {
		var o internal.Order
		var s string
		if err := rows.Scan(&o.ID, &o.StoreID, &o.SupplierID, &s, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		o.Status = internal.OrderStatus(s)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (d *DB) UpdateOrderStatus(id string, status internal.OrderStatus) error {
	res, err := d.conn.Exec(`UPDATE orders SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("order not found: %s", id)
	}
	return nil
}

func (d *DB) InsertParseRun(run internal.ParseRun) error {
	_, err := d.conn.Exec(`INSERT INTO parse_runs (source, backend, lines, matched, newItems) VALUES (?, ?, ?, ?, ?)`,
		run.Source, run.Backend, run.Lines, run.Matched, run.NewItems)
	return err
}

func (d *DB) ListParseRuns(limit int) ([]internal.ParseRun, error) {
	rows, err := d.conn.Query(`SELECT id, source, backend, lines, matched, newItems, createdAt FROM parse_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ParseRun
	for rows.Next() {
		var run internal.ParseRun
		if err := rows.Scan(&run.ID, &run.Source, &run.Backend, &run.Lines, &run.Matched, &run.NewItems, &run.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
