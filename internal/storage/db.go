package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"tally/internal"
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
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE,
  price REAL NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_catalog_items_name ON catalog_items(name);

CREATE TABLE IF NOT EXISTS receipts (
  id TEXT PRIMARY KEY,
  sourceRef TEXT NOT NULL,
  receiptDate TEXT NOT NULL,
  receiptTime TEXT NOT NULL,
  subtotal REAL,
  tax REAL,
  tip REAL,
  total REAL,
  succeeded INTEGER NOT NULL DEFAULT 1,
  ocrText TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS receipt_items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  receiptId TEXT NOT NULL,
  lineNo INTEGER NOT NULL,
  matchedText TEXT NOT NULL,
  itemId INTEGER NOT NULL,
  quantity INTEGER NOT NULL,
  ocrQuantity INTEGER NOT NULL,
  confidence REAL NOT NULL,
  tier TEXT NOT NULL,
  linePrice REAL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(receiptId) REFERENCES receipts(id),
  FOREIGN KEY(itemId) REFERENCES catalog_items(id)
);

CREATE TABLE IF NOT EXISTS unmatched_lines (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  receiptId TEXT NOT NULL,
  lineNo INTEGER NOT NULL,
  rawText TEXT NOT NULL,
  ocrQuantity INTEGER NOT NULL,
  linePrice REAL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(receiptId) REFERENCES receipts(id)
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  receiptId TEXT,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(receiptId) REFERENCES receipts(id)
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertCatalogItems(entries []internal.CatalogEntry) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO catalog_items (name, price, updatedAt) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(name) DO UPDATE SET
  price=excluded.price,
  updatedAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(e.Name, e.Price); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListCatalog returns the snapshot for one matching session. Insertion order
// is the stable catalog order substring tie-breaks rely on.
func (d *DB) ListCatalog() ([]internal.CatalogEntry, error) {
	rows, err := d.conn.Query(`SELECT id, name, price FROM catalog_items ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.CatalogEntry
	for rows.Next() {
		var e internal.CatalogEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.Price); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (d *DB) InsertReceipt(id, sourceRef string, rec internal.ExtractedReceipt, ocrText string) error {
	_, err := d.conn.Exec(`
INSERT INTO receipts (id, sourceRef, receiptDate, receiptTime, subtotal, tax, tip, total, succeeded, ocrText)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, id, sourceRef, rec.Date.Format("2006-01-02"), rec.Time,
		rec.Subtotal, rec.Tax, rec.Tip, rec.Total, boolToInt(rec.Succeeded), ocrText)
	return err
}

func (d *DB) GetReceipt(id string) (*internal.ReceiptRow, error) {
	var row internal.ReceiptRow
	var succeeded int
	err := d.conn.QueryRow(`
SELECT id, sourceRef, receiptDate, receiptTime, subtotal, tax, tip, total, succeeded, createdAt
FROM receipts WHERE id = ?
`, id).Scan(
		&row.ID, &row.SourceRef, &row.Date, &row.Time,
		&row.Subtotal, &row.Tax, &row.Tip, &row.Total, &succeeded, &row.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	row.Succeeded = succeeded != 0
	return &row, nil
}

func (d *DB) InsertReceiptItem(receiptID string, m internal.MatchResult) error {
	_, err := d.conn.Exec(`
INSERT INTO receipt_items (receiptId, lineNo, matchedText, itemId, quantity, ocrQuantity, confidence, tier, linePrice)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, receiptID, m.LineNo, m.MatchedText, m.Entry.ID, m.Quantity, m.OCRQuantity, m.Confidence, string(m.Tier), m.LinePrice)
	return err
}

func (d *DB) InsertUnmatchedLine(receiptID string, c internal.RawLineCandidate) error {
	_, err := d.conn.Exec(`
INSERT INTO unmatched_lines (receiptId, lineNo, rawText, ocrQuantity, linePrice)
VALUES (?, ?, ?, ?, ?)
`, receiptID, c.LineNo, c.Text, c.OCRQuantity, c.LinePrice)
	return err
}

func (d *DB) InsertRun(traceID, receiptID string, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, receiptId, timingsJson, countsJson) VALUES (?, ?, ?, ?)`,
		traceID, receiptID, string(timingsJSON), string(countsJSON))
	return err
}

func (d *DB) GetExportRows(receiptID string) ([]internal.ItemExportRow, error) {
	rows, err := d.conn.Query(`
SELECT
  ri.lineNo,
  ri.matchedText,
  c.id,
  c.name,
  c.price,
  ri.quantity,
  ri.ocrQuantity,
  ri.confidence,
  ri.tier,
  ri.linePrice
FROM receipt_items ri
JOIN catalog_items c ON c.id = ri.itemId
WHERE ri.receiptId = ?
ORDER BY ri.lineNo ASC
`, receiptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ItemExportRow
	for rows.Next() {
		var row internal.ItemExportRow
		if err := rows.Scan(
			&row.LineNo,
			&row.MatchedText,
			&row.ItemID,
			&row.ItemName,
			&row.UnitPrice,
			&row.Quantity,
			&row.OCRQuantity,
			&row.Confidence,
			&row.Tier,
			&row.LinePrice,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}

	return out, rows.Err()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
