package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tally/internal"
	"tally/internal/storage"
)

type failingSource struct{}

func (failingSource) ExtractText(string) (string, error) {
	return "", errors.New("camera upload corrupted")
}

func openSeededDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "tally.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	err = db.UpsertCatalogItems([]internal.CatalogEntry{
		{Name: "Burger", Price: 10.00},
		{Name: "French Fries", Price: 5.00},
		{Name: "Soda", Price: 2.00},
	})
	if err != nil {
		t.Fatal(err)
	}
	return db
}

func TestProcessReceiptEndToEnd(t *testing.T) {
	db := openSeededDB(t)

	transcript := "01/15/2025 14:30\n" +
		"1 Burger 10.00\n" +
		"4 French Fries 5.00\n" +
		"Subtotal 15.00\n" +
		"Tax 1.50\n" +
		"Total 5.00\n"
	path := filepath.Join(t.TempDir(), "receipt.txt")
	if err := os.WriteFile(path, []byte(transcript), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := NewProcessingService(db, testConfig(), nil, nil)
	res, err := svc.ProcessReceipt(path)
	if err != nil {
		t.Fatal(err)
	}

	if !res.Receipt.Succeeded {
		t.Fatalf("receipt should parse")
	}
	if res.Receipt.Total == nil || *res.Receipt.Total != 16.50 {
		t.Fatalf("total = %v, want recomputed 16.50", res.Receipt.Total)
	}
	if len(res.Matched) != 2 {
		t.Fatalf("matched = %+v", res.Matched)
	}

	// OCR read 4 fries; 1x10.00 + 1x5.00 reconciles against subtotal 15.00.
	var friesQty int
	for _, m := range res.Matched {
		if m.Entry.Name == "French Fries" {
			friesQty = m.Quantity
		}
	}
	if friesQty != 1 {
		t.Fatalf("fries quantity = %d, want corrected 1", friesQty)
	}

	rows, err := db.GetExportRows(res.ReceiptID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("stored rows = %d", len(rows))
	}

	stored, err := db.GetReceipt(res.ReceiptID)
	if err != nil {
		t.Fatal(err)
	}
	if stored == nil || stored.Date != "2025-01-15" || stored.Time != "14:30" {
		t.Fatalf("stored receipt = %+v", stored)
	}
}

func TestProcessReceiptUnmatchedStored(t *testing.T) {
	db := openSeededDB(t)

	transcript := "1 Burger 10.00\n2 Alien Artifact 99.00\n"
	path := filepath.Join(t.TempDir(), "receipt.txt")
	if err := os.WriteFile(path, []byte(transcript), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := NewProcessingService(db, testConfig(), nil, nil)
	res, err := svc.ProcessReceipt(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Matched) != 1 || len(res.Unmatched) != 1 {
		t.Fatalf("matched=%d unmatched=%d", len(res.Matched), len(res.Unmatched))
	}
	if res.Unmatched[0].Text != "Alien Artifact" {
		t.Fatalf("unmatched = %+v", res.Unmatched)
	}
}

func TestProcessReceiptSourceFailure(t *testing.T) {
	db := openSeededDB(t)

	svc := NewProcessingService(db, testConfig(), nil, failingSource{})
	res, err := svc.ProcessReceipt("whatever.txt")
	if err != nil {
		t.Fatalf("source failure must degrade, not error: %v", err)
	}
	if res.Receipt.Succeeded {
		t.Fatalf("receipt should be marked failed")
	}
	if len(res.Matched) != 0 {
		t.Fatalf("no items expected, got %d", len(res.Matched))
	}

	stored, err := db.GetReceipt(res.ReceiptID)
	if err != nil {
		t.Fatal(err)
	}
	if stored == nil || stored.Succeeded {
		t.Fatalf("failed receipt should still be recorded: %+v", stored)
	}
}

func TestExportRowsToXLSX(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out", "receipt.xlsx")
	rows := []internal.ItemExportRow{
		{LineNo: 1, MatchedText: "Burger", ItemID: 1, ItemName: "Burger", UnitPrice: 10.00, Quantity: 2, OCRQuantity: 2, Confidence: 1.0, Tier: "EXACT"},
	}
	if err := ExportRowsToXLSX(rows, out); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output not written: %v", err)
	}
}
