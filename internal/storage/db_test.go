package storage

import (
	"path/filepath"
	"testing"

	"tally/internal"
	"tally/internal/util"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "tally.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCatalogUpsertAndList(t *testing.T) {
	db := openTestDB(t)

	entries := []internal.CatalogEntry{
		{Name: "Burger", Price: 10.00},
		{Name: "French Fries", Price: 5.00},
	}
	if err := db.UpsertCatalogItems(entries); err != nil {
		t.Fatal(err)
	}

	got, err := db.ListCatalog()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("items = %d", len(got))
	}
	if got[0].Name != "Burger" || got[1].Name != "French Fries" {
		t.Fatalf("insertion order not preserved: %+v", got)
	}

	// Re-import updates prices without duplicating rows.
	if err := db.UpsertCatalogItems([]internal.CatalogEntry{{Name: "Burger", Price: 11.00}}); err != nil {
		t.Fatal(err)
	}
	got, err = db.ListCatalog()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Price != 11.00 {
		t.Fatalf("upsert failed: %+v", got)
	}
}

func TestReceiptRoundTrip(t *testing.T) {
	db := openTestDB(t)

	if err := db.UpsertCatalogItems([]internal.CatalogEntry{{Name: "Burger", Price: 10.00}}); err != nil {
		t.Fatal(err)
	}
	items, err := db.ListCatalog()
	if err != nil {
		t.Fatal(err)
	}

	rec := internal.ExtractedReceipt{
		Time:      "14:30",
		Subtotal:  util.FloatPtr(20.00),
		Tax:       util.FloatPtr(2.00),
		Total:     util.FloatPtr(22.00),
		Succeeded: true,
	}
	if err := db.InsertReceipt("r-1", "receipt.txt", rec, "raw text"); err != nil {
		t.Fatal(err)
	}

	match := internal.MatchResult{
		Entry:       items[0],
		Confidence:  1.0,
		Tier:        internal.TierExact,
		Quantity:    2,
		OCRQuantity: 2,
		MatchedText: "Burger",
		LineNo:      1,
	}
	if err := db.InsertReceiptItem("r-1", match); err != nil {
		t.Fatal(err)
	}
	if err := db.InsertUnmatchedLine("r-1", internal.RawLineCandidate{LineNo: 2, Text: "Mystery Meat", OCRQuantity: 1}); err != nil {
		t.Fatal(err)
	}

	row, err := db.GetReceipt("r-1")
	if err != nil {
		t.Fatal(err)
	}
	if row == nil || !row.Succeeded || row.Subtotal == nil || *row.Subtotal != 20.00 {
		t.Fatalf("receipt row = %+v", row)
	}

	export, err := db.GetExportRows("r-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(export) != 1 {
		t.Fatalf("export rows = %d", len(export))
	}
	if export[0].ItemName != "Burger" || export[0].Quantity != 2 || export[0].UnitPrice != 10.00 {
		t.Fatalf("export row = %+v", export[0])
	}

	missing, err := db.GetReceipt("r-404")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown receipt")
	}
}
