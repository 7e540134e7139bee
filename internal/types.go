package internal

import "time"

// RawLineCandidate is one OCR line provisionally identified as an ordered
// item, before catalog resolution. Never mutated after extraction.
type RawLineCandidate struct {
	LineNo      int
	Text        string
	OCRQuantity int
	LinePrice   *float64
}

// ExtractedReceipt is the structured result of field extraction over one OCR
// transcript. Monetary fields are nil when the corresponding label was not
// found; Date and Time always carry a value (defaulting to "now").
type ExtractedReceipt struct {
	Date       time.Time
	Time       string
	Subtotal   *float64
	Tax        *float64
	Tip        *float64
	Total      *float64
	Candidates []RawLineCandidate
	Succeeded  bool
}

// CatalogEntry is one sellable item from the externally supplied catalog.
// Identity is by Name; names are assumed unique within a snapshot.
type CatalogEntry struct {
	ID    int
	Name  string
	Price float64
}

type MatchTier string

const (
	TierExact     MatchTier = "EXACT"
	TierSubstring MatchTier = "SUBSTRING"
	TierFuzzy     MatchTier = "FUZZY"
)

// MatchResult links a candidate line to a catalog entry. Quantity starts as
// the OCR-reported quantity and may be overwritten by reconciliation;
// OCRQuantity keeps the original reading.
type MatchResult struct {
	Entry       CatalogEntry
	Confidence  float64
	Tier        MatchTier
	Quantity    int
	OCRQuantity int
	MatchedText string
	LineNo      int
	LinePrice   *float64
}

// ReceiptRow is a stored receipt record.
type ReceiptRow struct {
	ID        string
	SourceRef string
	Date      string
	Time      string
	Subtotal  *float64
	Tax       *float64
	Tip       *float64
	Total     *float64
	Succeeded bool
	CreatedAt string
}

// ItemExportRow is the flattened receipt line used for XLSX export.
type ItemExportRow struct {
	LineNo      int
	MatchedText string
	ItemID      int
	ItemName    string
	UnitPrice   float64
	Quantity    int
	OCRQuantity int
	Confidence  float64
	Tier        string
	LinePrice   *float64
}
