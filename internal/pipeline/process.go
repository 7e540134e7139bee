package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tally/internal"
	"tally/internal/config"
	"tally/internal/source"
	"tally/internal/storage"
)

// ProcessingService runs the full pipeline for one receipt reference:
// transcript → field extraction → catalog matching → quantity reconciliation,
// then persists the outcome. A failed transcript or an unreconcilable order
// degrades to a stored failure/default, never an error from the core stages.
type ProcessingService struct {
	db     *storage.DB
	cfg    config.Config
	logger *slog.Logger
	src    source.TextExtractor
}

func NewProcessingService(db *storage.DB, cfg config.Config, logger *slog.Logger, src source.TextExtractor) *ProcessingService {
	if logger == nil {
		logger = slog.Default()
	}
	if src == nil {
		src = source.FileSource{}
	}
	return &ProcessingService{db: db, cfg: cfg, logger: logger, src: src}
}

type ProcessResult struct {
	ReceiptID string
	Receipt   internal.ExtractedReceipt
	Matched   []internal.MatchResult
	Unmatched []internal.RawLineCandidate
}

func (s *ProcessingService) ProcessReceipt(ref string) (ProcessResult, error) {
	start := time.Now()
	receiptID := uuid.NewString()
	extractor := NewFieldExtractor(s.cfg)

	text, err := s.src.ExtractText(ref)
	var receipt internal.ExtractedReceipt
	if err != nil {
		// The recognition collaborator failed; record the receipt anyway so
		// the caller can prompt for a retake.
		s.logger.Warn("transcript extraction failed", "ref", ref, "error", err)
		receipt = extractor.FailedReceipt()
	} else {
		receipt = extractor.Parse(text)
	}

	entries, err := s.db.ListCatalog()
	if err != nil {
		return ProcessResult{}, fmt.Errorf("load catalog: %w", err)
	}

	matcher := NewMatcher(s.cfg, s.logger, entries)
	matched, unmatched := matcher.MatchAll(receipt.Candidates)
	NewReconciler(s.cfg, s.logger).Reconcile(matched, receipt.Subtotal)

	if err := s.db.InsertReceipt(receiptID, ref, receipt, text); err != nil {
		return ProcessResult{}, fmt.Errorf("store receipt: %w", err)
	}
	for _, m := range matched {
		if err := s.db.InsertReceiptItem(receiptID, m); err != nil {
			return ProcessResult{}, fmt.Errorf("store receipt item: %w", err)
		}
	}
	for _, c := range unmatched {
		if err := s.db.InsertUnmatchedLine(receiptID, c); err != nil {
			return ProcessResult{}, fmt.Errorf("store unmatched line: %w", err)
		}
	}

	_ = s.db.InsertRun(uuid.NewString(), receiptID,
		map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())},
		map[string]int{
			"candidates": len(receipt.Candidates),
			"matched":    len(matched),
			"unmatched":  len(unmatched),
		})

	s.logger.Info("receipt processed",
		"receipt_id", receiptID, "ref", ref,
		"succeeded", receipt.Succeeded,
		"candidates", len(receipt.Candidates),
		"matched", len(matched), "unmatched", len(unmatched),
	)

	return ProcessResult{
		ReceiptID: receiptID,
		Receipt:   receipt,
		Matched:   matched,
		Unmatched: unmatched,
	}, nil
}
