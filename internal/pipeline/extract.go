package pipeline

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"tally/internal"
	"tally/internal/config"
	"tally/internal/util"
)

var (
	reDate     = regexp.MustCompile(`(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{4})`)
	reTime     = regexp.MustCompile(`(?i)\d{1,2}:\d{2}(?:\s?[AP]M)?`)
	reSubtotal = regexp.MustCompile(`(?i)su[bp]?total\s*:?\s*(\d+(?:\.\d{1,2})?)`)
	reTax      = regexp.MustCompile(`(?i)t[ae]x\s*:?\s*(\d+(?:\.\d{1,2})?)`)
	reTip      = regexp.MustCompile(`(?i)tip\s*:?\s*(\d+(?:\.\d{1,2})?)`)
	reTotal    = regexp.MustCompile(`(?i)\btotal\b`)
	reAmount   = regexp.MustCompile(`\d+(?:\.\d{1,2})?`)
	reItemLine = regexp.MustCompile(`^(\d+)\s+([A-Za-z][A-Za-z ]*?)\s*(\d+(?:\.\d{1,2})?)?$`)
)

// Lines whose item text hits the stoplist are receipt bookkeeping, not food.
var (
	stopWords    = []string{"subtotal", "tax", "total", "cash", "change", "visa", "card", "check", "order", "phone"}
	stopPrefixes = []string{"us-", "ng "}
)

const minItemTextLen = 3

// FieldExtractor turns one raw OCR transcript into an ExtractedReceipt.
// Pure over its input plus the clock; the clock only feeds date/time defaults.
type FieldExtractor struct {
	cfg config.Config
	now func() time.Time
}

func NewFieldExtractor(cfg config.Config) *FieldExtractor {
	return &FieldExtractor{cfg: cfg, now: time.Now}
}

// Parse never panics: any unexpected failure inside extraction degrades to
// FailedReceipt. Individual fields fail soft on their own (date/time default
// to now, monetary fields stay nil).
func (e *FieldExtractor) Parse(text string) (receipt internal.ExtractedReceipt) {
	defer func() {
		if r := recover(); r != nil {
			receipt = e.FailedReceipt()
		}
	}()

	receipt = internal.ExtractedReceipt{
		Date:       e.extractDate(text),
		Time:       e.extractTime(text),
		Subtotal:   extractLabeledAmount(reSubtotal, text),
		Tax:        extractLabeledAmount(reTax, text),
		Tip:        extractLabeledAmount(reTip, text),
		Total:      extractTotal(text),
		Candidates: extractCandidates(text),
		Succeeded:  true,
	}

	// Scanned totals are the least reliable token on a receipt; when subtotal
	// and tax are both present, their sum wins over a drifting total.
	if receipt.Subtotal != nil && receipt.Tax != nil {
		recomputed := *receipt.Subtotal + *receipt.Tax
		if receipt.Total == nil || abs(recomputed-*receipt.Total) > e.cfg.TotalRecalcTolerance {
			receipt.Total = util.FloatPtr(recomputed)
		}
	}

	return receipt
}

// FailedReceipt is the hard-failure result: safe defaults, no candidates.
func (e *FieldExtractor) FailedReceipt() internal.ExtractedReceipt {
	now := e.now()
	return internal.ExtractedReceipt{
		Date:       now.Truncate(24 * time.Hour),
		Time:       now.Format("15:04"),
		Candidates: []internal.RawLineCandidate{},
		Succeeded:  false,
	}
}

func (e *FieldExtractor) extractDate(text string) time.Time {
	m := reDate.FindStringSubmatch(text)
	if m == nil {
		return e.now().Truncate(24 * time.Hour)
	}

	// US convention: month/day/year.
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes out-of-range components; a changed month or day
	// means the scanned date was invalid.
	if int(d.Month()) != month || d.Day() != day || d.Year() != year {
		return e.now().Truncate(24 * time.Hour)
	}
	return d
}

func (e *FieldExtractor) extractTime(text string) string {
	if m := reTime.FindString(text); m != "" {
		return m
	}
	return e.now().Format("15:04")
}

func extractLabeledAmount(re *regexp.Regexp, text string) *float64 {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return util.FloatPtr(v)
}

// extractTotal works line by line so that "Total" can be told apart from
// "Subtotal"/"Suptotal" lines.
func extractTotal(text string) *float64 {
	for _, line := range util.SplitLines(text) {
		lower := strings.ToLower(line)
		if !reTotal.MatchString(line) {
			continue
		}
		if strings.Contains(lower, "sub") || strings.Contains(lower, "sup") {
			continue
		}
		amount := reAmount.FindString(line)
		if amount == "" {
			continue
		}
		v, err := strconv.ParseFloat(amount, 64)
		if err != nil {
			continue
		}
		return util.FloatPtr(v)
	}
	return nil
}

func extractCandidates(text string) []internal.RawLineCandidate {
	out := []internal.RawLineCandidate{}
	for lineNo, line := range util.SplitLines(text) {
		m := reItemLine.FindStringSubmatch(util.NormalizeSpaces(line))
		if m == nil {
			continue
		}

		qty, _ := strconv.Atoi(m[1])
		itemText := strings.TrimSpace(m[2])
		if len(itemText) < minItemTextLen || isStopItem(itemText) {
			continue
		}

		candidate := internal.RawLineCandidate{
			LineNo:      lineNo + 1,
			Text:        itemText,
			OCRQuantity: qty,
		}
		if m[3] != "" {
			if price, err := strconv.ParseFloat(m[3], 64); err == nil {
				candidate.LinePrice = util.FloatPtr(price)
			}
		}
		out = append(out, candidate)
	}
	return out
}

func isStopItem(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range stopWords {
		if lower == w || strings.HasPrefix(lower, w+" ") {
			return true
		}
	}
	for _, p := range stopPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
