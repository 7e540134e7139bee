package pipeline

import (
	"log/slog"
	"math"

	"tally/internal"
	"tally/internal/config"
)

// Reconciler corrects matched quantities so their weighted sum agrees with an
// independently observed subtotal, compensating for single-digit OCR misreads.
// It never drops an item and never errors; when no valid combination exists
// within bounds, the OCR quantities are kept as-is.
type Reconciler struct {
	cfg    config.Config
	logger *slog.Logger
}

func NewReconciler(cfg config.Config, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{cfg: cfg, logger: logger}
}

// Reconcile adjusts Quantity in place. Catalog unit prices are authoritative;
// scanned line prices are diagnostic only and take no part in the arithmetic.
// Re-running on already reconciled output is a no-op.
func (r *Reconciler) Reconcile(matches []internal.MatchResult, subtotal *float64) {
	if subtotal == nil || *subtotal <= 0 || len(matches) == 0 {
		return
	}
	target := *subtotal

	prices := make([]float64, len(matches))
	current := make([]int, len(matches))
	for i, m := range matches {
		prices[i] = m.Entry.Price
		current[i] = m.Quantity
	}

	// Common case: the OCR quantities already add up.
	if math.Abs(weightedSum(current, prices)-target) < r.cfg.SubtotalTolerance {
		return
	}

	var corrected []int
	var ok bool
	switch {
	case len(matches) == 1:
		corrected, ok = r.correctSingle(prices[0], target)
	case len(matches) <= r.cfg.ExhaustiveMaxItems:
		corrected, ok = r.correctExhaustive(prices, target)
	default:
		corrected, ok = r.correctGreedy(prices, current, target)
	}

	if !ok {
		r.logger.Info("quantity reconciliation did not converge",
			"items", len(matches), "subtotal", target,
		)
		return
	}

	for i := range matches {
		matches[i].Quantity = corrected[i]
	}
	r.logger.Info("quantities reconciled", "items", len(matches), "subtotal", target)
}

func (r *Reconciler) correctSingle(price, target float64) ([]int, bool) {
	if price <= 0 {
		return nil, false
	}
	qty := int(math.Round(target / price))
	if qty < 0 {
		return nil, false
	}
	if math.Abs(float64(qty)*price-target) >= r.cfg.SubtotalTolerance {
		return nil, false
	}
	return []int{qty}, true
}

// correctExhaustive enumerates every quantity combination in
// [0, MaxQuantity] per item; with at most ExhaustiveMaxItems items the space
// is capped at (MaxQuantity+1)^3 combinations.
func (r *Reconciler) correctExhaustive(prices []float64, target float64) ([]int, bool) {
	quantities := make([]int, len(prices))
	for {
		if math.Abs(weightedSum(quantities, prices)-target) < r.cfg.SubtotalTolerance {
			return quantities, true
		}

		i := 0
		for i < len(quantities) {
			quantities[i]++
			if quantities[i] <= r.cfg.MaxQuantity {
				break
			}
			quantities[i] = 0
			i++
		}
		if i == len(quantities) {
			return nil, false
		}
	}
}

// correctGreedy is a one-pass local search for larger orders: per item, in
// original order, apply the single quantity change in [0, MaxQuantity] that
// most reduces the distance to the target. One pass only; it may miss a valid
// combination an exhaustive search would find.
func (r *Reconciler) correctGreedy(prices []float64, current []int, target float64) ([]int, bool) {
	quantities := make([]int, len(current))
	copy(quantities, current)
	sum := weightedSum(quantities, prices)

	for i := range quantities {
		bestQty := quantities[i]
		bestDiff := math.Abs(sum - target)

		for qty := 0; qty <= r.cfg.MaxQuantity; qty++ {
			if qty == quantities[i] {
				continue
			}
			trial := sum + float64(qty-quantities[i])*prices[i]
			if diff := math.Abs(trial - target); diff < bestDiff {
				bestDiff = diff
				bestQty = qty
			}
		}

		if bestQty != quantities[i] {
			sum += float64(bestQty-quantities[i]) * prices[i]
			quantities[i] = bestQty
		}
		if math.Abs(sum-target) < r.cfg.SubtotalTolerance {
			return quantities, true
		}
	}

	return nil, false
}

func weightedSum(quantities []int, prices []float64) float64 {
	sum := 0.0
	for i, q := range quantities {
		sum += float64(q) * prices[i]
	}
	return sum
}
