package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	OutputDir string

	// FuzzyThreshold is the minimum normalized Levenshtein similarity for a
	// fuzzy catalog match.
	FuzzyThreshold float64

	// SubtotalTolerance is the absolute monetary tolerance for treating two
	// totals as agreeing during quantity reconciliation.
	SubtotalTolerance float64

	// TotalRecalcTolerance is how far a scanned total may drift from
	// subtotal+tax before the total is recomputed.
	TotalRecalcTolerance float64

	// MaxQuantity bounds the per-item quantity search space [0, MaxQuantity].
	MaxQuantity int

	// ExhaustiveMaxItems is the largest order still reconciled by exhaustive
	// enumeration; larger orders fall back to the greedy pass.
	ExhaustiveMaxItems int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "tally.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		FuzzyThreshold:       getEnvFloat("MATCH_FUZZY_THRESHOLD", 0.60),
		SubtotalTolerance:    getEnvFloat("SUBTOTAL_TOLERANCE", 0.50),
		TotalRecalcTolerance: getEnvFloat("TOTAL_RECALC_TOLERANCE", 1.00),
		MaxQuantity:          getEnvInt("RECONCILE_MAX_QUANTITY", 10),
		ExhaustiveMaxItems:   getEnvInt("RECONCILE_EXHAUSTIVE_MAX_ITEMS", 3),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
