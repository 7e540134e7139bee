package catalog

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"tally/internal"
)

// ReadCSV loads catalog entries from a two-column CSV file (name, unit price).
// A header row is skipped when the second column does not parse as a number.
func ReadCSV(path string) ([]internal.CatalogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read catalog csv: %w", err)
	}

	out := make([]internal.CatalogEntry, 0, len(records))
	for i, rec := range records {
		if len(rec) < 2 {
			return nil, fmt.Errorf("catalog csv row %d: want name,price", i+1)
		}
		name := strings.TrimSpace(rec[0])
		price, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			if i == 0 {
				continue
			}
			return nil, fmt.Errorf("catalog csv row %d: bad price %q", i+1, rec[1])
		}
		if name == "" {
			return nil, fmt.Errorf("catalog csv row %d: empty name", i+1)
		}
		if price < 0 {
			return nil, fmt.Errorf("catalog csv row %d: negative price", i+1)
		}
		out = append(out, internal.CatalogEntry{Name: name, Price: price})
	}

	return out, nil
}
