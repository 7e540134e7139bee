package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"tally/internal"
	"tally/internal/catalog"
	"tally/internal/config"
	"tally/internal/pipeline"
	"tally/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "catalog:import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "csv file with name,price rows")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}
		entries, err := catalog.ReadCSV(*file)
		must(err)
		must(db.UpsertCatalogItems(entries))
		fmt.Printf("catalog import complete: %d items\n", len(entries))
	case "catalog:list":
		entries, err := db.ListCatalog()
		must(err)
		for _, e := range entries {
			fmt.Printf("%d\t%s\t%.2f\n", e.ID, e.Name, e.Price)
		}
	case "receipt:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "receipt transcript (.txt|.pdf|.html|.eml)")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}
		svc := pipeline.NewProcessingService(db, cfg, logger, nil)
		res, err := svc.ProcessReceipt(*input)
		must(err)
		fmt.Printf("processed receipt id=%s succeeded=%t matched=%d unmatched=%d\n",
			res.ReceiptID, res.Receipt.Succeeded, len(res.Matched), len(res.Unmatched))
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		receiptID := fs.String("receiptId", "", "receipt id")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*receiptID) == "" || strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--receiptId and --out are required"))
		}
		rows, err := db.GetExportRows(*receiptID)
		must(err)
		if len(rows) == 0 {
			must(fmt.Errorf("no export rows for receiptId=%s", *receiptID))
		}
		must(pipeline.ExportRowsToXLSX(rows, *out))
		fmt.Printf("exported %d rows to %s\n", len(rows), *out)
	case "run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "receipt transcript (.txt|.pdf|.html|.eml)")
		output := fs.String("output", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if *input == "" || *output == "" {
			must(fmt.Errorf("--input and --output are required"))
		}
		svc := pipeline.NewProcessingService(db, cfg, logger, nil)
		res, err := svc.ProcessReceipt(*input)
		must(err)
		rows := make([]internal.ItemExportRow, 0, len(res.Matched))
		for _, m := range res.Matched {
			rows = append(rows, internal.ItemExportRow{
				LineNo:      m.LineNo,
				MatchedText: m.MatchedText,
				ItemID:      m.Entry.ID,
				ItemName:    m.Entry.Name,
				UnitPrice:   m.Entry.Price,
				Quantity:    m.Quantity,
				OCRQuantity: m.OCRQuantity,
				Confidence:  m.Confidence,
				Tier:        string(m.Tier),
				LinePrice:   m.LinePrice,
			})
		}
		must(pipeline.ExportRowsToXLSX(rows, *output))
		fmt.Printf("run done receipt=%s rows=%d output=%s\n", res.ReceiptID, len(rows), *output)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage: tally <command>")
	fmt.Println("commands:")
	fmt.Println("  catalog:import --file=menu.csv")
	fmt.Println("  catalog:list")
	fmt.Println("  receipt:process --input=receipt.txt")
	fmt.Println("  export:xlsx --receiptId=... --out=./out/receipt.xlsx")
	fmt.Println("  run --input=receipt.txt --output=./out/receipt.xlsx")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
