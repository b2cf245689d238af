// Command parse-statement extracts transactions from a statement file and
// prints them as JSON or CSV, without touching the database.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/FACorreiaa/bankountable/internal/domain/import/document"
	"github.com/FACorreiaa/bankountable/internal/domain/import/parser"
	"github.com/FACorreiaa/bankountable/pkg/config"
)

type options struct {
	file      string
	format    string
	inspect   bool
	passwords string
	verbose   bool
}

func main() {
	var opts options
	flag.StringVar(&opts.file, "file", "", "statement file (PDF, XLSX or CSV)")
	flag.StringVar(&opts.format, "format", "json", "output format: json or csv")
	flag.BoolVar(&opts.inspect, "inspect", false, "print the extracted pages before the transactions")
	flag.StringVar(&opts.passwords, "passwords", "", "comma separated passphrases, overrides PDF_PASSWORDS")
	flag.BoolVar(&opts.verbose, "v", false, "debug logging")
	flag.Parse()

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(context.Background(), opts, os.Stdout, logger); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, out io.Writer, logger *slog.Logger) error {
	if opts.file == "" {
		return errors.New("-file is required")
	}
	if opts.format != "json" && opts.format != "csv" {
		return fmt.Errorf("unknown format %q", opts.format)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	passphrases := cfg.Parser.Passphrases
	if opts.passwords != "" {
		passphrases = splitList(opts.passwords)
	}

	// Decryption rewrites the file, so work on a copy.
	path, cleanup, err := copyToTemp(opts.file)
	if err != nil {
		return err
	}
	defer cleanup()

	access := document.NewAccess(document.NewFormatOpener(), document.NewPDFDecrypter(), passphrases, logger)

	if opts.inspect {
		if err := inspect(access, path, out); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}

	p := parser.NewParser(access, parser.NewChain(parser.Options{Bounds: cfg.Parser.Bounds()}), logger)
	result, err := p.ParseFile(ctx, path)
	if err != nil {
		return err
	}

	if opts.format == "csv" {
		return gocsv.Marshal(csvRows(result.Candidates), out)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

type csvRow struct {
	Date          string `csv:"date"`
	Description   string `csv:"description"`
	Merchant      string `csv:"merchant"`
	Amount        string `csv:"amount"`
	PaymentMethod string `csv:"payment_method"`
}

func csvRows(cands []parser.Candidate) []*csvRow {
	rows := make([]*csvRow, 0, len(cands))
	for _, c := range cands {
		rows = append(rows, &csvRow{
			Date:          c.Date.String(),
			Description:   c.Description,
			Merchant:      c.Merchant,
			Amount:        c.Amount.String(),
			PaymentMethod: string(c.PaymentMethod),
		})
	}
	return rows
}

const (
	inspectRows  = 3
	inspectLines = 10
)

func inspect(access *document.Access, path string, out io.Writer) error {
	opened, err := access.Open(path)
	if err != nil {
		return err
	}
	defer opened.Document.Close()

	fmt.Fprintf(out, "access: %s\npages: %d\n", opened.Mode, opened.Document.NumPages())
	for n := 1; n <= opened.Document.NumPages(); n++ {
		page, err := opened.Document.Page(n)
		if err != nil {
			return fmt.Errorf("failed to read page %d: %w", n, err)
		}
		fmt.Fprintf(out, "\n== page %d: %d tables\n", n, len(page.Tables))
		for i, t := range page.Tables {
			fmt.Fprintf(out, "table %d (%d rows)\n", i+1, len(t))
			for _, row := range t[:min(len(t), inspectRows)] {
				fmt.Fprintf(out, "  | %s |\n", strings.Join(cells(row), " | "))
			}
		}
		lines := strings.Split(strings.TrimSpace(page.Text), "\n")
		for _, line := range lines[:min(len(lines), inspectLines)] {
			fmt.Fprintf(out, "  %s\n", line)
		}
	}
	return nil
}

func cells(row []*string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		if c != nil {
			out[i] = *c
		}
	}
	return out
}

func copyToTemp(src string) (string, func(), error) {
	in, err := os.Open(src)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	dir, err := os.MkdirTemp("", "parse-statement-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	path := filepath.Join(dir, filepath.Base(src))
	outFile, err := os.Create(path)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to create copy: %w", err)
	}
	if _, err := io.Copy(outFile, in); err != nil {
		outFile.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to copy statement: %w", err)
	}
	if err := outFile.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
