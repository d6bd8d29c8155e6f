package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/ksred/dealbook/internal/export"
	"github.com/ksred/dealbook/internal/report"
	"github.com/ksred/dealbook/internal/table"
)

type options struct {
	deals    string
	excluded string
	vip      string
	start    string
	end      string
	out      string
	csvDir   string
}

func main() {
	var opts options
	flag.StringVar(&opts.deals, "deals", "", "Deals export (CSV or XLSX)")
	flag.StringVar(&opts.excluded, "excluded", "", "Optional headerless list of excluded logins")
	flag.StringVar(&opts.vip, "vip", "", "Optional headerless list of VIP logins")
	flag.StringVar(&opts.start, "start", "", "Start of the date range, 'dd.mm.yyyy hh:mm:ss'")
	flag.StringVar(&opts.end, "end", "", "End of the date range, 'dd.mm.yyyy hh:mm:ss'")
	flag.StringVar(&opts.out, "out", "report.xlsx", "Path of the XLSX workbook to write")
	flag.StringVar(&opts.csvDir, "csv-dir", "", "Optional directory to write one CSV per result table")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zlog.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if opts.deals == "" {
		flag.Usage()
		os.Exit(2)
	}

	result, err := run(opts)
	if err != nil {
		zlog.Fatal().Err(err).Msg("report failed")
	}

	for _, c := range result.FinalCalculations {
		if c.Numeric {
			zlog.Info().Str("source", c.Source).Str("description", c.Description).Float64("value", c.Amount).Msg("final calculation")
		}
	}
	zlog.Info().Str("out", opts.out).Str("csv_dir", opts.csvDir).Msg("report written")
}

// run executes the report over local files and writes the requested outputs
func run(opts options) (*report.Result, error) {
	deals, err := table.ReadFile(opts.deals)
	if err != nil {
		return nil, fmt.Errorf("failed to read deals: %w", err)
	}
	excluded, err := readLoginList(opts.excluded)
	if err != nil {
		return nil, fmt.Errorf("failed to read excluded logins: %w", err)
	}
	vip, err := readLoginList(opts.vip)
	if err != nil {
		return nil, fmt.Errorf("failed to read vip logins: %w", err)
	}

	result, err := report.Run(report.Input{
		Deals:    deals,
		Excluded: excluded,
		VIP:      vip,
		Start:    opts.start,
		End:      opts.end,
	})
	if err != nil {
		return nil, err
	}

	if opts.out != "" {
		if err := writeWorkbook(opts.out, result.Tables()); err != nil {
			return nil, err
		}
	}
	if opts.csvDir != "" {
		if err := export.WriteCSVDir(opts.csvDir, result.Tables()); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// readLoginList reads an optional headerless login list. An empty path or
// an empty file yields an empty set.
func readLoginList(path string) (map[string]struct{}, error) {
	if path == "" {
		return map[string]struct{}{}, nil
	}
	t, err := table.ReadFile(path)
	if errors.Is(err, table.ErrNoHeader) {
		return map[string]struct{}{}, nil
	}
	if err != nil {
		return nil, err
	}
	return table.SetFromColumn(t), nil
}

func writeWorkbook(path string, sheets []export.Sheet) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := export.WriteXLSX(f, sheets); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
