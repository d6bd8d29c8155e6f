package report

import (
	"github.com/rs/zerolog/log"

	"github.com/ksred/dealbook/internal/export"
	"github.com/ksred/dealbook/internal/table"
)

// Result table names, in export order.
const (
	SheetABookRaw          = "A Book Raw"
	SheetBBookRaw          = "B Book Raw"
	SheetMultiBookRaw      = "Multi Book Raw"
	SheetABookResult       = "A Book Result"
	SheetBBookResult       = "B Book Result"
	SheetMultiBookResult   = "Multi Book Result"
	SheetChineseClients    = "Chinese Clients"
	SheetClientSummary     = "Client Summary"
	SheetFinalCalculations = "Final Calculations"
)

var (
	rawSheets    = map[BookKind]string{BookA: SheetABookRaw, BookB: SheetBBookRaw, BookMulti: SheetMultiBookRaw}
	resultSheets = map[BookKind]string{BookA: SheetABookResult, BookB: SheetBBookResult, BookMulti: SheetMultiBookResult}
)

// Input is one report run's data. Start and End are both required for the
// date-range filter to apply.
type Input struct {
	Deals    *table.Table
	Excluded map[string]struct{}
	VIP      map[string]struct{}
	Start    string
	End      string
}

// Result holds every table a report run produces.
type Result struct {
	Raw               Books
	Aggregates        map[BookKind]*Aggregate
	ChineseClients    *Aggregate
	ClientSummary     *Aggregate
	FinalCalculations Calculations
	VIPVolume         float64
	DateRange         string
}

// Tables returns the nine result tables in export order.
func (r *Result) Tables() []export.Sheet {
	out := make([]export.Sheet, 0, 9)
	for _, kind := range BookKinds {
		out = append(out, export.Sheet{Name: rawSheets[kind], Table: r.Raw[kind]})
	}
	for _, kind := range BookKinds {
		out = append(out, export.Sheet{Name: resultSheets[kind], Table: r.Aggregates[kind].Table()})
	}
	return append(out,
		export.Sheet{Name: SheetChineseClients, Table: r.ChineseClients.Table()},
		export.Sheet{Name: SheetClientSummary, Table: r.ClientSummary.Table()},
		export.Sheet{Name: SheetFinalCalculations, Table: r.FinalCalculations.Table()},
	)
}

// Run executes the whole report pipeline: normalize and classify, enrich,
// optionally filter by date range, aggregate per book, then the segment
// rollups and the final calculations. Invalid date bounds fail the run
// before any table is touched.
func Run(in Input) (*Result, error) {
	deals := in.Deals
	if deals == nil {
		deals = table.Empty(nil)
	}

	filtered := in.Start != "" && in.End != ""
	if filtered {
		if _, err := ParseBound(in.Start); err != nil {
			return nil, err
		}
		if _, err := ParseBound(in.End); err != nil {
			return nil, err
		}
	}

	books, err := NormalizeAndClassify(deals)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Raw:        make(Books, len(BookKinds)),
		Aggregates: make(map[BookKind]*Aggregate, len(BookKinds)),
	}
	if filtered {
		res.DateRange = DateRangeLabel(in.Start, in.End)
	}

	logger := log.With().Str("service", "report").Logger()
	for _, kind := range BookKinds {
		enriched, stats := EnrichWithStats(books[kind])
		deduped := enriched.Len()
		if filtered {
			if enriched, err = FilterByDateRange(enriched, in.Start, in.End); err != nil {
				return nil, err
			}
		}
		res.Raw[kind] = enriched

		logger.Debug().
			Str("book", string(kind)).
			Int("rows", books[kind].Len()).
			Int("duplicates", stats.Duplicates).
			Int("bad_profits", stats.BadProfits).
			Int("bad_timestamps", stats.BadTimestamps).
			Int("outside_range", deduped-enriched.Len()).
			Msg("prepared book")
	}

	for _, kind := range BookKinds {
		agg, err := AggregateBook(res.Raw[kind], in.Excluded, kind)
		if err != nil {
			return nil, err
		}
		res.Aggregates[kind] = agg
		if agg.InvalidCells > 0 {
			logger.Debug().
				Str("book", string(kind)).
				Int("invalid_cells", agg.InvalidCells).
				Msg("coerced unparseable numbers to zero")
		}
	}

	res.ChineseClients = ChineseClients(res.Raw, in.Excluded)
	res.ClientSummary = ClientSummary(res.Aggregates)
	res.VIPVolume = VIPVolume(res.Raw, in.VIP, in.Excluded)
	res.FinalCalculations = FinalCalculations(res.Aggregates, res.ChineseClients, res.VIPVolume, res.DateRange)

	logger.Info().
		Int("deals", deals.Len()).
		Int("chinese_clients", len(res.ChineseClients.Clients())).
		Int("clients", len(res.ClientSummary.Clients())).
		Float64("vip_volume", res.VIPVolume).
		Bool("filtered", filtered).
		Msg("report run completed")

	return res, nil
}
