package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksred/dealbook/internal/table"
)

var dealColumns = []string{
	ColDeal, ColLogin, ColGroup, ColProcessingRule, ColVolume, ColTraderProfit,
	"Profit", ColDateTime, ColSwaps, ColCommission, ColTPProfit, ColBrokerProfit,
}

// sampleDeals is the seven-deal book used across the pipeline tests.
func sampleDeals() *table.Table {
	return table.New(dealColumns, [][]string{
		{"101", "1001", `real\Retail`, "Pipwise", "10000", "100", "105.00 USD", "01.01.2024 10:00:00", "10", "5", "50", "50"},
		{"102", "1002", `real\Chines`, "Pipwise", "20000", "-50", "-55.00 USC", "01.01.2024 10:00:00", "5", "10", "60", "60"},
		{"103", "1001", `real\Retail`, "Multi Book", "5000", "20", "22.00 USD", "01.01.2024 10:00:00", "2", "3", "10", "10"},
		{"104", "1003", `BBOOK\Retail`, "Retail B-book", "15000", "-30", "-35.00 USD", "01.01.2024 10:00:00", "-5", "8", "0", "90"},
		{"105", "1004", `BBOOK\Chines`, "Retail B-book", "25000", "150", "165.00 USD", "01.01.2024 10:00:00", "15", "12", "0", "80"},
		{"106", "1005", `real\Excluded`, "Pipwise", "50000", "200", "220.00 USD", "01.01.2024 10:00:00", "20", "25", "100", "100"},
		{"107", "1002", `real\Chines`, "Pipwise", "8000", "40", "43.00 USD", "01.01.2024 10:00:00", "3", "4", "20", "20"},
	})
}

func set(values ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

func rowFor(t *testing.T, agg *Aggregate, login string) AggregateRow {
	t.Helper()
	for _, r := range agg.Rows {
		if r.Login == login {
			return r
		}
	}
	t.Fatalf("login %s not found", login)
	return AggregateRow{}
}

func TestNormalizeCurrency(t *testing.T) {
	tbl := table.New([]string{"Login", "Comment"}, [][]string{
		{"1001", "profit 150.00 USC today"},
		{"1002", "12usc and 3 Usc"},
		{"1003", "100 USD"},
	})

	out := NormalizeCurrency(tbl)

	assert.Equal(t, "profit 1.5000 USD today", out.Rows[0][1])
	assert.Equal(t, "0.1200 USD and 0.0300 USD", out.Rows[1][1])
	assert.Equal(t, "100 USD", out.Rows[2][1])
	assert.Equal(t, "profit 150.00 USC today", tbl.Rows[0][1], "input must not be modified")
}

func TestNormalizeCurrency_SkipsNumericColumns(t *testing.T) {
	tbl := table.New([]string{"Volume"}, [][]string{{"150"}, {"200.5"}})

	out := NormalizeCurrency(tbl)
	assert.Equal(t, tbl.Rows, out.Rows)
}

func TestClassify(t *testing.T) {
	deals := sampleDeals()
	deals.Rows[2][3] = "  Pipwise  "

	books, err := Classify(deals)
	require.NoError(t, err)

	assert.Equal(t, 5, books[BookA].Len())
	assert.Equal(t, 2, books[BookB].Len())
	assert.Equal(t, 0, books[BookMulti].Len())
	assert.Equal(t, deals.Len(), books[BookA].Len()+books[BookB].Len()+books[BookMulti].Len())
	assert.Equal(t, "101", books[BookA].Rows[0][0])
	assert.Equal(t, "103", books[BookA].Rows[2][0], "row order is preserved")
}

func TestClassify_MissingRule(t *testing.T) {
	deals := table.New([]string{ColDeal, ColLogin}, [][]string{{"1", "1001"}})

	_, err := Classify(deals)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingColumn)

	var mc *MissingColumnError
	require.ErrorAs(t, err, &mc)
	assert.Equal(t, ColProcessingRule, mc.Column)
}

func TestClassify_EmptyTable(t *testing.T) {
	books, err := NormalizeAndClassify(table.Empty(nil))
	require.NoError(t, err)

	for _, kind := range BookKinds {
		assert.True(t, books[kind].IsEmpty(), kind)
	}
}

func TestClassifyRule(t *testing.T) {
	assert.Equal(t, BookA, ClassifyRule("Pipwise"))
	assert.Equal(t, BookB, ClassifyRule(" Retail B-book "))
	assert.Equal(t, BookMulti, ClassifyRule("pipwise"))
	assert.Equal(t, BookMulti, ClassifyRule(""))
}

func TestEnrich(t *testing.T) {
	tbl := table.New([]string{"Deal", "a", "b", "c", "d", "e", "Profit", ColDateTime}, [][]string{
		{"1", "", "", "", "", "", "-12.50 usd", "15.03.2024 09:05:07"},
		{" 1 ", "", "", "", "", "", "99 USD", "15.03.2024 09:05:07"},
		{"2", "", "", "", "", "", "garbage", "not a date"},
	})

	out := Enrich(tbl)

	require.Equal(t, 2, out.Len())
	assert.Equal(t, append(tbl.Columns, ColProfitValue, ColProfitUnit, ColDate, ColTime), out.Columns)

	assert.Equal(t, "-12.5", out.Value(0, ColProfitValue))
	assert.Equal(t, "USD", out.Value(0, ColProfitUnit))
	assert.Equal(t, "2024-03-15", out.Value(0, ColDate))
	assert.Equal(t, "09:05:07", out.Value(0, ColTime))

	assert.Equal(t, "0", out.Value(1, ColProfitValue))
	assert.Equal(t, "GARBAGE", out.Value(1, ColProfitUnit))
	assert.Equal(t, "", out.Value(1, ColDate))
	assert.Equal(t, "", out.Value(1, ColTime))
}

func TestEnrichWithStats(t *testing.T) {
	tbl := table.New([]string{"Deal", "a", "b", "c", "d", "e", "Profit", ColDateTime}, [][]string{
		{"1", "", "", "", "", "", "-12.50 usd", "15.03.2024 09:05:07"},
		{"1", "", "", "", "", "", "99 USD", "15.03.2024 09:05:07"},
		{"2", "", "", "", "", "", "garbage", "not a date"},
		{"3", "", "", "", "", "", "", ""},
	})

	out, stats := EnrichWithStats(tbl)

	assert.Equal(t, 3, out.Len())
	assert.Equal(t, EnrichStats{Duplicates: 1, BadProfits: 1, BadTimestamps: 1}, stats)
}

func TestEnrich_OverwritesExistingDerivedColumns(t *testing.T) {
	tbl := table.New([]string{"Deal", "a", "b", "c", "d", "e", "Profit", ColDateTime, ColTime}, [][]string{
		{"1", "", "", "", "", "", "5 USD", "15.03.2024 09:05:07", "09:05"},
	})

	out := Enrich(tbl)

	assert.Equal(t, append(append([]string(nil), tbl.Columns...), ColProfitValue, ColProfitUnit, ColDate), out.Columns)
	assert.Equal(t, "09:05:07", out.Value(0, ColTime))
	assert.Equal(t, "09:05:07", out.Rows[0][8])
	assert.Equal(t, "2024-03-15", out.Value(0, ColDate))
	assert.Equal(t, "5", out.Value(0, ColProfitValue))
	assert.Equal(t, "09:05", tbl.Rows[0][8], "input must not be modified")
}

func TestEnrich_Empty(t *testing.T) {
	tbl := table.Empty(dealColumns)
	assert.Same(t, tbl, Enrich(tbl))
}

func TestEnrich_ShortRows(t *testing.T) {
	out := Enrich(table.New([]string{"Deal"}, [][]string{{"1"}}))

	require.Equal(t, 1, out.Len())
	assert.Equal(t, "0", out.Value(0, ColProfitValue))
	assert.Equal(t, "", out.Value(0, ColDate))
}

func TestFilterByDateRange(t *testing.T) {
	tbl := table.New([]string{ColDeal, ColDateTime}, [][]string{
		{"1", "01.01.2024 00:00:00"},
		{"2", "15.01.2024 12:00:00"},
		{"3", "31.01.2024 23:59:59"},
		{"4", "01.02.2024 00:00:00"},
		{"5", "bad"},
	})

	out, err := FilterByDateRange(tbl, "01.01.2024 00:00:00", "31.01.2024 23:59:59")
	require.NoError(t, err)

	require.Equal(t, 3, out.Len())
	assert.Equal(t, "1", out.Rows[0][0])
	assert.Equal(t, "3", out.Rows[2][0])
}

func TestFilterByDateRange_InvalidBounds(t *testing.T) {
	tbl := table.New([]string{ColDateTime}, [][]string{{"01.01.2024 00:00:00"}})

	_, err := FilterByDateRange(tbl, "2024-01-01", "31.01.2024 23:59:59")
	assert.ErrorIs(t, err, ErrInvalidDateFormat)

	_, err = FilterByDateRange(tbl, "01.01.2024 00:00:00", "tomorrow")
	assert.ErrorIs(t, err, ErrInvalidDateFormat)
}

func TestFilterByDateRange_MissingBounds(t *testing.T) {
	tbl := table.New([]string{ColDeal, ColDateTime}, [][]string{
		{"1", "01.01.2024 00:00:00"},
		{"2", "bad"},
	})

	tests := []struct {
		name       string
		start, end string
	}{
		{name: "both blank"},
		{name: "no end", start: "01.01.2024 00:00:00"},
		{name: "no start", end: "31.01.2024 23:59:59"},
		{name: "whitespace", start: "  ", end: "31.01.2024 23:59:59"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := FilterByDateRange(tbl, tt.start, tt.end)
			require.NoError(t, err)
			assert.Same(t, tbl, out)
		})
	}
}

func TestFilterByDateRange_PassThrough(t *testing.T) {
	noColumn := table.New([]string{ColDeal}, [][]string{{"1"}})
	out, err := FilterByDateRange(noColumn, "bad", "bad")
	require.NoError(t, err)
	assert.Same(t, noColumn, out)

	empty := table.Empty([]string{ColDateTime})
	out, err = FilterByDateRange(empty, "bad", "bad")
	require.NoError(t, err)
	assert.Same(t, empty, out)
}

func TestAggregateBook_ABookExclusionZeroesFees(t *testing.T) {
	books, err := NormalizeAndClassify(sampleDeals())
	require.NoError(t, err)

	agg, err := AggregateBook(Enrich(books[BookA]), set("1005"), BookA)
	require.NoError(t, err)

	excluded := rowFor(t, agg, "1005")
	assert.Equal(t, 50000.0, excluded.TotalVolume)
	assert.Equal(t, 200.0, excluded.TraderProfit)
	assert.Equal(t, 20.0, excluded.Swaps)
	assert.Equal(t, 0.0, excluded.Commission)
	assert.Equal(t, 0.0, excluded.TPProfit)
	assert.Equal(t, 0.0, excluded.BrokerProfit)
	assert.Equal(t, 220.0, excluded.Net)

	regular := rowFor(t, agg, "1001")
	assert.Equal(t, 5.0, regular.Commission)
	assert.Equal(t, 50.0, regular.TPProfit)
	assert.Equal(t, 105.0, regular.Net)

	merged := rowFor(t, agg, "1002")
	assert.Equal(t, 28000.0, merged.TotalVolume)
	assert.Equal(t, 14.0, merged.Commission)
}

func TestAggregateBook_BBookExclusionDropsLogin(t *testing.T) {
	tbl := table.New(dealColumns, [][]string{
		{"201", "1003", `BBOOK\Retail`, "Retail B-book", "15000", "-30", "", "", "-5", "8", "0", "90"},
		{"202", "1005", `BBOOK\Retail`, "Retail B-book", "5000", "10", "", "", "1", "2", "0", "9"},
	})

	agg, err := AggregateBook(tbl, set("1005"), BookB)
	require.NoError(t, err)

	require.Len(t, agg.Rows, 2)
	for _, r := range agg.Rows {
		assert.NotEqual(t, "1005", r.Login)
	}
	summary, ok := agg.Summary()
	require.True(t, ok)
	assert.Equal(t, -43.0, summary.Net)
}

func TestAggregateBook_SummaryMatchesRows(t *testing.T) {
	books, err := NormalizeAndClassify(sampleDeals())
	require.NoError(t, err)

	for _, kind := range BookKinds {
		agg, err := AggregateBook(Enrich(books[kind]), set("1005"), kind)
		require.NoError(t, err)
		if len(agg.Rows) == 0 {
			continue
		}

		var sum AggregateRow
		for _, r := range agg.Clients() {
			sum.add(r)
		}
		summary, ok := agg.Summary()
		require.True(t, ok)
		assert.Equal(t, SummaryLogin, agg.Rows[len(agg.Rows)-1].Login, "summary row is last")
		assert.InDelta(t, sum.TotalVolume, summary.TotalVolume, 1e-4)
		assert.InDelta(t, sum.TraderProfit, summary.TraderProfit, 1e-4)
		assert.InDelta(t, sum.Swaps, summary.Swaps, 1e-4)
		assert.InDelta(t, sum.Commission, summary.Commission, 1e-4)
		assert.InDelta(t, sum.TPProfit, summary.TPProfit, 1e-4)
		assert.InDelta(t, sum.BrokerProfit, summary.BrokerProfit, 1e-4)
		assert.InDelta(t, sum.Net, summary.Net, 1e-4)
	}
}

func TestAggregateBook_MissingColumn(t *testing.T) {
	tbl := table.New([]string{ColLogin, ColVolume}, [][]string{{"1001", "100"}})

	_, err := AggregateBook(tbl, nil, BookA)

	var mc *MissingColumnError
	require.ErrorAs(t, err, &mc)
	assert.Equal(t, ColTraderProfit, mc.Column)
}

func TestAggregateBook_Empty(t *testing.T) {
	agg, err := AggregateBook(table.Empty(nil), nil, BookA)
	require.NoError(t, err)

	assert.Empty(t, agg.Rows)
	_, ok := agg.Summary()
	assert.False(t, ok)
	assert.Equal(t, AggregateColumns, agg.Table().Columns)
}

func TestAggregateBook_DirtyNumbersAndBlankLogins(t *testing.T) {
	tbl := table.New(dealColumns, [][]string{
		{"1", " 1001 ", "", "Pipwise", "1,000.50 USD", "n/a", "", "", "", "2", "1", "1"},
		{"2", "", "", "Pipwise", "10", "10", "", "", "10", "10", "10", "10"},
	})

	agg, err := AggregateBook(tbl, nil, BookA)
	require.NoError(t, err)

	r := rowFor(t, agg, "1001")
	assert.Equal(t, 1000.5, r.TotalVolume)
	assert.Equal(t, 0.0, r.TraderProfit)
	assert.Equal(t, -2.0, r.Net)
	assert.Equal(t, 1, agg.InvalidCells, "only the n/a cell is counted")
}

func TestPolicyFor(t *testing.T) {
	assert.Equal(t, PolicyZero, PolicyFor(BookA))
	assert.Equal(t, PolicyDrop, PolicyFor(BookB))
	assert.Equal(t, PolicyZero, PolicyFor(BookMulti))
	assert.Equal(t, PolicyNone, PolicyFor(BookKind("Other")))
}

func TestChineseClients(t *testing.T) {
	books, err := NormalizeAndClassify(sampleDeals())
	require.NoError(t, err)

	cn := ChineseClients(books, set("1005"))

	require.Len(t, cn.Rows, 3)
	assert.Equal(t, 28000.0, rowFor(t, cn, "1002").TotalVolume)
	assert.Equal(t, 25000.0, rowFor(t, cn, "1004").TotalVolume)

	summary, ok := cn.Summary()
	require.True(t, ok)
	assert.Equal(t, 53000.0, summary.TotalVolume)
	assert.Equal(t, 153.0+(-10+8-14), summary.Net)
}

func TestChineseClients_ExcludedAreOmitted(t *testing.T) {
	books, err := NormalizeAndClassify(sampleDeals())
	require.NoError(t, err)

	cn := ChineseClients(books, set("1002", "1004"))

	assert.Empty(t, cn.Rows)
	assert.Equal(t, AggregateColumns, cn.Table().Columns)
}

func TestChineseClients_SkipsBooksWithoutGroup(t *testing.T) {
	books := Books{
		BookA: table.New([]string{ColLogin, ColVolume}, [][]string{{"1", "10"}}),
	}

	assert.Empty(t, ChineseClients(books, nil).Rows)
}

func TestClientSummary(t *testing.T) {
	aggregates := map[BookKind]*Aggregate{
		BookA:     withSummary([]AggregateRow{{Login: "1001", TotalVolume: 10, Net: 1}, {Login: "1002", TotalVolume: 5}}),
		BookMulti: withSummary([]AggregateRow{{Login: "1001", TotalVolume: 2.00004, Net: 2}}),
		BookB:     withSummary(nil),
	}

	summary := ClientSummary(aggregates)

	require.Len(t, summary.Rows, 3)
	assert.Equal(t, "1001", summary.Rows[0].Login)
	assert.Equal(t, 12.0, summary.Rows[0].TotalVolume)
	assert.Equal(t, 3.0, summary.Rows[0].Net)

	total, ok := summary.Summary()
	require.True(t, ok)
	assert.Equal(t, 17.0, total.TotalVolume)
}

func TestClientSummary_Empty(t *testing.T) {
	summary := ClientSummary(map[BookKind]*Aggregate{})
	assert.Empty(t, summary.Rows)
}

func TestVIPVolume(t *testing.T) {
	books, err := NormalizeAndClassify(sampleDeals())
	require.NoError(t, err)

	assert.Equal(t, 28000.0, VIPVolume(books, set("1002"), set("1005")))
	assert.Equal(t, 0.0, VIPVolume(books, set("1005"), set("1005")))
	assert.Equal(t, 0.0, VIPVolume(books, nil, nil))
}

func TestIsChineseGroup(t *testing.T) {
	assert.True(t, IsChineseGroup(`real\Chinese-VIP`))
	assert.True(t, IsChineseGroup(` BBOOK\Chines`))
	assert.False(t, IsChineseGroup(`real\Retail`))
	assert.False(t, IsChineseGroup(`Chines`))
}

func TestFinalCalculations_MissingInputsAreZero(t *testing.T) {
	calcs := FinalCalculations(nil, nil, 0, "")

	v, ok := calcs.Lookup("Total A Book", "Sum of above two values")
	require.True(t, ok)
	assert.Equal(t, 0.0, v)
	assert.Len(t, calcs, 22)
	assert.Equal(t, "A BOOK SUMMARY", calcs[0].Source)
}

func TestCalculations_Table(t *testing.T) {
	calcs := FinalCalculations(nil, nil, 100000, "From a to b")
	tbl := calcs.Table()

	assert.Equal(t, FinalColumns, tbl.Columns)
	assert.Equal(t, []string{"DATE RANGE", "", "From a to b"}, tbl.Rows[0])
	assert.Equal(t, []string{"", "", ""}, tbl.Rows[1])
	assert.Equal(t, []string{"Source", "Description", "Value"}, tbl.Rows[3])
	assert.Equal(t, []string{"VIP Clients", "Volume (Lot)", "0.5"}, tbl.Rows[21])
	assert.Equal(t, []string{"Retail Clients", "Volume (Lot)", "-0.5"}, tbl.Rows[22])
}
