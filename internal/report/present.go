package report

import (
	"hash/fnv"
	"sort"

	"github.com/shopspring/decimal"

	"budgetplanner/internal/core"
)

// Palette is the fixed set of chart colors.
var Palette = []string{
	"hsl(217, 91%, 60%)",
	"hsl(142, 76%, 46%)",
	"hsl(48, 96%, 53%)",
	"hsl(280, 100%, 70%)",
	"hsl(0, 72%, 51%)",
	"hsl(24, 100%, 60%)",
	"hsl(200, 100%, 50%)",
	"hsl(300, 100%, 60%)",
}

// ColorStrategy picks a palette color for the category at position i.
type ColorStrategy func(category string, i int) string

// ByName hashes the category name into the palette, so a category keeps its
// color whatever else is on the chart.
func ByName(category string, _ int) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(category))
	return Palette[h.Sum32()%uint32(len(Palette))]
}

// ByOrder cycles through the palette in slice order.
func ByOrder(_ string, i int) string {
	return Palette[i%len(Palette)]
}

// CSVHeader is the first row of every export.
var CSVHeader = []string{"Date", "Type", "Category", "Description", "Amount"}

// DefaultTopCategories is how many categories the report breakdown lists.
const DefaultTopCategories = 8

type (
	PieSlice struct {
		Category   string          `json:"category"`
		Amount     decimal.Decimal `json:"amount"`
		Percentage string          `json:"percentage"`
		Color      string          `json:"color"`
	}

	TrendPoint struct {
		Month   string          `json:"month"`
		Label   string          `json:"label"`
		Income  decimal.Decimal `json:"income"`
		Expense decimal.Decimal `json:"expense"`
		Balance decimal.Decimal `json:"balance"`
	}
)

// PieSeries maps the category breakdown to chart slices. A nil strategy
// uses ByName.
func PieSeries(r Report, color ColorStrategy) []PieSlice {
	if color == nil {
		color = ByName
	}
	out := make([]PieSlice, 0, len(r.ByCategory))
	for i, c := range r.ByCategory {
		out = append(out, PieSlice{
			Category:   c.Category,
			Amount:     c.Amount,
			Percentage: c.Percentage.StringFixed(1),
			Color:      color(c.Category, i),
		})
	}
	return out
}

// TrendSeries maps monthly buckets to chart points, keeping their order.
func TrendSeries(r Report) []TrendPoint {
	out := make([]TrendPoint, 0, len(r.ByMonth))
	for _, m := range r.ByMonth {
		out = append(out, TrendPoint{
			Month:   m.Month.Key(),
			Label:   m.Month.Label(),
			Income:  m.Income,
			Expense: m.Expense,
			Balance: m.Balance,
		})
	}
	return out
}

// TopCategories returns categories by descending amount. Equal amounts keep
// their first-seen order. n <= 0 returns all of them.
func TopCategories(r Report, n int) []CategoryTotal {
	out := append([]CategoryTotal(nil), r.ByCategory...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// CSVRows renders txs as export rows, header first, in input order.
// Amounts are written without currency formatting.
func CSVRows(txs []core.Transaction) [][]string {
	rows := make([][]string, 0, len(txs)+1)
	rows = append(rows, append([]string(nil), CSVHeader...))
	for _, tx := range txs {
		rows = append(rows, Row(tx))
	}
	return rows
}

// Row is the export record of one transaction.
func Row(tx core.Transaction) []string {
	return []string{tx.Date, string(tx.Type), tx.Category, tx.Description, tx.Amount.String()}
}
