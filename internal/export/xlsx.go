package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"budgetplanner/internal/report"
)

const (
	sheetTransactions = "Transactions"
	sheetSummary      = "Summary"
)

// WriteXLSX writes a workbook with the transaction rows on one sheet and
// totals, categories and months on another.
func WriteXLSX(w io.Writer, in Input) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetTransactions); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	for i, row := range report.CSVRows(in.Transactions) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if i > 0 {
			values[4] = in.Transactions[i-1].Amount.InexactFloat64()
		}
		if err := f.SetSheetRow(sheetTransactions, cell, &values); err != nil {
			return err
		}
	}
	if err := f.SetRowStyle(sheetTransactions, 1, 1, bold); err != nil {
		return err
	}
	if err := setColumnWidths(f, sheetTransactions, []float64{12, 10, 18, 40, 14}); err != nil {
		return err
	}

	if _, err := f.NewSheet(sheetSummary); err != nil {
		return err
	}
	t := in.Report.Totals
	from, to := in.period()
	rows := [][]any{
		{"Range", in.RangeKey},
		{"From", from},
		{"To", to},
		{},
		{"Total income", t.Income.InexactFloat64()},
		{"Total expense", t.Expense.InexactFloat64()},
		{"Balance", t.Balance.InexactFloat64()},
		{"Savings rate %", t.SavingsRate().InexactFloat64()},
		{},
		{"Category", "Amount", "Share %"},
	}
	for _, c := range report.TopCategories(in.Report, 0) {
		rows = append(rows, []any{c.Category, c.Amount.InexactFloat64(), c.Percentage.InexactFloat64()})
	}
	rows = append(rows, []any{}, []any{"Month", "Income", "Expense", "Balance"})
	for _, p := range report.TrendSeries(in.Report) {
		rows = append(rows, []any{p.Label, p.Income.InexactFloat64(), p.Expense.InexactFloat64(), p.Balance.InexactFloat64()})
	}
	for i := range rows {
		if len(rows[i]) == 0 {
			continue
		}
		if err := f.SetSheetRow(sheetSummary, fmt.Sprintf("A%d", i+1), &rows[i]); err != nil {
			return err
		}
	}
	if err := setColumnWidths(f, sheetSummary, []float64{18}); err != nil {
		return err
	}

	return f.Write(w)
}

// setColumnWidths sizes the columns of sheet from A onwards.
func setColumnWidths(f *excelize.File, sheet string, widths []float64) error {
	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("set width of %s!%s: %w", sheet, col, err)
		}
	}
	return nil
}
