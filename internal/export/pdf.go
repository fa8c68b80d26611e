package export

import (
	"io"
	"strings"

	"github.com/phpdave11/gofpdf"

	"budgetplanner/internal/core"
	"budgetplanner/internal/report"
)

// maxPDFRows bounds the transaction table; the CSV and XLSX exports carry
// the full list.
const maxPDFRows = 200

var pdfColumns = []struct {
	title string
	width float64
	align string
}{
	{"DATE", 26, "C"},
	{"TYPE", 22, "C"},
	{"CATEGORY", 36, "L"},
	{"DESCRIPTION", 70, "L"},
	{"AMOUNT", 28, "R"},
}

// WritePDF writes a one-column A4 statement: totals, top categories and
// the transaction table.
func WritePDF(w io.Writer, in Input) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(14, 14, 14)
	pdf.SetAutoPageBreak(false, 14)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Financial Report")
	pdf.Ln(9)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	from, to := in.period()
	pdf.Cell(0, 6, "Period: "+from+" to "+to)
	pdf.Ln(5)
	pdf.Cell(0, 6, "Generated: "+in.GeneratedAt.UTC().Format("2006-01-02 15:04 UTC"))
	pdf.Ln(10)

	t := in.Report.Totals
	pdf.SetTextColor(20, 20, 20)
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetFillColor(248, 248, 248)
	pdf.SetFont("Helvetica", "B", 11)
	for i, h := range []string{"Income", "Expense", "Balance"} {
		ln := 0
		if i == 2 {
			ln = 1
		}
		pdf.CellFormat(60, 9, h, "1", ln, "C", true, 0, "")
	}
	pdf.SetFont("Helvetica", "", 11)
	for i, v := range []string{core.FormatCurrency(t.Income), core.FormatCurrency(t.Expense), core.FormatCurrency(t.Balance)} {
		ln := 0
		if i == 2 {
			ln = 1
		}
		pdf.CellFormat(60, 9, v, "1", ln, "C", false, 0, "")
	}
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, "Savings rate: "+t.SavingsRate().StringFixed(1)+"%")
	pdf.Ln(9)

	if top := report.TopCategories(in.Report, report.DefaultTopCategories); len(top) > 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 7, "Top categories")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 10)
		for _, c := range top {
			pdf.CellFormat(80, 6, tr(c.Category), "", 0, "L", false, 0, "")
			pdf.CellFormat(40, 6, core.FormatCurrency(c.Amount), "", 0, "R", false, 0, "")
			pdf.CellFormat(30, 6, c.Percentage.StringFixed(1)+"%", "", 1, "R", false, 0, "")
		}
		pdf.Ln(5)
	}

	tableHeader(pdf)
	pdf.SetFont("Helvetica", "", 9)
	for i, tx := range in.Transactions {
		if i >= maxPDFRows {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.CellFormat(0, 7, "truncated, download the CSV for the full list", "1", 1, "C", false, 0, "")
			break
		}
		if pdf.GetY() > 275 {
			pdf.AddPage()
			tableHeader(pdf)
			pdf.SetFont("Helvetica", "", 9)
		}
		amount := core.FormatCurrency(tx.Amount)
		if tx.Type == core.Expense {
			amount = "-" + amount
		}
		cells := []string{tx.Date, string(tx.Type), trimTo(tx.Category, 20), trimTo(tx.Description, 42), amount}
		for j, col := range pdfColumns {
			ln := 0
			if j == len(pdfColumns)-1 {
				ln = 1
			}
			pdf.CellFormat(col.width, 7, tr(cells[j]), "1", ln, col.align, false, 0, "")
		}
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

func tableHeader(pdf *gofpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(245, 245, 245)
	for j, col := range pdfColumns {
		ln := 0
		if j == len(pdfColumns)-1 {
			ln = 1
		}
		pdf.CellFormat(col.width, 7, col.title, "1", ln, "C", true, 0, "")
	}
}

func trimTo(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
