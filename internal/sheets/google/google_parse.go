package google

import (
	"fmt"
	"strconv"
	"strings"

	"budgetplanner/internal/core"
	"budgetplanner/internal/report"
)

// Mirror rows are the export row followed by the transaction id, which
// makes appends idempotent.
const (
	lastColumn = "F"
	idColumn   = 5
)

func headerValues() []any {
	out := make([]any, 0, len(report.CSVHeader)+1)
	for _, h := range report.CSVHeader {
		out = append(out, h)
	}
	return append(out, "ID")
}

func rowValues(tx core.Transaction) []any {
	cells := report.Row(tx)
	out := make([]any, 0, len(cells)+1)
	for _, c := range cells {
		out = append(out, c)
	}
	return append(out, tx.ID)
}

// sheetFor returns the yearly tab the transaction belongs to.
func sheetFor(base string, tx core.Transaction) (string, error) {
	day, err := tx.Day()
	if err != nil {
		return "", err
	}
	return yearPrefixedName(base, day.Year()), nil
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

func rowRef(sheet string, row int) string {
	return fmt.Sprintf("'%s'!A%d:%s%d", sheet, row, lastColumn, row)
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// indexRows reads the values of columns A:F and returns how many rows are
// used and the row number of every transaction id already present.
func indexRows(values [][]any) (int, map[string]int) {
	ids := make(map[string]int, len(values))
	for i, raw := range values {
		row := toStrings(raw)
		if len(row) <= idColumn {
			continue
		}
		if id := row[idColumn]; id != "" && !strings.EqualFold(id, "id") {
			ids[id] = i + 1
		}
	}
	return len(values), ids
}
