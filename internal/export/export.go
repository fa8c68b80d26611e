// Package export renders a user's ranged transactions and their report as
// downloadable CSV, XLSX or PDF documents.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"budgetplanner/internal/core"
	"budgetplanner/internal/report"
)

type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
	PDF  Format = "pdf"
)

var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat accepts a format name with or without a leading dot.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))); f {
	case CSV, XLSX, PDF:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

func (f Format) ContentType() string {
	switch f {
	case CSV:
		return "text/csv"
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case PDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// Input is everything a document shows.
type Input struct {
	Transactions []core.Transaction
	Report       report.Report
	Range        core.DateRange
	RangeKey     string
	GeneratedAt  time.Time
}

// Document is a rendered export ready to be sent as an attachment.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Filename is financial-report-<UTC date of at>.<ext>.
func Filename(f Format, at time.Time) string {
	return fmt.Sprintf("financial-report-%s.%s", at.UTC().Format(core.DateLayout), f)
}

// Render produces the document for f.
func Render(f Format, in Input) (Document, error) {
	if in.GeneratedAt.IsZero() {
		in.GeneratedAt = time.Now()
	}
	var (
		buf bytes.Buffer
		err error
	)
	switch f {
	case CSV:
		err = WriteCSV(&buf, in.Transactions)
	case XLSX:
		err = WriteXLSX(&buf, in)
	case PDF:
		err = WritePDF(&buf, in)
	default:
		return Document{}, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err != nil {
		return Document{}, fmt.Errorf("render %s: %w", f, err)
	}
	return Document{
		Filename:    Filename(f, in.GeneratedAt),
		ContentType: f.ContentType(),
		Body:        buf.Bytes(),
	}, nil
}

// WriteCSV writes the header and one row per transaction, quoting fields
// that contain separators.
func WriteCSV(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(report.CSVRows(txs)); err != nil {
		return err
	}
	return cw.Error()
}

// period returns the printable bounds of the range; an open end is the
// generation day.
func (in Input) period() (from, to string) {
	to = core.DateOf(in.GeneratedAt.UTC()).String()
	if !in.Range.To.IsZero() {
		to = in.Range.To.String()
	}
	if in.Range.From.IsZero() {
		return "beginning", to
	}
	return in.Range.From.String(), to
}
