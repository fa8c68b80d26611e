// Package sheets declares the spreadsheet mirror port used by the worker.
package sheets

import (
	"context"

	"budgetplanner/internal/core"
)

// Appender copies one transaction into the mirror and returns a reference
// to the written row. Appending the same transaction twice must not create
// a second row.
type Appender interface {
	AppendTransaction(ctx context.Context, tx core.Transaction) (rowRef string, err error)
}
