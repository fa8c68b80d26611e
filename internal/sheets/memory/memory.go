// Package memory is a process-local mirror used when no spreadsheet is
// configured and by tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"budgetplanner/internal/core"
	"budgetplanner/internal/report"
	"budgetplanner/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows [][]string
	refs map[string]string
}

var _ sheets.Appender = (*Store)(nil)

func New() *Store {
	return &Store{refs: map[string]string{}}
}

// AppendTransaction records the export row of tx and returns "mem:<n>".
func (s *Store) AppendTransaction(_ context.Context, tx core.Transaction) (string, error) {
	if tx.ID == "" {
		return "", fmt.Errorf("transaction without id")
	}
	if err := tx.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ref, ok := s.refs[tx.ID]; ok {
		return ref, nil
	}
	s.rows = append(s.rows, report.Row(tx))
	ref := fmt.Sprintf("mem:%d", len(s.rows))
	s.refs[tx.ID] = ref
	return ref, nil
}

// Rows returns a copy of every appended row in order.
func (s *Store) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
