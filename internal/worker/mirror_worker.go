// Package worker copies stored transactions to the spreadsheet mirror, driven
// by bus messages and by the periodic sweep.
package worker

import (
	"context"
	"errors"
	"fmt"

	"budgetplanner/internal/amqp"
	"budgetplanner/internal/core"
	applog "budgetplanner/internal/log"
	"budgetplanner/internal/sheets"
	"budgetplanner/internal/store"
)

// startupBatchFactor widens the first sweep after downtime.
const startupBatchFactor = 5

type MirrorWorker struct {
	queue     store.MirrorQueue
	appender  sheets.Appender
	batchSize int
	logger    *applog.Logger
	events    *applog.StructuredLogger
}

func NewMirrorWorker(queue store.MirrorQueue, appender sheets.Appender, batchSize int, logger *applog.Logger) *MirrorWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	logger = logger.WithComponent(applog.ComponentWorker)
	return &MirrorWorker{
		queue:     queue,
		appender:  appender,
		batchSize: batchSize,
		logger:    logger,
		events:    applog.NewStructuredLogger(logger),
	}
}

// HandleSyncMessage mirrors the transaction named by msg. Only a failed
// store lookup is returned, so the broker redelivers it. Mirror failures are
// recorded on the transaction and left to the sweep.
func (w *MirrorWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	w.logger.InfoContext(ctx, "Processing sync message",
		applog.FieldRecordID, msg.ID,
		applog.FieldUserID, msg.UserID)

	tx, err := w.queue.GetTransaction(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		w.logger.WarnContext(ctx, "Dropping sync message for unknown transaction", applog.FieldRecordID, msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}
	if msg.UserID != "" && tx.UserID != msg.UserID {
		w.logger.WarnContext(ctx, "Dropping sync message with mismatched owner",
			applog.FieldRecordID, msg.ID,
			applog.FieldUserID, msg.UserID)
		return nil
	}

	_ = w.mirror(ctx, tx)
	return nil
}

// ProcessPending mirrors one batch of transactions the bus missed.
func (w *MirrorWorker) ProcessPending(ctx context.Context) (int, error) {
	synced, _, err := w.processBatch(ctx, w.batchSize)
	return synced, err
}

// StartupCheck mirrors a wider batch once at startup to catch up after
// worker downtime.
func (w *MirrorWorker) StartupCheck(ctx context.Context) error {
	synced, failed, err := w.processBatch(ctx, w.batchSize*startupBatchFactor)
	if err != nil {
		return fmt.Errorf("startup mirror check: %w", err)
	}
	if synced+failed == 0 {
		w.logger.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}
	w.logger.InfoContext(ctx, "Startup mirror completed",
		"total", synced+failed,
		"synced", synced,
		"errors", failed)
	return nil
}

func (w *MirrorWorker) processBatch(ctx context.Context, limit int) (synced, failed int, err error) {
	pending, err := w.queue.PendingMirror(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return 0, 0, nil
	}
	w.logger.InfoContext(ctx, "Processing pending transactions", applog.FieldRecordCount, len(pending))

	for _, tx := range pending {
		if err := ctx.Err(); err != nil {
			return synced, failed, err
		}
		if w.mirror(ctx, tx) != nil {
			failed++
			continue
		}
		synced++
	}
	return synced, failed, nil
}

func (w *MirrorWorker) mirror(ctx context.Context, tx core.Transaction) error {
	ref, err := w.appender.AppendTransaction(ctx, tx)
	if err != nil {
		w.events.LogError(ctx, "Failed to mirror transaction", err,
			applog.ComponentSheets, applog.OpAppend, applog.ErrorTypeNetwork)
		if markErr := w.queue.MarkMirrorError(ctx, tx.ID, err); markErr != nil {
			w.logger.ErrorContext(ctx, "Failed to mark mirror error",
				applog.FieldRecordID, tx.ID,
				applog.FieldError, markErr)
		}
		return fmt.Errorf("append to mirror: %w", err)
	}

	if err := w.queue.MarkMirrored(ctx, tx.ID, ref); err != nil {
		// The row exists; the next sweep finds it by id and marks it again.
		w.logger.ErrorContext(ctx, "Failed to mark as mirrored",
			applog.FieldRecordID, tx.ID,
			applog.FieldError, err)
	}

	w.logger.InfoContext(ctx, "Transaction mirrored",
		applog.FieldRecordID, tx.ID,
		applog.FieldUserID, tx.UserID,
		applog.FieldSheetsRef, ref,
		applog.FieldAmount, tx.Amount.String())
	return nil
}
