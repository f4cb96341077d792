// Package worker keeps the spreadsheet ledger in step with the store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"classfees/internal/core"
	"classfees/internal/docstore"
	"classfees/internal/ledger"
	"classfees/internal/log"
	"classfees/internal/metrics"
	"classfees/internal/services"
	"classfees/internal/sheets"
)

// LedgerSync applies change events to a LedgerWriter. Events only name what
// changed; the current document is re-read from the store, and the payload
// carried by the event is used only when the store cannot be reached.
type LedgerSync struct {
	store   docstore.Store
	ledger  sheets.LedgerWriter
	logger  *log.Logger
	metrics *metrics.Metrics
}

func NewLedgerSync(store docstore.Store, ledger sheets.LedgerWriter, logger *log.Logger, m *metrics.Metrics) *LedgerSync {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LedgerSync{
		store:   store,
		ledger:  ledger,
		logger:  logger.WithComponent(log.ComponentWorker),
		metrics: m,
	}
}

// HandleChange is an amqp.Handler. A returned error requeues the event.
func (w *LedgerSync) HandleChange(ctx context.Context, event core.ChangeEvent) error {
	w.logger.InfoContext(ctx, "Processing change event",
		log.FieldCollection, event.Collection,
		log.FieldOperation, event.Op,
		"id", event.ID)

	switch event.Collection {
	case core.PaymentsCollection:
		if event.Op == core.OpDelete {
			return w.delete(ctx, event.ID)
		}
		return w.syncPayment(ctx, event)
	case core.StudentsCollection:
		// a new student has no payments yet
		if event.Op == core.OpCreate {
			return nil
		}
		return w.syncStudent(ctx, event.ID)
	default:
		w.logger.WarnContext(ctx, "Ignoring event for unknown collection", log.FieldCollection, event.Collection)
		return nil
	}
}

func (w *LedgerSync) syncPayment(ctx context.Context, event core.ChangeEvent) error {
	payment, found, err := w.fetchPayment(ctx, event.ID)
	if err != nil {
		if event.Payment == nil {
			return err
		}
		w.logger.WarnContext(ctx, "Store unreachable, syncing payment from event payload",
			log.FieldPaymentID, event.ID,
			log.FieldError, err.Error())
		return w.upsert(ctx, sheets.RowFromPayment(*event.Payment, event.StudentName))
	}
	if !found {
		// deleted after the event was published
		return w.delete(ctx, event.ID)
	}

	name, err := w.studentName(ctx, payment.StudentID)
	if err != nil {
		name = event.StudentName
	}
	return w.upsert(ctx, sheets.RowFromPayment(payment, name))
}

// syncStudent rewrites the student's rows so the displayed name follows
// renames and deletions.
func (w *LedgerSync) syncStudent(ctx context.Context, studentID string) error {
	recs, err := w.store.FetchFiltered(ctx, core.PaymentsCollection,
		docstore.Filter{Field: "studentId", Value: studentID}, docstore.NewestFirst())
	if err != nil {
		return fmt.Errorf("query payments of student %s: %w", studentID, err)
	}
	if len(recs) == 0 {
		return nil
	}
	name, err := w.studentName(ctx, studentID)
	if err != nil {
		return err
	}
	for _, p := range services.PaymentsFromRecords(recs) {
		if err := w.upsert(ctx, sheets.RowFromPayment(p, name)); err != nil {
			return err
		}
	}
	return nil
}

// Resync rewrites every payment row and clears rows whose payment is gone.
func (w *LedgerSync) Resync(ctx context.Context) error {
	start := time.Now()
	studentRecs, err := w.store.FetchAll(ctx, core.StudentsCollection, nil)
	if err != nil {
		return fmt.Errorf("load students: %w", err)
	}
	paymentRecs, err := w.store.FetchAll(ctx, core.PaymentsCollection, &docstore.Order{Field: docstore.FieldCreatedAt, Direction: docstore.Asc})
	if err != nil {
		return fmt.Errorf("load payments: %w", err)
	}
	students := services.StudentsFromRecords(studentRecs)
	payments := services.PaymentsFromRecords(paymentRecs)

	names := make(map[string]string, len(students))
	for _, s := range students {
		names[s.ID] = s.DisplayName()
	}

	var errs []error
	live := make(map[string]struct{}, len(payments))
	for _, p := range payments {
		live[p.ID] = struct{}{}
		if err := w.upsert(ctx, sheets.RowFromPayment(p, names[p.StudentID])); err != nil {
			errs = append(errs, err)
		}
	}

	mirrored, err := w.ledger.PaymentIDs(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("list mirrored payments: %w", err))
	}
	removed := 0
	for _, id := range mirrored {
		if _, ok := live[id]; ok {
			continue
		}
		if err := w.delete(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	w.logger.InfoContext(ctx, "Ledger resync completed",
		log.FieldCount, len(payments),
		"removed", removed,
		"orphans", len(ledger.OrphanPayments(students, payments)),
		"errors", len(errs),
		log.FieldDuration, time.Since(start).Milliseconds())
	return errors.Join(errs...)
}

// Run resyncs once and then every interval until ctx is done. Failed passes
// are logged and retried on the next tick.
func (w *LedgerSync) Run(ctx context.Context, interval time.Duration) {
	if err := w.Resync(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Startup resync failed", log.FieldError, err.Error())
	}
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Resync(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic resync failed", log.FieldError, err.Error())
			}
		}
	}
}

func (w *LedgerSync) fetchPayment(ctx context.Context, id string) (core.Payment, bool, error) {
	recs, err := w.store.FetchFiltered(ctx, core.PaymentsCollection, docstore.Filter{Field: docstore.FieldID, Value: id}, nil)
	if err != nil {
		return core.Payment{}, false, fmt.Errorf("load payment %s: %w", id, err)
	}
	if len(recs) == 0 {
		return core.Payment{}, false, nil
	}
	return services.PaymentFromRecord(recs[0]), true, nil
}

// studentName returns "" for a student that no longer exists; the row then
// shows the raw id.
func (w *LedgerSync) studentName(ctx context.Context, id string) (string, error) {
	recs, err := w.store.FetchFiltered(ctx, core.StudentsCollection, docstore.Filter{Field: docstore.FieldID, Value: id}, nil)
	if err != nil {
		return "", fmt.Errorf("load student %s: %w", id, err)
	}
	if len(recs) == 0 {
		return "", nil
	}
	return services.StudentFromRecord(recs[0]).DisplayName(), nil
}

func (w *LedgerSync) upsert(ctx context.Context, row sheets.LedgerRow) error {
	err := w.ledger.UpsertPayment(ctx, row)
	w.metrics.SheetSync("upsert", err == nil)
	if err != nil {
		return fmt.Errorf("upsert ledger row %s: %w", row.PaymentID, err)
	}
	return nil
}

func (w *LedgerSync) delete(ctx context.Context, id string) error {
	err := w.ledger.DeletePayment(ctx, id)
	w.metrics.SheetSync("delete", err == nil)
	if err != nil {
		return fmt.Errorf("delete ledger row %s: %w", id, err)
	}
	return nil
}
