package services

import (
	"context"
	"fmt"
	"time"

	"classfees/internal/core"
	"classfees/internal/docstore"
	"classfees/internal/log"
	"classfees/internal/metrics"
)

// PaymentService handles payment writes and reads.
type PaymentService struct {
	store     docstore.Store
	snapshots *Snapshots
	announcer announcer
	logger    *log.Logger
}

func NewPaymentService(store docstore.Store, snapshots *Snapshots, publisher Publisher, logger *log.Logger, m *metrics.Metrics) *PaymentService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentPayments)
	return &PaymentService{
		store:     store,
		snapshots: snapshots,
		announcer: announcer{
			publisher: publisher,
			snapshots: snapshots,
			metrics:   m,
			logger:    logger,
			now:       time.Now,
		},
		logger: logger,
	}
}

// Record validates and inserts a payment. The student id is not checked
// against the roster.
func (s *PaymentService) Record(ctx context.Context, in core.PaymentInput) (core.Payment, error) {
	if err := in.Validate(); err != nil {
		return core.Payment{}, err
	}
	id, err := s.store.Insert(ctx, core.PaymentsCollection, in.Fields())
	if err != nil {
		return core.Payment{}, fmt.Errorf("record payment: %w", err)
	}
	payment := core.Payment{
		ID:        id,
		StudentID: in.StudentID,
		Date:      in.Date,
		Amount:    core.AmountOf(in.Amount.Effective()),
		Months:    in.Months,
		CreatedAt: s.announcer.now(),
	}
	s.logger.InfoContext(ctx, "Payment recorded",
		log.NewFields().WithPayment(id, payment.Amount.Effective()).WithStudent(in.StudentID).ToSlice()...)

	s.announcer.announce(ctx, core.ChangeEvent{
		Collection:  core.PaymentsCollection,
		Op:          core.OpCreate,
		ID:          id,
		Payment:     &payment,
		StudentName: s.studentName(ctx, in.StudentID),
	})
	return payment, nil
}

func (s *PaymentService) Update(ctx context.Context, id string, patch core.PaymentPatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateByID(ctx, core.PaymentsCollection, id, patch.Fields()); err != nil {
		return fmt.Errorf("update payment %s: %w", id, err)
	}
	s.announcer.announce(ctx, core.ChangeEvent{
		Collection: core.PaymentsCollection,
		Op:         core.OpUpdate,
		ID:         id,
	})
	return nil
}

func (s *PaymentService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteByID(ctx, core.PaymentsCollection, id); err != nil {
		return fmt.Errorf("delete payment %s: %w", id, err)
	}
	s.announcer.announce(ctx, core.ChangeEvent{
		Collection: core.PaymentsCollection,
		Op:         core.OpDelete,
		ID:         id,
	})
	return nil
}

// List returns every payment, newest first.
func (s *PaymentService) List(ctx context.Context) ([]core.Payment, bool, error) {
	snap, err := s.snapshots.Get(ctx)
	if err != nil {
		return nil, false, err
	}
	return snap.Payments, snap.Stale, nil
}

func (s *PaymentService) ForStudent(ctx context.Context, studentID string) ([]core.Payment, error) {
	return s.snapshots.PaymentsForStudent(ctx, studentID)
}

// studentName is best effort; events carry an empty name when the roster
// cannot be read.
func (s *PaymentService) studentName(ctx context.Context, studentID string) string {
	snap, err := s.snapshots.Get(ctx)
	if err != nil {
		return ""
	}
	for _, st := range snap.Students {
		if st.ID == studentID {
			return st.DisplayName()
		}
	}
	return ""
}
