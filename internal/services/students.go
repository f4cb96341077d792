package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"classfees/internal/core"
	"classfees/internal/docstore"
	"classfees/internal/log"
	"classfees/internal/metrics"
)

// StudentService handles student writes and reads.
type StudentService struct {
	store     docstore.Store
	snapshots *Snapshots
	announcer announcer
	timeout   time.Duration
	logger    *log.Logger
}

func NewStudentService(store docstore.Store, snapshots *Snapshots, publisher Publisher, registrationTimeout time.Duration, logger *log.Logger, m *metrics.Metrics) *StudentService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentStudents)
	return &StudentService{
		store:     store,
		snapshots: snapshots,
		announcer: announcer{
			publisher: publisher,
			snapshots: snapshots,
			metrics:   m,
			logger:    logger,
			now:       time.Now,
		},
		timeout: registrationTimeout,
		logger:  logger,
	}
}

// Register validates and inserts a new student. The insert is given the
// registration timeout; when it runs out ErrTimeout is returned, but the
// store call itself is left running and may still land.
func (s *StudentService) Register(ctx context.Context, in core.StudentInput) (core.Student, error) {
	if err := in.Validate(); err != nil {
		return core.Student{}, err
	}
	fields := in.Fields()

	type result struct {
		id  string
		err error
	}
	done := make(chan result, 1)
	go func() {
		id, err := s.store.Insert(context.WithoutCancel(ctx), core.StudentsCollection, fields)
		done <- result{id, err}
	}()

	var timeout <-chan time.Time
	if s.timeout > 0 {
		timer := time.NewTimer(s.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case r := <-done:
		if r.err != nil {
			return core.Student{}, fmt.Errorf("register student: %w", r.err)
		}
		student := core.Student{
			ID:        r.id,
			FirstName: in.FirstName,
			LastName:  in.LastName,
			Email:     in.Email,
			Phone:     in.Phone,
			Course:    in.Course,
			Notes:     in.Notes,
			CreatedAt: s.announcer.now(),
		}
		s.announcer.announce(ctx, core.ChangeEvent{
			Collection:  core.StudentsCollection,
			Op:          core.OpCreate,
			ID:          r.id,
			StudentName: student.DisplayName(),
		})
		return student, nil
	case <-timeout:
		s.logger.WarnContext(ctx, "Student registration timed out",
			"timeout", s.timeout.String(),
			"email", in.Email)
		return core.Student{}, fmt.Errorf("register student after %s: %w", s.timeout, core.ErrTimeout)
	case <-ctx.Done():
		return core.Student{}, fmt.Errorf("register student: %w", ctx.Err())
	}
}

func (s *StudentService) Update(ctx context.Context, id string, patch core.StudentPatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateByID(ctx, core.StudentsCollection, id, patch.Fields()); err != nil {
		return fmt.Errorf("update student %s: %w", id, err)
	}
	s.announcer.announce(ctx, core.ChangeEvent{
		Collection: core.StudentsCollection,
		Op:         core.OpUpdate,
		ID:         id,
	})
	return nil
}

// Delete removes the student only. Their payments stay and become orphans.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteByID(ctx, core.StudentsCollection, id); err != nil {
		return fmt.Errorf("delete student %s: %w", id, err)
	}
	s.announcer.announce(ctx, core.ChangeEvent{
		Collection: core.StudentsCollection,
		Op:         core.OpDelete,
		ID:         id,
	})
	return nil
}

// List returns every student, newest first.
func (s *StudentService) List(ctx context.Context) ([]core.Student, bool, error) {
	snap, err := s.snapshots.Get(ctx)
	if err != nil {
		return nil, false, err
	}
	return snap.Students, snap.Stale, nil
}

func (s *StudentService) Get(ctx context.Context, id string) (core.Student, bool, error) {
	snap, err := s.snapshots.Get(ctx)
	if err != nil {
		return core.Student{}, false, err
	}
	for _, st := range snap.Students {
		if st.ID == id {
			return st, true, nil
		}
	}
	return core.Student{}, false, nil
}

// Search keeps the students whose first name, last name or email contains
// query, ignoring case. A blank query keeps everyone.
func Search(students []core.Student, query string) []core.Student {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return students
	}
	out := make([]core.Student, 0, len(students))
	for _, st := range students {
		if strings.Contains(strings.ToLower(st.FirstName), q) ||
			strings.Contains(strings.ToLower(st.LastName), q) ||
			strings.Contains(strings.ToLower(st.Email), q) {
			out = append(out, st)
		}
	}
	return out
}
