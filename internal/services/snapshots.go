package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"classfees/internal/cache"
	"classfees/internal/core"
	"classfees/internal/docstore"
	"classfees/internal/ledger"
	"classfees/internal/log"
	"classfees/internal/metrics"
)

const (
	snapshotKey        = "ledger"
	studentCacheSize   = 128
	snapshotLoadLimit  = 15 * time.Second
	studentPaymentsKey = "student:"
)

// Snapshot is an in-memory copy of both collections, newest first.
type Snapshot struct {
	Students []core.Student
	Payments []core.Payment
	LoadedAt time.Time
	// Stale is set when the copy predates a known write or its TTL and
	// could not be refreshed.
	Stale bool
}

// Snapshots loads and caches collection snapshots. Writers call Invalidate
// after every successful mutation.
type Snapshots struct {
	store    docstore.Store
	ledger   cache.Cache[Snapshot]
	students cache.Cache[[]core.Payment]
	group    singleflight.Group
	now      func() time.Time

	// mu orders cache writes against Invalidate. generation counts
	// invalidations; a load only caches its result as fresh when no
	// invalidation happened since it started.
	mu         sync.Mutex
	generation uint64

	logger   *log.Logger
	metrics  *metrics.Metrics
}

func NewSnapshots(store docstore.Store, ttl time.Duration, logger *log.Logger, m *metrics.Metrics) *Snapshots {
	return NewSnapshotsWithClock(store, ttl, time.Now, logger, m)
}

func NewSnapshotsWithClock(store docstore.Store, ttl time.Duration, now func() time.Time, logger *log.Logger, m *metrics.Metrics) *Snapshots {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Snapshots{
		store:    store,
		ledger:   cache.NewLRUCacheWithClock[Snapshot](1, ttl, now),
		students: cache.NewLRUCacheWithClock[[]core.Payment](studentCacheSize, ttl, now),
		now:      now,
		logger:   logger.WithComponent(log.ComponentSnapshots),
		metrics:  m,
	}
}

// Now is the clock used for "current month" figures.
func (s *Snapshots) Now() time.Time { return s.now() }

// Get returns a fresh snapshot, loading it when missing or stale. When the
// reload fails and an older copy exists, that copy is returned with
// Stale set instead of the error.
func (s *Snapshots) Get(ctx context.Context) (Snapshot, error) {
	cached, state := s.ledger.Get(snapshotKey)
	s.metrics.SnapshotLookup(state.String())
	if state == cache.Fresh {
		return cached, nil
	}

	snap, err := s.load(ctx)
	if err == nil {
		return snap, nil
	}
	if state == cache.Stale {
		s.logger.WarnContext(ctx, "Serving stale snapshot after failed reload",
			log.FieldError, err.Error(),
			"loaded_at", cached.LoadedAt)
		cached.Stale = true
		return cached, nil
	}
	return Snapshot{}, err
}

// Refresh forces a reload regardless of cache state.
func (s *Snapshots) Refresh(ctx context.Context) (Snapshot, error) {
	return s.load(ctx)
}

func (s *Snapshots) load(ctx context.Context) (Snapshot, error) {
	// concurrent callers share one load; it must outlive any single
	// caller's cancellation
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(snapshotKey, func() (any, error) {
		gen := s.currentGeneration()
		loadCtx, cancel := context.WithTimeout(shared, snapshotLoadLimit)
		defer cancel()

		var (
			students []docstore.Record
			payments []docstore.Record
		)
		g, gctx := errgroup.WithContext(loadCtx)
		g.Go(func() error {
			recs, err := s.store.FetchAll(gctx, core.StudentsCollection, docstore.NewestFirst())
			students = recs
			return err
		})
		g.Go(func() error {
			recs, err := s.store.FetchAll(gctx, core.PaymentsCollection, docstore.NewestFirst())
			payments = recs
			return err
		})
		if err := g.Wait(); err != nil {
			s.metrics.StoreError(string(docstore.ReasonOf(err)))
			return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
		}

		snap := Snapshot{
			Students: StudentsFromRecords(students),
			Payments: PaymentsFromRecords(payments),
			LoadedAt: s.now(),
		}
		if !s.storeIfCurrent(gen, func() { s.ledger.Set(snapshotKey, snap) }) {
			// a write landed while loading; the copy may miss it
			snap.Stale = true
			s.logger.DebugContext(ctx, "Snapshot load overtaken by a write, not cached")
			return snap, nil
		}
		s.logger.DebugContext(ctx, "Snapshot loaded",
			"students", len(snap.Students),
			"payments", len(snap.Payments))
		return snap, nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return v.(Snapshot), nil
}

// PaymentsForStudent returns one student's payments, newest first. A fresh
// snapshot answers locally, even with an empty result; otherwise the store
// is queried directly.
func (s *Snapshots) PaymentsForStudent(ctx context.Context, studentID string) ([]core.Payment, error) {
	if snap, state := s.ledger.Get(snapshotKey); state == cache.Fresh {
		s.metrics.SnapshotLookup(state.String())
		return ledger.PaymentsForStudent(snap.Payments, studentID), nil
	}

	key := studentPaymentsKey + studentID
	if cached, state := s.students.Get(key); state == cache.Fresh {
		s.metrics.SnapshotLookup(state.String())
		return cached, nil
	}
	s.metrics.SnapshotLookup(cache.Miss.String())

	gen := s.currentGeneration()
	recs, err := s.store.FetchFiltered(ctx, core.PaymentsCollection,
		docstore.Filter{Field: "studentId", Value: studentID}, docstore.NewestFirst())
	if err != nil {
		s.metrics.StoreError(string(docstore.ReasonOf(err)))
		return nil, fmt.Errorf("query payments for student %s: %w", studentID, err)
	}
	payments := PaymentsFromRecords(recs)
	s.storeIfCurrent(gen, func() { s.students.Set(key, payments) })
	return payments, nil
}

// Invalidate marks every cached copy stale. Loads already in flight keep
// running for their callers but can no longer populate the cache, and
// later callers start a new load instead of joining them.
func (s *Snapshots) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.ledger.MarkAllStale()
	s.students.MarkAllStale()
	s.group.Forget(snapshotKey)
}

func (s *Snapshots) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// storeIfCurrent runs set only when no invalidation happened since gen.
func (s *Snapshots) storeIfCurrent(gen uint64, set func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return false
	}
	set()
	return true
}
