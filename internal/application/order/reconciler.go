package order

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/orderdesk/backend/internal/domain/order"
	"github.com/orderdesk/backend/internal/domain/shared"
)

// DefaultLockTimeout bounds how long a mutation waits for the per-identifier
// lock before failing with ErrConcurrentModification.
const DefaultLockTimeout = 5 * time.Second

// ReconcileStore is the keyed collection of reconciled order records. Every
// mutation normalizes the identifier, resolves conflicts through the field
// merge policy and serializes per normalized identifier; reads always see the
// last committed write.
type ReconcileStore struct {
	repo        order.Repository
	locks       *keyedMutex
	lockTimeout time.Duration
	logger      *zap.Logger

	// now is swappable for deterministic tests
	now func() time.Time
}

// StoreOption customizes a ReconcileStore
type StoreOption func(*ReconcileStore)

// WithLockTimeout overrides the per-identifier lock acquisition timeout
func WithLockTimeout(d time.Duration) StoreOption {
	return func(s *ReconcileStore) { s.lockTimeout = d }
}

// WithClock overrides the merge clock
func WithClock(now func() time.Time) StoreOption {
	return func(s *ReconcileStore) { s.now = now }
}

// NewReconcileStore creates a reconcile store over the given repository
func NewReconcileStore(repo order.Repository, logger *zap.Logger, opts ...StoreOption) *ReconcileStore {
	s := &ReconcileStore{
		repo:        repo,
		locks:       newKeyedMutex(),
		lockTimeout: DefaultLockTimeout,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upsert folds one raw snapshot into the store: the identifier is
// normalized, the existing record (if any) is merged with the incoming
// partial under the per-field policy and the result is written back. A
// failed merge leaves the store untouched.
func (s *ReconcileStore) Upsert(ctx context.Context, raw order.RawOrder, source order.SourceKind) (*order.OrderRecord, error) {
	id, err := order.NormalizeIdentifier(raw.Identifier)
	if err != nil {
		return nil, err
	}

	release, err := s.locks.Acquire(ctx, id, s.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.upsertLocked(ctx, id, raw, source)
}

// upsertLocked performs the read-merge-write step. The caller must hold the
// per-identifier lock for id.
func (s *ReconcileStore) upsertLocked(ctx context.Context, id string, raw order.RawOrder, source order.SourceKind) (*order.OrderRecord, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	raw.Identifier = id
	merged, err := order.Merge(existing, raw, source, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Put(ctx, merged); err != nil {
		return nil, err
	}

	s.logger.Debug("order reconciled",
		zap.String("identifier", id),
		zap.String("source", string(source)),
		zap.Bool("created", existing == nil),
	)
	return merged, nil
}

// UpsertBatch applies Upsert for each input in sequence order. The batch is
// a fold: a later entry sharing an identifier with an earlier entry merges
// against the batch's own intermediate result, not the pre-batch state. Each
// fold step holds the per-identifier lock across its read-merge-write, so a
// concurrent single upsert on the same identifier cannot interleave inside a
// step. The first failing entry aborts the batch; entries already committed
// stay committed (reconciliation never rolls back).
func (s *ReconcileStore) UpsertBatch(ctx context.Context, raws []order.RawOrder, source order.SourceKind) ([]*order.OrderRecord, error) {
	results := make([]*order.OrderRecord, 0, len(raws))
	for i, raw := range raws {
		rec, err := s.Upsert(ctx, raw, source)
		if err != nil {
			s.logger.Warn("batch upsert aborted",
				zap.Int("entry", i),
				zap.String("identifier", raw.Identifier),
				zap.String("source", string(source)),
				zap.Error(err),
			)
			return results, err
		}
		results = append(results, rec)
	}
	return results, nil
}

// Update is Upsert restricted to existing records: it fails with ErrNotFound
// instead of creating, checked under the same lock as the write.
func (s *ReconcileStore) Update(ctx context.Context, raw order.RawOrder, source order.SourceKind) (*order.OrderRecord, error) {
	id, err := order.NormalizeIdentifier(raw.Identifier)
	if err != nil {
		return nil, err
	}

	release, err := s.locks.Acquire(ctx, id, s.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer release()

	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.upsertLocked(ctx, id, raw, source)
}

// Mutate applies fn to a copy of the record under the per-identifier lock
// and commits the copy when fn reports a change. The tracking state machine
// uses this for its read-modify-write transitions.
func (s *ReconcileStore) Mutate(ctx context.Context, identifier string, fn func(*order.OrderRecord) (bool, error)) (*order.OrderRecord, error) {
	id, err := order.NormalizeIdentifier(identifier)
	if err != nil {
		return nil, err
	}

	release, err := s.locks.Acquire(ctx, id, s.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer release()

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	working := existing.Clone()
	changed, err := fn(working)
	if err != nil {
		return nil, err
	}
	if !changed {
		return existing, nil
	}
	if err := s.repo.Put(ctx, working); err != nil {
		return nil, err
	}
	return working, nil
}

// Delete removes the record; reconciliation never deletes implicitly, this
// is the only destruction path.
func (s *ReconcileStore) Delete(ctx context.Context, identifier string) error {
	id, err := order.NormalizeIdentifier(identifier)
	if err != nil {
		return err
	}

	release, err := s.locks.Acquire(ctx, id, s.lockTimeout)
	if err != nil {
		return err
	}
	defer release()

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("order deleted", zap.String("identifier", id))
	return nil
}

// Get returns the record for the identifier, or ErrNotFound
func (s *ReconcileStore) Get(ctx context.Context, identifier string) (*order.OrderRecord, error) {
	id, err := order.NormalizeIdentifier(identifier)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// OrderedView returns all records totally ordered by recency: updatedAt
// descending, ties broken by createdAt descending, then identifier ascending
// for deterministic output. The view is computed from committed state on
// every read (read-your-writes).
func (s *ReconcileStore) OrderedView(ctx context.Context) ([]*order.OrderRecord, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.Identifier < b.Identifier
	})
	return records, nil
}
