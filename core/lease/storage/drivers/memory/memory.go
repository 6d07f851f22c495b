package memory

import (
	"context"

	"github.com/nextdhcp/leasehook/core/lease"
	"github.com/nextdhcp/leasehook/core/lease/storage"
	"github.com/ppacher/webthings-mqtt-gateway/pkg/mutex"
)

// Storage implements the storage.TableStorage interface but
// does not provide any persistence at all as the lease table
// is only kept in memory
type Storage struct {
	l     *mutex.Mutex // context.Context aware mutex to protect all fields below
	table lease.Table

	writes int
}

// New returns a new memory storage holding a copy of initial
func New(initial lease.Table) *Storage {
	s := makeStorage()
	s.table = initial.Clone()
	return s
}

func makeStorage() *Storage {
	return &Storage{
		l: mutex.New(),
	}
}

// Load implements storage.TableStorage
func (s *Storage) Load(ctx context.Context) (lease.Table, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.l.Unlock()

	return s.table.Clone(), nil
}

// Update implements storage.TableStorage
func (s *Storage) Update(ctx context.Context, fn storage.UpdateFunc) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.l.Unlock()

	t := s.table.Clone()
	changed, err := fn(&t)
	if err != nil {
		return err
	}

	if changed {
		s.table = t.Clone()
		s.writes++
	}

	return nil
}

// Writes returns how often the table has been replaced
func (s *Storage) Writes() int {
	if !s.l.TryLock(context.Background()) {
		return 0
	}
	defer s.l.Unlock()

	return s.writes
}

// Close implements storage.TableStorage
func (s *Storage) Close() error {
	return nil
}

func (s *Storage) lock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !s.l.TryLock(ctx) {
		if ctx.Err() == context.DeadlineExceeded {
			return storage.ErrLockTimeout
		}
		return ctx.Err()
	}

	return nil
}

// compile time check
var _ storage.TableStorage = &Storage{}
