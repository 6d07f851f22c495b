package storage

import (
	"context"

	"github.com/nextdhcp/leasehook/core/lease"
)

// UpdateFunc mutates the lease table passed to it and reports whether the
// table has been changed and needs to be persisted
type UpdateFunc func(t *lease.Table) (changed bool, err error)

// TableStorage provides persistence for the lease table. Every DHCP event
// is handled by a new process, so implementations must serialize concurrent
// Update calls of different processes sharing the same storage. Storage
// implementations don't, and should not, interpret the entries. They only
// need to keep them, and their order, across invocations.
type TableStorage interface {
	// Load returns the current lease table. A storage that has never been
	// written to returns an empty table and no error
	Load(ctx context.Context) (lease.Table, error)

	// Update loads the table and passes it to fn while holding an
	// exclusive lock. If fn reports a change, the table is fully rewritten
	// before the lock is released. If fn returns an error nothing is
	// written and the error is returned. Implementations MUST release the
	// lock on every return path
	Update(ctx context.Context, fn UpdateFunc) error

	// Close releases all resources held by the storage
	Close() error
}
