package storage

import (
	"context"
	"fmt"

	"github.com/apex/log"
	"github.com/nextdhcp/leasehook/core/lease"
	hookLog "github.com/nextdhcp/leasehook/core/log"
)

// Database applies lease events to the table kept by a TableStorage
type Database struct {
	store TableStorage
	l     hookLog.Logger
}

// NewDatabase creates a new database that uses store for persistence
func NewDatabase(store TableStorage) *Database {
	return &Database{
		store: store,
		l:     log.Log,
	}
}

// WithLogger sets the logger used by db and returns db
func (db *Database) WithLogger(l hookLog.Logger) *Database {
	db.l = l
	return db
}

// Leases returns the current lease table without locking it
func (db *Database) Leases(ctx context.Context) (lease.Table, error) {
	return db.store.Load(ctx)
}

// Apply loads the lease table, applies ev and persists the table if it has
// been changed. All of this happens while the storage lock is held
func (db *Database) Apply(ctx context.Context, ev lease.Event) (lease.Result, error) {
	l := hookLog.With(hookLog.AddEventFields(ctx, ev), db.l)

	var res lease.Result
	err := db.store.Update(ctx, func(t *lease.Table) (bool, error) {
		registry := lease.NewRegistry(*t)

		var err error
		res, err = registry.Apply(ev)
		if err != nil {
			return false, err
		}

		if res.Changed {
			*t = registry.Table()
		}

		return res.Changed, nil
	})
	if err != nil {
		l.Errorf("failed to apply event: %s", err)
		return res, fmt.Errorf("applying %s: %w", ev, err)
	}

	if res.Changed {
		l.Debugf("lease table updated (%d notes)", len(res.Notes))
	} else {
		l.Debugf("lease table unchanged")
	}

	return res, nil
}

// Close closes the underlying storage
func (db *Database) Close() error {
	return db.store.Close()
}
