// Package file stores the lease table in a flat text file with one
// "mac ip hostname location" record per line
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/nextdhcp/leasehook/core/lease"
	"github.com/nextdhcp/leasehook/core/lease/storage"
)

const (
	// DefaultPath is the lease file used if none is configured
	DefaultPath = "/tmp/leases"

	// DefaultRetryDelay is the interval between two attempts to acquire
	// the lock file
	DefaultRetryDelay = 50 * time.Millisecond

	lockSuffix = ".lock"
	fileMode   = 0o644
)

// Storage implements storage.TableStorage on top of a lease file. Updates
// are serialized by an advisory lock on a sidecar lock file and replace the
// lease file atomically, so readers never see a partially written table
type Storage struct {
	path       string
	retryDelay time.Duration
}

// New returns a storage for the lease file at path. The file does not need
// to exist
func New(path string) *Storage {
	return &Storage{
		path:       path,
		retryDelay: DefaultRetryDelay,
	}
}

// Path returns the path of the lease file
func (s *Storage) Path() string {
	return s.path
}

// Load implements storage.TableStorage. It does not take the lock
func (s *Storage) Load(ctx context.Context) (lease.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return s.read()
}

// Update implements storage.TableStorage
func (s *Storage) Update(ctx context.Context, fn storage.UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := flock.New(s.path + lockSuffix)
	locked, err := lock.TryLockContext(ctx, s.retryDelay)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("failed to lock %s: %w", lock.Path(), err)
	}
	if !locked {
		return fmt.Errorf("%w: %s", storage.ErrLockTimeout, lock.Path())
	}
	defer lock.Unlock()

	t, err := s.read()
	if err != nil {
		return err
	}

	changed, err := fn(&t)
	if err != nil || !changed {
		return err
	}

	return s.write(t)
}

// Close implements storage.TableStorage
func (s *Storage) Close() error {
	return nil
}

func (s *Storage) read() (lease.Table, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	t, err := lease.DecodeTable(f)
	if err != nil {
		return nil, &storage.ErrMalformedRecord{
			Source: s.path,
			Err:    err,
		}
	}

	return t, nil
}

// write replaces the lease file with t. The table is written to a temporary
// file in the same directory which is then renamed over the lease file
func (s *Storage) write(t lease.Table) (err error) {
	dir, base := filepath.Split(s.path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = lease.EncodeTable(tmp, t); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Chmod(fileMode); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), s.path)
}

// compile time check
var _ storage.TableStorage = &Storage{}
