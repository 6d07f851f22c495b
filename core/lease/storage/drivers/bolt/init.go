package bolt

import (
	"errors"
	"fmt"
	"time"

	"github.com/nextdhcp/leasehook/core/lease/storage"
	"go.etcd.io/bbolt"
)

// DefaultTimeout is the time to wait for the database file lock
const DefaultTimeout = 10 * time.Second

func init() {
	storage.MustRegister("bolt", storageFactory)
}

func storageFactory(arguments map[string][]string) (storage.TableStorage, error) {
	file, err := storage.SingleArg(arguments, "file")
	if err != nil {
		return nil, err
	}
	if file == "" {
		return nil, fmt.Errorf("no database file configured")
	}

	timeout := DefaultTimeout
	if t, ok := arguments["timeout"]; ok {
		if len(t) != 1 {
			return nil, fmt.Errorf("only one timeout can be configured")
		}

		timeout, err = time.ParseDuration(t[0])
		if err != nil {
			return nil, fmt.Errorf("invalid timeout: %w", err)
		}
	}

	return Open(file, timeout)
}

// Open opens or creates the bolt database at file and migrates it to the
// current schema version. Only one process can have the database opened
// at a time; Open waits up to timeout for the file lock
func Open(file string, timeout time.Duration) (*Storage, error) {
	db, err := bbolt.Open(file, 0o660, &bbolt.Options{
		Timeout: timeout,
	})
	if err != nil {
		if errors.Is(err, bbolt.ErrTimeout) {
			return nil, fmt.Errorf("%w: %s", storage.ErrLockTimeout, file)
		}
		return nil, err
	}

	if err := migrateDatabase(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate %s: %w", file, err)
	}

	return &Storage{db: db, path: file}, nil
}
