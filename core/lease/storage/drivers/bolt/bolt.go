package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/nextdhcp/leasehook/core/lease"
	"github.com/nextdhcp/leasehook/core/lease/storage"
	"go.etcd.io/bbolt"
)

var tableBucketKey = []byte("lease-table")

// SchemaVersion is the current version of the bolt db
const SchemaVersion = "1"

type (
	// Storage is a storage.TableStorage implementation that persists
	// the lease table in a bbolt database. Entries are stored under
	// the bucket's sequence numbers so the table order is kept
	Storage struct {
		db   *bbolt.DB
		path string
	}

	entry struct {
		MAC      string `json:"mac"`
		IP       string `json:"ip"`
		Hostname string `json:"hostname,omitempty"`
		Location string `json:"location,omitempty"`
	}
)

// Load implements storage.TableStorage
func (s *Storage) Load(ctx context.Context) (lease.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var t lease.Table
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		t, err = s.readTable(tx)
		return err
	})

	return t, err
}

// Update implements storage.TableStorage. bbolt allows a single
// read-write transaction at a time and the database file itself is locked
// while it is open
func (s *Storage) Update(ctx context.Context, fn storage.UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		t, err := s.readTable(tx)
		if err != nil {
			return err
		}

		changed, err := fn(&t)
		if err != nil || !changed {
			return err
		}

		return writeTable(tx, t)
	})
}

// Close implements storage.TableStorage
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) readTable(tx *bbolt.Tx) (lease.Table, error) {
	bucket := tx.Bucket(tableBucketKey)
	if bucket == nil {
		// the bucket hasn't even been created yet
		return nil, nil
	}

	var t lease.Table
	err := bucket.ForEach(func(key, value []byte) error {
		var e entry
		if err := json.Unmarshal(value, &e); err != nil {
			return &storage.ErrMalformedRecord{
				Source: fmt.Sprintf("%s#%x", s.path, key),
				Err:    err,
			}
		}

		t = append(t, lease.Entry(e))
		return nil
	})

	return t, err
}

func writeTable(tx *bbolt.Tx, t lease.Table) error {
	if tx.Bucket(tableBucketKey) != nil {
		if err := tx.DeleteBucket(tableBucketKey); err != nil {
			return err
		}
	}

	// a new bucket restarts its sequence at zero
	bucket, err := tx.CreateBucket(tableBucketKey)
	if err != nil {
		return err
	}

	for _, e := range t {
		if err := putEntry(bucket, entry(e)); err != nil {
			return err
		}
	}

	return nil
}

func putEntry(bucket *bbolt.Bucket, e entry) error {
	seq, err := bucket.NextSequence()
	if err != nil {
		return err
	}

	blob, err := json.Marshal(e)
	if err != nil {
		return err
	}

	return bucket.Put(sequenceKey(seq), blob)
}

func sequenceKey(seq uint64) []byte {
	// big endian keeps the byte order of keys equal to the numeric order
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

// compile time check
var _ storage.TableStorage = &Storage{}
