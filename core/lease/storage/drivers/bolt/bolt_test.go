package bolt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nextdhcp/leasehook/core/lease"
	"github.com/nextdhcp/leasehook/core/lease/storage"
	"github.com/nextdhcp/leasehook/core/lease/storage/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func TestBoltStorage(t *testing.T) {
	factory := func(ctx context.Context) storage.TableStorage {
		s, err := Open(filepath.Join(t.TempDir(), "leases.db"), time.Second)
		if err != nil {
			panic(err.Error())
		}
		return s
	}

	teardown := func(s storage.TableStorage) {
		s.Close()
	}

	tests.Run(t, factory, teardown)
}

func TestBoltStoragePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leases.db")
	ctx := context.Background()

	s, err := storage.Open("bolt", map[string][]string{
		storage.ArgsKey: {path},
	})
	require.NoError(t, err)

	tbl := lease.Table{
		{MAC: "m2", IP: "10.0.0.2", Hostname: "rsa-tc", Location: ".112"},
		{MAC: "m1", IP: "10.0.0.1"},
	}
	require.NoError(t, s.Update(ctx, func(dst *lease.Table) (bool, error) {
		*dst = tbl
		return true, nil
	}))
	require.NoError(t, s.Close())

	s, err = storage.Open("bolt", map[string][]string{
		"file":    {path},
		"timeout": {"1s"},
	})
	require.NoError(t, err)
	defer s.Close()

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, tbl, loaded)
}

func TestBoltStorageLockTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leases.db")

	s, err := Open(path, time.Second)
	require.NoError(t, err)
	defer s.Close()

	_, err = Open(path, 50*time.Millisecond)
	assert.ErrorIs(t, err, storage.ErrLockTimeout)
}

func TestBoltStorageFactoryTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leases.db")

	s, err := Open(path, time.Second)
	require.NoError(t, err)
	defer s.Close()

	start := time.Now()
	_, err = storageFactory(map[string][]string{
		"file":    {path},
		"timeout": {"100ms"},
	})
	assert.ErrorIs(t, err, storage.ErrLockTimeout)
	assert.Less(t, time.Since(start), DefaultTimeout)
}

func TestBoltStorageFactoryErrors(t *testing.T) {
	_, err := storageFactory(map[string][]string{})
	assert.Error(t, err)

	_, err = storageFactory(map[string][]string{"file": {"a", "b"}})
	assert.Error(t, err)

	_, err = storageFactory(map[string][]string{
		"file":    {filepath.Join(t.TempDir(), "leases.db")},
		"timeout": {"soon"},
	})
	assert.Error(t, err)
}

func TestBoltStorageMalformedEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leases.db")

	s, err := Open(path, time.Second)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(tableBucketKey)
		if err != nil {
			return err
		}
		return bucket.Put(sequenceKey(1), []byte("{"))
	}))

	_, err = s.Load(context.Background())
	assert.True(t, storage.IsMalformed(err))
}
