package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/nextdhcp/leasehook/core/lease"
	"github.com/nextdhcp/leasehook/core/lease/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	// StorageFactory should create a new, empty storage instance
	StorageFactory func(ctx context.Context) storage.TableStorage

	// TeardownFunc is invoked after the test suite
	TeardownFunc func(storage.TableStorage)
)

var errAbort = errors.New("abort")

// Run executes a test suite to ensure storage implementations match the
// requirements
func Run(t *testing.T, factory StorageFactory, teardown TeardownFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	instance := factory(ctx)
	require.NotNil(t, instance)
	defer teardown(instance)

	load := func() lease.Table {
		tbl, err := instance.Load(ctx)
		require.NoError(t, err)
		return tbl
	}

	set := func(want lease.Table) {
		err := instance.Update(ctx, func(tbl *lease.Table) (bool, error) {
			*tbl = want.Clone()
			return true, nil
		})
		require.NoError(t, err)
	}

	t.Run("Empty", func(t *testing.T) {
		// a storage that has never been written must not
		// report an error
		assert.Empty(t, load())
	})

	t.Run("Append", func(t *testing.T) {
		err := instance.Update(ctx, func(tbl *lease.Table) (bool, error) {
			*tbl = append(*tbl, lease.Entry{MAC: "00:00:00:00:00:01", IP: "10.0.0.1", Hostname: "rsa-tc", Location: ".112"})
			return true, nil
		})
		require.NoError(t, err)

		err = instance.Update(ctx, func(tbl *lease.Table) (bool, error) {
			*tbl = append(*tbl, lease.Entry{MAC: "00:00:00:00:00:02", IP: "10.0.0.2", Hostname: "??"})
			return true, nil
		})
		require.NoError(t, err)

		assert.Equal(t, lease.Table{
			{MAC: "00:00:00:00:00:01", IP: "10.0.0.1", Hostname: "rsa-tc", Location: ".112"},
			{MAC: "00:00:00:00:00:02", IP: "10.0.0.2", Hostname: "??"},
		}, load())
	})

	t.Run("UpdateInPlace", func(t *testing.T) {
		set(lease.Table{
			{MAC: "m1", IP: "10.0.0.1"},
			{MAC: "m2", IP: "10.0.0.2", Hostname: "iSCSI", Location: ".0.0.0"},
			{MAC: "m3", IP: "10.0.0.3"},
		})

		err := instance.Update(ctx, func(tbl *lease.Table) (bool, error) {
			idx := tbl.Index("m2")
			require.Equal(t, 1, idx)
			(*tbl)[idx].IP = "10.0.0.20"
			return true, nil
		})
		require.NoError(t, err)

		assert.Equal(t, lease.Table{
			{MAC: "m1", IP: "10.0.0.1"},
			{MAC: "m2", IP: "10.0.0.20", Hostname: "iSCSI", Location: ".0.0.0"},
			{MAC: "m3", IP: "10.0.0.3"},
		}, load())
	})

	t.Run("Unchanged", func(t *testing.T) {
		before := load()

		// modifications are discarded if the update func does
		// not report a change
		err := instance.Update(ctx, func(tbl *lease.Table) (bool, error) {
			*tbl = append(*tbl, lease.Entry{MAC: "discarded", IP: "10.0.0.99"})
			return false, nil
		})
		require.NoError(t, err)
		assert.Equal(t, before, load())

		err = instance.Update(ctx, func(tbl *lease.Table) (bool, error) {
			*tbl = nil
			return true, errAbort
		})
		assert.True(t, errors.Is(err, errAbort))
		assert.Equal(t, before, load())
	})

	t.Run("Remove", func(t *testing.T) {
		set(lease.Table{
			{MAC: "m1", IP: "10.0.0.1"},
			{MAC: "m2", IP: "10.0.0.2"},
			{MAC: "m3", IP: "10.0.0.3"},
		})

		err := instance.Update(ctx, func(tbl *lease.Table) (bool, error) {
			*tbl = append((*tbl)[:1], (*tbl)[2:]...)
			return true, nil
		})
		require.NoError(t, err)
		assert.Equal(t, lease.Table{
			{MAC: "m1", IP: "10.0.0.1"},
			{MAC: "m3", IP: "10.0.0.3"},
		}, load())

		set(nil)
		assert.Empty(t, load())
	})

	t.Run("Sequential", func(t *testing.T) {
		set(nil)

		// every update must see the result of the previous one
		for i := 0; i < 10; i++ {
			err := instance.Update(ctx, func(tbl *lease.Table) (bool, error) {
				*tbl = append(*tbl, lease.Entry{MAC: string(rune('a' + i)), IP: "10.0.0.1"})
				return true, nil
			})
			require.NoError(t, err)
		}

		tbl := load()
		require.Len(t, tbl, 10)
		for i, e := range tbl {
			assert.Equal(t, string(rune('a'+i)), e.MAC)
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		called := false
		err := instance.Update(cancelled, func(tbl *lease.Table) (bool, error) {
			called = true
			return true, nil
		})
		assert.Error(t, err)
		assert.False(t, called, "update func must not run with a cancelled context")
	})
}
