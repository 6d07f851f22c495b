package replacer

import (
	"context"
	"testing"
	"time"

	"github.com/nextdhcp/leasehook/core/events"
	"github.com/nextdhcp/leasehook/core/lease"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLease(t *testing.T) *events.Lease {
	reg := lease.NewRegistry(nil)
	res, err := reg.Apply(lease.NewEvent(lease.KindCommit, "de:ad:be:ef:01:02", "10.0.0.1", "rsa-tc_a1234"))
	require.NoError(t, err)

	return &events.Lease{
		Result:   res,
		Instance: "pod-manager",
		Time:     time.Date(2015, 7, 1, 13, 4, 5, 0, time.UTC),
		Note:     lease.NoteCommitted,
	}
}

func Test_Replacer_Context_Utils(t *testing.T) {
	t.Run("WithReplacer should add it to the context", func(t *testing.T) {
		ctx := context.Background()

		r := &replacer{}
		ctx = WithReplacer(ctx, r)

		fromCtx := ctx.Value(CtxKey{})
		assert.NotNil(t, fromCtx)
		assert.Exactly(t, r, fromCtx)
	})

	t.Run("GetReplacer should return it from a context", func(t *testing.T) {
		ctx := context.Background()

		r := &replacer{}
		ctx = context.WithValue(ctx, CtxKey{}, r)

		assert.Exactly(t, r, GetReplacer(ctx))
		assert.Exactly(t, r, NewReplacer(ctx, nil))
	})

	t.Run("GetReplacer should return nil if not in a context", func(t *testing.T) {
		assert.Nil(t, GetReplacer(context.Background()))
	})

	t.Run("GetReplacer should panic if key is misused", func(t *testing.T) {
		assert.Panics(t, func() {
			GetReplacer(context.WithValue(context.Background(), CtxKey{}, "foobar"))
		})
	})
}

func Test_Replacer_KnownKeys(t *testing.T) {
	l := testLease(t)
	r := NewReplacer(context.Background(), l)

	t.Run("simple keys", func(t *testing.T) {
		cases := []struct {
			I string
			E string
		}{
			{"event", "lease-committed"},
			{"kind", "commit"},
			{"note", "lease committed"},
			{"mac", "de:ad:be:ef:01:02"},
			{"ip", "10.0.0.1"},
			{"option", "rsa-tc_a1234"},
			{"hostname", "rsa-tc"},
			{"location", ".112"},
			{"instance", "pod-manager"},
			{"time", "2015-07-01T13:04:05Z"},
			{"unknown", ""},
		}

		for i, c := range cases {
			res := r.Get(c.I)
			assert.Equal(t, c.E, res, "in case %d", i)
		}
	})

	t.Run("custom keys", func(t *testing.T) {
		r.Set("key1", StringValue("value1"))
		assert.Equal(t, "value1", r.Get("key1"))

		r.Set("foo", getter(func() string {
			return "bar"
		}))

		assert.Equal(t, "bar", r.Get("foo"))

		r.Set("mac", ValueGetter(func(got *events.Lease) string {
			assert.Exactly(t, l, got)
			return "mac"
		}))

		assert.Equal(t, "mac", r.Get("mac"))
	})

	t.Run("without lease", func(t *testing.T) {
		empty := NewReplacer(context.Background(), nil)
		assert.Equal(t, "", empty.Get("mac"))
		assert.Equal(t, "", empty.Get("time"))
	})
}

func Test_Replacer_Replace(t *testing.T) {
	r := NewReplacer(context.Background(), testLease(t))

	cases := []struct {
		I string
		E string
	}{
		{
			"{hostname} {mac} leased {ip}",
			"rsa-tc de:ad:be:ef:01:02 leased 10.0.0.1",
		},
		{
			"\\{hostname} {mac} leased {ip}",
			"{hostname} de:ad:be:ef:01:02 leased 10.0.0.1",
		},
		{
			"\\{hostname\\} {mac} leased {ip}",
			"{hostname} de:ad:be:ef:01:02 leased 10.0.0.1",
		},
		{
			"{hostname\\} {mac} leased {ip}",
			" leased 10.0.0.1",
		},
		{
			"leases/{instance}/{event}",
			"leases/pod-manager/lease-committed",
		},
		{
			"{",
			"{",
		},
		{
			"{}",
			"",
		},
		{
			"}",
			"}",
		},
	}

	for i, c := range cases {
		assert.Equal(t, c.E, r.Replace(c.I), "in case %d", i)
	}
}

type getter func() string

func (g getter) Get(_ *events.Lease) string {
	return g()
}
