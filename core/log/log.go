package log

import (
	"context"

	"github.com/apex/log"
	"github.com/nextdhcp/leasehook/core/lease"
)

// Logger is the logging interface used throughout leasehook
type Logger = log.Interface

type eventFieldsKey struct{}

// AddEventFields returns a new context.Context that carries the log fields
// of ev
func AddEventFields(parent context.Context, ev lease.Event) context.Context {
	fields := log.Fields{
		"event": string(ev.Kind),
		"mac":   ev.MAC,
		"ip":    ev.IP,
	}

	if ev.Option != "" && ev.Option != lease.PlaceholderOption {
		fields["option"] = ev.Option
	}

	return context.WithValue(parent, eventFieldsKey{}, fields)
}

// Fields returns the event fields stored in ctx, if any
func Fields(ctx context.Context) log.Fields {
	if ctx == nil {
		return nil
	}

	fields, _ := ctx.Value(eventFieldsKey{}).(log.Fields)
	return fields
}

// With returns l with the event fields of ctx attached. If ctx does not
// carry any fields l is returned unchanged
func With(ctx context.Context, l Logger) Logger {
	if l == nil {
		l = log.Log
	}

	fields := Fields(ctx)
	if fields == nil {
		return l
	}

	return l.WithFields(fields)
}
