package replacer

import (
	"context"
	"strings"
	"time"

	"github.com/nextdhcp/leasehook/core/events"
)

type (
	// Replacer is capable of replacing variables in a template string
	Replacer interface {
		// Replace replaces all variables in string and returns the result
		Replace(string) string

		// Set adds a custom replacement value
		Set(key string, value Value)

		// Get returns the replacement value for key
		Get(key string) string
	}

	// Value is a getter for string represenations of custom lease
	// event fields
	Value interface {
		// Get returns the string represenation for the given
		// lease event
		Get(l *events.Lease) string
	}

	// ValueGetter implements the Value interface and returns a string
	// based on the provided lease event
	ValueGetter func(l *events.Lease) string

	// StringValue is a utility method to use string constants for
	// the Value interface
	StringValue string

	// CtxKey is used to store a replace instance in a context value
	CtxKey struct{}

	replacer struct {
		lease              *events.Lease
		customReplacements map[string]Value // a list of custom replacements configured via Set
	}
)

// TimeFormat is used for the {time} placeholder
const TimeFormat = time.RFC3339

// Get implements the Value interface and calls g itself
func (g ValueGetter) Get(l *events.Lease) string {
	return g(l)
}

// Get implements the Value interface and returns s itself
func (s StringValue) Get(_ *events.Lease) string {
	return string(s)
}

// WithReplacer returns a new context with a replacer instance
func WithReplacer(ctx context.Context, r Replacer) context.Context {
	return context.WithValue(ctx, CtxKey{}, r)
}

// GetReplacer returns the replacer associated with ctx
func GetReplacer(ctx context.Context) Replacer {
	v := ctx.Value(CtxKey{})
	if v == nil {
		return nil
	}

	r, ok := v.(Replacer)
	if !ok {
		panic("replacer.CtxKey used for a none replacer type")
	}
	return r
}

// NewReplacer returns a new replacer instance for the given lease event.
// If ctx already carries a replacer that one is returned
func NewReplacer(ctx context.Context, l *events.Lease) Replacer {
	if parent := GetReplacer(ctx); parent != nil {
		return parent
	}

	return &replacer{
		lease:              l,
		customReplacements: make(map[string]Value),
	}
}

func (r *replacer) Set(key string, val Value) {
	r.customReplacements[key] = val
}

func (r *replacer) Get(key string) string {
	// try custom replacements first
	val, ok := r.customReplacements[key]
	if ok {
		return val.Get(r.lease)
	}

	if r.lease == nil {
		return ""
	}

	// try built-in keys next
	switch key {
	case "event":
		name, _ := events.ForNote(r.lease.Note)
		return string(name)

	case "kind":
		return string(r.lease.Event.Kind)

	case "note":
		return string(r.lease.Note)

	case "mac":
		return r.lease.Event.MAC

	case "ip":
		return r.lease.Event.IP

	case "option":
		return r.lease.Event.Option

	case "hostname":
		return r.lease.Entry.Hostname

	case "location":
		return r.lease.Entry.Location

	case "instance":
		return r.lease.Instance

	case "time":
		if r.lease.Time.IsZero() {
			return ""
		}
		return r.lease.Time.Format(TimeFormat)
	}

	return ""
}

// Replace relaces all keys in s with their counterpart. The algorithm below
// is based and mostly copied from
// https://github.com/caddyserver/caddy/blob/master/caddyhttp/httpserver/replacer.go
func (r *replacer) Replace(s string) string {
	// Do not attempt replacements if no placeholder is found.
	if !strings.ContainsAny(s, "{}") {
		return s
	}

	result := ""
Placeholders: // process each placeholder in sequence
	for {
		var idxStart, idxEnd int

		idxOffset := 0
		for { // find first unescaped opening brace
			searchSpace := s[idxOffset:]
			idxStart = strings.Index(searchSpace, "{")
			if idxStart == -1 {
				// no more placeholders
				break Placeholders
			}
			if idxStart == 0 || searchSpace[idxStart-1] != '\\' {
				// preceding character is not an escape
				idxStart += idxOffset
				break
			}
			// the brace we found was escaped
			// search the rest of the string next
			idxOffset += idxStart + 1
		}

		idxOffset = 0
		for { // find first unescaped closing brace
			searchSpace := s[idxStart+idxOffset:]
			idxEnd = strings.Index(searchSpace, "}")
			if idxEnd == -1 {
				// unpaired placeholder
				break Placeholders
			}
			if idxEnd == 0 || searchSpace[idxEnd-1] != '\\' {
				// preceding character is not an escape
				idxEnd += idxOffset + idxStart
				break
			}
			// the brace we found was escaped
			// search the rest of the string next
			idxOffset += idxEnd + 1
		}

		// get a replacement for the unescaped placeholder
		placeholder := unescapeBraces(s[idxStart : idxEnd+1])
		replacement := r.Get(placeholder[1 : len(placeholder)-1])

		// append unescaped prefix + replacement
		result += strings.TrimPrefix(unescapeBraces(s[:idxStart]), "\\") + replacement

		// strip out scanned parts
		s = s[idxEnd+1:]
	}

	// append unscanned parts
	return result + unescapeBraces(s)
}

// unescapeBraces finds escaped braces in s and returns
// a string with those braces unescaped.
func unescapeBraces(s string) string {
	s = strings.Replace(s, "\\{", "{", -1)
	s = strings.Replace(s, "\\}", "}", -1)
	return s
}
