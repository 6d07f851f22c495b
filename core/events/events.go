package events

import (
	"time"

	"github.com/apex/log"
	"github.com/caddyserver/caddy"
	"github.com/nextdhcp/leasehook/core/lease"
)

const (
	// EventLeaseCommitted is emitted for every commit event
	EventLeaseCommitted caddy.EventName = "lease-committed"

	// EventLeaseChanged is emitted when a commit replaced the IP address
	// of a known client
	EventLeaseChanged caddy.EventName = "lease-changed"

	// EventLeaseReleased is emitted for every release event
	EventLeaseReleased caddy.EventName = "lease-released"

	// EventLeaseExpired is emitted for every expiry event
	EventLeaseExpired caddy.EventName = "lease-expired"
)

type (
	// Lease is passed to lease event hooks
	Lease struct {
		lease.Result

		// Instance is the name of the Leasefile block that handled
		// the event
		Instance string

		// Time is the time the event has been processed
		Time time.Time

		// Note is the audit note the event has been emitted for
		Note lease.Note
	}

	// LeaseEventHook is the function type that can receive lease-based events
	LeaseEventHook func(event caddy.EventName, l *Lease) error
)

var (
	noteEvents = map[lease.Note]caddy.EventName{
		lease.NoteCommitted: EventLeaseCommitted,
		lease.NoteChanged:   EventLeaseChanged,
		lease.NoteReleased:  EventLeaseReleased,
		lease.NoteExpired:   EventLeaseExpired,
	}

	validLeaseEvents = map[caddy.EventName]struct{}{
		EventLeaseCommitted: {},
		EventLeaseChanged:   {},
		EventLeaseReleased:  {},
		EventLeaseExpired:   {},
	}
)

// Names returns all lease event names
func Names() []caddy.EventName {
	return []caddy.EventName{
		EventLeaseCommitted,
		EventLeaseChanged,
		EventLeaseReleased,
		EventLeaseExpired,
	}
}

// Lookup returns the lease event called name. The "lease-" prefix may be
// omitted
func Lookup(name string) (caddy.EventName, bool) {
	for _, ev := range Names() {
		if string(ev) == name || string(ev) == "lease-"+name {
			return ev, true
		}
	}
	return "", false
}

// ForNote returns the event emitted for note
func ForNote(note lease.Note) (caddy.EventName, bool) {
	name, ok := noteEvents[note]
	return name, ok
}

// EmitLeaseEvents emits one lease event per note of res. Hooks are
// executed synchronously
func EmitLeaseEvents(instance string, at time.Time, res lease.Result) {
	for _, note := range res.Notes {
		name, ok := ForNote(note)
		if !ok {
			log.Warnf("no lease event for note %q", note)
			continue
		}

		caddy.EmitEvent(name, &Lease{
			Result:   res,
			Instance: instance,
			Time:     at,
			Note:     note,
		})
	}
}

// RegisterLeaseEventHook registers a new lease event hook that is only
// invoked for event. Errors returned by hook are logged as warnings
func RegisterLeaseEventHook(name string, event caddy.EventName, hook LeaseEventHook) {
	if _, ok := validLeaseEvents[event]; !ok {
		panic("invalid lease event name")
	}

	caddy.RegisterEventHook(name, func(e caddy.EventName, value interface{}) error {
		if e != event {
			return nil
		}

		l, ok := value.(*Lease)
		if !ok {
			return nil
		}

		if err := hook(e, l); err != nil {
			log.WithError(err).WithField("hook", name).Warnf("lease event hook failed for %s", e)
		}
		return nil
	})
}
