package lease

import (
	"errors"
	"fmt"
)

// Kind is the lifecycle event reported by the DHCP server
type Kind string

const (
	// KindCommit signals that a lease has been granted or renewed
	KindCommit Kind = "commit"

	// KindRelease signals that a client gave up its lease
	KindRelease Kind = "release"

	// KindExpire signals that a lease elapsed without renewal
	KindExpire Kind = "expiry"
)

// ErrUnknownEvent is returned for event kinds other than commit, release
// and expiry
var ErrUnknownEvent = errors.New("unknown DHCP event")

// Kinds returns all supported event kinds in the order they are documented
func Kinds() []Kind {
	return []Kind{KindCommit, KindRelease, KindExpire}
}

// ParseKind returns the event kind named s
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEvent, s)
}

// Event is a single lease lifecycle event
type Event struct {
	Kind   Kind
	MAC    string
	IP     string
	Option string
}

// NewEvent returns an event and substitutes PlaceholderOption for an empty
// option string
func NewEvent(kind Kind, mac, ip, option string) Event {
	if option == "" {
		option = PlaceholderOption
	}

	return Event{
		Kind:   kind,
		MAC:    mac,
		IP:     ip,
		Option: option,
	}
}

// String implements fmt.Stringer
func (ev Event) String() string {
	return fmt.Sprintf("%s %s on %s", ev.Kind, ev.IP, ev.MAC)
}

// Note is an audit note produced while applying an event
type Note string

const (
	// NoteChanged is recorded when a committed lease replaces the IP
	// address of an existing entry
	NoteChanged Note = "lease changed"

	// NoteCommitted is recorded for every commit event
	NoteCommitted Note = "lease committed"

	// NoteReleased is recorded for every release event
	NoteReleased Note = "lease released"

	// NoteExpired is recorded for every expiry event
	NoteExpired Note = "lease expired"
)

// Result describes the outcome of applying a single event to a table
type Result struct {
	// Event is the event that has been applied
	Event Event

	// Entry holds the entry stored for the client after a commit
	Entry Entry

	// Changed is true if the table needs to be rewritten
	Changed bool

	// Notes lists the audit notes in the order they have been produced
	Notes []Note
}

func (r *Result) note(n Note) {
	r.Notes = append(r.Notes, n)
}
