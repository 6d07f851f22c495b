package lease

import (
	"fmt"
)

// Entry describes the IPv4 address currently leased to a client together
// with the hostname and location derived from the client's option string
type Entry struct {
	// MAC is the hardware address of the client. It is the unique key of
	// a lease table
	MAC string

	// IP holds the address that has been leased to the client
	IP string

	// Hostname is the display name derived from the option string. It
	// may be empty
	Hostname string

	// Location is the location code derived from the option string. It
	// may be empty
	Location string
}

// String implements fmt.Stringer
func (e Entry) String() string {
	return fmt.Sprintf("%s (%s; hostname=%q location=%q)", e.IP, e.MAC, e.Hostname, e.Location)
}

// Table is an ordered list of lease entries. Entries are never reordered,
// only replaced in place, appended or dropped
type Table []Entry

// Index returns the position of the first entry for mac or -1
func (t Table) Index(mac string) int {
	for i, e := range t {
		if e.MAC == mac {
			return i
		}
	}
	return -1
}

// Find returns the first entry for mac
func (t Table) Find(mac string) (Entry, bool) {
	idx := t.Index(mac)
	if idx < 0 {
		return Entry{}, false
	}
	return t[idx], true
}

// Clone returns a copy of the table that does not share its backing array
func (t Table) Clone() Table {
	if t == nil {
		return nil
	}
	return append(Table{}, t...)
}

// Equal reports whether both tables hold the same entries in the same order
func (t Table) Equal(other Table) bool {
	if len(t) != len(other) {
		return false
	}
	for i := range t {
		if t[i] != other[i] {
			return false
		}
	}
	return true
}

// without returns the entries of t whose MAC is not mac, preserving order,
// and the number of entries dropped
func (t Table) without(mac string) (Table, int) {
	kept := make(Table, 0, len(t))
	for _, e := range t {
		if e.MAC == mac {
			continue
		}
		kept = append(kept, e)
	}
	return kept, len(t) - len(kept)
}
