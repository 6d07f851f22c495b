package lease

// Registry applies lifecycle events to a lease table. It does not perform
// any I/O; loading and persisting the table is up to the caller
type Registry struct {
	table Table
}

// NewRegistry returns a registry operating on a copy of t
func NewRegistry(t Table) *Registry {
	return &Registry{
		table: t.Clone(),
	}
}

// Table returns the current lease table
func (r *Registry) Table() Table {
	return r.table.Clone()
}

// Apply dispatches ev to Commit, Release or Expire
func (r *Registry) Apply(ev Event) (Result, error) {
	var res Result

	switch ev.Kind {
	case KindCommit:
		res = r.Commit(ev.MAC, ev.IP, ev.Option)
	case KindRelease:
		res = r.Release(ev.MAC, ev.IP)
	case KindExpire:
		res = r.Expire(ev.MAC, ev.IP)
	default:
		return Result{Event: ev}, ErrUnknownEvent
	}

	res.Event = ev
	return res, nil
}

// Commit records that ip has been leased to mac. An existing entry with the
// same IP is left untouched, an entry with a different IP is updated in place
// and an unknown client is appended to the table
func (r *Registry) Commit(mac, ip, option string) Result {
	hostname, location := Derive(option)
	entry := Entry{
		MAC:      mac,
		IP:       ip,
		Hostname: hostname,
		Location: location,
	}

	res := Result{
		Event: Event{Kind: KindCommit, MAC: mac, IP: ip, Option: option},
		Entry: entry,
	}

	idx := r.table.Index(mac)
	switch {
	case idx < 0:
		r.table = append(r.table, entry)
		res.Changed = true

	case r.table[idx].IP == ip:
		res.Entry = r.table[idx]

	default:
		r.table[idx] = entry
		res.Changed = true
		res.note(NoteChanged)
	}

	// rows for the same client beyond the first one can only come from a
	// hand edited file. Collapse them so the MAC stays unique
	if r.collapse(mac) {
		res.Changed = true
	}

	res.note(NoteCommitted)
	return res
}

// Release removes every entry of mac
func (r *Registry) Release(mac, ip string) Result {
	res := r.remove(mac)
	res.Event = Event{Kind: KindRelease, MAC: mac, IP: ip}
	res.note(NoteReleased)
	return res
}

// Expire removes every entry of mac. It behaves exactly like Release but
// records a different audit note
func (r *Registry) Expire(mac, ip string) Result {
	res := r.remove(mac)
	res.Event = Event{Kind: KindExpire, MAC: mac, IP: ip}
	res.note(NoteExpired)
	return res
}

// remove drops every entry of mac. The result carries the first removed
// entry, or no entry if mac was unknown
func (r *Registry) remove(mac string) Result {
	var res Result
	if e, ok := r.table.Find(mac); ok {
		res.Entry = e
	}

	var dropped int
	r.table, dropped = r.table.without(mac)
	res.Changed = dropped > 0

	return res
}

// collapse drops all but the first entry of mac and reports whether
// anything has been dropped
func (r *Registry) collapse(mac string) bool {
	first := r.table.Index(mac)
	if first < 0 {
		return false
	}

	head := r.table[:first+1]
	tail, dropped := r.table[first+1:].without(mac)
	if dropped == 0 {
		return false
	}

	r.table = append(head.Clone(), tail...)
	return true
}
