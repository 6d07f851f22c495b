// Package audit appends a human readable record of every processed lease
// event to the audit log
package audit

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/nextdhcp/leasehook/core/lease"
)

// DefaultPath is the audit log used if none is configured
const DefaultPath = "/tmp/parse.leases.txt"

// phrases holds the wording used for each note in the audit log
var phrases = map[lease.Note]string{
	lease.NoteChanged:   "Changed lease to",
	lease.NoteCommitted: "Committed",
	lease.NoteReleased:  "Released",
	lease.NoteExpired:   "Expired",
}

// Trail is an append-only audit log
type Trail struct {
	closer  io.Closer
	handler *handler
	logger  *log.Logger
}

// Open opens the audit log at path for appending and creates it if
// required
func Open(path string) (*Trail, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open audit log: %w", err)
	}

	t := New(f)
	t.closer = f
	return t, nil
}

// New returns a trail that writes to w
func New(w io.Writer) *Trail {
	h := &handler{w: w}

	return &Trail{
		handler: h,
		logger: &log.Logger{
			Handler: h,
			Level:   log.InfoLevel,
		},
	}
}

// Record appends one line for each note of res
func (t *Trail) Record(res lease.Result) error {
	for _, note := range res.Notes {
		t.logger.WithFields(log.Fields{
			"note": string(note),
			"mac":  res.Event.MAC,
			"ip":   res.Event.IP,
		}).Info(Message(note, res.Event))

		if err := t.handler.takeErr(); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
	}

	return nil
}

// Close closes the underlying file, if any
func (t *Trail) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer.Close()
}

// Message returns the audit message for note
func Message(note lease.Note, ev lease.Event) string {
	phrase, ok := phrases[note]
	if !ok {
		phrase = string(note)
	}

	return fmt.Sprintf("%s %s on %s", phrase, ev.IP, ev.MAC)
}

// Timestamp formats t the way audit lines are prefixed. Fractional seconds
// are omitted if they are zero
func Timestamp(t time.Time) string {
	if t.Nanosecond()/int(time.Microsecond) == 0 {
		return t.Format("2006-01-02 15:04:05")
	}
	return t.Format("2006-01-02 15:04:05.000000")
}

// handler is an apex/log handler writing audit lines. The logger
// swallows handler errors so the last one is kept for Record
type handler struct {
	mu  sync.Mutex
	w   io.Writer
	err error
}

func (h *handler) HandleLog(e *log.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := fmt.Fprintf(h.w, "%s  %s\n", Timestamp(e.Timestamp), e.Message)
	if err != nil && h.err == nil {
		h.err = err
	}
	return err
}

func (h *handler) takeErr() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	err := h.err
	h.err = nil
	return err
}
