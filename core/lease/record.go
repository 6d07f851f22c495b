package lease

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// fieldSeparator separates the fields of a lease record. Consumers of the
// lease file split on a single space, so empty fields are kept as empty
// tokens
const fieldSeparator = " "

// recordFields is the number of fields in a lease record:
//
//	mac ip hostname location
const recordFields = 4

// MaxRecordSize is the longest lease record, without its newline, that is
// written or read back
const MaxRecordSize = 64 * 1024

// ErrUnencodable is returned when an entry cannot be written as a lease
// record without changing its meaning
var ErrUnencodable = errors.New("entry cannot be encoded as lease record")

// MarshalText implements encoding.TextMarshaler. It returns the record
// without a trailing newline
func (e Entry) MarshalText() ([]byte, error) {
	if e.MAC == "" {
		return nil, fmt.Errorf("%w: empty MAC address", ErrUnencodable)
	}

	fields := []struct {
		name       string
		value      string
		allowSpace bool
	}{
		{"mac", e.MAC, false},
		{"ip", e.IP, false},
		{"hostname", e.Hostname, false},
		{"location", e.Location, true},
	}

	values := make([]string, 0, recordFields)
	for _, f := range fields {
		if strings.ContainsAny(f.value, "\r\n") {
			return nil, fmt.Errorf("%w: %s %q contains a line break", ErrUnencodable, f.name, f.value)
		}
		if !f.allowSpace && strings.Contains(f.value, fieldSeparator) {
			return nil, fmt.Errorf("%w: %s %q contains a space", ErrUnencodable, f.name, f.value)
		}
		values = append(values, f.value)
	}

	record := strings.Join(values, fieldSeparator)
	if len(record) > MaxRecordSize {
		return nil, fmt.Errorf("%w: record of %s is %d bytes long, max %d", ErrUnencodable, e.MAC, len(record), MaxRecordSize)
	}

	return []byte(record), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Missing trailing fields
// are decoded as empty strings
func (e *Entry) UnmarshalText(text []byte) error {
	line := strings.TrimRight(string(text), "\r\n")
	if line == "" {
		return errors.New("empty lease record")
	}

	fields := strings.SplitN(line, fieldSeparator, recordFields)
	for len(fields) < recordFields {
		fields = append(fields, "")
	}

	*e = Entry{
		MAC:      fields[0],
		IP:       fields[1],
		Hostname: fields[2],
		Location: fields[3],
	}
	return nil
}

// EncodeTable writes one lease record per line to w
func EncodeTable(w io.Writer, t Table) error {
	var buf bytes.Buffer
	for _, e := range t {
		record, err := e.MarshalText()
		if err != nil {
			return err
		}
		buf.Write(record)
		buf.WriteByte('\n')
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// DecodeTable reads lease records from r. Blank lines are skipped and lines
// longer than MaxRecordSize are an error
func DecodeTable(r io.Reader) (Table, error) {
	var (
		t    Table
		line int
	)

	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), MaxRecordSize+1)

	for s.Scan() {
		line++
		record := s.Bytes()
		if len(bytes.TrimSpace(record)) == 0 {
			continue
		}

		var e Entry
		if err := e.UnmarshalText(record); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		t = append(t, e)
	}

	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", line+1, err)
	}

	return t, nil
}
