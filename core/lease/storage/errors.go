package storage

import (
	"errors"
	"fmt"
)

type (
	// ErrMalformedRecord is returned when a persisted lease record cannot
	// be decoded
	ErrMalformedRecord struct {
		// Source names the storage location holding the record
		Source string

		// Err is the decoding error
		Err error
	}
)

var (
	// ErrUnknownDriver is returned by Open if no driver has been
	// registered with the requested name
	ErrUnknownDriver = errors.New("unknown storage driver")

	// ErrLockTimeout is returned if the exclusive lock on the lease table
	// could not be acquired before the context has been cancelled
	ErrLockTimeout = errors.New("timeout waiting for lease table lock")
)

func (emr *ErrMalformedRecord) Error() string {
	return fmt.Sprintf("malformed lease record in %s: %s", emr.Source, emr.Err)
}

func (emr *ErrMalformedRecord) Unwrap() error {
	return emr.Err
}

// IsMalformed returns true if err is or wraps an ErrMalformedRecord
func IsMalformed(err error) bool {
	var emr *ErrMalformedRecord
	return errors.As(err, &emr)
}
