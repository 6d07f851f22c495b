// Package config loads the Leasefile, a caddyfile with a single block
// whose key names the hook instance:
//
//	pod-manager {
//	    table file /tmp/leases
//	    audit /tmp/parse.leases.txt
//	    log info
//	}
package config

import (
	"context"
	"time"

	"github.com/nextdhcp/leasehook/core/lease"
	"github.com/nextdhcp/leasehook/core/lease/storage"
)

const (
	// DefaultInstance is the instance name used without a Leasefile
	DefaultInstance = "leasehook"

	// DefaultTableDriver is the storage driver used if the Leasefile
	// does not contain a table directive
	DefaultTableDriver = "file"

	// DefaultTablePath is the lease file used by default
	DefaultTablePath = "/tmp/leases"

	// DefaultAuditPath is the audit log used if the Leasefile does not
	// contain an audit directive
	DefaultAuditPath = "/tmp/parse.leases.txt"
)

type (
	// Summary describes the outcome of a single invocation
	Summary struct {
		// Instance is the name of the configuration block
		Instance string

		// Time is the time the event has been processed
		Time time.Time

		// Result is the result of applying the event
		Result lease.Result

		// Table is the lease table after the event has been applied
		Table lease.Table
	}

	// FinishFunc is called after an event has been persisted and audited
	FinishFunc func(ctx context.Context, s Summary) error

	// TableConfig selects the storage driver of the lease table
	TableConfig struct {
		// Driver is the name of the storage driver
		Driver string

		// Args are passed to the storage driver factory
		Args map[string][]string
	}

	// Config is the configuration of a hook instance
	Config struct {
		// Name is the key of the Leasefile block
		Name string

		// Table configures the lease table storage
		Table TableConfig

		// AuditPath is the path of the audit log
		AuditPath string

		// Source is the Leasefile the configuration has been loaded
		// from. It is empty for the default configuration
		Source string

		finishers []FinishFunc
	}
)

// Default returns the configuration used without a Leasefile
func Default() *Config {
	return &Config{
		Name: DefaultInstance,
		Table: TableConfig{
			Driver: DefaultTableDriver,
			Args: map[string][]string{
				storage.ArgsKey: {DefaultTablePath},
			},
		},
		AuditPath: DefaultAuditPath,
	}
}

// OnFinish registers fn to be called at the end of a successful
// invocation
func (cfg *Config) OnFinish(fn FinishFunc) {
	cfg.finishers = append(cfg.finishers, fn)
}

// Finishers returns all functions registered with OnFinish
func (cfg *Config) Finishers() []FinishFunc {
	return cfg.finishers
}

// OpenStorage opens the configured lease table storage
func (cfg *Config) OpenStorage() (storage.TableStorage, error) {
	return storage.Open(cfg.Table.Driver, cfg.Table.Args)
}
