package leasemain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/apex/log"
	"github.com/nextdhcp/leasehook/core/audit"
	"github.com/nextdhcp/leasehook/core/config"
	"github.com/nextdhcp/leasehook/core/events"
	"github.com/nextdhcp/leasehook/core/lease"
	"github.com/nextdhcp/leasehook/core/lease/storage"
	hookLog "github.com/nextdhcp/leasehook/core/log"
	pluginLog "github.com/nextdhcp/leasehook/plugin/log"
	"github.com/spf13/cobra"

	// Include all directives and storage drivers
	_ "github.com/nextdhcp/leasehook/core"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 127

	// DefaultLockTimeout is the time to wait for the lease table lock
	DefaultLockTimeout = 10 * time.Second
)

// AppName and AppVersion are reported by --version
var (
	AppName    = "leasehook"
	AppVersion = "v0.1.0"
)

// exitError carries the exit code of a failed invocation. If msg is set it
// is printed on stdout
type exitError struct {
	code int
	msg  string
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return e.msg
}

func (e *exitError) Unwrap() error {
	return e.err
}

func usageErr(format string, args ...interface{}) error {
	return &exitError{code: exitUsage, msg: fmt.Sprintf(format, args...)}
}

func failure(err error) error {
	return &exitError{code: exitFailure, err: err}
}

type options struct {
	mac         string
	ip          string
	event       string
	option      string
	conf        string
	lockTimeout time.Duration
}

// Run executes leasehook with the command line arguments of the process
// and exits
func Run() {
	pluginLog.Configure(os.Stderr, log.InfoLevel)

	os.Exit(execute(os.Args[1:], os.Stdout))
}

// execute runs the command line args and returns the exit code
func execute(args []string, stdout io.Writer) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)

	err := cmd.Execute()
	if err == nil {
		return exitOK
	}

	var exit *exitError
	if errors.As(err, &exit) {
		if exit.msg != "" {
			fmt.Fprintln(stdout, exit.msg)
		}
		if exit.err != nil {
			log.Errorf("%s", exit.err)
		}
		return exit.code
	}

	// flag parsing errors
	fmt.Fprintln(stdout, err)
	return exitUsage
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           AppName + " -a <mac> -i <ip> -e <commit|release|expiry> [-o <option>]",
		Short:         "Maintains a lease table from DHCP server events",
		Version:       AppVersion,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ev, err := opts.leaseEvent()
			if err != nil {
				return err
			}

			return process(cmd.Context(), opts, ev)
		},
	}

	flags := root.Flags()
	flags.StringVarP(&opts.mac, "mac-addr", "a", "", "MAC address of the client")
	flags.StringVarP(&opts.ip, "ip", "i", "", "IP address of the client")
	flags.StringVarP(&opts.event, "dhcp-event", "e", "", "DHCP event: commit, release or expiry")
	flags.StringVarP(&opts.option, "option", "o", "", "option string sent by the client, <hostname>_<location>; a hostname containing spaces is rejected")
	flags.DurationVar(&opts.lockTimeout, "lock-timeout", DefaultLockTimeout, "time to wait for the lease table lock")

	root.PersistentFlags().StringVarP(&opts.conf, "conf", "c", "", "Leasefile to load (default \""+config.DefaultPath+"\")")

	root.AddCommand(newListCommand(opts), newEndpointsCommand(opts))

	return root
}

// leaseEvent validates the required flags in the order the operator is
// told about them
func (o *options) leaseEvent() (lease.Event, error) {
	if o.ip == "" {
		return lease.Event{}, usageErr("You have to specify IP address!!!")
	}

	if o.mac == "" {
		return lease.Event{}, usageErr("You have to specify MAC address!!!")
	}

	if o.event == "" {
		return lease.Event{}, usageErr("You have to specify DHCP event type!!!")
	}

	kind, err := lease.ParseKind(o.event)
	if err != nil {
		return lease.Event{}, usageErr("DHCP event %s does not exist.\nPlease use one of the following: commit, release, expiry.", o.event)
	}

	return lease.NewEvent(kind, o.mac, o.ip, o.option), nil
}

func (o *options) loadConfig() (*config.Config, error) {
	if o.conf != "" {
		return config.Load(o.conf, true)
	}
	return config.Load(config.DefaultPath, false)
}

// process applies ev to the configured lease table, records it in the audit
// trail and notifies all registered hooks
func process(ctx context.Context, opts *options, ev lease.Event) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return failure(err)
	}

	l := hookLog.With(hookLog.AddEventFields(ctx, ev), log.WithField("instance", cfg.Name))

	trail, err := audit.Open(cfg.AuditPath)
	if err != nil {
		return &exitError{code: exitUsage, msg: "Cannot create the log file!!!", err: err}
	}
	defer trail.Close()

	store, err := cfg.OpenStorage()
	if err != nil {
		return failure(fmt.Errorf("failed to open lease table: %w", err))
	}

	db := storage.NewDatabase(store).WithLogger(l)
	defer func() {
		if err := db.Close(); err != nil {
			l.Warnf("failed to close lease table: %s", err)
		}
	}()

	applyCtx, cancel := context.WithTimeout(ctx, opts.lockTimeout)
	defer cancel()

	res, err := db.Apply(applyCtx, ev)
	if err != nil {
		return failure(err)
	}

	now := time.Now()

	if err := trail.Record(res); err != nil {
		return failure(fmt.Errorf("failed to write audit log: %w", err))
	}

	events.EmitLeaseEvents(cfg.Name, now, res)

	finishers := cfg.Finishers()
	if len(finishers) == 0 {
		return nil
	}

	table, err := db.Leases(ctx)
	if err != nil {
		l.Warnf("failed to load lease table: %s", err)
	}

	summary := config.Summary{
		Instance: cfg.Name,
		Time:     now,
		Result:   res,
		Table:    table,
	}

	for _, fn := range finishers {
		if err := fn(ctx, summary); err != nil {
			l.Warnf("%s", err)
		}
	}

	return nil
}
