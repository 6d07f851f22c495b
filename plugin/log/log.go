package log

import (
	"io"
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/apex/log/handlers/logfmt"
	"github.com/caddyserver/caddy"
	"github.com/mattn/go-isatty"
	"github.com/nextdhcp/leasehook/core/config"
)

func init() {
	config.RegisterDirective("log", setupLogging)
}

// Configure sets the level of the global logger and selects the cli
// handler if out is a terminal and the logfmt handler otherwise
func Configure(out *os.File, level log.Level) {
	log.SetLevel(level)
	log.SetHandler(NewHandler(out, isatty.IsTerminal(out.Fd())))
}

// NewHandler returns the handler used for out
func NewHandler(out io.Writer, terminal bool) log.Handler {
	if terminal {
		return cli.New(out)
	}
	return logfmt.New(out)
}

// setupLogging parses
//
//	log <level>
func setupLogging(c *caddy.Controller, _ *config.Config) error {
	c.Next()

	if !c.NextArg() {
		return c.ArgErr()
	}

	l, err := log.ParseLevel(c.Val())
	if err != nil {
		return c.SyntaxErr(err.Error())
	}

	if c.Next() {
		return c.SyntaxErr("invalid token or multiple \"log\" configurations")
	}

	log.SetLevel(l)
	return nil
}
