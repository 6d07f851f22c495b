package table

import (
	"github.com/caddyserver/caddy"
	"github.com/nextdhcp/leasehook/core/config"
	"github.com/nextdhcp/leasehook/core/lease/storage"
)

func init() {
	config.RegisterDirective("table", parseTableDirective)
}

// parseTableDirective parses
//
//	table <driver> [args...] {
//	    key values...
//	}
func parseTableDirective(c *caddy.Controller, cfg *config.Config) error {
	if !c.Next() {
		return c.ArgErr()
	}

	if !c.NextArg() {
		return c.ArgErr()
	}
	driverName := c.Val()

	if !isRegistered(driverName) {
		return c.Errf("unknown storage driver %q", driverName)
	}

	var options = make(map[string][]string)
	remaining := c.RemainingArgs()
	if len(remaining) > 0 {
		options[storage.ArgsKey] = remaining
	}

	for c.NextBlock() {
		options[c.Val()] = c.RemainingArgs()
	}

	if c.Next() {
		return c.Err("only one table can be configured")
	}

	cfg.Table = config.TableConfig{
		Driver: driverName,
		Args:   options,
	}

	return nil
}

func isRegistered(name string) bool {
	for _, d := range storage.Drivers() {
		if d == name {
			return true
		}
	}
	return false
}
