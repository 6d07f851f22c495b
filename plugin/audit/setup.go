package audit

import (
	"github.com/caddyserver/caddy"
	"github.com/nextdhcp/leasehook/core/config"
)

func init() {
	config.RegisterDirective("audit", setupAudit)
}

// setupAudit parses
//
//	audit <path>
func setupAudit(c *caddy.Controller, cfg *config.Config) error {
	c.Next()

	if !c.NextArg() {
		return c.ArgErr()
	}
	path := c.Val()

	if c.NextArg() {
		return c.ArgErr()
	}

	if c.Next() {
		return c.SyntaxErr("invalid token or multiple \"audit\" configurations")
	}

	cfg.AuditPath = path
	return nil
}
