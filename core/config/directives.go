package config

import (
	"fmt"

	"github.com/caddyserver/caddy"
)

// SetupFunc parses all occurrences of a directive and applies them to cfg
type SetupFunc func(c *caddy.Controller, cfg *Config) error

// Directives lists all Leasefile directives in the order they are executed
var Directives = []string{
	"log",
	"table",
	"audit",
	"metrics",
	"mqtt",
	"gotify",
	"lua",
}

var setupFuncs = map[string]SetupFunc{}

// RegisterDirective registers the setup function of a directive. It panics
// if name is not listed in Directives or already registered
func RegisterDirective(name string, fn SetupFunc) {
	known := false
	for _, d := range Directives {
		if d == name {
			known = true
			break
		}
	}
	if !known {
		panic(fmt.Sprintf("directive %q is not listed in config.Directives", name))
	}

	if _, ok := setupFuncs[name]; ok {
		panic(fmt.Sprintf("directive %q already registered", name))
	}

	setupFuncs[name] = fn
}
