package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/caddyserver/caddy"
	"github.com/caddyserver/caddy/caddyfile"
)

// DefaultPath is the Leasefile read if no other file has been requested
const DefaultPath = "/etc/leasehook/Leasefile"

// ErrNoDirective is returned if a Leasefile uses a directive whose plugin
// has not been linked into the binary
var ErrNoDirective = errors.New("directive not available")

// Load reads the Leasefile at path. If path does not exist and explicit is
// false the default configuration is returned
func Load(path string, explicit bool) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read Leasefile: %w", err)
	}

	cfg, err := Parse(path, bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	cfg.Source = path
	return cfg, nil
}

// Parse parses a Leasefile and executes its directives
func Parse(filename string, input io.Reader) (*Config, error) {
	blocks, err := caddyfile.Parse(filename, input, Directives)
	if err != nil {
		return nil, err
	}

	cfg := Default()

	switch len(blocks) {
	case 0:
		return cfg, nil
	case 1:
	default:
		return nil, fmt.Errorf("%s: expected a single block but found %d", filename, len(blocks))
	}

	block := blocks[0]
	if len(block.Keys) != 1 {
		return nil, fmt.Errorf("%s: expected a single instance name but found %v", filename, block.Keys)
	}
	cfg.Name = block.Keys[0]

	for _, dir := range Directives {
		tokens, ok := block.Tokens[dir]
		if !ok {
			continue
		}

		setup, ok := setupFuncs[dir]
		if !ok {
			return nil, fmt.Errorf("%s: %w: %s", filename, ErrNoDirective, dir)
		}

		c := &caddy.Controller{
			Dispenser: caddyfile.NewDispenserTokens(filename, tokens),
			Key:       cfg.Name,
		}

		if err := setup(c, cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}
