package test

import (
	"testing"

	"github.com/caddyserver/caddy"
	"github.com/nextdhcp/leasehook/core/config"
)

// CreateTestBed creates a new caddy.Controller that is configured for
// testing the setup and configuration of plugins together with the default
// configuration the directive is applied to
func CreateTestBed(t *testing.T, input string) (*caddy.Controller, *config.Config) {
	t.Helper()

	ctrl := caddy.NewTestController("leasehook", input)
	ctrl.Key = "test-instance"

	cfg := config.Default()
	cfg.Name = ctrl.Key

	return ctrl, cfg
}
