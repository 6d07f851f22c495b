package core

import (
	// Include all built-in directives
	_ "github.com/nextdhcp/leasehook/plugin/audit"
	_ "github.com/nextdhcp/leasehook/plugin/gotify"
	_ "github.com/nextdhcp/leasehook/plugin/log"
	_ "github.com/nextdhcp/leasehook/plugin/lua"
	_ "github.com/nextdhcp/leasehook/plugin/metrics"
	_ "github.com/nextdhcp/leasehook/plugin/mqtt"
	_ "github.com/nextdhcp/leasehook/plugin/table"

	// And all lease table storage drivers
	_ "github.com/nextdhcp/leasehook/core/lease/storage/drivers"
)
