package drivers

import (
	// import all supported drivers
	_ "github.com/nextdhcp/leasehook/core/lease/storage/drivers/bolt"
	_ "github.com/nextdhcp/leasehook/core/lease/storage/drivers/file"
	_ "github.com/nextdhcp/leasehook/core/lease/storage/drivers/memory"
)
