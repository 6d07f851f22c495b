package file

import (
	"fmt"
	"time"

	"github.com/nextdhcp/leasehook/core/lease/storage"
)

func init() {
	storage.MustRegister("file", storageFactory)
}

func storageFactory(arguments map[string][]string) (storage.TableStorage, error) {
	path, err := storage.SingleArg(arguments, "file")
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = DefaultPath
	}

	s := New(path)

	if values, ok := arguments["retry"]; ok {
		if len(values) != 1 {
			return nil, fmt.Errorf("only one retry interval can be configured")
		}

		d, err := time.ParseDuration(values[0])
		if err != nil {
			return nil, fmt.Errorf("invalid retry interval: %w", err)
		}
		s.retryDelay = d
	}

	return s, nil
}
