package memory

import "github.com/nextdhcp/leasehook/core/lease/storage"

func init() {
	storage.MustRegister("memory", func(_ map[string][]string) (storage.TableStorage, error) {
		memory := makeStorage()
		return memory, nil
	})
}
