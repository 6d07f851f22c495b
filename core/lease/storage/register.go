package storage

import (
	"errors"
	"fmt"
	"sort"
)

// Factory creates a new TableStorage. Positional arguments of the table
// directive are passed using the "__args__" key
type Factory func(args map[string][]string) (TableStorage, error)

// ArgsKey is the key used for positional driver arguments
const ArgsKey = "__args__"

var registeredFactorys = map[string]Factory{}

// Register registeres a new storage factory
func Register(name string, factory Factory) error {
	if _, ok := registeredFactorys[name]; ok {
		return errors.New("storage driver already registered")
	}

	registeredFactorys[name] = factory
	return nil
}

// MustRegister registeres a new storage factory and panics on error
func MustRegister(name string, factory Factory) {
	if err := Register(name, factory); err != nil {
		panic(err)
	}
}

// Open opens a TableStorage using driver name
func Open(name string, args map[string][]string) (TableStorage, error) {
	factory, ok := registeredFactorys[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, name)
	}

	return factory(args)
}

// Drivers returns the names of all registered drivers
func Drivers() []string {
	names := make([]string, 0, len(registeredFactorys))
	for name := range registeredFactorys {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SingleArg returns the only value configured for key, falling back to the
// first positional argument. An empty string is returned if neither is set
func SingleArg(args map[string][]string, key string) (string, error) {
	if values, ok := args[key]; ok {
		if len(values) != 1 {
			return "", fmt.Errorf("expected exactly one value for %q", key)
		}
		return values[0], nil
	}

	if positional, ok := args[ArgsKey]; ok && len(positional) > 0 {
		if len(positional) > 1 {
			return "", fmt.Errorf("expected at most one argument, got %d", len(positional))
		}
		return positional[0], nil
	}

	return "", nil
}
