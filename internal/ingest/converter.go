package ingest

import (
	"sort"
	"sync"

	"github.com/xtxerr/trackside/internal/errors"
)

// Converter normalizes the raw columns of one telemetry format into the
// canonical channel names (time, V, steering, throttle, brake, ax, ay, ...).
// Converters mutate the table in place.
type Converter interface {
	// Name returns the format identifier used for registry lookup.
	Name() string

	// Convert normalizes the table in place.
	Convert(tbl *Table) error
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Converter)
)

// Register adds a converter to the registry, replacing any converter with
// the same name.
func Register(c Converter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[c.Name()] = c
}

// Lookup returns the registered converter for a format name.
func Lookup(name string) (Converter, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	c, ok := registry[name]
	if !ok {
		return nil, errors.Wrapf(errors.ErrUnknownFormat, "'%s'", name)
	}
	return c, nil
}

// Formats returns the registered format names, sorted.
func Formats() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// renameAll applies a rename map; missing source columns are skipped.
func renameAll(tbl *Table, renames map[string]string) {
	for from, to := range renames {
		tbl.Rename(from, to)
	}
}

// requireColumns checks that all named columns are present.
func requireColumns(tbl *Table, names ...string) error {
	v := errors.NewValidationErrors()
	for _, name := range names {
		if !tbl.Has(name) {
			v.AddMissing(name)
		}
	}
	return v.Err()
}
