// Package translit turns Braille cell sequences into text. Tables live in
// subpackages that register themselves from init; import them for side
// effect.
package translit

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"braillekbd/braille"
)

// Transliterator converts cells to text for one language table
type Transliterator interface {
	// Name returns the unique identifier used in config (e.g. "en")
	Name() string

	// Description returns a human-readable description
	Description() string

	// Translate returns the text for cells, or false if any cell has no
	// meaning in this table
	Translate(cells []braille.Cell) (string, bool)
}

var (
	registry = make(map[string]Transliterator)
	mu       sync.RWMutex
)

// Register adds a transliterator to the registry
func Register(t Transliterator) error {
	mu.Lock()
	defer mu.Unlock()

	name := strings.ToLower(t.Name())
	if _, exists := registry[name]; exists {
		return fmt.Errorf("transliterator %q already registered", name)
	}

	registry[name] = t
	return nil
}

// MustRegister registers t and panics on error. Intended for init().
func MustRegister(t Transliterator) {
	if err := Register(t); err != nil {
		panic(err)
	}
}

// Get retrieves a transliterator by name (case-insensitive)
func Get(name string) (Transliterator, error) {
	mu.RLock()
	defer mu.RUnlock()

	t, exists := registry[strings.ToLower(name)]
	if !exists {
		return nil, fmt.Errorf("unknown transliterator: %s", name)
	}
	return t, nil
}

// Translate looks up name and runs it over cells
func Translate(name string, cells []braille.Cell) (string, bool, error) {
	t, err := Get(name)
	if err != nil {
		return "", false, err
	}
	text, ok := t.Translate(cells)
	return text, ok, nil
}

// List returns all registered names in alphabetical order
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered transliterators
func Count() int {
	mu.RLock()
	defer mu.RUnlock()
	return len(registry)
}

// ForEach calls fn for each registered transliterator in name order
func ForEach(fn func(name string, t Transliterator)) {
	for _, name := range List() {
		t, err := Get(name)
		if err != nil {
			continue
		}
		fn(name, t)
	}
}
