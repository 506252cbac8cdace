package rules

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a rule from its configured parameters. Missing parameters
// take the rule's defaults; invalid ones are an error.
type Factory func(params Params) (Validator, error)

var (
	catalog   = make(map[string]Factory)
	catalogMu sync.RWMutex
)

// RegisterFactory adds a rule factory to the catalog under name.
// Panics if a factory with the same name is already registered.
func RegisterFactory(name string, f Factory) {
	catalogMu.Lock()
	defer catalogMu.Unlock()

	if _, exists := catalog[name]; exists {
		panic(fmt.Sprintf("rule already registered: %s", name))
	}
	catalog[name] = f
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, bool) {
	catalogMu.RLock()
	defer catalogMu.RUnlock()

	f, ok := catalog[name]
	return f, ok
}

// Names returns every registered rule name, sorted.
func Names() []string {
	catalogMu.RLock()
	defer catalogMu.RUnlock()

	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build looks up name and builds the rule with params.
func Build(name string, params Params) (Validator, error) {
	f, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown rule %q", name)
	}
	v, err := f(params)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", name, err)
	}
	return v, nil
}
