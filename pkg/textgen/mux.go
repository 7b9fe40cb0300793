package textgen

import (
	"fmt"
	"slices"
	"sync"
)

// DefaultMux is the registry a Loader without a Mux registers into.
var DefaultMux = NewMux()

// Mux maps model names (e.g. "reviewer/gpt") to generators.
type Mux struct {
	mu   sync.RWMutex
	gens map[string]Generator
}

func NewMux() *Mux {
	return &Mux{gens: make(map[string]Generator)}
}

// Handle registers a generator for name.
// Returns an error if a generator is already registered for name.
func (m *Mux) Handle(name string, gen Generator) error {
	if name == "" {
		return fmt.Errorf("textgen: empty generator name")
	}
	if gen == nil {
		return fmt.Errorf("textgen: nil generator for %s", name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.gens[name]; ok {
		return fmt.Errorf("textgen: generator already registered for %s", name)
	}
	m.gens[name] = gen
	return nil
}

func (m *Mux) Get(name string) (Generator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	gen, ok := m.gens[name]
	if !ok {
		return nil, fmt.Errorf("textgen: generator not found for %s", name)
	}
	return gen, nil
}

// Names returns the registered names in sorted order.
func (m *Mux) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.gens))
	for name := range m.gens {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
