package persona

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultLibrary []byte

// File is the on-disk layout of a library.
type File struct {
	// Default names the script used when none is requested. The first
	// script is used when empty.
	Default string   `yaml:"default,omitempty"`
	Scripts []Config `yaml:"scripts"`
}

// Library is a set of compiled scripts keyed by name.
type Library struct {
	def     string
	names   []string
	scripts map[string]*Script
}

// Parse decodes and compiles a library. Unknown keys are rejected.
func Parse(data []byte) (*Library, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("persona: empty library")
		}
		return nil, fmt.Errorf("persona: decode library: %w", err)
	}
	return NewLibrary(f)
}

// NewLibrary compiles every script in f.
func NewLibrary(f File) (*Library, error) {
	if len(f.Scripts) == 0 {
		return nil, errors.New("persona: library has no scripts")
	}
	l := &Library{scripts: make(map[string]*Script, len(f.Scripts))}
	for _, cfg := range f.Scripts {
		s, err := Compile(cfg)
		if err != nil {
			return nil, err
		}
		if _, dup := l.scripts[s.Name()]; dup {
			return nil, fmt.Errorf("persona: duplicate script %q", s.Name())
		}
		l.scripts[s.Name()] = s
		l.names = append(l.names, s.Name())
	}
	l.def = f.Default
	if l.def == "" {
		l.def = l.names[0]
	}
	if _, ok := l.scripts[l.def]; !ok {
		return nil, fmt.Errorf("persona: default script %q is not defined", l.def)
	}
	return l, nil
}

// Load reads a library file.
func Load(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("persona: %w", err)
	}
	l, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

var builtin = sync.OnceValues(func() (*Library, error) {
	return Parse(defaultLibrary)
})

// Default returns the embedded library. It panics if the embedded file is
// broken, which tests catch.
func Default() *Library {
	l, err := builtin()
	if err != nil {
		panic(err)
	}
	return l
}

// Get returns the named script; an empty name selects the default.
func (l *Library) Get(name string) (*Script, error) {
	if name == "" {
		name = l.def
	}
	s, ok := l.scripts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return s, nil
}

// Names lists scripts in file order.
func (l *Library) Names() []string {
	return slices.Clone(l.names)
}

// DefaultName is the script Get("") returns.
func (l *Library) DefaultName() string {
	return l.def
}
