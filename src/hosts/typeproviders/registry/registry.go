// Package registry loads type provider manifests and answers documentation queries about the
// types they provide.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Manifest describes one type provider.
type Manifest struct {
	Name      string `yaml:"name"`
	Namespace string `yaml:"namespace"`
	Types     []Type `yaml:"types"`
}

// Type is a provided type.
type Type struct {
	Name    string   `yaml:"name"`
	Doc     string   `yaml:"doc"`
	Members []Member `yaml:"members"`
}

// Member is a member of a provided type.
type Member struct {
	Name string `yaml:"name"`
	Doc  string `yaml:"doc"`
}

// Registry is the set of loaded providers, keyed by manifest file.
type Registry struct {
	mu    sync.RWMutex
	files map[string]Manifest
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{files: make(map[string]Manifest)}
}

// LoadDir loads every *.yaml manifest in dir. Broken manifests are skipped and reported together.
func (r *Registry) LoadDir(dir string) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return err
	}
	var errs error
	for _, p := range paths {
		if _, err := r.LoadFile(p); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// LoadFile (re)loads one manifest and returns it.
func (r *Registry) LoadFile(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decoding manifest %q: %w", path, err)
	}
	if m.Name == "" {
		return Manifest{}, fmt.Errorf("manifest %q: missing field name", path)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[filepath.Clean(path)] = m
	return m, nil
}

// Remove forgets the manifest loaded from path and returns it.
func (r *Registry) Remove(path string) (Manifest, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	path = filepath.Clean(path)
	m, ok := r.files[path]
	delete(r.files, path)
	return m, ok
}

// Manifest returns the manifest loaded from path.
func (r *Registry) Manifest(path string) (Manifest, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.files[filepath.Clean(path)]
	return m, ok
}

// Providers returns the loaded manifests sorted by name.
func (r *Registry) Providers() []Manifest {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Manifest, 0, len(r.files))
	for _, m := range r.files {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Resolve finds the documentation of the symbol named by a qualifier chain and an identifier,
// e.g. ["Data", "CsvProvider"] and "Load". The chain may or may not start with the namespace.
func (r *Registry) Resolve(names []string, identifier string) (string, bool) {
	want := strings.Join(append(append([]string(nil), names...), identifier), ".")

	for _, m := range r.Providers() {
		for _, t := range m.Types {
			for _, prefix := range qualified(m.Namespace, t.Name) {
				if want == prefix {
					return t.Doc, t.Doc != ""
				}
				for _, member := range t.Members {
					if want == prefix+"."+member.Name {
						return member.Doc, member.Doc != ""
					}
				}
			}
		}
	}
	return "", false
}

func qualified(namespace, name string) []string {
	out := []string{name}
	if namespace == "" {
		return out
	}
	parts := strings.Split(namespace, ".")
	for i := len(parts) - 1; i >= 0; i-- {
		out = append(out, strings.Join(parts[i:], ".")+"."+name)
	}
	return out
}
