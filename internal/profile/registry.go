package profile

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Registry holds the known profiles and the single active one. The active
// profile is read once per tick, so a swap only affects later ticks.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	active   atomic.Pointer[Profile]
}

// NewRegistry returns a registry seeded with the built-ins, with active set
// as the current profile.
func NewRegistry(active string) (*Registry, error) {
	r := &Registry{profiles: make(map[string]Profile)}
	for _, p := range Builtins() {
		r.profiles[p.Name] = p
	}
	if active == "" {
		active = "default"
	}
	if err := r.Use(active); err != nil {
		return nil, err
	}
	return r, nil
}

// Active returns the current profile.
func (r *Registry) Active() Profile {
	return *r.active.Load()
}

// Use makes name the active profile.
func (r *Registry) Use(name string) error {
	r.mu.RLock()
	p, ok := r.profiles[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown profile %q", name)
	}
	r.active.Store(&p)
	return nil
}

// Register adds or replaces a profile after validating it.
func (r *Registry) Register(p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.profiles[p.Name] = p
	r.mu.Unlock()
	return nil
}

// Get looks up a profile by name.
func (r *Registry) Get(name string) (Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[name]
	return p, ok
}

// Names returns the registered profile names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadFile registers every profile listed in a YAML file. Missing fields
// inherit from the default profile.
func (r *Registry) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read profiles: %w", err)
	}

	var raw struct {
		Profiles []yaml.Node `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return 0, fmt.Errorf("parse profiles: %w", err)
	}

	def := Builtins()[0]
	for i, node := range raw.Profiles {
		p := def
		p.Name = ""
		p.SectorBias = map[string]float64{}
		if err := node.Decode(&p); err != nil {
			return i, fmt.Errorf("decode profile %d: %w", i, err)
		}
		if err := r.Register(p); err != nil {
			return i, err
		}
	}
	return len(raw.Profiles), nil
}
