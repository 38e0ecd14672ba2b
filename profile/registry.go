package profile

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/go-viper/mapstructure/v2"
)

// Registry holds named profiles for lookup at configure time. It is
// populated at startup and read-mostly afterwards; the lock only
// guards the name map, never the immutable profiles themselves.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{profiles: make(map[string]*Profile)}
}

// Register adds a built profile, replacing any previous profile of
// the same name.
func (r *Registry) Register(p *Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.ProfileName()] = p
}

// Get returns the named profile or an error wrapping
// [ErrUnknownProfile].
func (r *Registry) Get(name string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}

	return p, nil
}

// Names returns the registered profile names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}

// entry is the decode target for one raw registry record.
type entry struct {
	Name       string     `mapstructure:"name"`
	Definition Definition `mapstructure:",squash"`
}

// Load decodes and registers a batch of already-parsed profile
// records, as produced by any config front end that yields
// map[string]any (JSON, TOML, YAML). Each record needs a "name" plus
// the Definition fields. All records are validated before any is
// registered, so a bad batch never partially loads; validation
// failures are joined and returned together.
func (r *Registry) Load(records []map[string]any) error {
	built := make([]*Profile, 0, len(records))
	var errs []error

	for i, record := range records {
		var e entry
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &e,
			WeaklyTypedInput: true,
			ErrorUnused:      true,
		})
		if err != nil {
			return fmt.Errorf("building decoder: %w", err)
		}
		if err := dec.Decode(record); err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}

		p, err := Build(e.Name, e.Definition)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}

		built = append(built, p)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	for _, p := range built {
		r.Register(p)
	}

	return nil
}
