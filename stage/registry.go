package stage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Mohammedsanin/NeuroBlock/errors"
)

// Descriptor carries catalog metadata for one stage kind: display strings
// for the UI plus the slot the stage occupies in the auto-arranged two-row
// layout (row 0: dataset, preprocess, feature; row 1: split, model, results).
type Descriptor struct {
	Kind        Kind   `json:"kind"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Row         int    `json:"row"`
	Column      int    `json:"column"`
}

// Registry is the stage catalog. Registration is write-once per kind:
// duplicates are rejected so two descriptors can never compete for the
// same canvas slot.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[Kind]Descriptor
}

// NewRegistry creates a new empty stage registry
func NewRegistry() *Registry {
	return &Registry{
		descriptors: make(map[Kind]Descriptor),
	}
}

// Register adds a stage descriptor to the catalog.
// Returns an error if the kind is unknown, the label is empty, or the kind
// is already registered.
func (r *Registry) Register(d Descriptor) error {
	if !d.Kind.Valid() {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrUnknownStage, d.Kind),
			"Registry", "Register", "stage kind validation")
	}
	if d.Label == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"Registry", "Register", "stage label validation")
	}
	if d.Row < 0 || d.Column < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"Registry", "Register", "stage slot validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.descriptors[d.Kind]; exists {
		msg := fmt.Errorf("stage %q is already registered", d.Kind)
		return errors.WrapInvalid(msg, "Registry", "Register", "duplicate stage check")
	}

	r.descriptors[d.Kind] = d
	return nil
}

// Get retrieves the descriptor for a stage kind.
func (r *Registry) Get(kind Kind) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, exists := r.descriptors[kind]
	if !exists {
		return Descriptor{}, errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrUnknownStage, kind),
			"Registry", "Get", "stage lookup")
	}
	return d, nil
}

// Has reports whether kind is registered in the catalog.
func (r *Registry) Has(kind Kind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.descriptors[kind]
	return exists
}

// List returns all registered descriptors in canonical pipeline order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Descriptor, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Kind.Order() < result[j].Kind.Order()
	})
	return result
}

// Count returns the number of registered stages.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.descriptors)
}
