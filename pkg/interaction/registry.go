package interaction

import (
	"errors"
	"fmt"
	"iter"
	"strings"
)

// ErrNotFound is returned by Registry.Get for blank or unknown ids.
var ErrNotFound = errors.New("interaction not found")

// Registry is the merged, read-only table of interactions for one session.
// It is populated only by Builder; once returned it is safe for concurrent reads.
type Registry struct {
	byID  map[string]*Interaction
	order []string
}

func newRegistry() *Registry {
	return &Registry{byID: make(map[string]*Interaction)}
}

// put inserts or overwrites an interaction, reporting whether the id was
// already present. Overwrites keep the original position.
func (r *Registry) put(in *Interaction) bool {
	if _, exists := r.byID[in.ID]; exists {
		r.byID[in.ID] = in
		return true
	}
	r.byID[in.ID] = in
	r.order = append(r.order, in.ID)
	return false
}

// Get returns the interaction with the exact id.
func (r *Registry) Get(id string) (*Interaction, error) {
	if r == nil || strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: blank id", ErrNotFound)
	}
	in, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return in, nil
}

// Len returns the number of interactions.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// All yields interactions in merge order.
func (r *Registry) All() iter.Seq[*Interaction] {
	return func(yield func(*Interaction) bool) {
		if r == nil {
			return
		}
		for _, id := range r.order {
			if !yield(r.byID[id]) {
				return
			}
		}
	}
}

// FindByCommandProfile yields, in merge order, every interaction that
// lists tag among its command profiles (case-insensitive).
func (r *Registry) FindByCommandProfile(tag string) iter.Seq[*Interaction] {
	return func(yield func(*Interaction) bool) {
		for in := range r.All() {
			if in.HasCommandProfile(tag) && !yield(in) {
				return
			}
		}
	}
}

// ListAll returns the selection-list entries in merge order.
func (r *Registry) ListAll() []Summary {
	out := make([]Summary, 0, r.Len())
	for in := range r.All() {
		out = append(out, in.Summary())
	}
	return out
}
