// Package registry is the scope a flow resolves string nodes against.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/flowmanager/pkg/domain"
)

// Entry is a registered node implementation.
type Entry struct {
	ID             string
	Name           string
	Description    string
	Implementation domain.NodeFunc
}

// Descriptor returns the introspection view of the entry.
func (e Entry) Descriptor() domain.Descriptor {
	return domain.Descriptor{
		Kind:        domain.KindReference,
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
	}
}

// Registry indexes entries by the key they were registered under, by id and
// by name. A reference matches its registration key before any id or name.
type Registry struct {
	mu     sync.RWMutex
	exact  map[string]*Entry
	byID   map[string]*Entry
	byName map[string]*Entry
	byPair map[string]*Entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		exact:  make(map[string]*Entry),
		byID:   make(map[string]*Entry),
		byName: make(map[string]*Entry),
		byPair: make(map[string]*Entry),
	}
}

// Register adds an entry. At least one of ID or Name is required.
// Re-registering an id or name overwrites the previous entry for that key.
func (r *Registry) Register(e Entry) error {
	return r.register(e.key(), e)
}

func (r *Registry) register(key string, e Entry) error {
	if e.Implementation == nil {
		return fmt.Errorf("register %q: %w: missing implementation", e.key(), domain.ErrInvalidNode)
	}
	if e.ID == "" && e.Name == "" {
		return fmt.Errorf("register: %w: entry needs an id or a name", domain.ErrInvalidNode)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	entry := e
	r.exact[key] = &entry
	if e.ID != "" {
		r.byID[e.ID] = &entry
	}
	if e.Name != "" {
		r.byName[e.Name] = &entry
	}
	if e.ID != "" && e.Name != "" {
		r.byPair[e.ID+":"+e.Name] = &entry
	}
	return nil
}

// RegisterFunc registers fn under name.
func (r *Registry) RegisterFunc(name string, fn domain.NodeFunc) {
	_ = r.Register(Entry{Name: name, Implementation: fn})
}

// Add registers impl under key, which may be a plain identifier or an "id:name" pair.
// impl is a node function or an Entry whose id/name are filled from key when empty.
func (r *Registry) Add(key string, impl any) error {
	id, name := key, ""
	if i := strings.IndexByte(key, ':'); i >= 0 {
		id, name = key[:i], key[i+1:]
	}

	var e Entry
	switch v := impl.(type) {
	case Entry:
		e = v
	case *Entry:
		if v == nil {
			return fmt.Errorf("register %q: %w: nil entry", key, domain.ErrInvalidNode)
		}
		e = *v
	default:
		fn, ok := domain.AsNodeFunc(impl)
		if !ok {
			return fmt.Errorf("register %q: %w: %T is not a node function", key, domain.ErrInvalidNode, impl)
		}
		e = Entry{Implementation: fn}
	}

	if e.ID == "" && e.Name == "" {
		if name == "" {
			e.Name = id
		} else {
			e.ID, e.Name = id, name
		}
	}
	return r.register(key, e)
}

// Lookup resolves a reference: registration key, then id, then name, then an "id:name" pair.
func (r *Registry) Lookup(ref string) (Entry, bool) {
	if r == nil || ref == "" {
		return Entry{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.exact[ref]; ok {
		return *e, true
	}
	if e, ok := r.byID[ref]; ok {
		return *e, true
	}
	if e, ok := r.byName[ref]; ok {
		return *e, true
	}
	if e, ok := r.byPair[ref]; ok {
		return *e, true
	}
	return Entry{}, false
}

// Execute looks up ref and invokes it.
func (r *Registry) Execute(ctx context.Context, ref string, fc domain.FlowContext, params map[string]any) (any, error) {
	e, ok := r.Lookup(ref)
	if !ok {
		return nil, &domain.ValidationError{Kind: domain.KindReference, Ref: ref, Err: domain.ErrUnresolvedReference}
	}
	return e.Implementation(ctx, fc, params)
}

// Entries lists every distinct entry, ordered by id then name.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	seen := make(map[*Entry]bool)
	var out []Entry
	for _, idx := range []map[string]*Entry{r.exact, r.byID, r.byName} {
		for _, e := range idx {
			if !seen[e] {
				seen[e] = true
				out = append(out, *e)
			}
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (e Entry) key() string {
	if e.ID != "" && e.Name != "" {
		return e.ID + ":" + e.Name
	}
	if e.ID != "" {
		return e.ID
	}
	return e.Name
}
