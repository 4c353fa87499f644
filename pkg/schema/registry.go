package schema

import (
	"fmt"
	"sort"
	"sync"
)

// Registry resolves (subsystem, item) pairs to Descriptors. It is built
// once at process start and safe for concurrent use.
type Registry struct {
	byKey      map[string]*Descriptor
	subsystems []string
	bySub      map[string][]*Descriptor
}

func key(subsystem, item string) string {
	return subsystem + "." + item
}

// NewRegistry builds a registry from a descriptor table.
// Duplicate (subsystem, item) pairs panic: the table is a compile-time
// artifact and duplicates are programming errors.
func NewRegistry(table []Descriptor) *Registry {
	r := &Registry{
		byKey: make(map[string]*Descriptor, len(table)),
		bySub: make(map[string][]*Descriptor),
	}
	for i := range table {
		d := &table[i]
		k := key(d.Subsystem, d.Item)
		if _, dup := r.byKey[k]; dup {
			panic(fmt.Sprintf("schema: duplicate capability %s", k))
		}
		r.byKey[k] = d
		if _, seen := r.bySub[d.Subsystem]; !seen {
			r.subsystems = append(r.subsystems, d.Subsystem)
		}
		r.bySub[d.Subsystem] = append(r.bySub[d.Subsystem], d)
	}
	sort.Strings(r.subsystems)
	return r
}

// Lookup returns the descriptor for (subsystem, item) or
// ErrUnknownCapability.
func (r *Registry) Lookup(subsystem, item string) (*Descriptor, error) {
	d, ok := r.byKey[key(subsystem, item)]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownCapability, subsystem, item)
	}
	return d, nil
}

// Subsystems returns the subsystem names in sorted order.
func (r *Registry) Subsystems() []string {
	out := make([]string, len(r.subsystems))
	copy(out, r.subsystems)
	return out
}

// Items returns the descriptors of a subsystem in table order, or nil
// for an unknown subsystem.
func (r *Registry) Items(subsystem string) []*Descriptor {
	items := r.bySub[subsystem]
	out := make([]*Descriptor, len(items))
	copy(out, items)
	return out
}

// Len returns the number of capabilities in the registry.
func (r *Registry) Len() int {
	return len(r.byKey)
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the process-wide registry built from the pinned
// capability table. Both client and server use this same table; there
// is no capability negotiation over the wire.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultReg = NewRegistry(capabilityTable())
	})
	return defaultReg
}
