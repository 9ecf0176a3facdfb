// Package roles holds the per-deployment role registry: the closed set of
// role values a membership can carry, their display metadata, and the
// priority order used for member listings.
package roles

import (
	"fmt"
	"strings"
)

// Definition is one configured role.
type Definition struct {
	Value string // stored on memberships and invites, e.g. "admin"
	Label string // display label, e.g. "Administrator"
	Color string // display hint for clients, e.g. "danger" or "#f59e0b"
}

// Registry is an immutable lookup built once at startup from configuration.
// Role values are compared case-sensitively; configuration is expected to
// use lower-case values.
type Registry struct {
	defs  map[string]Definition
	order []string // definition order, used by Options
	rank  map[string]int

	owner       string
	defaultRole string
}

// New builds a registry from definitions, a priority order, the owner role
// and the default role. The owner and default roles must be defined; priority
// entries that name undefined roles are rejected. Roles left out of the
// priority list sort after every listed role.
func New(defs []Definition, priority []string, owner, defaultRole string) (*Registry, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("roles: no role definitions configured")
	}

	r := &Registry{
		defs:        make(map[string]Definition, len(defs)),
		rank:        make(map[string]int, len(priority)),
		owner:       owner,
		defaultRole: defaultRole,
	}

	for _, d := range defs {
		if d.Value == "" {
			return nil, fmt.Errorf("roles: definition with empty value")
		}
		if _, dup := r.defs[d.Value]; dup {
			return nil, fmt.Errorf("roles: duplicate definition %q", d.Value)
		}
		r.defs[d.Value] = d
		r.order = append(r.order, d.Value)
	}

	for i, v := range priority {
		if _, ok := r.defs[v]; !ok {
			return nil, fmt.Errorf("roles: priority entry %q is not a defined role", v)
		}
		if _, dup := r.rank[v]; dup {
			return nil, fmt.Errorf("roles: duplicate priority entry %q", v)
		}
		r.rank[v] = i
	}

	if !r.Valid(owner) {
		return nil, fmt.Errorf("roles: owner role %q is not a defined role", owner)
	}
	if !r.Valid(defaultRole) {
		return nil, fmt.Errorf("roles: default role %q is not a defined role", defaultRole)
	}

	return r, nil
}

// Valid reports whether value names a defined role.
func (r *Registry) Valid(value string) bool {
	_, ok := r.defs[value]
	return ok
}

// OwnerRole returns the role value reserved for tenant owners.
func (r *Registry) OwnerRole() string { return r.owner }

// DefaultRole returns the role assigned when an invite carries none.
func (r *Registry) DefaultRole() string { return r.defaultRole }

// Label returns the display label for a role, falling back to the raw value
// for roles no longer defined (old rows can outlive a config change).
func (r *Registry) Label(value string) string {
	if d, ok := r.defs[value]; ok && d.Label != "" {
		return d.Label
	}
	return value
}

// Color returns the display color hint for a role, or "" if none configured.
func (r *Registry) Color(value string) string {
	return r.defs[value].Color
}

// Options returns all definitions in configuration order, for clients
// building role pickers.
func (r *Registry) Options() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, v := range r.order {
		out = append(out, r.defs[v])
	}
	return out
}

// PriorityIndex returns the sort rank of a role. Roles missing from the
// priority list all share a rank after every listed role, so the name
// tie-break in Compare keeps their order deterministic.
func (r *Registry) PriorityIndex(value string) int {
	if i, ok := r.rank[value]; ok {
		return i
	}
	return len(r.rank)
}

// Compare orders two role values by priority rank, then by value name.
// Returns -1, 0 or 1 in the manner of strings.Compare.
func (r *Registry) Compare(a, b string) int {
	ra, rb := r.PriorityIndex(a), r.PriorityIndex(b)
	switch {
	case ra < rb:
		return -1
	case ra > rb:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

// ParseDefinitions parses the "value:label:color" comma-separated form used
// in configuration, e.g. "owner:Owner:warning,admin:Admin:danger". Label and
// color are optional.
func ParseDefinitions(s string) ([]Definition, error) {
	var defs []Definition
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		fields := strings.SplitN(part, ":", 3)
		d := Definition{Value: strings.TrimSpace(fields[0])}
		if d.Value == "" {
			return nil, fmt.Errorf("roles: empty role value in %q", part)
		}
		if len(fields) > 1 {
			d.Label = strings.TrimSpace(fields[1])
		}
		if len(fields) > 2 {
			d.Color = strings.TrimSpace(fields[2])
		}
		defs = append(defs, d)
	}

	if len(defs) == 0 {
		return nil, fmt.Errorf("roles: no role definitions in %q", s)
	}
	return defs, nil
}
