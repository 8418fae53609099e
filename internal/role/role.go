// Package role defines canonical organization role identifiers.
//
// Roles arrive from several places (identity provider claims such as
// "org:admin", workflow templates, configuration) and were historically
// compared as raw strings. A [Role] can only be built through [Parse], which
// canonicalizes the identifier, so two roles compare equal exactly when they
// name the same organization role:
//
//   - surrounding whitespace is trimmed
//   - the identifier is lower-cased
//   - a single "org:" namespace prefix is stripped
//
// The resulting name must match [a-z][a-z0-9_-]*. Role matching is exact on
// the canonical name; there is no role hierarchy.
package role

import (
	"fmt"
	"regexp"
	"strings"
)

// Prefix is the namespace prefix used by the identity provider for organization roles.
const Prefix = "org:"

// Well-known roles.
var (
	Member    = Role{name: "member"}
	Admin     = Role{name: "admin"}
	Publisher = Role{name: "publisher"}
)

var nameRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// Role is a canonical organization role. The zero value is the empty role,
// which never equals a parsed role.
type Role struct {
	name string
}

// Parse canonicalizes s into a Role.
func Parse(s string) (Role, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, Prefix)
	if !nameRegex.MatchString(name) {
		return Role{}, fmt.Errorf("invalid role %q", s)
	}
	return Role{name: name}, nil
}

// MustParse is like Parse but panics on invalid input. Intended for constants and tests.
func MustParse(s string) Role {
	r, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return r
}

// String returns the canonical name.
func (r Role) String() string {
	return r.name
}

// IsZero reports whether r is the empty role.
func (r Role) IsZero() bool {
	return r.name == ""
}

// Equal reports whether r and other name the same role. The empty role equals nothing.
func (r Role) Equal(other Role) bool {
	return r.name != "" && r.name == other.name
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Set is an ordered collection of distinct roles.
type Set []Role

// ParseSet parses every entry of names, dropping duplicates while keeping first-seen order.
func ParseSet(names []string) (Set, error) {
	var set Set
	for _, n := range names {
		r, err := Parse(n)
		if err != nil {
			return nil, err
		}
		if !set.Contains(r) {
			set = append(set, r)
		}
	}
	return set, nil
}

// Contains reports whether r is in the set.
func (s Set) Contains(r Role) bool {
	for _, candidate := range s {
		if candidate.Equal(r) {
			return true
		}
	}
	return false
}

// Strings returns the canonical names in order.
func (s Set) Strings() []string {
	out := make([]string, len(s))
	for i, r := range s {
		out[i] = r.name
	}
	return out
}
