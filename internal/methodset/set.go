// Package methodset implements the method-set type lattice: a type is
// the set of method names a value is known to support, satisfaction is
// set inclusion, and intersection/union types compose by set algebra.
package methodset

import (
	"sort"
	"strings"
)

// Set is an immutable, deduplicated set of method names. The zero
// value is the empty set (the top type — every value satisfies it).
// Names are kept sorted so equal sets compare and print identically.
type Set struct {
	names []string
}

// New builds a Set from names, deduplicating and sorting.
func New(names ...string) Set {
	if len(names) == 0 {
		return Set{}
	}
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return Set{names: out}
}

// Names returns the sorted member names. The returned slice is a copy.
func (s Set) Names() []string {
	if len(s.names) == 0 {
		return nil
	}
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of names in the set.
func (s Set) Len() int { return len(s.names) }

// IsEmpty reports whether the set has no names.
func (s Set) IsEmpty() bool { return len(s.names) == 0 }

// Has reports whether name is a member.
func (s Set) Has(name string) bool {
	i := sort.SearchStrings(s.names, name)
	return i < len(s.names) && s.names[i] == name
}

// Equal reports set equality: two method-set types are the same type
// iff their name sets are equal.
func (s Set) Equal(other Set) bool {
	if len(s.names) != len(other.names) {
		return false
	}
	for i, n := range s.names {
		if other.names[i] != n {
			return false
		}
	}
	return true
}

// Satisfies reports whether a value of type s can be used where
// required is expected: required's names must be a subset of s's.
// Reflexive and transitive; the subtype relation of the lattice.
func (s Set) Satisfies(required Set) bool {
	return required.Missing(s).IsEmpty()
}

// Missing returns the members of s that candidate lacks. For a failed
// check this is exactly the missing-name set reported to the user.
func (s Set) Missing(candidate Set) Set {
	var out []string
	for _, n := range s.names {
		if !candidate.Has(n) {
			out = append(out, n)
		}
	}
	return Set{names: out} // already sorted, already unique
}

// Intersect composes two requirements into "needs both": the result
// requires every name from either operand. An intersection type's
// available methods are those present on any member, so a value must
// supply all of them.
func Intersect(a, b Set) Set {
	if a.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return a
	}
	merged := make([]string, 0, len(a.names)+len(b.names))
	merged = append(merged, a.names...)
	merged = append(merged, b.names...)
	return New(merged...)
}

// UnionType composes the type of a value that may be either operand:
// only the names common to both branches are guaranteed, so the
// result is the name-set intersection. String|Int exposes only what
// both support.
func UnionType(a, b Set) Set {
	var out []string
	for _, n := range a.names {
		if b.Has(n) {
			out = append(out, n)
		}
	}
	return Set{names: out}
}

// Key returns a canonical string key for the set, usable as a cache
// key: structural equality of sets implies key equality.
func (s Set) Key() string {
	return strings.Join(s.names, "\x00")
}

// String renders the set as {a, b, c} for diagnostics.
func (s Set) String() string {
	return "{" + strings.Join(s.names, ", ") + "}"
}
