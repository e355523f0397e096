package topic

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Key is a hierarchical path naming a datum in the store, e.g.
// "sensors/room1/temperature". Each section carries a precomputed ID.
// Key holds a slice, so it cannot be compared with == or used as a
// map key; its String form serves that purpose.
type Key struct {
	sections []section
}

type section struct {
	name string
	id   uint64
}

func sectionID(name string) uint64 {
	return xxhash.Sum64String(name)
}

// Parse splits a "/"-separated display string into a Key. Empty
// segments (leading, trailing, or repeated slashes) are discarded.
func Parse(s string) Key {
	parts := strings.Split(s, "/")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		names = append(names, p)
	}
	return FromNames(names...)
}

// FromNames builds a Key from an explicit section-name sequence, again
// discarding any empty names.
func FromNames(names ...string) Key {
	sections := make([]section, 0, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		sections = append(sections, section{name: n, id: sectionID(n)})
	}
	return Key{sections: sections}
}

// Root returns the empty key, the ancestor of every other key.
func Root() Key {
	return Key{}
}

// Empty reports whether the key has no sections.
func (k Key) Empty() bool {
	return len(k.sections) == 0
}

// Len returns the number of sections in the key.
func (k Key) Len() int {
	return len(k.sections)
}

// Names returns the display names of every section, in order.
func (k Key) Names() []string {
	out := make([]string, len(k.sections))
	for i, s := range k.sections {
		out[i] = s.name
	}
	return out
}

// Last returns the display name of the final section, or "" if empty.
func (k Key) Last() string {
	if len(k.sections) == 0 {
		return ""
	}
	return k.sections[len(k.sections)-1].name
}

// String renders the key as a "/"-joined display path. It round-trips
// through Parse for any key with no empty sections.
func (k Key) String() string {
	return strings.Join(k.Names(), "/")
}

// ID returns a single aggregate hash over the key's section IDs,
// suitable as a cache key. It is stable within and across processes
// for a given display string, but should not be transmitted in place
// of the display string — see the package doc.
func (k Key) ID() uint64 {
	h := xxhash.New()
	var buf [8]byte
	for _, s := range k.sections {
		putUint64(buf[:], s.id)
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// Equal compares two keys by their section-ID sequence.
func (k Key) Equal(other Key) bool {
	if len(k.sections) != len(other.sections) {
		return false
	}
	for i := range k.sections {
		if k.sections[i].id != other.sections[i].id {
			return false
		}
	}
	return true
}

// Less provides a total order over keys (by section ID, then length),
// usable for deterministic iteration and sorted output.
func (k Key) Less(other Key) bool {
	n := len(k.sections)
	if len(other.sections) < n {
		n = len(other.sections)
	}
	for i := 0; i < n; i++ {
		if k.sections[i].id != other.sections[i].id {
			return k.sections[i].id < other.sections[i].id
		}
	}
	return len(k.sections) < len(other.sections)
}

// IsChildOf reports whether k is equal to or nested under parent: k
// has at least as many sections as parent, and every parent section
// equals the corresponding prefix section of k.
func (k Key) IsChildOf(parent Key) bool {
	if len(k.sections) < len(parent.sections) {
		return false
	}
	for i, s := range parent.sections {
		if k.sections[i].id != s.id {
			return false
		}
	}
	return true
}

// IsParentOf is the converse of IsChildOf.
func (k Key) IsParentOf(child Key) bool {
	return child.IsChildOf(k)
}

// Matches reports whether k and other are in a prefix relationship in
// either direction, including equality.
func (k Key) Matches(other Key) bool {
	return k.IsChildOf(other) || other.IsChildOf(k)
}

// Child returns a new key with one additional trailing section. An
// empty name is a no-op.
func (k Key) Child(name string) Key {
	if name == "" {
		return k
	}
	out := make([]section, len(k.sections), len(k.sections)+1)
	copy(out, k.sections)
	out = append(out, section{name: name, id: sectionID(name)})
	return Key{sections: out}
}

// ChildIndex appends a decimal-index section, used by the flatten
// codec to address list/tuple elements.
func (k Key) ChildIndex(i int) Key {
	return k.Child(strconv.Itoa(i))
}

// AddPrefix returns a new key with prefix's sections placed before k's.
func (k Key) AddPrefix(prefix Key) Key {
	out := make([]section, 0, len(prefix.sections)+len(k.sections))
	out = append(out, prefix.sections...)
	out = append(out, k.sections...)
	return Key{sections: out}
}

// AddSuffix returns a new key with suffix's sections appended after k's.
func (k Key) AddSuffix(suffix Key) Key {
	out := make([]section, 0, len(k.sections)+len(suffix.sections))
	out = append(out, k.sections...)
	out = append(out, suffix.sections...)
	return Key{sections: out}
}

// RemovePrefix strips prefix from the front of k, returning the
// remainder and true if k.IsChildOf(prefix); otherwise returns the
// zero Key and false.
func (k Key) RemovePrefix(prefix Key) (Key, bool) {
	if !k.IsChildOf(prefix) {
		return Key{}, false
	}
	rest := make([]section, len(k.sections)-len(prefix.sections))
	copy(rest, k.sections[len(prefix.sections):])
	return Key{sections: rest}, true
}

// RemoveSuffix strips suffix from the back of k, returning the
// remainder and true if k ends with exactly suffix's sections.
func (k Key) RemoveSuffix(suffix Key) (Key, bool) {
	n := len(k.sections)
	m := len(suffix.sections)
	if m > n {
		return Key{}, false
	}
	for i := 0; i < m; i++ {
		if k.sections[n-m+i].id != suffix.sections[i].id {
			return Key{}, false
		}
	}
	rest := make([]section, n-m)
	copy(rest, k.sections[:n-m])
	return Key{sections: rest}, true
}
