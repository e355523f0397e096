package flatten

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cuemby/tessera/pkg/topic"
	"github.com/cuemby/tessera/pkg/value"
)

// Map is the flat "TopicKey -> Primitive" mapping that flatten/unflatten
// operate over. It is keyed by the canonical display-path string of a
// topic.Key rather than the Key itself, since Key is not a comparable
// map key (see pkg/topic).
type Map map[string]value.Primitive

// Get returns the primitive stored at exactly key, if any.
func (m Map) Get(key topic.Key) (value.Primitive, bool) {
	p, ok := m[key.String()]
	return p, ok
}

// Set stores v at exactly key, overwriting any existing entry.
func (m Map) Set(key topic.Key, v value.Primitive) {
	m[key.String()] = v
}

// HasUnder reports whether any entry's key equals prefix or is nested
// under it. Used to distinguish Option's "absent" from "present but
// empty".
func (m Map) HasUnder(prefix topic.Key) bool {
	for k := range m {
		if topic.Parse(k).IsChildOf(prefix) {
			return true
		}
	}
	return false
}

// SubMap returns the entries whose key equals prefix or is nested
// under it, with prefix stripped from each key.
func (m Map) SubMap(prefix topic.Key) Map {
	out := make(Map)
	for k, v := range m {
		key := topic.Parse(k)
		if rest, ok := key.RemovePrefix(prefix); ok {
			out[rest.String()] = v
		}
	}
	return out
}

// WithPrefix returns a copy of m with prefix prepended to every key.
func (m Map) WithPrefix(prefix topic.Key) Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[prefix.AddPrefix(topic.Parse(k)).String()] = v
	}
	return out
}

// Merge copies every entry of other into m, overwriting on conflict.
func (m Map) Merge(other Map) {
	for k, v := range other {
		m[k] = v
	}
}

// ImmediateChildNames returns the distinct first-section names of
// every key nested directly or transitively under prefix — i.e. the
// names unflatten needs to enumerate map keys / struct-less dynamic
// children. The result is sorted in ascending string order.
func (m Map) ImmediateChildNames(prefix topic.Key) []string {
	seen := make(map[string]struct{})
	for k := range m {
		key := topic.Parse(k)
		rest, ok := key.RemovePrefix(prefix)
		if !ok || rest.Len() == 0 {
			continue
		}
		seen[rest.Names()[0]] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// ImmediateChildIndices returns the distinct decimal indices of keys
// directly under prefix whose next section parses as a non-negative
// integer, sorted ascending and deduplicated. Used to decode
// slices/arrays/tuples.
func (m Map) ImmediateChildIndices(prefix topic.Key) []int {
	seen := make(map[int]struct{})
	for _, name := range m.ImmediateChildNames(prefix) {
		if idx, err := strconv.Atoi(name); err == nil && idx >= 0 {
			seen[idx] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Keys returns every key in m as a sorted slice of display strings,
// primarily useful for debugging and deterministic test output.
func (m Map) Keys() []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (m Map) String() string {
	var b strings.Builder
	for _, k := range m.Keys() {
		b.WriteString(k)
		b.WriteString(" = ")
		b.WriteString(m[k].String())
		b.WriteString("\n")
	}
	return b.String()
}
