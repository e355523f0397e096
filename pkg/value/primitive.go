package value

import (
	"bytes"
	"fmt"
	"time"
)

// Kind identifies which variant of Primitive is populated.
type Kind int

const (
	KindUnset Kind = iota
	KindInstant
	KindDuration
	KindInteger
	KindFloat
	KindText
	KindBlob
	KindBoolean
	KindList
	KindReference
	KindStruct
)

func (k Kind) String() string {
	switch k {
	case KindUnset:
		return "Unset"
	case KindInstant:
		return "Instant"
	case KindDuration:
		return "Duration"
	case KindInteger:
		return "Integer"
	case KindFloat:
		return "Float"
	case KindText:
		return "Text"
	case KindBlob:
		return "Blob"
	case KindBoolean:
		return "Boolean"
	case KindList:
		return "List"
	case KindReference:
		return "Reference"
	case KindStruct:
		return "StructType"
	default:
		return "Unknown"
	}
}

// Blob carries raw bytes plus advisory metadata. The flatten codec
// fills Mime with "raw_bytes" and computes Hash on write (see
// pkg/flatten); Length always mirrors len(Bytes).
type Blob struct {
	Bytes  []byte
	Length int
	Mime   string
	Hash   string
}

// Primitive is the tagged union every structured value flattens into.
// The zero value is Unset.
type Primitive struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    bool
	t    time.Time
	d    time.Duration
	blob Blob
	list []Primitive
}

// Unset returns the absent-value primitive.
func Unset() Primitive { return Primitive{kind: KindUnset} }

// Instant wraps a point in time.
func Instant(t time.Time) Primitive { return Primitive{kind: KindInstant, t: t} }

// FromDuration wraps a span of time.
func FromDuration(d time.Duration) Primitive { return Primitive{kind: KindDuration, d: d} }

// Integer wraps a signed 64-bit integer.
func Integer(i int64) Primitive { return Primitive{kind: KindInteger, i: i} }

// Float wraps a 64-bit float.
func Float(f float64) Primitive { return Primitive{kind: KindFloat, f: f} }

// Text wraps a UTF-8 string.
func Text(s string) Primitive { return Primitive{kind: KindText, s: s} }

// NewBlob wraps raw bytes with advisory metadata.
func NewBlob(b Blob) Primitive {
	b.Length = len(b.Bytes)
	return Primitive{kind: KindBlob, blob: b}
}

// Boolean wraps a bool.
func Boolean(b bool) Primitive { return Primitive{kind: KindBoolean, b: b} }

// List wraps an ordered sequence of primitives.
func List(items ...Primitive) Primitive {
	cp := make([]Primitive, len(items))
	copy(cp, items)
	return Primitive{kind: KindList, list: cp}
}

// Reference wraps the display-path form of a topic ID. Display-path
// form, not a numeric hash, is used so references remain meaningful
// across processes (see pkg/topic's wire-safety note).
func Reference(topicPath string) Primitive { return Primitive{kind: KindReference, s: topicPath} }

// StructTypeName wraps the marker value stored at a flattened struct's
// synthetic "_type" child key.
func StructTypeName(name string) Primitive { return Primitive{kind: KindStruct, s: name} }

// Kind reports which variant is populated.
func (p Primitive) Kind() Kind { return p.kind }

// IsUnset reports whether p is the absent-value primitive.
func (p Primitive) IsUnset() bool { return p.kind == KindUnset }

func (p Primitive) AsInteger() (int64, bool) {
	if p.kind != KindInteger {
		return 0, false
	}
	return p.i, true
}

func (p Primitive) AsFloat() (float64, bool) {
	if p.kind != KindFloat {
		return 0, false
	}
	return p.f, true
}

func (p Primitive) AsText() (string, bool) {
	if p.kind != KindText {
		return "", false
	}
	return p.s, true
}

func (p Primitive) AsBoolean() (bool, bool) {
	if p.kind != KindBoolean {
		return false, false
	}
	return p.b, true
}

func (p Primitive) AsInstant() (time.Time, bool) {
	if p.kind != KindInstant {
		return time.Time{}, false
	}
	return p.t, true
}

func (p Primitive) AsDuration() (time.Duration, bool) {
	if p.kind != KindDuration {
		return 0, false
	}
	return p.d, true
}

func (p Primitive) AsBlob() (Blob, bool) {
	if p.kind != KindBlob {
		return Blob{}, false
	}
	return p.blob, true
}

func (p Primitive) AsList() ([]Primitive, bool) {
	if p.kind != KindList {
		return nil, false
	}
	return p.list, true
}

func (p Primitive) AsReference() (string, bool) {
	if p.kind != KindReference {
		return "", false
	}
	return p.s, true
}

func (p Primitive) AsStructTypeName() (string, bool) {
	if p.kind != KindStruct {
		return "", false
	}
	return p.s, true
}

// Equal performs deep value equality, used by Bucket's change
// suppression and by flatten/unflatten round-trip tests.
func (p Primitive) Equal(other Primitive) bool {
	if p.kind != other.kind {
		return false
	}
	switch p.kind {
	case KindUnset:
		return true
	case KindInstant:
		return p.t.Equal(other.t)
	case KindDuration:
		return p.d == other.d
	case KindInteger:
		return p.i == other.i
	case KindFloat:
		return p.f == other.f
	case KindText, KindReference, KindStruct:
		return p.s == other.s
	case KindBoolean:
		return p.b == other.b
	case KindBlob:
		return p.blob.Mime == other.blob.Mime &&
			p.blob.Hash == other.blob.Hash &&
			bytes.Equal(p.blob.Bytes, other.blob.Bytes)
	case KindList:
		if len(p.list) != len(other.list) {
			return false
		}
		for i := range p.list {
			if !p.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (p Primitive) String() string {
	switch p.kind {
	case KindUnset:
		return "<unset>"
	case KindInstant:
		return p.t.Format(time.RFC3339Nano)
	case KindDuration:
		return p.d.String()
	case KindInteger:
		return fmt.Sprintf("%d", p.i)
	case KindFloat:
		return fmt.Sprintf("%g", p.f)
	case KindText:
		return p.s
	case KindBlob:
		return fmt.Sprintf("blob(%d bytes, %s)", p.blob.Length, p.blob.Mime)
	case KindBoolean:
		return fmt.Sprintf("%t", p.b)
	case KindList:
		return fmt.Sprintf("%v", p.list)
	case KindReference:
		return "ref(" + p.s + ")"
	case KindStruct:
		return "struct(" + p.s + ")"
	default:
		return "<invalid>"
	}
}
