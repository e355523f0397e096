package flatten

import (
	"testing"
	"time"

	"github.com/cuemby/tessera/pkg/topic"
	"github.com/cuemby/tessera/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleStruct struct {
	A int32
	B string
}

func TestFlattenUnflattenStructRoundTrip(t *testing.T) {
	in := sampleStruct{A: 42, B: "test"}

	m, err := Flatten(in)
	require.NoError(t, err)

	typ, ok := m.Get(topic.Parse("_type"))
	require.True(t, ok)
	name, ok := typ.AsStructTypeName()
	require.True(t, ok)
	assert.Equal(t, "sampleStruct", name)

	var out sampleStruct
	require.NoError(t, Unflatten(m, &out))
	assert.Equal(t, in, out)
}

func TestFlattenAtPrefix(t *testing.T) {
	in := sampleStruct{A: 1, B: "x"}
	prefix := topic.Parse("t")

	m, err := FlattenAt(prefix, in)
	require.NoError(t, err)

	_, ok := m.Get(topic.Parse("t/a"))
	assert.False(t, ok) // field name casing is exact: "A", not "a"
	_, ok = m.Get(topic.Parse("t/A"))
	assert.True(t, ok)

	var out sampleStruct
	require.NoError(t, UnflattenAt(m, prefix, &out))
	assert.Equal(t, in, out)
}

type nested struct {
	Name     string
	Children []sampleStruct
	Tags     map[string]int
	Ptr      *sampleStruct
}

func TestFlattenUnflattenNestedRoundTrip(t *testing.T) {
	in := nested{
		Name:     "root",
		Children: []sampleStruct{{A: 1, B: "a"}, {A: 2, B: "b"}},
		Tags:     map[string]int{"x": 1, "y": 2},
		Ptr:      &sampleStruct{A: 9, B: "z"},
	}

	m, err := Flatten(in)
	require.NoError(t, err)

	var out nested
	require.NoError(t, Unflatten(m, &out))
	assert.Equal(t, in, out)
}

func TestFlattenNilPointerIsAbsent(t *testing.T) {
	in := nested{Name: "root"}

	m, err := Flatten(in)
	require.NoError(t, err)

	assert.False(t, m.HasUnder(topic.Parse("Ptr")))

	var out nested
	out.Ptr = &sampleStruct{} // pre-populated; decode must nil it back out.
	require.NoError(t, Unflatten(m, &out))
	assert.Nil(t, out.Ptr)
}

func TestFlattenBlob(t *testing.T) {
	type withBlob struct {
		Data []byte
	}
	in := withBlob{Data: []byte("hello")}

	m, err := Flatten(in)
	require.NoError(t, err)

	p, ok := m.Get(topic.Parse("Data"))
	require.True(t, ok)
	blob, ok := p.AsBlob()
	require.True(t, ok)
	assert.Equal(t, "raw_bytes", blob.Mime)
	assert.Equal(t, 5, blob.Length)
	assert.NotEmpty(t, blob.Hash)

	var out withBlob
	require.NoError(t, Unflatten(m, &out))
	assert.Equal(t, in.Data, out.Data)
}

func TestFlattenInstantAndDuration(t *testing.T) {
	type timed struct {
		At  time.Time
		For time.Duration
	}
	now := time.Now().Round(0)
	in := timed{At: now, For: 5 * time.Second}

	m, err := Flatten(in)
	require.NoError(t, err)

	var out timed
	require.NoError(t, Unflatten(m, &out))
	assert.True(t, in.At.Equal(out.At))
	assert.Equal(t, in.For, out.For)
}

func TestFlattenPrimitivePassthrough(t *testing.T) {
	type leaf struct {
		V value.Primitive
	}
	in := leaf{V: value.Integer(42)}

	m, err := Flatten(in)
	require.NoError(t, err)

	var out leaf
	require.NoError(t, Unflatten(m, &out))
	assert.True(t, in.V.Equal(out.V))
}

// status is a unit-only enum.
type status struct {
	name string
}

func (s status) EnumVariant() (string, any) { return s.name, nil }

func (s *status) NewVariantPayload(name string) (any, error) {
	switch name {
	case "Active", "Idle", "Failed":
		return nil, nil
	default:
		return nil, assertUnknownVariant(name)
	}
}

func (s *status) SetVariant(name string, _ any) error {
	s.name = name
	return nil
}

func assertUnknownVariant(name string) error {
	return &unknownVariantError{name}
}

type unknownVariantError struct{ name string }

func (e *unknownVariantError) Error() string { return "unknown variant: " + e.name }

func TestFlattenUnflattenUnitEnum(t *testing.T) {
	in := status{name: "Idle"}

	m, err := Flatten(in)
	require.NoError(t, err)

	p, ok := m.Get(topic.Root())
	require.True(t, ok)
	txt, ok := p.AsText()
	require.True(t, ok)
	assert.Equal(t, "Idle", txt)

	var out status
	require.NoError(t, Unflatten(m, &out))
	assert.Equal(t, in, out)
}

// outcome is an enum with both a unit variant and a payload variant.
type outcomeSuccess struct {
	Code int
}

type outcome struct {
	variant string
	success *outcomeSuccess
}

func (o outcome) EnumVariant() (string, any) {
	if o.variant == "Success" {
		return "Success", o.success
	}
	return o.variant, nil
}

func (o *outcome) NewVariantPayload(name string) (any, error) {
	switch name {
	case "Success":
		return &outcomeSuccess{}, nil
	case "Pending":
		return nil, nil
	default:
		return nil, assertUnknownVariant(name)
	}
}

func (o *outcome) SetVariant(name string, payload any) error {
	o.variant = name
	if payload != nil {
		o.success = payload.(*outcomeSuccess)
	}
	return nil
}

func TestFlattenUnflattenPayloadEnum(t *testing.T) {
	in := outcome{variant: "Success", success: &outcomeSuccess{Code: 7}}

	m, err := Flatten(in)
	require.NoError(t, err)

	var out outcome
	require.NoError(t, Unflatten(m, &out))
	assert.Equal(t, "Success", out.variant)
	require.NotNil(t, out.success)
	assert.Equal(t, 7, out.success.Code)
}

func TestFlattenUnflattenUnitVariantOfMixedEnum(t *testing.T) {
	in := outcome{variant: "Pending"}

	m, err := Flatten(in)
	require.NoError(t, err)

	var out outcome
	require.NoError(t, Unflatten(m, &out))
	assert.Equal(t, "Pending", out.variant)
	assert.Nil(t, out.success)
}

func TestUnflattenScalarTypeMismatchIsHardError(t *testing.T) {
	m := make(Map)
	m.Set(topic.Parse("N"), value.Float(1.5))

	var out struct{ N int32 }
	err := UnflattenAt(m, topic.Root(), &out)
	assert.Error(t, err)
}

func TestFlattenIntegerWrapsAcrossWidths(t *testing.T) {
	type narrow struct{ N int8 }
	m := make(Map)
	m.Set(topic.Parse("N"), value.Integer(300)) // overflows int8, must wrap not error.

	var out narrow
	require.NoError(t, Unflatten(m, &out))
	assert.Equal(t, int8(300-256), out.N)
}
