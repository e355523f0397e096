package flatten

import (
	"fmt"
	"reflect"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/cuemby/tessera/pkg/topic"
	"github.com/cuemby/tessera/pkg/value"
)

var (
	primitiveType = reflect.TypeOf(value.Primitive{})
	timeType      = reflect.TypeOf(time.Time{})
	durationType  = reflect.TypeOf(time.Duration(0))
	byteSliceType = reflect.TypeOf([]byte(nil))
)

// Flatten projects v into a Map rooted at the empty topic.
func Flatten(v any) (Map, error) {
	return FlattenAt(topic.Root(), v)
}

// FlattenAt projects v into a Map rooted at prefix.
func FlattenAt(prefix topic.Key, v any) (Map, error) {
	out := make(Map)
	if err := flattenValue(out, prefix, reflect.ValueOf(v)); err != nil {
		return nil, fmt.Errorf("flatten %s: %w", prefix.String(), err)
	}
	return out, nil
}

func flattenValue(out Map, path topic.Key, rv reflect.Value) error {
	if !rv.IsValid() {
		return nil // nil interface: None, no entry.
	}

	// Pass primitives straight through: a field already expressed in
	// terms of value.Primitive is a leaf, not a container to recurse
	// into.
	if rv.Type() == primitiveType {
		out.Set(path, rv.Interface().(value.Primitive))
		return nil
	}

	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil // Option::None / absent value: no entry.
		}
		return flattenValue(out, path, rv.Elem())
	}

	if en, ok := asEnum(rv); ok {
		name, payload := en.EnumVariant()
		if payload == nil {
			out.Set(path, value.Text(name))
			return nil
		}
		return flattenValue(out, path.Child(name), reflect.ValueOf(payload))
	}

	switch rv.Type() {
	case timeType:
		out.Set(path, value.Instant(rv.Interface().(time.Time)))
		return nil
	case durationType:
		out.Set(path, value.FromDuration(time.Duration(rv.Int())))
		return nil
	}

	if rv.Type() == byteSliceType {
		b := rv.Bytes()
		out.Set(path, value.NewBlob(value.Blob{Bytes: append([]byte(nil), b...), Mime: "raw_bytes", Hash: blobHash(b)}))
		return nil
	}

	switch rv.Kind() {
	case reflect.Struct:
		return flattenStruct(out, path, rv)
	case reflect.Map:
		return flattenMap(out, path, rv)
	case reflect.Slice, reflect.Array:
		return flattenSequence(out, path, rv)
	case reflect.Bool:
		out.Set(path, value.Boolean(rv.Bool()))
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		out.Set(path, value.Integer(rv.Int()))
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		out.Set(path, value.Integer(int64(rv.Uint())))
		return nil
	case reflect.Float32, reflect.Float64:
		out.Set(path, value.Float(rv.Float()))
		return nil
	case reflect.String:
		out.Set(path, value.Text(rv.String()))
		return nil
	default:
		return fmt.Errorf("unsupported type %s at %s", rv.Type(), path.String())
	}
}

func flattenStruct(out Map, path topic.Key, rv reflect.Value) error {
	out.Set(path.Child(typeMarkerSection), value.StructTypeName(rv.Type().Name()))

	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" { // unexported
			continue
		}
		name := fieldName(f)
		if name == "-" {
			continue
		}
		if err := flattenValue(out, path.Child(name), rv.Field(i)); err != nil {
			return err
		}
	}
	return nil
}

func flattenMap(out Map, path topic.Key, rv reflect.Value) error {
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key()
		if k.Kind() != reflect.String {
			return fmt.Errorf("map keys must be strings, got %s at %s", k.Kind(), path.String())
		}
		if err := flattenValue(out, path.Child(k.String()), iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func flattenSequence(out Map, path topic.Key, rv reflect.Value) error {
	for i := 0; i < rv.Len(); i++ {
		if err := flattenValue(out, path.ChildIndex(i), rv.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

// typeMarkerSection is the synthetic child key recording a flattened
// struct's type name.
const typeMarkerSection = "_type"

func fieldName(f reflect.StructField) string {
	if tag, ok := f.Tag.Lookup("flatten"); ok && tag != "" {
		return tag
	}
	return f.Name
}

func asEnum(rv reflect.Value) (Enum, bool) {
	if en, ok := rv.Interface().(Enum); ok {
		return en, true
	}
	if rv.CanAddr() {
		if en, ok := rv.Addr().Interface().(Enum); ok {
			return en, true
		}
	}
	return nil, false
}

// blobHash is a non-cryptographic content fingerprint; any stable
// digest works here, the exact algorithm is not part of the wire
// contract.
func blobHash(b []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(b))
}
