package flatten

import (
	"fmt"
	"reflect"

	"github.com/cuemby/tessera/pkg/topic"
)

// Unflatten recovers a value of target's type from m, rooted at the
// empty topic. target must be a non-nil pointer.
func Unflatten(m Map, target any) error {
	return UnflattenAt(m, topic.Root(), target)
}

// UnflattenAt recovers a value of target's type from the entries of m
// nested under prefix. target must be a non-nil pointer.
func UnflattenAt(m Map, prefix topic.Key, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("unflatten: target must be a non-nil pointer, got %T", target)
	}
	if err := unflattenValue(m, prefix, rv.Elem()); err != nil {
		return fmt.Errorf("unflatten %s: %w", prefix.String(), err)
	}
	return nil
}

func unflattenValue(m Map, path topic.Key, rv reflect.Value) error {
	if rv.Type() == primitiveType {
		p, _ := m.Get(path)
		rv.Set(reflect.ValueOf(p))
		return nil
	}

	if rv.Kind() == reflect.Ptr {
		if !m.HasUnder(path) {
			rv.Set(reflect.Zero(rv.Type()))
			return nil
		}
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		return unflattenValue(m, path, rv.Elem())
	}

	if decodeEnum, ok := asEnumDecoder(rv); ok {
		return unflattenEnum(m, path, decodeEnum)
	}

	switch rv.Type() {
	case timeType:
		p, ok := m.Get(path)
		if !ok {
			return nil
		}
		t, ok := p.AsInstant()
		if !ok {
			return fmt.Errorf("expected Instant at %s, got %s", path.String(), p.Kind())
		}
		rv.Set(reflect.ValueOf(t))
		return nil
	case durationType:
		p, ok := m.Get(path)
		if !ok {
			return nil
		}
		d, ok := p.AsDuration()
		if !ok {
			return fmt.Errorf("expected Duration at %s, got %s", path.String(), p.Kind())
		}
		rv.Set(reflect.ValueOf(d))
		return nil
	}

	if rv.Type() == byteSliceType {
		p, ok := m.Get(path)
		if !ok {
			return nil
		}
		b, ok := p.AsBlob()
		if !ok {
			return fmt.Errorf("expected Blob at %s, got %s", path.String(), p.Kind())
		}
		rv.SetBytes(append([]byte(nil), b.Bytes...))
		return nil
	}

	switch rv.Kind() {
	case reflect.Struct:
		return unflattenStruct(m, path, rv)
	case reflect.Map:
		return unflattenMap(m, path, rv)
	case reflect.Slice:
		return unflattenSlice(m, path, rv)
	case reflect.Array:
		return unflattenArray(m, path, rv)
	default:
		return unflattenScalar(m, path, rv)
	}
}

func unflattenStruct(m Map, path topic.Key, rv reflect.Value) error {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue
		}
		name := fieldName(f)
		if name == "-" {
			continue
		}
		if err := unflattenValue(m, path.Child(name), rv.Field(i)); err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
	}
	return nil
}

func unflattenMap(m Map, path topic.Key, rv reflect.Value) error {
	et := rv.Type().Elem()
	kt := rv.Type().Key()
	if kt.Kind() != reflect.String {
		return fmt.Errorf("map keys must be strings at %s", path.String())
	}
	names := m.ImmediateChildNames(path)
	out := reflect.MakeMapWithSize(rv.Type(), len(names))
	for _, name := range names {
		ev := reflect.New(et).Elem()
		if err := unflattenValue(m, path.Child(name), ev); err != nil {
			return err
		}
		out.SetMapIndex(reflect.ValueOf(name).Convert(kt), ev)
	}
	rv.Set(out)
	return nil
}

func unflattenSlice(m Map, path topic.Key, rv reflect.Value) error {
	indices := m.ImmediateChildIndices(path)
	out := reflect.MakeSlice(rv.Type(), 0, len(indices))
	for _, idx := range indices {
		ev := reflect.New(rv.Type().Elem()).Elem()
		if err := unflattenValue(m, path.ChildIndex(idx), ev); err != nil {
			return err
		}
		out = reflect.Append(out, ev)
	}
	rv.Set(out)
	return nil
}

func unflattenArray(m Map, path topic.Key, rv reflect.Value) error {
	indices := m.ImmediateChildIndices(path)
	for _, idx := range indices {
		if idx >= rv.Len() {
			continue
		}
		if err := unflattenValue(m, path.ChildIndex(idx), rv.Index(idx)); err != nil {
			return err
		}
	}
	return nil
}

func unflattenScalar(m Map, path topic.Key, rv reflect.Value) error {
	p, ok := m.Get(path)
	if !ok {
		return nil // leave zero value; scalars have no "absent" encoding of their own.
	}
	switch rv.Kind() {
	case reflect.Bool:
		b, ok := p.AsBoolean()
		if !ok {
			return fmt.Errorf("expected Boolean at %s, got %s", path.String(), p.Kind())
		}
		rv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, ok := p.AsInteger()
		if !ok {
			return fmt.Errorf("expected Integer at %s, got %s", path.String(), p.Kind())
		}
		rv.SetInt(i) // wraps to the field's width.
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		i, ok := p.AsInteger()
		if !ok {
			return fmt.Errorf("expected Integer at %s, got %s", path.String(), p.Kind())
		}
		rv.SetUint(uint64(i))
	case reflect.Float32, reflect.Float64:
		f, ok := p.AsFloat()
		if !ok {
			return fmt.Errorf("expected Float at %s, got %s", path.String(), p.Kind())
		}
		rv.SetFloat(f)
	case reflect.String:
		s, ok := p.AsText()
		if !ok {
			return fmt.Errorf("expected Text at %s, got %s", path.String(), p.Kind())
		}
		rv.SetString(s)
	default:
		return fmt.Errorf("unsupported type %s at %s", rv.Type(), path.String())
	}
	return nil
}

func unflattenEnum(m Map, path topic.Key, dec EnumDecoder) error {
	if p, ok := m.Get(path); ok {
		name, ok := p.AsText()
		if !ok {
			return fmt.Errorf("expected unit-variant Text at %s, got %s", path.String(), p.Kind())
		}
		payload, err := dec.NewVariantPayload(name)
		if err != nil {
			return err
		}
		if payload != nil {
			return fmt.Errorf("variant %q at %s is not a unit variant", name, path.String())
		}
		return dec.SetVariant(name, nil)
	}

	names := m.ImmediateChildNames(path)
	for _, name := range names {
		payload, err := dec.NewVariantPayload(name)
		if err != nil {
			continue // not a recognized variant name; might be unrelated data.
		}
		if payload == nil {
			return fmt.Errorf("variant %q at %s expects a unit encoding", name, path.String())
		}
		pv := reflect.ValueOf(payload)
		if pv.Kind() != reflect.Ptr {
			return fmt.Errorf("NewVariantPayload for %q must return a pointer", name)
		}
		if err := unflattenValue(m, path.Child(name), pv.Elem()); err != nil {
			return err
		}
		return dec.SetVariant(name, payload)
	}
	return fmt.Errorf("no recognized enum variant found at %s", path.String())
}

func asEnumDecoder(rv reflect.Value) (EnumDecoder, bool) {
	if !rv.CanAddr() {
		return nil, false
	}
	dec, ok := rv.Addr().Interface().(EnumDecoder)
	return dec, ok
}
