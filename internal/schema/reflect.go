package schema

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/WaveAssist/WaveAssist/internal/errors"
)

// FromType builds a Node from the Go type T.
//
// Structs become objects named by their json tags. A field is optional when
// it is a pointer or tagged omitempty, unless its jsonschema tag says
// "required". The jsonschema tag also carries "description=..." and
// repeated "enum=..." items. Slices and arrays become lists; strings, bools
// and numeric kinds become scalars, integer kinds flagged as integral.
// Maps, interfaces, channels, funcs and recursive types are rejected.
func FromType[T any]() (*Node, error) {
	return FromReflectType(reflect.TypeOf((*T)(nil)).Elem())
}

// FromReflectType is FromType for a reflect.Type known at run time.
func FromReflectType(t reflect.Type) (*Node, error) {
	if t == nil {
		return nil, errors.NewSchemaError("cannot build schema from nil type", errors.ErrUnsupportedType)
	}
	return fromType(t, make(map[reflect.Type]bool))
}

func fromType(t reflect.Type, inProgress map[reflect.Type]bool) (*Node, error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.String:
		return String(), nil
	case reflect.Bool:
		return Boolean(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Integer(), nil
	case reflect.Float32, reflect.Float64:
		return Number(), nil
	case reflect.Slice, reflect.Array:
		elem, err := fromType(t.Elem(), inProgress)
		if err != nil {
			return nil, err
		}
		return List(elem), nil
	case reflect.Struct:
		return fromStruct(t, inProgress)
	default:
		return nil, errors.NewSchemaError(fmt.Sprintf("type %s has no schema equivalent", t), errors.ErrUnsupportedType)
	}
}

func fromStruct(t reflect.Type, inProgress map[reflect.Type]bool) (*Node, error) {
	if inProgress[t] {
		return nil, errors.NewSchemaError(fmt.Sprintf("recursive type %s cannot be described by a finite schema", t), errors.ErrUnsupportedType)
	}
	inProgress[t] = true
	defer delete(inProgress, t)

	fields := make([]Field, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		name, omitEmpty, skip := jsonName(sf)
		if skip {
			continue
		}

		node, err := fromType(sf.Type, inProgress)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", sf.Name, err)
		}

		opts, err := parseTag(sf)
		if err != nil {
			return nil, err
		}
		if len(opts.enum) > 0 {
			if node.Kind() != KindString {
				return nil, errors.NewSchemaError(fmt.Sprintf("field %s: enum tag requires a string field", sf.Name), errors.ErrUnsupportedType)
			}
			node = Enum(opts.enum...)
		}

		required := (sf.Type.Kind() != reflect.Ptr && !omitEmpty) || opts.required
		field := Field{Name: name, Node: node, Required: required, Description: opts.description}
		fields = append(fields, field)
	}
	return Object(fields...), nil
}

// jsonName applies encoding/json naming rules to a struct field.
func jsonName(sf reflect.StructField) (name string, omitEmpty bool, skip bool) {
	tag := sf.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	name = sf.Name
	if tag == "" {
		return name, false, false
	}
	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		name = parts[0]
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" || opt == "omitzero" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

type tagOptions struct {
	description string
	enum        []string
	required    bool
}

// parseTag reads the jsonschema struct tag: "description=...", "enum=a,enum=b"
// and "required".
func parseTag(sf reflect.StructField) (tagOptions, error) {
	var opts tagOptions
	tag := sf.Tag.Get("jsonschema")
	if tag == "" {
		return opts, nil
	}

	for _, item := range strings.Split(tag, ",") {
		key, value, hasValue := strings.Cut(item, "=")
		key = strings.TrimSpace(key)
		switch {
		case key == "required" && !hasValue:
			opts.required = true
		case key == "description" && hasValue:
			opts.description = value
		case key == "enum" && hasValue:
			opts.enum = append(opts.enum, value)
		default:
			return opts, errors.NewSchemaError(fmt.Sprintf("field %s: unknown jsonschema tag item %q", sf.Name, item), nil)
		}
	}
	return opts, nil
}
