package typeinfo

import (
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
)

// Vars returns the variables held by arg. arg must be a map with string keys
// or a struct, or a pointer to one of them. Struct fields are named by their
// "db" tags, and omitempty fields holding the zero value are left out.
func Vars(arg any) (map[string]any, error) {
	if arg == nil {
		return nil, errors.New("cannot use nil as an argument")
	}
	v := reflect.ValueOf(arg)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, errors.Newf("cannot use nil %T as an argument", arg)
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, errors.Newf("map type %T must have key type string", arg)
		}
		vars := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			vars[iter.Key().String()] = iter.Value().Interface()
		}
		return vars, nil
	case reflect.Struct:
		info, err := typeInfo(v.Type())
		if err != nil {
			return nil, err
		}
		vars := make(map[string]any, len(info.Fields))
		for _, f := range info.Fields {
			fv := v.Field(f.Index)
			if f.OmitEmpty && fv.IsZero() {
				continue
			}
			vars[f.Tag] = fv.Interface()
		}
		return vars, nil
	}
	return nil, errors.Newf("unsupported argument type %T", arg)
}

// Resolve looks up a dotted name in vars. Each part after the first selects
// a map entry or a struct field, by "db" tag first and then by field name.
func Resolve(vars map[string]any, name string) (any, bool) {
	if v, ok := vars[name]; ok {
		return v, true
	}
	parts := strings.Split(name, ".")
	v, ok := vars[parts[0]]
	if !ok {
		return nil, false
	}
	for _, part := range parts[1:] {
		if v, ok = member(v, part); !ok {
			return nil, false
		}
	}
	return v, true
}

func member(value any, name string) (any, bool) {
	v := reflect.ValueOf(value)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Map:
		kt := v.Type().Key()
		if kt.Kind() != reflect.String {
			return nil, false
		}
		mv := v.MapIndex(reflect.ValueOf(name).Convert(kt))
		if !mv.IsValid() {
			return nil, false
		}
		return mv.Interface(), true
	case reflect.Struct:
		info, err := typeInfo(v.Type())
		if err != nil {
			return nil, false
		}
		if f, ok := info.Lookup(name); ok {
			return v.Field(f.Index).Interface(), true
		}
		sf, ok := v.Type().FieldByName(name)
		if !ok || !sf.IsExported() {
			return nil, false
		}
		fv, err := v.FieldByIndexErr(sf.Index)
		if err != nil {
			return nil, false
		}
		return fv.Interface(), true
	}
	return nil, false
}
