package typeinfo

import (
	"reflect"

	"github.com/cockroachdb/errors"
)

// ScanArgs returns the pointers to pass to sql.Rows.Scan so that each column
// in cols ends up in out, and a function to call once the scan succeeds. out
// must be a pointer to a struct with db tags or a non-nil map with string
// keys and interface values.
func ScanArgs(out any, cols []string) ([]any, func(), error) {
	if out == nil {
		return nil, nil, errors.New("cannot scan into nil")
	}
	v := reflect.ValueOf(out)
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return nil, nil, errors.Newf("cannot scan into nil %T", out)
		}
		return structScanArgs(v.Elem(), cols)
	case reflect.Map:
		return mapScanArgs(v, cols)
	}
	return nil, nil, errors.Newf("need pointer to struct or map, got %T", out)
}

func structScanArgs(v reflect.Value, cols []string) ([]any, func(), error) {
	if v.Kind() != reflect.Struct {
		return nil, nil, errors.Newf("need pointer to struct, got pointer to %s", v.Kind())
	}
	info, err := typeInfo(v.Type())
	if err != nil {
		return nil, nil, err
	}
	ptrs := make([]any, len(cols))
	for i, col := range cols {
		f, ok := info.Lookup(col)
		if !ok {
			return nil, nil, errors.Newf("column %q has no matching db tag in %s", col, v.Type().Name())
		}
		ptrs[i] = v.Field(f.Index).Addr().Interface()
	}
	return ptrs, func() {}, nil
}

func mapScanArgs(m reflect.Value, cols []string) ([]any, func(), error) {
	typ := m.Type()
	if typ.Key().Kind() != reflect.String {
		return nil, nil, errors.Newf("map type %s must have key type string", typ)
	}
	if typ.Elem().Kind() != reflect.Interface {
		return nil, nil, errors.Newf("map type %s must have value type any", typ)
	}
	if m.IsNil() {
		return nil, nil, errors.Newf("cannot scan into nil %s", typ)
	}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	onSuccess := func() {
		for i, col := range cols {
			val := reflect.Zero(typ.Elem())
			if vals[i] != nil {
				val = reflect.ValueOf(vals[i])
			}
			m.SetMapIndex(reflect.ValueOf(col).Convert(typ.Key()), val)
		}
	}
	return ptrs, onSuccess, nil
}
