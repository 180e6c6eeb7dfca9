package typeinfo

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

var cacheMutex sync.RWMutex
var cache = make(map[reflect.Type]*Info)

// GetTypeInfo returns the Info of the struct type of value, generating and
// caching it as required. Pointers are followed.
func GetTypeInfo(value any) (*Info, error) {
	if value == nil {
		return &Info{}, errors.New("cannot reflect nil value")
	}
	return typeInfo(reflect.TypeOf(value))
}

func typeInfo(typ reflect.Type) (*Info, error) {
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}

	cacheMutex.RLock()
	info, found := cache[typ]
	cacheMutex.RUnlock()
	if found {
		return info, nil
	}

	info, err := generate(typ)
	if err != nil {
		return &Info{}, err
	}

	cacheMutex.Lock()
	cache[typ] = info
	cacheMutex.Unlock()

	return info, nil
}

// generate produces the reflection information of a struct type.
func generate(typ reflect.Type) (*Info, error) {
	if typ.Kind() != reflect.Struct {
		return &Info{}, errors.New("can only reflect struct type")
	}

	info := Info{
		TagToField: make(map[string]Field),
		Type:       typ,
	}

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		// Fields without a "db" tag are not variables.
		tag := field.Tag.Get("db")
		if tag == "" || !field.IsExported() {
			continue
		}
		name, omitEmpty, err := parseTag(tag)
		if err != nil {
			return &Info{}, errors.Wrapf(err, "field %s of %s", field.Name, typ.Name())
		}
		if _, ok := info.TagToField[name]; ok {
			return &Info{}, errors.Newf("db tag %q appears more than once in %s", name, typ.Name())
		}
		f := Field{
			Type:      field.Type,
			Name:      field.Name,
			Tag:       name,
			Index:     i,
			OmitEmpty: omitEmpty,
		}
		info.Fields = append(info.Fields, f)
		info.TagToField[name] = f
	}

	return &info, nil
}

// This expression should be aligned with the characters the lexer accepts in
// an identifier.
var validColNameRx = regexp.MustCompile(`^([a-zA-Z_])+([a-zA-Z_0-9])*$`)

// parseTag parses the input tag string and returns its
// name and whether it contains the "omitempty" option.
func parseTag(tag string) (string, bool, error) {
	options := strings.Split(tag, ",")

	var omitEmpty bool
	if len(options) > 2 {
		return "", false, errors.New("too many options in 'db' tag")
	}
	if len(options) == 2 {
		if strings.ToLower(options[1]) != "omitempty" {
			return "", false, errors.Newf("unexpected tag value %q", options[1])
		}
		omitEmpty = true
	}

	name := options[0]
	if len(name) == 0 {
		return "", false, errors.New("empty db tag")
	}

	if !validColNameRx.MatchString(name) {
		return "", false, errors.Newf("invalid column name %q in 'db' tag", name)
	}

	return name, omitEmpty, nil
}
