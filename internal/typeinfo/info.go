package typeinfo

import (
	"reflect"
)

// Field represents a single tagged field of a struct type.
type Field struct {
	Type reflect.Type

	// Name is the name of the struct field.
	Name string

	// Tag is the column name from the "db" tag.
	Tag string

	// Index of this field in the structure.
	Index int

	// OmitEmpty is true when "omitempty" is
	// a property of the field's "db" tag.
	OmitEmpty bool
}

// Info represents reflected information about a struct type.
type Info struct {
	Type reflect.Type

	// Fields holds the tagged fields in declaration order.
	Fields []Field

	// Relate tag names to fields.
	TagToField map[string]Field
}

// Lookup returns the field tagged with name.
func (info *Info) Lookup(name string) (Field, bool) {
	f, ok := info.TagToField[name]
	return f, ok
}
