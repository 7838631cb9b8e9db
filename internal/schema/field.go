package schema

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FieldType is the primitive tag of one flattened field.
type FieldType uint8

const (
	Bool FieldType = iota
	Int8
	Int16
	Int32
	Int64
	UInt8
	UInt16
	UInt32
	UInt64
	Float // float32
	Double
	Vector3 // three float32
	Vector4 // four float32
	Blank   // padding of explicit size
	Section // start of a nested struct
)

var fieldTypeNames = [...]string{
	Bool:    "bool",
	Int8:    "int8",
	Int16:   "int16",
	Int32:   "int32",
	Int64:   "int64",
	UInt8:   "uint8",
	UInt16:  "uint16",
	UInt32:  "uint32",
	UInt64:  "uint64",
	Float:   "float",
	Double:  "double",
	Vector3: "vector3",
	Vector4: "vector4",
	Blank:   "blank",
	Section: "section",
}

func (t FieldType) String() string {
	if int(t) < len(fieldTypeNames) {
		return fieldTypeNames[t]
	}
	return fmt.Sprintf("FieldType(%d)", t)
}

// ParseFieldType accepts the names printed by String, case-insensitively,
// plus float32/float64 as aliases.
func ParseFieldType(s string) (FieldType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "float32":
		return Float, nil
	case "float64":
		return Double, nil
	}
	for i, name := range fieldTypeNames {
		if name == s {
			return FieldType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFieldType, s)
}

// Size is the byte size of a primitive. Blank and Section sizes come from
// the declaration, so they report 0 here.
func (t FieldType) Size() int {
	switch t {
	case Bool, Int8, UInt8:
		return 1
	case Int16, UInt16:
		return 2
	case Int32, UInt32, Float:
		return 4
	case Int64, UInt64, Double:
		return 8
	case Vector3:
		return 12
	case Vector4:
		return 16
	default:
		return 0
	}
}

// Align is the natural alignment of a primitive, matching the Go layout of
// the equivalent field.
func (t FieldType) Align() int {
	switch t {
	case Vector3, Vector4:
		return 4
	case Blank, Section:
		return 1
	default:
		return t.Size()
	}
}

// Field is one entry of a flattened layout. Nested fields carry dotted names
// ("transform.position") and are preceded by a Section entry for their
// struct.
type Field struct {
	Name   string
	Type   FieldType
	Size   int
	Offset int
}

// Label is a display name for editors: the last name segment, title cased.
func (f Field) Label() string {
	name := f.Name
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
}

// Depth is the nesting level of the field, 0 for top-level fields.
func (f Field) Depth() int { return strings.Count(f.Name, ".") }

// IsValue reports whether the field holds data, as opposed to padding or a
// section marker.
func (f Field) IsValue() bool { return f.Type != Blank && f.Type != Section }
