package schema

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownFieldType     = errors.New("unknown field type")
	ErrUnknownDeclaration   = errors.New("unknown declaration")
	ErrDuplicateDeclaration = errors.New("duplicate declaration")
	ErrCyclicSchema         = errors.New("cyclic struct reference")
	ErrInvalidField         = errors.New("invalid field")
)

// FieldDecl declares one field. Exactly one of Type and Struct is set.
type FieldDecl struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Struct string `yaml:"struct"`
	Size   int    `yaml:"size"` // Blank only
}

// Declaration is an author-declared value type.
type Declaration struct {
	Name string `yaml:"name"`
	// GoType names the registered Go component this declaration describes.
	// Empty means the component only exists as raw bytes.
	GoType string      `yaml:"go_type"`
	Fields []FieldDecl `yaml:"fields"`
}

type schemaFile struct {
	Structs    []Declaration `yaml:"structs"`
	Components []Declaration `yaml:"components"`
}

// Registry holds struct and component declarations. Structs may only be
// nested; components may be nested and registered.
type Registry struct {
	decls      map[string]*Declaration
	components []string
}

func NewRegistry() *Registry {
	return &Registry{decls: make(map[string]*Declaration)}
}

// LoadFile parses a YAML schema file.
func LoadFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	r, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return r, nil
}

func Parse(raw []byte) (*Registry, error) {
	var f schemaFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	r := NewRegistry()
	for _, d := range f.Structs {
		if err := r.AddStruct(d); err != nil {
			return nil, err
		}
	}
	for _, d := range f.Components {
		if err := r.AddComponent(d); err != nil {
			return nil, err
		}
	}
	// resolve everything now so bad references fail at load time
	for name := range r.decls {
		if _, err := r.Flatten(name); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) AddStruct(d Declaration) error {
	if d.Name == "" {
		return fmt.Errorf("%w: declaration without a name", ErrInvalidField)
	}
	if _, dup := r.decls[d.Name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateDeclaration, d.Name)
	}
	r.decls[d.Name] = &d
	return nil
}

func (r *Registry) AddComponent(d Declaration) error {
	if err := r.AddStruct(d); err != nil {
		return err
	}
	r.components = append(r.components, d.Name)
	return nil
}

// Components returns component declarations in file order.
func (r *Registry) Components() []Declaration {
	out := make([]Declaration, len(r.components))
	for i, name := range r.components {
		out[i] = *r.decls[name]
	}
	return out
}

func (r *Registry) Declaration(name string) (Declaration, bool) {
	d, ok := r.decls[name]
	if !ok {
		return Declaration{}, false
	}
	return *d, true
}

func (r *Registry) Count() int { return len(r.decls) }

// Flatten lays out a declaration depth first with natural alignment, the
// way Go lays out the equivalent struct.
func (r *Registry) Flatten(name string) (Layout, error) {
	var l Layout
	l.Name = name
	size, align, err := r.flatten(name, "", 0, &l.Fields, nil)
	if err != nil {
		return Layout{}, err
	}
	l.Size, l.Align = size, align
	return l, nil
}

// flatten appends the fields of decl, placed at base, and returns the struct
// size and alignment. path holds the declarations currently being expanded.
func (r *Registry) flatten(name, prefix string, base int, out *[]Field, path []string) (int, int, error) {
	for _, p := range path {
		if p == name {
			return 0, 0, fmt.Errorf("%w: %s -> %s", ErrCyclicSchema, strings.Join(path, " -> "), name)
		}
	}
	d, ok := r.decls[name]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrUnknownDeclaration, name)
	}
	path = append(path, name)

	offset, maxAlign := 0, 1
	for _, fd := range d.Fields {
		if fd.Name == "" {
			return 0, 0, fmt.Errorf("%w: unnamed field in %s", ErrInvalidField, name)
		}
		full := prefix + fd.Name

		if fd.Struct != "" {
			// lay the nested struct out on its own first to learn its alignment
			var nested []Field
			nsize, nalign, err := r.flatten(fd.Struct, "", 0, &nested, path)
			if err != nil {
				return 0, 0, err
			}
			offset = alignUp(offset, nalign)
			maxAlign = max(maxAlign, nalign)
			*out = append(*out, Field{Name: full, Type: Section, Size: nsize, Offset: base + offset})
			if _, _, err := r.flatten(fd.Struct, full+".", base+offset, out, path); err != nil {
				return 0, 0, err
			}
			offset += nsize
			continue
		}

		ft, err := ParseFieldType(fd.Type)
		if err != nil {
			return 0, 0, fmt.Errorf("%s.%s: %w", name, fd.Name, err)
		}
		size := ft.Size()
		switch ft {
		case Blank:
			if fd.Size <= 0 {
				return 0, 0, fmt.Errorf("%w: blank %s.%s needs a positive size", ErrInvalidField, name, fd.Name)
			}
			size = fd.Size
		case Section:
			return 0, 0, fmt.Errorf("%w: %s.%s: sections come from struct fields", ErrInvalidField, name, fd.Name)
		}
		offset = alignUp(offset, ft.Align())
		maxAlign = max(maxAlign, ft.Align())
		*out = append(*out, Field{Name: full, Type: ft, Size: size, Offset: base + offset})
		offset += size
	}
	return alignUp(offset, maxAlign), maxAlign, nil
}

func alignUp(n, align int) int {
	return (n + align - 1) / align * align
}
