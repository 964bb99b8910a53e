package store

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// ModelFromStruct builds a Model from the exported fields of a struct.
//
// Supported tag format:
//
//	`lattice:"column_name,pk,null,digits=10,places=2"`
//
// A tag of "-" skips the field. Columns default to the lower-cased field name.
func ModelFromStruct(v any, kind string, parents ...*Model) (*Model, error) {
	rt := reflect.TypeOf(v)
	if rt != nil && rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt == nil || rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: expected struct, got %T", ErrInvalidModel, v)
	}

	model := NewModel(rt.Name(), kind, parents...)
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := sf.Tag.Get("lattice")
		if tag == "-" {
			continue
		}
		f, err := parseFieldTag(sf, tag)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", ErrInvalidModel, sf.Name, err)
		}
		model.AddField(f)
	}
	return model, nil
}

func parseFieldTag(sf reflect.StructField, tag string) (*Field, error) {
	f := &Field{
		Name:   sf.Name,
		Column: strings.ToLower(sf.Name),
	}
	if tag == "" {
		return f, nil
	}

	parts := strings.Split(tag, ",")
	if parts[0] != "" && !strings.Contains(parts[0], "=") {
		f.Column = strings.TrimSpace(parts[0])
	}

	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		key, value, hasValue := strings.Cut(part, "=")
		switch key {
		case "":
		case "pk":
			f.PrimaryKey = true
		case "null":
			f.Null = true
		case "digits", "places":
			if !hasValue {
				return nil, fmt.Errorf("%s needs a value", key)
			}
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid %s %q", key, value)
			}
			if key == "digits" {
				f.MaxDigits = n
			} else {
				f.DecimalPlaces = n
			}
		default:
			return nil, fmt.Errorf("unknown option %q", key)
		}
	}
	return f, nil
}

// StructInstance is an Instance backed by a pointer to a struct. Field
// attribute names are matched against the struct's field names.
type StructInstance struct {
	v      reflect.Value
	adding bool
}

// NewStructInstance wraps ptr, which must point to a struct.
func NewStructInstance(ptr any, adding bool) (*StructInstance, error) {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: expected pointer to struct, got %T", ErrInvalidModel, ptr)
	}
	return &StructInstance{v: rv.Elem(), adding: adding}, nil
}

// Attr returns the struct field named by the field's attribute. Nil pointers
// read as nil and other pointers are dereferenced.
func (s *StructInstance) Attr(f *Field) (any, error) {
	fv := s.v.FieldByName(f.AttrName())
	if !fv.IsValid() {
		return nil, fmt.Errorf("%w: %s has no field %s", ErrNoSuchAttribute, s.v.Type(), f.AttrName())
	}
	if fv.Kind() == reflect.Ptr {
		if fv.IsNil() {
			return nil, nil
		}
		fv = fv.Elem()
	}
	return fv.Interface(), nil
}

// SetAttr assigns value to the struct field named by the field's attribute.
func (s *StructInstance) SetAttr(f *Field, value any) error {
	fv := s.v.FieldByName(f.AttrName())
	if !fv.IsValid() || !fv.CanSet() {
		return fmt.Errorf("%w: %s has no settable field %s", ErrNoSuchAttribute, s.v.Type(), f.AttrName())
	}
	rv := reflect.ValueOf(value)
	if fv.Kind() == reflect.Ptr && rv.IsValid() && rv.Type().AssignableTo(fv.Type().Elem()) {
		p := reflect.New(fv.Type().Elem())
		p.Elem().Set(rv)
		fv.Set(p)
		return nil
	}
	if !rv.IsValid() || !rv.Type().AssignableTo(fv.Type()) {
		return fmt.Errorf("cannot assign %T to %s.%s", value, s.v.Type(), f.AttrName())
	}
	fv.Set(rv)
	return nil
}

// Adding reports whether the struct has not been stored yet.
func (s *StructInstance) Adding() bool {
	return s.adding
}
