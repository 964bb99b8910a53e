package store

import (
	"fmt"
	"strings"
	"time"
)

// Model describes a storable type: its fields, storage kind and inheritance.
type Model struct {
	// Name is the model's type name (e.g., "Book").
	Name string

	// Kind is the storage kind (table) of the model.
	// Defaults to the lower-cased Name.
	Kind string

	// Abstract models only contribute fields to their children.
	Abstract bool

	// Proxy models share their concrete parent's storage.
	Proxy bool

	// Parents are the direct parent models, nearest first.
	Parents []*Model

	// Fields are the fields declared directly on this model.
	Fields []*Field
}

// NewModel creates a model with the given name and kind.
func NewModel(name, kind string, parents ...*Model) *Model {
	if kind == "" {
		kind = strings.ToLower(name)
	}
	return &Model{
		Name:    name,
		Kind:    kind,
		Parents: parents,
	}
}

// AddField declares a field on the model and returns it.
func (m *Model) AddField(f *Field) *Field {
	f.Model = m
	m.Fields = append(m.Fields, f)
	return f
}

// AllFields returns the fields stored in m's own table: those declared on m
// followed by those inherited from abstract and proxy parents, nearest first.
// Fields of concrete parents are stored in their own tables and are not included.
func (m *Model) AllFields() []*Field {
	fields := append([]*Field(nil), m.Fields...)
	seen := map[*Model]bool{m: true}
	var walk func(cur *Model)
	walk = func(cur *Model) {
		for _, p := range cur.Parents {
			if seen[p] || isConcrete(p) {
				continue
			}
			seen[p] = true
			fields = append(fields, p.Fields...)
			walk(p)
		}
	}
	walk(m)
	return fields
}

// Field returns the field declared on m with the given name.
func (m *Model) Field(name string) (*Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// FieldByColumn returns the field declared on m stored under column.
func (m *Model) FieldByColumn(column string) (*Field, bool) {
	for _, f := range m.Fields {
		if f.ColumnName() == column {
			return f, true
		}
	}
	return nil, false
}

// PrimaryKeyField returns the primary key field declared on m, if any.
func (m *Model) PrimaryKeyField() (*Field, bool) {
	for _, f := range m.Fields {
		if f.PrimaryKey {
			return f, true
		}
	}
	return nil, false
}

func (m *Model) String() string {
	return m.Name
}

// PreSaveFunc computes a field's value just before it is saved.
type PreSaveFunc func(inst Instance, f *Field, adding bool) (any, error)

// PrepSaveFunc converts an application value into a value the connection accepts.
type PrepSaveFunc func(conn Connection, value any) (any, error)

// Field describes one column of a Model.
type Field struct {
	// Name is the field name on the model.
	Name string

	// Column is the storage column name. Defaults to AttName.
	Column string

	// AttName is the attribute the value is read from. Defaults to Name.
	AttName string

	Null       bool
	PrimaryKey bool

	// MaxDigits and DecimalPlaces override Config for decimal fields.
	// Zero MaxDigits means the Config values apply.
	MaxDigits     int
	DecimalPlaces int

	// Model is the model that declares the field. Set by Model.AddField.
	Model *Model

	// PreSave is invoked on non-raw writes. Nil reads the raw attribute.
	PreSave PreSaveFunc

	// PrepSave is the save-time preparation bound to a connection. Nil is identity.
	PrepSave PrepSaveFunc
}

// AttrName returns the attribute name the field's value is read from.
func (f *Field) AttrName() string {
	if f.AttName != "" {
		return f.AttName
	}
	return f.Name
}

// ColumnName returns the storage column of the field.
func (f *Field) ColumnName() string {
	if f.Column != "" {
		return f.Column
	}
	return f.AttrName()
}

func (f *Field) String() string {
	if f.Model != nil {
		return f.Model.Name + "." + f.Name
	}
	return f.Name
}

func (f *Field) preSave(inst Instance, adding bool) (any, error) {
	if f.PreSave != nil {
		return f.PreSave(inst, f, adding)
	}
	return inst.Attr(f)
}

func (f *Field) prepSave(conn Connection, value any) (any, error) {
	if f.PrepSave != nil {
		return f.PrepSave(conn, value)
	}
	return value, nil
}

// Instance is a live value of a Model.
type Instance interface {
	// Attr returns the current value of the field's attribute.
	// Returns an error wrapping ErrNoSuchAttribute when the instance has none.
	Attr(f *Field) (any, error)

	// Adding reports whether the instance has not been stored yet.
	Adding() bool
}

// Setter is implemented by instances whose attributes pre-save hooks may update.
type Setter interface {
	SetAttr(f *Field, value any) error
}

// Connection prepares values for the store.
type Connection interface {
	ValueForDB(value any, f *Field) (any, error)
}

// Record is a map-backed Instance keyed by attribute name.
type Record struct {
	Values   map[string]any
	IsAdding bool
}

// NewRecord creates a record for an instance that has not been stored yet.
func NewRecord(values map[string]any) *Record {
	if values == nil {
		values = make(map[string]any)
	}
	return &Record{Values: values, IsAdding: true}
}

// Attr returns the value stored under the field's attribute name.
func (r *Record) Attr(f *Field) (any, error) {
	v, ok := r.Values[f.AttrName()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchAttribute, f.AttrName())
	}
	return v, nil
}

// SetAttr stores value under the field's attribute name.
func (r *Record) SetAttr(f *Field, value any) error {
	r.Values[f.AttrName()] = value
	return nil
}

// Adding reports whether the record is new.
func (r *Record) Adding() bool {
	return r.IsAdding
}

// AutoNow returns a PreSave hook that stamps the field with the current time.
// With onAdd set, only new instances are stamped (auto_now_add); otherwise
// every save is. The stamp is written back when the instance is a Setter.
func AutoNow(clock func() time.Time, onAdd bool) PreSaveFunc {
	if clock == nil {
		clock = time.Now
	}
	return func(inst Instance, f *Field, adding bool) (any, error) {
		if onAdd && !adding {
			return inst.Attr(f)
		}
		now := clock()
		if s, ok := inst.(Setter); ok {
			if err := s.SetAttr(f, now); err != nil {
				return nil, fmt.Errorf("set %s: %w", f, err)
			}
		}
		return now, nil
	}
}
