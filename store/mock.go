package store

import "fmt"

// MockInstance exposes a single field's value. It lets a caller holding one
// stored value, such as a partial update, run it through the save pipeline
// without building a full instance.
type MockInstance struct {
	field  *Field
	value  any
	adding bool
}

// NewMockInstance wraps value as the attribute of field.
func NewMockInstance(field *Field, value any, adding bool) *MockInstance {
	return &MockInstance{field: field, value: value, adding: adding}
}

// Attr returns the wrapped value for the wrapped field only.
func (m *MockInstance) Attr(f *Field) (any, error) {
	if f != m.field {
		return nil, fmt.Errorf("%w: mock instance of %s has no %s", ErrNoSuchAttribute, m.field, f)
	}
	return m.value, nil
}

// SetAttr replaces the wrapped value when f is the wrapped field.
func (m *MockInstance) SetAttr(f *Field, value any) error {
	if f != m.field {
		return fmt.Errorf("%w: mock instance of %s has no %s", ErrNoSuchAttribute, m.field, f)
	}
	m.value = value
	return nil
}

// Adding reports whether the value belongs to an instance not yet stored.
func (m *MockInstance) Adding() bool {
	return m.adding
}
