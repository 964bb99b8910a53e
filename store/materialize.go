package store

import (
	"fmt"
	"log/slog"

	"github.com/jacentio/lattice/internal/colname"
)

// Materializer converts model instances into entities.
//
// It holds no per-call state and is safe for concurrent use once its
// IndexRegistry is no longer modified.
type Materializer struct {
	config     Config
	normalizer Normalizer
	registry   *IndexRegistry
	logger     *slog.Logger
}

// NewMaterializer creates a Materializer. A nil registry means no special indexes.
func NewMaterializer(config Config, registry *IndexRegistry, logger *slog.Logger) *Materializer {
	config.validate()
	if logger == nil {
		logger = slog.Default()
	}
	return &Materializer{
		config:     config,
		normalizer: NewNormalizer(config),
		registry:   registry,
		logger:     logger,
	}
}

// Config returns the materializer's validated configuration.
func (m *Materializer) Config() Config {
	return m.config
}

// Registry returns the special index registry, or nil if not set.
func (m *Materializer) Registry() *IndexRegistry {
	return m.registry
}

// PreparedValue returns the stored form of a field's value on inst.
//
// Raw writes read the attribute as is; other writes run the field's PreSave
// hook. The value then goes through the field's PrepSave hook, the
// connection's ValueForDB and normalization.
func (m *Materializer) PreparedValue(conn Connection, inst Instance, f *Field, raw bool) (any, error) {
	var (
		value any
		err   error
	)
	if raw {
		value, err = inst.Attr(f)
	} else {
		value, err = f.preSave(inst, inst.Adding())
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f, err)
	}

	if value, err = f.prepSave(conn, value); err != nil {
		return nil, fmt.Errorf("prepare %s: %w", f, err)
	}
	if value, err = conn.ValueForDB(value, f); err != nil {
		return nil, fmt.Errorf("convert %s: %w", f, err)
	}
	if value, err = m.normalizer.ForField(f).Normalize(value); err != nil {
		return nil, fmt.Errorf("normalize %s: %w", f, err)
	}
	return value, nil
}

// Materialize builds the entity storing inst, an instance of model.
//
// fields lists the model's own fields to store. Fields inherited from
// abstract parents and fields of concrete ancestors (with their abstract
// parents) are always appended. The entity is stored under the top concrete
// ancestor's kind and only the root's primary key becomes the entity key.
// The fields slice is not modified.
func (m *Materializer) Materialize(conn Connection, model *Model, fields []*Field, raw bool, inst Instance) (*Entity, error) {
	concrete, err := ConcreteAncestors(model)
	if err != nil {
		return nil, err
	}
	root := concrete[len(concrete)-1]

	var class []string
	if len(concrete) > 1 {
		class = make([]string, len(concrete))
		for i, c := range concrete {
			class[i] = c.Kind
		}
	}

	// owner is the concrete model whose table a field belongs to.
	owner := make(map[*Field]*Model)
	for _, c := range concrete {
		for _, f := range c.AllFields() {
			if _, ok := owner[f]; !ok {
				owner[f] = c
			}
		}
	}

	all := make([]*Field, 0, len(fields)+len(owner))
	listed := make(map[*Field]bool, len(fields)+len(owner))
	for _, f := range fields {
		if !listed[f] {
			listed[f] = true
			all = append(all, f)
		}
	}
	for _, c := range concrete {
		for _, f := range c.AllFields() {
			if listed[f] || (c == model && f.Model == model) {
				continue
			}
			listed[f] = true
			all = append(all, f)
		}
	}
	fields = all

	props := make(map[string]any, len(fields))
	var pkValue any

	for _, f := range fields {
		value, err := m.PreparedValue(conn, inst, f, raw)
		if err != nil {
			return nil, err
		}

		if !f.Null && !f.PrimaryKey && value == nil {
			return nil, fmt.Errorf("%w: you can't set %s (a non-nullable field) to nil", ErrIntegrity, f.Name)
		}

		if f.PrimaryKey && owner[f] == root {
			pkValue = value
		} else {
			props[f.ColumnName()] = value
		}

		for _, s := range m.registry.StrategiesFor(model, f.ColumnName()) {
			props[s.IndexedColumnName(f.ColumnName())] = s.Prepare(value)
		}
	}

	pk, err := m.primaryKey(root, pkValue)
	if err != nil {
		return nil, err
	}

	return &Entity{
		kind:  root.Kind,
		key:   pk,
		props: props,
		class: class,
	}, nil
}

func (m *Materializer) primaryKey(root *Model, value any) (PrimaryKey, error) {
	pk, err := PrimaryKeyOf(value)
	if err != nil {
		return PrimaryKey{}, fmt.Errorf("%s: %w", root, err)
	}

	name, ok := pk.Name()
	if !ok {
		return pk, nil
	}
	truncated, cut := colname.Truncate(name, m.config.MaxKeyNameLength)
	if cut {
		m.logger.Warn("truncating primary key; this is an error in the calling program",
			"kind", root.Kind,
			"length", len([]rune(name)),
			"max", m.config.MaxKeyNameLength,
		)
		pk = NameKey(truncated)
	}
	return pk, nil
}
