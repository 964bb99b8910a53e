package store

import (
	"fmt"
	"sort"
)

// Strategy derives an additional stored column that enables a lookup the
// store cannot do natively, such as case-insensitive matching.
type Strategy interface {
	// Name identifies the strategy (e.g., "iexact").
	Name() string

	// IndexedColumnName returns the column the derived value is stored under.
	IndexedColumnName(column string) string

	// Prepare returns the derived value for a normalized column value.
	Prepare(value any) any
}

// StrategyLookup resolves a strategy by name.
type StrategyLookup func(name string) (Strategy, bool)

type indexKey struct {
	model  *Model
	column string
}

// IndexRegistry holds the special indexes registered per model column.
//
// It is populated during startup and read-only afterwards; concurrent calls
// to StrategiesFor are safe once registration is complete.
type IndexRegistry struct {
	byColumn map[indexKey][]Strategy
	byModel  map[*Model][]string
	sealed   bool
}

// NewIndexRegistry creates a new empty IndexRegistry.
func NewIndexRegistry() *IndexRegistry {
	return &IndexRegistry{
		byColumn: make(map[indexKey][]Strategy),
		byModel:  make(map[*Model][]string),
	}
}

// Register adds strategies for a model column.
// It panics when called after Seal.
func (r *IndexRegistry) Register(model *Model, column string, strategies ...Strategy) {
	if r.sealed {
		panic(fmt.Sprintf("lattice: index registered for %s.%s after Seal", model, column))
	}
	if len(strategies) == 0 {
		return
	}
	key := indexKey{model: model, column: column}
	if _, ok := r.byColumn[key]; !ok {
		r.byModel[model] = append(r.byModel[model], column)
	}
	r.byColumn[key] = append(r.byColumn[key], strategies...)
}

// RegisterNamed resolves each name with lookup and registers the strategies.
func (r *IndexRegistry) RegisterNamed(model *Model, column string, lookup StrategyLookup, names ...string) error {
	strategies := make([]Strategy, 0, len(names))
	for _, name := range names {
		s, ok := lookup(name)
		if !ok {
			return fmt.Errorf("unknown index %q for %s.%s", name, model, column)
		}
		strategies = append(strategies, s)
	}
	r.Register(model, column, strategies...)
	return nil
}

// Seal marks the registry read-only.
func (r *IndexRegistry) Seal() {
	r.sealed = true
}

// StrategiesFor returns the strategies registered for exactly this model and column.
func (r *IndexRegistry) StrategiesFor(model *Model, column string) []Strategy {
	if r == nil {
		return nil
	}
	return r.byColumn[indexKey{model: model, column: column}]
}

// Columns returns the specially indexed columns of a model, sorted.
func (r *IndexRegistry) Columns(model *Model) []string {
	if r == nil {
		return nil
	}
	cols := append([]string(nil), r.byModel[model]...)
	sort.Strings(cols)
	return cols
}

// HasIndexes returns true if any column of the model has a special index.
func (r *IndexRegistry) HasIndexes(model *Model) bool {
	return r != nil && len(r.byModel[model]) > 0
}
