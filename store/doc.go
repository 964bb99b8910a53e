// Package store translates relational model instances into entities for a
// schemaless key/value store and writes them to DynamoDB.
//
// The store keeps relational semantics the datastore lacks: primary keys,
// multi-table inheritance, ordered comparisons on timestamps and decimals,
// and specially indexed derived columns.
//
// # Models
//
// A [Model] lists its [Field] descriptors, a storage kind and its parents.
// Models can be declared by hand or built from struct tags:
//
//	type Book struct {
//	    ID    int64           `lattice:"id,pk"`
//	    Title string          `lattice:"title"`
//	    Price decimal.Decimal `lattice:"price,digits=10,places=2"`
//	}
//
//	book, err := store.ModelFromStruct(Book{}, "books")
//
// # Inheritance
//
// Concrete children of a concrete model are stored under the top-most
// concrete ancestor's kind. Their entities carry every ancestor's fields and
// a "class" attribute listing all concrete kinds, leaf first. Abstract and
// proxy models own no storage.
//
// # Materialization
//
// [Materializer.Materialize] converts an [Instance] into an [Entity]:
//
//	m := store.NewMaterializer(store.DefaultConfig(), registry, logger)
//	entity, err := m.Materialize(conn, book, book.Fields, false, inst)
//
// Each value runs through the field's PreSave (skipped for raw writes) and
// PrepSave hooks, the [Connection] and the [Normalizer].
//
// # Special indexes
//
// An [IndexRegistry] maps a model column to [Strategy] values that store
// derived columns next to the base column. Populate it at startup and call
// Seal; it is read-only afterwards.
//
// # Errors
//
// The package defines domain-specific errors:
//
//   - [ErrIntegrity] - a non-nullable field resolved to nil
//   - [ErrInvalidPrimaryKey] - primary key is neither integer nor string
//   - [ErrUnsupportedConfiguration] - aware timestamp without UseTZ
//   - [ErrAmbiguousInheritance] - concrete ancestors do not form a chain
//   - [ErrNotFound] - entity doesn't exist
//   - [ErrAlreadyExists] - create-only save found an existing entity
package store
