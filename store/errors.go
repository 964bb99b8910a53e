package store

import "errors"

var (
	// ErrUnsupportedConfiguration is returned when a timezone-aware timestamp is
	// normalized while Config.UseTZ is false.
	ErrUnsupportedConfiguration = errors.New("lattice: timezone-aware timestamps require UseTZ")

	// ErrIntegrity is returned when a non-nullable, non-primary-key field resolves to nil.
	ErrIntegrity = errors.New("lattice: integrity error")

	// ErrInvalidPrimaryKey is returned when a primary key value is neither an integer nor a string.
	ErrInvalidPrimaryKey = errors.New("lattice: invalid primary key value")

	// ErrAmbiguousInheritance is returned when a model's concrete ancestors do not form a single chain.
	ErrAmbiguousInheritance = errors.New("lattice: ambiguous model inheritance")

	// ErrAbstractModel is returned when a model has no concrete model in its inheritance chain.
	ErrAbstractModel = errors.New("lattice: model has no concrete storage")

	// ErrNoSuchAttribute is returned by an Instance that does not carry a value for a field.
	ErrNoSuchAttribute = errors.New("lattice: no such attribute")

	// ErrDecimalOverflow is returned when a decimal does not fit the configured digit count.
	ErrDecimalOverflow = errors.New("lattice: decimal exceeds max digits")

	// ErrIncompleteKey is returned when an operation needs a complete key.
	ErrIncompleteKey = errors.New("lattice: incomplete key")

	// ErrInvalidModel is returned when a model definition cannot be built.
	ErrInvalidModel = errors.New("lattice: invalid model definition")

	// ErrNotFound is returned when an entity doesn't exist.
	ErrNotFound = errors.New("lattice: entity not found")

	// ErrAlreadyExists is returned when a create-only save finds an existing entity.
	ErrAlreadyExists = errors.New("lattice: entity already exists")
)
