package store

// Config holds configuration for materialization and the Store.
type Config struct {
	// UseTZ allows timezone-aware timestamps; they are stored as UTC.
	// When false, aware timestamps are rejected with ErrUnsupportedConfiguration.
	// Default: false
	UseTZ bool

	// DecimalMaxDigits is the total digit width used to encode decimals
	// when the field does not set its own.
	// Default: 16
	DecimalMaxDigits int

	// DecimalPlaces is the number of fractional digits used to encode decimals
	// when the field does not set its own.
	// Default: 0
	DecimalPlaces int

	// MaxKeyNameLength is the longest string primary key stored verbatim.
	// Longer keys are truncated with a warning.
	// Default: 500
	MaxKeyNameLength int

	// KeyAttribute is the item attribute holding the entity key.
	// Default: "id"
	KeyAttribute string

	// ClassAttribute is the item attribute listing the concrete kinds of
	// an entity stored with multi-table inheritance.
	// Default: "class"
	ClassAttribute string

	// TablePrefix is prepended to every kind to form the DynamoDB table name.
	// Default: ""
	TablePrefix string
}

// DefaultConfig returns the defaults used by the datastore backend.
func DefaultConfig() Config {
	return Config{
		DecimalMaxDigits: 16,
		DecimalPlaces:    0,
		MaxKeyNameLength: 500,
		KeyAttribute:     "id",
		ClassAttribute:   "class",
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.DecimalMaxDigits < 1 {
		c.DecimalMaxDigits = 16
	}
	if c.DecimalPlaces < 0 {
		c.DecimalPlaces = 0
	}
	if c.DecimalPlaces > c.DecimalMaxDigits {
		c.DecimalPlaces = c.DecimalMaxDigits
	}
	if c.MaxKeyNameLength < 1 {
		c.MaxKeyNameLength = 500
	}
	if c.KeyAttribute == "" {
		c.KeyAttribute = "id"
	}
	if c.ClassAttribute == "" {
		c.ClassAttribute = "class"
	}
}

// TableName returns the DynamoDB table that stores the given kind.
func (c Config) TableName(kind string) string {
	return c.TablePrefix + kind
}
