package store

import (
	"fmt"
	"math"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// PK represents a DynamoDB primary key.
type PK map[string]types.AttributeValue

type pkKind uint8

const (
	pkNone pkKind = iota
	pkInt
	pkName
)

// PrimaryKey is the key component of an entity: a numeric id, a string name,
// or neither (an incomplete key the store assigns on insert).
type PrimaryKey struct {
	kind pkKind
	id   int64
	name string
}

// IntID returns a numeric primary key.
func IntID(id int64) PrimaryKey {
	return PrimaryKey{kind: pkInt, id: id}
}

// NameKey returns a string primary key.
func NameKey(name string) PrimaryKey {
	return PrimaryKey{kind: pkName, name: name}
}

// PrimaryKeyOf decides the primary key variant of a prepared value.
// Nil, zero and empty values yield an incomplete key.
func PrimaryKeyOf(v any) (PrimaryKey, error) {
	var id int64
	switch t := v.(type) {
	case nil:
		return PrimaryKey{}, nil
	case PrimaryKey:
		return t, nil
	case string:
		if t == "" {
			return PrimaryKey{}, nil
		}
		return NameKey(t), nil
	case int:
		id = int64(t)
	case int8:
		id = int64(t)
	case int16:
		id = int64(t)
	case int32:
		id = int64(t)
	case int64:
		id = t
	case uint8:
		id = int64(t)
	case uint16:
		id = int64(t)
	case uint32:
		id = int64(t)
	case uint:
		if uint64(t) > math.MaxInt64 {
			return PrimaryKey{}, fmt.Errorf("%w: %d overflows int64", ErrInvalidPrimaryKey, t)
		}
		id = int64(t)
	case uint64:
		if t > math.MaxInt64 {
			return PrimaryKey{}, fmt.Errorf("%w: %d overflows int64", ErrInvalidPrimaryKey, t)
		}
		id = int64(t)
	default:
		return PrimaryKey{}, fmt.Errorf("%w: %T", ErrInvalidPrimaryKey, v)
	}
	if id == 0 {
		return PrimaryKey{}, nil
	}
	return IntID(id), nil
}

// ID returns the numeric id, if the key has one.
func (k PrimaryKey) ID() (int64, bool) {
	return k.id, k.kind == pkInt
}

// Name returns the string name, if the key has one.
func (k PrimaryKey) Name() (string, bool) {
	return k.name, k.kind == pkName
}

// Incomplete reports whether the key has neither id nor name.
func (k PrimaryKey) Incomplete() bool {
	return k.kind == pkNone
}

// AttributeValue renders the key component as a DynamoDB attribute.
func (k PrimaryKey) AttributeValue() (types.AttributeValue, error) {
	switch k.kind {
	case pkInt:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(k.id, 10)}, nil
	case pkName:
		return &types.AttributeValueMemberS{Value: k.name}, nil
	}
	return nil, ErrIncompleteKey
}

func (k PrimaryKey) String() string {
	switch k.kind {
	case pkInt:
		return strconv.FormatInt(k.id, 10)
	case pkName:
		return strconv.Quote(k.name)
	}
	return "<incomplete>"
}

// Key identifies an entity within a kind.
type Key struct {
	Kind string
	PK   PrimaryKey
}

// BuildKey returns the key of the entity storing the model instance with
// primary key pk. The kind is the model's top concrete parent's kind.
func BuildKey(model *Model, pk PrimaryKey) (Key, error) {
	kind, err := StorageKind(model)
	if err != nil {
		return Key{}, err
	}
	return Key{Kind: kind, PK: pk}, nil
}

// Attributes returns the DynamoDB key map with the key stored under attr.
func (k Key) Attributes(attr string) (PK, error) {
	v, err := k.PK.AttributeValue()
	if err != nil {
		return nil, fmt.Errorf("key for %s: %w", k.Kind, err)
	}
	return PK{attr: v}, nil
}

func (k Key) String() string {
	return k.Kind + "(" + k.PK.String() + ")"
}

// KeyFromAttribute decodes a key component written by PrimaryKey.AttributeValue.
func KeyFromAttribute(kind string, v types.AttributeValue) (Key, error) {
	switch t := v.(type) {
	case *types.AttributeValueMemberN:
		id, err := strconv.ParseInt(t.Value, 10, 64)
		if err != nil {
			return Key{}, fmt.Errorf("%w: %s", ErrInvalidPrimaryKey, t.Value)
		}
		return Key{Kind: kind, PK: IntID(id)}, nil
	case *types.AttributeValueMemberS:
		return Key{Kind: kind, PK: NameKey(t.Value)}, nil
	}
	return Key{}, fmt.Errorf("%w: %T", ErrInvalidPrimaryKey, v)
}
