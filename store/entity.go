package store

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Entity is a materialized record: a kind, an optional key and a column to
// value mapping. Entities are immutable once returned by the Materializer.
type Entity struct {
	kind  string
	key   PrimaryKey
	props map[string]any
	class []string
}

// Kind returns the storage kind of the entity.
func (e *Entity) Kind() string {
	return e.kind
}

// Key returns the entity key. The key is incomplete when the store has to assign an id.
func (e *Entity) Key() Key {
	return Key{Kind: e.kind, PK: e.key}
}

// Property returns the value stored under column.
func (e *Entity) Property(column string) (any, bool) {
	v, ok := e.props[column]
	return v, ok
}

// Properties returns a copy of the column to value mapping.
func (e *Entity) Properties() map[string]any {
	out := make(map[string]any, len(e.props))
	for k, v := range e.props {
		out[k] = v
	}
	return out
}

// Class returns the concrete kinds of the entity's model, leaf first.
// It is nil for models without concrete parents.
func (e *Entity) Class() []string {
	if e.class == nil {
		return nil
	}
	return append([]string(nil), e.class...)
}

// withKey returns a copy of the entity with the key component replaced.
func (e *Entity) withKey(pk PrimaryKey) *Entity {
	c := *e
	c.key = pk
	return &c
}

// Item renders the entity as a DynamoDB item.
func (e *Entity) Item(cfg Config) (map[string]types.AttributeValue, error) {
	cfg.validate()

	item, err := attributevalue.MarshalMap(e.props)
	if err != nil {
		return nil, fmt.Errorf("marshal %s properties: %w", e.kind, err)
	}

	if !e.key.Incomplete() {
		keyAttr, err := e.key.AttributeValue()
		if err != nil {
			return nil, err
		}
		item[cfg.KeyAttribute] = keyAttr
	}

	if len(e.class) > 0 {
		classAttr, err := attributevalue.MarshalList(e.class)
		if err != nil {
			return nil, fmt.Errorf("marshal class: %w", err)
		}
		item[cfg.ClassAttribute] = &types.AttributeValueMemberL{Value: classAttr}
	}

	return item, nil
}

// Item represents a retrieved DynamoDB item.
type Item struct {
	// Key is the decoded entity key.
	Key Key

	// Raw is the raw DynamoDB item.
	Raw map[string]types.AttributeValue

	// Class lists the concrete kinds stored with the item, if any.
	Class []string
}

// Unmarshal decodes the item's attributes into out.
func (i *Item) Unmarshal(out any) error {
	return attributevalue.UnmarshalMap(i.Raw, out)
}
