package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// API is the subset of the DynamoDB client used by Store.
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Store writes materialized entities to DynamoDB, one table per kind.
type Store struct {
	client       API
	config       Config
	materializer *Materializer
	logger       *slog.Logger
	newID        func() int64
}

// New creates a new Store. A nil registry means no special indexes.
func New(client API, config Config, registry *IndexRegistry, logger *slog.Logger) *Store {
	config.validate()
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		client:       client,
		config:       config,
		materializer: NewMaterializer(config, registry, logger),
		logger:       logger,
		newID:        randomID,
	}
}

// Materializer returns the materializer the store saves with.
func (s *Store) Materializer() *Materializer {
	return s.materializer
}

// Config returns the store's validated configuration.
func (s *Store) Config() Config {
	return s.config
}

// ValueForDB converts values DynamoDB cannot store directly.
// UUIDs become strings and durations become nanosecond counts.
func (s *Store) ValueForDB(value any, f *Field) (any, error) {
	switch v := value.(type) {
	case uuid.UUID:
		return v.String(), nil
	case *uuid.UUID:
		if v == nil {
			return nil, nil
		}
		return v.String(), nil
	case time.Duration:
		return int64(v), nil
	}
	return value, nil
}

// SaveOptions configures Save.
type SaveOptions struct {
	// Fields of the model to store. Defaults to Model.AllFields.
	// Inherited fields are always stored.
	Fields []*Field

	// Raw reads attributes as is, skipping PreSave hooks.
	Raw bool

	// CreateOnly fails with ErrAlreadyExists if the key is already stored.
	CreateOnly bool
}

// Save materializes inst and puts the entity. It returns the stored key,
// which carries a generated id when the instance had no primary key.
func (s *Store) Save(ctx context.Context, model *Model, inst Instance, opts SaveOptions) (Key, error) {
	fields := opts.Fields
	if fields == nil {
		fields = model.AllFields()
	}
	entity, err := s.materializer.Materialize(s, model, fields, opts.Raw, inst)
	if err != nil {
		return Key{}, err
	}
	return s.Put(ctx, entity, opts.CreateOnly)
}

// Put writes an entity. Incomplete keys are given a random positive id.
func (s *Store) Put(ctx context.Context, entity *Entity, createOnly bool) (Key, error) {
	if entity.Key().PK.Incomplete() {
		entity = entity.withKey(IntID(s.newID()))
	}
	key := entity.Key()

	item, err := entity.Item(s.config)
	if err != nil {
		return Key{}, err
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.config.TableName(key.Kind)),
		Item:      item,
	}
	if createOnly {
		input.ConditionExpression = aws.String("attribute_not_exists(#key)")
		input.ExpressionAttributeNames = map[string]string{"#key": s.config.KeyAttribute}
	}

	if _, err := s.client.PutItem(ctx, input); err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return Key{}, fmt.Errorf("%s: %w", key, ErrAlreadyExists)
		}
		return Key{}, err
	}

	s.logger.Debug("entity stored", "key", key.String(), "columns", len(item))
	return key, nil
}

// Get retrieves an entity by key, returning ErrNotFound if missing.
func (s *Store) Get(ctx context.Context, key Key) (*Item, error) {
	keyAttrs, err := key.Attributes(s.config.KeyAttribute)
	if err != nil {
		return nil, err
	}

	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.config.TableName(key.Kind)),
		Key:       keyAttrs,
	})
	if err != nil {
		return nil, err
	}
	if result.Item == nil {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}

	return s.unmarshalItem(key, result.Item)
}

// Delete removes an entity by key. Deleting a missing entity succeeds.
func (s *Store) Delete(ctx context.Context, key Key) error {
	keyAttrs, err := key.Attributes(s.config.KeyAttribute)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.config.TableName(key.Kind)),
		Key:       keyAttrs,
	})
	return err
}

// FieldValue pairs a field with an application value.
type FieldValue struct {
	Field *Field
	Value any
}

// UpdateFields sets the given fields of a stored entity without loading it.
// Each value is prepared through a MockInstance and written together with
// its special index columns.
func (s *Store) UpdateFields(ctx context.Context, model *Model, pk PrimaryKey, values []FieldValue) error {
	columns, err := s.preparedColumns(model, values, true, false)
	if err != nil {
		return err
	}
	if len(columns) == 0 {
		return nil
	}
	return s.updateColumns(ctx, model, pk, columns)
}

// Reindex rewrites only the special index columns derived from the given
// stored values, as read back from an item. They are normalized and handed
// to the strategies without running PreSave, PrepSave or ValueForDB again.
func (s *Store) Reindex(ctx context.Context, model *Model, pk PrimaryKey, values []FieldValue) error {
	columns, err := s.preparedColumns(model, values, false, true)
	if err != nil {
		return err
	}
	if len(columns) == 0 {
		return nil
	}
	return s.updateColumns(ctx, model, pk, columns)
}

// preparedColumns returns the columns to write for values. Application
// values go through the full save pipeline; stored values only through
// normalization.
func (s *Store) preparedColumns(model *Model, values []FieldValue, withBase, stored bool) (map[string]any, error) {
	columns := make(map[string]any)
	for _, fv := range values {
		f := fv.Field
		if f.PrimaryKey {
			return nil, fmt.Errorf("%w: cannot update primary key %s", ErrInvalidPrimaryKey, f)
		}

		var (
			value any
			err   error
		)
		if stored {
			value, err = s.materializer.normalizer.ForField(f).Normalize(fv.Value)
			if err != nil {
				err = fmt.Errorf("normalize %s: %w", f, err)
			}
		} else {
			value, err = s.materializer.PreparedValue(s, NewMockInstance(f, fv.Value, false), f, false)
		}
		if err != nil {
			return nil, err
		}
		if !f.Null && value == nil {
			return nil, fmt.Errorf("%w: you can't set %s (a non-nullable field) to nil", ErrIntegrity, f.Name)
		}

		if withBase {
			columns[f.ColumnName()] = value
		}
		for _, st := range s.materializer.registry.StrategiesFor(model, f.ColumnName()) {
			columns[st.IndexedColumnName(f.ColumnName())] = st.Prepare(value)
		}
	}
	return columns, nil
}

func (s *Store) updateColumns(ctx context.Context, model *Model, pk PrimaryKey, columns map[string]any) error {
	key, err := BuildKey(model, pk)
	if err != nil {
		return err
	}
	keyAttrs, err := key.Attributes(s.config.KeyAttribute)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)

	setClauses := make([]string, 0, len(names))
	exprNames := map[string]string{"#key": s.config.KeyAttribute}
	exprValues := make(map[string]types.AttributeValue, len(names))
	for i, name := range names {
		av, err := attributevalue.Marshal(columns[name])
		if err != nil {
			return fmt.Errorf("marshal %s: %w", name, err)
		}
		nameKey := fmt.Sprintf("#attr%d", i)
		valueKey := fmt.Sprintf(":val%d", i)
		exprNames[nameKey] = name
		exprValues[valueKey] = av
		setClauses = append(setClauses, fmt.Sprintf("%s = %s", nameKey, valueKey))
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.config.TableName(key.Kind)),
		Key:                       keyAttrs,
		UpdateExpression:          aws.String("SET " + strings.Join(setClauses, ", ")),
		ConditionExpression:       aws.String("attribute_exists(#key)"),
		ExpressionAttributeNames:  exprNames,
		ExpressionAttributeValues: exprValues,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return err
	}
	return nil
}

// unmarshalItem converts a DynamoDB item to an Item struct.
func (s *Store) unmarshalItem(key Key, raw map[string]types.AttributeValue) (*Item, error) {
	item := &Item{Key: key, Raw: raw}
	if v, ok := raw[s.config.ClassAttribute]; ok {
		if err := attributevalue.Unmarshal(v, &item.Class); err != nil {
			return nil, fmt.Errorf("unmarshal class of %s: %w", key, err)
		}
	}
	return item, nil
}

// randomID returns a positive id drawn from a random UUID.
func randomID() int64 {
	u := uuid.New()
	id := int64(binary.BigEndian.Uint64(u[:8]) >> 1)
	if id == 0 {
		return 1
	}
	return id
}
