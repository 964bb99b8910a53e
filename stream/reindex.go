// Package stream provides DynamoDB Streams handlers that keep special index
// columns in step with items written outside the materializer.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/lattice/store"
)

// Handler processes DynamoDB stream events and rewrites stale special index columns.
type Handler struct {
	store  *store.Store
	models map[string]*store.Model
	logger *slog.Logger
}

// NewHandler creates a new stream handler for the given models.
func NewHandler(s *store.Store, models []*store.Model, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	byKind := make(map[string]*store.Model, len(models))
	for _, m := range models {
		byKind[m.Kind] = m
	}
	return &Handler{
		store:  s,
		models: byKind,
		logger: logger,
	}
}

// HandleReindex processes DynamoDB stream events and re-derives the special
// index columns of inserted or modified items whose indexed values changed.
// This function is designed to be used as an AWS Lambda handler.
func (h *Handler) HandleReindex(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			if errors.Is(err, store.ErrIntegrity) || errors.Is(err, store.ErrInvalidPrimaryKey) {
				h.logger.Warn("skipping record that cannot be reindexed",
					"eventID", record.EventID,
					"error", err,
				)
				continue
			}
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

// processRecord processes a single DynamoDB stream record.
func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	if record.EventName != "INSERT" && record.EventName != "MODIFY" {
		return nil
	}

	cfg := h.store.Config()
	kind := strings.TrimPrefix(tableFromARN(record.EventSourceArn), cfg.TablePrefix)

	// The leaf kind comes first in the class list of inherited entities.
	if class := getStringListAttr(record.Change.NewImage, cfg.ClassAttribute); len(class) > 0 {
		kind = class[0]
	}
	model, ok := h.models[kind]
	if !ok {
		return nil
	}

	registry := h.store.Materializer().Registry()
	columns := registry.Columns(model)
	if len(columns) == 0 {
		return nil
	}

	key, err := keyFromImage(record.Change.Keys, cfg.KeyAttribute, kind)
	if err != nil {
		return err
	}

	var values []store.FieldValue
	for _, column := range columns {
		field, err := fieldByColumn(model, column)
		if err != nil {
			return err
		}
		if field == nil || field.PrimaryKey {
			continue
		}
		newValue := getAttr(record.Change.NewImage, column)
		if record.EventName == "MODIFY" {
			oldValue := getAttr(record.Change.OldImage, column)
			if reflect.DeepEqual(oldValue, newValue) {
				continue
			}
		}
		values = append(values, store.FieldValue{Field: field, Value: newValue})
	}

	if len(values) == 0 {
		return nil
	}

	h.logger.Info("reindexing entity",
		"kind", kind,
		"key", key.String(),
		"fields", len(values),
	)

	if err := h.store.Reindex(ctx, model, key.PK, values); err != nil {
		return fmt.Errorf("reindex %s: %w", key, err)
	}
	return nil
}

// fieldByColumn finds the field stored under column on the model or its ancestors.
func fieldByColumn(model *store.Model, column string) (*store.Field, error) {
	chain, err := store.ConcreteAncestors(model)
	if err != nil {
		return nil, err
	}
	for _, m := range chain {
		for _, f := range m.AllFields() {
			if f.ColumnName() == column {
				return f, nil
			}
		}
	}
	return nil, nil
}

// tableFromARN extracts the table name from a stream ARN
// ("arn:aws:dynamodb:region:account:table/NAME/stream/LABEL").
func tableFromARN(arn string) string {
	parts := strings.Split(arn, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// keyFromImage converts the key attribute of a stream record to a store.Key.
func keyFromImage(keys map[string]events.DynamoDBAttributeValue, attr, kind string) (store.Key, error) {
	v, ok := keys[attr]
	if !ok {
		return store.Key{}, fmt.Errorf("%w: stream record has no %q key", store.ErrIncompleteKey, attr)
	}
	switch v.DataType() {
	case events.DataTypeString:
		return store.Key{Kind: kind, PK: store.NameKey(v.String())}, nil
	case events.DataTypeNumber:
		id, err := strconv.ParseInt(v.Number(), 10, 64)
		if err != nil {
			return store.Key{}, fmt.Errorf("%w: %s", store.ErrInvalidPrimaryKey, v.Number())
		}
		return store.Key{Kind: kind, PK: store.IntID(id)}, nil
	}
	return store.Key{}, fmt.Errorf("%w: key of type %v", store.ErrInvalidPrimaryKey, v.DataType())
}

// getAttr decodes an attribute of a stream image, or nil when it is absent.
func getAttr(image map[string]events.DynamoDBAttributeValue, key string) any {
	if v, ok := image[key]; ok {
		return decodeAttr(v)
	}
	return nil
}

// decodeAttr converts a stream attribute to the Go value the store would have written.
func decodeAttr(v events.DynamoDBAttributeValue) any {
	switch v.DataType() {
	case events.DataTypeString:
		return v.String()
	case events.DataTypeNumber:
		if n, err := strconv.ParseInt(v.Number(), 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(v.Number(), 64); err == nil {
			return f
		}
		return v.Number()
	case events.DataTypeBoolean:
		return v.Boolean()
	case events.DataTypeBinary:
		return v.Binary()
	case events.DataTypeStringSet:
		return v.StringSet()
	case events.DataTypeList:
		list := v.List()
		out := make([]any, len(list))
		for i, item := range list {
			out[i] = decodeAttr(item)
		}
		return out
	case events.DataTypeMap:
		m := v.Map()
		out := make(map[string]any, len(m))
		for k, item := range m {
			out[k] = decodeAttr(item)
		}
		return out
	}
	return nil
}

// getStringListAttr extracts a string list attribute from a DynamoDB stream image.
func getStringListAttr(image map[string]events.DynamoDBAttributeValue, key string) []string {
	if v, ok := image[key]; ok {
		if v.DataType() == events.DataTypeList {
			var result []string
			for _, item := range v.List() {
				if item.DataType() == events.DataTypeString {
					result = append(result, item.String())
				}
			}
			return result
		}
	}
	return nil
}
