package store_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/jacentio/lattice/store"
)

// fakeDynamo records requests and serves items from memory.
type fakeDynamo struct {
	puts    []*dynamodb.PutItemInput
	updates []*dynamodb.UpdateItemInput
	deletes []*dynamodb.DeleteItemInput
	items   map[string]map[string]types.AttributeValue
	putErr  error
	updErr  error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func itemKey(table string, key map[string]types.AttributeValue) string {
	var parts []string
	for k, v := range key {
		switch t := v.(type) {
		case *types.AttributeValueMemberN:
			parts = append(parts, k+"=N"+t.Value)
		case *types.AttributeValueMemberS:
			parts = append(parts, k+"=S"+t.Value)
		}
	}
	return table + "/" + strings.Join(parts, ",")
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.items[itemKey(*in.TableName, map[string]types.AttributeValue{"id": in.Item["id"]})] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: f.items[itemKey(*in.TableName, in.Key)]}, nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updates = append(f.updates, in)
	if f.updErr != nil {
		return nil, f.updErr
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.deletes = append(f.deletes, in)
	delete(f.items, itemKey(*in.TableName, in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestNewStore(t *testing.T) {
	s := store.New(newFakeDynamo(), store.Config{}, nil, nil)
	if s == nil {
		t.Fatal("expected non-nil Store")
	}
	if s.Config().KeyAttribute != "id" {
		t.Errorf("expected validated KeyAttribute 'id', got %q", s.Config().KeyAttribute)
	}
	if s.Materializer() == nil {
		t.Error("expected materializer")
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	client := newFakeDynamo()
	cfg := store.DefaultConfig()
	cfg.TablePrefix = "test-"
	s := store.New(client, cfg, nil, nil)

	c := newChain()
	inst := store.NewRecord(map[string]any{
		"id": int64(3), "author": "Le Guin",
		"work_ptr_id": int64(3), "isbn": "x",
		"book_ptr_id": int64(3), "genre": "sf",
	})

	key, err := s.Save(ctx, c.novel, inst, store.SaveOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key.Kind != "works" {
		t.Errorf("expected kind 'works', got %q", key.Kind)
	}

	if len(client.puts) != 1 {
		t.Fatalf("expected 1 put, got %d", len(client.puts))
	}
	put := client.puts[0]
	if aws.ToString(put.TableName) != "test-works" {
		t.Errorf("expected table 'test-works', got %q", aws.ToString(put.TableName))
	}
	if put.ConditionExpression != nil {
		t.Errorf("expected no condition, got %q", aws.ToString(put.ConditionExpression))
	}
	if n, ok := put.Item["id"].(*types.AttributeValueMemberN); !ok || n.Value != "3" {
		t.Errorf("expected id N 3, got %#v", put.Item["id"])
	}

	item, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"novels", "books", "works"}, item.Class); diff != "" {
		t.Errorf("class mismatch (-want +got):\n%s", diff)
	}

	var decoded struct {
		Author string `dynamodbav:"author"`
		Genre  string `dynamodbav:"genre"`
	}
	if err := item.Unmarshal(&decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.Author != "Le Guin" || decoded.Genre != "sf" {
		t.Errorf("unexpected decoded item %+v", decoded)
	}
}

func TestStore_SaveAssignsID(t *testing.T) {
	client := newFakeDynamo()
	s := store.New(client, store.DefaultConfig(), nil, nil)
	book := bookModel()

	key, err := s.Save(context.Background(), book, store.NewRecord(map[string]any{
		"id": nil, "title": "Untitled", "subtitle": nil,
	}), store.SaveOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id, ok := key.PK.ID()
	if !ok || id <= 0 {
		t.Errorf("expected a positive generated id, got %v", key.PK)
	}
}

func TestStore_SaveCreateOnly(t *testing.T) {
	client := newFakeDynamo()
	client.putErr = &types.ConditionalCheckFailedException{Message: aws.String("exists")}
	s := store.New(client, store.DefaultConfig(), nil, nil)

	_, err := s.Save(context.Background(), bookModel(), store.NewRecord(map[string]any{
		"id": int64(1), "title": "Dune", "subtitle": nil,
	}), store.SaveOptions{CreateOnly: true})
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if aws.ToString(client.puts[0].ConditionExpression) != "attribute_not_exists(#key)" {
		t.Errorf("unexpected condition %q", aws.ToString(client.puts[0].ConditionExpression))
	}
}

func TestStore_SaveRejectsInvalidInstance(t *testing.T) {
	client := newFakeDynamo()
	s := store.New(client, store.DefaultConfig(), nil, nil)

	_, err := s.Save(context.Background(), bookModel(), store.NewRecord(map[string]any{
		"id": int64(1), "title": nil, "subtitle": nil,
	}), store.SaveOptions{})
	if !errors.Is(err, store.ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}
	if len(client.puts) != 0 {
		t.Errorf("expected no write, got %d puts", len(client.puts))
	}
}

func TestStore_GetNotFound(t *testing.T) {
	s := store.New(newFakeDynamo(), store.DefaultConfig(), nil, nil)
	_, err := s.Get(context.Background(), store.Key{Kind: "books", PK: store.IntID(404)})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	_, err = s.Get(context.Background(), store.Key{Kind: "books"})
	if !errors.Is(err, store.ErrIncompleteKey) {
		t.Errorf("expected ErrIncompleteKey, got %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	client := newFakeDynamo()
	s := store.New(client, store.DefaultConfig(), nil, nil)

	if err := s.Delete(context.Background(), store.Key{Kind: "books", PK: store.NameKey("a")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.deletes) != 1 || aws.ToString(client.deletes[0].TableName) != "books" {
		t.Errorf("expected one delete on 'books', got %v", client.deletes)
	}
}

func TestStore_UpdateFields(t *testing.T) {
	client := newFakeDynamo()
	book := bookModel()
	title, _ := book.Field("title")
	subtitle, _ := book.Field("subtitle")

	registry := store.NewIndexRegistry()
	registry.Register(book, "title", upper{})
	registry.Seal()
	s := store.New(client, store.DefaultConfig(), registry, nil)

	err := s.UpdateFields(context.Background(), book, store.IntID(9), []store.FieldValue{
		{Field: title, Value: "Dune"},
		{Field: subtitle, Value: nil},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	upd := client.updates[0]
	expectedExpr := "SET #attr0 = :val0, #attr1 = :val1, #attr2 = :val2"
	if aws.ToString(upd.UpdateExpression) != expectedExpr {
		t.Errorf("expected %q, got %q", expectedExpr, aws.ToString(upd.UpdateExpression))
	}
	expectedNames := map[string]string{
		"#key":   "id",
		"#attr0": "_upper_title",
		"#attr1": "subtitle",
		"#attr2": "title",
	}
	if diff := cmp.Diff(expectedNames, upd.ExpressionAttributeNames); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if v, ok := upd.ExpressionAttributeValues[":val0"].(*types.AttributeValueMemberS); !ok || v.Value != "DUNE" {
		t.Errorf("expected DUNE, got %#v", upd.ExpressionAttributeValues[":val0"])
	}
	if _, ok := upd.ExpressionAttributeValues[":val1"].(*types.AttributeValueMemberNULL); !ok {
		t.Errorf("expected NULL, got %#v", upd.ExpressionAttributeValues[":val1"])
	}
}

func TestStore_UpdateFieldsErrors(t *testing.T) {
	client := newFakeDynamo()
	s := store.New(client, store.DefaultConfig(), nil, nil)
	book := bookModel()
	id, _ := book.Field("id")
	title, _ := book.Field("title")

	err := s.UpdateFields(context.Background(), book, store.IntID(1), []store.FieldValue{{Field: id, Value: int64(2)}})
	if !errors.Is(err, store.ErrInvalidPrimaryKey) {
		t.Errorf("expected ErrInvalidPrimaryKey, got %v", err)
	}

	err = s.UpdateFields(context.Background(), book, store.IntID(1), []store.FieldValue{{Field: title, Value: nil}})
	if !errors.Is(err, store.ErrIntegrity) {
		t.Errorf("expected ErrIntegrity, got %v", err)
	}

	client.updErr = &types.ConditionalCheckFailedException{Message: aws.String("missing")}
	err = s.UpdateFields(context.Background(), book, store.IntID(1), []store.FieldValue{{Field: title, Value: "x"}})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Reindex(t *testing.T) {
	client := newFakeDynamo()
	book := bookModel()
	title, _ := book.Field("title")
	subtitle, _ := book.Field("subtitle")

	registry := store.NewIndexRegistry()
	registry.Register(book, "title", upper{})
	s := store.New(client, store.DefaultConfig(), registry, nil)

	err := s.Reindex(context.Background(), book, store.IntID(9), []store.FieldValue{
		{Field: title, Value: "dune"},
		{Field: subtitle, Value: "unindexed"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(client.updates))
	}
	if aws.ToString(client.updates[0].UpdateExpression) != "SET #attr0 = :val0" {
		t.Errorf("expected only the index column, got %q", aws.ToString(client.updates[0].UpdateExpression))
	}

	// Nothing indexed, nothing written.
	if err := s.Reindex(context.Background(), book, store.IntID(9), []store.FieldValue{{Field: subtitle, Value: "x"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.updates) != 1 {
		t.Errorf("expected no further update, got %d", len(client.updates))
	}
}

func TestStore_ValueForDB(t *testing.T) {
	s := store.New(newFakeDynamo(), store.DefaultConfig(), nil, nil)
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	tests := []struct {
		name     string
		value    any
		expected any
	}{
		{"uuid", id, "6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
		{"uuid pointer", &id, "6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
		{"nil uuid pointer", (*uuid.UUID)(nil), nil},
		{"duration", 2 * time.Second, int64(2000000000)},
		{"string", "x", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := s.ValueForDB(tt.value, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, v)
			}
		})
	}
}

func TestStore_ReindexUsesStoredValues(t *testing.T) {
	client := newFakeDynamo()
	doc := store.NewModel("Doc", "docs")
	doc.AddField(&store.Field{Name: "id", PrimaryKey: true})
	label := doc.AddField(&store.Field{
		Name: "label",
		PrepSave: func(conn store.Connection, value any) (any, error) {
			return "prepared:" + value.(string), nil
		},
	})

	registry := store.NewIndexRegistry()
	registry.Register(doc, "label", upper{})
	s := store.New(client, store.DefaultConfig(), registry, nil)

	entity, err := s.Materializer().Materialize(s, doc, doc.Fields, false,
		store.NewRecord(map[string]any{"id": int64(1), "label": "x"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ := entity.Property("label")
	indexed, _ := entity.Property("_upper_label")

	if err := s.Reindex(context.Background(), doc, store.IntID(1), []store.FieldValue{{Field: label, Value: stored}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok := client.updates[0].ExpressionAttributeValues[":val0"].(*types.AttributeValueMemberS)
	if !ok || v.Value != indexed {
		t.Errorf("expected reindexed value %v, got %#v", indexed, client.updates[0].ExpressionAttributeValues[":val0"])
	}
}

func TestStore_SaveStoresAbstractParentFields(t *testing.T) {
	client := newFakeDynamo()
	s := store.New(client, store.DefaultConfig(), nil, nil)

	timestamped := &store.Model{Name: "Timestamped", Abstract: true}
	timestamped.AddField(&store.Field{Name: "created"})
	book := store.NewModel("Book", "books", timestamped)
	book.AddField(&store.Field{Name: "id", PrimaryKey: true})
	book.AddField(&store.Field{Name: "title"})

	_, err := s.Save(context.Background(), book, store.NewRecord(map[string]any{
		"id": int64(1), "title": "Dune", "created": nil,
	}), store.SaveOptions{})
	if !errors.Is(err, store.ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}

	_, err = s.Save(context.Background(), book, store.NewRecord(map[string]any{
		"id": int64(2), "title": "Dune", "created": "2024-01-01",
	}), store.SaveOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := client.puts[len(client.puts)-1].Item["created"].(*types.AttributeValueMemberS); !ok || v.Value != "2024-01-01" {
		t.Errorf("expected created column, got %#v", client.puts[len(client.puts)-1].Item["created"])
	}
}
