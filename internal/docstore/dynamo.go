package docstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/mediconnect/mediconnect-platform/pkg/logging"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// dynamoRecord is the item layout: one table, partitioned by collection.
type dynamoRecord struct {
	Collection string         `dynamodbav:"collection"`
	ID         string         `dynamodbav:"id"`
	CreatedAt  string         `dynamodbav:"createdAt"`
	Fields     map[string]any `dynamodbav:"fields"`
}

// DynamoStore persists documents in a single DynamoDB table keyed by
// (collection, id).
type DynamoStore struct {
	client    dynamoAPI
	tableName string
	logger    *logging.Logger
	now       func() time.Time
}

var (
	_ Store        = (*DynamoStore)(nil)
	_ KeyedCreator = (*DynamoStore)(nil)
)

// NewDynamoStore builds a store backed by the provided DynamoDB client.
func NewDynamoStore(client dynamoAPI, tableName string, logger *logging.Logger) *DynamoStore {
	if client == nil {
		panic("docstore: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("docstore: table name cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Get fetches a single document.
func (s *DynamoStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       dynamoKey(collection, id),
	})
	if err != nil {
		return nil, fmt.Errorf("docstore: get %s/%s: %w", collection, id, err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	return decodeDynamoItem(out.Item)
}

// Query returns the partition for collection filtered by field equality.
func (s *DynamoStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}

	names := map[string]string{"#collection": "collection"}
	values := map[string]types.AttributeValue{
		":collection": &types.AttributeValueMemberS{Value: collection},
	}
	var filterExpr string
	if len(filters) > 0 {
		names["#fields"] = "fields"
		for i, f := range filters {
			nameKey := fmt.Sprintf("#f%d", i)
			valueKey := fmt.Sprintf(":v%d", i)
			av, err := attributevalue.Marshal(f.Value)
			if err != nil {
				return nil, fmt.Errorf("docstore: marshal filter %s: %w", f.Field, err)
			}
			names[nameKey] = f.Field
			values[valueKey] = av
			if filterExpr != "" {
				filterExpr += " AND "
			}
			filterExpr += fmt.Sprintf("#fields.%s = %s", nameKey, valueKey)
		}
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    aws.String("#collection = :collection"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}
	if filterExpr != "" {
		input.FilterExpression = aws.String(filterExpr)
	}

	var docs []Document
	for {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("docstore: query %s: %w", collection, err)
		}
		for _, item := range out.Items {
			doc, err := decodeDynamoItem(item)
			if err != nil {
				return nil, err
			}
			docs = append(docs, *doc)
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	// Sort keys are uuids; creation order is what callers expect.
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].CreatedAt.Before(docs[j].CreatedAt) })
	return docs, nil
}

// List returns the whole collection.
func (s *DynamoStore) List(ctx context.Context, collection string) ([]Document, error) {
	return s.Query(ctx, collection)
}

// Create inserts a new document; the id and createdAt are assigned here.
func (s *DynamoStore) Create(ctx context.Context, collection string, fields map[string]any) (*Document, error) {
	doc, err := s.CreateWithID(ctx, collection, uuid.NewString(), fields)
	if errors.Is(err, ErrAlreadyExists) {
		s.logger.Warn("docstore id collision", "collection", collection)
	}
	return doc, err
}

// CreateWithID inserts a document under id. The put is conditional on the
// key being absent.
func (s *DynamoStore) CreateWithID(ctx context.Context, collection, id string, fields map[string]any) (*Document, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	now := s.now()
	record := dynamoRecord{
		Collection: collection,
		ID:         id,
		CreatedAt:  now.Format(time.RFC3339Nano),
		Fields:     copyFields(fields),
	}
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return nil, fmt.Errorf("docstore: marshal %s document: %w", collection, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil, fmt.Errorf("docstore: create %s/%s: %w", collection, id, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("docstore: create %s document: %w", collection, err)
	}

	return &Document{
		ID:         record.ID,
		Collection: collection,
		Fields:     record.Fields,
		CreatedAt:  now,
	}, nil
}

func dynamoKey(collection, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"collection": &types.AttributeValueMemberS{Value: collection},
		"id":         &types.AttributeValueMemberS{Value: id},
	}
}

func decodeDynamoItem(item map[string]types.AttributeValue) (*Document, error) {
	var record dynamoRecord
	if err := attributevalue.UnmarshalMap(item, &record); err != nil {
		return nil, fmt.Errorf("docstore: decode item: %w", err)
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, record.CreatedAt)
	if record.Fields == nil {
		record.Fields = map[string]any{}
	}
	return &Document{
		ID:         record.ID,
		Collection: record.Collection,
		Fields:     record.Fields,
		CreatedAt:  createdAt,
	}, nil
}
