// Package ddb implements repository.Store using AWS DynamoDB.
// This is the only layer that should have knowledge of DynamoDB specifics.
//
// Layout (single table):
//
//	PK = PUBLIC                      for public memories
//	PK = USER#<owner>#PRIVATE        for private memories
//	SK = MEMORY#<epoch ms, padded>#<id>
//
// Each read filter maps to exactly one partition, and descending sort-key order
// is newest first.
package ddb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"memorygrid-backend/internal/domain"
	"memorygrid-backend/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
)

// ErrUnsupportedQuery is returned for a query that names no partition.
var ErrUnsupportedQuery = errors.New("dynamodb store requires a visibility filter")

// API is the subset of the DynamoDB client used by the store.
type API interface {
	dynamodb.QueryAPIClient
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// ddbMemory is the item shape written to the table.
type ddbMemory struct {
	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
	repository.Row
}

// Store is the DynamoDB-backed memory store.
type Store struct {
	client    API
	tableName string
}

// NewStore creates a store over tableName.
func NewStore(client API, tableName string) *Store {
	return &Store{client: client, tableName: tableName}
}

// partitionKey returns the partition holding rows of the given visibility and owner.
func partitionKey(visibility, ownerID string) (string, bool) {
	switch domain.Visibility(visibility) {
	case domain.VisibilityPublic:
		return "PUBLIC", true
	case domain.VisibilityPrivate:
		if ownerID == "" {
			return "", false
		}
		return fmt.Sprintf("USER#%s#PRIVATE", ownerID), true
	}
	return "", false
}

func sortKey(timestamp int64, id string) string {
	return fmt.Sprintf("MEMORY#%015d#%s", timestamp, id)
}

// SelectMemories implements repository.Store.
func (s *Store) SelectMemories(ctx context.Context, q repository.Query) ([]repository.Row, error) {
	pk, ok := partitionKey(string(q.Visibility), q.OwnerID)
	if !ok {
		if q.Visibility == domain.VisibilityPrivate {
			return []repository.Row{}, nil
		}
		return nil, ErrUnsupportedQuery
	}

	keyCond := expression.Key("PK").Equal(expression.Value(pk)).
		And(expression.Key("SK").BeginsWith("MEMORY#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
	}

	rows := make([]repository.Row, 0)
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, describe("query", err)
		}
		for _, item := range page.Items {
			var m ddbMemory
			if err := attributevalue.UnmarshalMap(item, &m); err != nil {
				return nil, fmt.Errorf("%w: %v", repository.ErrInvalidRow, err)
			}
			if q.Matches(m.Row) {
				rows = append(rows, m.Row)
			}
		}
	}
	return rows, nil
}

// InsertMemory implements repository.Store. PutItem does not echo the item, so the
// written row (with its new id) is returned.
func (s *Store) InsertMemory(ctx context.Context, row repository.Row) (repository.Row, error) {
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	pk, ok := partitionKey(row.Visibility, row.UserID)
	if !ok {
		return repository.Row{}, fmt.Errorf("%w: no partition for visibility %q", repository.ErrInvalidRow, row.Visibility)
	}

	item, err := attributevalue.MarshalMap(ddbMemory{PK: pk, SK: sortKey(row.Timestamp, row.ID), Row: row})
	if err != nil {
		return repository.Row{}, fmt.Errorf("failed to marshal memory: %w", err)
	}

	cond := expression.AttributeNotExists(expression.Name("PK"))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return repository.Row{}, fmt.Errorf("failed to build condition expression: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(s.tableName),
		Item:                     item,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		return repository.Row{}, describe("put item", err)
	}
	return row, nil
}

// describe annotates AWS API errors with their error code.
func describe(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("dynamodb %s failed (%s): %w", op, strings.TrimSpace(apiErr.ErrorCode()), err)
	}
	return fmt.Errorf("dynamodb %s failed: %w", op, err)
}

var _ repository.Store = (*Store)(nil)
