package ddb

import (
	"context"
	"testing"

	"memorygrid-backend/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDynamo struct {
	items    []map[string]types.AttributeValue
	queryErr error
	putErr   error

	lastQuery *dynamodb.QueryInput
	lastPut   *dynamodb.PutItemInput
}

func (f *fakeDynamo) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.lastQuery = in
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &dynamodb.QueryOutput{Items: f.items}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPut = in
	if f.putErr != nil {
		return nil, f.putErr
	}
	return &dynamodb.PutItemOutput{}, nil
}

func mustItem(t *testing.T, m ddbMemory) map[string]types.AttributeValue {
	t.Helper()
	item, err := attributevalue.MarshalMap(m)
	require.NoError(t, err)
	return item
}

func TestPartitionKey(t *testing.T) {
	pk, ok := partitionKey("public", "ignored")
	assert.True(t, ok)
	assert.Equal(t, "PUBLIC", pk)

	pk, ok = partitionKey("private", "u1")
	assert.True(t, ok)
	assert.Equal(t, "USER#u1#PRIVATE", pk)

	_, ok = partitionKey("private", "")
	assert.False(t, ok)
	_, ok = partitionKey("", "u1")
	assert.False(t, ok)
}

func TestSortKeyOrdersByTime(t *testing.T) {
	assert.Less(t, sortKey(999, "z"), sortKey(1000, "a"))
	assert.Equal(t, "MEMORY#001700000000000#m1", sortKey(1700000000000, "m1"))
}

func TestSelectMemories(t *testing.T) {
	t.Run("Should query the private partition newest first", func(t *testing.T) {
		row := repository.Row{ID: "m1", Title: "Fire", Visibility: "private", UserID: "u1", Timestamp: 10}
		fake := &fakeDynamo{items: []map[string]types.AttributeValue{
			mustItem(t, ddbMemory{PK: "USER#u1#PRIVATE", SK: sortKey(10, "m1"), Row: row}),
		}}
		store := NewStore(fake, "memories")

		rows, err := store.SelectMemories(context.Background(), repository.PrivateQuery("u1"))
		require.NoError(t, err)

		require.Len(t, rows, 1)
		assert.Equal(t, row, rows[0])
		assert.Equal(t, "memories", aws.ToString(fake.lastQuery.TableName))
		assert.False(t, aws.ToBool(fake.lastQuery.ScanIndexForward))
	})

	t.Run("Should return empty for private reads without owner", func(t *testing.T) {
		fake := &fakeDynamo{}
		rows, err := NewStore(fake, "memories").SelectMemories(context.Background(), repository.Query{Visibility: "private"})

		require.NoError(t, err)
		assert.Empty(t, rows)
		assert.Nil(t, fake.lastQuery)
	})

	t.Run("Should reject queries without visibility", func(t *testing.T) {
		_, err := NewStore(&fakeDynamo{}, "memories").SelectMemories(context.Background(), repository.Query{})
		assert.ErrorIs(t, err, ErrUnsupportedQuery)
	})

	t.Run("Should annotate API errors", func(t *testing.T) {
		fake := &fakeDynamo{queryErr: &smithy.GenericAPIError{Code: "ProvisionedThroughputExceededException", Message: "slow down"}}
		_, err := NewStore(fake, "memories").SelectMemories(context.Background(), repository.PublicQuery())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "ProvisionedThroughputExceededException")
	})
}

func TestInsertMemory(t *testing.T) {
	t.Run("Should assign an id and write under the public partition", func(t *testing.T) {
		fake := &fakeDynamo{}
		email := "a@x.com"
		row, err := NewStore(fake, "memories").InsertMemory(context.Background(), repository.Row{
			Title: "Fire", Visibility: "public", UserID: "u1", AuthorEmail: &email, Timestamp: 42,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, row.ID)

		var written ddbMemory
		require.NoError(t, attributevalue.UnmarshalMap(fake.lastPut.Item, &written))
		assert.Equal(t, "PUBLIC", written.PK)
		assert.Equal(t, sortKey(42, row.ID), written.SK)
		assert.Equal(t, "u1", written.UserID)
		assert.NotNil(t, fake.lastPut.ConditionExpression)
	})

	t.Run("Should reject rows without a partition", func(t *testing.T) {
		_, err := NewStore(&fakeDynamo{}, "memories").InsertMemory(context.Background(), repository.Row{Visibility: "friends"})
		assert.ErrorIs(t, err, repository.ErrInvalidRow)
	})
}
