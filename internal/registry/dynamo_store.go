package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoStore stores callers in a DynamoDB table keyed by the "uid" attribute.
type DynamoStore struct {
	client dynamoAPI
	table  string
}

// NewDynamoStore returns a store bound to table.
func NewDynamoStore(client dynamoAPI, table string) *DynamoStore {
	if client == nil {
		panic("registry: dynamodb client cannot be nil")
	}
	if strings.TrimSpace(table) == "" {
		panic("registry: dynamodb table name required")
	}
	return &DynamoStore{client: client, table: table}
}

func (s *DynamoStore) Insert(ctx context.Context, caller *Caller) (bool, error) {
	item, err := attributevalue.MarshalMap(caller)
	if err != nil {
		return false, fmt.Errorf("registry: failed to marshal caller: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(uid)"),
	})
	if err != nil {
		var conditionErr *types.ConditionalCheckFailedException
		if errors.As(err, &conditionErr) {
			return false, nil
		}
		return false, fmt.Errorf("registry: failed to put caller: %w", err)
	}
	return true, nil
}

func (s *DynamoStore) Exists(ctx context.Context, uid string) (bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(s.table),
		Key:                  uidKey(uid),
		ProjectionExpression: aws.String("uid"),
		ConsistentRead:       aws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("registry: failed to check caller: %w", err)
	}
	return len(out.Item) > 0, nil
}

func (s *DynamoStore) Get(ctx context.Context, uid string) (*Caller, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            uidKey(uid),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("registry: failed to get caller: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrCallerNotFound
	}
	var caller Caller
	if err := attributevalue.UnmarshalMap(out.Item, &caller); err != nil {
		return nil, fmt.Errorf("registry: failed to decode caller: %w", err)
	}
	return &caller, nil
}

// Count scans the whole table. It only backs the health endpoint.
func (s *DynamoStore) Count(ctx context.Context) (int, error) {
	total := 0
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.table),
			Select:            types.SelectCount,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return 0, fmt.Errorf("registry: failed to count callers: %w", err)
		}
		total += int(out.Count)
		if len(out.LastEvaluatedKey) == 0 {
			return total, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func uidKey(uid string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"uid": &types.AttributeValueMemberS{Value: uid},
	}
}
