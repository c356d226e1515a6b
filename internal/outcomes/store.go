package outcomes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	smithy "github.com/aws/smithy-go"

	"github.com/retailpoint/pos-checkout/internal/aws"
)

// Store encapsulates operations on the stuck-orders table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// ErrRemediationMismatch means a conditional remediation transition lost to
// a competing writer (e.g. two workers, or a resume racing the notifier).
var ErrRemediationMismatch = errors.New("remediation status mismatch/conditional failed")

// Record persists a stuck order with remediation status OPEN. The first
// record for an order id wins; a duplicate write (same saga outcome observed
// twice) is silently kept as the original.
func (s *Store) Record(ctx context.Context, so StuckOrder) error {
	now := s.nowFunc()
	if so.CreatedAt.IsZero() {
		so.CreatedAt = now
	}
	so.UpdatedAt = now
	if so.Remediation == "" {
		so.Remediation = RemediationOpen
	}

	item, err := attributevalue.MarshalMap(so)
	if err != nil {
		return fmt.Errorf("marshal stuck order: %w", err)
	}

	input := &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(order_id)"),
	}
	if _, err := s.client.PutItem(ctx, input); err != nil {
		var ae smithy.APIError
		if errors.As(err, &ae) && ae.ErrorCode() == "ConditionalCheckFailedException" {
			return nil
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// Get fetches a stuck order by order id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, orderID int) (*StuckOrder, error) {
	key := map[string]types.AttributeValue{
		"order_id": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", orderID)},
	}
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var so StuckOrder
	if err := attributevalue.UnmarshalMap(out.Item, &so); err != nil {
		return nil, fmt.Errorf("unmarshal stuck order: %w", err)
	}
	return &so, nil
}

// UpdateRemediation conditionally moves the remediation status from expected
// to newStatus. Returns ErrRemediationMismatch when the condition fails.
func (s *Store) UpdateRemediation(ctx context.Context, orderID int, expected, newStatus string) error {
	now := s.nowFunc()
	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", orderID)},
		},
		UpdateExpression: awsString("SET remediation = :new, updated_at = :ua"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new":      &types.AttributeValueMemberS{Value: newStatus},
			":ua":       &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			":expected": &types.AttributeValueMemberS{Value: expected},
		},
		ConditionExpression: awsString("remediation = :expected"),
	}

	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		var cf *types.ConditionalCheckFailedException
		if errors.As(err, &cf) {
			return ErrRemediationMismatch
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// IncrementAttempts increases the operator resume counter by 1.
func (s *Store) IncrementAttempts(ctx context.Context, orderID int) error {
	now := s.nowFunc()
	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", orderID)},
		},
		UpdateExpression: awsString("SET attempts = if_not_exists(attempts, :zero) + :inc, updated_at = :ua"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":zero": &types.AttributeValueMemberN{Value: "0"},
			":inc":  &types.AttributeValueMemberN{Value: "1"},
			":ua":   &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	}
	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		return fmt.Errorf("increment attempts: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }
