package dynamodb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/store/history"
)

const (
	attrResourceID   = "resource_id"
	attrResourceType = "resource_type"
	attrCompliant    = "compliant"
	attrEvaluatedAt  = "evaluation_timestamp"
	attrEpochMillis  = "evaluation_epoch_ms"
	attrDetails      = "details"
)

type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// store keeps results in a table keyed by resource_id (hash) and
// resource_type (range).
type store struct {
	client API
	table  string
}

func NewStore(client API, table string) (history.Store, error) {
	if client == nil {
		return nil, fmt.Errorf("dynamodb client is nil")
	}
	if table == "" {
		return nil, fmt.Errorf("dynamodb table name is required")
	}
	return &store{client: client, table: table}, nil
}

func (s *store) Upsert(ctx context.Context, result domain.EvaluationResult) error {
	details, err := json.Marshal(result.Details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}
	ts := result.EvaluationTimestamp.UTC()
	millis := strconv.FormatInt(ts.UnixMilli(), 10)

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: awssdk.String(s.table),
		Item: map[string]types.AttributeValue{
			attrResourceID:   &types.AttributeValueMemberS{Value: result.ResourceID},
			attrResourceType: &types.AttributeValueMemberS{Value: string(result.ResourceType)},
			attrCompliant:    &types.AttributeValueMemberBOOL{Value: result.Compliant},
			attrEvaluatedAt:  &types.AttributeValueMemberS{Value: ts.Format(time.RFC3339Nano)},
			attrEpochMillis:  &types.AttributeValueMemberN{Value: millis},
			attrDetails:      &types.AttributeValueMemberS{Value: string(details)},
		},
		ConditionExpression: awssdk.String("attribute_not_exists(#id) OR #ts <= :ts"),
		ExpressionAttributeNames: map[string]string{
			"#id": attrResourceID,
			"#ts": attrEpochMillis,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ts": &types.AttributeValueMemberN{Value: millis},
		},
	})

	var conditionFailed *types.ConditionalCheckFailedException
	if errors.As(err, &conditionFailed) {
		// a newer result is already stored
		return nil
	}
	if err != nil {
		return fmt.Errorf("put evaluation result %s/%s: %w", result.ResourceType, result.ResourceID, err)
	}
	return nil
}

func (s *store) Query(ctx context.Context, period domain.TimePeriod) ([]domain.EvaluationResult, error) {
	input := &dynamodb.ScanInput{
		TableName:        awssdk.String(s.table),
		FilterExpression: awssdk.String("#ts >= :start AND #ts < :end"),
		ExpressionAttributeNames: map[string]string{
			"#ts": attrEpochMillis,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":start": &types.AttributeValueMemberN{Value: strconv.FormatInt(period.Start.UnixMilli(), 10)},
			":end":   &types.AttributeValueMemberN{Value: strconv.FormatInt(period.End.UnixMilli(), 10)},
		},
	}

	var results []domain.EvaluationResult
	for {
		resp, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.table, err)
		}
		for _, item := range resp.Items {
			r, err := decode(item)
			if err != nil {
				return nil, err
			}
			results = append(results, r)
		}
		if len(resp.LastEvaluatedKey) == 0 {
			return results, nil
		}
		input.ExclusiveStartKey = resp.LastEvaluatedKey
	}
}

func decode(item map[string]types.AttributeValue) (domain.EvaluationResult, error) {
	var r domain.EvaluationResult

	id, ok := item[attrResourceID].(*types.AttributeValueMemberS)
	if !ok {
		return r, fmt.Errorf("item without %s", attrResourceID)
	}
	r.ResourceID = id.Value

	if t, ok := item[attrResourceType].(*types.AttributeValueMemberS); ok {
		r.ResourceType = domain.ResourceType(t.Value)
	}
	if c, ok := item[attrCompliant].(*types.AttributeValueMemberBOOL); ok {
		r.Compliant = c.Value
	}
	if n, ok := item[attrEpochMillis].(*types.AttributeValueMemberN); ok {
		millis, err := strconv.ParseInt(n.Value, 10, 64)
		if err != nil {
			return r, fmt.Errorf("item %s: bad %s: %w", r.ResourceID, attrEpochMillis, err)
		}
		r.EvaluationTimestamp = time.UnixMilli(millis).UTC()
	}
	if d, ok := item[attrDetails].(*types.AttributeValueMemberS); ok && d.Value != "" {
		if err := json.Unmarshal([]byte(d.Value), &r.Details); err != nil {
			return r, fmt.Errorf("item %s: unmarshal details: %w", r.ResourceID, err)
		}
	}
	return r, nil
}
