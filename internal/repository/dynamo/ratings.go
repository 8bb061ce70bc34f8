package dynamo

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/godilite/staff-perf/internal/repository/models"
)

// ratingItem is a rating as stored: partitioned by staff, sorted by
// creation time with the ID appended to keep keys unique.
type ratingItem struct {
	models.RatingRecord
	SortKey string
}

func ratingSortKey(r models.RatingRecord) string {
	return formatSortTime(r.CreatedAt) + "#" + r.ID
}

func (s *Store) CreateRating(ctx context.Context, rating models.RatingRecord) error {
	cond, err := notExists(attrSortKey)
	if err != nil {
		return err
	}
	item := ratingItem{RatingRecord: rating, SortKey: ratingSortKey(rating)}
	return s.conditionalPut(ctx, "put rating", s.tables.Ratings, item, cond, models.ErrDuplicate)
}

// ListRatings queries one staff partition from since onwards, newest first.
func (s *Store) ListRatings(ctx context.Context, staffID string, since time.Time) ([]models.RatingRecord, error) {
	keyCond := expression.Key(attrStaffID).Equal(expression.Value(staffID)).
		And(expression.Key(attrSortKey).GreaterThanEqual(expression.Value(formatSortTime(since))))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	var (
		items   []ratingItem
		lastKey map[string]dbtypes.AttributeValue
	)
	for {
		result, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(s.tables.Ratings),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ScanIndexForward:          aws.Bool(false),
			ExclusiveStartKey:         lastKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query ratings: %w", err)
		}

		var page []ratingItem
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ratings: %w", err)
		}
		items = append(items, page...)

		lastKey = result.LastEvaluatedKey
		if len(lastKey) == 0 {
			break
		}
	}

	records := make([]models.RatingRecord, len(items))
	for i, item := range items {
		records[i] = item.RatingRecord
	}
	return records, nil
}

// DeleteRatingsForStaff removes a staff partition in batches of 25.
func (s *Store) DeleteRatingsForStaff(ctx context.Context, staffID string) error {
	keyCond := expression.Key(attrStaffID).Equal(expression.Value(staffID))
	proj := expression.NamesList(expression.Name(attrStaffID), expression.Name(attrSortKey))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).WithProjection(proj).Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	deleted := 0
	var lastKey map[string]dbtypes.AttributeValue
	for {
		result, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(s.tables.Ratings),
			KeyConditionExpression:    expr.KeyCondition(),
			ProjectionExpression:      expr.Projection(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         lastKey,
		})
		if err != nil {
			return fmt.Errorf("failed to query ratings for delete: %w", err)
		}

		for i := 0; i < len(result.Items); i += batchWriteLimit {
			end := min(i+batchWriteLimit, len(result.Items))
			requests := make([]dbtypes.WriteRequest, 0, end-i)
			for _, item := range result.Items[i:end] {
				requests = append(requests, dbtypes.WriteRequest{
					DeleteRequest: &dbtypes.DeleteRequest{Key: map[string]dbtypes.AttributeValue{
						attrStaffID: item[attrStaffID],
						attrSortKey: item[attrSortKey],
					}},
				})
			}
			if err := s.batchWrite(ctx, s.tables.Ratings, requests); err != nil {
				return fmt.Errorf("failed to delete ratings: %w", err)
			}
			deleted += len(requests)
		}

		lastKey = result.LastEvaluatedKey
		if len(lastKey) == 0 {
			break
		}
	}

	s.logger.Info("ratings deleted", zap.String("staff_id", staffID), zap.Int("count", deleted))
	return nil
}

// batchWrite submits requests and resubmits whatever DynamoDB hands back as
// unprocessed, backing off between attempts.
func (s *Store) batchWrite(ctx context.Context, table string, requests []dbtypes.WriteRequest) error {
	pending := map[string][]dbtypes.WriteRequest{table: requests}
	delay := batchWriteBackoff
	for attempt := 1; ; attempt++ {
		result, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return err
		}
		pending = result.UnprocessedItems
		if len(pending[table]) == 0 {
			return nil
		}
		if attempt == batchWriteAttempts {
			return fmt.Errorf("%d write requests still unprocessed after %d attempts", len(pending[table]), attempt)
		}
		s.logger.Warn("retrying unprocessed batch writes",
			zap.String("table", table),
			zap.Int("pending", len(pending[table])),
			zap.Int("attempt", attempt))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

func sortBy[T any](items []T, key func(T) string) {
	slices.SortStableFunc(items, func(a, b T) int { return cmp.Compare(key(a), key(b)) })
}
