// Package dynamo is the DynamoDB implementation of the directory and rating
// repositories. It exposes the same methods as the SQLite repositories so
// either can back the services.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/godilite/staff-perf/internal/repository/models"
)

const (
	attrID      = "ID"
	attrKey     = "Key"
	attrStaffID = "StaffID"
	attrSortKey = "SortKey"

	// sortTimeLayout is fixed width so sort keys order chronologically.
	sortTimeLayout = "2006-01-02T15:04:05.000000000Z"

	batchWriteLimit    = 25
	batchWriteAttempts = 5
	batchWriteBackoff  = 20 * time.Millisecond
)

// API is the subset of *dynamodb.Client the store uses.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

type Store struct {
	client API
	tables Tables
	logger *zap.Logger
}

// New builds a DynamoDB client for cfg and, in local mode, creates any
// missing tables.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var client *dynamodb.Client
	if cfg.Mode == ModeLocal {
		// LoadDefaultConfig probes IMDS, which hangs when static credentials are intended.
		client = dynamodb.New(dynamodb.Options{
			Region:       cfg.Region,
			BaseEndpoint: aws.String(cfg.Endpoint),
			Credentials:  credentials.NewStaticCredentialsProvider("local", "local", ""),
		})
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client = dynamodb.NewFromConfig(awsCfg)
	}

	store := NewWithClient(client, cfg, logger)
	if cfg.Mode == ModeLocal {
		if err := CreateTablesIfNotExist(ctx, client, store.tables, store.logger); err != nil {
			return nil, err
		}
	}

	store.logger.Info("DynamoDB store initialized",
		zap.String("mode", string(cfg.Mode)),
		zap.String("region", cfg.Region))
	return store, nil
}

func NewWithClient(client API, cfg Config, logger *zap.Logger) *Store {
	return &Store{client: client, tables: cfg.Tables(), logger: logger.Named("dynamo")}
}

// Ping checks that the ratings table is reachable.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.tables.Ratings)})
	return err
}

type uniqueItem struct {
	Key     string
	OwnerID string
}

func loginKey(login string) string {
	return "login#" + normalizeLogin(login)
}

func staffNumberKey(number string) string {
	return "staff_number#" + number
}

func normalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}

func formatSortTime(t time.Time) string {
	return t.UTC().Format(sortTimeLayout)
}

func idKey(id string) map[string]dbtypes.AttributeValue {
	return map[string]dbtypes.AttributeValue{attrID: &dbtypes.AttributeValueMemberS{Value: id}}
}

func uniqueKey(key string) map[string]dbtypes.AttributeValue {
	return map[string]dbtypes.AttributeValue{attrKey: &dbtypes.AttributeValueMemberS{Value: key}}
}

func conditionExpr(cond expression.ConditionBuilder) (expression.Expression, error) {
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return expression.Expression{}, fmt.Errorf("failed to build expression: %w", err)
	}
	return expr, nil
}

func notExists(attr string) (expression.Expression, error) {
	return conditionExpr(expression.AttributeNotExists(expression.Name(attr)))
}

func exists(attr string) (expression.Expression, error) {
	return conditionExpr(expression.AttributeExists(expression.Name(attr)))
}

// conditionalPut writes item only when cond holds. A failed condition is
// reported as onConflict.
func (s *Store) conditionalPut(ctx context.Context, op, table string, item any, cond expression.Expression, onConflict error) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(table),
		Item:                      av,
		ConditionExpression:       cond.Condition(),
		ExpressionAttributeNames:  cond.Names(),
		ExpressionAttributeValues: cond.Values(),
	})
	var ccf *dbtypes.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("%s: %w", op, onConflict)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// conditionalDelete removes the item with id, reporting ErrNotFound when it
// is absent.
func (s *Store) conditionalDelete(ctx context.Context, op, table, id string) error {
	cond, err := exists(attrID)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(table),
		Key:                      idKey(id),
		ConditionExpression:      cond.Condition(),
		ExpressionAttributeNames: cond.Names(),
	})
	var ccf *dbtypes.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) getItem(ctx context.Context, op, table string, key map[string]dbtypes.AttributeValue, out any) error {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if result.Item == nil {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err := attributevalue.UnmarshalMap(result.Item, out); err != nil {
		return fmt.Errorf("%s: unmarshal: %w", op, err)
	}
	return nil
}

// scanAll walks every page of a filtered scan and unmarshals the matches
// into out, which must be a pointer to a slice.
func (s *Store) scanAll(ctx context.Context, op, table string, filter expression.ConditionBuilder, out any) error {
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return fmt.Errorf("%s: failed to build expression: %w", op, err)
	}

	var (
		items   []map[string]dbtypes.AttributeValue
		lastKey map[string]dbtypes.AttributeValue
	)
	for {
		result, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(table),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         lastKey,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		items = append(items, result.Items...)

		lastKey = result.LastEvaluatedKey
		if len(lastKey) == 0 {
			break
		}
	}

	if err := attributevalue.UnmarshalListOfMaps(items, out); err != nil {
		return fmt.Errorf("%s: unmarshal: %w", op, err)
	}
	return nil
}

// transact runs a write transaction and returns the indexes of the
// items whose condition failed, if the transaction was cancelled for that.
func (s *Store) transact(ctx context.Context, items []dbtypes.TransactWriteItem) ([]int, error) {
	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err == nil {
		return nil, nil
	}
	var canceled *dbtypes.TransactionCanceledException
	if !errors.As(err, &canceled) {
		return nil, err
	}
	var failed []int
	for i, reason := range canceled.CancellationReasons {
		if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
			failed = append(failed, i)
		}
	}
	if len(failed) == 0 {
		return nil, err
	}
	return failed, nil
}

func transactPut(table string, item any, cond expression.Expression) (dbtypes.TransactWriteItem, error) {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return dbtypes.TransactWriteItem{}, fmt.Errorf("marshal: %w", err)
	}
	return dbtypes.TransactWriteItem{Put: &dbtypes.Put{
		TableName:                 aws.String(table),
		Item:                      av,
		ConditionExpression:       cond.Condition(),
		ExpressionAttributeNames:  cond.Names(),
		ExpressionAttributeValues: cond.Values(),
	}}, nil
}

func transactDelete(table string, key map[string]dbtypes.AttributeValue) dbtypes.TransactWriteItem {
	return dbtypes.TransactWriteItem{Delete: &dbtypes.Delete{
		TableName: aws.String(table),
		Key:       key,
	}}
}

// putWithUnique creates item together with its uniqueness marker. Either
// condition failing means a duplicate.
func (s *Store) putWithUnique(ctx context.Context, op, table string, item any, ownerID, unique string) error {
	itemCond, err := notExists(attrID)
	if err != nil {
		return err
	}
	keyCond, err := notExists(attrKey)
	if err != nil {
		return err
	}
	put, err := transactPut(table, item, itemCond)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	marker, err := transactPut(s.tables.Uniques, uniqueItem{Key: unique, OwnerID: ownerID}, keyCond)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	failed, err := s.transact(ctx, []dbtypes.TransactWriteItem{put, marker})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%s: %w", op, models.ErrDuplicate)
	}
	return nil
}

// replaceWithUnique overwrites an existing item. When the unique value
// changed the old marker is released and the new one claimed atomically.
func (s *Store) replaceWithUnique(ctx context.Context, op, table string, item any, ownerID, oldUnique, newUnique string) error {
	itemCond, err := exists(attrID)
	if err != nil {
		return err
	}
	if oldUnique == newUnique {
		return s.conditionalPut(ctx, op, table, item, itemCond, models.ErrNotFound)
	}

	keyCond, err := notExists(attrKey)
	if err != nil {
		return err
	}
	put, err := transactPut(table, item, itemCond)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	marker, err := transactPut(s.tables.Uniques, uniqueItem{Key: newUnique, OwnerID: ownerID}, keyCond)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	failed, err := s.transact(ctx, []dbtypes.TransactWriteItem{put, marker, transactDelete(s.tables.Uniques, uniqueKey(oldUnique))})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, i := range failed {
		if i == 0 {
			return fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%s: %w", op, models.ErrDuplicate)
	}
	return nil
}

// deleteWithUnique removes an item and releases its marker.
func (s *Store) deleteWithUnique(ctx context.Context, op, table, id, unique string) error {
	itemCond, err := exists(attrID)
	if err != nil {
		return err
	}
	del := dbtypes.TransactWriteItem{Delete: &dbtypes.Delete{
		TableName:                aws.String(table),
		Key:                      idKey(id),
		ConditionExpression:      itemCond.Condition(),
		ExpressionAttributeNames: itemCond.Names(),
	}}

	failed, err := s.transact(ctx, []dbtypes.TransactWriteItem{del, transactDelete(s.tables.Uniques, uniqueKey(unique))})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}
