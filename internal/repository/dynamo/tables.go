package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

type tableSpec struct {
	name string
	pk   string
	sk   string
}

func (t Tables) specs() []tableSpec {
	return []tableSpec{
		{name: t.Organizations, pk: attrID},
		{name: t.Branches, pk: attrID},
		{name: t.Staff, pk: attrID},
		{name: t.Accounts, pk: attrID},
		{name: t.Ratings, pk: attrStaffID, sk: attrSortKey},
		{name: t.Uniques, pk: attrKey},
	}
}

// CreateTablesIfNotExist creates the tables for local development.
func CreateTablesIfNotExist(ctx context.Context, client API, tables Tables, logger *zap.Logger) error {
	for _, table := range tables.specs() {
		_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(table.name),
		})
		if err == nil {
			logger.Debug("table already exists", zap.String("table", table.name))
			continue
		}

		keySchema := []dbtypes.KeySchemaElement{
			{AttributeName: aws.String(table.pk), KeyType: dbtypes.KeyTypeHash},
		}
		attrs := []dbtypes.AttributeDefinition{
			{AttributeName: aws.String(table.pk), AttributeType: dbtypes.ScalarAttributeTypeS},
		}
		if table.sk != "" {
			keySchema = append(keySchema, dbtypes.KeySchemaElement{AttributeName: aws.String(table.sk), KeyType: dbtypes.KeyTypeRange})
			attrs = append(attrs, dbtypes.AttributeDefinition{AttributeName: aws.String(table.sk), AttributeType: dbtypes.ScalarAttributeTypeS})
		}

		_, err = client.CreateTable(ctx, &dynamodb.CreateTableInput{
			TableName:            aws.String(table.name),
			KeySchema:            keySchema,
			AttributeDefinitions: attrs,
			BillingMode:          dbtypes.BillingModePayPerRequest,
		})
		if err != nil {
			return fmt.Errorf("failed to create table %s: %w", table.name, err)
		}
		logger.Info("table created", zap.String("table", table.name))
	}
	return nil
}
