package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"saas-notes-be/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type TableAPI interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// TableDefinition describes the notes table: hash key PK plus the by-user,
// by-org and by-subject indexes, each sorted by createdAt#id.
func TableDefinition(table string) *dynamodb.CreateTableInput {
	attr := func(name string) dtypes.AttributeDefinition {
		return dtypes.AttributeDefinition{AttributeName: aws.String(name), AttributeType: dtypes.ScalarAttributeTypeS}
	}
	gsi := func(name, pk, sk string) dtypes.GlobalSecondaryIndex {
		return dtypes.GlobalSecondaryIndex{
			IndexName: aws.String(name),
			KeySchema: []dtypes.KeySchemaElement{
				{AttributeName: aws.String(pk), KeyType: dtypes.KeyTypeHash},
				{AttributeName: aws.String(sk), KeyType: dtypes.KeyTypeRange},
			},
			Projection: &dtypes.Projection{ProjectionType: dtypes.ProjectionTypeAll},
		}
	}

	return &dynamodb.CreateTableInput{
		TableName:   aws.String(table),
		BillingMode: dtypes.BillingModePayPerRequest,
		AttributeDefinitions: []dtypes.AttributeDefinition{
			attr(model.AttrPK),
			attr(model.AttrGSI1PK), attr(model.AttrGSI1SK),
			attr(model.AttrGSI2PK), attr(model.AttrGSI2SK),
			attr(model.AttrGSI3PK), attr(model.AttrGSI3SK),
		},
		KeySchema: []dtypes.KeySchemaElement{
			{AttributeName: aws.String(model.AttrPK), KeyType: dtypes.KeyTypeHash},
		},
		GlobalSecondaryIndexes: []dtypes.GlobalSecondaryIndex{
			gsi(model.IndexByUser, model.AttrGSI1PK, model.AttrGSI1SK),
			gsi(model.IndexByOrg, model.AttrGSI2PK, model.AttrGSI2SK),
			gsi(model.IndexBySubject, model.AttrGSI3PK, model.AttrGSI3SK),
		},
	}
}

// EnsureTable creates the notes table when it does not exist and waits for
// it to become active. It reports whether the table was created.
func EnsureTable(ctx context.Context, client TableAPI, table string, wait time.Duration) (bool, error) {
	_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)})
	if err == nil {
		return false, nil
	}
	var notFound *dtypes.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return false, fmt.Errorf("describe table %s: %w", table, err)
	}

	if _, err := client.CreateTable(ctx, TableDefinition(table)); err != nil {
		var inUse *dtypes.ResourceInUseException
		if errors.As(err, &inUse) {
			return false, nil
		}
		return false, fmt.Errorf("create table %s: %w", table, err)
	}

	if wait > 0 {
		waiter := dynamodb.NewTableExistsWaiter(client)
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)}, wait); err != nil {
			return true, fmt.Errorf("wait for table %s: %w", table, err)
		}
	}
	return true, nil
}
