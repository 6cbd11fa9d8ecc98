package dynamo

import (
	"context"
	"fmt"
	"os"

	"saas-notes-be/internal/config"
	"saas-notes-be/internal/repository/contract"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// API is the subset of the DynamoDB client the notes backend uses.
type API interface {
	dynamodb.QueryAPIClient
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// NewClient builds a DynamoDB client from the store settings. The request
// timeout is enforced by the HTTP client.
func NewClient(ctx context.Context, cfg config.StoreConfig) (*dynamodb.Client, error) {
	if missing := cfg.MissingDynamoSettings(); len(missing) > 0 {
		return nil, contract.NewConfigError(config.BackendDynamo, missing...)
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.DynamoTimeout > 0 {
		loadOpts = append(loadOpts, awsconfig.WithHTTPClient(
			awshttp.NewBuildableClient().WithTimeout(cfg.DynamoTimeout),
		))
	}
	// DynamoDB Local accepts any signature, but one is still required.
	if cfg.DynamoEndpoint != "" && os.Getenv("AWS_ACCESS_KEY_ID") == "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(options *dynamodb.Options) {
		if cfg.DynamoEndpoint != "" {
			options.BaseEndpoint = aws.String(cfg.DynamoEndpoint)
		}
	}), nil
}
