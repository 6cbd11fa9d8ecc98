package dynamo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"saas-notes-be/internal/config"
	"saas-notes-be/internal/repository/contract"
	"saas-notes-be/internal/repository/contract/contracttest"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const dynamoLocalPort = "8000/tcp"

// TestNoteRepositoryAgainstDynamoLocal runs the contract suite against
// DynamoDB Local. DYNAMO_ENDPOINT points it at an already running instance,
// otherwise an amazon/dynamodb-local container is started and the test is
// skipped when no container runtime is available.
func TestNoteRepositoryAgainstDynamoLocal(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping DynamoDB Local test in short mode")
	}

	ctx := context.Background()
	endpoint := os.Getenv("DYNAMO_ENDPOINT")
	if endpoint == "" {
		endpoint = startDynamoLocal(ctx, t)
	}

	cfg := config.StoreConfig{
		Backend:        config.BackendDynamo,
		AWSRegion:      "us-east-1",
		DynamoEndpoint: endpoint,
		DynamoTimeout:  5 * time.Second,
	}

	client, err := NewClient(ctx, withTable(cfg, "bootstrap"))
	require.NoError(t, err)

	// One fresh table per subtest keeps the suite's assertions on exact
	// list contents independent.
	contracttest.Run(t, func(t *testing.T, opts ...contract.Option) contract.NoteRepository {
		table := "notes-" + uuid.NewString()
		_, err := EnsureTable(ctx, client, table, time.Minute)
		require.NoError(t, err)
		t.Cleanup(func() {
			_, _ = client.DeleteTable(context.Background(), &dynamodb.DeleteTableInput{TableName: aws.String(table)})
		})
		return NewNoteRepository(client, table, opts...)
	})
}

func startDynamoLocal(ctx context.Context, t *testing.T) string {
	t.Helper()

	request := testcontainers.ContainerRequest{
		Image:        "amazon/dynamodb-local",
		Cmd:          []string{"-jar", "DynamoDBLocal.jar", "-inMemory", "-sharedDb"},
		ExposedPorts: []string{dynamoLocalPort},
		WaitingFor:   wait.ForListeningPort(dynamoLocalPort).WithStartupTimeout(time.Minute),
	}
	dynamoContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: request,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Failed to start DynamoDB Local: %v", err)
	}
	t.Cleanup(func() {
		if err := dynamoContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to stop DynamoDB Local container %s: %v", dynamoContainer.GetContainerID(), err)
		}
	})

	mappedPort, err := dynamoContainer.MappedPort(ctx, dynamoLocalPort)
	if err != nil {
		t.Skipf("Failed to get mapped port for DynamoDB Local (%v)", err)
	}
	host, err := dynamoContainer.Host(ctx)
	if err != nil {
		t.Skipf("Failed to get host for DynamoDB Local (%v)", err)
	}
	return fmt.Sprintf("http://%s:%d", host, mappedPort.Int())
}

func withTable(cfg config.StoreConfig, table string) config.StoreConfig {
	cfg.DynamoTable = table
	return cfg
}
