package dynamodb

import (
	"context"
	"testing"
	"time"

	"score/internal/domain"
	"score/internal/logger"
	"score/internal/repository"
	repositoryIface "score/internal/repository/iface"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	dynamoDBEndpoint = "http://localhost:9000"
	testRegion       = "us-east-1"
	testPauseTable   = "paused_executions_test"
	testWorkerTable  = "workers_test"
)

// setupClient returns a client for dynamodb local, skipping when it is down
func setupClient(t *testing.T) *dynamodb.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(testRegion),
		config.WithBaseEndpoint(dynamoDBEndpoint),
	)
	require.NoError(t, err)
	client := dynamodb.NewFromConfig(cfg)

	if _, err := client.ListTables(ctx, &dynamodb.ListTablesInput{}); err != nil {
		t.Skipf("dynamodb local not reachable at %s: %v", dynamoDBEndpoint, err)
	}
	return client
}

func ensureTable(t *testing.T, client *dynamodb.Client, table, hashKey string) {
	t.Helper()
	_, err := client.CreateTable(context.Background(), &dynamodb.CreateTableInput{
		TableName: aws.String(table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(hashKey), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(hashKey), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		require.ErrorAs(t, err, &inUse)
	}
}

func setupPauseRepo(t *testing.T) repositoryIface.PauseRepository {
	client := setupClient(t)
	ensureTable(t, client, testPauseTable, "pause_key")
	return NewPauseRepository(client, testPauseTable, logger.NewNopLogger())
}

func TestPauseRepositoryLifecycle(t *testing.T) {
	repo := setupPauseRepo(t)
	ctx := context.Background()
	executionID := time.Now().UnixNano()

	defer repo.Delete(ctx, executionID, "b1")

	_, err := repo.Get(ctx, executionID, "b1")
	assert.True(t, repository.IsNotFoundError(err))

	err = repo.UpdateSnapshot(ctx, executionID, "b1", []byte("x"))
	assert.True(t, repository.IsNotFoundError(err))

	require.NoError(t, repo.Create(ctx, domain.NewPausedExecution(1, executionID, "b1", domain.PauseReasonNoWorkersInGroup)))

	err = repo.Create(ctx, domain.NewPausedExecution(2, executionID, "b1", domain.PauseReasonUserPaused))
	assert.True(t, repository.IsAlreadyPausedError(err))

	require.NoError(t, repo.UpdateSnapshot(ctx, executionID, "b1", []byte("snapshot")))

	got, err := repo.Get(ctx, executionID, "b1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.PauseID)
	assert.Equal(t, domain.PauseReasonNoWorkersInGroup, got.Reason)
	assert.Equal(t, []byte("snapshot"), got.Snapshot)

	require.NoError(t, repo.Delete(ctx, executionID, "b1"))
	require.NoError(t, repo.Delete(ctx, executionID, "b1"))

	_, err = repo.Get(ctx, executionID, "b1")
	assert.True(t, repository.IsNotFoundError(err))
}
