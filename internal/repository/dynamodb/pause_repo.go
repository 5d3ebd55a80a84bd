package dynamodb

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"score/internal/domain"
	"score/internal/logger"
	"score/internal/repository"
	repositoryIface "score/internal/repository/iface"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DefaultPauseTable is the table holding paused executions
const DefaultPauseTable = "paused_executions"

// pauseItem is the stored shape: the pause record plus its composite key
type pauseItem struct {
	PauseKey string `dynamodbav:"pause_key"`
	domain.PausedExecution
}

type pauseRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    logger.Logger
}

// NewPauseRepository creates a DynamoDB pause repository
func NewPauseRepository(client *dynamodb.Client, tableName string, log logger.Logger) repositoryIface.PauseRepository {
	if tableName == "" {
		tableName = DefaultPauseTable
	}
	return &pauseRepository{
		client:    client,
		tableName: tableName,
		logger:    log.With(logger.String("component", "pause_repository")),
	}
}

func pauseKeyOf(executionID int64, branchID string) string {
	return strconv.FormatInt(executionID, 10) + "#" + branchID
}

func (r *pauseRepository) keyAttr(executionID int64, branchID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pause_key": &types.AttributeValueMemberS{Value: pauseKeyOf(executionID, branchID)},
	}
}

func (r *pauseRepository) Get(ctx context.Context, executionID int64, branchID string) (*domain.PausedExecution, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            r.keyAttr(executionID, branchID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		r.logger.Error("failed to get paused execution",
			logger.Int64("execution_id", executionID),
			logger.String("branch_id", branchID),
			logger.Error(err))
		return nil, fmt.Errorf("failed to get paused execution: %w", err)
	}

	if result.Item == nil {
		return nil, repository.ErrNotFound
	}

	var item pauseItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal paused execution: %w", err)
	}

	return &item.PausedExecution, nil
}

func (r *pauseRepository) Create(ctx context.Context, paused *domain.PausedExecution) error {
	item, err := attributevalue.MarshalMap(pauseItem{
		PauseKey:        pauseKeyOf(paused.ExecutionID, paused.BranchID),
		PausedExecution: *paused,
	})
	if err != nil {
		r.logger.Error("failed to marshal paused execution", logger.Error(err))
		return fmt.Errorf("failed to marshal paused execution: %w", err)
	}

	// Create-if-absent: a concurrent pause of the same key loses here
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(pause_key)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			r.logger.Debug("pause record already exists",
				logger.Int64("execution_id", paused.ExecutionID),
				logger.String("branch_id", paused.BranchID))
			return fmt.Errorf("%w: execution_id=%d branch_id=%q", repository.ErrAlreadyPaused, paused.ExecutionID, paused.BranchID)
		}
		r.logger.Error("failed to create paused execution", logger.Error(err))
		return fmt.Errorf("failed to create paused execution: %w", err)
	}

	return nil
}

func (r *pauseRepository) UpdateSnapshot(ctx context.Context, executionID int64, branchID string, snapshot []byte) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 r.keyAttr(executionID, branchID),
		UpdateExpression:    aws.String("SET snapshot = :snapshot, updated_at = :updated_at"),
		ConditionExpression: aws.String("attribute_exists(pause_key)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":snapshot":   &types.AttributeValueMemberB{Value: snapshot},
			":updated_at": &types.AttributeValueMemberN{Value: strconv.FormatInt(time.Now().UnixMilli(), 10)},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return fmt.Errorf("%w: execution_id=%d branch_id=%q", repository.ErrNotFound, executionID, branchID)
		}
		r.logger.Error("failed to write execution snapshot",
			logger.Int64("execution_id", executionID),
			logger.String("branch_id", branchID),
			logger.Error(err))
		return fmt.Errorf("failed to write execution snapshot: %w", err)
	}

	return nil
}

func (r *pauseRepository) Delete(ctx context.Context, executionID int64, branchID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       r.keyAttr(executionID, branchID),
	})
	if err != nil {
		r.logger.Error("failed to delete paused execution",
			logger.Int64("execution_id", executionID),
			logger.String("branch_id", branchID),
			logger.Error(err))
		return fmt.Errorf("failed to delete paused execution: %w", err)
	}

	return nil
}
