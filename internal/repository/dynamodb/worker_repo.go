package dynamodb

import (
	"context"
	"fmt"
	"sort"

	"score/internal/domain"
	"score/internal/logger"
	"score/internal/repository"
	repositoryIface "score/internal/repository/iface"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DefaultWorkerTable is the table holding the worker directory
const DefaultWorkerTable = "workers"

type workerRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    logger.Logger
}

// NewWorkerRepository creates a DynamoDB worker repository keyed by uuid
func NewWorkerRepository(client *dynamodb.Client, tableName string, log logger.Logger) repositoryIface.WorkerRepository {
	if tableName == "" {
		tableName = DefaultWorkerTable
	}
	return &workerRepository{
		client:    client,
		tableName: tableName,
		logger:    log.With(logger.String("component", "worker_repository")),
	}
}

func (r *workerRepository) Put(ctx context.Context, worker *domain.Worker) error {
	item, err := attributevalue.MarshalMap(worker)
	if err != nil {
		return fmt.Errorf("failed to marshal worker: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		r.logger.Error("failed to put worker",
			logger.String("uuid", worker.UUID),
			logger.Error(err))
		return fmt.Errorf("failed to put worker: %w", err)
	}

	r.logger.Debug("worker stored",
		logger.String("uuid", worker.UUID),
		logger.String("status", string(worker.Status)),
		logger.Any("groups", worker.Groups))
	return nil
}

func (r *workerRepository) Get(ctx context.Context, uuid string) (*domain.Worker, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"uuid": &types.AttributeValueMemberS{Value: uuid},
		},
	})
	if err != nil {
		r.logger.Error("failed to get worker", logger.String("uuid", uuid), logger.Error(err))
		return nil, fmt.Errorf("failed to get worker: %w", err)
	}

	if result.Item == nil {
		return nil, repository.ErrNotFound
	}

	var worker domain.Worker
	if err := attributevalue.UnmarshalMap(result.Item, &worker); err != nil {
		return nil, fmt.Errorf("failed to unmarshal worker: %w", err)
	}
	return &worker, nil
}

// ActiveInGroup scans the directory; it is small and read once per grouped step
func (r *workerRepository) ActiveInGroup(ctx context.Context, group string) ([]*domain.Worker, error) {
	input := &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("active = :active AND deleted = :deleted AND #status = :up AND contains(#groups, :group)"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
			"#groups": "groups",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":active":  &types.AttributeValueMemberBOOL{Value: true},
			":deleted": &types.AttributeValueMemberBOOL{Value: false},
			":up":      &types.AttributeValueMemberS{Value: string(domain.WorkerStatusUp)},
			":group":   &types.AttributeValueMemberS{Value: group},
		},
	}

	var workers []*domain.Worker
	paginator := dynamodb.NewScanPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			r.logger.Error("failed to scan workers", logger.String("group", group), logger.Error(err))
			return nil, fmt.Errorf("failed to scan workers: %w", err)
		}
		for _, item := range page.Items {
			var worker domain.Worker
			if err := attributevalue.UnmarshalMap(item, &worker); err != nil {
				r.logger.Warn("failed to unmarshal worker", logger.Error(err))
				continue
			}
			workers = append(workers, &worker)
		}
	}

	sort.Slice(workers, func(i, j int) bool { return workers[i].UUID < workers[j].UUID })
	return workers, nil
}
