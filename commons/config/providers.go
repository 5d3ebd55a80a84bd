package config

import (
	"context"
	"fmt"

	"score/commons/routes"
	"score/commons/server"
	cache "score/internal/cache/iface"
	redisCache "score/internal/cache/redis"
	coordinator "score/internal/coordinator/iface"
	zkCoordinator "score/internal/coordinator/zk"
	"score/internal/logger"
	"score/internal/slack"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx/fxevent"
)

// ProvideLogger creates and configures the logger for the application
func ProvideLogger(s Settings) (logger.Logger, error) {
	if s.DevLogger {
		return logger.NewZapLoggerForDev()
	}
	return logger.NewZapLogger(s.LogLevel)
}

// ProvideFxLogger creates the FX event logger using the application logger
func ProvideFxLogger(log logger.Logger) fxevent.Logger {
	return &fxevent.ZapLogger{
		Logger: log.(*logger.ZapLogger).Logger(),
	}
}

// ProvideRouteDependencies creates route dependencies
func ProvideRouteDependencies(log logger.Logger) routes.RouteDependencies {
	return routes.RouteDependencies{
		Logger: log,
	}
}

// ProvideRouter creates and configures the Gin router with all routes
func ProvideRouter(
	config routes.RouterConfig,
	deps routes.RouteDependencies,
	routeInitializer func(*gin.Engine, routes.RouteDependencies),
) *gin.Engine {
	router := routes.NewRouter(config, deps)
	routeInitializer(router, deps)
	return router
}

// ProvideServerConfig exposes the HTTP section
func ProvideServerConfig(s Settings) server.ServerConfig {
	return server.ServerConfig{
		Port: s.HTTP.Port,
	}
}

// loadAWSConfig points the SDK at endpoint when set (LocalStack, DynamoDB local)
func loadAWSConfig(ctx context.Context, region, endpoint string) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if endpoint != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(endpoint))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// ProvideSQSClient provides an SQS client (for LocalStack or AWS)
func ProvideSQSClient(s Settings) (*sqs.Client, error) {
	cfg, err := loadAWSConfig(context.Background(), s.AWSRegion, s.Queue.SQSEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config for sqs: %w", err)
	}
	return sqs.NewFromConfig(cfg), nil
}

// ProvideDynamoDBClient provides DynamoDB client
func ProvideDynamoDBClient(s Settings) (*awsdynamodb.Client, error) {
	cfg, err := loadAWSConfig(context.Background(), s.AWSRegion, s.DynamoDB.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config for dynamodb: %w", err)
	}
	return awsdynamodb.NewFromConfig(cfg), nil
}

// ProvideSlackClient provides a Slack client (mock for development)
func ProvideSlackClient(log logger.Logger) slack.Client {
	return slack.NewMockClient(log)
}

// ProvideZooKeeperCoordinator connects only when locking or plan refresh
// needs ZooKeeper; otherwise the coordinator is nil
func ProvideZooKeeperCoordinator(s Settings, log logger.Logger) (coordinator.Coordinator, error) {
	if !s.NeedsZooKeeper() {
		return nil, nil
	}

	coord, err := zkCoordinator.NewZKCoordinator(s.ZooKeeper.Servers, s.ZooKeeper.SessionTimeout, log)
	if err != nil {
		return nil, err
	}
	return coord, nil
}

// ProvideRedisCache connects only when a Redis backed store is selected;
// otherwise the cache is nil
func ProvideRedisCache(s Settings, log logger.Logger) (cache.Cache, error) {
	if !s.NeedsRedis() {
		return nil, nil
	}

	c, err := redisCache.NewRedisCache(s.Redis.Addr, s.Redis.Password, s.Redis.DB, log)
	if err != nil {
		return nil, err
	}
	return c, nil
}
