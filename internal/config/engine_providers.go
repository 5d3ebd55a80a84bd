package config

import (
	"context"
	"fmt"

	commonsConfig "score/commons/config"
	"score/commons/routes"
	"score/commons/server"
	cache "score/internal/cache/iface"
	"score/internal/codec"
	coordinator "score/internal/coordinator/iface"
	"score/internal/domain"
	eventbus "score/internal/eventbus/iface"
	"score/internal/eventbus/watermill"
	"score/internal/handler"
	lock "score/internal/lock/iface"
	"score/internal/lock/local"
	"score/internal/lock/zookeeper"
	"score/internal/logger"
	"score/internal/plan"
	queue "score/internal/queue/iface"
	memqueue "score/internal/queue/memory"
	sqsqueue "score/internal/queue/sqs"
	"score/internal/repository/dynamodb"
	repository "score/internal/repository/iface"
	"score/internal/repository/memory"
	"score/internal/repository/redis"
	internalRoutes "score/internal/routes"
	"score/internal/service"
	"score/internal/slack"

	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

// Store Providers

func ProvideCounterRepository(s commonsConfig.Settings, c cache.Cache) (repository.CounterRepository, error) {
	switch s.CounterStore {
	case commonsConfig.BackendMemory:
		return memory.NewCounterRepository(), nil
	case commonsConfig.BackendRedis:
		return redis.NewCounterRepository(c), nil
	default:
		return nil, fmt.Errorf("unknown counter store %q", s.CounterStore)
	}
}

func ProvideSplitRepository(s commonsConfig.Settings, c cache.Cache, log logger.Logger) (repository.SplitRepository, error) {
	switch s.SplitStore {
	case commonsConfig.BackendMemory:
		return memory.NewSplitRepository(), nil
	case commonsConfig.BackendRedis:
		return redis.NewSplitRepository(c, s.Redis.SplitRetention, log), nil
	default:
		return nil, fmt.Errorf("unknown split store %q", s.SplitStore)
	}
}

func ProvidePauseRepository(s commonsConfig.Settings, client *awsdynamodb.Client, log logger.Logger) (repository.PauseRepository, error) {
	switch s.PauseStore {
	case commonsConfig.BackendMemory:
		return memory.NewPauseRepository(), nil
	case commonsConfig.BackendDynamoDB:
		return dynamodb.NewPauseRepository(client, s.DynamoDB.PauseTable, log), nil
	default:
		return nil, fmt.Errorf("unknown pause store %q", s.PauseStore)
	}
}

func ProvideWorkerRepository(s commonsConfig.Settings, client *awsdynamodb.Client, log logger.Logger) (repository.WorkerRepository, error) {
	switch s.WorkerStore {
	case commonsConfig.BackendMemory:
		return memory.NewWorkerRepository(), nil
	case commonsConfig.BackendDynamoDB:
		return dynamodb.NewWorkerRepository(client, s.DynamoDB.WorkerTable, log), nil
	default:
		return nil, fmt.Errorf("unknown worker store %q", s.WorkerStore)
	}
}

func ProvideKeyLocker(s commonsConfig.Settings, coord coordinator.Coordinator) (lock.KeyLocker, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	switch s.Lock {
	case commonsConfig.BackendLocal:
		return local.NewKeyLocker(), nil
	case commonsConfig.BackendZooKeeper:
		return zookeeper.NewKeyLocker(coord, s.ZooKeeper.LockRoot), nil
	default:
		return nil, fmt.Errorf("unknown lock %q", s.Lock)
	}
}

// Plan Providers

func ProvideCodec() codec.ExecutionCodec {
	return codec.NewJSONCodec()
}

func ProvidePlanRegistry() *plan.Registry {
	return plan.NewDefaultRegistry()
}

func ProvidePlanStore() *plan.Store {
	return plan.NewStore()
}

func ProvidePlanManager(
	s commonsConfig.Settings,
	registry *plan.Registry,
	store *plan.Store,
	coord coordinator.Coordinator,
	log logger.Logger,
) service.PlanManager {
	var watch coordinator.Coordinator
	if s.ZooKeeper.WatchPlans {
		watch = coord
	}
	return service.NewPlanManager(service.FilePlanSource(s.PlansFile), registry, store, watch, s.ZooKeeper.RefreshPath, log)
}

// Event Providers

func ProvideEventBus(s commonsConfig.Settings, log logger.Logger) eventbus.EventBus {
	pubSub := watermill.NewGoChannelPubSub(s.EventBufferSize, log)
	return watermill.NewEventBus(pubSub, pubSub, log)
}

func ProvideFailureNotifier(s commonsConfig.Settings, bus eventbus.EventBus, client slack.Client, log logger.Logger) service.FailureNotifier {
	return service.NewFailureNotifier(bus, client, s.SlackChannel, log)
}

// Engine Providers

type EngineResult struct {
	fx.Out
	Queue       queue.Queue
	Enqueuer    service.Enqueuer
	Pauses      service.PauseResumeService
	Coordinator service.SplitJoinCoordinator
	Runner      service.StepRunner
}

// ProvideEngine wires the queue and the services around it. The services
// send through the queue and the queue calls back into them, so the sender
// is a placeholder bound once the queue exists.
func ProvideEngine(
	s commonsConfig.Settings,
	c codec.ExecutionCodec,
	store *plan.Store,
	counters repository.CounterRepository,
	splits repository.SplitRepository,
	pauseRepo repository.PauseRepository,
	workers repository.WorkerRepository,
	locker lock.KeyLocker,
	bus eventbus.EventBus,
	sqsClient *awssqs.Client,
	log logger.Logger,
) (EngineResult, error) {
	var q queue.Queue
	sender := queue.SenderFunc(func(ctx context.Context, msgs ...*domain.ExecutionMessage) error {
		return q.Send(ctx, msgs...)
	})

	enqueuer := service.NewEnqueuer(sender, c, counters)
	pauses := service.NewPauseResumeService(pauseRepo, counters, c, enqueuer, locker, log)
	splitJoin := service.NewSplitJoinCoordinator(splits, locker, c, store, enqueuer, log)
	listener := service.NewQueueListener(c, splitJoin, pauses, bus, log)
	runner := service.NewStepRunner(c, store, workers, counters, pauses, splitJoin, enqueuer, log)
	processor := queue.MessageProcessorFunc[*domain.ExecutionMessage](runner.ProcessMessage)

	switch s.Queue.Backend {
	case commonsConfig.BackendMemory:
		q = memqueue.NewQueue(memqueue.QueueConfig{
			Capacity:    s.Queue.MemoryCapacity,
			WorkerCount: s.Queue.WorkerCount,
			BatchSize:   s.Queue.BatchSize,
		}, listener, processor, log)
	case commonsConfig.BackendSQS:
		q = sqsqueue.NewSQSQueue(sqsClient, sqsqueue.QueueConfig{
			QueueURL:          s.Queue.QueueURL,
			WorkerCount:       s.Queue.WorkerCount,
			MaxMessages:       s.Queue.MaxMessages,
			WaitTimeSeconds:   s.Queue.WaitTimeSeconds,
			VisibilityTimeout: s.Queue.VisibilityTimeout,
		}, listener, processor, log)
	default:
		return EngineResult{}, fmt.Errorf("unknown queue %q", s.Queue.Backend)
	}

	return EngineResult{
		Queue:       q,
		Enqueuer:    enqueuer,
		Pauses:      pauses,
		Coordinator: splitJoin,
		Runner:      runner,
	}, nil
}

func ProvideJoinReconciler(s commonsConfig.Settings, splits repository.SplitRepository, log logger.Logger) service.JoinReconciler {
	return service.NewJoinReconciler(splits, s.Reconcile.Schedule, s.Reconcile.Threshold, log)
}

// HTTP Providers

func ProvideHealthHandler(log logger.Logger, q queue.Queue, store *plan.Store) *handler.HealthHandler {
	return handler.NewHealthHandler(log, "score", q, store)
}

func ProvideExecutionHandler(
	log logger.Logger,
	runner service.StepRunner,
	pauses service.PauseResumeService,
) *handler.ExecutionHandler {
	return handler.NewExecutionHandler(log, runner, pauses)
}

func ProvideWorkerHandler(log logger.Logger, workers repository.WorkerRepository) *handler.WorkerHandler {
	return handler.NewWorkerHandler(log, workers)
}

func ProvidePlanHandler(
	s commonsConfig.Settings,
	log logger.Logger,
	store *plan.Store,
	manager service.PlanManager,
	coord coordinator.Coordinator,
) *handler.PlanHandler {
	var broadcast coordinator.Coordinator
	if s.ZooKeeper.WatchPlans {
		broadcast = coord
	}
	return handler.NewPlanHandler(log, store, manager, broadcast, s.ZooKeeper.RefreshPath)
}

func ProvideRouterConfig() routes.RouterConfig {
	return routes.RouterConfig{
		ServiceName: "score",
		Version:     "v1",
	}
}

func ProvideRouteInitializer(
	healthHandler *handler.HealthHandler,
	executionHandler *handler.ExecutionHandler,
	workerHandler *handler.WorkerHandler,
	planHandler *handler.PlanHandler,
) func(*gin.Engine, routes.RouteDependencies) {
	return func(router *gin.Engine, deps routes.RouteDependencies) {
		internalRoutes.InitHealthRoutes(router, healthHandler, deps.Logger)
		internalRoutes.InitExecutionRoutes(router, executionHandler, deps.Logger)
		internalRoutes.InitWorkerRoutes(router, workerHandler, deps.Logger)
		internalRoutes.InitPlanRoutes(router, planHandler, deps.Logger)
	}
}

// Lifecycle Management

// ManageEngineLifecycle starts plans before the consumer so the first
// message already finds them; stop runs in reverse
func ManageEngineLifecycle(
	lc fx.Lifecycle,
	planMgr service.PlanManager,
	notifier service.FailureNotifier,
	q queue.Queue,
	reconciler service.JoinReconciler,
	srv *server.HTTPServer,
	log logger.Logger,
) {
	_ = srv // keeps the HTTP server in the graph

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("starting plan manager")
			return planMgr.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping plan manager")
			return planMgr.Stop(ctx)
		},
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return notifier.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return notifier.Stop(ctx)
		},
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("starting execution queue consumer")
			return q.StartConsumer(ctx)
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping execution queue consumer")
			return q.StopConsumer(ctx)
		},
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return reconciler.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return reconciler.Stop(ctx)
		},
	})
}

// ManageInfrastructureLifecycle closes connections once every consumer stopped
func ManageInfrastructureLifecycle(
	lc fx.Lifecycle,
	bus eventbus.EventBus,
	c cache.Cache,
	coord coordinator.Coordinator,
	log logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := bus.Close(); err != nil {
				log.Warn("failed to close event bus", logger.Error(err))
			}
			if c != nil {
				if err := c.Close(); err != nil {
					log.Warn("failed to close redis", logger.Error(err))
				}
			}
			if coord != nil {
				if err := coord.Close(); err != nil {
					log.Warn("failed to close zookeeper", logger.Error(err))
				}
			}
			return nil
		},
	})
}
