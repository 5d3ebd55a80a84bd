package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
)

// Backend names accepted by the store switches
const (
	BackendMemory    = "memory"
	BackendRedis     = "redis"
	BackendDynamoDB  = "dynamodb"
	BackendSQS       = "sqs"
	BackendLocal     = "local"
	BackendZooKeeper = "zookeeper"
)

type HTTPSettings struct {
	Port string
}

type QueueSettings struct {
	Backend           string
	SQSEndpoint       string
	QueueURL          string
	WorkerCount       int
	MaxMessages       int32
	WaitTimeSeconds   int32
	VisibilityTimeout int32
	MemoryCapacity    int
	BatchSize         int
}

type DynamoDBSettings struct {
	Endpoint    string
	PauseTable  string
	WorkerTable string
}

type RedisSettings struct {
	Addr           string
	Password       string
	DB             int
	SplitRetention time.Duration
}

type ZooKeeperSettings struct {
	Servers        []string
	SessionTimeout time.Duration
	LockRoot       string
	RefreshPath    string
	WatchPlans     bool
}

type ReconcileSettings struct {
	Schedule  string
	Threshold time.Duration
}

// Settings is everything the engine reads at start-up
type Settings struct {
	LogLevel  string
	DevLogger bool
	AWSRegion string
	PlansFile string

	SplitStore   string
	PauseStore   string
	WorkerStore  string
	CounterStore string
	Lock         string

	EventBufferSize int64
	SlackChannel    string

	HTTP      HTTPSettings
	Queue     QueueSettings
	DynamoDB  DynamoDBSettings
	Redis     RedisSettings
	ZooKeeper ZooKeeperSettings
	Reconcile ReconcileSettings
}

// NeedsRedis reports whether any store is backed by Redis
func (s Settings) NeedsRedis() bool {
	return s.SplitStore == BackendRedis || s.CounterStore == BackendRedis
}

// NeedsZooKeeper reports whether locking or plan refresh goes through ZooKeeper
func (s Settings) NeedsZooKeeper() bool {
	return s.Lock == BackendZooKeeper || s.ZooKeeper.WatchPlans
}

// SharesState reports whether split or pause records are visible to other instances
func (s Settings) SharesState() bool {
	return s.SplitStore == BackendRedis || s.PauseStore == BackendDynamoDB
}

// Validate rejects backend combinations that lose per-execution atomicity.
// Shared records are read, changed and written back, so every instance has
// to serialize on the same lock.
func (s Settings) Validate() error {
	if s.SharesState() && s.Lock != BackendZooKeeper {
		return fmt.Errorf("split store %q and pause store %q are shared between instances and need --lock=%s, got %q",
			s.SplitStore, s.PauseStore, BackendZooKeeper, s.Lock)
	}
	return nil
}

// Flags lists every command line flag; each can also be set through SCORE_<NAME>
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "log-level", Value: "info", Usage: "Log level (debug, info, warn, error)", Sources: cli.EnvVars("SCORE_LOG_LEVEL")},
		&cli.BoolFlag{Name: "dev-logger", Usage: "Human readable development logging", Sources: cli.EnvVars("SCORE_DEV_LOGGER")},
		&cli.StringFlag{Name: "aws-region", Value: "us-east-1", Usage: "AWS region for SQS and DynamoDB", Sources: cli.EnvVars("SCORE_AWS_REGION")},
		&cli.StringFlag{Name: "plans-file", Value: "./plans.json", Usage: "JSON file holding the execution plans", Sources: cli.EnvVars("SCORE_PLANS_FILE")},

		&cli.StringFlag{Name: "split-store", Value: BackendMemory, Usage: "Split record store (memory, redis)", Sources: cli.EnvVars("SCORE_SPLIT_STORE")},
		&cli.StringFlag{Name: "pause-store", Value: BackendMemory, Usage: "Pause record store (memory, dynamodb)", Sources: cli.EnvVars("SCORE_PAUSE_STORE")},
		&cli.StringFlag{Name: "worker-store", Value: BackendMemory, Usage: "Worker directory store (memory, dynamodb)", Sources: cli.EnvVars("SCORE_WORKER_STORE")},
		&cli.StringFlag{Name: "counter-store", Value: BackendMemory, Usage: "Sequence counter store (memory, redis)", Sources: cli.EnvVars("SCORE_COUNTER_STORE")},
		&cli.StringFlag{Name: "lock", Value: BackendLocal, Usage: "Per-execution lock (local, zookeeper)", Sources: cli.EnvVars("SCORE_LOCK")},

		&cli.StringFlag{Name: "http-port", Value: "8090", Usage: "Admin HTTP port", Sources: cli.EnvVars("SCORE_HTTP_PORT")},

		&cli.StringFlag{Name: "queue", Value: BackendMemory, Usage: "Queue transport (memory, sqs)", Sources: cli.EnvVars("SCORE_QUEUE")},
		&cli.StringFlag{Name: "sqs-endpoint", Value: "http://localhost:4566", Usage: "SQS endpoint, empty for AWS", Sources: cli.EnvVars("SCORE_SQS_ENDPOINT")},
		&cli.StringFlag{Name: "sqs-queue-url", Value: "http://localhost:4566/000000000000/score-executions", Usage: "SQS queue URL", Sources: cli.EnvVars("SCORE_SQS_QUEUE_URL")},
		&cli.IntFlag{Name: "queue-workers", Value: 4, Usage: "Consumer goroutines", Sources: cli.EnvVars("SCORE_QUEUE_WORKERS")},
		&cli.IntFlag{Name: "sqs-max-messages", Value: 10, Usage: "Messages per receive (max 10)", Sources: cli.EnvVars("SCORE_SQS_MAX_MESSAGES")},
		&cli.IntFlag{Name: "sqs-wait-seconds", Value: 20, Usage: "Long poll wait time", Sources: cli.EnvVars("SCORE_SQS_WAIT_SECONDS")},
		&cli.IntFlag{Name: "sqs-visibility-timeout", Value: 60, Usage: "Visibility timeout in seconds", Sources: cli.EnvVars("SCORE_SQS_VISIBILITY_TIMEOUT")},
		&cli.IntFlag{Name: "memory-queue-capacity", Value: 4096, Usage: "Buffered messages of the in-process queue", Sources: cli.EnvVars("SCORE_MEMORY_QUEUE_CAPACITY")},
		&cli.IntFlag{Name: "memory-queue-batch", Value: 10, Usage: "Batch size of the in-process queue", Sources: cli.EnvVars("SCORE_MEMORY_QUEUE_BATCH")},

		&cli.StringFlag{Name: "dynamodb-endpoint", Value: "http://localhost:9000", Usage: "DynamoDB endpoint, empty for AWS", Sources: cli.EnvVars("SCORE_DYNAMODB_ENDPOINT")},
		&cli.StringFlag{Name: "pause-table", Value: "paused_executions", Usage: "DynamoDB pause table", Sources: cli.EnvVars("SCORE_PAUSE_TABLE")},
		&cli.StringFlag{Name: "worker-table", Value: "workers", Usage: "DynamoDB worker table", Sources: cli.EnvVars("SCORE_WORKER_TABLE")},

		&cli.StringFlag{Name: "redis-addr", Value: "localhost:6379", Usage: "Redis address", Sources: cli.EnvVars("SCORE_REDIS_ADDR")},
		&cli.StringFlag{Name: "redis-password", Usage: "Redis password", Sources: cli.EnvVars("SCORE_REDIS_PASSWORD")},
		&cli.IntFlag{Name: "redis-db", Value: 0, Usage: "Redis database", Sources: cli.EnvVars("SCORE_REDIS_DB")},
		&cli.DurationFlag{Name: "split-retention", Value: 24 * time.Hour, Usage: "How long resumed split records are kept", Sources: cli.EnvVars("SCORE_SPLIT_RETENTION")},

		&cli.StringFlag{Name: "zk-servers", Value: "localhost:2181", Usage: "Comma separated ZooKeeper servers", Sources: cli.EnvVars("SCORE_ZK_SERVERS")},
		&cli.DurationFlag{Name: "zk-session-timeout", Value: 30 * time.Second, Usage: "ZooKeeper session timeout", Sources: cli.EnvVars("SCORE_ZK_SESSION_TIMEOUT")},
		&cli.StringFlag{Name: "zk-lock-root", Value: "/score/locks", Usage: "Parent znode of execution locks", Sources: cli.EnvVars("SCORE_ZK_LOCK_ROOT")},
		&cli.StringFlag{Name: "zk-refresh-path", Value: "/score/plans/refresh", Usage: "Znode whose changes reload plans", Sources: cli.EnvVars("SCORE_ZK_REFRESH_PATH")},
		&cli.BoolFlag{Name: "zk-watch-plans", Usage: "Reload plans when the refresh znode changes", Sources: cli.EnvVars("SCORE_ZK_WATCH_PLANS")},

		&cli.StringFlag{Name: "reconcile-schedule", Value: "0 */5 * * * *", Usage: "Cron schedule (with seconds) of the join report", Sources: cli.EnvVars("SCORE_RECONCILE_SCHEDULE")},
		&cli.DurationFlag{Name: "reconcile-threshold", Value: 30 * time.Minute, Usage: "Age after which an open split is reported", Sources: cli.EnvVars("SCORE_RECONCILE_THRESHOLD")},

		&cli.IntFlag{Name: "event-buffer", Value: 1024, Usage: "Lifecycle event channel buffer", Sources: cli.EnvVars("SCORE_EVENT_BUFFER")},
		&cli.StringFlag{Name: "slack-channel", Value: "#score-alerts", Usage: "Channel receiving failure alerts", Sources: cli.EnvVars("SCORE_SLACK_CHANNEL")},
	}
}

// FromCommand reads the parsed flags
func FromCommand(cmd *cli.Command) Settings {
	return Settings{
		LogLevel:  cmd.String("log-level"),
		DevLogger: cmd.Bool("dev-logger"),
		AWSRegion: cmd.String("aws-region"),
		PlansFile: cmd.String("plans-file"),

		SplitStore:   cmd.String("split-store"),
		PauseStore:   cmd.String("pause-store"),
		WorkerStore:  cmd.String("worker-store"),
		CounterStore: cmd.String("counter-store"),
		Lock:         cmd.String("lock"),

		EventBufferSize: int64(cmd.Int("event-buffer")),
		SlackChannel:    cmd.String("slack-channel"),

		HTTP: HTTPSettings{Port: cmd.String("http-port")},
		Queue: QueueSettings{
			Backend:           cmd.String("queue"),
			SQSEndpoint:       cmd.String("sqs-endpoint"),
			QueueURL:          cmd.String("sqs-queue-url"),
			WorkerCount:       cmd.Int("queue-workers"),
			MaxMessages:       int32(cmd.Int("sqs-max-messages")),
			WaitTimeSeconds:   int32(cmd.Int("sqs-wait-seconds")),
			VisibilityTimeout: int32(cmd.Int("sqs-visibility-timeout")),
			MemoryCapacity:    cmd.Int("memory-queue-capacity"),
			BatchSize:         cmd.Int("memory-queue-batch"),
		},
		DynamoDB: DynamoDBSettings{
			Endpoint:    cmd.String("dynamodb-endpoint"),
			PauseTable:  cmd.String("pause-table"),
			WorkerTable: cmd.String("worker-table"),
		},
		Redis: RedisSettings{
			Addr:           cmd.String("redis-addr"),
			Password:       cmd.String("redis-password"),
			DB:             cmd.Int("redis-db"),
			SplitRetention: cmd.Duration("split-retention"),
		},
		ZooKeeper: ZooKeeperSettings{
			Servers:        splitList(cmd.String("zk-servers")),
			SessionTimeout: cmd.Duration("zk-session-timeout"),
			LockRoot:       cmd.String("zk-lock-root"),
			RefreshPath:    cmd.String("zk-refresh-path"),
			WatchPlans:     cmd.Bool("zk-watch-plans"),
		},
		Reconcile: ReconcileSettings{
			Schedule:  cmd.String("reconcile-schedule"),
			Threshold: cmd.Duration("reconcile-threshold"),
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
