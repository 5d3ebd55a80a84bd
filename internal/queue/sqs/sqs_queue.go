// internal/queue/sqs/sqs_queue.go
package sqs

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"score/internal/domain"
	"score/internal/logger"
	queue "score/internal/queue/iface"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// maxBatchEntries is the SQS limit for batch send and delete
const maxBatchEntries = 10

// Client is the subset of the SQS API the queue uses
type Client interface {
	SendMessageBatch(ctx context.Context, params *sqs.SendMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessageBatch(ctx context.Context, params *sqs.DeleteMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageBatchOutput, error)
	GetQueueAttributes(ctx context.Context, params *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error)
}

// QueueConfig holds configuration for SQS queue
type QueueConfig struct {
	QueueURL          string
	WorkerCount       int
	MaxMessages       int32
	WaitTimeSeconds   int32
	VisibilityTimeout int32
}

// SQSQueue carries execution messages over SQS. Each received batch is
// reported to the listener, terminal messages are handed over as a whole
// and the rest go to the processor one by one.
type SQSQueue struct {
	client    Client
	config    QueueConfig
	logger    logger.Logger
	listener  queue.Listener
	processor queue.MessageProcessor[*domain.ExecutionMessage]
	stopCh    chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewSQSQueue creates a new SQS queue with listener and processor
func NewSQSQueue(
	client Client,
	config QueueConfig,
	listener queue.Listener,
	processor queue.MessageProcessor[*domain.ExecutionMessage],
	log logger.Logger,
) *SQSQueue {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 5
	}
	if config.MaxMessages <= 0 || config.MaxMessages > maxBatchEntries {
		config.MaxMessages = maxBatchEntries
	}
	if config.WaitTimeSeconds <= 0 {
		config.WaitTimeSeconds = 20
	}
	if config.VisibilityTimeout <= 0 {
		config.VisibilityTimeout = 60
	}

	return &SQSQueue{
		client:    client,
		config:    config,
		logger:    log.With(logger.String("component", "sqs_queue")),
		listener:  listener,
		processor: processor,
		stopCh:    make(chan struct{}),
	}
}

func (q *SQSQueue) Send(ctx context.Context, messages ...*domain.ExecutionMessage) error {
	if len(messages) == 0 {
		return nil
	}

	for start := 0; start < len(messages); start += maxBatchEntries {
		end := min(start+maxBatchEntries, len(messages))
		if err := q.sendBatch(ctx, messages[start:end]); err != nil {
			return err
		}
	}

	q.logger.Debug("messages sent to queue",
		logger.String("queue_url", q.config.QueueURL),
		logger.Int("count", len(messages)))

	q.listener.OnEnqueue(ctx, messages, q.sizeOrUnknown(ctx))
	return nil
}

func (q *SQSQueue) sendBatch(ctx context.Context, messages []*domain.ExecutionMessage) error {
	entries := make([]types.SendMessageBatchRequestEntry, 0, len(messages))
	for i, msg := range messages {
		body, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		entries = append(entries, types.SendMessageBatchRequestEntry{
			Id:          aws.String(strconv.Itoa(i)),
			MessageBody: aws.String(string(body)),
		})
	}

	out, err := q.client.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
		QueueUrl: &q.config.QueueURL,
		Entries:  entries,
	})
	if err != nil {
		q.logger.Error("failed to send message batch to SQS",
			logger.String("queue_url", q.config.QueueURL),
			logger.Error(err))
		return fmt.Errorf("failed to send messages: %w", err)
	}
	if len(out.Failed) > 0 {
		first := out.Failed[0]
		return fmt.Errorf("failed to send %d of %d messages: %s",
			len(out.Failed), len(entries), aws.ToString(first.Message))
	}

	return nil
}

// Size reads ApproximateNumberOfMessages
func (q *SQSQueue) Size(ctx context.Context) (int, error) {
	out, err := q.client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       &q.config.QueueURL,
		AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameApproximateNumberOfMessages},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get queue attributes: %w", err)
	}

	raw, ok := out.Attributes[string(types.QueueAttributeNameApproximateNumberOfMessages)]
	if !ok {
		return 0, nil
	}
	size, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid queue size %q: %w", raw, err)
	}
	return size, nil
}

func (q *SQSQueue) sizeOrUnknown(ctx context.Context) int {
	size, err := q.Size(ctx)
	if err != nil {
		q.logger.Warn("failed to read queue size", logger.Error(err))
		return queue.UnknownSize
	}
	return size
}

func (q *SQSQueue) StartConsumer(ctx context.Context) error {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return fmt.Errorf("consumer already running")
	}
	q.running = true

	// Create a long-lived context for workers, not tied to the startup context
	q.ctx, q.cancel = context.WithCancel(context.Background())
	q.stopCh = make(chan struct{})
	q.mu.Unlock()

	q.logger.Info("starting SQS consumer",
		logger.String("queue_url", q.config.QueueURL),
		logger.Int("worker_count", q.config.WorkerCount))

	for i := 0; i < q.config.WorkerCount; i++ {
		q.wg.Add(1)
		go q.worker(q.ctx, i+1)
	}

	return nil
}

func (q *SQSQueue) StopConsumer(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return fmt.Errorf("consumer not running")
	}
	q.mu.Unlock()

	q.logger.Info("stopping SQS consumer",
		logger.String("queue_url", q.config.QueueURL))

	if q.cancel != nil {
		q.cancel()
	}

	close(q.stopCh)
	q.wg.Wait()

	q.mu.Lock()
	q.running = false
	q.mu.Unlock()

	q.logger.Info("SQS consumer stopped")
	return nil
}

func (q *SQSQueue) worker(ctx context.Context, workerID int) {
	defer q.wg.Done()

	q.logger.Info("worker started",
		logger.Int("worker_id", workerID))

	for {
		select {
		case <-q.stopCh:
			q.logger.Info("worker stopping", logger.Int("worker_id", workerID))
			return
		default:
			q.poll(ctx, workerID)
		}
	}
}

func (q *SQSQueue) poll(ctx context.Context, workerID int) {
	// Timeout should be longer than WaitTimeSeconds to allow long polling to complete
	receiveTimeout := time.Duration(q.config.WaitTimeSeconds+5) * time.Second
	receiveCtx, cancel := context.WithTimeout(ctx, receiveTimeout)
	defer cancel()

	result, err := q.client.ReceiveMessage(receiveCtx, &sqs.ReceiveMessageInput{
		QueueUrl:            &q.config.QueueURL,
		MaxNumberOfMessages: q.config.MaxMessages,
		WaitTimeSeconds:     q.config.WaitTimeSeconds,
		VisibilityTimeout:   q.config.VisibilityTimeout,
	})

	if err != nil {
		select {
		case <-q.stopCh:
			return
		default:
			q.logger.Error("failed to receive messages",
				logger.Int("worker_id", workerID),
				logger.Error(err))
			time.Sleep(1 * time.Second)
		}
		return
	}

	if len(result.Messages) == 0 {
		return
	}

	q.handleBatch(context.Background(), result.Messages, workerID)
}

// handleBatch decodes a received batch and routes it. Undecodable bodies
// are deleted so they do not come back forever.
func (q *SQSQueue) handleBatch(ctx context.Context, raw []types.Message, workerID int) {
	messages := make([]*domain.ExecutionMessage, 0, len(raw))
	handles := make(map[*domain.ExecutionMessage]types.Message, len(raw))
	var poison []types.Message

	for _, rm := range raw {
		var msg domain.ExecutionMessage
		if err := json.Unmarshal([]byte(aws.ToString(rm.Body)), &msg); err != nil {
			q.logger.Error("failed to unmarshal message",
				logger.Int("worker_id", workerID),
				logger.String("sqs_message_id", aws.ToString(rm.MessageId)),
				logger.Error(err))
			poison = append(poison, rm)
			continue
		}
		messages = append(messages, &msg)
		handles[&msg] = rm
	}
	q.deleteMessages(ctx, poison)

	if len(messages) == 0 {
		return
	}

	q.listener.OnPoll(ctx, messages, q.sizeOrUnknown(ctx))

	terminated, failed, runnable := queue.Partition(messages)
	if len(terminated) > 0 {
		q.listener.OnTerminated(ctx, terminated)
		q.deleteMessages(ctx, lookup(handles, terminated))
	}
	if len(failed) > 0 {
		q.listener.OnFailed(ctx, failed)
		q.deleteMessages(ctx, lookup(handles, failed))
	}

	for _, msg := range runnable {
		select {
		case <-q.stopCh:
			return
		default:
		}

		if q.processor.ProcessMessage(ctx, msg) {
			q.deleteMessages(ctx, lookup(handles, []*domain.ExecutionMessage{msg}))
			continue
		}
		q.logger.Warn("message processing failed, will retry",
			logger.Int("worker_id", workerID),
			logger.Int64("message_id", msg.MessageID))
	}
}

func lookup(handles map[*domain.ExecutionMessage]types.Message, messages []*domain.ExecutionMessage) []types.Message {
	out := make([]types.Message, 0, len(messages))
	for _, msg := range messages {
		out = append(out, handles[msg])
	}
	return out
}

func (q *SQSQueue) deleteMessages(ctx context.Context, messages []types.Message) {
	for start := 0; start < len(messages); start += maxBatchEntries {
		end := min(start+maxBatchEntries, len(messages))

		entries := make([]types.DeleteMessageBatchRequestEntry, 0, end-start)
		for i, msg := range messages[start:end] {
			entries = append(entries, types.DeleteMessageBatchRequestEntry{
				Id:            aws.String(strconv.Itoa(i)),
				ReceiptHandle: msg.ReceiptHandle,
			})
		}

		out, err := q.client.DeleteMessageBatch(ctx, &sqs.DeleteMessageBatchInput{
			QueueUrl: &q.config.QueueURL,
			Entries:  entries,
		})
		if err != nil {
			q.logger.Error("failed to delete messages", logger.Error(err))
			continue
		}
		if len(out.Failed) > 0 {
			q.logger.Warn("some messages were not deleted",
				logger.Int("failed", len(out.Failed)))
		}
	}
}
