package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"score/internal/domain"
	"score/internal/logger"
	queue "score/internal/queue/iface"
)

// ErrQueueFull is returned by Send when the buffer has no room left
var ErrQueueFull = errors.New("memory queue is full")

// QueueConfig holds configuration for the in-process queue
type QueueConfig struct {
	Capacity        int
	WorkerCount     int
	BatchSize       int
	RedeliveryDelay time.Duration
}

// Queue is a channel-backed transport with the same callback contract as
// the SQS queue. It is safe for concurrent use.
type Queue struct {
	ch        chan *domain.ExecutionMessage
	config    QueueConfig
	logger    logger.Logger
	listener  queue.Listener
	processor queue.MessageProcessor[*domain.ExecutionMessage]
	pending   atomic.Int64

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

var _ queue.Queue = (*Queue)(nil)

func NewQueue(
	config QueueConfig,
	listener queue.Listener,
	processor queue.MessageProcessor[*domain.ExecutionMessage],
	log logger.Logger,
) *Queue {
	if config.Capacity <= 0 {
		config.Capacity = 4096
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = 4
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 10
	}
	if config.RedeliveryDelay <= 0 {
		config.RedeliveryDelay = 100 * time.Millisecond
	}

	return &Queue{
		ch:        make(chan *domain.ExecutionMessage, config.Capacity),
		config:    config,
		logger:    log.With(logger.String("component", "memory_queue")),
		listener:  listener,
		processor: processor,
	}
}

// Send never blocks. When the buffer fills up mid-batch, the messages
// already buffered stay queued and ErrQueueFull is returned.
func (q *Queue) Send(ctx context.Context, messages ...*domain.ExecutionMessage) error {
	sent := 0
	var err error
	for _, msg := range messages {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("failed to send message: %w", ctxErr)
			break
		}
		if !q.offer(msg) {
			err = fmt.Errorf("failed to send message %d: %w", msg.MessageID, ErrQueueFull)
			break
		}
		sent++
	}

	if sent > 0 {
		q.listener.OnEnqueue(ctx, messages[:sent], len(q.ch))
	}
	if err != nil {
		q.logger.Warn("send incomplete",
			logger.Int("sent", sent),
			logger.Int("requested", len(messages)),
			logger.Error(err))
	}
	return err
}

func (q *Queue) offer(msg *domain.ExecutionMessage) bool {
	q.pending.Add(1)
	select {
	case q.ch <- msg:
		return true
	default:
		q.pending.Add(-1)
		return false
	}
}

func (q *Queue) Size(context.Context) (int, error) {
	return len(q.ch), nil
}

// Idle reports whether every sent message has been fully handled
func (q *Queue) Idle() bool {
	return q.pending.Load() == 0
}

// WaitIdle blocks until the queue is idle or ctx is done
func (q *Queue) WaitIdle(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for !q.Idle() {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (q *Queue) StartConsumer(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return fmt.Errorf("consumer already running")
	}
	q.running = true
	q.stopCh = make(chan struct{})

	q.logger.Info("starting memory consumer",
		logger.Int("worker_count", q.config.WorkerCount))

	for i := 0; i < q.config.WorkerCount; i++ {
		q.wg.Add(1)
		go q.worker(i + 1)
	}
	return nil
}

func (q *Queue) StopConsumer(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return fmt.Errorf("consumer not running")
	}
	q.running = false
	close(q.stopCh)
	q.mu.Unlock()

	q.wg.Wait()
	q.logger.Info("memory consumer stopped")
	return nil
}

func (q *Queue) worker(workerID int) {
	defer q.wg.Done()

	for {
		select {
		case <-q.stopCh:
			return
		case first := <-q.ch:
			batch := q.drain(first)
			q.handleBatch(context.Background(), batch, workerID)
		}
	}
}

// drain collects whatever is already buffered, up to the batch size
func (q *Queue) drain(first *domain.ExecutionMessage) []*domain.ExecutionMessage {
	batch := []*domain.ExecutionMessage{first}
	for len(batch) < q.config.BatchSize {
		select {
		case msg := <-q.ch:
			batch = append(batch, msg)
		default:
			return batch
		}
	}
	return batch
}

func (q *Queue) handleBatch(ctx context.Context, batch []*domain.ExecutionMessage, workerID int) {
	q.listener.OnPoll(ctx, batch, len(q.ch))

	terminated, failed, runnable := queue.Partition(batch)
	if len(terminated) > 0 {
		q.listener.OnTerminated(ctx, terminated)
		q.pending.Add(int64(-len(terminated)))
	}
	if len(failed) > 0 {
		q.listener.OnFailed(ctx, failed)
		q.pending.Add(int64(-len(failed)))
	}

	for _, msg := range runnable {
		if q.processor.ProcessMessage(ctx, msg) {
			q.pending.Add(-1)
			continue
		}

		q.logger.Warn("message processing failed, will retry",
			logger.Int("worker_id", workerID),
			logger.Int64("message_id", msg.MessageID))
		q.redeliver(msg)
	}
}

// redeliver waits for room in the buffer until the consumer stops
func (q *Queue) redeliver(msg *domain.ExecutionMessage) {
	q.mu.Lock()
	stopCh := q.stopCh
	q.mu.Unlock()

	time.AfterFunc(q.config.RedeliveryDelay, func() {
		select {
		case q.ch <- msg:
		case <-stopCh:
			q.pending.Add(-1)
			q.logger.Warn("consumer stopped, dropping redelivery",
				logger.Int64("message_id", msg.MessageID),
				logger.String("unique_id", msg.UniqueID))
		}
	})
}
