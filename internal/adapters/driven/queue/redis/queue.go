package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-catalog/internal/core/domain"
	"github.com/custodia-labs/sercha-catalog/internal/core/ports/driven"
)

const (
	taskStream     = "catalog:tasks"
	taskGroup      = "catalog:workers"
	scheduledTasks = "catalog:tasks:scheduled"
	taskKeyPrefix  = "catalog:task:"

	consumerPrefix = "worker-"

	// A delivered message idle this long is considered abandoned
	claimTimeout = 5 * time.Minute

	taskTTL = 24 * time.Hour
)

// Verify interface compliance
var _ driven.TaskQueue = (*Queue)(nil)

// Queue implements TaskQueue using a Redis Stream with one consumer group.
// Task bodies live in plain keys; the stream only carries task IDs.
// Retries wait in a sorted set scored by their due time.
type Queue struct {
	client       *redis.Client
	consumerName string
}

// NewQueue creates the consumer group if needed.
// consumerName should be unique per worker process.
func NewQueue(ctx context.Context, client *redis.Client, consumerName string) (*Queue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if consumerName == "" {
		consumerName = consumerPrefix + strconv.FormatInt(time.Now().UnixNano(), 10)
	}

	err := client.XGroupCreateMkStream(ctx, taskStream, taskGroup, "0").Err()
	if err != nil && !isGroupExistsError(err) {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}

	return &Queue{client: client, consumerName: consumerName}, nil
}

// Enqueue stores the task and publishes it, or parks it until ScheduledFor
func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return errors.New("task is required")
	}

	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, taskKeyPrefix+task.ID, data, taskTTL)
	if task.ScheduledFor.After(time.Now()) {
		pipe.ZAdd(ctx, scheduledTasks, redis.Z{
			Score:  float64(task.ScheduledFor.Unix()),
			Member: task.ID,
		})
	} else {
		pipe.XAdd(ctx, streamArgs(task))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("enqueue task %s: %w", task.ID, err)
	}
	return nil
}

// DequeueWithTimeout waits up to timeout seconds for a task; 0 blocks until ctx ends
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	// best effort
	_ = q.promoteScheduledTasks(ctx)

	if task, err := q.claimAbandonedTask(ctx); err == nil && task != nil {
		return task, nil
	}

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    taskGroup,
		Consumer: q.consumerName,
		Streams:  []string{taskStream, ">"},
		Count:    1,
		Block:    time.Duration(timeout) * time.Second,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("read stream: %w", err)
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}

	return q.takeMessage(ctx, streams[0].Messages[0])
}

// takeMessage resolves a stream message to its task and marks it processing.
// Messages whose task body is gone are dropped.
func (q *Queue) takeMessage(ctx context.Context, msg redis.XMessage) (*domain.Task, error) {
	taskID, _ := msg.Values["task_id"].(string)
	if taskID == "" {
		q.dropMessage(ctx, msg.ID)
		return nil, nil
	}

	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		q.dropMessage(ctx, msg.ID)
		return nil, nil
	}

	task.MarkProcessing()
	data, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("marshal task: %w", err)
	}

	pipe := q.client.Pipeline()
	pipe.Set(ctx, taskKeyPrefix+task.ID, data, taskTTL)
	pipe.Set(ctx, messageKey(task.ID), msg.ID, taskTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("mark task %s processing: %w", task.ID, err)
	}
	return task, nil
}

// Ack marks the task completed and removes its message
func (q *Queue) Ack(ctx context.Context, taskID string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	task.MarkCompleted()
	return q.finish(ctx, task, false)
}

// Nack reschedules the task with backoff, or fails it once attempts run out
func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}

	if task.CanRetry() {
		task.Retry(reason)
		return q.finish(ctx, task, true)
	}
	task.MarkFailed(reason)
	return q.finish(ctx, task, false)
}

func (q *Queue) finish(ctx context.Context, task *domain.Task, reschedule bool) error {
	msgID, err := q.client.Get(ctx, messageKey(task.ID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("get message id: %w", err)
	}

	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	pipe := q.client.TxPipeline()
	if msgID != "" {
		pipe.XAck(ctx, taskStream, taskGroup, msgID)
		pipe.XDel(ctx, taskStream, msgID)
	}
	pipe.Set(ctx, taskKeyPrefix+task.ID, data, taskTTL)
	pipe.Del(ctx, messageKey(task.ID))
	if reschedule {
		pipe.ZAdd(ctx, scheduledTasks, redis.Z{
			Score:  float64(task.ScheduledFor.Unix()),
			Member: task.ID,
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("finish task %s: %w", task.ID, err)
	}
	return nil
}

// GetTask returns nil, nil when the task is unknown or expired
func (q *Queue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	data, err := q.client.Get(ctx, taskKeyPrefix+taskID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get task %s: %w", taskID, err)
	}

	var task domain.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("unmarshal task %s: %w", taskID, err)
	}
	return &task, nil
}

// Ping checks if the queue backend is healthy.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close is a no-op; the Redis client is shared.
func (q *Queue) Close() error {
	return nil
}

// promoteScheduledTasks moves due retries onto the stream
func (q *Queue) promoteScheduledTasks(ctx context.Context) error {
	due, err := q.client.ZRangeByScore(ctx, scheduledTasks, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(time.Now().Unix(), 10),
	}).Result()
	if err != nil || len(due) == 0 {
		return err
	}

	pipe := q.client.Pipeline()
	for _, taskID := range due {
		// ZRem first so concurrent promoters publish each task once
		removed, err := q.client.ZRem(ctx, scheduledTasks, taskID).Result()
		if err != nil || removed == 0 {
			continue
		}
		task, err := q.GetTask(ctx, taskID)
		if err != nil || task == nil {
			continue
		}
		pipe.XAdd(ctx, streamArgs(task))
	}
	_, err = pipe.Exec(ctx)
	return err
}

// claimAbandonedTask takes over a message a crashed worker never acked
func (q *Queue) claimAbandonedTask(ctx context.Context) (*domain.Task, error) {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: taskStream,
		Group:  taskGroup,
		Start:  "-",
		End:    "+",
		Count:  10,
		Idle:   claimTimeout,
	}).Result()
	if err != nil {
		return nil, err
	}

	for _, p := range pending {
		claimed, err := q.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   taskStream,
			Group:    taskGroup,
			Consumer: q.consumerName,
			MinIdle:  claimTimeout,
			Messages: []string{p.ID},
		}).Result()
		if err != nil || len(claimed) == 0 {
			continue
		}
		task, err := q.takeMessage(ctx, claimed[0])
		if err == nil && task != nil {
			return task, nil
		}
	}
	return nil, nil
}

func (q *Queue) dropMessage(ctx context.Context, msgID string) {
	q.client.XAck(ctx, taskStream, taskGroup, msgID)
	q.client.XDel(ctx, taskStream, msgID)
}

func streamArgs(task *domain.Task) *redis.XAddArgs {
	return &redis.XAddArgs{
		Stream: taskStream,
		Values: map[string]interface{}{
			"task_id": task.ID,
			"type":    string(task.Type),
		},
	}
}

func messageKey(taskID string) string {
	return taskKeyPrefix + taskID + ":msg"
}

func isGroupExistsError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}
