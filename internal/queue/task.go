package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	TaskDiscard = "discard"
	TaskSweep   = "sweep"
)

// Task is one unit of media janitor work carried on the stream.
type Task struct {
	Type       string
	URL        string
	Reason     string
	EnqueuedAt time.Time
}

func (t Task) values() map[string]any {
	enqueued := t.EnqueuedAt
	if enqueued.IsZero() {
		enqueued = time.Now().UTC()
	}
	return map[string]any{
		"type":       t.Type,
		"url":        t.URL,
		"reason":     t.Reason,
		"enqueuedAt": enqueued.Format(time.RFC3339Nano),
	}
}

func decodeTask(values map[string]any) (Task, error) {
	str := func(key string) string {
		if v, ok := values[key].(string); ok {
			return v
		}
		return ""
	}

	task := Task{Type: str("type"), URL: str("url"), Reason: str("reason")}
	if task.Type == "" {
		return Task{}, errors.New("task without type")
	}
	if raw := str("enqueuedAt"); raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return Task{}, fmt.Errorf("parse enqueuedAt: %w", err)
		}
		task.EnqueuedAt = ts
	}
	return task, nil
}

// Producer appends tasks to a stream.
type Producer struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewProducer(client *redis.Client, stream string) *Producer {
	return &Producer{client: client, stream: stream, maxLen: 100_000}
}

func (p *Producer) Enqueue(ctx context.Context, task Task) error {
	if p == nil || p.client == nil {
		return errors.New("queue not configured")
	}
	_, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: task.values(),
	}).Result()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return nil
}
