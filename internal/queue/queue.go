// Package queue is the task-queue seam between the write path and
// fan-out. The engine only relies on Enqueue plus at-least-once,
// unordered execution; Memory is the in-process implementation.
package queue

import "context"

type Task struct {
	ID      string
	Type    string
	Payload any
}

type Handler func(ctx context.Context, t Task) error

type Queue interface {
	Enqueue(taskType string, payload any, queueName string) error
}
