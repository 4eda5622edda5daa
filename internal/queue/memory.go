package queue

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"
)

var ErrStopped = errors.New("queue stopped")

const queueDepth = 256

// Memory runs named queues on worker goroutines. A task whose handler
// errors is retried once before being dropped with a log line, which
// gives at-least-once semantics; nothing guarantees ordering across
// tasks.
type Memory struct {
	mu       sync.Mutex
	handlers map[string]Handler
	queues   map[string]chan Task
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopped  bool
}

func NewMemory() *Memory {
	ctx, cancel := context.WithCancel(context.Background())
	return &Memory{
		handlers: make(map[string]Handler),
		queues:   make(map[string]chan Task),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Handle registers the handler for a task type. Must be called before
// tasks of that type are enqueued.
func (m *Memory) Handle(taskType string, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[taskType] = h
}

func (m *Memory) Enqueue(taskType string, payload any, queueName string) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return ErrStopped
	}
	ch, ok := m.queues[queueName]
	if !ok {
		ch = make(chan Task, queueDepth)
		m.queues[queueName] = ch
		m.wg.Add(1)
		go m.worker(queueName, ch)
	}
	m.mu.Unlock()

	t := Task{ID: uuid.NewString(), Type: taskType, Payload: payload}
	select {
	case ch <- t:
		return nil
	default:
		return errors.New("queue full: " + queueName)
	}
}

func (m *Memory) worker(name string, ch chan Task) {
	defer m.wg.Done()
	for {
		select {
		case <-m.ctx.Done():
			return
		case t := <-ch:
			m.run(name, t, 0)
		}
	}
}

func (m *Memory) run(name string, t Task, attempt int) {
	m.mu.Lock()
	h := m.handlers[t.Type]
	m.mu.Unlock()
	if h == nil {
		log.Printf("queue %s: no handler for task type %s", name, t.Type)
		return
	}
	if err := h(m.ctx, t); err != nil {
		if attempt == 0 {
			m.run(name, t, 1)
			return
		}
		log.Printf("queue %s: task %s (%s) failed after retry: %v", name, t.ID, t.Type, err)
	}
}

func (m *Memory) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
	m.cancel()
	m.wg.Wait()
}
