package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/siberfx/wirechat/internal/model"
)

type capturedTask struct {
	taskType string
	queue    string
	payload  fanout
}

type captureQueue struct {
	mu    sync.Mutex
	tasks []capturedTask
	fail  bool
}

func (q *captureQueue) Enqueue(taskType string, payload any, queueName string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fail {
		return errors.New("broker down")
	}
	q.tasks = append(q.tasks, capturedTask{taskType: taskType, queue: queueName, payload: payload.(fanout)})
	return nil
}

func groupConv(owner model.Actor, members ...model.Actor) *model.Conversation {
	cv := &model.Conversation{
		ID:        7,
		Type:      model.ConversationGroup,
		OwnerKind: owner.Kind,
		OwnerID:   owner.ID,
	}
	for _, a := range append([]model.Actor{owner}, members...) {
		cv.Participations = append(cv.Participations, model.Participation{
			ConversationID: cv.ID, ActorKind: a.Kind, ActorID: a.ID,
		})
	}
	return cv
}

func TestMessageCreatedExcludesAuthor(t *testing.T) {
	alice := model.Actor{Kind: model.ActorKindUser, ID: "alice"}
	bob := model.Actor{Kind: model.ActorKindUser, ID: "bob"}
	carol := model.Actor{Kind: model.ActorKindUser, ID: "carol"}
	q := &captureQueue{}
	d := New(q)

	body := "hi all"
	msg := &model.Message{ID: 42, ConversationID: 7, SendableKind: alice.Kind, SendableID: alice.ID, Body: &body}
	d.MessageCreated(context.Background(), groupConv(alice, bob, carol), msg)

	if len(q.tasks) != 2 {
		t.Fatalf("tasks = %d, want broadcast + notify", len(q.tasks))
	}
	for _, task := range q.tasks {
		if len(task.payload.Recipients) != 2 {
			t.Fatalf("recipients = %d, want 2", len(task.payload.Recipients))
		}
		for _, r := range task.payload.Recipients {
			if r.Equal(alice) {
				t.Fatal("author must not receive their own fan-out")
			}
		}
		if task.payload.Event.MessageID != 42 {
			t.Fatalf("event message id = %d", task.payload.Event.MessageID)
		}
	}
	if q.tasks[0].queue != QueueMessages || q.tasks[1].queue != QueueNotifications {
		t.Fatalf("queues = %s/%s", q.tasks[0].queue, q.tasks[1].queue)
	}
}

func TestSelfConversationSkipsFanout(t *testing.T) {
	alice := model.Actor{Kind: model.ActorKindUser, ID: "alice"}
	q := &captureQueue{}
	d := New(q)

	cv := &model.Conversation{
		ID:   1,
		Type: model.ConversationSelf,
		Participations: []model.Participation{
			{ConversationID: 1, ActorKind: alice.Kind, ActorID: alice.ID},
		},
	}
	body := "note to self"
	msg := &model.Message{ID: 1, ConversationID: 1, SendableKind: alice.Kind, SendableID: alice.ID, Body: &body}

	d.MessageCreated(context.Background(), cv, msg)
	d.MessageDeleted(context.Background(), cv, msg)
	if len(q.tasks) != 0 {
		t.Fatalf("self conversation produced %d tasks", len(q.tasks))
	}
}

func TestEnqueueFailureIsSwallowed(t *testing.T) {
	alice := model.Actor{Kind: model.ActorKindUser, ID: "alice"}
	bob := model.Actor{Kind: model.ActorKindUser, ID: "bob"}
	q := &captureQueue{fail: true}
	d := New(q)

	body := "hi"
	msg := &model.Message{ID: 9, ConversationID: 7, SendableKind: alice.Kind, SendableID: alice.ID, Body: &body}
	// Must not panic or surface the broker error; the message is
	// already committed.
	d.MessageCreated(context.Background(), groupConv(alice, bob), msg)
	d.MessageDeleted(context.Background(), groupConv(alice, bob), msg)
}

func TestBodyPreviewTruncated(t *testing.T) {
	alice := model.Actor{Kind: model.ActorKindUser, ID: "alice"}
	bob := model.Actor{Kind: model.ActorKindUser, ID: "bob"}
	q := &captureQueue{}
	d := New(q)

	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	body := string(long)
	msg := &model.Message{ID: 3, ConversationID: 7, SendableKind: alice.Kind, SendableID: alice.ID, Body: &body}
	d.MessageCreated(context.Background(), groupConv(alice, bob), msg)

	if got := len(q.tasks[0].payload.Event.Body); got != previewLen {
		t.Fatalf("preview length = %d, want %d", got, previewLen)
	}
}
