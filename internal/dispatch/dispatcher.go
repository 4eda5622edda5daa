// Package dispatch fans a newly created or deleted message out to the
// other participants: a durable task per concern, best-effort from the
// sender's point of view.
package dispatch

import (
	"context"
	"log"

	"github.com/siberfx/wirechat/internal/chat"
	"github.com/siberfx/wirechat/internal/model"
	"github.com/siberfx/wirechat/internal/queue"
	"github.com/siberfx/wirechat/internal/service"
)

const (
	TaskMessageBroadcast = "message.broadcast"
	TaskMessageNotify    = "message.notify"
	TaskMessageDeleted   = "message.deleted"

	QueueMessages      = "messages"
	QueueNotifications = "notifications"
)

const previewLen = 120

type fanout struct {
	Event      chat.Event
	Recipients []model.Actor
}

type Dispatcher struct {
	queue queue.Queue
}

func New(q queue.Queue) *Dispatcher {
	return &Dispatcher{queue: q}
}

// MessageCreated enqueues live delivery and a persistent notification
// for every participant except the author. Self-conversations get no
// fan-out at all. Enqueue failures are logged, never surfaced: the
// message is already committed.
func (d *Dispatcher) MessageCreated(ctx context.Context, conv *model.Conversation, msg *model.Message) {
	if conv.IsSelf() {
		return
	}
	recipients := recipientsOf(conv, msg.Author())
	if len(recipients) == 0 {
		return
	}
	ev := eventFor(chat.EventMessageCreated, conv, msg)
	p := fanout{Event: ev, Recipients: recipients}
	if err := d.queue.Enqueue(TaskMessageBroadcast, p, QueueMessages); err != nil {
		log.Printf("dispatch: enqueue broadcast for message %d: %v", msg.ID, err)
	}
	if err := d.queue.Enqueue(TaskMessageNotify, p, QueueNotifications); err != nil {
		log.Printf("dispatch: enqueue notify for message %d: %v", msg.ID, err)
	}
}

// MessageDeleted tells live sessions of the other participants to drop
// the message from view.
func (d *Dispatcher) MessageDeleted(ctx context.Context, conv *model.Conversation, msg *model.Message) {
	if conv.IsSelf() {
		return
	}
	recipients := recipientsOf(conv, msg.Author())
	if len(recipients) == 0 {
		return
	}
	p := fanout{Event: eventFor(chat.EventMessageDeleted, conv, msg), Recipients: recipients}
	if err := d.queue.Enqueue(TaskMessageDeleted, p, QueueMessages); err != nil {
		log.Printf("dispatch: enqueue deletion for message %d: %v", msg.ID, err)
	}
}

// RegisterHandlers binds the queue consumers: hub delivery and
// persistent notifications.
func RegisterHandlers(q *queue.Memory, hub *chat.Hub, notifications service.NotificationService) {
	deliver := func(ctx context.Context, t queue.Task) error {
		p, ok := t.Payload.(fanout)
		if !ok {
			return nil
		}
		for _, r := range p.Recipients {
			hub.Deliver(r.Key(), p.Event)
		}
		return nil
	}
	q.Handle(TaskMessageBroadcast, deliver)
	q.Handle(TaskMessageDeleted, deliver)
	q.Handle(TaskMessageNotify, func(ctx context.Context, t queue.Task) error {
		p, ok := t.Payload.(fanout)
		if !ok {
			return nil
		}
		convID := p.Event.ConversationID
		msgID := p.Event.MessageID
		for _, r := range p.Recipients {
			notifications.Notify(ctx, r, "message.created", "New message", p.Event.Body, &convID, &msgID)
		}
		return nil
	})
}

func recipientsOf(conv *model.Conversation, author model.Actor) []model.Actor {
	var out []model.Actor
	for i := range conv.Participations {
		a := conv.Participations[i].Actor()
		if !a.Equal(author) {
			out = append(out, a)
		}
	}
	return out
}

func eventFor(kind string, conv *model.Conversation, msg *model.Message) chat.Event {
	body := msg.BodyText()
	if len(body) > previewLen {
		body = body[:previewLen]
	}
	ev := chat.Event{
		Kind:           kind,
		MessageID:      msg.ID,
		ConversationID: conv.ID,
		Sender:         msg.Author(),
		Body:           body,
		ReplyID:        msg.ReplyID,
		CreatedAt:      msg.CreatedAt,
	}
	if msg.Attachment != nil {
		ev.AttachmentURL = msg.Attachment.URL
	}
	return ev
}
