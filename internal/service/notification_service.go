package service

import (
	"context"

	"github.com/siberfx/wirechat/internal/model"
	"github.com/siberfx/wirechat/internal/repository"
)

type NotificationService interface {
	Notify(ctx context.Context, actor model.Actor, typ, title, body string, convID, msgID *uint64)
	List(ctx context.Context, actor model.Actor, unreadOnly bool, limit int) ([]model.Notification, int64, error)
	MarkAllRead(ctx context.Context, actor model.Actor) error
	MarkByConversation(ctx context.Context, actor model.Actor, convID uint64) error
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

// Notify is best-effort; it logs errors but does not return them to
// avoid breaking main flows.
func (s *notificationService) Notify(ctx context.Context, actor model.Actor, typ, title, body string, convID, msgID *uint64) {
	if actor.IsZero() || typ == "" {
		return
	}
	n := &model.Notification{
		ActorKind:      actor.Kind,
		ActorID:        actor.ID,
		Type:           typ,
		Title:          title,
		Body:           body,
		ConversationID: convID,
		MessageID:      msgID,
	}
	_ = s.repo.Create(ctx, n)
}

func (s *notificationService) List(ctx context.Context, actor model.Actor, unreadOnly bool, limit int) ([]model.Notification, int64, error) {
	if actor.IsZero() {
		return nil, 0, nil
	}
	list, err := s.repo.ListByActor(ctx, actor, unreadOnly, limit)
	if err != nil {
		return nil, 0, err
	}
	cnt, err := s.repo.CountUnread(ctx, actor)
	if err != nil {
		return list, 0, err
	}
	return list, cnt, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, actor model.Actor) error {
	if actor.IsZero() {
		return nil
	}
	return s.repo.MarkAllRead(ctx, actor)
}

func (s *notificationService) MarkByConversation(ctx context.Context, actor model.Actor, convID uint64) error {
	if actor.IsZero() || convID == 0 {
		return nil
	}
	return s.repo.MarkByConversation(ctx, actor, convID)
}
