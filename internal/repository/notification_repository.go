package repository

import (
	"context"

	"github.com/siberfx/wirechat/internal/model"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByActor(ctx context.Context, actor model.Actor, unreadOnly bool, limit int) ([]model.Notification, error)
	MarkAllRead(ctx context.Context, actor model.Actor) error
	MarkByConversation(ctx context.Context, actor model.Actor, convID uint64) error
	CountUnread(ctx context.Context, actor model.Actor) (int64, error)
	SetDB(db *gorm.DB)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) SetDB(db *gorm.DB) {
	r.db = db
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepository) ListByActor(ctx context.Context, actor model.Actor, unreadOnly bool, limit int) ([]model.Notification, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Notification
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	q := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("actor_kind = ? AND actor_id = ?", actor.Kind, actor.ID)
	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}
	if err := q.Order("created_at DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, actor model.Actor) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	now := r.db.NowFunc()
	return r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("actor_kind = ? AND actor_id = ? AND read_at IS NULL", actor.Kind, actor.ID).
		Update("read_at", now).Error
}

func (r *notificationRepository) MarkByConversation(ctx context.Context, actor model.Actor, convID uint64) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	now := r.db.NowFunc()
	return r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("actor_kind = ? AND actor_id = ? AND conversation_id = ? AND read_at IS NULL", actor.Kind, actor.ID, convID).
		Update("read_at", now).Error
}

func (r *notificationRepository) CountUnread(ctx context.Context, actor model.Actor) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("actor_kind = ? AND actor_id = ? AND read_at IS NULL", actor.Kind, actor.ID).
		Count(&cnt).Error; err != nil {
		return 0, err
	}
	return cnt, nil
}
