package repository

import (
	"context"
	"errors"
	"time"

	"github.com/siberfx/wirechat/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageRepository interface {
	// CreateBatch persists the messages of one send in a single
	// transaction: inserts rows (with attachment rows), bumps the
	// conversation's updated_at and re-activates participations whose
	// actor had deleted the conversation.
	CreateBatch(ctx context.Context, conv *model.Conversation, msgs []*model.Message) error
	FindByID(ctx context.Context, id uint64) (*model.Message, error)
	FindByIDs(ctx context.Context, ids []uint64) ([]model.Message, error)
	HasReply(ctx context.Context, id uint64) (bool, error)
	HideFor(ctx context.Context, id uint64, actor model.Actor, at time.Time) error
	Tombstone(ctx context.Context, id uint64, at time.Time) error
	// HardDelete removes the message, its visibility markers and its
	// attachment row; returns the attachment's blob path, if any.
	HardDelete(ctx context.Context, msg *model.Message) (string, error)
	CountVisible(ctx context.Context, conv *model.Conversation, actor model.Actor) (int64, error)
	// ListWindow returns the visible window counted from the tail,
	// ordered oldest to newest within the window.
	ListWindow(ctx context.Context, conv *model.Conversation, actor model.Actor, limit, offset int) ([]model.Message, error)
	SetDB(db *gorm.DB)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) SetDB(db *gorm.DB) {
	r.db = db
}

func (r *messageRepository) CreateBatch(ctx context.Context, conv *model.Conversation, msgs []*model.Message) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range msgs {
			if err := tx.Create(m).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&model.Conversation{}).
			Where("id = ?", conv.ID).
			Update("updated_at", tx.NowFunc()).Error; err != nil {
			return err
		}
		// Restoration rule: a deleted conversation reappears for its
		// actor on new activity, but only from the deletion point
		// forward. Folding deleted_at into cleared_at keeps earlier
		// history hidden.
		return tx.Model(&model.Participation{}).
			Where("conversation_id = ? AND deleted_at IS NOT NULL", conv.ID).
			Updates(map[string]any{
				"cleared_at": gorm.Expr("GREATEST(COALESCE(cleared_at, '1970-01-01'), deleted_at)"),
				"deleted_at": nil,
			}).Error
	})
}

func (r *messageRepository) FindByID(ctx context.Context, id uint64) (*model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var m model.Message
	if err := r.db.WithContext(ctx).
		Preload("Attachment").
		First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *messageRepository) FindByIDs(ctx context.Context, ids []uint64) ([]model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	if len(ids) == 0 {
		return nil, nil
	}
	var list []model.Message
	if err := r.db.WithContext(ctx).
		Preload("Attachment").
		Where("id IN ?", ids).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *messageRepository) HasReply(ctx context.Context, id uint64) (bool, error) {
	if r.db == nil {
		return false, ErrDBNotReady
	}
	var n int64
	if err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("reply_id = ?", id).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *messageRepository) HideFor(ctx context.Context, id uint64, actor model.Actor, at time.Time) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	v := model.MessageVisibility{
		MessageID: id,
		ActorKind: actor.Kind,
		ActorID:   actor.ID,
		DeletedAt: at,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&v).Error
}

func (r *messageRepository) Tombstone(ctx context.Context, id uint64, at time.Time) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("id = ?", id).
		Update("deleted_for_all_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *messageRepository) HardDelete(ctx context.Context, msg *model.Message) (string, error) {
	if r.db == nil {
		return "", ErrDBNotReady
	}
	path := ""
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var att model.Attachment
		err := tx.Where("message_id = ?", msg.ID).First(&att).Error
		switch {
		case err == nil:
			path = att.FilePath
			if err := tx.Delete(&att).Error; err != nil {
				return err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		if err := tx.Where("message_id = ?", msg.ID).Delete(&model.MessageVisibility{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Message{}, msg.ID).Error
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

func (r *messageRepository) CountVisible(ctx context.Context, conv *model.Conversation, actor model.Actor) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	q := r.visibleQuery(ctx, conv, actor)
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *messageRepository) ListWindow(ctx context.Context, conv *model.Conversation, actor model.Actor, limit, offset int) ([]model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Message
	if err := r.visibleQuery(ctx, conv, actor).
		Preload("Attachment").
		Order("messages.created_at DESC").
		Order("messages.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&list).Error; err != nil {
		return nil, err
	}
	// Tail-first fetch, oldest-first presentation.
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	return list, nil
}

func (r *messageRepository) visibleQuery(ctx context.Context, conv *model.Conversation, actor model.Actor) *gorm.DB {
	q := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("conversation_id = ?", conv.ID).
		Where("NOT EXISTS (SELECT 1 FROM message_visibilities v WHERE v.message_id = messages.id AND v.actor_kind = ? AND v.actor_id = ?)",
			actor.Kind, actor.ID)
	if p := conv.ParticipationOf(actor); p != nil {
		if cut := p.Cutoff(); cut != nil {
			q = q.Where("messages.created_at > ?", *cut)
		}
	}
	return q
}
