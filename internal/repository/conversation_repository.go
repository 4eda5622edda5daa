package repository

import (
	"context"
	"errors"
	"time"

	"github.com/siberfx/wirechat/internal/model"
	"gorm.io/gorm"
)

var ErrDBNotReady = errors.New("database not initialized")

type ConversationRepository interface {
	// FindOrCreatePrivate deduplicates by the canonical pair key; the
	// bool result reports whether a new conversation was created.
	FindOrCreatePrivate(ctx context.Context, a, b model.Actor) (*model.Conversation, bool, error)
	CreateGroup(ctx context.Context, conv *model.Conversation) error
	FindByID(ctx context.Context, id uint64) (*model.Conversation, error)
	ListForActor(ctx context.Context, actor model.Actor) ([]model.Conversation, error)
	AddParticipation(ctx context.Context, convID uint64, actor model.Actor) error
	RemoveParticipation(ctx context.Context, convID uint64, actor model.Actor) error
	MarkDeleted(ctx context.Context, convID uint64, actor model.Actor, at time.Time) error
	MarkCleared(ctx context.Context, convID uint64, actor model.Actor, at time.Time) error
	// PurgeIfAbandoned hard-deletes the conversation, its messages,
	// visibilities and attachment rows when no participant retains a
	// visible message. Returns whether it purged and the blob paths of
	// removed attachments so the caller can delete them from the store.
	PurgeIfAbandoned(ctx context.Context, convID uint64) (bool, []string, error)
	SetDB(db *gorm.DB)
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) SetDB(db *gorm.DB) {
	r.db = db
}

func (r *conversationRepository) FindOrCreatePrivate(ctx context.Context, a, b model.Actor) (*model.Conversation, bool, error) {
	if r.db == nil {
		return nil, false, ErrDBNotReady
	}
	key := model.PairKey(a, b)

	var existing model.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participations").
		Where("pair_key = ?", key).
		First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	typ := model.ConversationPrivate
	parts := []model.Participation{
		{ActorKind: a.Kind, ActorID: a.ID},
		{ActorKind: b.Kind, ActorID: b.ID},
	}
	if a.Equal(b) {
		typ = model.ConversationSelf
		parts = parts[:1]
	}
	cv := model.Conversation{
		Type:           typ,
		OwnerKind:      a.Kind,
		OwnerID:        a.ID,
		PairKey:        &key,
		Participations: parts,
	}
	err = r.db.WithContext(ctx).Create(&cv).Error
	if err == nil {
		return &cv, true, nil
	}
	// Lost the race against the other actor: the unique index on
	// pair_key guarantees exactly one row, so re-read it.
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		var won model.Conversation
		if err2 := r.db.WithContext(ctx).
			Preload("Participations").
			Where("pair_key = ?", key).
			First(&won).Error; err2 != nil {
			return nil, false, err2
		}
		return &won, false, nil
	}
	return nil, false, err
}

func (r *conversationRepository) CreateGroup(ctx context.Context, conv *model.Conversation) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(conv).Error
}

func (r *conversationRepository) FindByID(ctx context.Context, id uint64) (*model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var cv model.Conversation
	if err := r.db.WithContext(ctx).
		Preload("Participations").
		First(&cv, id).Error; err != nil {
		return nil, err
	}
	return &cv, nil
}

func (r *conversationRepository) ListForActor(ctx context.Context, actor model.Actor) ([]model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Conversation
	if err := r.db.WithContext(ctx).
		Joins("JOIN participations p ON p.conversation_id = conversations.id").
		Where("p.actor_kind = ? AND p.actor_id = ? AND p.deleted_at IS NULL", actor.Kind, actor.ID).
		Order("conversations.updated_at DESC").
		Preload("Participations").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *conversationRepository) AddParticipation(ctx context.Context, convID uint64, actor model.Actor) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	p := model.Participation{ConversationID: convID, ActorKind: actor.Kind, ActorID: actor.ID}
	err := r.db.WithContext(ctx).Create(&p).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil
	}
	return err
}

func (r *conversationRepository) RemoveParticipation(ctx context.Context, convID uint64, actor model.Actor) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).
		Where("conversation_id = ? AND actor_kind = ? AND actor_id = ?", convID, actor.Kind, actor.ID).
		Delete(&model.Participation{}).Error
}

func (r *conversationRepository) MarkDeleted(ctx context.Context, convID uint64, actor model.Actor, at time.Time) error {
	return r.updateParticipation(ctx, convID, actor, map[string]any{"deleted_at": at})
}

func (r *conversationRepository) MarkCleared(ctx context.Context, convID uint64, actor model.Actor, at time.Time) error {
	return r.updateParticipation(ctx, convID, actor, map[string]any{"cleared_at": at})
}

func (r *conversationRepository) updateParticipation(ctx context.Context, convID uint64, actor model.Actor, values map[string]any) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.Participation{}).
		Where("conversation_id = ? AND actor_kind = ? AND actor_id = ?", convID, actor.Kind, actor.ID).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *conversationRepository) PurgeIfAbandoned(ctx context.Context, convID uint64) (bool, []string, error) {
	if r.db == nil {
		return false, nil, ErrDBNotReady
	}
	purged := false
	var paths []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cv model.Conversation
		if err := tx.Preload("Participations").First(&cv, convID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		for i := range cv.Participations {
			n, err := countVisible(tx, &cv, &cv.Participations[i])
			if err != nil {
				return err
			}
			if n > 0 {
				// At least one side still has history to show; the
				// conversation must stay queryable for them.
				return nil
			}
		}

		msgIDs := tx.Model(&model.Message{}).Select("id").Where("conversation_id = ?", convID)
		var atts []model.Attachment
		if err := tx.Where("message_id IN (?)", msgIDs).Find(&atts).Error; err != nil {
			return err
		}
		for _, a := range atts {
			paths = append(paths, a.FilePath)
		}
		if err := tx.Where("message_id IN (?)", msgIDs).Delete(&model.Attachment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("message_id IN (?)", msgIDs).Delete(&model.MessageVisibility{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", convID).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", convID).Delete(&model.Participation{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.Conversation{}, convID).Error; err != nil {
			return err
		}
		purged = true
		return nil
	})
	if err != nil {
		return false, nil, err
	}
	if !purged {
		paths = nil
	}
	return purged, paths, nil
}

// countVisible counts messages in the conversation the participant can
// still see: not hidden for them and past their clear/delete cutoff.
func countVisible(tx *gorm.DB, cv *model.Conversation, p *model.Participation) (int64, error) {
	actor := p.Actor()
	q := tx.Model(&model.Message{}).
		Where("conversation_id = ?", cv.ID).
		Where("NOT EXISTS (SELECT 1 FROM message_visibilities v WHERE v.message_id = messages.id AND v.actor_kind = ? AND v.actor_id = ?)",
			actor.Kind, actor.ID)
	if cut := p.Cutoff(); cut != nil {
		q = q.Where("messages.created_at > ?", *cut)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
