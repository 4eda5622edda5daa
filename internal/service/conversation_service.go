package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/siberfx/wirechat/internal/model"
	"github.com/siberfx/wirechat/internal/repository"
	"github.com/siberfx/wirechat/internal/storage"
	"gorm.io/gorm"
)

type ConversationService interface {
	// CreatePrivateWith finds or creates the one private conversation
	// between actor and other; actor == other yields the actor's self
	// conversation.
	CreatePrivateWith(ctx context.Context, actor, other model.Actor) (*model.Conversation, error)
	CreateGroup(ctx context.Context, owner model.Actor, name string, members []model.Actor) (*model.Conversation, error)
	AddParticipant(ctx context.Context, actor model.Actor, convID uint64, member model.Actor) error
	Get(ctx context.Context, actor model.Actor, convID uint64) (*model.Conversation, error)
	ListFor(ctx context.Context, actor model.Actor) ([]model.Conversation, error)
	DeleteFor(ctx context.Context, actor model.Actor, convID uint64) error
	ClearFor(ctx context.Context, actor model.Actor, convID uint64) error
	Exit(ctx context.Context, actor model.Actor, convID uint64) error
}

type conversationService struct {
	repo  repository.ConversationRepository
	blobs storage.BlobStore
}

func NewConversationService(repo repository.ConversationRepository, blobs storage.BlobStore) ConversationService {
	return &conversationService{repo: repo, blobs: blobs}
}

func (s *conversationService) CreatePrivateWith(ctx context.Context, actor, other model.Actor) (*model.Conversation, error) {
	if actor.IsZero() {
		return nil, ErrUnauthenticated
	}
	if other.IsZero() {
		return nil, ErrValidation
	}
	cv, _, err := s.repo.FindOrCreatePrivate(ctx, actor, other)
	return cv, err
}

func (s *conversationService) CreateGroup(ctx context.Context, owner model.Actor, name string, members []model.Actor) (*model.Conversation, error) {
	if owner.IsZero() {
		return nil, ErrUnauthenticated
	}
	if name == "" {
		return nil, ErrValidation
	}
	parts := []model.Participation{{ActorKind: owner.Kind, ActorID: owner.ID}}
	for _, m := range members {
		if m.IsZero() || m.Equal(owner) {
			continue
		}
		dup := false
		for _, p := range parts {
			if p.Actor().Equal(m) {
				dup = true
				break
			}
		}
		if !dup {
			parts = append(parts, model.Participation{ActorKind: m.Kind, ActorID: m.ID})
		}
	}
	cv := &model.Conversation{
		Type:           model.ConversationGroup,
		OwnerKind:      owner.Kind,
		OwnerID:        owner.ID,
		Name:           name,
		Participations: parts,
	}
	if err := s.repo.CreateGroup(ctx, cv); err != nil {
		return nil, err
	}
	return cv, nil
}

func (s *conversationService) AddParticipant(ctx context.Context, actor model.Actor, convID uint64, member model.Actor) error {
	cv, err := s.find(ctx, convID)
	if err != nil {
		return err
	}
	if !cv.IsGroup() {
		return ErrForbidden
	}
	if !cv.Owner().Equal(actor) {
		return ErrForbidden
	}
	if member.IsZero() {
		return ErrValidation
	}
	return s.repo.AddParticipation(ctx, convID, member)
}

func (s *conversationService) Get(ctx context.Context, actor model.Actor, convID uint64) (*model.Conversation, error) {
	cv, err := s.find(ctx, convID)
	if err != nil {
		return nil, err
	}
	p := cv.ParticipationOf(actor)
	if p == nil {
		return nil, ErrForbidden
	}
	// A conversation the actor deleted is out of their visibility
	// scope until new activity restores it.
	if p.DeletedAt != nil {
		return nil, ErrNotFound
	}
	return cv, nil
}

func (s *conversationService) ListFor(ctx context.Context, actor model.Actor) ([]model.Conversation, error) {
	if actor.IsZero() {
		return nil, ErrUnauthenticated
	}
	return s.repo.ListForActor(ctx, actor)
}

func (s *conversationService) DeleteFor(ctx context.Context, actor model.Actor, convID uint64) error {
	cv, err := s.find(ctx, convID)
	if err != nil {
		return err
	}
	if !cv.HasParticipant(actor) {
		return ErrForbidden
	}
	if err := s.repo.MarkDeleted(ctx, convID, actor, time.Now()); err != nil {
		return err
	}
	purged, paths, err := s.repo.PurgeIfAbandoned(ctx, convID)
	if err != nil {
		return err
	}
	if purged {
		s.deleteBlobs(ctx, paths)
	}
	return nil
}

func (s *conversationService) ClearFor(ctx context.Context, actor model.Actor, convID uint64) error {
	cv, err := s.find(ctx, convID)
	if err != nil {
		return err
	}
	if !cv.HasParticipant(actor) {
		return ErrForbidden
	}
	return s.repo.MarkCleared(ctx, convID, actor, time.Now())
}

func (s *conversationService) Exit(ctx context.Context, actor model.Actor, convID uint64) error {
	cv, err := s.find(ctx, convID)
	if err != nil {
		return err
	}
	if !cv.IsGroup() {
		return ErrForbidden
	}
	if !cv.HasParticipant(actor) {
		return ErrForbidden
	}
	// Owners cannot walk away from their own group.
	if cv.Owner().Equal(actor) {
		return ErrForbidden
	}
	return s.repo.RemoveParticipation(ctx, convID, actor)
}

func (s *conversationService) find(ctx context.Context, convID uint64) (*model.Conversation, error) {
	cv, err := s.repo.FindByID(ctx, convID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return cv, nil
}

// deleteBlobs is best-effort cleanup after a purge; the rows are
// already gone, a leaked blob is only logged.
func (s *conversationService) deleteBlobs(ctx context.Context, paths []string) {
	if s.blobs == nil {
		return
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := s.blobs.Delete(ctx, p); err != nil {
			log.Printf("failed to delete blob %s: %v", p, err)
		}
	}
}
