package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/siberfx/wirechat/internal/model"
	"github.com/siberfx/wirechat/internal/ratelimit"
	"github.com/siberfx/wirechat/internal/repository"
	"github.com/siberfx/wirechat/internal/storage"
	"gorm.io/gorm"
)

// likeGlyph is the fixed body of a like message; likes share the send
// counter class.
const likeGlyph = "❤️"

const tombstonePlaceholder = "This message was deleted"

// Dispatcher is the seam to the broadcast side. Implementations must
// never fail the write: a message that is persisted exists even if
// fan-out never happens.
type Dispatcher interface {
	MessageCreated(ctx context.Context, conv *model.Conversation, msg *model.Message)
	MessageDeleted(ctx context.Context, conv *model.Conversation, msg *model.Message)
}

type Upload struct {
	Data     []byte
	Name     string
	MimeType string
}

type SendInput struct {
	Body    string
	ReplyID *uint64
	Uploads []Upload
}

type MessageService interface {
	// Send creates one message per attachment plus one text message
	// when a body is present; only the first created message carries
	// the reply reference.
	Send(ctx context.Context, actor model.Actor, convID uint64, in SendInput) ([]model.Message, error)
	SendLike(ctx context.Context, actor model.Actor, convID uint64) (*model.Message, error)
	DeleteForMe(ctx context.Context, actor model.Actor, msgID uint64) error
	DeleteForEveryone(ctx context.Context, actor model.Actor, msgID uint64) error
	LoadWindow(ctx context.Context, actor model.Actor, convID uint64, limit, offset int) (*MessageWindow, error)
}

type MessageServiceOptions struct {
	AttachmentFolder string
	MaxUploadBytes   int64
	// RedactTombstones hides the original body of a tombstoned message
	// from everyone but its author. Off by default: replies keep
	// quoting the original text.
	RedactTombstones bool
}

type messageService struct {
	convRepo   repository.ConversationRepository
	msgRepo    repository.MessageRepository
	limiter    *ratelimit.Pool
	blobs      storage.BlobStore
	dispatcher Dispatcher
	opts       MessageServiceOptions
}

func NewMessageService(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	limiter *ratelimit.Pool,
	blobs storage.BlobStore,
	dispatcher Dispatcher,
	opts MessageServiceOptions,
) MessageService {
	if opts.AttachmentFolder == "" {
		opts.AttachmentFolder = "attachments"
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	return &messageService{
		convRepo:   convRepo,
		msgRepo:    msgRepo,
		limiter:    limiter,
		blobs:      blobs,
		dispatcher: dispatcher,
		opts:       opts,
	}
}

func (s *messageService) Send(ctx context.Context, actor model.Actor, convID uint64, in SendInput) ([]model.Message, error) {
	if actor.IsZero() {
		return nil, ErrUnauthenticated
	}
	cv, err := s.findConversation(ctx, convID)
	if err != nil {
		return nil, err
	}
	if !cv.HasParticipant(actor) {
		return nil, ErrForbidden
	}

	body := strings.TrimSpace(in.Body)
	if body == "" && len(in.Uploads) == 0 {
		return nil, ErrValidation
	}
	for _, u := range in.Uploads {
		if len(u.Data) == 0 || int64(len(u.Data)) > s.opts.MaxUploadBytes {
			return nil, ErrValidation
		}
	}
	if in.ReplyID != nil {
		parent, err := s.msgRepo.FindByID(ctx, *in.ReplyID)
		if err != nil || parent.ConversationID != convID {
			return nil, ErrValidation
		}
	}

	if s.limiter != nil && !s.limiter.Allow("send:"+actor.Key()) {
		return nil, ErrRateLimited
	}

	// Blob writes happen before any row is committed; a failed store
	// aborts the whole send so no message ever references a missing
	// blob.
	var stored []string
	var msgs []*model.Message
	for i, u := range in.Uploads {
		path, err := s.blobs.Store(ctx, u.Data, s.opts.AttachmentFolder, u.Name, u.MimeType)
		if err != nil {
			s.deleteBlobs(ctx, stored)
			return nil, err
		}
		stored = append(stored, path)
		m := &model.Message{
			ConversationID: convID,
			SendableKind:   actor.Kind,
			SendableID:     actor.ID,
			Attachment: &model.Attachment{
				FilePath:     path,
				FileName:     pathBase(path),
				OriginalName: u.Name,
				MimeType:     u.MimeType,
				URL:          s.blobs.URLFor(path),
			},
		}
		if i == 0 {
			m.ReplyID = in.ReplyID
		}
		msgs = append(msgs, m)
	}
	if body != "" {
		m := &model.Message{
			ConversationID: convID,
			SendableKind:   actor.Kind,
			SendableID:     actor.ID,
			Body:           &body,
		}
		if len(msgs) == 0 {
			m.ReplyID = in.ReplyID
		}
		msgs = append(msgs, m)
	}

	if err := s.msgRepo.CreateBatch(ctx, cv, msgs); err != nil {
		s.deleteBlobs(ctx, stored)
		return nil, err
	}

	if s.dispatcher != nil {
		for _, m := range msgs {
			s.dispatcher.MessageCreated(ctx, cv, m)
		}
	}

	out := make([]model.Message, len(msgs))
	for i, m := range msgs {
		out[i] = *m
	}
	return out, nil
}

func (s *messageService) SendLike(ctx context.Context, actor model.Actor, convID uint64) (*model.Message, error) {
	msgs, err := s.Send(ctx, actor, convID, SendInput{Body: likeGlyph})
	if err != nil {
		return nil, err
	}
	return &msgs[0], nil
}

func (s *messageService) DeleteForMe(ctx context.Context, actor model.Actor, msgID uint64) error {
	if actor.IsZero() {
		return ErrUnauthenticated
	}
	msg, err := s.findMessage(ctx, msgID)
	if err != nil {
		return err
	}
	// Membership is checked against the message's own conversation
	// reference, never a caller-supplied id.
	cv, err := s.findConversation(ctx, msg.ConversationID)
	if err != nil {
		return err
	}
	if !cv.HasParticipant(actor) {
		return ErrForbidden
	}
	return s.msgRepo.HideFor(ctx, msg.ID, actor, time.Now())
}

func (s *messageService) DeleteForEveryone(ctx context.Context, actor model.Actor, msgID uint64) error {
	if actor.IsZero() {
		return ErrUnauthenticated
	}
	msg, err := s.findMessage(ctx, msgID)
	if err != nil {
		return err
	}
	cv, err := s.findConversation(ctx, msg.ConversationID)
	if err != nil {
		return err
	}
	if !cv.HasParticipant(actor) || !msg.OwnedBy(actor) {
		return ErrForbidden
	}

	replied, err := s.msgRepo.HasReply(ctx, msg.ID)
	if err != nil {
		return err
	}
	if replied {
		// Another message quotes this one; keep the row so the quoted
		// parent still resolves.
		if err := s.msgRepo.Tombstone(ctx, msg.ID, time.Now()); err != nil {
			return err
		}
	} else {
		path, err := s.msgRepo.HardDelete(ctx, msg)
		if err != nil {
			return err
		}
		if path != "" {
			s.deleteBlobs(ctx, []string{path})
		}
	}

	if s.dispatcher != nil {
		s.dispatcher.MessageDeleted(ctx, cv, msg)
	}
	return nil
}

func (s *messageService) LoadWindow(ctx context.Context, actor model.Actor, convID uint64, limit, offset int) (*MessageWindow, error) {
	if actor.IsZero() {
		return nil, ErrUnauthenticated
	}
	cv, err := s.findConversation(ctx, convID)
	if err != nil {
		return nil, err
	}
	p := cv.ParticipationOf(actor)
	if p == nil {
		return nil, ErrForbidden
	}
	if p.DeletedAt != nil {
		return nil, ErrNotFound
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	total, err := s.msgRepo.CountVisible(ctx, cv, actor)
	if err != nil {
		return nil, err
	}
	msgs, err := s.msgRepo.ListWindow(ctx, cv, actor, limit, offset)
	if err != nil {
		return nil, err
	}

	parents, err := s.loadParents(ctx, msgs)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var groups []MessageGroup
	for _, m := range msgs {
		view := s.view(&m, actor, parents)
		label := dayLabel(m.CreatedAt, now)
		if len(groups) == 0 || groups[len(groups)-1].Label != label {
			groups = append(groups, MessageGroup{Label: label})
		}
		groups[len(groups)-1].Messages = append(groups[len(groups)-1].Messages, view)
	}

	return &MessageWindow{
		Groups:      groups,
		CanLoadMore: total > int64(offset+len(msgs)),
	}, nil
}

// loadParents fetches reply targets for quoted rendering. Tombstoned
// parents are included on purpose: deleting a parent never hides it
// from its children's quoted view.
func (s *messageService) loadParents(ctx context.Context, msgs []model.Message) (map[uint64]*model.Message, error) {
	var ids []uint64
	for _, m := range msgs {
		if m.ReplyID != nil {
			ids = append(ids, *m.ReplyID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	parents, err := s.msgRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uint64]*model.Message, len(parents))
	for i := range parents {
		out[parents[i].ID] = &parents[i]
	}
	return out, nil
}

func (s *messageService) view(m *model.Message, viewer model.Actor, parents map[uint64]*model.Message) MessageView {
	body := m.BodyText()
	if m.Tombstoned() && s.opts.RedactTombstones && !m.OwnedBy(viewer) {
		body = tombstonePlaceholder
	}
	v := MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Sender:         m.Author(),
		Body:           body,
		Deleted:        m.Tombstoned(),
		CreatedAt:      m.CreatedAt,
	}
	if m.Attachment != nil {
		v.Attachment = &AttachmentView{
			FileName:     m.Attachment.FileName,
			OriginalName: m.Attachment.OriginalName,
			MimeType:     m.Attachment.MimeType,
			URL:          m.Attachment.URL,
		}
	}
	if m.ReplyID != nil {
		if parent, ok := parents[*m.ReplyID]; ok {
			v.ReplyTo = &ReplyPreview{
				ID:            parent.ID,
				Sender:        parent.Author(),
				Body:          parent.BodyText(),
				HasAttachment: parent.Attachment != nil,
			}
		}
	}
	return v
}

func (s *messageService) findConversation(ctx context.Context, id uint64) (*model.Conversation, error) {
	cv, err := s.convRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return cv, nil
}

func (s *messageService) findMessage(ctx context.Context, id uint64) (*model.Message, error) {
	m, err := s.msgRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *messageService) deleteBlobs(ctx context.Context, paths []string) {
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

func pathBase(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}
