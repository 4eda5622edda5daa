package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/siberfx/wirechat/internal/model"
	"gorm.io/gorm"
)

// memStore is an in-memory stand-in for the gorm repositories so the
// services can be exercised without a database.
type memStore struct {
	mu       sync.Mutex
	convs    map[uint64]*model.Conversation
	msgs     map[uint64]*model.Message
	hidden   map[uint64]map[string]time.Time
	nextConv uint64
	nextMsg  uint64
	nextPart uint64
	seq      int64
}

func newMemStore() *memStore {
	return &memStore{
		convs:  make(map[uint64]*model.Conversation),
		msgs:   make(map[uint64]*model.Message),
		hidden: make(map[uint64]map[string]time.Time),
	}
}

// now returns strictly increasing timestamps so visibility cutoffs
// order deterministically even inside one test.
func (s *memStore) now() time.Time {
	s.seq++
	return time.Now().Add(time.Duration(s.seq) * time.Nanosecond)
}

func (s *memStore) visible(m *model.Message, cv *model.Conversation, actor model.Actor) bool {
	if h, ok := s.hidden[m.ID]; ok {
		if _, hiddenFor := h[actor.Key()]; hiddenFor {
			return false
		}
	}
	if p := cv.ParticipationOf(actor); p != nil {
		if cut := p.Cutoff(); cut != nil && !m.CreatedAt.After(*cut) {
			return false
		}
	}
	return true
}

func (s *memStore) visibleMessages(cv *model.Conversation, actor model.Actor) []model.Message {
	var out []model.Message
	for _, m := range s.msgs {
		if m.ConversationID != cv.ID {
			continue
		}
		if s.visible(m, cv, actor) {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

type fakeConvRepo struct {
	store *memStore
}

func (r *fakeConvRepo) SetDB(db *gorm.DB) {}

func (r *fakeConvRepo) FindOrCreatePrivate(ctx context.Context, a, b model.Actor) (*model.Conversation, bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	key := model.PairKey(a, b)
	for _, cv := range s.convs {
		if cv.PairKey != nil && *cv.PairKey == key {
			return cv, false, nil
		}
	}
	s.nextConv++
	typ := model.ConversationPrivate
	actors := []model.Actor{a, b}
	if a.Equal(b) {
		typ = model.ConversationSelf
		actors = actors[:1]
	}
	cv := &model.Conversation{
		ID:        s.nextConv,
		Type:      typ,
		OwnerKind: a.Kind,
		OwnerID:   a.ID,
		PairKey:   &key,
		CreatedAt: s.now(),
	}
	cv.UpdatedAt = cv.CreatedAt
	for _, actor := range actors {
		s.nextPart++
		cv.Participations = append(cv.Participations, model.Participation{
			ID:             s.nextPart,
			ConversationID: cv.ID,
			ActorKind:      actor.Kind,
			ActorID:        actor.ID,
		})
	}
	s.convs[cv.ID] = cv
	return cv, true, nil
}

func (r *fakeConvRepo) CreateGroup(ctx context.Context, cv *model.Conversation) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextConv++
	cv.ID = s.nextConv
	cv.CreatedAt = s.now()
	cv.UpdatedAt = cv.CreatedAt
	for i := range cv.Participations {
		s.nextPart++
		cv.Participations[i].ID = s.nextPart
		cv.Participations[i].ConversationID = cv.ID
	}
	s.convs[cv.ID] = cv
	return nil
}

func (r *fakeConvRepo) FindByID(ctx context.Context, id uint64) (*model.Conversation, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	cv, ok := s.convs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cv, nil
}

func (r *fakeConvRepo) ListForActor(ctx context.Context, actor model.Actor) ([]model.Conversation, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Conversation
	for _, cv := range s.convs {
		p := cv.ParticipationOf(actor)
		if p != nil && p.DeletedAt == nil {
			out = append(out, *cv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *fakeConvRepo) AddParticipation(ctx context.Context, convID uint64, actor model.Actor) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	cv, ok := s.convs[convID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if cv.ParticipationOf(actor) != nil {
		return nil
	}
	s.nextPart++
	cv.Participations = append(cv.Participations, model.Participation{
		ID:             s.nextPart,
		ConversationID: convID,
		ActorKind:      actor.Kind,
		ActorID:        actor.ID,
	})
	return nil
}

func (r *fakeConvRepo) RemoveParticipation(ctx context.Context, convID uint64, actor model.Actor) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	cv, ok := s.convs[convID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range cv.Participations {
		if cv.Participations[i].Actor().Equal(actor) {
			cv.Participations = append(cv.Participations[:i], cv.Participations[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *fakeConvRepo) MarkDeleted(ctx context.Context, convID uint64, actor model.Actor, at time.Time) error {
	return r.setMark(convID, actor, func(p *model.Participation) { p.DeletedAt = &at })
}

func (r *fakeConvRepo) MarkCleared(ctx context.Context, convID uint64, actor model.Actor, at time.Time) error {
	return r.setMark(convID, actor, func(p *model.Participation) { p.ClearedAt = &at })
}

func (r *fakeConvRepo) setMark(convID uint64, actor model.Actor, fn func(*model.Participation)) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	cv, ok := s.convs[convID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p := cv.ParticipationOf(actor)
	if p == nil {
		return gorm.ErrRecordNotFound
	}
	fn(p)
	return nil
}

func (r *fakeConvRepo) PurgeIfAbandoned(ctx context.Context, convID uint64) (bool, []string, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	cv, ok := s.convs[convID]
	if !ok {
		return false, nil, nil
	}
	for i := range cv.Participations {
		if len(s.visibleMessages(cv, cv.Participations[i].Actor())) > 0 {
			return false, nil, nil
		}
	}
	var paths []string
	for id, m := range s.msgs {
		if m.ConversationID != convID {
			continue
		}
		if m.Attachment != nil {
			paths = append(paths, m.Attachment.FilePath)
		}
		delete(s.msgs, id)
		delete(s.hidden, id)
	}
	delete(s.convs, convID)
	return true, paths, nil
}

type fakeMsgRepo struct {
	store *memStore
}

func (r *fakeMsgRepo) SetDB(db *gorm.DB) {}

func (r *fakeMsgRepo) CreateBatch(ctx context.Context, conv *model.Conversation, msgs []*model.Message) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	cv, ok := s.convs[conv.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for _, m := range msgs {
		s.nextMsg++
		m.ID = s.nextMsg
		m.CreatedAt = s.now()
		if m.Attachment != nil {
			m.Attachment.ID = m.ID
			m.Attachment.MessageID = m.ID
		}
		cp := *m
		s.msgs[m.ID] = &cp
	}
	cv.UpdatedAt = s.now()
	for i := range cv.Participations {
		p := &cv.Participations[i]
		if p.DeletedAt != nil {
			if p.ClearedAt == nil || p.DeletedAt.After(*p.ClearedAt) {
				p.ClearedAt = p.DeletedAt
			}
			p.DeletedAt = nil
		}
	}
	return nil
}

func (r *fakeMsgRepo) FindByID(ctx context.Context, id uint64) (*model.Message, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMsgRepo) FindByIDs(ctx context.Context, ids []uint64) ([]model.Message, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Message
	for _, id := range ids {
		if m, ok := s.msgs[id]; ok {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeMsgRepo) HasReply(ctx context.Context, id uint64) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.msgs {
		if m.ReplyID != nil && *m.ReplyID == id {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeMsgRepo) HideFor(ctx context.Context, id uint64, actor model.Actor, at time.Time) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.msgs[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	if s.hidden[id] == nil {
		s.hidden[id] = make(map[string]time.Time)
	}
	s.hidden[id][actor.Key()] = at
	return nil
}

func (r *fakeMsgRepo) Tombstone(ctx context.Context, id uint64, at time.Time) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	m.DeletedForAllAt = &at
	return nil
}

func (r *fakeMsgRepo) HardDelete(ctx context.Context, msg *model.Message) (string, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[msg.ID]
	if !ok {
		return "", gorm.ErrRecordNotFound
	}
	path := ""
	if m.Attachment != nil {
		path = m.Attachment.FilePath
	}
	delete(s.msgs, msg.ID)
	delete(s.hidden, msg.ID)
	return path, nil
}

func (r *fakeMsgRepo) CountVisible(ctx context.Context, conv *model.Conversation, actor model.Actor) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	cv, ok := s.convs[conv.ID]
	if !ok {
		return 0, nil
	}
	return int64(len(s.visibleMessages(cv, actor))), nil
}

func (r *fakeMsgRepo) ListWindow(ctx context.Context, conv *model.Conversation, actor model.Actor, limit, offset int) ([]model.Message, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	cv, ok := s.convs[conv.ID]
	if !ok {
		return nil, nil
	}
	all := s.visibleMessages(cv, actor)
	end := len(all) - offset
	if end < 0 {
		end = 0
	}
	start := end - limit
	if start < 0 {
		start = 0
	}
	return all[start:end], nil
}

type fakeBlobs struct {
	mu      sync.Mutex
	stored  map[string][]byte
	deleted []string
	failing bool
	n       int
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{stored: make(map[string][]byte)}
}

func (b *fakeBlobs) Store(ctx context.Context, data []byte, folder, name, contentType string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failing {
		return "", errors.New("blob store down")
	}
	b.n++
	path := fmt.Sprintf("%s/blob-%d", folder, b.n)
	b.stored[path] = data
	return path, nil
}

func (b *fakeBlobs) URLFor(path string) string {
	return "https://blobs.test/" + path
}

func (b *fakeBlobs) Delete(ctx context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.stored, path)
	b.deleted = append(b.deleted, path)
	return nil
}

type fakeDispatcher struct {
	mu      sync.Mutex
	created []uint64
	deleted []uint64
}

func (d *fakeDispatcher) MessageCreated(ctx context.Context, conv *model.Conversation, msg *model.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.created = append(d.created, msg.ID)
}

func (d *fakeDispatcher) MessageDeleted(ctx context.Context, conv *model.Conversation, msg *model.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deleted = append(d.deleted, msg.ID)
}
