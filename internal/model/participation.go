package model

import "time"

// Participation links an actor to a conversation and carries that
// actor's private visibility state. Rows are never removed except by a
// full conversation purge or a group exit.
type Participation struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID uint64 `gorm:"column:conversation_id;uniqueIndex:uniq_conv_actor" json:"conversationId"`
	ActorKind      string `gorm:"column:actor_kind;size:32;uniqueIndex:uniq_conv_actor" json:"actorKind"`
	ActorID        string `gorm:"column:actor_id;size:128;uniqueIndex:uniq_conv_actor;index" json:"actorId"`
	// ClearedAt hides everything at or before it from this actor.
	ClearedAt *time.Time `gorm:"column:cleared_at" json:"clearedAt,omitempty"`
	// DeletedAt marks the conversation as removed from this actor's
	// list. Any new message in the conversation clears it again and
	// folds the timestamp into ClearedAt so pre-deletion history stays
	// hidden.
	DeletedAt *time.Time `gorm:"column:deleted_at" json:"deletedAt,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Participation) TableName() string {
	return "participations"
}

func (p *Participation) Actor() Actor {
	return Actor{Kind: p.ActorKind, ID: p.ActorID}
}

// Cutoff returns the moment before which no message is visible to this
// actor: the later of ClearedAt and DeletedAt, or nil when neither is
// set.
func (p *Participation) Cutoff() *time.Time {
	cut := p.ClearedAt
	if p.DeletedAt != nil && (cut == nil || p.DeletedAt.After(*cut)) {
		cut = p.DeletedAt
	}
	return cut
}
