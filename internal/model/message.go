package model

import "time"

type Message struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID uint64 `gorm:"column:conversation_id;index" json:"conversationId"`
	SendableKind   string `gorm:"column:sendable_kind;size:32;index:idx_sendable" json:"sendableKind"`
	SendableID     string `gorm:"column:sendable_id;size:128;index:idx_sendable" json:"sendableId"`
	// Body is nullable: a message is text, attachment-bearing, or both.
	Body *string `gorm:"column:body;type:text" json:"body,omitempty"`
	// ReplyID references another message in the same conversation.
	ReplyID *uint64 `gorm:"column:reply_id;index" json:"replyId,omitempty"`
	// DeletedForAllAt marks a tombstone: the row is retained because
	// another message replies to it. Body stays intact so the quoted
	// parent still resolves.
	DeletedForAllAt *time.Time `gorm:"column:deleted_for_all_at" json:"deletedForAllAt,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"createdAt"`

	Attachment *Attachment `gorm:"foreignKey:MessageID" json:"attachment,omitempty"`
}

func (Message) TableName() string {
	return "messages"
}

func (m *Message) Author() Actor {
	return Actor{Kind: m.SendableKind, ID: m.SendableID}
}

func (m *Message) OwnedBy(a Actor) bool {
	return m.Author().Equal(a)
}

func (m *Message) Tombstoned() bool {
	return m.DeletedForAllAt != nil
}

func (m *Message) BodyText() string {
	if m.Body == nil {
		return ""
	}
	return *m.Body
}

// MessageVisibility is the delete-for-me marker: one row per
// (message, actor) that has hidden the message. Generalizes the
// two-column sender/receiver scheme to N-party conversations.
type MessageVisibility struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	MessageID uint64    `gorm:"column:message_id;uniqueIndex:uniq_msg_actor"`
	ActorKind string    `gorm:"column:actor_kind;size:32;uniqueIndex:uniq_msg_actor"`
	ActorID   string    `gorm:"column:actor_id;size:128;uniqueIndex:uniq_msg_actor"`
	DeletedAt time.Time `gorm:"column:deleted_at"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (MessageVisibility) TableName() string {
	return "message_visibilities"
}
