package model

import "time"

type Notification struct {
	ID             uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorKind      string     `gorm:"column:actor_kind;size:32;index:idx_notif_actor;not null" json:"actorKind"`
	ActorID        string     `gorm:"column:actor_id;size:128;index:idx_notif_actor;not null" json:"actorId"`
	Type           string     `gorm:"column:type;size:64;not null" json:"type"`
	Title          string     `gorm:"column:title;size:255" json:"title"`
	Body           string     `gorm:"column:body;type:text" json:"body"`
	ConversationID *uint64    `gorm:"column:conversation_id;index" json:"conversationId,omitempty"`
	MessageID      *uint64    `gorm:"column:message_id;index" json:"messageId,omitempty"`
	ReadAt         *time.Time `gorm:"column:read_at" json:"readAt,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

func (Notification) TableName() string {
	return "notifications"
}
