package chat

import (
	"time"

	"github.com/siberfx/wirechat/internal/model"
)

const (
	EventMessageCreated = "message.created"
	EventMessageDeleted = "message.deleted"
)

// Event is what a live session receives when a message lands in or
// disappears from one of its conversations.
type Event struct {
	Kind           string      `json:"kind"`
	MessageID      uint64      `json:"messageId"`
	ConversationID uint64      `json:"conversationId"`
	Sender         model.Actor `json:"sender"`
	Body           string      `json:"body,omitempty"`
	AttachmentURL  string      `json:"attachmentUrl,omitempty"`
	ReplyID        *uint64     `json:"replyId,omitempty"`
	CreatedAt      time.Time   `json:"createdAt,omitempty"`
}
