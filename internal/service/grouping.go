package service

import (
	"time"

	"github.com/siberfx/wirechat/internal/model"
)

type MessageWindow struct {
	Groups      []MessageGroup `json:"groups"`
	CanLoadMore bool           `json:"canLoadMore"`
}

type MessageGroup struct {
	Label    string        `json:"label"`
	Messages []MessageView `json:"messages"`
}

type MessageView struct {
	ID             uint64          `json:"id"`
	ConversationID uint64          `json:"conversationId"`
	Sender         model.Actor     `json:"sender"`
	Body           string          `json:"body,omitempty"`
	Deleted        bool            `json:"deleted,omitempty"`
	Attachment     *AttachmentView `json:"attachment,omitempty"`
	ReplyTo        *ReplyPreview   `json:"replyTo,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type AttachmentView struct {
	FileName     string `json:"fileName"`
	OriginalName string `json:"originalName"`
	MimeType     string `json:"mimeType"`
	URL          string `json:"url"`
}

type ReplyPreview struct {
	ID            uint64      `json:"id"`
	Sender        model.Actor `json:"sender"`
	Body          string      `json:"body,omitempty"`
	HasAttachment bool        `json:"hasAttachment,omitempty"`
}

// dayLabel buckets a message timestamp for display: Today, Yesterday,
// the weekday name inside the last week, dd/mm/yyyy beyond that.
func dayLabel(t, now time.Time) string {
	t = t.Local()
	now = now.Local()
	day := func(x time.Time) time.Time {
		return time.Date(x.Year(), x.Month(), x.Day(), 0, 0, 0, 0, x.Location())
	}
	td, nd := day(t), day(now)
	switch days := int(nd.Sub(td).Hours() / 24); {
	case days <= 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days < 7:
		return t.Weekday().String()
	default:
		return t.Format("02/01/2006")
	}
}
