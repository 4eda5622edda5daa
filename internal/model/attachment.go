package model

import "time"

// Attachment is owned 1:1 by the message that created it. The blob
// behind FilePath is removed from the store when that message is
// hard-deleted; tombstoned messages keep theirs.
type Attachment struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageID    uint64    `gorm:"column:message_id;uniqueIndex" json:"messageId"`
	FilePath     string    `gorm:"column:file_path;size:512" json:"filePath"`
	FileName     string    `gorm:"column:file_name;size:255" json:"fileName"`
	OriginalName string    `gorm:"column:original_name;size:255" json:"originalName"`
	MimeType     string    `gorm:"column:mime_type;size:128" json:"mimeType"`
	URL          string    `gorm:"column:url;size:1024" json:"url"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Attachment) TableName() string {
	return "attachments"
}
