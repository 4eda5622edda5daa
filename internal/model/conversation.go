package model

import "time"

type ConversationType string

const (
	ConversationPrivate ConversationType = "private"
	ConversationGroup   ConversationType = "group"
	ConversationSelf    ConversationType = "self"
)

type Conversation struct {
	ID        uint64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Type      ConversationType `gorm:"column:type;size:16;index" json:"type"`
	OwnerKind string           `gorm:"column:owner_kind;size:32" json:"ownerKind"`
	OwnerID   string           `gorm:"column:owner_id;size:128;index" json:"ownerId"`
	// PairKey is set for private/self conversations only; the unique
	// index is what makes concurrent createPrivateWith calls collapse
	// onto one row.
	PairKey   *string   `gorm:"column:pair_key;size:300;uniqueIndex:uniq_pair_key" json:"-"`
	Name      string    `gorm:"column:name;size:100" json:"name,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	Participations []Participation `gorm:"foreignKey:ConversationID" json:"participations,omitempty"`
}

func (Conversation) TableName() string {
	return "conversations"
}

func (c *Conversation) Owner() Actor {
	return Actor{Kind: c.OwnerKind, ID: c.OwnerID}
}

func (c *Conversation) IsSelf() bool {
	return c.Type == ConversationSelf
}

func (c *Conversation) IsGroup() bool {
	return c.Type == ConversationGroup
}

// ParticipationOf returns the membership record for the actor, in any
// deleted/cleared state, or nil when the actor never joined.
func (c *Conversation) ParticipationOf(a Actor) *Participation {
	for i := range c.Participations {
		if c.Participations[i].Actor().Equal(a) {
			return &c.Participations[i]
		}
	}
	return nil
}

func (c *Conversation) HasParticipant(a Actor) bool {
	return c.ParticipationOf(a) != nil
}
