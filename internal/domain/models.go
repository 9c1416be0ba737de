// Package domain defines the persistence models for the rental marketplace:
// users, property listings, conversations, direct messages, and
// notifications. These types are mapped with GORM and form the core data
// layer of the application.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Listing kinds. A listing either offers a place (rental), looks for one
// (wanted), hands over an existing lease (pass) or looks for flatmates
// (join).
const (
	ListingKindRental = "rental"
	ListingKindWanted = "wanted"
	ListingKindPass   = "pass"
	ListingKindJoin   = "join"
)

// User is a registered account. Login is refused until the email address has
// been verified through a verification-code token.
type User struct {
	ID            string         `json:"id"    gorm:"type:char(36);primaryKey"`
	Email         string         `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash  string         `json:"-"     gorm:"type:varchar(255);not null"`
	DisplayName   string         `json:"display_name" gorm:"type:varchar(64);not null"`
	Phone         string         `json:"phone,omitempty" gorm:"type:varchar(32)"`
	EmailVerified bool           `json:"email_verified" gorm:"not null;default:false"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Listing is a property advertisement. Price is stored in minor units per
// month; Area in square meters. Latitude/Longitude are filled by the injected
// geocoder when available, zero otherwise.
type Listing struct {
	ID        string         `json:"id"      gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id" gorm:"type:char(36);not null;index:idx_user_listings"`
	Kind      string         `json:"kind"    gorm:"type:varchar(16);not null;index;check:kind IN ('rental','wanted','pass','join')"`
	Title     string         `json:"title"   gorm:"type:varchar(255);not null"`
	Body      string         `json:"body"    gorm:"type:text;not null"`
	Price     int64          `json:"price"   gorm:"not null;index"`
	Area      float64        `json:"area"    gorm:"not null;default:0"`
	Rooms     int            `json:"rooms"   gorm:"not null;default:0"`
	City      string         `json:"city"    gorm:"type:varchar(128);not null;index"`
	District  string         `json:"district" gorm:"type:varchar(128)"`
	Address   string         `json:"address"  gorm:"type:varchar(255)"`
	Latitude  float64        `json:"latitude"`
	Longitude float64        `json:"longitude"`
	MediaURL  string         `json:"media_url,omitempty" gorm:"type:varchar(512)"`
	CreatedAt time.Time      `json:"created_at" gorm:"index"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Listing.
func (Listing) TableName() string { return "listings" }

// Conversation is a one-to-one message thread between two users. The
// (initiator, peer) pair is unique; services normalize the pair order before
// lookup so the same two users always land in the same row.
type Conversation struct {
	ID            string         `json:"id" gorm:"type:char(36);primaryKey"`
	InitiatorID   string         `json:"initiator_id" gorm:"type:char(36);not null;uniqueIndex:ux_conv_pair,priority:1"`
	PeerID        string         `json:"peer_id"      gorm:"type:char(36);not null;uniqueIndex:ux_conv_pair,priority:2"`
	LastMessageAt *time.Time     `json:"last_message_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// Message is one direct message inside a conversation.
//
// Recall semantics: AllowRecallAt is fixed at creation (SentAt plus the
// configured grace period) and never extended. IsRecalled moves false→true
// exactly once, inside the recall window, by the sender only; it never
// reverts. A recalled message keeps its row but handlers blank the body.
type Message struct {
	ID             string         `json:"id"              gorm:"type:char(36);primaryKey"`
	ConversationID string         `json:"conversation_id" gorm:"type:char(36);not null;index:idx_conv_msgs,priority:1"`
	SenderID       string         `json:"sender_id"       gorm:"type:char(36);not null;index"`
	Body           string         `json:"body"            gorm:"type:text;not null"`
	SentAt         time.Time      `json:"sent_at"         gorm:"index:idx_conv_msgs,priority:2"`
	AllowRecallAt  time.Time      `json:"allow_recall_at" gorm:"not null"`
	IsRecalled     bool           `json:"is_recalled"     gorm:"not null;default:false"`
	RecalledAt     *time.Time     `json:"recalled_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`

	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// Notification is a per-user inbox entry (new message, listing reply, system
// notice). Read state is monotonic.
type Notification struct {
	ID        string         `json:"id"      gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id" gorm:"type:char(36);not null;index:idx_user_notifications"`
	Kind      string         `json:"kind"    gorm:"type:varchar(32);not null"`
	Payload   string         `json:"payload" gorm:"type:text;not null"`
	IsRead    bool           `json:"is_read" gorm:"not null;default:false"`
	CreatedAt time.Time      `json:"created_at" gorm:"index:idx_user_notifications,priority:2"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the database table name for Notification.
func (Notification) TableName() string { return "notifications" }
