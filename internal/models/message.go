package models

import "time"

// ContentType classifies message payloads.
type ContentType string

const (
	TextContent  ContentType = "text"
	ImageContent ContentType = "image"
	FileContent  ContentType = "file"
)

// Valid reports whether the content type is supported.
func (t ContentType) Valid() bool {
	return t == TextContent || t == ImageContent || t == FileContent
}

// Message is a persisted chat message. Immutable once created except
// for the append-only read receipts and the soft-delete flag.
type Message struct {
	ID          int           `db:"id" json:"id"`
	RoomID      int           `db:"room_id" json:"room_id"`
	SenderID    int           `db:"sender_id" json:"sender_id"`
	SenderKind  PrincipalKind `db:"sender_kind" json:"sender_kind"`
	Content     string        `db:"content" json:"content"`
	ContentType ContentType   `db:"content_type" json:"content_type"`
	MediaRef    string        `db:"media_ref" json:"media_ref,omitempty"`
	Deleted     bool          `db:"deleted" json:"deleted"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}

// ReadReceipt records that a participant has read a message.
type ReadReceipt struct {
	MessageID int       `db:"message_id" json:"message_id"`
	UserID    int       `db:"user_id" json:"user_id"`
	ReadAt    time.Time `db:"read_at" json:"read_at"`
}

// MessageView is a message with its sender resolved for presentation.
type MessageView struct {
	Message
	Sender ParticipantProfile `json:"sender"`
	ReadBy []ReadReceipt      `json:"read_by,omitempty"`
}
