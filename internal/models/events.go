package models

import (
	"encoding/json"
	"time"
)

// Client-to-server websocket event names.
const (
	EventJoinRoom    = "join-room"
	EventLeaveRoom   = "leave-room"
	EventSendMessage = "send-message"
	EventTyping      = "typing"
	EventMarkRead    = "mark-read"
	EventPing        = "ping"
)

// Server-to-client websocket event names.
const (
	EventReceiveMessage = "receive-message"
	EventMessageSent    = "message-sent"
	EventMessageError   = "message-error"
	EventRoomUpdated    = "room-updated"
	EventUserTyping     = "user-typing"
	EventMessagesRead   = "messages-read"
	EventUserOnline     = "user-online"
	EventUserOffline    = "user-offline"
	EventPong           = "pong"
)

// ClientEvent is an inbound websocket frame.
type ClientEvent struct {
	Event       string      `json:"event"`
	RoomID      int         `json:"room_id,omitempty"`
	Content     string      `json:"content,omitempty"`
	ContentType ContentType `json:"content_type,omitempty"`
	MediaRef    string      `json:"media_ref,omitempty"`
	IsTyping    bool        `json:"is_typing,omitempty"`
}

// ServerEvent is an outbound websocket frame. Exactly one payload field
// is set depending on Event.
type ServerEvent struct {
	Event   string       `json:"event"`
	Message *MessageView `json:"message,omitempty"`
	Room    *RoomSummary `json:"room,omitempty"`
	Typing  *TypingEvent `json:"typing,omitempty"`
	Read    *ReadEvent   `json:"read,omitempty"`
	User    *UserEvent   `json:"user,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// TypingEvent signals a participant typing in a room. Best effort: no
// persistence, no acknowledgement, droppable.
type TypingEvent struct {
	RoomID   int    `json:"room_id"`
	UserID   int    `json:"user_id"`
	UserName string `json:"user_name"`
	IsTyping bool   `json:"is_typing"`
}

// ReadEvent is emitted once per mark-read call for a room.
type ReadEvent struct {
	RoomID   int       `json:"room_id"`
	ReaderID int       `json:"reader_id"`
	ReadAt   time.Time `json:"read_at"`
}

// UserEvent carries presence transitions.
type UserEvent struct {
	UserID int `json:"user_id"`
}

// Encode marshals the event for the wire. Payloads are plain structs so
// marshaling cannot fail in practice; a nil slice keeps writers simple.
func (e ServerEvent) Encode() []byte {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	return payload
}
