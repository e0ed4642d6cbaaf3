package models

import "time"

// Room is a direct conversation between exactly two principals. The
// participant pair is stored sorted so the unordered pair is unique.
// Group rooms are a documented extension point behind IsGroup.
type Room struct {
	ID            int       `db:"id" json:"id"`
	User1ID       int       `db:"user1_id" json:"user1_id"`
	User2ID       int       `db:"user2_id" json:"user2_id"`
	IsGroup       bool      `db:"is_group" json:"is_group"`
	LastMessageID *int      `db:"last_message_id" json:"last_message_id,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// HasParticipant reports whether the principal belongs to the room.
func (r Room) HasParticipant(userID int) bool {
	return r.User1ID == userID || r.User2ID == userID
}

// OtherParticipant returns the peer of the given participant.
func (r Room) OtherParticipant(userID int) int {
	if r.User1ID == userID {
		return r.User2ID
	}
	return r.User1ID
}

// ParticipantIDs returns both participant ids in stored order.
func (r Room) ParticipantIDs() []int {
	return []int{r.User1ID, r.User2ID}
}

// RoomSummary is the API view of a room: the room itself plus resolved
// participant profiles, the last message and the caller's unread count.
type RoomSummary struct {
	Room         Room                 `json:"room"`
	Participants []ParticipantProfile `json:"participants"`
	LastMessage  *MessageView         `json:"last_message,omitempty"`
	UnreadCount  int                  `json:"unread_count"`
}
