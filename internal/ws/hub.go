package ws

import (
	"context"
	"log"
	"sync"
	"time"

	"messaging-service/internal/models"
	"messaging-service/internal/observability"
)

// LastSeenRecorder receives the last-seen write-back when a principal's
// final connection closes.
type LastSeenRecorder interface {
	RecordLastSeen(ctx context.Context, userID int, at time.Time) error
}

// Hub owns the process-wide connection state: which connections are
// joined to which room channels, and every principal's private channel.
// The private channel doubles as the presence registry: a principal is
// online iff it has at least one registered connection.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[int]map[*Client]struct{}
	users    map[int]map[*Client]struct{}
	lastSeen LastSeenRecorder
}

// NewHub creates an empty hub.
func NewHub(lastSeen LastSeenRecorder) *Hub {
	return &Hub{
		rooms:    make(map[int]map[*Client]struct{}),
		users:    make(map[int]map[*Client]struct{}),
		lastSeen: lastSeen,
	}
}

// Register admits an authenticated connection and joins it to its
// principal's private channel. Only the 0->1 connection-count edge
// announces user-online; a second device joining is silent. The edge is
// decided and the announcement enqueued under one lock acquisition so
// observers never see presence transitions out of order.
func (h *Hub) Register(c *Client) {
	userID := c.principal.ID

	h.mu.Lock()
	if _, ok := h.users[userID]; !ok {
		h.users[userID] = make(map[*Client]struct{})
	}
	h.users[userID][c] = struct{}{}
	wentOnline := len(h.users[userID]) == 1
	if wentOnline {
		h.enqueueToOthersLocked(userID, models.ServerEvent{
			Event: models.EventUserOnline,
			User:  &models.UserEvent{UserID: userID},
		})
	}
	online := len(h.users)
	h.mu.Unlock()

	observability.SetOnlineUsers(online)
	if wentOnline {
		observability.IncWSEvent("user_online")
	}
}

// Unregister removes a connection from every channel it was joined to.
// On the 1->0 edge it announces user-offline and persists the
// principal's last-seen timestamp, the only directory write this
// service performs.
func (h *Hub) Unregister(c *Client) {
	userID := c.principal.ID

	h.mu.Lock()
	for roomID := range c.joined {
		h.removeFromRoomLocked(roomID, c)
	}
	c.joined = map[int]struct{}{}

	wentOffline := false
	if conns, ok := h.users[userID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.users, userID)
			wentOffline = true
			h.enqueueToOthersLocked(userID, models.ServerEvent{
				Event: models.EventUserOffline,
				User:  &models.UserEvent{UserID: userID},
			})
		}
	}
	c.closeSend()
	online := len(h.users)
	h.mu.Unlock()

	observability.SetOnlineUsers(online)
	if wentOffline {
		observability.IncWSEvent("user_offline")
		if err := h.lastSeen.RecordLastSeen(context.Background(), userID, time.Now()); err != nil {
			log.Printf("record last seen for user %d: %v", userID, err)
		}
	}
}

// JoinRoom subscribes a connection to a room channel. Membership has
// been verified by the caller against the store.
func (h *Hub) JoinRoom(roomID int, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*Client]struct{})
	}
	h.rooms[roomID][c] = struct{}{}
	c.joined[roomID] = struct{}{}
}

// LeaveRoom unsubscribes a connection from a room channel.
func (h *Hub) LeaveRoom(roomID int, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoomLocked(roomID, c)
	delete(c.joined, roomID)
}

// BroadcastNewMessage delivers a persisted message to the room channel
// and, for every participant other than the sender, to the private
// channel together with a room summary for list-view refresh. Offline
// participants get nothing; they resynchronize through history.
func (h *Hub) BroadcastNewMessage(room models.Room, msg models.MessageView, summary models.RoomSummary) {
	receive := models.ServerEvent{Event: models.EventReceiveMessage, Message: &msg}
	updated := models.ServerEvent{Event: models.EventRoomUpdated, Room: &summary}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := make(map[*Client]struct{})
	for c := range h.rooms[room.ID] {
		c.enqueue(receive)
		delivered[c] = struct{}{}
	}
	for _, participantID := range room.ParticipantIDs() {
		if participantID == msg.SenderID {
			continue
		}
		for c := range h.users[participantID] {
			if _, ok := delivered[c]; !ok {
				c.enqueue(receive)
			}
			c.enqueue(updated)
		}
	}
	observability.IncWSEvent("message_broadcast")
}

// BroadcastRead delivers a read receipt to the room channel.
func (h *Hub) BroadcastRead(roomID int, ev models.ReadEvent) {
	event := models.ServerEvent{Event: models.EventMessagesRead, Read: &ev}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[roomID] {
		c.enqueue(event)
	}
	observability.IncWSEvent("messages_read")
}

// BroadcastTyping delivers a typing indicator to the room channel,
// excluding the typist's own connection. Best effort: not persisted,
// not acknowledged, dropped for slow consumers. Requires the sender to
// be joined to the room channel.
func (h *Hub) BroadcastTyping(roomID int, ev models.TypingEvent, from *Client) {
	event := models.ServerEvent{Event: models.EventUserTyping, Typing: &ev}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, joined := h.rooms[roomID][from]; !joined {
		return
	}
	for c := range h.rooms[roomID] {
		if c == from {
			continue
		}
		c.tryEnqueue(event)
	}
	observability.IncWSEvent("typing")
}

// IsOnline reports whether the principal has at least one active
// connection.
func (h *Hub) IsOnline(userID int) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.users[userID]
	return ok
}

// ConnectionCount returns the number of active connections for a
// principal.
func (h *Hub) ConnectionCount(userID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// Presence transitions are broadcast to every connected principal,
// mirroring the source system. A relationship-scoped fan-out is the
// known scaling limit here.
func (h *Hub) enqueueToOthersLocked(aboutUserID int, event models.ServerEvent) {
	for userID, conns := range h.users {
		if userID == aboutUserID {
			continue
		}
		for c := range conns {
			c.enqueue(event)
		}
	}
}

func (h *Hub) removeFromRoomLocked(roomID int, c *Client) {
	if conns, ok := h.rooms[roomID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.rooms, roomID)
		}
	}
}
