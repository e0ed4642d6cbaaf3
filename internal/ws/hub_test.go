package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
)

func newTestClient(hub *Hub, userID int, name string) *Client {
	principal := models.Principal{ID: userID, Kind: models.TravelerKind, DisplayName: name}
	return newClient(hub, nil, nil, principal, ConnInfo{ConnID: name})
}

func drainEvents(t *testing.T, c *Client) []models.ServerEvent {
	t.Helper()
	var events []models.ServerEvent
	for {
		select {
		case payload := <-c.send:
			var ev models.ServerEvent
			require.NoError(t, json.Unmarshal(payload, &ev))
			events = append(events, ev)
		default:
			return events
		}
	}
}

func eventNames(events []models.ServerEvent) []string {
	names := make([]string, 0, len(events))
	for _, ev := range events {
		names = append(names, ev.Event)
	}
	return names
}

func TestPresenceEdgeTriggered(t *testing.T) {
	directory := new(mocks.DirectoryMock)
	directory.On("RecordLastSeen", mock.Anything, 1, mock.Anything).Return(nil).Once()
	hub := NewHub(directory)

	observer := newTestClient(hub, 2, "observer")
	hub.Register(observer)

	first := newTestClient(hub, 1, "phone")
	second := newTestClient(hub, 1, "laptop")

	hub.Register(first)
	hub.Register(second)
	hub.Unregister(second)
	hub.Unregister(first)

	events := drainEvents(t, observer)
	require.Equal(t, []string{models.EventUserOnline, models.EventUserOffline}, eventNames(events))
	assert.Equal(t, 1, events[0].User.UserID)
	assert.Equal(t, 1, events[1].User.UserID)

	directory.AssertExpectations(t)
}

func TestPresenceNotAnnouncedToSelf(t *testing.T) {
	directory := new(mocks.DirectoryMock)
	hub := NewHub(directory)

	first := newTestClient(hub, 1, "phone")
	second := newTestClient(hub, 1, "laptop")
	hub.Register(first)
	hub.Register(second)

	assert.Empty(t, drainEvents(t, first))
	assert.True(t, hub.IsOnline(1))
	assert.Equal(t, 2, hub.ConnectionCount(1))
}

func TestBroadcastNewMessageTargets(t *testing.T) {
	directory := new(mocks.DirectoryMock)
	hub := NewHub(directory)

	sender := newTestClient(hub, 1, "sender")
	peerInRoom := newTestClient(hub, 2, "peer-room")
	peerElsewhere := newTestClient(hub, 2, "peer-elsewhere")
	stranger := newTestClient(hub, 3, "stranger")

	for _, c := range []*Client{sender, peerInRoom, peerElsewhere, stranger} {
		hub.Register(c)
	}
	hub.JoinRoom(10, sender)
	hub.JoinRoom(10, peerInRoom)

	// Ignore presence chatter from registration.
	for _, c := range []*Client{sender, peerInRoom, peerElsewhere, stranger} {
		drainEvents(t, c)
	}

	room := models.Room{ID: 10, User1ID: 1, User2ID: 2}
	msg := models.MessageView{Message: models.Message{ID: 5, RoomID: 10, SenderID: 1, Content: "hi"}}
	hub.BroadcastNewMessage(room, msg, models.RoomSummary{Room: room, LastMessage: &msg})

	require.Equal(t, []string{models.EventReceiveMessage}, eventNames(drainEvents(t, sender)))

	peerRoomEvents := eventNames(drainEvents(t, peerInRoom))
	assert.ElementsMatch(t, []string{models.EventReceiveMessage, models.EventRoomUpdated}, peerRoomEvents)

	peerElsewhereEvents := eventNames(drainEvents(t, peerElsewhere))
	assert.ElementsMatch(t, []string{models.EventReceiveMessage, models.EventRoomUpdated}, peerElsewhereEvents)

	assert.Empty(t, drainEvents(t, stranger))
}

func TestBroadcastTypingRequiresJoinedSender(t *testing.T) {
	directory := new(mocks.DirectoryMock)
	hub := NewHub(directory)

	typist := newTestClient(hub, 1, "typist")
	listener := newTestClient(hub, 2, "listener")
	hub.Register(typist)
	hub.Register(listener)
	hub.JoinRoom(7, listener)
	drainEvents(t, listener)

	ev := models.TypingEvent{RoomID: 7, UserID: 1, UserName: "typist", IsTyping: true}
	hub.BroadcastTyping(7, ev, typist)
	assert.Empty(t, drainEvents(t, listener), "typing from a non-joined sender must not fan out")

	hub.JoinRoom(7, typist)
	hub.BroadcastTyping(7, ev, typist)
	events := drainEvents(t, listener)
	require.Equal(t, []string{models.EventUserTyping}, eventNames(events))
	assert.True(t, events[0].Typing.IsTyping)
	assert.Empty(t, drainEvents(t, typist), "typist must not hear their own typing")
}

func TestLeaveRoomStopsRoomDelivery(t *testing.T) {
	directory := new(mocks.DirectoryMock)
	directory.On("RecordLastSeen", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	hub := NewHub(directory)

	c := newTestClient(hub, 2, "conn")
	hub.Register(c)
	hub.JoinRoom(3, c)
	hub.LeaveRoom(3, c)

	hub.BroadcastRead(3, models.ReadEvent{RoomID: 3, ReaderID: 1})
	assert.Empty(t, drainEvents(t, c))

	hub.Unregister(c)
	assert.False(t, hub.IsOnline(2))
}
