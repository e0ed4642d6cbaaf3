package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"messaging-service/internal/chat"
	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/repositories"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

// ChatService is the surface of the messaging core the websocket layer
// drives on behalf of a connection.
type ChatService interface {
	Send(ctx context.Context, sender models.Principal, roomID int, content string, contentType models.ContentType, mediaRef string) (models.MessageView, error)
	MarkRead(ctx context.Context, roomID int, reader models.Principal) (models.ReadEvent, error)
	CanJoin(ctx context.Context, roomID int, userID int) (bool, error)
}

// Client is one authenticated websocket connection. Inbound events are
// handled serially by the read pump; outbound frames go through the
// buffered send channel drained by the write pump, the connection's
// single writer.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	service   ChatService
	principal models.Principal
	info      ConnInfo

	send      chan []byte
	joined    map[int]struct{} // guarded by hub.mu
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn, service ChatService, principal models.Principal, info ConnInfo) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		hub:       hub,
		conn:      conn,
		service:   service,
		principal: principal,
		info:      info,
		send:      make(chan []byte, sendBufferSize),
		joined:    make(map[int]struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// enqueue queues an event for delivery. A full buffer means the client
// has stopped draining; the connection is closed so it reconnects and
// resynchronizes through history.
func (c *Client) enqueue(event models.ServerEvent) {
	payload := event.Encode()
	if payload == nil {
		return
	}
	select {
	case c.send <- payload:
	default:
		log.Printf("ws conn %s send buffer full, closing", c.info.ConnID)
		c.conn.Close()
	}
}

// tryEnqueue queues a best-effort event, silently dropped when the
// buffer is full. Used for typing indicators only.
func (c *Client) tryEnqueue(event models.ServerEvent) {
	payload := event.Encode()
	if payload == nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// readPump consumes inbound events until the connection dies. A missed
// heartbeat trips the read deadline and is handled exactly like an
// explicit close.
func (c *Client) readPump() {
	var closeReason string
	defer func() {
		c.cancel()
		c.hub.Unregister(c)
		c.conn.Close()
		c.finishLifecycle(closeReason)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			return
		}

		var event models.ClientEvent
		if err := json.Unmarshal(data, &event); err != nil {
			c.enqueue(models.ServerEvent{Event: models.EventMessageError, Error: "malformed event"})
			continue
		}
		c.handleEvent(event)
	}
}

func (c *Client) handleEvent(event models.ClientEvent) {
	observability.IncWSEvent(event.Event)

	switch event.Event {
	case models.EventJoinRoom:
		ok, err := c.service.CanJoin(c.ctx, event.RoomID, c.principal.ID)
		if err != nil {
			c.enqueue(models.ServerEvent{Event: models.EventMessageError, Error: "failed to join room"})
			return
		}
		if !ok {
			c.enqueue(models.ServerEvent{Event: models.EventMessageError, Error: "not a participant of this room"})
			return
		}
		c.hub.JoinRoom(event.RoomID, c)

	case models.EventLeaveRoom:
		c.hub.LeaveRoom(event.RoomID, c)

	case models.EventSendMessage:
		view, err := c.service.Send(c.ctx, c.principal, event.RoomID, event.Content, event.ContentType, event.MediaRef)
		if err != nil {
			c.enqueue(models.ServerEvent{Event: models.EventMessageError, Error: sendErrorReason(err)})
			return
		}
		// Ack to the sender only; the broadcast already went out to
		// everyone else as part of the pipeline.
		c.enqueue(models.ServerEvent{Event: models.EventMessageSent, Message: &view})

	case models.EventTyping:
		c.hub.BroadcastTyping(event.RoomID, models.TypingEvent{
			RoomID:   event.RoomID,
			UserID:   c.principal.ID,
			UserName: c.principal.DisplayName,
			IsTyping: event.IsTyping,
		}, c)

	case models.EventMarkRead:
		if _, err := c.service.MarkRead(c.ctx, event.RoomID, c.principal); err != nil {
			c.enqueue(models.ServerEvent{Event: models.EventMessageError, Error: sendErrorReason(err)})
		}

	case models.EventPing:
		c.enqueue(models.ServerEvent{Event: models.EventPong})

	default:
		c.enqueue(models.ServerEvent{Event: models.EventMessageError, Error: "unknown event"})
	}
}

// writePump drains the send channel and keeps the heartbeat going.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func sendErrorReason(err error) string {
	switch {
	case errors.Is(err, chat.ErrForbidden):
		return "you are not a participant of this room"
	case errors.Is(err, repositories.ErrRoomNotFound):
		return "room not found"
	case errors.Is(err, chat.ErrEmptyContent):
		return "message content is required"
	case errors.Is(err, chat.ErrInvalidContentType):
		return "unsupported content type"
	case errors.Is(err, chat.ErrInvalidRoomID):
		return "invalid room id"
	default:
		return "failed to process event, please retry"
	}
}
