package chat

import (
	"context"
	"strings"
	"sync"

	"messaging-service/internal/models"
	"messaging-service/internal/observability"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// keyedMutex serializes work per room id so message persistence and the
// decision to broadcast happen as one step per message, without a
// global lock across rooms.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int]*roomLock
}

type roomLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() keyedMutex {
	return keyedMutex{locks: make(map[int]*roomLock)}
}

func (k *keyedMutex) lock(key int) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &roomLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// Send validates, persists and broadcasts a message. Membership is
// verified against the store on every send; the connection's local
// joined set is never trusted for authorization. Broadcast happens only
// after persistence succeeds, and the returned view doubles as the
// sender's acknowledgement, independent of peer delivery.
func (s *Service) Send(ctx context.Context, sender models.Principal, roomID int, content string, contentType models.ContentType, mediaRef string) (models.MessageView, error) {
	if roomID <= 0 {
		return models.MessageView{}, ErrInvalidRoomID
	}
	if contentType == "" {
		contentType = models.TextContent
	}
	if !contentType.Valid() {
		return models.MessageView{}, ErrInvalidContentType
	}
	content = strings.TrimSpace(content)
	if content == "" && contentType == models.TextContent {
		return models.MessageView{}, ErrEmptyContent
	}

	unlock := s.roomLocks.lock(roomID)
	defer unlock()

	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return models.MessageView{}, err
	}
	if !room.HasParticipant(sender.ID) {
		return models.MessageView{}, ErrForbidden
	}

	msg, err := s.messages.CreateMessage(ctx, roomID, sender, content, contentType, mediaRef)
	if err != nil {
		return models.MessageView{}, err
	}
	if err := s.rooms.TouchRoom(ctx, roomID, msg.ID, msg.CreatedAt); err != nil {
		return models.MessageView{}, err
	}

	room.LastMessageID = &msg.ID
	room.UpdatedAt = msg.CreatedAt

	view := models.MessageView{Message: msg, Sender: s.profileFor(sender)}
	summary := models.RoomSummary{
		Room:        room,
		LastMessage: &view,
	}
	s.broadcaster.BroadcastNewMessage(room, view, summary)
	observability.IncMessagesSent()
	return view, nil
}

// History returns one page of a room's messages in chronological order.
// The store pages newest-first; the page is reversed for presentation.
// Fetching history marks the room read for the requester: having pulled
// the messages means having seen them.
func (s *Service) History(ctx context.Context, requester models.Principal, roomID int, page int, pageSize int) ([]models.MessageView, int, error) {
	if roomID <= 0 {
		return nil, 0, ErrInvalidRoomID
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, 0, err
	}
	if !room.HasParticipant(requester.ID) {
		return nil, 0, ErrForbidden
	}

	msgs, err := s.messages.ListRoomMessages(ctx, roomID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.messages.CountRoomMessages(ctx, roomID)
	if err != nil {
		return nil, 0, err
	}

	// Reverse newest-first storage order to oldest-first presentation.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	views, err := s.resolveViews(ctx, msgs)
	if err != nil {
		return nil, 0, err
	}

	if _, err := s.markRead(ctx, room, requester); err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

func (s *Service) resolveViews(ctx context.Context, msgs []models.Message) ([]models.MessageView, error) {
	senderIDs := make([]int, 0, len(msgs))
	messageIDs := make([]int, 0, len(msgs))
	seen := map[int]struct{}{}
	for _, m := range msgs {
		messageIDs = append(messageIDs, m.ID)
		if _, ok := seen[m.SenderID]; !ok {
			seen[m.SenderID] = struct{}{}
			senderIDs = append(senderIDs, m.SenderID)
		}
	}

	principals, err := s.directory.BulkPrincipals(ctx, senderIDs)
	if err != nil {
		return nil, err
	}
	receipts, err := s.messages.ListReadReceipts(ctx, messageIDs)
	if err != nil {
		return nil, err
	}
	receiptsByMessage := map[int][]models.ReadReceipt{}
	for _, r := range receipts {
		receiptsByMessage[r.MessageID] = append(receiptsByMessage[r.MessageID], r)
	}

	views := make([]models.MessageView, 0, len(msgs))
	for _, m := range msgs {
		view := s.viewFor(m, principals)
		view.ReadBy = receiptsByMessage[m.ID]
		views = append(views, view)
	}
	return views, nil
}
