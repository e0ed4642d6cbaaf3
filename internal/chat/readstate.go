package chat

import (
	"context"
	"time"

	"messaging-service/internal/models"
)

// MarkRead records the requester as having read every message in the
// room they did not send. Idempotent: receipts are append-only and a
// second call changes nothing. One messages-read event goes to the room
// channel per call, never per message.
func (s *Service) MarkRead(ctx context.Context, roomID int, reader models.Principal) (models.ReadEvent, error) {
	if roomID <= 0 {
		return models.ReadEvent{}, ErrInvalidRoomID
	}

	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return models.ReadEvent{}, err
	}
	if !room.HasParticipant(reader.ID) {
		return models.ReadEvent{}, ErrForbidden
	}
	return s.markRead(ctx, room, reader)
}

func (s *Service) markRead(ctx context.Context, room models.Room, reader models.Principal) (models.ReadEvent, error) {
	now := time.Now()
	if _, err := s.messages.MarkRoomRead(ctx, room.ID, reader.ID, now); err != nil {
		return models.ReadEvent{}, err
	}

	ev := models.ReadEvent{RoomID: room.ID, ReaderID: reader.ID, ReadAt: now}
	s.broadcaster.BroadcastRead(room.ID, ev)
	return ev, nil
}

// UnreadCount reports the requester's unread messages in a room,
// computed on demand.
func (s *Service) UnreadCount(ctx context.Context, roomID int, userID int) (int, error) {
	return s.messages.UnreadCount(ctx, roomID, userID)
}
