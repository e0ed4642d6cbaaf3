package chat

import (
	"context"
	"errors"
	"strings"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

var (
	ErrForbidden          = errors.New("not a participant")
	ErrEmptyContent       = errors.New("message content is empty")
	ErrInvalidContentType = errors.New("unsupported content type")
	ErrInvalidRoomID      = errors.New("invalid room id")
)

// Broadcaster fans events out to live connections. Implemented by the
// websocket hub; a persisted message is handed off here and nothing
// else ever reaches the wire.
type Broadcaster interface {
	BroadcastNewMessage(room models.Room, msg models.MessageView, summary models.RoomSummary)
	BroadcastRead(roomID int, ev models.ReadEvent)
}

// Presence answers whether a principal currently has an active
// connection. Implemented by the websocket hub.
type Presence interface {
	IsOnline(userID int) bool
}

// Service is the messaging core: room directory, message pipeline and
// read-state tracking, shared by the REST handlers and the websocket
// layer.
type Service struct {
	rooms       repositories.RoomRepository
	messages    repositories.MessageRepository
	directory   repositories.Directory
	broadcaster Broadcaster
	presence    Presence
	roomLocks   keyedMutex
}

// NewService constructs the Service.
func NewService(rooms repositories.RoomRepository, messages repositories.MessageRepository, directory repositories.Directory, broadcaster Broadcaster, presence Presence) *Service {
	return &Service{
		rooms:       rooms,
		messages:    messages,
		directory:   directory,
		broadcaster: broadcaster,
		presence:    presence,
		roomLocks:   newKeyedMutex(),
	}
}

// GetOrCreateRoom resolves the direct room between the requester and a
// peer, creating it on first contact. Returns the room annotated with
// both participants' profiles.
func (s *Service) GetOrCreateRoom(ctx context.Context, requester models.Principal, peerID int) (models.RoomSummary, error) {
	if peerID <= 0 {
		return models.RoomSummary{}, ErrInvalidRoomID
	}

	peer, err := s.directory.GetPrincipal(ctx, peerID)
	if err != nil {
		return models.RoomSummary{}, err
	}

	room, err := s.rooms.GetOrCreateRoom(ctx, requester.ID, peer.ID)
	if err != nil {
		return models.RoomSummary{}, err
	}

	return s.summarize(ctx, room, requester.ID, map[int]models.Principal{
		requester.ID: requester,
		peer.ID:      peer,
	})
}

// ListRooms returns the requester's rooms ordered by last activity,
// each with unread count, last message and resolved profiles.
func (s *Service) ListRooms(ctx context.Context, requester models.Principal) ([]models.RoomSummary, error) {
	rooms, err := s.rooms.ListRoomsForUser(ctx, requester.ID)
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(rooms)+1)
	ids = append(ids, requester.ID)
	for _, room := range rooms {
		ids = append(ids, room.OtherParticipant(requester.ID))
	}
	principals, err := s.directory.BulkPrincipals(ctx, ids)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		summary, err := s.summarize(ctx, room, requester.ID, principals)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// DeleteRoom removes a room and purges its messages. Participants only.
func (s *Service) DeleteRoom(ctx context.Context, requester models.Principal, roomID int) error {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.HasParticipant(requester.ID) {
		return ErrForbidden
	}
	return s.rooms.DeleteRoom(ctx, roomID)
}

// CanJoin reports whether the principal may subscribe to the room's
// live channel, checked against the store.
func (s *Service) CanJoin(ctx context.Context, roomID int, userID int) (bool, error) {
	if roomID <= 0 {
		return false, nil
	}
	return s.rooms.IsParticipant(ctx, roomID, userID)
}

// SearchUsers finds principals to start a conversation with. Queries
// shorter than two characters return nothing rather than everything.
func (s *Service) SearchUsers(ctx context.Context, requester models.Principal, query string) ([]models.ParticipantProfile, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return []models.ParticipantProfile{}, nil
	}

	principals, err := s.directory.SearchPrincipals(ctx, query, requester.ID, 20)
	if err != nil {
		return nil, err
	}
	profiles := make([]models.ParticipantProfile, 0, len(principals))
	for _, p := range principals {
		profiles = append(profiles, s.profileFor(p))
	}
	return profiles, nil
}

// summarize builds the API view of a room for one participant. The
// profile view is computed on read; nothing here is cached.
func (s *Service) summarize(ctx context.Context, room models.Room, forUserID int, principals map[int]models.Principal) (models.RoomSummary, error) {
	participants := make([]models.ParticipantProfile, 0, 2)
	for _, id := range room.ParticipantIDs() {
		if p, ok := principals[id]; ok {
			participants = append(participants, s.profileFor(p))
		}
	}

	unread, err := s.messages.UnreadCount(ctx, room.ID, forUserID)
	if err != nil {
		return models.RoomSummary{}, err
	}

	summary := models.RoomSummary{
		Room:         room,
		Participants: participants,
		UnreadCount:  unread,
	}

	if room.LastMessageID != nil {
		msg, err := s.messages.GetMessage(ctx, *room.LastMessageID)
		switch {
		case err == nil:
			view := s.viewFor(msg, principals)
			summary.LastMessage = &view
		case errors.Is(err, repositories.ErrMessageNotFound):
			// Room points at a purged message; summary just has no preview.
		default:
			return models.RoomSummary{}, err
		}
	}
	return summary, nil
}

func (s *Service) viewFor(msg models.Message, principals map[int]models.Principal) models.MessageView {
	view := models.MessageView{Message: msg}
	if p, ok := principals[msg.SenderID]; ok {
		view.Sender = s.profileFor(p)
	} else {
		view.Sender = models.ParticipantProfile{ID: msg.SenderID, Kind: msg.SenderKind}
	}
	return view
}

func (s *Service) profileFor(p models.Principal) models.ParticipantProfile {
	return models.ParticipantProfile{
		ID:          p.ID,
		Kind:        p.Kind,
		DisplayName: p.DisplayName,
		AvatarRef:   p.AvatarRef,
		Online:      s.presence.IsOnline(p.ID),
		LastSeenAt:  p.LastSeenAt,
	}
}
