package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

type RoomRepositoryMock struct {
	mock.Mock
}

func (m *RoomRepositoryMock) GetOrCreateRoom(ctx context.Context, userID int, peerID int) (models.Room, error) {
	args := m.Called(ctx, userID, peerID)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) GetRoom(ctx context.Context, roomID int) (models.Room, error) {
	args := m.Called(ctx, roomID)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) IsParticipant(ctx context.Context, roomID int, userID int) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *RoomRepositoryMock) ListRoomsForUser(ctx context.Context, userID int) ([]models.Room, error) {
	args := m.Called(ctx, userID)
	var rooms []models.Room
	if val := args.Get(0); val != nil {
		rooms = val.([]models.Room)
	}
	return rooms, args.Error(1)
}

func (m *RoomRepositoryMock) TouchRoom(ctx context.Context, roomID int, lastMessageID int, at time.Time) error {
	args := m.Called(ctx, roomID, lastMessageID, at)
	return args.Error(0)
}

func (m *RoomRepositoryMock) DeleteRoom(ctx context.Context, roomID int) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, roomID int, sender models.Principal, content string, contentType models.ContentType, mediaRef string) (models.Message, error) {
	args := m.Called(ctx, roomID, sender, content, contentType, mediaRef)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListRoomMessages(ctx context.Context, roomID int, page int, pageSize int) ([]models.Message, error) {
	args := m.Called(ctx, roomID, page, pageSize)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) CountRoomMessages(ctx context.Context, roomID int) (int, error) {
	args := m.Called(ctx, roomID)
	return args.Int(0), args.Error(1)
}

func (m *MessageRepositoryMock) ListReadReceipts(ctx context.Context, messageIDs []int) ([]models.ReadReceipt, error) {
	args := m.Called(ctx, messageIDs)
	var receipts []models.ReadReceipt
	if val := args.Get(0); val != nil {
		receipts = val.([]models.ReadReceipt)
	}
	return receipts, args.Error(1)
}

func (m *MessageRepositoryMock) MarkRoomRead(ctx context.Context, roomID int, readerID int, at time.Time) (int, error) {
	args := m.Called(ctx, roomID, readerID, at)
	return args.Int(0), args.Error(1)
}

func (m *MessageRepositoryMock) UnreadCount(ctx context.Context, roomID int, userID int) (int, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Int(0), args.Error(1)
}

type DirectoryMock struct {
	mock.Mock
}

func (m *DirectoryMock) GetPrincipal(ctx context.Context, userID int) (models.Principal, error) {
	args := m.Called(ctx, userID)
	var p models.Principal
	if val := args.Get(0); val != nil {
		p = val.(models.Principal)
	}
	return p, args.Error(1)
}

func (m *DirectoryMock) BulkPrincipals(ctx context.Context, userIDs []int) (map[int]models.Principal, error) {
	args := m.Called(ctx, userIDs)
	var principals map[int]models.Principal
	if val := args.Get(0); val != nil {
		principals = val.(map[int]models.Principal)
	}
	return principals, args.Error(1)
}

func (m *DirectoryMock) SearchPrincipals(ctx context.Context, query string, excludeID int, limit int) ([]models.Principal, error) {
	args := m.Called(ctx, query, excludeID, limit)
	var principals []models.Principal
	if val := args.Get(0); val != nil {
		principals = val.([]models.Principal)
	}
	return principals, args.Error(1)
}

func (m *DirectoryMock) RecordLastSeen(ctx context.Context, userID int, at time.Time) error {
	args := m.Called(ctx, userID, at)
	return args.Error(0)
}

type BroadcasterMock struct {
	mock.Mock
}

func (m *BroadcasterMock) BroadcastNewMessage(room models.Room, msg models.MessageView, summary models.RoomSummary) {
	m.Called(room, msg, summary)
}

func (m *BroadcasterMock) BroadcastRead(roomID int, ev models.ReadEvent) {
	m.Called(roomID, ev)
}

type PresenceMock struct {
	mock.Mock
}

func (m *PresenceMock) IsOnline(userID int) bool {
	args := m.Called(userID)
	return args.Bool(0)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ repositories.RoomRepository = (*RoomRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.Directory = (*DirectoryMock)(nil)
