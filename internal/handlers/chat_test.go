package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/chat"
	"messaging-service/internal/middleware"
	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

type handlerMocks struct {
	rooms       *mocks.RoomRepositoryMock
	messages    *mocks.MessageRepositoryMock
	directory   *mocks.DirectoryMock
	broadcaster *mocks.BroadcasterMock
	presence    *mocks.PresenceMock
}

var testPrincipal = models.Principal{ID: 1, Kind: models.TravelerKind, DisplayName: "alice"}

func setupRouter() (*gin.Engine, handlerMocks) {
	gin.SetMode(gin.TestMode)

	m := handlerMocks{
		rooms:       new(mocks.RoomRepositoryMock),
		messages:    new(mocks.MessageRepositoryMock),
		directory:   new(mocks.DirectoryMock),
		broadcaster: new(mocks.BroadcasterMock),
		presence:    new(mocks.PresenceMock),
	}
	m.presence.On("IsOnline", mock.Anything).Return(false).Maybe()

	service := chat.NewService(m.rooms, m.messages, m.directory, m.broadcaster, m.presence)
	handler := NewChatHandler(service)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		middleware.SetPrincipal(c, testPrincipal)
		c.Next()
	})
	r.GET("/rooms", handler.ListRooms)
	r.POST("/rooms/start", handler.StartRoom)
	r.GET("/rooms/:room_id/messages", handler.GetMessages)
	r.POST("/rooms/:room_id/messages", handler.PostMessage)
	r.POST("/rooms/:room_id/read", handler.MarkRead)
	r.DELETE("/rooms/:room_id", handler.DeleteRoom)
	r.GET("/users/search", handler.SearchUsers)
	return r, m
}

func TestListRoomsSuccess(t *testing.T) {
	router, m := setupRouter()

	rooms := []models.Room{{ID: 3, User1ID: 1, User2ID: 2}}
	m.rooms.On("ListRoomsForUser", mock.Anything, 1).Return(rooms, nil).Once()
	m.directory.On("BulkPrincipals", mock.Anything, []int{1, 2}).Return(map[int]models.Principal{
		1: testPrincipal,
		2: {ID: 2, Kind: models.HostKind, DisplayName: "bob"},
	}, nil).Once()
	m.messages.On("UnreadCount", mock.Anything, 3, 1).Return(2, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Rooms []models.RoomSummary `json:"rooms"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Rooms, 1)
	assert.Equal(t, 2, resp.Rooms[0].UnreadCount)
	assert.Len(t, resp.Rooms[0].Participants, 2)

	m.rooms.AssertExpectations(t)
	m.directory.AssertExpectations(t)
	m.messages.AssertExpectations(t)
}

func TestListRoomsRepoError(t *testing.T) {
	router, m := setupRouter()
	m.rooms.On("ListRoomsForUser", mock.Anything, 1).Return(([]models.Room)(nil), assert.AnError).Once()

	req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	m.rooms.AssertExpectations(t)
}

func TestStartRoomSuccess(t *testing.T) {
	router, m := setupRouter()

	peer := models.Principal{ID: 2, Kind: models.HostKind, DisplayName: "bob"}
	m.directory.On("GetPrincipal", mock.Anything, 2).Return(peer, nil).Once()
	m.rooms.On("GetOrCreateRoom", mock.Anything, 1, 2).Return(models.Room{ID: 10, User1ID: 1, User2ID: 2}, nil).Once()
	m.messages.On("UnreadCount", mock.Anything, 10, 1).Return(0, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/rooms/start", bytes.NewBufferString(`{"participant_id":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	m.directory.AssertExpectations(t)
	m.rooms.AssertExpectations(t)
}

func TestStartRoomPeerNotFound(t *testing.T) {
	router, m := setupRouter()
	m.directory.On("GetPrincipal", mock.Anything, 9).
		Return(models.Principal{}, repositories.ErrPrincipalNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/rooms/start", bytes.NewBufferString(`{"participant_id":9}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	m.rooms.AssertNotCalled(t, "GetOrCreateRoom", mock.Anything, mock.Anything, mock.Anything)
}

func TestStartRoomWithSelf(t *testing.T) {
	router, _ := setupRouter()

	req := httptest.NewRequest(http.MethodPost, "/rooms/start", bytes.NewBufferString(`{"participant_id":1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMessagesInvalidID(t *testing.T) {
	router, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/rooms/abc/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMessagesMarksRead(t *testing.T) {
	router, m := setupRouter()
	room := models.Room{ID: 5, User1ID: 1, User2ID: 2}

	m.rooms.On("GetRoom", mock.Anything, 5).Return(room, nil).Once()
	m.messages.On("ListRoomMessages", mock.Anything, 5, 1, 50).Return([]models.Message{
		{ID: 2, RoomID: 5, SenderID: 2, Content: "later"},
		{ID: 1, RoomID: 5, SenderID: 2, Content: "earlier"},
	}, nil).Once()
	m.messages.On("CountRoomMessages", mock.Anything, 5).Return(2, nil).Once()
	m.directory.On("BulkPrincipals", mock.Anything, []int{2}).
		Return(map[int]models.Principal{2: {ID: 2, Kind: models.HostKind, DisplayName: "bob"}}, nil).Once()
	m.messages.On("ListReadReceipts", mock.Anything, []int{1, 2}).Return(nil, nil).Once()
	m.messages.On("MarkRoomRead", mock.Anything, 5, 1, mock.Anything).Return(2, nil).Once()
	m.broadcaster.On("BroadcastRead", 5, mock.Anything).Return().Once()

	req := httptest.NewRequest(http.MethodGet, "/rooms/5/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Messages []models.MessageView `json:"messages"`
		Total    int                  `json:"total"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "earlier", resp.Messages[0].Content)
	assert.Equal(t, "later", resp.Messages[1].Content)
	assert.Equal(t, 2, resp.Total)

	m.messages.AssertExpectations(t)
	m.broadcaster.AssertExpectations(t)
}

func TestPostMessageForbidden(t *testing.T) {
	router, m := setupRouter()
	m.rooms.On("GetRoom", mock.Anything, 5).Return(models.Room{ID: 5, User1ID: 2, User2ID: 3}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/rooms/5/messages", bytes.NewBufferString(`{"content":"x"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	m.messages.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.broadcaster.AssertNotCalled(t, "BroadcastNewMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestPostMessageEmptyContent(t *testing.T) {
	router, _ := setupRouter()

	req := httptest.NewRequest(http.MethodPost, "/rooms/5/messages", bytes.NewBufferString(`{"content":"   "}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteRoomNotParticipant(t *testing.T) {
	router, m := setupRouter()
	m.rooms.On("GetRoom", mock.Anything, 8).Return(models.Room{ID: 8, User1ID: 5, User2ID: 6}, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/rooms/8", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	m.rooms.AssertNotCalled(t, "DeleteRoom", mock.Anything, mock.Anything)
}

func TestDeleteRoomSuccess(t *testing.T) {
	router, m := setupRouter()
	m.rooms.On("GetRoom", mock.Anything, 8).Return(models.Room{ID: 8, User1ID: 1, User2ID: 6}, nil).Once()
	m.rooms.On("DeleteRoom", mock.Anything, 8).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/rooms/8", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	m.rooms.AssertExpectations(t)
}

func TestSearchUsers(t *testing.T) {
	router, m := setupRouter()
	m.directory.On("SearchPrincipals", mock.Anything, "bob", 1, 20).
		Return([]models.Principal{{ID: 2, Kind: models.HostKind, DisplayName: "bob"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/users/search?query=bob", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Users []models.ParticipantProfile `json:"users"`
		Count int                         `json:"count"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "bob", resp.Users[0].DisplayName)
	m.directory.AssertExpectations(t)
}
