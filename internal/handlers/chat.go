package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/chat"
	"messaging-service/internal/middleware"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

// ChatHandler exposes the REST companion surface: room management,
// paginated history and user search. Live traffic goes over the
// websocket; both drive the same chat service.
type ChatHandler struct {
	service *chat.Service
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(service *chat.Service) *ChatHandler {
	return &ChatHandler{service: service}
}

// ListRooms returns the caller's rooms with unread counts, resolved
// participant profiles and last-message previews.
func (h *ChatHandler) ListRooms(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	rooms, err := h.service.ListRooms(c.Request.Context(), principal)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load rooms"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// StartRoom creates or returns the direct room with another user.
func (h *ChatHandler) StartRoom(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req struct {
		ParticipantID int `json:"participant_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ParticipantID == principal.ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot start a room with yourself"})
		return
	}

	summary, err := h.service.GetOrCreateRoom(c.Request.Context(), principal, req.ParticipantID)
	if err != nil {
		if errors.Is(err, repositories.ErrPrincipalNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "participant not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create room"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": summary})
}

// GetMessages returns one page of a room's history, oldest first. As a
// side effect the room is marked read for the caller.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	principal, roomID, ok := principalAndRoomID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	messages, total, err := h.service.History(c.Request.Context(), principal, roomID, page, pageSize)
	if err != nil {
		abortWithChatError(c, err, "failed to load messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"page":     page,
		"total":    total,
	})
}

// PostMessage sends a message through the pipeline over REST.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	principal, roomID, ok := principalAndRoomID(c)
	if !ok {
		return
	}

	var req struct {
		Content     string             `json:"content"`
		ContentType models.ContentType `json:"content_type"`
		MediaRef    string             `json:"media_ref"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.service.Send(c.Request.Context(), principal, roomID, req.Content, req.ContentType, req.MediaRef)
	if err != nil {
		abortWithChatError(c, err, "failed to store message")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": view})
}

// MarkRead marks the whole room read for the caller.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	principal, roomID, ok := principalAndRoomID(c)
	if !ok {
		return
	}

	ev, err := h.service.MarkRead(c.Request.Context(), roomID, principal)
	if err != nil {
		abortWithChatError(c, err, "failed to mark room read")
		return
	}
	c.JSON(http.StatusOK, gin.H{"read": ev})
}

// DeleteRoom removes a room and all of its messages.
func (h *ChatHandler) DeleteRoom(c *gin.Context) {
	principal, roomID, ok := principalAndRoomID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteRoom(c.Request.Context(), principal, roomID); err != nil {
		abortWithChatError(c, err, "could not delete room")
		return
	}
	c.Status(http.StatusNoContent)
}

// SearchUsers finds users to start a conversation with.
func (h *ChatHandler) SearchUsers(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	users, err := h.service.SearchUsers(c.Request.Context(), principal, c.Query("query"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "count": len(users)})
}

func principalAndRoomID(c *gin.Context) (models.Principal, int, bool) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return models.Principal{}, 0, false
	}
	roomID, err := strconv.Atoi(c.Param("room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return models.Principal{}, 0, false
	}
	return principal, roomID, true
}

func abortWithChatError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, chat.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "not a room participant"})
	case errors.Is(err, repositories.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
	case errors.Is(err, chat.ErrEmptyContent),
		errors.Is(err, chat.ErrInvalidContentType),
		errors.Is(err, chat.ErrInvalidRoomID):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
