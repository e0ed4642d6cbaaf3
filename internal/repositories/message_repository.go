package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

const messageColumns = `id, room_id, sender_id, sender_kind, content, content_type, media_ref, deleted, created_at`

// MessageRepository defines interactions for room messages and their
// per-participant read state.
type MessageRepository interface {
	CreateMessage(ctx context.Context, roomID int, sender models.Principal, content string, contentType models.ContentType, mediaRef string) (models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	ListRoomMessages(ctx context.Context, roomID int, page int, pageSize int) ([]models.Message, error)
	CountRoomMessages(ctx context.Context, roomID int) (int, error)
	ListReadReceipts(ctx context.Context, messageIDs []int) ([]models.ReadReceipt, error)
	MarkRoomRead(ctx context.Context, roomID int, readerID int, at time.Time) (int, error)
	UnreadCount(ctx context.Context, roomID int, userID int) (int, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a message. The store assigns created_at, which
// is the authoritative order of messages within a room.
func (r *MessageRepo) CreateMessage(ctx context.Context, roomID int, sender models.Principal, content string, contentType models.ContentType, mediaRef string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (room_id, sender_id, sender_kind, content, content_type, media_ref)
         VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+messageColumns,
		roomID, sender.ID, sender.Kind, content, contentType, mediaRef).StructScan(&msg)
	return msg, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// ListRoomMessages returns one page of a room's messages. The store is
// queried newest-first so deep pages stay cheap; callers reverse the
// page for chronological presentation.
func (r *MessageRepo) ListRoomMessages(ctx context.Context, roomID int, page int, pageSize int) ([]models.Message, error) {
	offset := (page - 1) * pageSize
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages
         WHERE room_id=$1 AND deleted=FALSE
         ORDER BY created_at DESC, id DESC
         LIMIT $2 OFFSET $3`, roomID, pageSize, offset)
	return msgs, err
}

// CountRoomMessages counts a room's visible messages.
func (r *MessageRepo) CountRoomMessages(ctx context.Context, roomID int) (int, error) {
	var total int
	err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM messages WHERE room_id=$1 AND deleted=FALSE`, roomID)
	return total, err
}

// ListReadReceipts returns the receipts for the given messages.
func (r *MessageRepo) ListReadReceipts(ctx context.Context, messageIDs []int) ([]models.ReadReceipt, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(
		`SELECT message_id, user_id, read_at FROM message_reads WHERE message_id IN (?)`, messageIDs)
	if err != nil {
		return nil, err
	}
	var receipts []models.ReadReceipt
	err = r.db.SelectContext(ctx, &receipts, r.db.Rebind(query), args...)
	return receipts, err
}

// MarkRoomRead inserts a read receipt for every message in the room not
// sent by the reader and not already read. ON CONFLICT DO NOTHING makes
// the operation idempotent and keeps existing read timestamps intact.
// Returns the number of newly read messages.
func (r *MessageRepo) MarkRoomRead(ctx context.Context, roomID int, readerID int, at time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO message_reads (message_id, user_id, read_at)
         SELECT m.id, $2, $3 FROM messages m
         WHERE m.room_id=$1 AND m.sender_id<>$2
         ON CONFLICT (message_id, user_id) DO NOTHING`, roomID, readerID, at)
	if err != nil {
		return 0, err
	}
	count, err := res.RowsAffected()
	return int(count), err
}

// UnreadCount counts messages in the room not sent by and not yet read
// by the user. Computed on demand; never maintained as a counter.
func (r *MessageRepo) UnreadCount(ctx context.Context, roomID int, userID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM messages m
         WHERE m.room_id=$1 AND m.deleted=FALSE AND m.sender_id<>$2
         AND NOT EXISTS (SELECT 1 FROM message_reads mr WHERE mr.message_id=m.id AND mr.user_id=$2)`,
		roomID, userID)
	return count, err
}
