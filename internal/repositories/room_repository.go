package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messaging-service/internal/models"
)

var ErrRoomNotFound = errors.New("room not found")

const roomColumns = `id, user1_id, user2_id, is_group, last_message_id, created_at, updated_at`

// RoomRepository abstracts room persistence.
type RoomRepository interface {
	GetOrCreateRoom(ctx context.Context, userID int, peerID int) (models.Room, error)
	GetRoom(ctx context.Context, roomID int) (models.Room, error)
	IsParticipant(ctx context.Context, roomID int, userID int) (bool, error)
	ListRoomsForUser(ctx context.Context, userID int) ([]models.Room, error)
	TouchRoom(ctx context.Context, roomID int, lastMessageID int, at time.Time) error
	DeleteRoom(ctx context.Context, roomID int) error
}

// RoomRepo is a sqlx implementation of RoomRepository.
type RoomRepo struct {
	db *sqlx.DB
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(db *sqlx.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// GetOrCreateRoom returns the direct room for the unordered pair,
// creating it if absent. The pair is stored sorted so the UNIQUE
// constraint enforces at most one room per pair; a unique violation on
// insert means a concurrent first contact won the race, in which case
// the existing row is fetched instead.
func (r *RoomRepo) GetOrCreateRoom(ctx context.Context, userID int, peerID int) (models.Room, error) {
	if userID == peerID {
		return models.Room{}, errors.New("cannot create room with self")
	}
	user1, user2 := userID, peerID
	if user1 > user2 {
		user1, user2 = user2, user1
	}

	var room models.Room
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE user1_id=$1 AND user2_id=$2 AND is_group=FALSE`
	err := r.db.GetContext(ctx, &room, query, user1, user2)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, err
	}

	err = r.db.QueryRowxContext(ctx,
		`INSERT INTO rooms (user1_id, user2_id) VALUES ($1, $2) RETURNING `+roomColumns,
		user1, user2).StructScan(&room)
	if err == nil {
		return room, nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		// Someone else created it first; re-fetch.
		if err := r.db.GetContext(ctx, &room, query, user1, user2); err != nil {
			return models.Room{}, err
		}
		return room, nil
	}
	return models.Room{}, err
}

// GetRoom fetches a room by id.
func (r *RoomRepo) GetRoom(ctx context.Context, roomID int) (models.Room, error) {
	var room models.Room
	err := r.db.GetContext(ctx, &room, `SELECT `+roomColumns+` FROM rooms WHERE id=$1`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, ErrRoomNotFound
	}
	return room, err
}

// IsParticipant checks whether a user belongs to the room.
func (r *RoomRepo) IsParticipant(ctx context.Context, roomID int, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM rooms WHERE id=$1 AND (user1_id=$2 OR user2_id=$2))`, roomID, userID)
	return exists, err
}

// ListRoomsForUser returns the user's rooms, most recently active first.
func (r *RoomRepo) ListRoomsForUser(ctx context.Context, userID int) ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.SelectContext(ctx, &rooms,
		`SELECT `+roomColumns+` FROM rooms WHERE user1_id=$1 OR user2_id=$1 ORDER BY updated_at DESC`, userID)
	return rooms, err
}

// TouchRoom records the latest message and bumps the activity timestamp.
func (r *RoomRepo) TouchRoom(ctx context.Context, roomID int, lastMessageID int, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE rooms SET last_message_id=$2, updated_at=$3 WHERE id=$1`, roomID, lastMessageID, at)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// DeleteRoom removes the room; messages and read receipts go with it
// via the store's cascade.
func (r *RoomRepo) DeleteRoom(ctx context.Context, roomID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id=$1`, roomID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrRoomNotFound
	}
	return nil
}
