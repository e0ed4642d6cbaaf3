package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

var ErrPrincipalNotFound = errors.New("principal not found")

const principalColumns = `id, kind, display_name, avatar_ref, last_seen_at`

// Directory resolves principals from the marketplace's user records.
// Travelers and hosts share one capability surface; the kind column
// carries the distinction. RecordLastSeen is the only write this
// service performs against directory data.
type Directory interface {
	GetPrincipal(ctx context.Context, userID int) (models.Principal, error)
	BulkPrincipals(ctx context.Context, userIDs []int) (map[int]models.Principal, error)
	SearchPrincipals(ctx context.Context, query string, excludeID int, limit int) ([]models.Principal, error)
	RecordLastSeen(ctx context.Context, userID int, at time.Time) error
}

// DirectoryRepo is a sqlx implementation of Directory.
type DirectoryRepo struct {
	db *sqlx.DB
}

// NewDirectoryRepo constructs a DirectoryRepo.
func NewDirectoryRepo(db *sqlx.DB) *DirectoryRepo {
	return &DirectoryRepo{db: db}
}

// GetPrincipal resolves a principal by id.
func (r *DirectoryRepo) GetPrincipal(ctx context.Context, userID int) (models.Principal, error) {
	var p models.Principal
	err := r.db.GetContext(ctx, &p, `SELECT `+principalColumns+` FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Principal{}, ErrPrincipalNotFound
	}
	return p, err
}

// BulkPrincipals resolves several principals in one query. Missing ids
// are simply absent from the result map.
func (r *DirectoryRepo) BulkPrincipals(ctx context.Context, userIDs []int) (map[int]models.Principal, error) {
	result := make(map[int]models.Principal, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}
	query, args, err := sqlx.In(`SELECT `+principalColumns+` FROM users WHERE id IN (?)`, userIDs)
	if err != nil {
		return nil, err
	}
	var principals []models.Principal
	if err := r.db.SelectContext(ctx, &principals, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, p := range principals {
		result[p.ID] = p
	}
	return result, nil
}

// SearchPrincipals finds users by display name, case-insensitively,
// excluding the requester. Used to start new conversations.
func (r *DirectoryRepo) SearchPrincipals(ctx context.Context, query string, excludeID int, limit int) ([]models.Principal, error) {
	var principals []models.Principal
	err := r.db.SelectContext(ctx, &principals,
		`SELECT `+principalColumns+` FROM users
         WHERE id<>$1 AND display_name ILIKE '%' || $2 || '%'
         ORDER BY display_name ASC LIMIT $3`, excludeID, query, limit)
	return principals, err
}

// RecordLastSeen persists the principal's last-seen timestamp. Called
// on the last disconnect only.
func (r *DirectoryRepo) RecordLastSeen(ctx context.Context, userID int, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_seen_at=$2 WHERE id=$1`, userID, at)
	return err
}
