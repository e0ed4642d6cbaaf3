package models

import "time"

// PrincipalKind discriminates the two account types that can chat.
type PrincipalKind string

const (
	TravelerKind PrincipalKind = "traveler"
	HostKind     PrincipalKind = "host"
)

// Valid reports whether the kind is one of the known account types.
func (k PrincipalKind) Valid() bool {
	return k == TravelerKind || k == HostKind
}

// Principal is the authenticated identity behind a connection. It is
// resolved from the user directory and never mutated by this service,
// except for the last-seen write-back on disconnect.
type Principal struct {
	ID          int           `db:"id" json:"id"`
	Kind        PrincipalKind `db:"kind" json:"kind"`
	DisplayName string        `db:"display_name" json:"display_name"`
	AvatarRef   string        `db:"avatar_ref" json:"avatar_ref,omitempty"`
	LastSeenAt  time.Time     `db:"last_seen_at" json:"last_seen_at"`
}

// ParticipantProfile is the denormalized directory view attached to
// rooms and messages. Computed on read, never cached authoritatively.
type ParticipantProfile struct {
	ID          int           `json:"id"`
	Kind        PrincipalKind `json:"kind"`
	DisplayName string        `json:"display_name"`
	AvatarRef   string        `json:"avatar_ref,omitempty"`
	Online      bool          `json:"online"`
	LastSeenAt  time.Time     `json:"last_seen_at"`
}
