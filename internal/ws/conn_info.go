package ws

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// ConnInfo is the per-connection identity captured once at handshake,
// carried for lifecycle events and trace correlation.
type ConnInfo struct {
	ConnID      string
	UserID      int
	DeviceID    string
	IP          string
	TraceID     string
	ConnectedAt time.Time
}

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "conn-unknown"
	}
	return hex.EncodeToString(buf)
}
