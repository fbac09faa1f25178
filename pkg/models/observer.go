package models

import "time"

// Observer is a remote client watching the map and its animations
type Observer struct {
	// From JWT claims
	ID          string `json:"id"`          // Converted from int64 user_id
	Username    string `json:"username"`    // JWT claim
	Permissions int64  `json:"permissions"` // JWT claim: bitwise permission flags
	Activated   int64  `json:"activated"`   // JWT claim: activation timestamp or ban status

	// Connection state
	Connected   bool      `json:"connected"`
	ConnectedAt time.Time `json:"connected_at"`
	LastSeen    time.Time `json:"last_seen"`
}

// Anonymous returns an observer for servers running without authentication
func Anonymous(id string) *Observer {
	return &Observer{ID: id, Username: "anonymous", Activated: 1}
}

// IsActive checks if the observer account is activated and not banned
func (o *Observer) IsActive() bool {
	// activated > 0 means activated
	// activated == 0 means not activated
	// activated == -1 means banned
	return o.Activated > 0
}

// IsBanned checks if the observer is banned
func (o *Observer) IsBanned() bool {
	return o.Activated == -1
}
