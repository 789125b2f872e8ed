package domain

import "time"

type ClientID string

// Role is computed once from network origin when a realtime connection is
// accepted and never changes for the lifetime of that connection.
type Role string

const (
	RoleHost   Role = "host"
	RoleRemote Role = "remote"
)

// Client is the metadata of one realtime connection.
type Client struct {
	ID            ClientID
	Role          Role
	Authenticated bool
	JoinedAt      time.Time
}

func NewClient(id ClientID, role Role, authenticated bool) *Client {
	return &Client{
		ID:            id,
		Role:          role,
		Authenticated: authenticated,
		JoinedAt:      time.Now(),
	}
}

// IsHost reports whether this connection renders audio.
func (c *Client) IsHost() bool { return c.Role == RoleHost }
