package core

import "soundcast/internal/domain"

// Frame is one marshaled event payload as delivered on the wire.
type Frame []byte

type SessionID string

// ClientConn abstracts the transport endpoint of one connection.
// Owned by the adapter; the adapter must Close() it.
type ClientConn interface {
	// TrySend enqueues a frame without blocking. An error means the
	// connection cannot accept the frame right now (backpressure or closed).
	TrySend(Frame) error
	Close()
}

// ClientSession binds domain.Client and its transport endpoint.
// This is what the registry stores and fans out to.
type ClientSession interface {
	Meta() *domain.Client
	Conn() ClientConn
}

// PublishResult reports delivery stats/backpressure to the coordinator.
type PublishResult struct {
	SentTo  int
	Dropped []SessionID
}

type clientSession struct {
	meta *domain.Client
	conn ClientConn
}

func NewClientSession(meta *domain.Client, conn ClientConn) ClientSession {
	return &clientSession{meta: meta, conn: conn}
}

func (s *clientSession) Meta() *domain.Client { return s.meta }
func (s *clientSession) Conn() ClientConn     { return s.conn }
