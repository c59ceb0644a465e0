// Package messaging carries render-boundary messages between the engine and
// connected render surfaces over websockets.
package messaging

import "github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/protocol"

// Connection is one live surface connection as seen by the hub
type Connection interface {
	SessionID() string
	Send(env protocol.Envelope) error
	Close() error
	Done() <-chan struct{}
}
