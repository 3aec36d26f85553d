package client

import (
	"context"

	"github.com/brodyxchen/giop/models"
	"github.com/brodyxchen/giop/protocols"
)

// Inbound serves messages a peer initiates on a connection this side
// dialed: callbacks over a bidirectional connection.
type Inbound interface {
	ServeMessage(ctx context.Context, sess models.Session, h protocols.Header, msg []byte) error
}
