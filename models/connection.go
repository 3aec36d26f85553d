package models

import (
	"context"
	"sync"

	"github.com/brodyxchen/giop/codeset"
	"github.com/brodyxchen/giop/protocols"
)

// ConnectionDesc is the state GIOP keeps per connection: the code sets
// in use, the request id generator and, on the accepting side, the
// requests currently dispatched.
type ConnectionDesc struct {
	Name             string
	InitiatedLocally bool

	ids *protocols.RequestIDGenerator

	mu         sync.Mutex
	charSet    codeset.CharSet
	wcharSet   codeset.CharSet
	negotiated bool
	inFlight   map[uint32]bool
}

// NewConnectionDesc returns a description using the default code sets.
func NewConnectionDesc(name string, initiatedLocally bool, ids *protocols.RequestIDGenerator) *ConnectionDesc {
	return &ConnectionDesc{
		Name:             name,
		InitiatedLocally: initiatedLocally,
		ids:              ids,
		charSet:          codeset.DefaultCharSet,
		wcharSet:         codeset.DefaultWCharSet,
		inFlight:         make(map[uint32]bool),
	}
}

// GenerateRequestID returns the next request id of the connection.
func (d *ConnectionDesc) GenerateRequestID() (uint32, error) {
	return d.ids.Generate()
}

// CodeSets returns the sets in use and whether they were negotiated.
func (d *ConnectionDesc) CodeSets() (codeset.CharSet, codeset.CharSet, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.charSet, d.wcharSet, d.negotiated
}

// SetCodeSets records the negotiated sets. Only the first call has an
// effect; it reports whether the sets were installed.
func (d *ConnectionDesc) SetCodeSets(charSet, wcharSet codeset.CharSet) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.negotiated {
		return false
	}
	d.charSet = charSet
	d.wcharSet = wcharSet
	d.negotiated = true
	return true
}

// StartRequest marks an incoming request as being dispatched.
func (d *ConnectionDesc) StartRequest(id uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inFlight[id] = false
}

// CancelRequest flags a dispatched request as cancelled. It reports
// false if no such request is in flight.
func (d *ConnectionDesc) CancelRequest(id uint32) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.inFlight[id]; !ok {
		return false
	}
	d.inFlight[id] = true
	return true
}

// FinishRequest forgets a request and reports whether it was cancelled.
func (d *ConnectionDesc) FinishRequest(id uint32) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	cancelled := d.inFlight[id]
	delete(d.inFlight, id)
	return cancelled
}

// Session is a connection messages can be written to, from either end.
type Session interface {
	Desc() *ConnectionDesc
	WriteMessage(ctx context.Context, msgs ...[]byte) error
	Close(err error)
}
