package models

import (
	"context"

	"github.com/brodyxchen/giop/codeset"
	"github.com/brodyxchen/giop/protocols"
)

// Target is the part of an object reference a call needs: where to
// connect, which object to address and what the profile advertises.
type Target struct {
	Addr       Addr
	ObjectKey  []byte
	Version    protocols.Version
	Components protocols.TaggedComponents
}

// CodeSetComponent returns the code set component of the profile, or nil
// if the profile carries none.
func (t *Target) CodeSetComponent() (*codeset.Component, error) {
	tc, ok := t.Components.Get(protocols.TagCodeSets)
	if !ok {
		return nil, nil
	}
	c, err := protocols.ParseCodeSetComponent(tc)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Request is an outgoing call.
type Request struct {
	Ctx       context.Context
	Target    *Target
	Operation string
	Args      []interface{}
	Mapping   ArgumentMapping
	// Oneway requests do not wait for a reply.
	Oneway          bool
	ServiceContexts protocols.ServiceContextList
}

func (r *Request) Context() context.Context {
	if r.Ctx != nil {
		return r.Ctx
	}
	return context.Background()
}

// Response is the outcome of a call that completed normally.
type Response struct {
	Req       *Request
	ConnName  string
	RequestID uint32

	Result          interface{}
	Out             []interface{}
	ServiceContexts protocols.ServiceContextList
}

// SendRequest asks a connection's write loop to write messages.
type SendRequest struct {
	Ctx   context.Context
	Msgs  [][]byte
	Reply chan error
}

// NotifyReceive waits for the reply to one request id.
type NotifyReceive struct {
	RequestID uint32
	Reply     chan *ReceiveResponse
}

// ReceiveResponse is a complete reply message or the error that ended
// the wait for it.
type ReceiveResponse struct {
	Header protocols.Header
	Msg    []byte
	Err    error
}
