package models

import (
	"context"

	"github.com/brodyxchen/giop/cdr"
	"github.com/brodyxchen/giop/corba"
	"github.com/brodyxchen/giop/protocols"
)

//go:generate go run go.uber.org/mock/mockgen -package mocks -destination mocks/servant_mock.go github.com/brodyxchen/giop/models ArgumentMapping,Servant

// ArgumentMapping converts the typed values of an operation to and from
// CDR. The encoders and decoders carry the negotiated code sets.
type ArgumentMapping interface {
	MarshalArguments(op string, enc *cdr.Encoder, args []interface{}) error
	UnmarshalArguments(op string, dec *cdr.Decoder) ([]interface{}, error)
	MarshalResult(op string, enc *cdr.Encoder, result interface{}, out []interface{}) error
	UnmarshalResult(op string, dec *cdr.Decoder, args []interface{}) (interface{}, []interface{}, error)
	// MarshalUserException writes the members of ex; the repository id
	// has already been written.
	MarshalUserException(op string, enc *cdr.Encoder, ex *corba.UserException) error
	UnmarshalUserException(op string, dec *cdr.Decoder, repoID string) (*corba.UserException, error)
}

// Servant implements the operations of the objects registered under one
// object key. Invoke may return a *corba.UserException,
// *corba.SystemException or *corba.LocationForward; any other error is
// reported to the caller as UNKNOWN.
type Servant interface {
	ArgumentMapping
	Invoke(ctx context.Context, req *ServerRequest) (*ServerReply, error)
}

// ServerRequest is a decoded incoming request.
type ServerRequest struct {
	Conn             *ConnectionDesc
	RequestID        uint32
	ResponseExpected bool
	ObjectKey        []byte
	Operation        string
	Args             []interface{}
	ServiceContexts  protocols.ServiceContextList
}

// ServerReply is what a servant returns for a normal completion.
type ServerReply struct {
	Result          interface{}
	Out             []interface{}
	ServiceContexts protocols.ServiceContextList
}
