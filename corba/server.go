package corba

import "github.com/juju/errors"

var (
	ErrExceedBody    = errors.New("exceed body size")
	ErrInvalidHeader = errors.New("invalid header")

	ErrNoKeepAlive    = errors.New("no keep alive")
	ErrPeekWaitingErr = errors.New("peek waiting data err")
	ErrServerClosed   = errors.New("server closed")

	// Protocol violations are fatal to the connection they occur on.
	ErrIllegalFragment       = errors.New("illegal fragment")
	ErrFragmentNotAllowed    = errors.New("fragmentation not allowed for GIOP 1.0")
	ErrUnexpectedReply       = errors.New("reply for unknown request id")
	ErrUnexpectedMessageType = errors.New("unexpected message type")
	ErrRequestIDOverflow     = errors.New("request id space exhausted")
)

// Minor codes raised by framing, marshalling and dispatch.
const (
	MinorBadMagic             uint32 = 19
	MinorBadVersion           uint32 = 20
	MinorBadMessageType       uint32 = 15
	MinorObjectNotExist       uint32 = 1
	MinorUnknownServantError  uint32 = 300
	MinorUnknownTargetAddress uint32 = 650
	MinorWCharSetUndefined    uint32 = 987
	MinorCharSetUndefined     uint32 = 988
	MinorReadPastEnd          uint32 = 1207
	MinorBadLength            uint32 = 1208
	MinorBadBoolean           uint32 = 10030
	MinorCharConversion       uint32 = 10001
	MinorCharSetIncompatible  uint32 = 9501
	MinorWCharSetIncompatible uint32 = 9502
	MinorCodeSetOverride      uint32 = 690
	MinorRegistrationComplete uint32 = 700
	MinorRegisterAfterClose   uint32 = 701
	MinorNeedsAddressingMode  uint32 = 651
)
