package corba

import "github.com/juju/errors"

var (
	ErrCtxReadDone  = errors.New("context read done")
	ErrCtxWriteDone = errors.New("context write done")
	ErrCtxRoundDone = errors.New("context round trip done")

	ErrConnEarlyClose = errors.New("connection closed before reply")
	ErrReadTimeout    = errors.New("reply read timeout")
	ErrConnIdleReaped = errors.New("connection reaped by idle sweep")
	ErrPoolClosed     = errors.New("connection pool closed")
)

// Minor codes raised on the client path.
const (
	MinorConnectFailed      uint32 = 1
	MinorWriteFailed        uint32 = 2
	MinorReadFailed         uint32 = 3
	MinorConnectionClosed   uint32 = 4
	MinorReplyTimeout       uint32 = 5
	MinorCloseConnection    uint32 = 6
	MinorMessageError       uint32 = 7
	MinorReplyIDMismatch    uint32 = 154
	MinorMaxConnections     uint32 = 579
	MinorMissingEndpoint    uint32 = 1178
	MinorUnknownReplyStatus uint32 = 2401
	MinorNoForwardTarget    uint32 = 2402

	// MinorShutdown is raised as BAD_INV_ORDER once the ORB shut down.
	MinorShutdown uint32 = 4
)
