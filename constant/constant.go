package constant

import "time"

const (
	MaxReadBufferSize  = 4 << 10
	MaxWriteBufferSize = 4 << 10

	MaxConnPoolCountPerKey = 10

	// IdleSweepPeriod is how often pooled connections are checked; one
	// not used during a whole period is closed.
	IdleSweepPeriod = 5 * time.Second

	// MaxMessageSize bounds the body a peer may announce in a header.
	MaxMessageSize = 64 << 20

	// FragmentSize is the largest message written without fragmenting.
	FragmentSize = 64 << 10

	DefaultRequestTimeout = 30 * time.Second
)
