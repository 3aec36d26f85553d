package protocols

import (
	"math"
	"sync"

	"github.com/brodyxchen/giop/corba"
)

const (
	requestIDSeed     uint32 = 5
	requestIDEvenSeed uint32 = 6
)

// RequestIDGenerator hands out request ids for one connection. Parity
// mode uses only even or only odd ids, so two generators on the two ends
// of a bidirectional connection never collide.
type RequestIDGenerator struct {
	mu        sync.Mutex
	next      uint32
	step      uint32
	exhausted bool
}

// NewRequestIDGenerator returns a generator starting at 5 with step 1.
func NewRequestIDGenerator() *RequestIDGenerator {
	return &RequestIDGenerator{next: requestIDSeed, step: 1}
}

// NewParityRequestIDGenerator returns a generator with step 2 producing
// even (from 6) or odd (from 5) ids.
func NewParityRequestIDGenerator(even bool) *RequestIDGenerator {
	g := &RequestIDGenerator{next: requestIDSeed, step: 2}
	if even {
		g.next = requestIDEvenSeed
	}
	return g
}

// Step returns the increment between two generated ids.
func (g *RequestIDGenerator) Step() uint32 {
	return g.step
}

// Generate returns the next id. Once the 32 bit space is used up every
// call fails; the connection must be replaced.
func (g *RequestIDGenerator) Generate() (uint32, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.exhausted {
		return 0, corba.ErrRequestIDOverflow
	}
	id := g.next
	if id > math.MaxUint32-g.step {
		g.exhausted = true
	} else {
		g.next += g.step
	}
	return id, nil
}
