// Package fragment reassembles GIOP messages that a peer sent in several
// fragments and splits outgoing messages that exceed a size limit.
package fragment

import (
	"encoding/binary"
	"sync"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/brodyxchen/giop/constant"
	"github.com/brodyxchen/giop/corba"
	"github.com/brodyxchen/giop/protocols"
)

var logger = loggo.GetLogger("giop.fragment")

// GIOP 1.1 fragments carry no request id, so at most one chain per
// connection can be open.
type chainKey struct {
	shared bool
	id     uint32
}

type chain struct {
	header protocols.Header
	buf    []byte
}

// Assembler holds the partially received messages of one connection.
// Fragments of one chain arrive in order on one connection, so the lock
// only guards the chain table.
type Assembler struct {
	maxBody int

	mu      sync.Mutex
	pending map[chainKey]*chain
}

// NewAssembler returns an assembler admitting reassembled bodies up to
// constant.MaxMessageSize.
func NewAssembler() *Assembler {
	return NewLimitedAssembler(constant.MaxMessageSize)
}

// NewLimitedAssembler returns an assembler that rejects a chain once its
// body grows beyond maxBody octets.
func NewLimitedAssembler(maxBody int) *Assembler {
	return &Assembler{maxBody: maxBody, pending: make(map[chainKey]*chain)}
}

// grow appends payload to the chain under key, dropping the chain when
// it would exceed the limit. a.mu is held.
func (a *Assembler) grow(key chainKey, c *chain, payload []byte) error {
	if len(c.buf)-protocols.HeaderSize+len(payload) > a.maxBody {
		delete(a.pending, key)
		return errors.Annotatef(corba.ErrIllegalFragment, "fragmented message exceeds %d bytes", a.maxBody)
	}
	c.buf = append(c.buf, payload...)
	return nil
}

// Len returns the number of open chains.
func (a *Assembler) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Reset drops every open chain, used when the connection closes.
func (a *Assembler) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n := len(a.pending); n > 0 {
		logger.Debugf("dropping %d incomplete fragmented messages", n)
	}
	a.pending = make(map[chainKey]*chain)
}

func bodyOf(h protocols.Header, msg []byte) ([]byte, error) {
	if len(msg) != protocols.HeaderSize+int(h.Length) {
		return nil, errors.Annotatef(corba.ErrIllegalFragment, "message length %d, header says %d", len(msg)-protocols.HeaderSize, h.Length)
	}
	return msg[protocols.HeaderSize:], nil
}

func readRequestID(h protocols.Header, body []byte) (uint32, error) {
	if len(body) < 4 {
		return 0, errors.Annotatef(corba.ErrIllegalFragment, "fragment without request id")
	}
	if h.LittleEndian() {
		return binary.LittleEndian.Uint32(body), nil
	}
	return binary.BigEndian.Uint32(body), nil
}

// keyOf returns the chain key of a message and the number of body bytes
// that belong to the fragment header rather than the payload.
func keyOf(h protocols.Header, body []byte, start bool) (chainKey, int, error) {
	switch {
	case h.Version == protocols.V1_0:
		return chainKey{}, 0, errors.Trace(corba.ErrFragmentNotAllowed)
	case h.Version == protocols.V1_1:
		return chainKey{shared: true}, 0, nil
	}
	id, err := readRequestID(h, body)
	if err != nil {
		return chainKey{}, 0, err
	}
	if start {
		// the id opens the message header and stays in the payload
		return chainKey{id: id}, 0, nil
	}
	return chainKey{id: id}, 4, nil
}

func fragmentable(t protocols.MsgType) bool {
	switch t {
	case protocols.MsgRequest, protocols.MsgReply, protocols.MsgLocateRequest, protocols.MsgLocateReply:
		return true
	}
	return false
}

// StartFragment opens a chain for a message whose header announces more
// fragments.
func (a *Assembler) StartFragment(h protocols.Header, msg []byte) error {
	if !fragmentable(h.Type) {
		return errors.Annotatef(corba.ErrIllegalFragment, "%v can not be fragmented", h.Type)
	}
	body, err := bodyOf(h, msg)
	if err != nil {
		return err
	}
	key, _, err := keyOf(h, body, true)
	if err != nil {
		return err
	}
	if len(body) > a.maxBody {
		return errors.Annotatef(corba.ErrIllegalFragment, "fragmented message exceeds %d bytes", a.maxBody)
	}
	buf := make([]byte, len(msg), 2*len(msg))
	copy(buf, msg)

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.pending[key]; ok {
		logger.Warningf("restarting fragmented message %+v", key)
	}
	a.pending[key] = &chain{header: h, buf: buf}
	return nil
}

// AddFragment appends the payload of a Fragment message that is followed
// by more fragments.
func (a *Assembler) AddFragment(h protocols.Header, msg []byte) error {
	body, err := bodyOf(h, msg)
	if err != nil {
		return err
	}
	key, skip, err := keyOf(h, body, false)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.pending[key]
	if !ok {
		return errors.Annotatef(corba.ErrIllegalFragment, "no message for %+v", key)
	}
	return a.grow(key, c, body[skip:])
}

// FinishFragmentedMessage appends the last fragment and returns the
// complete message. Its header is the header of the first message with
// the fragment flag cleared and the length of the whole body.
func (a *Assembler) FinishFragmentedMessage(h protocols.Header, msg []byte) (protocols.Header, []byte, error) {
	body, err := bodyOf(h, msg)
	if err != nil {
		return protocols.Header{}, nil, err
	}
	key, skip, err := keyOf(h, body, false)
	if err != nil {
		return protocols.Header{}, nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.pending[key]
	if !ok {
		return protocols.Header{}, nil, errors.Annotatef(corba.ErrIllegalFragment, "no message for %+v", key)
	}
	if err := a.grow(key, c, body[skip:]); err != nil {
		return protocols.Header{}, nil, err
	}
	delete(a.pending, key)

	buf := c.buf
	full := c.header
	full.Flags ^= protocols.FlagFragment
	full.Length = uint32(len(buf) - protocols.HeaderSize)
	full.Put(buf)
	return full, buf, nil
}

// Handle routes a framed message. It returns the message to process and
// true once a message is complete; unfragmented messages are returned
// unchanged.
func (a *Assembler) Handle(h protocols.Header, msg []byte) (protocols.Header, []byte, bool, error) {
	if h.Type != protocols.MsgFragment {
		if !h.MoreFragments() {
			return h, msg, true, nil
		}
		return protocols.Header{}, nil, false, a.StartFragment(h, msg)
	}
	if h.MoreFragments() {
		return protocols.Header{}, nil, false, a.AddFragment(h, msg)
	}
	full, buf, err := a.FinishFragmentedMessage(h, msg)
	if err != nil {
		return protocols.Header{}, nil, false, err
	}
	return full, buf, true, nil
}
