package client

import (
	"bufio"
	"context"
	"net"
	"sync"
	"time"

	"github.com/juju/errors"

	"github.com/brodyxchen/giop/corba"
	"github.com/brodyxchen/giop/fragment"
	"github.com/brodyxchen/giop/models"
	"github.com/brodyxchen/giop/protocols"
	"github.com/brodyxchen/giop/socket"
)

// messageErrorTimeout bounds the best effort MessageError written before
// a connection is dropped for a protocol violation.
const messageErrorTimeout = time.Second

// PersistConn is a client side GIOP connection. Requests are multiplexed
// by request id: a read loop hands every reply to the caller waiting for
// its id. A bidirectional PersistConn has no socket of its own; it writes
// through a connection accepted by the server and receives its replies
// from that connection's read loop.
type PersistConn struct {
	Name string

	key       connectKey
	transport *Transport
	desc      *models.ConnectionDesc
	assembler *fragment.Assembler

	conn      net.Conn
	session   models.Session
	bufReader *bufio.Reader // from conn
	bufWriter *bufio.Writer // to conn

	sendCh chan *models.SendRequest

	pendingMutex sync.Mutex
	// a nil entry marks a request its caller gave up on
	pending map[uint32]*models.NotifyReceive

	// guarded by ConnPool.mutex
	accessed bool
	counted  bool

	bidir bool

	closedMutex sync.RWMutex // guards closed
	closed      error
	closedCh    chan struct{}
}

// NewBidirConn wraps a connection accepted from a peer so that calls to
// the peer's listen points can reuse it.
func NewBidirConn(tp *Transport, sess models.Session) *PersistConn {
	return &PersistConn{
		Name:      sess.Desc().Name + "-bidir",
		transport: tp,
		desc:      sess.Desc(),
		session:   sess,
		pending:   make(map[uint32]*models.NotifyReceive),
		bidir:     true,
		closedCh:  make(chan struct{}),
	}
}

// Desc is part of the models.Session interface.
func (pc *PersistConn) Desc() *models.ConnectionDesc {
	return pc.desc
}

func (pc *PersistConn) Read(p []byte) (n int, err error) {
	return pc.conn.Read(p)
}

func (pc *PersistConn) Write(p []byte) (n int, err error) {
	return pc.conn.Write(p)
}

// WriteMessage is part of the models.Session interface. Messages of one
// call are written together, so fragments of different calls never
// interleave.
func (pc *PersistConn) WriteMessage(ctx context.Context, msgs ...[]byte) error {
	if pc.session != nil {
		if pc.isClosed() {
			return pc.closedErr()
		}
		return pc.session.WriteMessage(ctx, msgs...)
	}
	reply := make(chan error, 1)
	select {
	case pc.sendCh <- &models.SendRequest{Ctx: ctx, Msgs: msgs, Reply: reply}:
	case <-pc.closedCh:
		return pc.closedErr()
	case <-ctx.Done():
		return corba.ErrCtxWriteDone
	}
	select {
	case err := <-reply:
		return err
	case <-pc.closedCh:
		return pc.closedErr()
	case <-ctx.Done():
		return corba.ErrCtxWriteDone
	}
}

// Close is part of the models.Session interface.
func (pc *PersistConn) Close(err error) {
	pc.close(err)
}

// roundTrip writes the messages of request id and waits for the reply.
// It neither retries nor touches the pool. written, if not nil, is called
// once the request is on the wire.
func (pc *PersistConn) roundTrip(ctx context.Context, id uint32, version protocols.Version, msgs [][]byte,
	timeout time.Duration, written func()) (*models.ReceiveResponse, error) {
	notify, err := pc.expect(id)
	if err != nil {
		return nil, err
	}
	if err := pc.WriteMessage(ctx, msgs...); err != nil {
		pc.forget(id)
		return nil, err
	}
	if written != nil {
		written()
	}

	var receiveTimer <-chan time.Time
	if timeout > 0 {
		timer := pc.transport.clock.NewTimer(timeout)
		defer timer.Stop()
		receiveTimer = timer.Chan()
	}

	select {
	case rsp := <-notify.Reply:
		return rsp, rsp.Err
	case <-pc.closedCh:
		select {
		case rsp := <-notify.Reply:
			return rsp, rsp.Err
		default:
		}
		return nil, pc.closedErr()
	case <-receiveTimer:
		pc.abandon(id, version)
		return nil, corba.ErrReadTimeout
	case <-ctx.Done():
		pc.abandon(id, version)
		return nil, errors.Annotatef(corba.ErrCtxRoundDone, "%v", ctx.Err())
	}
}

func (pc *PersistConn) expect(id uint32) (*models.NotifyReceive, error) {
	notify := &models.NotifyReceive{RequestID: id, Reply: make(chan *models.ReceiveResponse, 1)}
	pc.pendingMutex.Lock()
	defer pc.pendingMutex.Unlock()
	if _, ok := pc.pending[id]; ok {
		return nil, errors.Errorf("request id %d already in use on %s", id, pc.Name)
	}
	pc.pending[id] = notify
	return notify, nil
}

func (pc *PersistConn) forget(id uint32) {
	pc.pendingMutex.Lock()
	defer pc.pendingMutex.Unlock()
	delete(pc.pending, id)
}

// abandon keeps the id reserved so a late reply is dropped quietly and
// tells the peer the reply is no longer needed.
func (pc *PersistConn) abandon(id uint32, version protocols.Version) {
	pc.pendingMutex.Lock()
	if _, ok := pc.pending[id]; !ok {
		pc.pendingMutex.Unlock()
		return
	}
	pc.pending[id] = nil
	pc.pendingMutex.Unlock()

	go func() {
		m := protocols.NewMessage(version, protocols.MsgCancelRequest, false)
		(&protocols.CancelRequestHeader{RequestID: id}).Write(m.Encoder)
		ctx, cancel := context.WithTimeout(context.Background(), messageErrorTimeout)
		defer cancel()
		if err := pc.WriteMessage(ctx, m.Finish()); err != nil {
			logger.Debugf("%s cancel of request %d not sent: %v", pc.Name, id, err)
		}
	}()
}

// Deliver hands a complete Reply or LocateReply to the caller waiting for
// it. A reply nobody waits for is a protocol violation.
func (pc *PersistConn) Deliver(h protocols.Header, msg []byte) error {
	id, err := replyRequestID(h, msg)
	if err != nil {
		return errors.Trace(err)
	}
	pc.pendingMutex.Lock()
	notify, ok := pc.pending[id]
	if ok {
		delete(pc.pending, id)
	}
	pc.pendingMutex.Unlock()

	if !ok {
		return errors.Annotatef(corba.ErrUnexpectedReply, "request id %d on %s", id, pc.Name)
	}
	if notify == nil {
		logger.Debugf("%s dropping reply to abandoned request %d", pc.Name, id)
		return nil
	}
	notify.Reply <- &models.ReceiveResponse{Header: h, Msg: msg}
	return nil
}

func replyRequestID(h protocols.Header, msg []byte) (uint32, error) {
	dec, err := protocols.NewMessageDecoder(h, msg)
	if err != nil {
		return 0, err
	}
	switch h.Type {
	case protocols.MsgReply:
		hdr, err := protocols.ReadReplyHeader(dec)
		if err != nil {
			return 0, err
		}
		return hdr.RequestID, nil
	case protocols.MsgLocateReply:
		hdr, err := protocols.ReadLocateReplyHeader(dec)
		if err != nil {
			return 0, err
		}
		return hdr.RequestID, nil
	}
	return 0, errors.Annotatef(corba.ErrUnexpectedMessageType, "%v", h.Type)
}

func (pc *PersistConn) writeLoop() {
	for {
		select {
		case <-pc.closedCh:
			return
		case writeReq := <-pc.sendCh:
			err := socket.WriteMessage(writeReq.Ctx, pc.bufWriter, writeReq.Msgs...)
			if err != nil {
				writeReq.Reply <- err
				if !errors.Is(err, corba.ErrCtxWriteDone) {
					pc.close(corba.NewCommFailure(corba.MinorWriteFailed, corba.CompletedMaybe, err))
					return
				}
				continue
			}
			writeReq.Reply <- nil
		}
	}
}

func (pc *PersistConn) readLoop() {
	var closeErr error = corba.ErrConnEarlyClose
	defer func() {
		pc.close(closeErr)
	}()

	ctx := context.Background()
	for !pc.isClosed() {
		header, msg, err := socket.ReadMessage(ctx, pc.Name, pc.bufReader)
		if err != nil {
			closeErr = corba.NewCommFailure(corba.MinorReadFailed, corba.CompletedMaybe, err)
			return
		}
		header, msg, complete, err := pc.assembler.Handle(header, msg)
		if err != nil {
			pc.sendMessageError(header.Version)
			closeErr = corba.NewCommFailure(corba.MinorMessageError, corba.CompletedMaybe, err)
			return
		}
		if !complete {
			continue
		}
		if err := pc.handle(ctx, header, msg); err != nil {
			closeErr = err
			return
		}
	}
}

// handle processes one complete message read on a dialed connection. A
// returned error closes the connection.
func (pc *PersistConn) handle(ctx context.Context, h protocols.Header, msg []byte) error {
	switch h.Type {
	case protocols.MsgReply, protocols.MsgLocateReply:
		if err := pc.Deliver(h, msg); err != nil {
			logger.Errorf("%s: %v", pc.Name, err)
			pc.sendMessageError(h.Version)
			return corba.NewCommFailure(corba.MinorReplyIDMismatch, corba.CompletedMaybe, err)
		}
		return nil
	case protocols.MsgCloseConnection:
		logger.Debugf("%s closed by peer", pc.Name)
		return corba.NewTransient(corba.MinorCloseConnection, corba.CompletedNo, errors.New("peer closed connection"))
	case protocols.MsgMessageError:
		return corba.NewCommFailure(corba.MinorMessageError, corba.CompletedMaybe, errors.New("peer reported a message error"))
	case protocols.MsgRequest, protocols.MsgLocateRequest, protocols.MsgCancelRequest:
		if inbound := pc.transport.getInbound(); inbound != nil {
			return inbound.ServeMessage(ctx, pc, h, msg)
		}
	}
	pc.sendMessageError(h.Version)
	return corba.NewCommFailure(corba.MinorMessageError, corba.CompletedMaybe,
		errors.Annotatef(corba.ErrUnexpectedMessageType, "%v", h.Type))
}

func (pc *PersistConn) sendMessageError(v protocols.Version) {
	if !protocols.Supported(v) {
		v = protocols.V1_0
	}
	ctx, cancel := context.WithTimeout(context.Background(), messageErrorTimeout)
	defer cancel()
	_ = pc.WriteMessage(ctx, protocols.NewBodylessMessage(v, protocols.MsgMessageError))
}

func (pc *PersistConn) isClosed() bool {
	pc.closedMutex.RLock()
	defer pc.closedMutex.RUnlock()
	return pc.closed != nil
}

// closedErr returns why the connection closed as a system exception.
func (pc *PersistConn) closedErr() error {
	pc.closedMutex.RLock()
	reason := pc.closed
	pc.closedMutex.RUnlock()

	var se *corba.SystemException
	if errors.As(reason, &se) {
		return se
	}
	return corba.NewCommFailure(corba.MinorConnectionClosed, corba.CompletedMaybe, reason)
}

func (pc *PersistConn) close(err error) {
	if err == nil {
		panic("close with nil err")
	}
	pc.closedMutex.Lock()
	first := pc.closeLocked(err)
	pc.closedMutex.Unlock()

	if first {
		pc.transport.removeConn(pc)
	}
}

func (pc *PersistConn) closeLocked(err error) bool {
	if pc.closed != nil {
		return false
	}
	logger.Debugf("persistConn[%v].closeLocked() : %v", pc.Name, err)

	pc.closed = err
	close(pc.closedCh)

	if pc.conn != nil {
		_ = pc.conn.Close()
	}
	if pc.assembler != nil {
		pc.assembler.Reset()
	}
	return true
}
