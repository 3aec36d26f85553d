package server

import (
	"bufio"
	"context"
	"io"
	"net"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/juju/errors"

	"github.com/brodyxchen/giop/client"
	"github.com/brodyxchen/giop/corba"
	"github.com/brodyxchen/giop/fragment"
	"github.com/brodyxchen/giop/models"
	"github.com/brodyxchen/giop/protocols"
	"github.com/brodyxchen/giop/socket"
)

var errClosedByPeer = errors.New("connection closed by peer")

// Conn is an accepted connection. Its read loop runs in serve; requests
// are dispatched concurrently and their replies written under writeMutex.
type Conn struct {
	Name       string
	server     *Server
	remoteAddr string
	desc       *models.ConnectionDesc
	assembler  *fragment.Assembler

	rwc       net.Conn
	bufReader *bufio.Reader

	writeMutex sync.Mutex // guards bufWriter
	bufWriter  *bufio.Writer

	// minor version of the last message read, used for CloseConnection
	lastMinor atomic.Int32

	bidirMutex sync.Mutex
	bidirConn  *client.PersistConn

	// requests of this connection still being dispatched
	dispatchWG sync.WaitGroup

	closeOnce sync.Once
}

func (c *Conn) Read(p []byte) (n int, err error) {
	return c.rwc.Read(p)
}

func (c *Conn) Write(p []byte) (n int, err error) {
	return c.rwc.Write(p)
}

// Desc is part of the models.Session interface.
func (c *Conn) Desc() *models.ConnectionDesc {
	return c.desc
}

// WriteMessage is part of the models.Session interface.
func (c *Conn) WriteMessage(ctx context.Context, msgs ...[]byte) error {
	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()
	if c.bufWriter == nil {
		return corba.ErrServerClosed
	}
	if d := c.server.config.WriteTimeout; d != 0 {
		_ = c.rwc.SetWriteDeadline(time.Now().Add(d))
	}
	writeNow := time.Now()
	err := socket.WriteMessage(ctx, c.bufWriter, msgs...)
	c.server.stats.ObserveWrite(time.Since(writeNow))
	return err
}

// Close is part of the models.Session interface. It closes the socket;
// serve releases the rest.
func (c *Conn) Close(err error) {
	c.closeOnce.Do(func() {
		logger.Debugf("conn.close() %s: %v", c.Name, err)
		_ = c.rwc.Close()
	})
}

// BidirConn returns the client side view of this connection used for
// callbacks, creating it on first use.
func (c *Conn) BidirConn() *client.PersistConn {
	c.bidirMutex.Lock()
	defer c.bidirMutex.Unlock()
	if c.bidirConn == nil && c.server.transport != nil {
		c.bidirConn = client.NewBidirConn(c.server.transport, c)
	}
	return c.bidirConn
}

func (c *Conn) existingBidirConn() *client.PersistConn {
	c.bidirMutex.Lock()
	defer c.bidirMutex.Unlock()
	return c.bidirConn
}

func (c *Conn) version() protocols.Version {
	return protocols.Version{Major: 1, Minor: byte(c.lastMinor.Load())}
}

// closeConnection tells the peer no further requests will be served and
// closes the connection.
func (c *Conn) closeConnection(ctx context.Context) {
	msg := protocols.NewBodylessMessage(c.version(), protocols.MsgCloseConnection)
	if err := c.WriteMessage(ctx, msg); err != nil {
		logger.Debugf("%s CloseConnection not sent: %v", c.Name, err)
	}
	c.Close(corba.ErrServerClosed)
}

func (c *Conn) sendMessageError() {
	msg := protocols.NewBodylessMessage(c.version(), protocols.MsgMessageError)
	if err := c.WriteMessage(context.Background(), msg); err != nil {
		logger.Debugf("%s MessageError not sent: %v", c.Name, err)
	}
}

// Serve a new connection.
func (c *Conn) serve(ctx context.Context) {
	c.server.stats.ConnOpened()
	defer c.server.stats.ConnClosed()

	var closeErr error = errors.New("serve default close")
	defer func() {
		c.Close(closeErr)
		c.release(closeErr)
	}()

	c.remoteAddr = c.rwc.RemoteAddr().String()

	defer func() {
		if err := recover(); err != nil {
			const size = 64 << 10
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]
			logger.Errorf("giop: panic serving %v: %v\n%s", c.remoteAddr, err, buf)
			c.sendMessageError()
			closeErr = errors.Errorf("panic serving %v: %v", c.remoteAddr, err)
		}
	}()

	c.bufReader = c.server.buffers.getReader(c)
	c.writeMutex.Lock()
	c.bufWriter = c.server.buffers.getWriter(c)
	c.writeMutex.Unlock()

	if c.server.config.ReadTimeout == 0 {
		_ = c.rwc.SetReadDeadline(time.Time{})
	}
	if c.server.config.WriteTimeout == 0 {
		_ = c.rwc.SetWriteDeadline(time.Time{})
	}

	waitNext := func() error { // block until the next message starts
		if wait := c.server.config.GetIdleTimeout(); wait != 0 {
			_ = c.rwc.SetReadDeadline(time.Now().Add(wait))
		} else {
			_ = c.rwc.SetReadDeadline(time.Time{})
		}
		if _, err := c.bufReader.Peek(1); err != nil {
			return errors.Annotatef(corba.ErrPeekWaitingErr, "%v", err)
		}
		_ = c.rwc.SetReadDeadline(time.Time{})
		return nil
	}

	for {
		if err := waitNext(); err != nil {
			closeErr = err
			return
		}

		if d := c.server.config.ReadTimeout; d != 0 {
			_ = c.rwc.SetReadDeadline(time.Now().Add(d))
		}

		readNow := time.Now()
		header, msg, err := socket.ReadMessage(ctx, c.Name, c.bufReader)
		c.server.stats.ObserveRead(time.Since(readNow))
		if err != nil {
			var se *corba.SystemException
			if errors.As(err, &se) || errors.Is(err, corba.ErrExceedBody) {
				c.sendMessageError()
			}
			if err != io.EOF {
				closeErr = err
			}
			return
		}
		c.lastMinor.Store(int32(header.Version.Minor))

		header, msg, complete, err := c.assembler.Handle(header, msg)
		if err != nil {
			logger.Warningf("%s: %v", c.Name, err)
			c.sendMessageError()
			closeErr = err
			return
		}
		if !complete {
			continue
		}
		if err := c.handle(ctx, header, msg); err != nil {
			closeErr = err
			return
		}

		if header.Type == protocols.MsgRequest && !c.server.doKeepAlives() {
			// the reply is written before the connection closes
			c.dispatchWG.Wait()
			closeErr = corba.ErrNoKeepAlive
			return
		}
	}
}

func (c *Conn) handle(ctx context.Context, h protocols.Header, msg []byte) error {
	switch h.Type {
	case protocols.MsgRequest, protocols.MsgLocateRequest, protocols.MsgCancelRequest:
		return c.server.ServeMessage(ctx, c, h, msg)
	case protocols.MsgReply, protocols.MsgLocateReply:
		if pConn := c.existingBidirConn(); pConn != nil {
			if err := pConn.Deliver(h, msg); err != nil {
				c.sendMessageError()
				return err
			}
			return nil
		}
	case protocols.MsgCloseConnection:
		return errClosedByPeer
	case protocols.MsgMessageError:
		return errors.New("peer reported a message error")
	}
	c.sendMessageError()
	return errors.Annotatef(corba.ErrUnexpectedMessageType, "%v", h.Type)
}

// release runs once the read loop ended. Dispatches still running see a
// closed writer.
func (c *Conn) release(err error) {
	if pConn := c.existingBidirConn(); pConn != nil {
		pConn.Close(corba.NewCommFailure(corba.MinorConnectionClosed, corba.CompletedMaybe, err))
	}
	c.assembler.Reset()

	c.writeMutex.Lock()
	if c.bufWriter != nil {
		c.server.buffers.putWriter(c.bufWriter)
		c.bufWriter = nil
	}
	c.writeMutex.Unlock()
	if c.bufReader != nil {
		c.server.buffers.putReader(c.bufReader)
		c.bufReader = nil
	}
}
