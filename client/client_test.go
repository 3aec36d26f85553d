package client

import (
	"context"
	"net"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	"go.uber.org/mock/gomock"
	gc "gopkg.in/check.v1"

	"github.com/brodyxchen/giop/cdr"
	"github.com/brodyxchen/giop/codeset"
	"github.com/brodyxchen/giop/corba"
	"github.com/brodyxchen/giop/interception"
	"github.com/brodyxchen/giop/models"
	"github.com/brodyxchen/giop/models/mocks"
	"github.com/brodyxchen/giop/protocols"
)

type clientSuite struct {
	tp      *Transport
	client  *Client
	server  *fakeServer
	mapping *mocks.MockArgumentMapping
}

var _ = gc.Suite(&clientSuite{})

func (s *clientSuite) SetUpTest(c *gc.C) {
	s.setUpClient(c, &Config{Timeout: testing.LongWait})
}

func (s *clientSuite) setUpClient(c *gc.C, cfg *Config) {
	if s.tp != nil {
		c.Check(s.tp.Close(), jc.ErrorIsNil)
	}
	tp, err := NewTransport(cfg, clock.WallClock, nil)
	c.Assert(err, jc.ErrorIsNil)
	s.tp = tp
	s.client = NewClient(tp, nil, nil)
}

func (s *clientSuite) TearDownTest(c *gc.C) {
	c.Check(s.tp.Close(), jc.ErrorIsNil)
	s.tp = nil
	if s.server != nil {
		s.server.close()
		s.server = nil
	}
}

func (s *clientSuite) setUpMapping(c *gc.C) *gomock.Controller {
	ctrl := gomock.NewController(c)
	s.mapping = mocks.NewMockArgumentMapping(ctrl)
	s.mapping.EXPECT().MarshalArguments(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(op string, enc *cdr.Encoder, args []any) error {
			enc.WriteLong(args[0].(int32))
			return nil
		}).AnyTimes()
	s.mapping.EXPECT().UnmarshalResult(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(op string, dec *cdr.Decoder, args []any) (any, []any, error) {
			v, err := dec.ReadLong()
			return v, nil, err
		}).AnyTimes()
	return ctrl
}

func (s *clientSuite) target() *models.Target {
	return &models.Target{
		Addr:      s.server.addr(),
		ObjectKey: []byte("counter"),
		Version:   protocols.V1_2,
		Components: protocols.TaggedComponents{protocols.CodeSetComponent(codeset.Component{
			NativeCharSet:  codeset.UTF8,
			NativeWCharSet: codeset.UTF16,
		})},
	}
}

func (s *clientSuite) request(v int32) *models.Request {
	return &models.Request{
		Target:    s.target(),
		Operation: "increment",
		Args:      []any{v},
		Mapping:   s.mapping,
	}
}

func checkSystemException(c *gc.C, err error, kind corba.Kind, minor uint32, completed corba.CompletionStatus) {
	var se *corba.SystemException
	c.Assert(errors.As(err, &se), jc.IsTrue, gc.Commentf("%v", err))
	c.Check(se.Kind, gc.Equals, kind)
	c.Check(se.Minor, gc.Equals, minor)
	c.Check(se.Completed, gc.Equals, completed)
}

func (s *clientSuite) TestInvokeNegotiatesOnce(c *gc.C) {
	defer s.setUpMapping(c).Finish()
	contexts := make(chan protocols.ServiceContextList, 2)
	s.server = newFakeServer(c, func(conn net.Conn, h protocols.Header, msg []byte) {
		if hdr, _, err := decodeRequest(h, msg); err == nil {
			contexts <- hdr.ServiceContexts
		}
		_, _ = conn.Write(incrementReply(h, msg))
	})

	rsp, err := s.client.Invoke(s.request(42))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(rsp.Result, gc.Equals, int32(43))
	c.Check(rsp.RequestID, gc.Equals, uint32(5))

	rsp2, err := s.client.Invoke(s.request(1))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(rsp2.Result, gc.Equals, int32(2))
	c.Check(rsp2.RequestID, gc.Equals, uint32(6))
	c.Check(rsp2.ConnName, gc.Equals, rsp.ConnName)
	c.Check(s.server.accepted(), gc.Equals, 1)

	first := <-contexts
	sc, ok, err := protocols.FindCodeSetContext(first)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(ok, jc.IsTrue)
	c.Check(sc.CharSet, gc.Equals, codeset.UTF8)
	c.Check(sc.WCharSet, gc.Equals, codeset.UTF16)

	second := <-contexts
	c.Check(second.Contains(protocols.ServiceCodeSets), jc.IsFalse)
}

// callRecorder is a per-call interceptor. It fails SendRequest with veto
// when set and records the exception a call completes with.
type callRecorder struct {
	veto      error
	exception error
	status    protocols.ReplyStatus
}

func (r *callRecorder) Name() string                                       { return "" }
func (r *callRecorder) SendRequest(*interception.ClientRequestInfo) error  { return r.veto }
func (r *callRecorder) ReceiveReply(*interception.ClientRequestInfo) error { return nil }
func (r *callRecorder) ReceiveOther(*interception.ClientRequestInfo) error { return nil }

func (r *callRecorder) ReceiveException(ri *interception.ClientRequestInfo) error {
	r.exception = ri.Exception
	r.status = ri.ReplyStatus
	return nil
}

func (r *callRecorder) ClientRequestInterceptor() interception.ClientRequestInterceptor { return r }
func (r *callRecorder) ServerRequestInterceptor() interception.ServerRequestInterceptor { return nil }

func (s *clientSuite) TestVetoedCallKeepsNegotiationPending(c *gc.C) {
	defer s.setUpMapping(c).Finish()
	contexts := make(chan protocols.ServiceContextList, 2)
	s.server = newFakeServer(c, func(conn net.Conn, h protocols.Header, msg []byte) {
		if hdr, _, err := decodeRequest(h, msg); err == nil {
			contexts <- hdr.ServiceContexts
		}
		_, _ = conn.Write(incrementReply(h, msg))
	})

	veto := corba.NewSystemException(corba.NoPermission, 0, corba.CompletedNo)
	_, err := s.client.Invoke(s.request(1), &callRecorder{veto: veto})
	checkSystemException(c, err, corba.NoPermission, 0, corba.CompletedNo)

	rsp, err := s.client.Invoke(s.request(2))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(rsp.Result, gc.Equals, int32(3))
	rsp, err = s.client.Invoke(s.request(3))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(rsp.Result, gc.Equals, int32(4))
	c.Check(s.server.accepted(), gc.Equals, 1)

	first := <-contexts
	sc, ok, err := protocols.FindCodeSetContext(first)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(ok, jc.IsTrue)
	c.Check(sc.CharSet, gc.Equals, codeset.UTF8)
	c.Check(sc.WCharSet, gc.Equals, codeset.UTF16)

	second := <-contexts
	c.Check(second.Contains(protocols.ServiceCodeSets), jc.IsFalse)
}

func (s *clientSuite) TestUserExceptionReply(c *gc.C) {
	defer s.setUpMapping(c).Finish()
	const repoID = "IDL:test/Overflow:1.0"
	s.mapping.EXPECT().UnmarshalUserException("increment", gomock.Any(), repoID).DoAndReturn(
		func(op string, dec *cdr.Decoder, repoID string) (*corba.UserException, error) {
			v, err := dec.ReadLong()
			return &corba.UserException{RepositoryID: repoID, Payload: v}, err
		})
	s.server = newFakeServer(c, func(conn net.Conn, h protocols.Header, msg []byte) {
		hdr, _, err := decodeRequest(h, msg)
		if err != nil {
			return
		}
		_, _ = conn.Write(replyMessage(h.Version, hdr.RequestID, protocols.ReplyUserException, func(enc *cdr.Encoder) {
			_ = enc.WriteString(repoID)
			enc.WriteLong(7)
		}))
	})

	rec := &callRecorder{}
	_, err := s.client.Invoke(s.request(1), rec)
	var ue *corba.UserException
	c.Assert(errors.As(err, &ue), jc.IsTrue, gc.Commentf("%v", err))
	c.Check(ue.RepositoryID, gc.Equals, repoID)
	c.Check(ue.Payload, gc.Equals, int32(7))
	c.Check(rec.exception, gc.Equals, error(ue))
	c.Check(rec.status, gc.Equals, protocols.ReplyUserException)
}

func (s *clientSuite) TestOnewayDoesNotWait(c *gc.C) {
	defer s.setUpMapping(c).Finish()
	received := make(chan bool, 1)
	s.server = newFakeServer(c, func(conn net.Conn, h protocols.Header, msg []byte) {
		if hdr, _, err := decodeRequest(h, msg); err == nil {
			received <- hdr.ResponseExpected
		}
	})

	req := s.request(7)
	req.Oneway = true
	rsp, err := s.client.Invoke(req)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(rsp.Result, gc.IsNil)

	select {
	case expected := <-received:
		c.Check(expected, jc.IsFalse)
	case <-time.After(testing.LongWait):
		c.Fatalf("oneway request not received")
	}
}

func (s *clientSuite) TestSystemExceptionReply(c *gc.C) {
	defer s.setUpMapping(c).Finish()
	s.server = newFakeServer(c, func(conn net.Conn, h protocols.Header, msg []byte) {
		hdr, _, err := decodeRequest(h, msg)
		if err != nil {
			return
		}
		_, _ = conn.Write(replyMessage(h.Version, hdr.RequestID, protocols.ReplySystemException, func(enc *cdr.Encoder) {
			_ = protocols.WriteSystemException(enc, corba.NewSystemException(corba.ObjectNotExist, 1, corba.CompletedNo))
		}))
	})

	_, err := s.client.Invoke(s.request(1))
	checkSystemException(c, err, corba.ObjectNotExist, 1, corba.CompletedNo)
}

func (s *clientSuite) TestLocationForward(c *gc.C) {
	defer s.setUpMapping(c).Finish()
	s.server = newFakeServer(c, func(conn net.Conn, h protocols.Header, msg []byte) {
		hdr, _, err := decodeRequest(h, msg)
		if err != nil {
			return
		}
		_, _ = conn.Write(replyMessage(h.Version, hdr.RequestID, protocols.ReplyLocationForward, func(enc *cdr.Encoder) {
			enc.WriteOctets([]byte("ior"))
		}))
	})

	_, err := s.client.Invoke(s.request(1))
	var lf *corba.LocationForward
	c.Assert(errors.As(err, &lf), jc.IsTrue)
	c.Check(lf.Permanent, jc.IsFalse)
	c.Check(lf.Body, jc.DeepEquals, []byte("ior"))
}

func (s *clientSuite) TestUnmatchedReplyClosesConnection(c *gc.C) {
	defer s.setUpMapping(c).Finish()
	messageErrors := make(chan struct{}, 1)
	s.server = newFakeServer(c, func(conn net.Conn, h protocols.Header, msg []byte) {
		switch h.Type {
		case protocols.MsgRequest:
			hdr, _, err := decodeRequest(h, msg)
			if err != nil {
				return
			}
			_, _ = conn.Write(replyMessage(h.Version, hdr.RequestID+1000, protocols.ReplyNoException, nil))
		case protocols.MsgMessageError:
			messageErrors <- struct{}{}
		}
	})

	_, err := s.client.Invoke(s.request(1))
	checkSystemException(c, err, corba.CommFailure, corba.MinorReplyIDMismatch, corba.CompletedMaybe)
	select {
	case <-messageErrors:
	case <-time.After(testing.LongWait):
		c.Fatalf("no MessageError sent for the unmatched reply")
	}
}

func (s *clientSuite) TestCloseConnectionFailsPending(c *gc.C) {
	defer s.setUpMapping(c).Finish()
	s.server = newFakeServer(c, func(conn net.Conn, h protocols.Header, msg []byte) {
		if h.Type == protocols.MsgRequest {
			_, _ = conn.Write(protocols.NewBodylessMessage(h.Version, protocols.MsgCloseConnection))
		}
	})

	_, err := s.client.Invoke(s.request(1))
	checkSystemException(c, err, corba.Transient, corba.MinorCloseConnection, corba.CompletedNo)
}

func (s *clientSuite) TestTimeoutCancelsRequest(c *gc.C) {
	s.setUpClient(c, &Config{Timeout: 50 * time.Millisecond})
	defer s.setUpMapping(c).Finish()
	cancelled := make(chan uint32, 1)
	s.server = newFakeServer(c, func(conn net.Conn, h protocols.Header, msg []byte) {
		switch h.Type {
		case protocols.MsgRequest:
			hdr, _, err := decodeRequest(h, msg)
			if err != nil || hdr.RequestID == 5 {
				return
			}
			_, _ = conn.Write(incrementReply(h, msg))
		case protocols.MsgCancelRequest:
			dec, err := protocols.NewMessageDecoder(h, msg)
			if err != nil {
				return
			}
			hdr, err := protocols.ReadCancelRequestHeader(dec)
			if err != nil {
				return
			}
			cancelled <- hdr.RequestID
			// a late reply is dropped by the client
			_, _ = conn.Write(replyMessage(h.Version, hdr.RequestID, protocols.ReplyNoException, func(enc *cdr.Encoder) {
				enc.WriteLong(0)
			}))
		}
	})

	_, err := s.client.Invoke(s.request(1))
	checkSystemException(c, err, corba.CommFailure, corba.MinorReplyTimeout, corba.CompletedMaybe)
	select {
	case id := <-cancelled:
		c.Check(id, gc.Equals, uint32(5))
	case <-time.After(testing.LongWait):
		c.Fatalf("no CancelRequest sent after the timeout")
	}

	s.setUpClientTimeout(testing.LongWait)
	rsp, err := s.client.Invoke(s.request(2))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(rsp.Result, gc.Equals, int32(3))
	c.Check(s.server.accepted(), gc.Equals, 1)
}

// setUpClientTimeout changes the reply timeout without replacing the
// transport and its pooled connections.
func (s *clientSuite) setUpClientTimeout(d time.Duration) {
	s.tp.config.Timeout = d
}

func (s *clientSuite) TestContextCancelled(c *gc.C) {
	defer s.setUpMapping(c).Finish()
	s.server = newFakeServer(c, func(conn net.Conn, h protocols.Header, msg []byte) {})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := s.request(1)
	req.Ctx = ctx
	_, err := s.client.Invoke(req)
	checkSystemException(c, err, corba.CommFailure, corba.MinorReplyTimeout, corba.CompletedMaybe)
}

func (s *clientSuite) TestLocate(c *gc.C) {
	s.server = newFakeServer(c, func(conn net.Conn, h protocols.Header, msg []byte) {
		dec, err := protocols.NewMessageDecoder(h, msg)
		if err != nil {
			return
		}
		hdr, err := protocols.ReadLocateRequestHeader(dec)
		if err != nil {
			return
		}
		status := protocols.LocateUnknownObject
		if string(hdr.ObjectKey) == "counter" {
			status = protocols.LocateObjectHere
		}
		m := protocols.NewMessage(h.Version, protocols.MsgLocateReply, false)
		(&protocols.LocateReplyHeader{RequestID: hdr.RequestID, Status: status}).Write(m.Encoder)
		_, _ = conn.Write(m.Finish())
	})

	status, body, err := s.client.Locate(context.Background(), s.target())
	c.Assert(err, jc.ErrorIsNil)
	c.Check(status, gc.Equals, protocols.LocateObjectHere)
	c.Check(body, gc.HasLen, 0)

	target := s.target()
	target.ObjectKey = []byte("missing")
	status, _, err = s.client.Locate(context.Background(), target)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(status, gc.Equals, protocols.LocateUnknownObject)
}

func (s *clientSuite) TestConnectFailure(c *gc.C) {
	defer s.setUpMapping(c).Finish()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	c.Assert(err, jc.ErrorIsNil)
	port := l.Addr().(*net.TCPAddr).Port
	c.Assert(l.Close(), jc.ErrorIsNil)

	req := s.request(1)
	req.Target = &models.Target{Addr: &models.IIOPAddr{Host: "127.0.0.1", Port: uint16(port)}, Version: protocols.V1_2}
	_, err = s.client.Invoke(req)
	checkSystemException(c, err, corba.Transient, corba.MinorConnectFailed, corba.CompletedNo)

	// the reserved slot is given back
	ok, err := s.tp.CanInitiateNewConnection(req.Target.Addr)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(ok, jc.IsTrue)
}

func (s *clientSuite) TestMissingEndpoint(c *gc.C) {
	defer s.setUpMapping(c).Finish()
	req := s.request(1)
	req.Target = &models.Target{Version: protocols.V1_2}
	_, err := s.client.Invoke(req)
	checkSystemException(c, err, corba.BadParam, corba.MinorMissingEndpoint, corba.CompletedMaybe)

	req.Target = nil
	_, err = s.client.Invoke(req)
	checkSystemException(c, err, corba.BadParam, corba.MinorMissingEndpoint, corba.CompletedMaybe)
}

func (s *clientSuite) TestInvokeAfterClose(c *gc.C) {
	defer s.setUpMapping(c).Finish()
	c.Assert(s.tp.Close(), jc.ErrorIsNil)
	req := s.request(1)
	req.Target = &models.Target{Addr: &models.IIOPAddr{Host: "127.0.0.1", Port: 1}, Version: protocols.V1_2}
	_, err := s.client.Invoke(req)
	checkSystemException(c, err, corba.BadInvOrder, corba.MinorShutdown, corba.CompletedNo)
}
