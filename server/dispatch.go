package server

import (
	"context"
	"time"

	"github.com/juju/errors"

	"github.com/brodyxchen/giop/cdr"
	"github.com/brodyxchen/giop/corba"
	"github.com/brodyxchen/giop/fragment"
	"github.com/brodyxchen/giop/interception"
	"github.com/brodyxchen/giop/models"
	"github.com/brodyxchen/giop/protocols"
)

// ServeMessage handles a Request, LocateRequest or CancelRequest read on
// sess, which is either an accepted connection or one dialed by this side
// and used by the peer for callbacks. Requests are dispatched in their
// own goroutine. A returned error is fatal to the connection.
func (srv *Server) ServeMessage(ctx context.Context, sess models.Session, h protocols.Header, msg []byte) error {
	dec, err := protocols.NewMessageDecoder(h, msg)
	if err != nil {
		return errors.Trace(err)
	}
	switch h.Type {
	case protocols.MsgRequest:
		return srv.serveRequestMessage(ctx, sess, dec)
	case protocols.MsgLocateRequest:
		return srv.serveLocate(ctx, sess, dec)
	case protocols.MsgCancelRequest:
		hdr, err := protocols.ReadCancelRequestHeader(dec)
		if err != nil {
			return errors.Trace(err)
		}
		if !sess.Desc().CancelRequest(hdr.RequestID) {
			logger.Warningf("%s: cancel for unknown request %d", sess.Desc().Name, hdr.RequestID)
		}
		return nil
	}
	return errors.Annotatef(corba.ErrUnexpectedMessageType, "%v", h.Type)
}

func (srv *Server) serveRequestMessage(ctx context.Context, sess models.Session, dec *cdr.Decoder) error {
	desc := sess.Desc()
	charSet, wcharSet, _ := desc.CodeSets()
	dec.SetCodeSets(charSet, wcharSet)
	hdr, err := protocols.ReadRequestHeader(dec)
	if err != nil {
		if hdr == nil {
			return errors.Annotate(err, "request header")
		}
		// the request id is known, the caller gets an exception
		desc.StartRequest(hdr.RequestID)
		srv.dispatch(sess, func() {
			srv.replyException(ctx, sess, dec.Version(), hdr, corba.AsSystemException(err, corba.MinorBadLength, corba.CompletedNo))
		})
		return nil
	}
	desc.StartRequest(hdr.RequestID)

	// connection state changes before the next message is read
	if err := srv.installCodeSets(desc, hdr.ServiceContexts); err != nil {
		srv.dispatch(sess, func() {
			srv.replyException(ctx, sess, dec.Version(), hdr, corba.AsSystemException(err, corba.MinorCharSetIncompatible, corba.CompletedNo))
		})
		return nil
	}
	srv.acceptBiDir(sess, hdr.ServiceContexts)
	charSet, wcharSet, _ = desc.CodeSets()
	dec.SetCodeSets(charSet, wcharSet)

	srv.dispatch(sess, func() {
		srv.serveRequest(ctx, sess, dec, hdr)
	})
	return nil
}

// dispatch runs fn in its own goroutine, tracked by the server and, for
// accepted connections, by the connection.
func (srv *Server) dispatch(sess models.Session, fn func()) {
	c, _ := sess.(*Conn)
	srv.dispatchWG.Add(1)
	if c != nil {
		c.dispatchWG.Add(1)
	}
	go func() {
		defer srv.dispatchWG.Done()
		if c != nil {
			defer c.dispatchWG.Done()
		}
		fn()
	}()
}

// replyException answers a request that could not be dispatched at all.
func (srv *Server) replyException(ctx context.Context, sess models.Session, version protocols.Version,
	hdr *protocols.RequestHeader, se *corba.SystemException) {
	cancelled := sess.Desc().FinishRequest(hdr.RequestID)
	if !hdr.ResponseExpected || cancelled {
		return
	}
	reply := &protocols.ReplyHeader{RequestID: hdr.RequestID, Status: protocols.ReplySystemException}
	srv.writeReply(ctx, sess, version, reply, func(enc *cdr.Encoder) error {
		return protocols.WriteSystemException(enc, se)
	})
}

func (srv *Server) serveRequest(ctx context.Context, sess models.Session, dec *cdr.Decoder, hdr *protocols.RequestHeader) {
	desc := sess.Desc()
	version := dec.Version()

	ri := &interception.ServerRequestInfo{
		RequestID:        hdr.RequestID,
		Operation:        hdr.Operation,
		ResponseExpected: hdr.ResponseExpected,
		ObjectKey:        hdr.ObjectKey,
		Conn:             desc,
		Session:          sess,
		RequestContexts:  hdr.ServiceContexts,
	}
	flow := srv.interceptors.ServerFlow()

	servant, result, err := srv.invoke(ctx, flow, ri, dec)

	cancelled := desc.FinishRequest(hdr.RequestID)
	flow.SwitchToReplyDirection()

	if err == nil {
		if ierr := flow.SendReply(ri); ierr != nil {
			err = ierr
		}
	}
	if err != nil {
		var lf *corba.LocationForward
		if errors.As(err, &lf) {
			if ierr := flow.SendOther(ri); ierr != nil {
				err = flow.SendException(ri, ierr)
			}
		} else {
			err = flow.SendException(ri, err)
		}
	}

	if !hdr.ResponseExpected {
		srv.stats.IncRequest("oneway")
		return
	}
	if cancelled {
		logger.Debugf("%s: request %d cancelled, reply dropped", desc.Name, hdr.RequestID)
		srv.stats.IncRequest("cancelled")
		return
	}

	reply := &protocols.ReplyHeader{RequestID: hdr.RequestID, ServiceContexts: ri.ReplyContexts}
	var body func(enc *cdr.Encoder) error
	if err == nil {
		reply.Status = protocols.ReplyNoException
		body = func(enc *cdr.Encoder) error {
			return servant.MarshalResult(hdr.Operation, enc, result.Result, result.Out)
		}
	} else {
		reply.Status, body = exceptionBody(hdr.Operation, servant, err)
	}
	if srv.writeReply(ctx, sess, version, reply, body) {
		srv.stats.IncRequest(reply.Status.String())
	}
}

// invoke runs the request interceptors and the servant. The servant is
// returned for marshalling the reply, it may be nil.
func (srv *Server) invoke(ctx context.Context, flow *interception.ServerFlow, ri *interception.ServerRequestInfo,
	dec *cdr.Decoder) (models.Servant, *models.ServerReply, error) {
	if err := flow.ReceiveRequestServiceContexts(ri); err != nil {
		return nil, nil, err
	}
	servant := srv.getServant(ri.ObjectKey)
	if servant == nil {
		return nil, nil, corba.NewSystemException(corba.ObjectNotExist, corba.MinorObjectNotExist, corba.CompletedNo)
	}
	if err := protocols.TryAlignBody(dec); err != nil {
		return servant, nil, marshalError(err)
	}
	args, err := servant.UnmarshalArguments(ri.Operation, dec)
	if err != nil {
		return servant, nil, marshalError(err)
	}
	// the second receive point visits the chain from the start again
	flow.ResetToStart()
	if err := flow.ReceiveRequest(ri); err != nil {
		return servant, nil, err
	}

	req := &models.ServerRequest{
		Conn:             ri.Conn,
		RequestID:        ri.RequestID,
		ResponseExpected: ri.ResponseExpected,
		ObjectKey:        ri.ObjectKey,
		Operation:        ri.Operation,
		Args:             args,
		ServiceContexts:  ri.RequestContexts,
	}
	invokeNow := time.Now()
	reply, err := servant.Invoke(ctx, req)
	srv.stats.ObserveDispatch(time.Since(invokeNow))
	if err != nil {
		return servant, nil, err
	}
	if reply == nil {
		reply = &models.ServerReply{}
	}
	for _, sc := range reply.ServiceContexts {
		ri.ReplyContexts.Set(sc)
	}
	return servant, reply, nil
}

func marshalError(err error) error {
	var se *corba.SystemException
	if errors.As(err, &se) {
		return se
	}
	return corba.NewMarshal(0, corba.CompletedNo).WithCause(err)
}

// exceptionBody picks the reply status and body for an error raised by
// the servant or an interceptor.
func exceptionBody(op string, servant models.Servant, err error) (protocols.ReplyStatus, func(*cdr.Encoder) error) {
	var (
		ue *corba.UserException
		se *corba.SystemException
		lf *corba.LocationForward
	)
	switch {
	case errors.As(err, &ue) && servant != nil:
		return protocols.ReplyUserException, func(enc *cdr.Encoder) error {
			if err := enc.WriteString(ue.RepositoryID); err != nil {
				return err
			}
			return servant.MarshalUserException(op, enc, ue)
		}
	case errors.As(err, &se):
		return protocols.ReplySystemException, func(enc *cdr.Encoder) error {
			return protocols.WriteSystemException(enc, se)
		}
	case errors.As(err, &lf):
		status := protocols.ReplyLocationForward
		if lf.Permanent {
			status = protocols.ReplyLocationForwardPerm
		}
		return status, func(enc *cdr.Encoder) error {
			enc.WriteOctets(lf.Body)
			return nil
		}
	}
	logger.Debugf("operation %q failed: %v", op, err)
	se = corba.NewSystemException(corba.Unknown, corba.MinorUnknownServantError, corba.CompletedMaybe)
	return protocols.ReplySystemException, func(enc *cdr.Encoder) error {
		return protocols.WriteSystemException(enc, se)
	}
}

// writeReply encodes and sends a reply. A body that fails to marshal is
// replaced by a MARSHAL exception.
func (srv *Server) writeReply(ctx context.Context, sess models.Session, version protocols.Version,
	reply *protocols.ReplyHeader, body func(*cdr.Encoder) error) bool {
	charSet, wcharSet, _ := sess.Desc().CodeSets()
	encode := func() ([]byte, error) {
		m := protocols.NewMessage(version, protocols.MsgReply, false)
		m.SetCodeSets(charSet, wcharSet)
		reply.Write(m.Encoder)
		mark := protocols.AlignBody(m.Encoder)
		if err := body(m.Encoder); err != nil {
			return nil, err
		}
		protocols.TrimEmptyBody(m.Encoder, mark)
		return m.Finish(), nil
	}
	msg, err := encode()
	if err != nil {
		logger.Warningf("%s: reply %d: %v", sess.Desc().Name, reply.RequestID, err)
		se := corba.AsSystemException(marshalError(err), 0, corba.CompletedYes)
		reply.Status = protocols.ReplySystemException
		body = func(enc *cdr.Encoder) error { return protocols.WriteSystemException(enc, se) }
		if msg, err = encode(); err != nil {
			logger.Errorf("%s: reply %d not sent: %v", sess.Desc().Name, reply.RequestID, err)
			return false
		}
	}
	return srv.send(ctx, sess, version, msg)
}

func (srv *Server) send(ctx context.Context, sess models.Session, version protocols.Version, msg []byte) bool {
	msgs := [][]byte{msg}
	if !version.Before(protocols.V1_1) {
		var err error
		if msgs, err = fragment.Split(msg, srv.config.GetFragmentSize()); err != nil {
			logger.Errorf("%s: %v", sess.Desc().Name, err)
			return false
		}
	}
	if err := sess.WriteMessage(ctx, msgs...); err != nil {
		logger.Debugf("%s: write reply: %v", sess.Desc().Name, err)
		return false
	}
	return true
}

// installCodeSets applies the code set context of the first request that
// carries one. Later contexts are ignored.
func (srv *Server) installCodeSets(desc *models.ConnectionDesc, contexts protocols.ServiceContextList) error {
	csc, ok, err := protocols.FindCodeSetContext(contexts)
	if err != nil {
		return marshalError(err)
	}
	if !ok {
		return nil
	}
	if _, _, negotiated := desc.CodeSets(); negotiated {
		return nil
	}
	if err := srv.codeSets.CheckCompatible(csc.CharSet, csc.WCharSet); err != nil {
		return err
	}
	if desc.SetCodeSets(csc.CharSet, csc.WCharSet) {
		logger.Debugf("%s: client chose code sets %v/%v", desc.Name, csc.CharSet, csc.WCharSet)
	}
	return nil
}

// acceptBiDir lets calls to the listen points a client offered use the
// client's connection.
func (srv *Server) acceptBiDir(sess models.Session, contexts protocols.ServiceContextList) {
	c, ok := sess.(*Conn)
	if !ok || srv.transport == nil {
		return
	}
	bidir, found, err := protocols.FindBiDirContext(contexts)
	if err != nil {
		logger.Warningf("%s: ignoring bidirectional context: %v", c.Name, err)
		return
	}
	if !found || len(bidir.ListenPoints) == 0 {
		return
	}
	if n := srv.transport.RegisterBidirConnection(c.BidirConn(), bidir.ListenPoints); n > 0 {
		logger.Debugf("%s: %d listen points reachable over this connection", c.Name, n)
	}
}

func (srv *Server) serveLocate(ctx context.Context, sess models.Session, dec *cdr.Decoder) error {
	hdr, err := protocols.ReadLocateRequestHeader(dec)
	if err != nil && hdr == nil {
		return errors.Annotate(err, "locate request header")
	}
	version := dec.Version()
	m := protocols.NewMessage(version, protocols.MsgLocateReply, false)
	reply := &protocols.LocateReplyHeader{RequestID: hdr.RequestID}
	var forward []byte
	var se *corba.SystemException
	switch {
	case err != nil && errors.As(err, &se) && se.Minor == corba.MinorUnknownTargetAddress && !version.Before(protocols.V1_2):
		reply.Status = protocols.LocateNeedsAddressingMode
		// KeyAddr is the only disposition understood here
		reply.Write(m.Encoder)
		protocols.AlignBody(m.Encoder)
		m.WriteShort(protocols.KeyAddr)
		srv.send(ctx, sess, version, m.Finish())
		return nil
	case err != nil:
		reply.Status = protocols.LocateSystemException
		reply.Write(m.Encoder)
		protocols.AlignBody(m.Encoder)
		if werr := protocols.WriteSystemException(m.Encoder, corba.AsSystemException(err, corba.MinorBadLength, corba.CompletedNo)); werr != nil {
			return errors.Trace(werr)
		}
		srv.send(ctx, sess, version, m.Finish())
		return nil
	}
	reply.Status, forward = srv.locate(hdr.ObjectKey)
	reply.Write(m.Encoder)
	if len(forward) > 0 {
		protocols.AlignBody(m.Encoder)
		m.WriteOctets(forward)
	}
	srv.send(ctx, sess, version, m.Finish())
	return nil
}

func (srv *Server) locate(objectKey []byte) (protocols.LocateStatus, []byte) {
	if srv.getServant(objectKey) != nil {
		return protocols.LocateObjectHere, nil
	}
	if srv.Locator != nil {
		status, forward := srv.Locator.Locate(objectKey)
		if (status == protocols.LocateObjectForward || status == protocols.LocateObjectForwardPerm) && len(forward) == 0 {
			return protocols.LocateUnknownObject, nil
		}
		return status, forward
	}
	return protocols.LocateUnknownObject, nil
}
