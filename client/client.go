// Package client sends GIOP requests: it negotiates code sets per
// connection, runs the client interceptors, marshals through the caller's
// argument mapping and correlates replies by request id.
package client

import (
	"context"

	"github.com/juju/errors"

	"github.com/brodyxchen/giop/codeset"
	"github.com/brodyxchen/giop/corba"
	"github.com/brodyxchen/giop/interception"
	"github.com/brodyxchen/giop/models"
	"github.com/brodyxchen/giop/protocols"
)

type Client struct {
	transport    *Transport
	codeSets     *codeset.Service
	interceptors *interception.Manager
}

func NewClient(tp *Transport, codeSets *codeset.Service, interceptors *interception.Manager) *Client {
	if codeSets == nil {
		codeSets = codeset.NewService()
	}
	if interceptors == nil {
		interceptors = interception.NewManager()
	}
	return &Client{
		transport:    tp,
		codeSets:     codeSets,
		interceptors: interceptors,
	}
}

func (cli *Client) Transport() *Transport {
	return cli.transport
}

// Invoke performs one call. A oneway call returns once the request is
// written. The error is a *corba.SystemException, a *corba.UserException
// or a *corba.LocationForward. Failed calls are never retried.
func (cli *Client) Invoke(req *models.Request, opts ...interception.Option) (rsp *models.Response, err error) {
	defer func() {
		cli.transport.stats.IncRequest(outcome(err))
	}()

	if req.Target == nil {
		return nil, errMissingEndpoint()
	}
	if req.Mapping == nil {
		return nil, errors.NotValidf("request %q without argument mapping", req.Operation)
	}
	ctx := req.Context()
	version := targetVersion(req.Target)

	pConn, err := cli.transport.GetConnection(ctx, req.Target.Addr)
	if err != nil {
		return nil, err
	}
	defer cli.transport.ReleaseConnection(pConn)

	desc := pConn.Desc()
	ri := &interception.ClientRequestInfo{
		Operation:        req.Operation,
		ResponseExpected: !req.Oneway,
		Target:           req.Target,
		Conn:             desc,
		RequestContexts:  append(protocols.ServiceContextList(nil), req.ServiceContexts...),
	}
	if err := cli.addBiDirContext(version, ri); err != nil {
		return nil, err
	}
	if ri.RequestID, err = desc.GenerateRequestID(); err != nil {
		pConn.close(err)
		return nil, corba.NewTransient(corba.MinorConnectionClosed, corba.CompletedNo, err)
	}

	flow := cli.interceptors.ClientFlow(opts...)
	if err := flow.SendRequest(ri); err != nil {
		flow.SwitchToReplyDirection()
		return nil, flow.ReceiveException(ri, err)
	}
	flow.SwitchToReplyDirection()

	charSet, wcharSet, negotiating, err := cli.negotiate(desc, req.Target, version, ri)
	if err != nil {
		return nil, flow.ReceiveException(ri, err)
	}
	msgs, err := cli.marshalRequest(req, ri, version, charSet, wcharSet)
	if err != nil {
		return nil, flow.ReceiveException(ri, marshalError(err, corba.CompletedNo))
	}
	written := func() {
		if negotiating && desc.SetCodeSets(charSet, wcharSet) {
			logger.Debugf("%s negotiated code sets %v/%v", desc.Name, charSet, wcharSet)
		}
	}

	if req.Oneway {
		if err := pConn.WriteMessage(ctx, msgs...); err != nil {
			return nil, flow.ReceiveException(ri, writeError(err))
		}
		written()
		if err := flow.ReceiveOther(ri); err != nil {
			return nil, flow.ReceiveException(ri, err)
		}
		return &models.Response{Req: req, ConnName: pConn.Name, RequestID: ri.RequestID}, nil
	}

	tripNow := cli.transport.clock.Now()
	reply, err := pConn.roundTrip(ctx, ri.RequestID, version, msgs, cli.transport.config.GetTimeout(), written)
	cli.transport.stats.ObserveRoundTrip(cli.transport.clock.Now().Sub(tripNow))
	if err != nil {
		return nil, flow.ReceiveException(ri, roundTripError(err))
	}
	return cli.receiveReply(req, ri, flow, reply, charSet, wcharSet, pConn.Name)
}

// Locate asks the server of target whether it hosts the object. For a
// forward status the encoded object reference is returned too.
func (cli *Client) Locate(ctx context.Context, target *models.Target) (protocols.LocateStatus, []byte, error) {
	if target == nil {
		return 0, nil, errMissingEndpoint()
	}
	version := targetVersion(target)
	pConn, err := cli.transport.GetConnection(ctx, target.Addr)
	if err != nil {
		return 0, nil, err
	}
	defer cli.transport.ReleaseConnection(pConn)

	id, err := pConn.Desc().GenerateRequestID()
	if err != nil {
		pConn.close(err)
		return 0, nil, corba.NewTransient(corba.MinorConnectionClosed, corba.CompletedNo, err)
	}
	m := protocols.NewMessage(version, protocols.MsgLocateRequest, false)
	(&protocols.LocateRequestHeader{RequestID: id, ObjectKey: target.ObjectKey}).Write(m.Encoder)

	reply, err := pConn.roundTrip(ctx, id, version, [][]byte{m.Finish()}, cli.transport.config.GetTimeout(), nil)
	if err != nil {
		return 0, nil, roundTripError(err)
	}
	if reply.Header.Type != protocols.MsgLocateReply {
		return 0, nil, corba.NewMarshal(corba.MinorBadMessageType, corba.CompletedYes)
	}
	dec, err := protocols.NewMessageDecoder(reply.Header, reply.Msg)
	if err != nil {
		return 0, nil, marshalError(err, corba.CompletedYes)
	}
	hdr, err := protocols.ReadLocateReplyHeader(dec)
	if err != nil {
		return 0, nil, marshalError(err, corba.CompletedYes)
	}
	if err := protocols.TryAlignBody(dec); err != nil {
		return 0, nil, marshalError(err, corba.CompletedYes)
	}
	switch hdr.Status {
	case protocols.LocateObjectForward, protocols.LocateObjectForwardPerm:
		return hdr.Status, append([]byte(nil), dec.Rest()...), nil
	case protocols.LocateSystemException:
		se, err := protocols.ReadSystemException(dec)
		if err != nil {
			return 0, nil, marshalError(err, corba.CompletedYes)
		}
		return hdr.Status, nil, se
	case protocols.LocateNeedsAddressingMode:
		return hdr.Status, nil, corba.NewMarshal(corba.MinorNeedsAddressingMode, corba.CompletedNo)
	}
	return hdr.Status, nil, nil
}

// negotiate returns the code sets of the connection. Until a request
// carrying the code set context has been written, every request chooses
// the sets again and carries the context; negotiating reports that case.
func (cli *Client) negotiate(desc *models.ConnectionDesc, target *models.Target, version protocols.Version,
	ri *interception.ClientRequestInfo) (charSet, wcharSet codeset.CharSet, negotiating bool, err error) {
	charSet, wcharSet, negotiated := desc.CodeSets()
	if negotiated || version.Before(protocols.V1_1) {
		return charSet, wcharSet, false, nil
	}
	component, err := target.CodeSetComponent()
	if err != nil {
		return codeset.Unset, codeset.Unset, false, corba.AsSystemException(err, corba.MinorBadLength, corba.CompletedNo)
	}
	charSet, wcharSet, err = cli.codeSets.Negotiate(component)
	if err != nil {
		return codeset.Unset, codeset.Unset, false, err
	}
	ri.RequestContexts.Set(protocols.CodeSetContext{CharSet: charSet, WCharSet: wcharSet}.ServiceContext())
	return charSet, wcharSet, true, nil
}

func (cli *Client) addBiDirContext(version protocols.Version, ri *interception.ClientRequestInfo) error {
	listenPoints := cli.transport.ListenPoints()
	if len(listenPoints) == 0 || version.Before(protocols.V1_2) {
		return nil
	}
	sc, err := protocols.BiDirContext{ListenPoints: listenPoints}.ServiceContext()
	if err != nil {
		return corba.AsSystemException(err, corba.MinorCharConversion, corba.CompletedNo)
	}
	ri.RequestContexts.Set(sc)
	return nil
}

func (cli *Client) receiveReply(req *models.Request, ri *interception.ClientRequestInfo, flow *interception.ClientFlow,
	reply *models.ReceiveResponse, charSet, wcharSet codeset.CharSet, connName string) (*models.Response, error) {
	if reply.Header.Type != protocols.MsgReply {
		return nil, flow.ReceiveException(ri, corba.NewMarshal(corba.MinorBadMessageType, corba.CompletedMaybe))
	}
	dec, err := protocols.NewMessageDecoder(reply.Header, reply.Msg)
	if err != nil {
		return nil, flow.ReceiveException(ri, marshalError(err, corba.CompletedMaybe))
	}
	dec.SetCodeSets(charSet, wcharSet)
	hdr, err := protocols.ReadReplyHeader(dec)
	if err != nil {
		return nil, flow.ReceiveException(ri, marshalError(err, corba.CompletedMaybe))
	}
	ri.ReplyContexts = hdr.ServiceContexts
	ri.ReplyStatus = hdr.Status
	if err := protocols.TryAlignBody(dec); err != nil {
		return nil, flow.ReceiveException(ri, marshalError(err, corba.CompletedYes))
	}

	switch hdr.Status {
	case protocols.ReplyNoException:
		result, out, err := req.Mapping.UnmarshalResult(req.Operation, dec, req.Args)
		if err != nil {
			return nil, flow.ReceiveException(ri, marshalError(err, corba.CompletedYes))
		}
		if err := flow.ReceiveReply(ri); err != nil {
			return nil, flow.ReceiveException(ri, err)
		}
		return &models.Response{
			Req:             req,
			ConnName:        connName,
			RequestID:       ri.RequestID,
			Result:          result,
			Out:             out,
			ServiceContexts: hdr.ServiceContexts,
		}, nil
	case protocols.ReplyUserException:
		repoID, err := dec.ReadString()
		if err != nil {
			return nil, flow.ReceiveException(ri, marshalError(err, corba.CompletedYes))
		}
		ue, err := req.Mapping.UnmarshalUserException(req.Operation, dec, repoID)
		if err != nil {
			return nil, flow.ReceiveException(ri, marshalError(err, corba.CompletedYes))
		}
		return nil, flow.ReceiveException(ri, ue)
	case protocols.ReplySystemException:
		se, err := protocols.ReadSystemException(dec)
		if err != nil {
			return nil, flow.ReceiveException(ri, marshalError(err, corba.CompletedMaybe))
		}
		return nil, flow.ReceiveException(ri, se)
	case protocols.ReplyLocationForward, protocols.ReplyLocationForwardPerm:
		body := append([]byte(nil), dec.Rest()...)
		if len(body) == 0 {
			return nil, flow.ReceiveException(ri, corba.NewMarshal(corba.MinorNoForwardTarget, corba.CompletedNo))
		}
		ri.ForwardReference = body
		if err := flow.ReceiveOther(ri); err != nil {
			return nil, flow.ReceiveException(ri, err)
		}
		return nil, &corba.LocationForward{Permanent: hdr.Status == protocols.ReplyLocationForwardPerm, Body: body}
	case protocols.ReplyNeedsAddressingMode:
		return nil, flow.ReceiveException(ri, corba.NewMarshal(corba.MinorNeedsAddressingMode, corba.CompletedNo))
	}
	return nil, flow.ReceiveException(ri, corba.NewMarshal(corba.MinorUnknownReplyStatus, corba.CompletedMaybe))
}

func targetVersion(target *models.Target) protocols.Version {
	if target.Version.Major == 0 {
		return protocols.MaxVersion
	}
	return target.Version
}

func marshalError(err error, completed corba.CompletionStatus) error {
	var se *corba.SystemException
	if errors.As(err, &se) {
		return se
	}
	return corba.NewMarshal(0, completed).WithCause(err)
}

func writeError(err error) error {
	var se *corba.SystemException
	if errors.As(err, &se) {
		return se
	}
	return corba.NewCommFailure(corba.MinorWriteFailed, corba.CompletedMaybe, err)
}

// roundTripError turns transport failures into communication errors.
func roundTripError(err error) error {
	var se *corba.SystemException
	switch {
	case errors.As(err, &se):
		return se
	case errors.Is(err, corba.ErrReadTimeout), errors.Is(err, corba.ErrCtxRoundDone):
		return corba.NewCommFailure(corba.MinorReplyTimeout, corba.CompletedMaybe, err)
	case errors.Is(err, corba.ErrCtxWriteDone):
		return corba.NewCommFailure(corba.MinorWriteFailed, corba.CompletedNo, err)
	}
	return corba.NewCommFailure(corba.MinorWriteFailed, corba.CompletedMaybe, err)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var (
		se *corba.SystemException
		ue *corba.UserException
		lf *corba.LocationForward
	)
	switch {
	case errors.As(err, &se):
		return se.Kind.String()
	case errors.As(err, &ue):
		return "USER_EXCEPTION"
	case errors.As(err, &lf):
		return "LOCATION_FORWARD"
	}
	return "error"
}
