package client

import (
	"github.com/juju/errors"

	"github.com/brodyxchen/giop/codeset"
	"github.com/brodyxchen/giop/fragment"
	"github.com/brodyxchen/giop/interception"
	"github.com/brodyxchen/giop/models"
	"github.com/brodyxchen/giop/protocols"
)

// marshalRequest encodes a request and splits it into fragments when it
// exceeds the configured fragment size.
func (cli *Client) marshalRequest(req *models.Request, ri *interception.ClientRequestInfo, version protocols.Version,
	charSet, wcharSet codeset.CharSet) ([][]byte, error) {
	m := protocols.NewMessage(version, protocols.MsgRequest, false)
	m.SetCodeSets(charSet, wcharSet)
	hdr := &protocols.RequestHeader{
		RequestID:        ri.RequestID,
		ResponseExpected: ri.ResponseExpected,
		ObjectKey:        req.Target.ObjectKey,
		Operation:        req.Operation,
		ServiceContexts:  ri.RequestContexts,
	}
	if err := hdr.Write(m.Encoder); err != nil {
		return nil, errors.Trace(err)
	}
	mark := protocols.AlignBody(m.Encoder)
	if err := req.Mapping.MarshalArguments(req.Operation, m.Encoder, req.Args); err != nil {
		return nil, errors.Trace(err)
	}
	protocols.TrimEmptyBody(m.Encoder, mark)
	msg := m.Finish()

	if version.Before(protocols.V1_1) {
		return [][]byte{msg}, nil
	}
	return fragment.Split(msg, cli.transport.config.GetFragmentSize())
}
