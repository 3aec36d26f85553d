package protocols_test

import (
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/brodyxchen/giop/cdr"
	"github.com/brodyxchen/giop/corba"
	"github.com/brodyxchen/giop/protocols"
)

type messageSuite struct{}

var _ = gc.Suite(&messageSuite{})

var versions = []protocols.Version{protocols.V1_0, protocols.V1_1, protocols.V1_2}

func parse(c *gc.C, b []byte) *cdr.Decoder {
	h, err := protocols.ParseHeader(b)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(int(h.Length), gc.Equals, len(b)-protocols.HeaderSize)
	dec, err := protocols.NewMessageDecoder(h, b)
	c.Assert(err, jc.ErrorIsNil)
	return dec
}

func (s *messageSuite) TestRequestRoundTrip(c *gc.C) {
	for _, v := range versions {
		for _, le := range []bool{false, true} {
			c.Logf("version %v little endian %v", v, le)
			in := &protocols.RequestHeader{
				RequestID:        12,
				ResponseExpected: true,
				ObjectKey:        []byte("echo"),
				Operation:        "add",
				ServiceContexts: protocols.ServiceContextList{
					{ID: protocols.ServiceSendingContext, Data: []byte{1, 2, 3}},
				},
			}
			m := protocols.NewMessage(v, protocols.MsgRequest, le)
			c.Assert(in.Write(m.Encoder), jc.ErrorIsNil)
			protocols.AlignBody(m.Encoder)
			m.WriteLong(42)

			dec := parse(c, m.Finish())
			out, err := protocols.ReadRequestHeader(dec)
			c.Assert(err, jc.ErrorIsNil)
			c.Check(out, jc.DeepEquals, in)
			c.Assert(protocols.TryAlignBody(dec), jc.ErrorIsNil)
			arg, err := dec.ReadLong()
			c.Assert(err, jc.ErrorIsNil)
			c.Check(arg, gc.Equals, int32(42))
			c.Check(dec.Remaining(), gc.Equals, 0)
		}
	}
}

func (s *messageSuite) TestRequestResponseFlags(c *gc.C) {
	h := &protocols.RequestHeader{RequestID: 1, ObjectKey: []byte("k"), Operation: "op"}
	m := protocols.NewMessage(protocols.V1_2, protocols.MsgRequest, false)
	c.Assert(h.Write(m.Encoder), jc.ErrorIsNil)
	b := m.Finish()
	c.Check(b[protocols.HeaderSize+4], gc.Equals, protocols.ResponseNone)

	h.ResponseExpected = true
	m = protocols.NewMessage(protocols.V1_2, protocols.MsgRequest, false)
	c.Assert(h.Write(m.Encoder), jc.ErrorIsNil)
	b = m.Finish()
	c.Check(b[protocols.HeaderSize+4], gc.Equals, protocols.ResponseExpected)
}

func (s *messageSuite) TestUnsupportedTargetAddress(c *gc.C) {
	m := protocols.NewMessage(protocols.V1_2, protocols.MsgRequest, false)
	m.WriteULong(3)
	m.WriteOctet(protocols.ResponseExpected)
	m.WriteOctets([]byte{0, 0, 0})
	m.WriteShort(protocols.ProfileAddr)
	m.WriteOctetSeq([]byte("profile"))

	_, err := protocols.ReadRequestHeader(parse(c, m.Finish()))
	c.Assert(corba.IsKind(err, corba.BadParam), jc.IsTrue)
	c.Check(err.(*corba.SystemException).Minor, gc.Equals, corba.MinorUnknownTargetAddress)
}

func (s *messageSuite) TestEmptyBodyPaddingTrimmed(c *gc.C) {
	h := &protocols.ReplyHeader{
		RequestID:       7,
		Status:          protocols.ReplyNoException,
		ServiceContexts: protocols.ServiceContextList{{ID: protocols.ServiceSendingContext, Data: []byte{1}}},
	}
	m := protocols.NewMessage(protocols.V1_2, protocols.MsgReply, false)
	h.Write(m.Encoder)
	mark := protocols.AlignBody(m.Encoder)
	c.Check(m.Len(), gc.Equals, 40)
	protocols.TrimEmptyBody(m.Encoder, mark)
	c.Check(m.Len(), gc.Equals, 33)

	dec := parse(c, m.Finish())
	out, err := protocols.ReadReplyHeader(dec)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(out.RequestID, gc.Equals, uint32(7))
	c.Assert(protocols.TryAlignBody(dec), jc.ErrorIsNil)
}

func (s *messageSuite) TestNonEmptyBodyKeepsPadding(c *gc.C) {
	m := protocols.NewMessage(protocols.V1_2, protocols.MsgReply, false)
	(&protocols.ReplyHeader{RequestID: 7}).Write(m.Encoder)
	m.WriteOctet(1)
	mark := protocols.AlignBody(m.Encoder)
	m.WriteLong(43)
	protocols.TrimEmptyBody(m.Encoder, mark)
	c.Check(m.Len(), gc.Equals, 36)
}

func (s *messageSuite) TestReplyRoundTrip(c *gc.C) {
	for _, v := range versions {
		c.Logf("version %v", v)
		in := &protocols.ReplyHeader{
			RequestID: 99,
			Status:    protocols.ReplySystemException,
			ServiceContexts: protocols.ServiceContextList{
				{ID: protocols.ServiceCodeSets, Data: []byte{0, 1}},
			},
		}
		m := protocols.NewMessage(v, protocols.MsgReply, true)
		in.Write(m.Encoder)
		protocols.AlignBody(m.Encoder)
		ex := corba.NewSystemException(corba.ObjectNotExist, 1, corba.CompletedNo)
		c.Assert(protocols.WriteSystemException(m.Encoder, ex), jc.ErrorIsNil)

		dec := parse(c, m.Finish())
		out, err := protocols.ReadReplyHeader(dec)
		c.Assert(err, jc.ErrorIsNil)
		c.Check(out, jc.DeepEquals, in)
		c.Assert(protocols.TryAlignBody(dec), jc.ErrorIsNil)
		got, err := protocols.ReadSystemException(dec)
		c.Assert(err, jc.ErrorIsNil)
		c.Check(got, jc.DeepEquals, ex)
	}
}

func (s *messageSuite) TestUnknownSystemExceptionID(c *gc.C) {
	enc := cdr.NewEncoder(protocols.V1_2, false)
	c.Assert(enc.WriteString("IDL:acme.com/Custom:1.0"), jc.ErrorIsNil)
	enc.WriteULong(42)
	enc.WriteULong(uint32(corba.CompletedYes))

	ex, err := protocols.ReadSystemException(cdr.NewDecoder(enc.Bytes(), protocols.V1_2, false))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(ex.Kind, gc.Equals, corba.Unknown)
	c.Check(ex.Minor, gc.Equals, uint32(42))
	c.Check(ex.Completed, gc.Equals, corba.CompletedYes)
}

func (s *messageSuite) TestLocateRoundTrip(c *gc.C) {
	for _, v := range versions {
		c.Logf("version %v", v)
		m := protocols.NewMessage(v, protocols.MsgLocateRequest, false)
		(&protocols.LocateRequestHeader{RequestID: 5, ObjectKey: []byte("obj")}).Write(m.Encoder)
		req, err := protocols.ReadLocateRequestHeader(parse(c, m.Finish()))
		c.Assert(err, jc.ErrorIsNil)
		c.Check(req.RequestID, gc.Equals, uint32(5))
		c.Check(req.ObjectKey, jc.DeepEquals, []byte("obj"))

		m = protocols.NewMessage(v, protocols.MsgLocateReply, false)
		(&protocols.LocateReplyHeader{RequestID: 5, Status: protocols.LocateObjectHere}).Write(m.Encoder)
		rep, err := protocols.ReadLocateReplyHeader(parse(c, m.Finish()))
		c.Assert(err, jc.ErrorIsNil)
		c.Check(rep.Status, gc.Equals, protocols.LocateObjectHere)
	}
}

func (s *messageSuite) TestStatusNames(c *gc.C) {
	c.Check(protocols.ReplyLocationForwardPerm.String(), gc.Equals, "LOCATION_FORWARD_PERM")
	c.Check(protocols.ReplyStatus(9).String(), gc.Equals, "ReplyStatus(9)")
	c.Check(protocols.LocateUnknownObject.String(), gc.Equals, "UNKNOWN_OBJECT")
	c.Check(protocols.MsgFragment.String(), gc.Equals, "Fragment")
}
