package fragment_test

import (
	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/brodyxchen/giop/corba"
	"github.com/brodyxchen/giop/fragment"
	"github.com/brodyxchen/giop/protocols"
)

type assemblerSuite struct{}

var _ = gc.Suite(&assemblerSuite{})

// replyMessage builds a reply carrying size body octets.
func replyMessage(c *gc.C, v protocols.Version, le bool, id uint32, size int) []byte {
	m := protocols.NewMessage(v, protocols.MsgReply, le)
	(&protocols.ReplyHeader{RequestID: id, Status: protocols.ReplyNoException}).Write(m.Encoder)
	protocols.AlignBody(m.Encoder)
	body := make([]byte, size)
	for i := range body {
		body[i] = byte(i % 251)
	}
	m.WriteOctets(body)
	return m.Finish()
}

func feed(c *gc.C, a *fragment.Assembler, parts [][]byte) (protocols.Header, []byte) {
	for i, part := range parts {
		h, err := protocols.ParseHeader(part)
		c.Assert(err, jc.ErrorIsNil)
		full, msg, done, err := a.Handle(h, part)
		c.Assert(err, jc.ErrorIsNil)
		if i < len(parts)-1 {
			c.Assert(done, jc.IsFalse)
			continue
		}
		c.Assert(done, jc.IsTrue)
		return full, msg
	}
	c.Fatalf("no parts")
	return protocols.Header{}, nil
}

func (s *assemblerSuite) TestFragmentedReplyOfOneHundredThousandBytes(c *gc.C) {
	orig := replyMessage(c, protocols.V1_2, false, 21, 100000)
	parts, err := fragment.Split(orig, 40000)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(parts, gc.HasLen, 3)
	for _, p := range parts {
		c.Check(len(p) <= 40000, jc.IsTrue)
	}

	a := fragment.NewAssembler()
	h, msg := feed(c, a, parts)
	c.Check(msg, jc.DeepEquals, orig)
	c.Check(int(h.Length), gc.Equals, len(orig)-protocols.HeaderSize)
	c.Check(h.MoreFragments(), jc.IsFalse)
	c.Check(h.Type, gc.Equals, protocols.MsgReply)
	c.Check(a.Len(), gc.Equals, 0)

	dec, err := protocols.NewMessageDecoder(h, msg)
	c.Assert(err, jc.ErrorIsNil)
	rh, err := protocols.ReadReplyHeader(dec)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(rh.RequestID, gc.Equals, uint32(21))
	c.Assert(protocols.TryAlignBody(dec), jc.ErrorIsNil)
	c.Check(dec.Remaining(), gc.Equals, 100000)
}

func (s *assemblerSuite) TestReassemblyIsByteIdentical(c *gc.C) {
	for _, v := range []protocols.Version{protocols.V1_1, protocols.V1_2} {
		for _, le := range []bool{false, true} {
			for _, size := range []int{32, 40, 64, 100, 1000} {
				c.Logf("version %v little endian %v size %d", v, le, size)
				orig := replyMessage(c, v, le, 3, 777)
				parts, err := fragment.Split(orig, size)
				c.Assert(err, jc.ErrorIsNil)
				c.Assert(len(parts) >= 2, jc.IsTrue)
				_, msg := feed(c, fragment.NewAssembler(), parts)
				c.Check(msg, jc.DeepEquals, orig)
			}
		}
	}
}

func (s *assemblerSuite) TestPayloadsAlignedToEight(c *gc.C) {
	orig := replyMessage(c, protocols.V1_2, true, 3, 500)
	parts, err := fragment.Split(orig, 100)
	c.Assert(err, jc.ErrorIsNil)
	c.Check((len(parts[0])-protocols.HeaderSize)%8, gc.Equals, 0)
	for _, p := range parts[1 : len(parts)-1] {
		c.Check((len(p)-protocols.HeaderSize-4)%8, gc.Equals, 0)
	}
}

func (s *assemblerSuite) TestInterleavedChainsKeyedByRequestID(c *gc.C) {
	one, err := fragment.Split(replyMessage(c, protocols.V1_2, false, 1, 300), 64)
	c.Assert(err, jc.ErrorIsNil)
	two, err := fragment.Split(replyMessage(c, protocols.V1_2, false, 2, 300), 64)
	c.Assert(err, jc.ErrorIsNil)

	a := fragment.NewAssembler()
	var done []uint32
	for i := 0; i < len(one) || i < len(two); i++ {
		for _, parts := range [][][]byte{one, two} {
			if i >= len(parts) {
				continue
			}
			h, err := protocols.ParseHeader(parts[i])
			c.Assert(err, jc.ErrorIsNil)
			full, msg, ok, err := a.Handle(h, parts[i])
			c.Assert(err, jc.ErrorIsNil)
			if !ok {
				continue
			}
			dec, err := protocols.NewMessageDecoder(full, msg)
			c.Assert(err, jc.ErrorIsNil)
			rh, err := protocols.ReadReplyHeader(dec)
			c.Assert(err, jc.ErrorIsNil)
			done = append(done, rh.RequestID)
		}
	}
	c.Check(done, jc.SameContents, []uint32{1, 2})
}

func (s *assemblerSuite) TestUnfragmentedPassesThrough(c *gc.C) {
	orig := replyMessage(c, protocols.V1_0, false, 1, 10)
	h, err := protocols.ParseHeader(orig)
	c.Assert(err, jc.ErrorIsNil)
	_, msg, ok, err := fragment.NewAssembler().Handle(h, orig)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(ok, jc.IsTrue)
	c.Check(msg, jc.DeepEquals, orig)
}

func (s *assemblerSuite) TestUnknownKeyIsIllegal(c *gc.C) {
	fh := protocols.NewHeader(protocols.V1_2, protocols.MsgFragment, false)
	fh.Length = 8
	msg := append(fh.Marshal(), 0, 0, 0, 9, 1, 2, 3, 4)

	a := fragment.NewAssembler()
	err := a.AddFragment(fh, msg)
	c.Check(errors.Is(err, corba.ErrIllegalFragment), jc.IsTrue)
	_, _, err = a.FinishFragmentedMessage(fh, msg)
	c.Check(errors.Is(err, corba.ErrIllegalFragment), jc.IsTrue)
}

func (s *assemblerSuite) TestVersionOneZeroNeverFragments(c *gc.C) {
	h := protocols.NewHeader(protocols.V1_0, protocols.MsgRequest, false)
	h.Flags |= protocols.FlagFragment
	h.Length = 4
	msg := append(h.Marshal(), 0, 0, 0, 0)
	err := fragment.NewAssembler().StartFragment(h, msg)
	c.Check(errors.Is(err, corba.ErrFragmentNotAllowed), jc.IsTrue)

	_, err = fragment.Split(replyMessage(c, protocols.V1_0, false, 1, 200), 64)
	c.Check(errors.Is(err, corba.ErrFragmentNotAllowed), jc.IsTrue)
}

func (s *assemblerSuite) TestOnlyMessagesWithBodiesStartChains(c *gc.C) {
	h := protocols.NewHeader(protocols.V1_2, protocols.MsgCancelRequest, false)
	h.Flags |= protocols.FlagFragment
	h.Length = 4
	err := fragment.NewAssembler().StartFragment(h, append(h.Marshal(), 0, 0, 0, 1))
	c.Check(errors.Is(err, corba.ErrIllegalFragment), jc.IsTrue)
}

func (s *assemblerSuite) TestChainBeyondLimitIsIllegal(c *gc.C) {
	orig := replyMessage(c, protocols.V1_2, false, 1, 1000)
	parts, err := fragment.Split(orig, 100)
	c.Assert(err, jc.ErrorIsNil)

	// a limit of exactly the body length admits the message
	_, msg := feed(c, fragment.NewLimitedAssembler(len(orig)-protocols.HeaderSize), parts)
	c.Check(msg, jc.DeepEquals, orig)

	a := fragment.NewLimitedAssembler(500)
	for _, part := range parts {
		h, err := protocols.ParseHeader(part)
		c.Assert(err, jc.ErrorIsNil)
		if _, _, _, err = a.Handle(h, part); err != nil {
			c.Check(errors.Is(err, corba.ErrIllegalFragment), jc.IsTrue)
			c.Check(a.Len(), gc.Equals, 0)
			return
		}
	}
	c.Fatalf("message of %d bytes reassembled", len(orig))
}

func (s *assemblerSuite) TestReset(c *gc.C) {
	parts, err := fragment.Split(replyMessage(c, protocols.V1_1, false, 1, 300), 64)
	c.Assert(err, jc.ErrorIsNil)
	a := fragment.NewAssembler()
	h, err := protocols.ParseHeader(parts[0])
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(a.StartFragment(h, parts[0]), jc.ErrorIsNil)
	c.Check(a.Len(), gc.Equals, 1)
	a.Reset()
	c.Check(a.Len(), gc.Equals, 0)
}

func (s *assemblerSuite) TestSplitRejectsTinyLimit(c *gc.C) {
	_, err := fragment.Split(replyMessage(c, protocols.V1_2, false, 1, 200), 20)
	c.Check(err, jc.ErrorIs, errors.NotValid)
}
