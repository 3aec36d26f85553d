package models_test

import (
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/brodyxchen/giop/codeset"
	"github.com/brodyxchen/giop/models"
	"github.com/brodyxchen/giop/protocols"
)

type connectionSuite struct{}

var _ = gc.Suite(&connectionSuite{})

func (s *connectionSuite) TestDefaults(c *gc.C) {
	d := models.NewConnectionDesc("c1", true, protocols.NewRequestIDGenerator())
	cs, wcs, negotiated := d.CodeSets()
	c.Assert(cs, gc.Equals, codeset.Latin1)
	c.Assert(wcs, gc.Equals, codeset.UTF16)
	c.Assert(negotiated, jc.IsFalse)
	c.Assert(d.InitiatedLocally, jc.IsTrue)
}

func (s *connectionSuite) TestFirstCodeSetsWin(c *gc.C) {
	d := models.NewConnectionDesc("c1", false, protocols.NewRequestIDGenerator())
	c.Assert(d.SetCodeSets(codeset.UTF8, codeset.UTF16), jc.IsTrue)
	c.Assert(d.SetCodeSets(codeset.ISO646, codeset.UCS2), jc.IsFalse)

	cs, wcs, negotiated := d.CodeSets()
	c.Assert(cs, gc.Equals, codeset.UTF8)
	c.Assert(wcs, gc.Equals, codeset.UTF16)
	c.Assert(negotiated, jc.IsTrue)
}

func (s *connectionSuite) TestRequestIDs(c *gc.C) {
	d := models.NewConnectionDesc("c1", true, protocols.NewParityRequestIDGenerator(false))
	first, err := d.GenerateRequestID()
	c.Assert(err, jc.ErrorIsNil)
	second, err := d.GenerateRequestID()
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(first%2, gc.Equals, uint32(1))
	c.Assert(second, gc.Equals, first+2)
}

func (s *connectionSuite) TestCancelInFlight(c *gc.C) {
	d := models.NewConnectionDesc("srv-1", false, protocols.NewRequestIDGenerator())
	c.Assert(d.CancelRequest(7), jc.IsFalse)

	d.StartRequest(7)
	d.StartRequest(8)
	c.Assert(d.CancelRequest(7), jc.IsTrue)
	c.Assert(d.FinishRequest(7), jc.IsTrue)
	c.Assert(d.FinishRequest(8), jc.IsFalse)

	// finished requests are forgotten
	c.Assert(d.CancelRequest(7), jc.IsFalse)
}
