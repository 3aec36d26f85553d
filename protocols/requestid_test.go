package protocols_test

import (
	"math"
	"sync"

	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/brodyxchen/giop/corba"
	"github.com/brodyxchen/giop/protocols"
)

type requestIDSuite struct{}

var _ = gc.Suite(&requestIDSuite{})

func (s *requestIDSuite) TestIncreasingByStep(c *gc.C) {
	for _, t := range []struct {
		gen   *protocols.RequestIDGenerator
		first uint32
		step  uint32
	}{
		{protocols.NewRequestIDGenerator(), 5, 1},
		{protocols.NewParityRequestIDGenerator(true), 6, 2},
		{protocols.NewParityRequestIDGenerator(false), 5, 2},
	} {
		c.Check(t.gen.Step(), gc.Equals, t.step)
		prev, err := t.gen.Generate()
		c.Assert(err, jc.ErrorIsNil)
		c.Check(prev, gc.Equals, t.first)
		for i := 0; i < 100; i++ {
			id, err := t.gen.Generate()
			c.Assert(err, jc.ErrorIsNil)
			c.Assert(id, gc.Equals, prev+t.step)
			prev = id
		}
	}
}

func (s *requestIDSuite) TestConcurrentIDsDistinct(c *gc.C) {
	gen := protocols.NewRequestIDGenerator()
	var (
		mu   sync.Mutex
		seen = make(map[uint32]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				id, err := gen.Generate()
				c.Check(err, jc.ErrorIsNil)
				mu.Lock()
				c.Check(seen[id], jc.IsFalse)
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	c.Check(seen, gc.HasLen, 1600)
}

func (s *requestIDSuite) TestExhaustionIsFatal(c *gc.C) {
	gen := protocols.NewRequestIDGenerator()
	protocols.SetNextRequestID(gen, math.MaxUint32-1)

	id, err := gen.Generate()
	c.Assert(err, jc.ErrorIsNil)
	c.Check(id, gc.Equals, uint32(math.MaxUint32-1))
	id, err = gen.Generate()
	c.Assert(err, jc.ErrorIsNil)
	c.Check(id, gc.Equals, uint32(math.MaxUint32))

	for i := 0; i < 2; i++ {
		_, err = gen.Generate()
		c.Check(err, gc.Equals, corba.ErrRequestIDOverflow)
	}
}

func (s *requestIDSuite) TestParityExhaustion(c *gc.C) {
	gen := protocols.NewParityRequestIDGenerator(true)
	protocols.SetNextRequestID(gen, math.MaxUint32-1)
	_, err := gen.Generate()
	c.Assert(err, jc.ErrorIsNil)
	_, err = gen.Generate()
	c.Check(err, gc.Equals, corba.ErrRequestIDOverflow)
}
