package client

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/brodyxchen/giop/corba"
	"github.com/brodyxchen/giop/models"
)

type connPoolSuite struct {
	tp  *Transport
	key connectKey
}

var _ = gc.Suite(&connPoolSuite{})

func (s *connPoolSuite) SetUpTest(c *gc.C) {
	tp, err := NewTransport(&Config{MaxConnectionsPerEndpoint: 2}, clock.WallClock, nil)
	c.Assert(err, jc.ErrorIsNil)
	s.tp = tp
	s.key, err = keyOf(&models.IIOPAddr{Host: "10.0.0.1", Port: 2809})
	c.Assert(err, jc.ErrorIsNil)
}

func (s *connPoolSuite) TearDownTest(c *gc.C) {
	c.Check(s.tp.Close(), jc.ErrorIsNil)
}

// fakeConn returns a connection without a socket, counted in the pool of
// the suite's transport.
func (s *connPoolSuite) fakeConn(c *gc.C, name string) *PersistConn {
	pConn, err := s.tp.connPool.Get(context.Background(), s.key)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(pConn, gc.IsNil)
	pConn = &PersistConn{
		Name:      name,
		key:       s.key,
		transport: s.tp,
		pending:   make(map[uint32]*models.NotifyReceive),
		closedCh:  make(chan struct{}),
	}
	s.tp.connPool.Adopt(pConn)
	return pConn
}

func (s *connPoolSuite) TestInvalidLimit(c *gc.C) {
	_, err := newConnPool(0, nil)
	var se *corba.SystemException
	c.Assert(errors.As(err, &se), jc.IsTrue)
	c.Check(se.Kind, gc.Equals, corba.BadParam)
	c.Check(se.Minor, gc.Equals, corba.MinorMaxConnections)

	_, err = NewTransport(&Config{MaxConnectionsPerEndpoint: -1}, nil, nil)
	c.Check(corba.IsKind(err, corba.BadParam), jc.IsTrue)
}

func (s *connPoolSuite) TestIdleLastInFirstOut(c *gc.C) {
	cp := s.tp.connPool
	first := s.fakeConn(c, "first")
	second := s.fakeConn(c, "second")
	cp.Put(first)
	cp.Put(second)
	c.Check(cp.Exist(first), jc.IsTrue)
	c.Check(cp.Exist(second), jc.IsTrue)

	got, err := cp.Get(context.Background(), s.key)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(got, gc.Equals, second)
	got, err = cp.Get(context.Background(), s.key)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(got, gc.Equals, first)
	c.Check(cp.Exist(first), jc.IsFalse)

	cp.Put(first)
	cp.Put(second)
}

func (s *connPoolSuite) TestLimitBlocksUntilPut(c *gc.C) {
	cp := s.tp.connPool
	first := s.fakeConn(c, "first")
	s.fakeConn(c, "second")
	c.Check(cp.CanInitiateNewConnection(s.key), jc.IsFalse)

	got := make(chan *PersistConn, 1)
	go func() {
		pConn, err := cp.Get(context.Background(), s.key)
		c.Check(err, jc.ErrorIsNil)
		got <- pConn
	}()
	select {
	case <-got:
		c.Fatalf("Get returned while every slot was busy")
	case <-time.After(testing.ShortWait):
	}

	cp.Put(first)
	select {
	case pConn := <-got:
		c.Check(pConn, gc.Equals, first)
	case <-time.After(testing.LongWait):
		c.Fatalf("Get did not return after Put")
	}
}

func (s *connPoolSuite) TestLimitWaitHonoursContext(c *gc.C) {
	cp := s.tp.connPool
	s.fakeConn(c, "first")
	s.fakeConn(c, "second")

	ctx, cancel := context.WithTimeout(context.Background(), testing.ShortWait)
	defer cancel()
	_, err := cp.Get(ctx, s.key)
	c.Check(errors.Is(err, context.DeadlineExceeded), jc.IsTrue)
}

func (s *connPoolSuite) TestClosedConnectionFreesSlot(c *gc.C) {
	cp := s.tp.connPool
	first := s.fakeConn(c, "first")
	s.fakeConn(c, "second")
	c.Check(cp.CanInitiateNewConnection(s.key), jc.IsFalse)

	first.close(corba.ErrConnEarlyClose)
	c.Check(cp.CanInitiateNewConnection(s.key), jc.IsTrue)

	// a closed connection put back is not pooled
	cp.Put(first)
	c.Check(cp.Exist(first), jc.IsFalse)
}

func (s *connPoolSuite) TestUnreserve(c *gc.C) {
	cp := s.tp.connPool
	for i := 0; i < 2; i++ {
		pConn, err := cp.Get(context.Background(), s.key)
		c.Assert(err, jc.ErrorIsNil)
		c.Assert(pConn, gc.IsNil)
	}
	c.Check(cp.CanInitiateNewConnection(s.key), jc.IsFalse)
	cp.Unreserve(s.key)
	c.Check(cp.CanInitiateNewConnection(s.key), jc.IsTrue)
	cp.Unreserve(s.key)
}

func (s *connPoolSuite) TestBidirTakesPrecedence(c *gc.C) {
	cp := s.tp.connPool
	idle := s.fakeConn(c, "idle")
	cp.Put(idle)

	bidir := &PersistConn{
		Name:     "bidir",
		pending:  make(map[uint32]*models.NotifyReceive),
		bidir:    true,
		closedCh: make(chan struct{}),
	}
	c.Check(cp.RegisterBidir(s.key, bidir), jc.IsTrue)
	c.Check(cp.RegisterBidir(s.key, bidir), jc.IsFalse)
	c.Check(cp.CanInitiateNewConnection(s.key), jc.IsFalse)

	got, err := cp.Get(context.Background(), s.key)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(got, gc.Equals, bidir)
	// bidirectional connections are shared, never pooled
	cp.Put(got)
	c.Check(cp.Exist(bidir), jc.IsFalse)

	c.Check(cp.RemoveAllBidir(), gc.Equals, 1)
	got, err = cp.Get(context.Background(), s.key)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(got, gc.Equals, idle)
	cp.Put(got)
}

func (s *connPoolSuite) TestSweepClosesUnused(c *gc.C) {
	cp := s.tp.connPool
	unused := s.fakeConn(c, "unused")
	used := s.fakeConn(c, "used")
	cp.Put(unused)
	cp.Put(used)

	// both were just handed out, so the first sweep only clears the marks
	c.Check(cp.Sweep(), gc.Equals, 0)

	got, err := cp.Get(context.Background(), s.key)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(got, gc.Equals, used)
	cp.Put(got)

	c.Check(cp.Sweep(), gc.Equals, 1)
	c.Check(unused.isClosed(), jc.IsTrue)
	c.Check(errors.Is(unused.closed, corba.ErrConnIdleReaped), jc.IsTrue)
	c.Check(cp.Exist(used), jc.IsTrue)
	c.Check(cp.Exist(unused), jc.IsFalse)
}

func (s *connPoolSuite) TestCloseAll(c *gc.C) {
	cp := s.tp.connPool
	idle := s.fakeConn(c, "idle")
	busy := s.fakeConn(c, "busy")
	cp.Put(idle)

	cp.CloseAll()
	c.Check(idle.isClosed(), jc.IsTrue)
	c.Check(busy.isClosed(), jc.IsFalse)

	_, err := cp.Get(context.Background(), s.key)
	c.Check(errors.Is(err, corba.ErrPoolClosed), jc.IsTrue)

	cp.Put(busy)
	c.Check(busy.isClosed(), jc.IsTrue)
}

func (s *connPoolSuite) TestKeyOf(c *gc.C) {
	key, err := keyOf(&models.VSockAddr{ContextId: 3, Port: 1024})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(key.String(), gc.Equals, "vsock://3:1024")

	key, err = keyOf(&models.IIOPAddr{Host: "localhost", Port: 2809})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(key.String(), gc.Equals, "tcp://localhost:2809")

	for _, addr := range []models.Addr{nil, &models.IIOPAddr{Port: 1}, (*models.VSockAddr)(nil)} {
		_, err = keyOf(addr)
		var se *corba.SystemException
		c.Assert(errors.As(err, &se), jc.IsTrue)
		c.Check(se.Kind, gc.Equals, corba.BadParam)
		c.Check(se.Minor, gc.Equals, corba.MinorMissingEndpoint)
	}
}
