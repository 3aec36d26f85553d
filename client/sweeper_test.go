package client

import (
	"context"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	"github.com/juju/worker/v4/workertest"
	gc "gopkg.in/check.v1"

	"github.com/brodyxchen/giop/models"
)

type sweeperSuite struct{}

var _ = gc.Suite(&sweeperSuite{})

const sweepPeriod = time.Minute

func (s *sweeperSuite) TestSweepsAfterTwoPeriods(c *gc.C) {
	clk := testclock.NewClock(time.Now())
	tp, err := NewTransport(&Config{UnusedKeepAlive: sweepPeriod}, clk, nil)
	c.Assert(err, jc.ErrorIsNil)
	defer func() { c.Check(tp.Close(), jc.ErrorIsNil) }()

	key, err := keyOf(&models.IIOPAddr{Host: "10.0.0.2", Port: 2809})
	c.Assert(err, jc.ErrorIsNil)
	_, err = tp.connPool.Get(context.Background(), key)
	c.Assert(err, jc.ErrorIsNil)
	pConn := &PersistConn{
		Name:      "swept",
		key:       key,
		transport: tp,
		pending:   make(map[uint32]*models.NotifyReceive),
		closedCh:  make(chan struct{}),
	}
	tp.connPool.Adopt(pConn)
	tp.ReleaseConnection(pConn)

	// the first sweep only clears the access mark
	c.Assert(clk.WaitAdvance(2*sweepPeriod, testing.ShortWait, 1), jc.ErrorIsNil)
	c.Assert(clk.WaitAdvance(sweepPeriod, testing.LongWait, 1), jc.ErrorIsNil)

	select {
	case <-pConn.closedCh:
	case <-time.After(testing.LongWait):
		c.Fatalf("idle connection not swept")
	}
	c.Check(tp.connPool.Exist(pConn), jc.IsFalse)
}

func (s *sweeperSuite) TestKill(c *gc.C) {
	tp, err := NewTransport(&Config{}, testclock.NewClock(time.Now()), nil)
	c.Assert(err, jc.ErrorIsNil)
	workertest.CheckKill(c, tp.sweeper)
	tp.connPool.CloseAll()
}
