package statistics_test

import (
	"time"

	jc "github.com/juju/testing/checkers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	gc "gopkg.in/check.v1"

	"github.com/brodyxchen/giop/statistics"
	"github.com/brodyxchen/giop/statistics/metrics"
)

type collectorSuite struct{}

var _ = gc.Suite(&collectorSuite{})

func (s *collectorSuite) TestNilCollectorsRecordNothing(c *gc.C) {
	var cc *statistics.ClientCollector
	cc.ObserveConnGet(time.Second)
	cc.IncRequest("ok")
	var sc *statistics.ServerCollector
	sc.ConnOpened()
	sc.IncRequest("NO_EXCEPTION")
}

func (s *collectorSuite) TestRegisterAndFormat(c *gc.C) {
	reg := prometheus.NewRegistry()
	cc := statistics.NewClientCollector()
	sc := statistics.NewServerCollector()
	c.Assert(reg.Register(cc), jc.ErrorIsNil)
	c.Assert(reg.Register(sc), jc.ErrorIsNil)

	cc.IncRequest("ok")
	cc.IncRequest("ok")
	cc.AddReaped(3)
	cc.ObserveRoundTrip(10 * time.Millisecond)
	sc.ConnOpened()
	sc.IncRequest("NO_EXCEPTION")

	count, err := testutil.GatherAndCount(reg, "giop_client_requests_total", "giop_client_reaped_connections_total")
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(count, gc.Equals, 2)

	msg, err := metrics.Format("orb", reg)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(msg, jc.HasPrefix, "orb counter(3):{")
	c.Assert(msg, jc.Contains, "giop_client_requests_total{outcome=ok}: 2")
	c.Assert(msg, jc.Contains, "giop_client_reaped_connections_total: 3")
	c.Assert(msg, jc.Contains, "gauge(1):{giop_server_connections: 1}")
	c.Assert(msg, jc.Contains, "giop_client_round_trip_seconds: count=1")
}

func (s *collectorSuite) TestFormatEmpty(c *gc.C) {
	msg, err := metrics.Format("idle", prometheus.NewRegistry())
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(msg, gc.Equals, "idle")
}

func (s *collectorSuite) TestLogRoutineStops(c *gc.C) {
	closeCh := make(chan struct{})
	done := metrics.LogRoutine("orb", prometheus.NewRegistry(), time.Millisecond, closeCh)
	close(closeCh)
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		c.Fatalf("log routine did not stop")
	}
}
