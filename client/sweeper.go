package client

import (
	"time"

	"github.com/juju/clock"
	"gopkg.in/tomb.v2"
)

// idleSweeper periodically sweeps a ConnPool. The first sweep runs after
// two periods so a connection released right after start survives at
// least one full period unused.
type idleSweeper struct {
	tomb   tomb.Tomb
	clock  clock.Clock
	period time.Duration
	pool   *ConnPool
}

func newIdleSweeper(clk clock.Clock, period time.Duration, pool *ConnPool) *idleSweeper {
	s := &idleSweeper{
		clock:  clk,
		period: period,
		pool:   pool,
	}
	s.tomb.Go(s.loop)
	return s
}

// Kill is part of the worker.Worker interface.
func (s *idleSweeper) Kill() {
	s.tomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (s *idleSweeper) Wait() error {
	return s.tomb.Wait()
}

func (s *idleSweeper) loop() error {
	timer := s.clock.NewTimer(2 * s.period)
	defer timer.Stop()
	for {
		select {
		case <-s.tomb.Dying():
			return tomb.ErrDying
		case <-timer.Chan():
			s.pool.Sweep()
			timer.Reset(s.period)
		}
	}
}
