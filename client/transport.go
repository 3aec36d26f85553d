package client

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/worker/v4"
	"github.com/mdlayher/vsock"
	"github.com/rs/xid"

	"github.com/brodyxchen/giop/corba"
	"github.com/brodyxchen/giop/fragment"
	"github.com/brodyxchen/giop/models"
	"github.com/brodyxchen/giop/protocols"
	"github.com/brodyxchen/giop/statistics"
)

var logger = loggo.GetLogger("giop.client")

// Transport owns the client connections of an ORB: it dials, pools and
// sweeps them and keeps the connections peers offered for callbacks.
type Transport struct {
	Name string

	config   *Config
	clock    clock.Clock
	connPool *ConnPool
	sweeper  *idleSweeper
	stats    *statistics.ClientCollector

	inboundMutex sync.RWMutex
	inbound      Inbound
	listenPoints []protocols.ListenPoint

	connIndex int64 // atomic visit
}

// NewTransport validates cfg and starts the idle sweeper. The caller must
// Close the transport.
func NewTransport(cfg *Config, clk clock.Clock, stats *statistics.ClientCollector) (*Transport, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if clk == nil {
		clk = clock.WallClock
	}
	pool, err := newConnPool(cfg.GetMaxConnectionsPerEndpoint(), stats)
	if err != nil {
		return nil, err
	}
	tp := &Transport{
		Name:     "transport-" + xid.New().String(),
		config:   cfg,
		clock:    clk,
		connPool: pool,
		stats:    stats,
	}
	tp.sweeper = newIdleSweeper(clk, cfg.GetUnusedKeepAlive(), pool)
	return tp, nil
}

func (tp *Transport) getConnIndex() int64 {
	return atomic.AddInt64(&tp.connIndex, 1)
}

// SetInbound installs the handler for requests peers send over
// connections this side dialed, and the listen points advertised to them.
func (tp *Transport) SetInbound(inbound Inbound, listenPoints []protocols.ListenPoint) {
	tp.inboundMutex.Lock()
	defer tp.inboundMutex.Unlock()
	tp.inbound = inbound
	tp.listenPoints = listenPoints
}

func (tp *Transport) getInbound() Inbound {
	tp.inboundMutex.RLock()
	defer tp.inboundMutex.RUnlock()
	if !tp.config.AllowBidir {
		return nil
	}
	return tp.inbound
}

// ListenPoints returns the endpoints offered to peers for callbacks, or
// nil when bidirectional use is off.
func (tp *Transport) ListenPoints() []protocols.ListenPoint {
	tp.inboundMutex.RLock()
	defer tp.inboundMutex.RUnlock()
	if !tp.config.AllowBidir || tp.inbound == nil {
		return nil
	}
	return tp.listenPoints
}

// GetConnection returns a connection to addr, reusing an idle or
// bidirectional one when possible. The connection must be given back
// with ReleaseConnection.
func (tp *Transport) GetConnection(ctx context.Context, addr models.Addr) (*PersistConn, error) {
	now := tp.clock.Now()
	key, err := keyOf(addr)
	if err != nil {
		return nil, err
	}
	pConn, err := tp.connPool.Get(ctx, key)
	if err != nil {
		if errors.Is(err, corba.ErrPoolClosed) {
			return nil, corba.NewBadInvOrder(corba.MinorShutdown, corba.CompletedNo).WithCause(err)
		}
		return nil, corba.NewTransient(corba.MinorConnectFailed, corba.CompletedNo, err)
	}
	if pConn != nil {
		tp.stats.ObserveConnGet(tp.clock.Now().Sub(now))
		return pConn, nil
	}

	pConn, err = tp.dial(ctx, addr, key)
	if err != nil {
		tp.connPool.Unreserve(key)
		return nil, corba.NewTransient(corba.MinorConnectFailed, corba.CompletedNo, err)
	}
	tp.connPool.Adopt(pConn)
	tp.stats.ObserveConnNew(tp.clock.Now().Sub(now))
	return pConn, nil
}

// ReleaseConnection hands a connection back after a call completed.
func (tp *Transport) ReleaseConnection(pConn *PersistConn) {
	tp.connPool.Put(pConn)
}

// RegisterBidirConnection makes pConn usable for calls to every listen
// point it was offered for. It returns the number of new registrations.
func (tp *Transport) RegisterBidirConnection(pConn *PersistConn, listenPoints []protocols.ListenPoint) int {
	n := 0
	for _, lp := range listenPoints {
		key, err := keyOf(&models.IIOPAddr{Host: lp.Host, Port: lp.Port})
		if err != nil {
			logger.Warningf("ignoring listen point %+v: %v", lp, err)
			continue
		}
		if tp.connPool.RegisterBidir(key, pConn) {
			logger.Debugf("register bidirectional connection %s to %v", pConn.Name, key)
			n++
		}
	}
	return n
}

// CanInitiateNewConnection reports whether a call to addr may dial a new
// connection.
func (tp *Transport) CanInitiateNewConnection(addr models.Addr) (bool, error) {
	key, err := keyOf(addr)
	if err != nil {
		return false, err
	}
	return tp.connPool.CanInitiateNewConnection(key), nil
}

// RemoveAllBidirInitiated stops using connections offered by peers for
// new calls, used when this side stops listening.
func (tp *Transport) RemoveAllBidirInitiated() int {
	return tp.connPool.RemoveAllBidir()
}

// Close stops the sweeper and closes the idle connections.
func (tp *Transport) Close() error {
	err := worker.Stop(tp.sweeper)
	tp.connPool.CloseAll()
	return errors.Trace(err)
}

func (tp *Transport) removeConn(target *PersistConn) {
	tp.connPool.Remove(target)
}

func (tp *Transport) dial(ctx context.Context, addr models.Addr, key connectKey) (*PersistConn, error) {
	var (
		rwConn net.Conn
		err    error
	)
	switch ad := addr.(type) {
	case *models.VSockAddr:
		rwConn, err = vsock.Dial(ad.ContextId, ad.Port, nil)
	case *models.IIOPAddr:
		var d net.Dialer
		rwConn, err = d.DialContext(ctx, "tcp", ad.GetAddr())
	default:
		return nil, errMissingEndpoint()
	}
	if err != nil {
		return nil, errors.Annotatef(err, "dial %v", key)
	}

	name := tp.Name + "-" + strconv.FormatInt(tp.getConnIndex(), 10)
	ids := protocols.NewRequestIDGenerator()
	if tp.config.AllowBidir {
		ids = protocols.NewParityRequestIDGenerator(false)
	}
	pConn := &PersistConn{
		Name:      name,
		key:       key,
		transport: tp,
		desc:      models.NewConnectionDesc(name, true, ids),
		assembler: fragment.NewAssembler(),
		conn:      rwConn,
		sendCh:    make(chan *models.SendRequest, 1),
		pending:   make(map[uint32]*models.NotifyReceive),
		closedCh:  make(chan struct{}),
	}
	pConn.bufReader = bufio.NewReaderSize(pConn, tp.config.GetReadBufferSize())
	pConn.bufWriter = bufio.NewWriterSize(pConn, tp.config.GetWriteBufferSize())

	go pConn.readLoop()
	go pConn.writeLoop()

	logger.Debugf("create conn %s to %v", name, key)
	return pConn, nil
}
