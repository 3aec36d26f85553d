// Package server accepts GIOP connections and serves the requests that
// arrive on them, or on connections dialed by this side when a peer uses
// them for callbacks.
package server

import (
	"context"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/mdlayher/vsock"

	"github.com/brodyxchen/giop/client"
	"github.com/brodyxchen/giop/codeset"
	"github.com/brodyxchen/giop/corba"
	"github.com/brodyxchen/giop/fragment"
	"github.com/brodyxchen/giop/interception"
	"github.com/brodyxchen/giop/models"
	"github.com/brodyxchen/giop/protocols"
	"github.com/brodyxchen/giop/statistics"
)

var logger = loggo.GetLogger("giop.server")

// Locator answers LocateRequests for object keys no servant is
// registered under, for example by forwarding to another server.
type Locator interface {
	Locate(objectKey []byte) (status protocols.LocateStatus, forward []byte)
}

type Server struct {
	config       *Config
	codeSets     *codeset.Service
	interceptors *interception.Manager
	transport    *client.Transport
	stats        *statistics.ServerCollector
	buffers      *bufferPools

	Locator Locator

	servants map[string]models.Servant
	mutex    sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc

	trackMutex sync.Mutex
	listeners  map[net.Listener]struct{}
	conns      map[*Conn]struct{}
	inShutdown atomic.Bool

	connWG     sync.WaitGroup
	dispatchWG sync.WaitGroup

	connIndex int64 // atomic visit
}

// NewServer returns a server without servants. transport may be nil, in
// which case offers of bidirectional connections are ignored.
func NewServer(cfg *Config, codeSets *codeset.Service, interceptors *interception.Manager,
	transport *client.Transport, stats *statistics.ServerCollector) *Server {
	if cfg == nil {
		cfg = &Config{}
	}
	if codeSets == nil {
		codeSets = codeset.NewService()
	}
	if interceptors == nil {
		interceptors = interception.NewManager()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		config:       cfg,
		codeSets:     codeSets,
		interceptors: interceptors,
		transport:    transport,
		stats:        stats,
		buffers:      newBufferPools(cfg.GetReadBufferSize(), cfg.GetWriteBufferSize()),
		servants:     make(map[string]models.Servant),
		ctx:          ctx,
		cancel:       cancel,
		listeners:    make(map[net.Listener]struct{}),
		conns:        make(map[*Conn]struct{}),
	}
}

func (srv *Server) getConnIndex() int64 {
	return atomic.AddInt64(&srv.connIndex, 1)
}

// Handle registers the servant for an object key, replacing any earlier
// one.
func (srv *Server) Handle(objectKey []byte, servant models.Servant) {
	srv.mutex.Lock()
	defer srv.mutex.Unlock()
	srv.servants[string(objectKey)] = servant
}

func (srv *Server) getServant(objectKey []byte) models.Servant {
	srv.mutex.RLock()
	defer srv.mutex.RUnlock()
	return srv.servants[string(objectKey)]
}

// Listen opens a listener on a tcp or vsock endpoint.
func Listen(addr models.Addr) (net.Listener, error) {
	switch adr := addr.(type) {
	case *models.VSockAddr:
		return vsock.ListenContextID(adr.ContextId, adr.Port, nil)
	case *models.IIOPAddr:
		return net.Listen("tcp", adr.GetAddr())
	}
	return nil, errors.NotValidf("listen address %v", addr)
}

func (srv *Server) ListenAndServe(addr models.Addr) error {
	ln, err := Listen(addr)
	if err != nil {
		return errors.Trace(err)
	}
	return srv.Serve(ln)
}

// Serve accepts connections on l until the listener fails or the server
// shuts down, in which case corba.ErrServerClosed is returned.
func (srv *Server) Serve(l net.Listener) error {
	if !srv.trackListener(l, true) {
		_ = l.Close()
		return corba.ErrServerClosed
	}
	defer srv.trackListener(l, false)
	defer l.Close()
	logger.Debugf("serving on %v", l.Addr())

	var tempDelay time.Duration // how long to sleep on accept failure

	for {
		rw, err := l.Accept()
		if err != nil {
			if srv.inShutdown.Load() {
				return corba.ErrServerClosed
			}
			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				tempDelay = srv.sleep(tempDelay)
				continue
			}
			return errors.Trace(err)
		}
		tempDelay = 0

		c := srv.newConn(rw)
		if !srv.trackConn(c, true) {
			_ = rw.Close()
			return corba.ErrServerClosed
		}
		srv.connWG.Add(1)
		go func() {
			defer srv.connWG.Done()
			defer srv.trackConn(c, false)
			c.serve(srv.ctx)
		}()
	}
}

// Create new connection from rwc.
func (srv *Server) newConn(rwc net.Conn) *Conn {
	name := "srv-" + strconv.FormatInt(srv.getConnIndex(), 10)
	return &Conn{
		Name:      name,
		server:    srv,
		rwc:       rwc,
		desc:      models.NewConnectionDesc(name, false, protocols.NewParityRequestIDGenerator(true)),
		assembler: fragment.NewAssembler(),
	}
}

func (srv *Server) trackListener(l net.Listener, add bool) bool {
	srv.trackMutex.Lock()
	defer srv.trackMutex.Unlock()
	if add {
		if srv.inShutdown.Load() {
			return false
		}
		srv.listeners[l] = struct{}{}
	} else {
		delete(srv.listeners, l)
	}
	return true
}

func (srv *Server) trackConn(c *Conn, add bool) bool {
	srv.trackMutex.Lock()
	defer srv.trackMutex.Unlock()
	if add {
		if srv.inShutdown.Load() {
			return false
		}
		srv.conns[c] = struct{}{}
	} else {
		delete(srv.conns, c)
	}
	return true
}

// Shutdown stops accepting, tells every peer with CloseConnection and
// closes the connections, then waits for running dispatches until ctx
// ends.
func (srv *Server) Shutdown(ctx context.Context) error {
	srv.trackMutex.Lock()
	srv.inShutdown.Store(true)
	listeners := make([]net.Listener, 0, len(srv.listeners))
	for l := range srv.listeners {
		listeners = append(listeners, l)
	}
	conns := make([]*Conn, 0, len(srv.conns))
	for c := range srv.conns {
		conns = append(conns, c)
	}
	srv.trackMutex.Unlock()

	for _, l := range listeners {
		_ = l.Close()
	}
	for _, c := range conns {
		c.closeConnection(ctx)
	}
	if srv.transport != nil {
		if n := srv.transport.RemoveAllBidirInitiated(); n > 0 {
			logger.Debugf("dropped %d bidirectional connections", n)
		}
	}
	srv.cancel()

	done := make(chan struct{})
	go func() {
		srv.connWG.Wait()
		srv.dispatchWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Annotate(ctx.Err(), "waiting for connections")
	}
}

func (srv *Server) doKeepAlives() bool {
	return !srv.config.DisableKeepAlives
}

func (srv *Server) sleep(tempDelay time.Duration) time.Duration {
	if tempDelay == 0 {
		tempDelay = 5 * time.Millisecond
	} else {
		tempDelay *= 2
	}
	if max := 1 * time.Second; tempDelay > max {
		tempDelay = max
	}
	time.Sleep(tempDelay)
	return tempDelay
}
