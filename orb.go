// Package giop ties the protocol engine together: an ORB owns the code
// set service, the interceptors, the client transport and the server and
// runs them as one worker.
package giop

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/worker/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"
	"golang.org/x/sync/errgroup"
	"gopkg.in/tomb.v2"

	"github.com/brodyxchen/giop/client"
	"github.com/brodyxchen/giop/codeset"
	"github.com/brodyxchen/giop/corba"
	"github.com/brodyxchen/giop/interception"
	"github.com/brodyxchen/giop/models"
	"github.com/brodyxchen/giop/protocols"
	"github.com/brodyxchen/giop/server"
	"github.com/brodyxchen/giop/statistics"
	"github.com/brodyxchen/giop/statistics/metrics"
)

var logger = loggo.GetLogger("giop")

// shutdownTimeout bounds the wait for running dispatches when the ORB
// stops.
const shutdownTimeout = 5 * time.Second

// Params holds what NewORB needs besides the configuration. Zero values
// select the wall clock and a private registry.
type Params struct {
	Clock    clock.Clock
	Registry *prometheus.Registry
}

// ORB serves the configured endpoints and makes calls to other ORBs. It
// is a worker: Kill stops it, Wait returns once every listener and
// connection is closed.
type ORB struct {
	Name string

	config       *Config
	tomb         tomb.Tomb
	codeSets     *codeset.Service
	interceptors *interception.Manager
	transport    *client.Transport
	client       *client.Client
	server       *server.Server
	registry     *prometheus.Registry

	listeners []net.Listener
	startOnce sync.Once
	started   chan struct{}
}

// NewORB validates cfg, opens the listeners of its endpoints and starts
// serving them. Interceptors must be registered through Interceptors
// before Start, which completes the registration.
func NewORB(cfg *Config, params Params) (*ORB, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	if params.Clock == nil {
		params.Clock = clock.WallClock
	}
	if params.Registry == nil {
		params.Registry = prometheus.NewRegistry()
	}

	codeSets := codeset.NewService()
	if charSet, wcharSet, _ := cfg.CodeSets.charSets(); charSet != codeset.Unset || wcharSet != codeset.Unset {
		defChar, defWChar := codeset.DefaultCharSet, codeset.DefaultWCharSet
		if charSet != codeset.Unset {
			defChar = charSet
		}
		if wcharSet != codeset.Unset {
			defWChar = wcharSet
		}
		if err := codeSets.OverrideDefaults(defChar, defWChar); err != nil {
			return nil, errors.Trace(err)
		}
	}

	clientStats := statistics.NewClientCollector()
	serverStats := statistics.NewServerCollector()
	for _, c := range []prometheus.Collector{clientStats, serverStats} {
		if err := params.Registry.Register(c); err != nil {
			return nil, errors.Annotate(err, "registering metrics")
		}
	}

	interceptors := interception.NewManager()
	transport, err := client.NewTransport(&cfg.Client, params.Clock, clientStats)
	if err != nil {
		return nil, errors.Trace(err)
	}
	o := &ORB{
		Name:         "orb-" + xid.New().String(),
		config:       cfg,
		codeSets:     codeSets,
		interceptors: interceptors,
		transport:    transport,
		client:       client.NewClient(transport, codeSets, interceptors),
		server:       server.NewServer(&cfg.Server, codeSets, interceptors, transport, serverStats),
		registry:     params.Registry,
		started:      make(chan struct{}),
	}

	for _, ep := range cfg.Endpoints {
		addr, _ := ep.Addr()
		l, err := server.Listen(addr)
		if err != nil {
			o.closeListeners()
			_ = transport.Close()
			return nil, errors.Annotatef(err, "listening on %v", addr.GetAddr())
		}
		o.listeners = append(o.listeners, l)
	}
	if cfg.Client.AllowBidir {
		transport.SetInbound(o.server, o.listenPoints())
	}
	o.tomb.Go(o.loop)
	return o, nil
}

// listenPoints returns the configured bidir listen points, or the tcp
// listeners when none are configured.
func (o *ORB) listenPoints() []protocols.ListenPoint {
	var points []protocols.ListenPoint
	for _, lp := range o.config.BiDir {
		points = append(points, protocols.ListenPoint{Host: lp.Host, Port: lp.Port})
	}
	if len(points) > 0 {
		return points
	}
	for _, l := range o.listeners {
		host, port, err := net.SplitHostPort(l.Addr().String())
		if err != nil {
			continue
		}
		p, err := strconv.ParseUint(port, 10, 16)
		if err != nil || l.Addr().Network() != "tcp" {
			continue
		}
		points = append(points, protocols.ListenPoint{Host: host, Port: uint16(p)})
	}
	return points
}

func (o *ORB) closeListeners() {
	for _, l := range o.listeners {
		_ = l.Close()
	}
}

// Interceptors returns the manager to register interceptors with.
func (o *ORB) Interceptors() *interception.Manager {
	return o.interceptors
}

// CodeSets returns the code set service of the ORB.
func (o *ORB) CodeSets() *codeset.Service {
	return o.codeSets
}

// Transport returns the client transport.
func (o *ORB) Transport() *client.Transport {
	return o.transport
}

// Gatherer returns the registry the ORB metrics are registered on.
func (o *ORB) Gatherer() prometheus.Gatherer {
	return o.registry
}

// Addrs returns the addresses the ORB listens on.
func (o *ORB) Addrs() []net.Addr {
	addrs := make([]net.Addr, 0, len(o.listeners))
	for _, l := range o.listeners {
		addrs = append(addrs, l.Addr())
	}
	return addrs
}

// Handle registers a servant under an object key.
func (o *ORB) Handle(objectKey []byte, servant models.Servant) {
	o.server.Handle(objectKey, servant)
}

// SetLocator installs the answerer of LocateRequests for unknown keys.
func (o *ORB) SetLocator(l server.Locator) {
	o.server.Locator = l
}

// Start completes interceptor registration and starts serving. Later
// calls do nothing.
func (o *ORB) Start() error {
	var err error
	o.startOnce.Do(func() {
		if !o.interceptors.RegistrationComplete() {
			err = o.interceptors.CompleteRegistration()
		}
		close(o.started)
	})
	return errors.Trace(err)
}

// Kill is part of the worker.Worker interface.
func (o *ORB) Kill() {
	o.tomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (o *ORB) Wait() error {
	return o.tomb.Wait()
}

// Close stops the ORB and waits for it.
func (o *ORB) Close() error {
	return worker.Stop(o)
}

func (o *ORB) loop() error {
	select {
	case <-o.started:
	case <-o.tomb.Dying():
		o.closeListeners()
		return errors.Trace(o.transport.Close())
	}

	var logDone <-chan struct{}
	if d := o.config.Metrics.LogInterval; d > 0 {
		logDone = metrics.LogRoutine(o.Name, o.registry, d, o.tomb.Dying())
	}

	var g errgroup.Group
	for _, l := range o.listeners {
		l := l
		g.Go(func() error {
			if err := o.server.Serve(l); err != nil && !errors.Is(err, corba.ErrServerClosed) {
				return errors.Annotatef(err, "serving %v", l.Addr())
			}
			return nil
		})
	}
	served := make(chan error, 1)
	go func() {
		served <- g.Wait()
	}()

	var err error
	select {
	case <-o.tomb.Dying():
		err = tomb.ErrDying
	case err = <-served:
		served = nil
		if err == nil && len(o.listeners) > 0 {
			err = errors.New("listeners closed")
		}
		if err == nil {
			<-o.tomb.Dying()
			err = tomb.ErrDying
		}
	}
	if err != tomb.ErrDying {
		o.tomb.Kill(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := o.server.Shutdown(ctx); serr != nil {
		logger.Warningf("%s shutdown: %v", o.Name, serr)
	}
	o.closeListeners()
	if served != nil {
		<-served
	}
	if terr := o.transport.Close(); terr != nil {
		logger.Warningf("%s closing transport: %v", o.Name, terr)
	}
	if logDone != nil {
		<-logDone
	}
	logger.Debugf("%s stopped", o.Name)
	return err
}

// Components returns the tagged components this ORB advertises in its
// object references: its code sets and whatever the IOR interceptors add.
func (o *ORB) Components() (protocols.TaggedComponents, error) {
	info := &interception.IORInfo{}
	info.AddComponent(protocols.CodeSetComponent(o.codeSets.NativeComponent()))
	if err := o.interceptors.EstablishComponents(info); err != nil {
		return nil, errors.Trace(err)
	}
	return info.Components, nil
}

// Invoke performs a call, see client.Client.Invoke.
func (o *ORB) Invoke(req *models.Request, opts ...interception.Option) (*models.Response, error) {
	return o.client.Invoke(req, opts...)
}

// Locate asks the server of target whether it hosts the object.
func (o *ORB) Locate(ctx context.Context, target *models.Target) (protocols.LocateStatus, []byte, error) {
	return o.client.Locate(ctx, target)
}
