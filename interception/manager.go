package interception

import (
	"sync"
	"sync/atomic"

	"github.com/juju/errors"

	"github.com/brodyxchen/giop/corba"
)

// Manager holds the interceptors of an ORB. Interceptors are registered
// first; CompleteRegistration then freezes the chains. Until then the
// chains are empty.
type Manager struct {
	mu       sync.Mutex
	complete atomic.Bool

	client registry[ClientRequestInterceptor]
	server registry[ServerRequestInterceptor]
	ior    registry[IORInterceptor]

	// written once under mu before complete is set
	clientChain []ClientRequestInterceptor
	serverChain []ServerRequestInterceptor
	iorChain    []IORInterceptor
}

// registry keeps unnamed interceptors ahead of named ones, each group in
// registration order.
type registry[T Interceptor] struct {
	unnamed []T
	named   []T
	names   map[string]bool
}

func (r *registry[T]) add(i T) error {
	name := i.Name()
	if name == "" {
		r.unnamed = append(r.unnamed, i)
		return nil
	}
	if r.names == nil {
		r.names = make(map[string]bool)
	}
	if r.names[name] {
		return errors.AlreadyExistsf("interceptor %q", name)
	}
	r.names[name] = true
	r.named = append(r.named, i)
	return nil
}

func (r *registry[T]) chain() []T {
	out := make([]T, 0, len(r.unnamed)+len(r.named))
	out = append(out, r.unnamed...)
	return append(out, r.named...)
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) register(add func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.complete.Load() {
		return corba.NewBadInvOrder(corba.MinorRegisterAfterClose, corba.CompletedNo)
	}
	return add()
}

func (m *Manager) AddClientRequestInterceptor(i ClientRequestInterceptor) error {
	return m.register(func() error { return m.client.add(i) })
}

func (m *Manager) AddServerRequestInterceptor(i ServerRequestInterceptor) error {
	return m.register(func() error { return m.server.add(i) })
}

func (m *Manager) AddIORInterceptor(i IORInterceptor) error {
	return m.register(func() error { return m.ior.add(i) })
}

// CompleteRegistration installs the registered interceptors. It may be
// called once.
func (m *Manager) CompleteRegistration() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.complete.Load() {
		return corba.NewBadInvOrder(corba.MinorRegistrationComplete, corba.CompletedMaybe)
	}
	m.clientChain = m.client.chain()
	m.serverChain = m.server.chain()
	m.iorChain = m.ior.chain()
	m.complete.Store(true)
	logger.Debugf("interceptors installed: %d client, %d server, %d ior",
		len(m.clientChain), len(m.serverChain), len(m.iorChain))
	return nil
}

// RegistrationComplete reports whether the chains are frozen.
func (m *Manager) RegistrationComplete() bool {
	return m.complete.Load()
}

// ClientFlow returns a flow over the installed client interceptors
// followed by those of the options.
func (m *Manager) ClientFlow(options ...Option) *ClientFlow {
	var chain []ClientRequestInterceptor
	if m.complete.Load() {
		chain = m.clientChain
	}
	if len(options) > 0 {
		chain = append(append([]ClientRequestInterceptor(nil), chain...), optionClientInterceptors(options)...)
	}
	return NewClientFlow(chain)
}

// ServerFlow returns a flow over the installed server interceptors
// followed by those of the options.
func (m *Manager) ServerFlow(options ...Option) *ServerFlow {
	var chain []ServerRequestInterceptor
	if m.complete.Load() {
		chain = m.serverChain
	}
	if len(options) > 0 {
		chain = append(append([]ServerRequestInterceptor(nil), chain...), optionServerInterceptors(options)...)
	}
	return NewServerFlow(chain)
}

// EstablishComponents lets every IOR interceptor add components to info.
func (m *Manager) EstablishComponents(info *IORInfo) error {
	if !m.complete.Load() {
		return nil
	}
	for _, i := range m.iorChain {
		if err := i.EstablishComponents(info); err != nil {
			return errors.Annotatef(err, "ior interceptor %q", i.Name())
		}
	}
	return nil
}

func optionClientInterceptors(options []Option) []ClientRequestInterceptor {
	var out []ClientRequestInterceptor
	for _, o := range options {
		if i := o.ClientRequestInterceptor(); i != nil {
			out = append(out, i)
		}
	}
	return out
}

func optionServerInterceptors(options []Option) []ServerRequestInterceptor {
	var out []ServerRequestInterceptor
	for _, o := range options {
		if i := o.ServerRequestInterceptor(); i != nil {
			out = append(out, i)
		}
	}
	return out
}
