package interception

import "github.com/juju/loggo/v2"

var logger = loggo.GetLogger("giop.interception")

// ClientFlow drives the client interceptors of one call.
type ClientFlow struct {
	Flow
	interceptors []ClientRequestInterceptor
}

func NewClientFlow(interceptors []ClientRequestInterceptor) *ClientFlow {
	return &ClientFlow{Flow: NewFlow(len(interceptors)), interceptors: interceptors}
}

// Len returns the number of interceptors in the chain.
func (f *ClientFlow) Len() int {
	return len(f.interceptors)
}

func (f *ClientFlow) run(point func(ClientRequestInterceptor) error) error {
	for f.ProceedToNext() {
		if err := point(f.interceptors[f.Current()]); err != nil {
			return err
		}
	}
	return nil
}

// SendRequest stops at the first failing interceptor. The cursor stays on
// it, so switching to the reply direction skips it.
func (f *ClientFlow) SendRequest(ri *ClientRequestInfo) error {
	return f.run(func(i ClientRequestInterceptor) error { return i.SendRequest(ri) })
}

func (f *ClientFlow) ReceiveReply(ri *ClientRequestInfo) error {
	return f.run(func(i ClientRequestInterceptor) error { return i.ReceiveReply(ri) })
}

func (f *ClientFlow) ReceiveOther(ri *ClientRequestInfo) error {
	return f.run(func(i ClientRequestInterceptor) error { return i.ReceiveOther(ri) })
}

// ReceiveException visits every remaining interceptor. An interceptor
// error replaces the exception seen by the following ones; the last
// exception is returned.
func (f *ClientFlow) ReceiveException(ri *ClientRequestInfo, received error) error {
	ri.Exception = received
	for f.ProceedToNext() {
		i := f.interceptors[f.Current()]
		if err := i.ReceiveException(ri); err != nil {
			logger.Warningf("client interceptor %q replaced %v with %v", i.Name(), ri.Exception, err)
			ri.Exception = err
		}
	}
	return ri.Exception
}

// ServerFlow drives the server interceptors of one request.
type ServerFlow struct {
	Flow
	interceptors []ServerRequestInterceptor
}

func NewServerFlow(interceptors []ServerRequestInterceptor) *ServerFlow {
	return &ServerFlow{Flow: NewFlow(len(interceptors)), interceptors: interceptors}
}

func (f *ServerFlow) Len() int {
	return len(f.interceptors)
}

func (f *ServerFlow) run(point func(ServerRequestInterceptor) error) error {
	for f.ProceedToNext() {
		if err := point(f.interceptors[f.Current()]); err != nil {
			return err
		}
	}
	return nil
}

func (f *ServerFlow) ReceiveRequestServiceContexts(ri *ServerRequestInfo) error {
	return f.run(func(i ServerRequestInterceptor) error { return i.ReceiveRequestServiceContexts(ri) })
}

func (f *ServerFlow) ReceiveRequest(ri *ServerRequestInfo) error {
	return f.run(func(i ServerRequestInterceptor) error { return i.ReceiveRequest(ri) })
}

func (f *ServerFlow) SendReply(ri *ServerRequestInfo) error {
	return f.run(func(i ServerRequestInterceptor) error { return i.SendReply(ri) })
}

func (f *ServerFlow) SendOther(ri *ServerRequestInfo) error {
	return f.run(func(i ServerRequestInterceptor) error { return i.SendOther(ri) })
}

// SendException visits every remaining interceptor, like
// ClientFlow.ReceiveException.
func (f *ServerFlow) SendException(ri *ServerRequestInfo, sent error) error {
	ri.Exception = sent
	for f.ProceedToNext() {
		i := f.interceptors[f.Current()]
		if err := i.SendException(ri); err != nil {
			logger.Warningf("server interceptor %q replaced %v with %v", i.Name(), ri.Exception, err)
			ri.Exception = err
		}
	}
	return ri.Exception
}
