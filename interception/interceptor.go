package interception

// Interceptor is implemented by every interceptor. Interceptors with a
// non empty name must be unique within their kind.
type Interceptor interface {
	Name() string
}

// ClientRequestInterceptor sees outgoing requests. SendRequest is called
// in registration order, the receive points in reverse order.
type ClientRequestInterceptor interface {
	Interceptor
	SendRequest(ri *ClientRequestInfo) error
	ReceiveReply(ri *ClientRequestInfo) error
	ReceiveException(ri *ClientRequestInfo) error
	ReceiveOther(ri *ClientRequestInfo) error
}

// ServerRequestInterceptor sees incoming requests. The receive points are
// called in registration order, the send points in reverse order.
type ServerRequestInterceptor interface {
	Interceptor
	ReceiveRequestServiceContexts(ri *ServerRequestInfo) error
	ReceiveRequest(ri *ServerRequestInfo) error
	SendReply(ri *ServerRequestInfo) error
	SendException(ri *ServerRequestInfo) error
	SendOther(ri *ServerRequestInfo) error
}

// IORInterceptor contributes tagged components to the profiles of object
// references created by this process.
type IORInterceptor interface {
	Interceptor
	EstablishComponents(info *IORInfo) error
}

// Option adds interceptors to a single call. Either method may return nil
// when the option does not apply to that side.
type Option interface {
	ClientRequestInterceptor() ClientRequestInterceptor
	ServerRequestInterceptor() ServerRequestInterceptor
}
