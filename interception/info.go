package interception

import (
	"github.com/brodyxchen/giop/corba"
	"github.com/brodyxchen/giop/models"
	"github.com/brodyxchen/giop/protocols"
)

// MinorDuplicateServiceContext is raised when an interceptor adds a
// service context that is already present without asking to replace it.
const MinorDuplicateServiceContext uint32 = 11

func addServiceContext(l *protocols.ServiceContextList, sc protocols.ServiceContext, replace bool) error {
	if replace {
		l.Set(sc)
		return nil
	}
	if !l.Add(sc) {
		return corba.NewBadInvOrder(MinorDuplicateServiceContext, corba.CompletedNo)
	}
	return nil
}

// ClientRequestInfo is what client interceptors see of a call.
type ClientRequestInfo struct {
	RequestID        uint32
	Operation        string
	ResponseExpected bool
	Target           *models.Target
	Conn             *models.ConnectionDesc

	RequestContexts protocols.ServiceContextList
	ReplyContexts   protocols.ServiceContextList

	ReplyStatus protocols.ReplyStatus
	// Exception is the error the call completes with, if any.
	Exception error
	// ForwardReference is the encoded reference of a location forward.
	ForwardReference []byte
}

// AddRequestServiceContext attaches a context to the outgoing request.
func (ri *ClientRequestInfo) AddRequestServiceContext(sc protocols.ServiceContext, replace bool) error {
	return addServiceContext(&ri.RequestContexts, sc, replace)
}

func (ri *ClientRequestInfo) RequestServiceContext(id uint32) (protocols.ServiceContext, bool) {
	return ri.RequestContexts.Get(id)
}

func (ri *ClientRequestInfo) ReplyServiceContext(id uint32) (protocols.ServiceContext, bool) {
	return ri.ReplyContexts.Get(id)
}

// ServerRequestInfo is what server interceptors see of a request.
type ServerRequestInfo struct {
	RequestID        uint32
	Operation        string
	ResponseExpected bool
	ObjectKey        []byte
	Conn             *models.ConnectionDesc
	Session          models.Session

	RequestContexts protocols.ServiceContextList
	ReplyContexts   protocols.ServiceContextList

	ReplyStatus protocols.ReplyStatus
	Exception   error
}

func (ri *ServerRequestInfo) RequestServiceContext(id uint32) (protocols.ServiceContext, bool) {
	return ri.RequestContexts.Get(id)
}

// AddReplyServiceContext attaches a context to the reply.
func (ri *ServerRequestInfo) AddReplyServiceContext(sc protocols.ServiceContext, replace bool) error {
	return addServiceContext(&ri.ReplyContexts, sc, replace)
}

// IORInfo collects the components of a profile under construction.
type IORInfo struct {
	Components protocols.TaggedComponents
}

func (info *IORInfo) AddComponent(tc protocols.TaggedComponent) {
	info.Components = append(info.Components, tc)
}
