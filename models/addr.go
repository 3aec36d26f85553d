package models

import (
	"net"
	"strconv"
)

// Addr is an endpoint a connection can be dialed to or listened on.
type Addr interface {
	GetAddr() string
	Network() string
}

type VSockAddr struct {
	ContextId uint32
	Port      uint32
}

func (va *VSockAddr) GetAddr() string {
	return strconv.FormatUint(uint64(va.ContextId), 10) + ":" + strconv.FormatUint(uint64(va.Port), 10)
}

func (va *VSockAddr) Network() string {
	return "vsock"
}

// IIOPAddr is a TCP endpoint as found in an IIOP profile or a bidir
// listen point.
type IIOPAddr struct {
	Host string
	Port uint16
}

func (ia *IIOPAddr) GetAddr() string {
	return net.JoinHostPort(ia.Host, strconv.FormatUint(uint64(ia.Port), 10))
}

func (ia *IIOPAddr) Network() string {
	return "tcp"
}
