package corba

import (
	"fmt"
	"strings"

	"github.com/juju/errors"
)

// CompletionStatus reports how far an operation got before a system
// exception was raised. The numeric values are the wire values.
type CompletionStatus uint32

const (
	CompletedYes   CompletionStatus = 0
	CompletedNo    CompletionStatus = 1
	CompletedMaybe CompletionStatus = 2
)

func (cs CompletionStatus) String() string {
	switch cs {
	case CompletedYes:
		return "COMPLETED_YES"
	case CompletedNo:
		return "COMPLETED_NO"
	case CompletedMaybe:
		return "COMPLETED_MAYBE"
	}
	return fmt.Sprintf("COMPLETED_%d", uint32(cs))
}

// Kind discriminates the standard CORBA system exceptions.
type Kind int

const (
	Unknown Kind = iota
	BadParam
	NoMemory
	ImpLimit
	CommFailure
	InvObjref
	NoPermission
	Internal
	Marshal
	Initialize
	NoImplement
	BadTypecode
	BadOperation
	NoResources
	NoResponse
	PersistStore
	BadInvOrder
	Transient
	FreeMem
	InvIdent
	InvFlag
	IntfRepos
	BadContext
	ObjAdapter
	DataConversion
	ObjectNotExist
	TransactionRequired
	TransactionRolledback
	InvalidTransaction
	InvPolicy
	CodesetIncompatible
	Rebind
	Timeout
	TransactionUnavailable
	TransactionMode
	BadQos
)

var kindNames = [...]string{
	Unknown:                "UNKNOWN",
	BadParam:               "BAD_PARAM",
	NoMemory:               "NO_MEMORY",
	ImpLimit:               "IMP_LIMIT",
	CommFailure:            "COMM_FAILURE",
	InvObjref:              "INV_OBJREF",
	NoPermission:           "NO_PERMISSION",
	Internal:               "INTERNAL",
	Marshal:                "MARSHAL",
	Initialize:             "INITIALIZE",
	NoImplement:            "NO_IMPLEMENT",
	BadTypecode:            "BAD_TYPECODE",
	BadOperation:           "BAD_OPERATION",
	NoResources:            "NO_RESOURCES",
	NoResponse:             "NO_RESPONSE",
	PersistStore:           "PERSIST_STORE",
	BadInvOrder:            "BAD_INV_ORDER",
	Transient:              "TRANSIENT",
	FreeMem:                "FREE_MEM",
	InvIdent:               "INV_IDENT",
	InvFlag:                "INV_FLAG",
	IntfRepos:              "INTF_REPOS",
	BadContext:             "BAD_CONTEXT",
	ObjAdapter:             "OBJ_ADAPTER",
	DataConversion:         "DATA_CONVERSION",
	ObjectNotExist:         "OBJECT_NOT_EXIST",
	TransactionRequired:    "TRANSACTION_REQUIRED",
	TransactionRolledback:  "TRANSACTION_ROLLEDBACK",
	InvalidTransaction:     "INVALID_TRANSACTION",
	InvPolicy:              "INV_POLICY",
	CodesetIncompatible:    "CODESET_INCOMPATIBLE",
	Rebind:                 "REBIND",
	Timeout:                "TIMEOUT",
	TransactionUnavailable: "TRANSACTION_UNAVAILABLE",
	TransactionMode:        "TRANSACTION_MODE",
	BadQos:                 "BAD_QOS",
}

const (
	repositoryIDPrefix = "IDL:omg.org/CORBA/"
	repositoryIDSuffix = ":1.0"
)

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// RepositoryID returns the IDL repository id used on the wire.
func (k Kind) RepositoryID() string {
	return repositoryIDPrefix + k.String() + repositoryIDSuffix
}

// KindFromRepositoryID maps a repository id back to its Kind. Ids that
// do not name a standard system exception report false.
func KindFromRepositoryID(id string) (Kind, bool) {
	if !strings.HasPrefix(id, repositoryIDPrefix) || !strings.HasSuffix(id, repositoryIDSuffix) {
		return Unknown, false
	}
	name := strings.TrimSuffix(strings.TrimPrefix(id, repositoryIDPrefix), repositoryIDSuffix)
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return Unknown, false
}

// SystemException is a CORBA system exception: a kind, a minor code and a
// completion status. The optional cause is not transmitted.
type SystemException struct {
	Kind      Kind
	Minor     uint32
	Completed CompletionStatus

	cause error
}

// NewSystemException returns a system exception of the given kind.
func NewSystemException(kind Kind, minor uint32, completed CompletionStatus) *SystemException {
	return &SystemException{Kind: kind, Minor: minor, Completed: completed}
}

// WithCause returns a copy of e that unwraps to cause.
func (e *SystemException) WithCause(cause error) *SystemException {
	cp := *e
	cp.cause = cause
	return &cp
}

func (e *SystemException) Error() string {
	msg := fmt.Sprintf("CORBA %s minor %d, %s", e.Kind, e.Minor, e.Completed)
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *SystemException) Unwrap() error {
	return e.cause
}

// RepositoryID returns the repository id of the exception kind.
func (e *SystemException) RepositoryID() string {
	return e.Kind.RepositoryID()
}

// UserException is an application level exception raised by a servant
// and transported as a USER_EXCEPTION reply.
type UserException struct {
	RepositoryID string
	Payload      interface{}
}

func (e *UserException) Error() string {
	return "user exception " + e.RepositoryID
}

// LocationForward is returned when the server redirects the call. The
// body holds the encoded object reference the caller should use.
type LocationForward struct {
	Permanent bool
	Body      []byte
}

func (e *LocationForward) Error() string {
	if e.Permanent {
		return "location forward permanent"
	}
	return "location forward"
}

// IsKind reports whether err is, or wraps, a system exception of kind.
func IsKind(err error, kind Kind) bool {
	var se *SystemException
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}

// AsSystemException converts any error into a system exception. Errors
// that are not system exceptions become UNKNOWN with the given minor code.
func AsSystemException(err error, minor uint32, completed CompletionStatus) *SystemException {
	var se *SystemException
	if errors.As(err, &se) {
		return se
	}
	return NewSystemException(Unknown, minor, completed).WithCause(err)
}

func NewMarshal(minor uint32, completed CompletionStatus) *SystemException {
	return NewSystemException(Marshal, minor, completed)
}

func NewBadParam(minor uint32, completed CompletionStatus) *SystemException {
	return NewSystemException(BadParam, minor, completed)
}

func NewBadInvOrder(minor uint32, completed CompletionStatus) *SystemException {
	return NewSystemException(BadInvOrder, minor, completed)
}

func NewInternal(minor uint32, completed CompletionStatus) *SystemException {
	return NewSystemException(Internal, minor, completed)
}

// NewCommFailure wraps a transport failure as COMM_FAILURE.
func NewCommFailure(minor uint32, completed CompletionStatus, cause error) *SystemException {
	return NewSystemException(CommFailure, minor, completed).WithCause(cause)
}

// NewTransient wraps a retryable transport condition as TRANSIENT.
func NewTransient(minor uint32, completed CompletionStatus, cause error) *SystemException {
	return NewSystemException(Transient, minor, completed).WithCause(cause)
}
