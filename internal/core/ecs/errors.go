package ecs

import (
	"errors"

	"github.com/rotisserie/eris"
)

// Misconfiguration: programmer errors surfaced at registration or first use.
var (
	ErrComponentNotRegistered          = eris.New("component has not been registered before use")
	ErrSingletonComponentNotRegistered = eris.New("singleton component has not been registered before use")
	ErrSystemNotRegistered             = eris.New("system has not been registered before use")
	ErrOverlappingGroups               = eris.New("groups cannot own the same component type")
	ErrInvalidGroupComponent           = eris.New("group references an unregistered component type")
	ErrGroupNotFound                   = eris.New("group not found")
	ErrTooManyComponentTypes           = eris.New("too many component types")
	ErrSystemAlreadyRegistered         = eris.New("system already registered")
	ErrSingletonAlreadyRegistered      = eris.New("singleton component already registered")
	ErrAccessDenied                    = eris.New("component access not declared by system")
	ErrRawAccessUnsupported            = eris.New("component type does not support raw byte access")
	ErrMementoUnsupported              = eris.New("component type does not support mementos")
	ErrRawSizeMismatch                 = eris.New("raw component size mismatch")
)

// Resource exhaustion.
var (
	ErrTooManyEntities = eris.New("too many living entities")
	ErrOutOfRange      = eris.New("index out of range")
)

// Missing state: expected outcomes that callers are meant to handle.
var (
	ErrComponentNotFound      = eris.New("component not found")
	ErrComponentAlreadyExists = eris.New("component already exists on entity")
	ErrEntityNotAlive         = eris.New("entity is not alive")
)

// ErrorKind is the taxonomy an error belongs to.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindMisconfiguration
	KindResourceExhaustion
	KindMissingState
)

func (k ErrorKind) String() string {
	switch k {
	case KindMisconfiguration:
		return "misconfiguration"
	case KindResourceExhaustion:
		return "resource exhaustion"
	case KindMissingState:
		return "missing state"
	default:
		return "unknown"
	}
}

var errorKinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrComponentNotRegistered, KindMisconfiguration},
	{ErrSingletonComponentNotRegistered, KindMisconfiguration},
	{ErrSystemNotRegistered, KindMisconfiguration},
	{ErrOverlappingGroups, KindMisconfiguration},
	{ErrInvalidGroupComponent, KindMisconfiguration},
	{ErrGroupNotFound, KindMisconfiguration},
	{ErrTooManyComponentTypes, KindMisconfiguration},
	{ErrSystemAlreadyRegistered, KindMisconfiguration},
	{ErrSingletonAlreadyRegistered, KindMisconfiguration},
	{ErrAccessDenied, KindMisconfiguration},
	{ErrRawAccessUnsupported, KindMisconfiguration},
	{ErrMementoUnsupported, KindMisconfiguration},
	{ErrRawSizeMismatch, KindMisconfiguration},
	{ErrTooManyEntities, KindResourceExhaustion},
	{ErrOutOfRange, KindResourceExhaustion},
	{ErrComponentNotFound, KindMissingState},
	{ErrComponentAlreadyExists, KindMissingState},
	{ErrEntityNotAlive, KindMissingState},
}

// KindOf classifies err, looking through any wrapping.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}
