package ecs

import (
	"reflect"

	"github.com/rotisserie/eris"
)

// SingletonManager holds exactly one instance per registered type, outside
// entity space. Instances live until the world is closed and their addresses
// never change.
type SingletonManager struct {
	values map[reflect.Type]any
}

func NewSingletonManager() *SingletonManager {
	return &SingletonManager{values: make(map[reflect.Type]any)}
}

func registerSingleton[T any](sm *SingletonManager, v T) error {
	typ := reflect.TypeFor[T]()
	if _, ok := sm.values[typ]; ok {
		return eris.Wrapf(ErrSingletonAlreadyRegistered, "%v", typ)
	}
	p := new(T)
	*p = v
	sm.values[typ] = p
	return nil
}

// getSingleton returns a copy of the T instance.
func getSingleton[T any](sm *SingletonManager) (T, error) {
	p, err := getSingletonMutable[T](sm)
	if err != nil {
		var zero T
		return zero, err
	}
	return *p, nil
}

func getSingletonMutable[T any](sm *SingletonManager) (*T, error) {
	p, err := sm.get(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	return p.(*T), nil
}

func (sm *SingletonManager) Has(typ reflect.Type) bool {
	_, ok := sm.values[typ]
	return ok
}

// get returns the stored *T as any.
func (sm *SingletonManager) get(typ reflect.Type) (any, error) {
	p, ok := sm.values[typ]
	if !ok {
		return nil, eris.Wrapf(ErrSingletonComponentNotRegistered, "%v", typ)
	}
	return p, nil
}

func (sm *SingletonManager) Count() int { return len(sm.values) }

func (sm *SingletonManager) reset() { clear(sm.values) }
