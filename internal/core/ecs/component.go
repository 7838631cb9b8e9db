package ecs

import (
	"reflect"

	"github.com/rotisserie/eris"
)

// ComponentInfo describes one registered component type.
type ComponentInfo struct {
	Type ComponentType
	Name string
	// GoType is nil for raw components registered by name.
	GoType reflect.Type
	Size   int
	// Raw reports whether the type allows byte-level access.
	Raw     bool
	Memento bool
}

// ArrayUsage is one row of ComponentManager.MemoryUsage.
type ArrayUsage struct {
	Name  string
	Len   int
	Bytes uintptr
}

// ComponentManager owns one component array per registered type and hands
// out type ids in registration order.
type ComponentManager struct {
	types    map[reflect.Type]ComponentType
	names    map[string]ComponentType
	infos    []ComponentInfo
	arrays   []ComponentArray
	capacity int
}

func NewComponentManager(capacity int) *ComponentManager {
	if capacity <= 0 {
		capacity = DefaultMaxEntities
	}
	return &ComponentManager{
		types:    make(map[reflect.Type]ComponentType),
		names:    make(map[string]ComponentType),
		capacity: capacity,
	}
}

// registerComponent assigns T the next type id. Registering T again returns
// the existing id.
func registerComponent[T any](cm *ComponentManager) (ComponentType, error) {
	typ := reflect.TypeFor[T]()
	if id, ok := cm.types[typ]; ok {
		return id, nil
	}
	set := NewSparseSet[T](cm.capacity)
	id, err := cm.add(ComponentInfo{
		Name:    typ.String(),
		GoType:  typ,
		Size:    int(typ.Size()),
		Raw:     set.plain,
		Memento: SupportsMemento[T](),
	}, set)
	if err != nil {
		return 0, err
	}
	cm.types[typ] = id
	return id, nil
}

// RegisterRawComponent registers a component with no Go type, stored as
// size bytes per entity. Registering the same name and size again returns the
// existing id.
func (cm *ComponentManager) RegisterRawComponent(name string, size int) (ComponentType, error) {
	if id, ok := cm.names[name]; ok {
		info := cm.infos[id]
		if info.GoType != nil {
			return 0, eris.Wrapf(ErrComponentAlreadyExists, "%s names Go component %v", name, info.GoType)
		}
		if info.Size != size {
			return 0, eris.Wrapf(ErrRawSizeMismatch, "%s registered with size %d, got %d", name, info.Size, size)
		}
		return id, nil
	}
	return cm.add(ComponentInfo{Name: name, Size: size, Raw: true}, NewTypeErasedSparseSet(size, cm.capacity))
}

func (cm *ComponentManager) add(info ComponentInfo, arr ComponentArray) (ComponentType, error) {
	if len(cm.infos) >= MaxComponentTypes {
		return 0, eris.Wrapf(ErrTooManyComponentTypes, "registering %s, max is %d", info.Name, MaxComponentTypes)
	}
	// Go types are identified by reflect.Type; only raw names must be unique.
	if _, dup := cm.names[info.Name]; dup && info.GoType == nil {
		return 0, eris.Wrapf(ErrComponentAlreadyExists, "component name %s already registered", info.Name)
	}
	info.Type = ComponentType(len(cm.infos))
	cm.infos = append(cm.infos, info)
	cm.arrays = append(cm.arrays, arr)
	if info.GoType == nil {
		cm.names[info.Name] = info.Type
		return info.Type, nil
	}
	// Both the short ("pkg.T") and the import-path qualified name resolve;
	// when two types share a short name the first registered keeps it.
	for _, name := range goTypeNames(info.GoType) {
		if _, taken := cm.names[name]; !taken {
			cm.names[name] = info.Type
		}
	}
	return info.Type, nil
}

func goTypeNames(typ reflect.Type) []string {
	names := []string{typ.String()}
	if typ.PkgPath() != "" && typ.Name() != "" {
		names = append(names, typ.PkgPath()+"."+typ.Name())
	}
	return names
}

func ComponentTypeOf[T any](cm *ComponentManager) (ComponentType, error) {
	return cm.TypeOf(reflect.TypeFor[T]())
}

func (cm *ComponentManager) TypeOf(typ reflect.Type) (ComponentType, error) {
	id, ok := cm.types[typ]
	if !ok {
		return 0, eris.Wrapf(ErrComponentNotRegistered, "%v", typ)
	}
	return id, nil
}

// TypeByName resolves a raw component name, or a Go component by "pkg.T" or
// "import/path.T".
func (cm *ComponentManager) TypeByName(name string) (ComponentType, error) {
	id, ok := cm.names[name]
	if !ok {
		return 0, eris.Wrapf(ErrComponentNotRegistered, "%q", name)
	}
	return id, nil
}

func (cm *ComponentManager) Info(t ComponentType) (ComponentInfo, error) {
	if int(t) >= len(cm.infos) {
		return ComponentInfo{}, eris.Wrapf(ErrComponentNotRegistered, "type id %d", t)
	}
	return cm.infos[t], nil
}

func (cm *ComponentManager) Infos() []ComponentInfo { return cm.infos }
func (cm *ComponentManager) Count() int             { return len(cm.infos) }

func (cm *ComponentManager) Array(t ComponentType) (ComponentArray, error) {
	if int(t) >= len(cm.arrays) {
		return nil, eris.Wrapf(ErrComponentNotRegistered, "type id %d", t)
	}
	return cm.arrays[t], nil
}

// setOf returns T's typed storage.
func setOf[T any](cm *ComponentManager) (*SparseSet[T], error) {
	id, err := ComponentTypeOf[T](cm)
	if err != nil {
		return nil, err
	}
	return cm.arrays[id].(*SparseSet[T]), nil
}

func addComponent[T any](cm *ComponentManager, e Entity, v T) error {
	set, err := setOf[T](cm)
	if err != nil {
		return err
	}
	return set.Insert(e, v)
}

func removeComponent[T any](cm *ComponentManager, e Entity) error {
	set, err := setOf[T](cm)
	if err != nil {
		return err
	}
	return set.Remove(e)
}

func getComponent[T any](cm *ComponentManager, e Entity) (*T, error) {
	set, err := setOf[T](cm)
	if err != nil {
		return nil, err
	}
	return set.Get(e)
}

func hasComponent[T any](cm *ComponentManager, e Entity) bool {
	set, err := setOf[T](cm)
	if err != nil {
		return false
	}
	return set.Has(e)
}

// EntityDestroyed drops e from every array named in sig.
func (cm *ComponentManager) EntityDestroyed(e Entity, sig Signature) {
	for _, t := range sig.Types() {
		if int(t) < len(cm.arrays) {
			_ = cm.arrays[t].Remove(e)
		}
	}
}

func (cm *ComponentManager) MemoryUsage() []ArrayUsage {
	out := make([]ArrayUsage, len(cm.arrays))
	for i, arr := range cm.arrays {
		out[i] = ArrayUsage{Name: cm.infos[i].Name, Len: arr.Len(), Bytes: arr.MemoryUsage()}
	}
	return out
}

func (cm *ComponentManager) reset() {
	for _, arr := range cm.arrays {
		arr.reset()
	}
	clear(cm.types)
	clear(cm.names)
	cm.infos = nil
	cm.arrays = nil
}
