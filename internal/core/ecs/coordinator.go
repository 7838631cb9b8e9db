package ecs

import (
	"reflect"
	"slices"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/l1jgo/ecsworld/internal/core/event"
)

type options struct {
	maxEntities       int
	componentCapacity int
	log               *zap.Logger
	bus               *event.Bus
}

type Option func(*options)

// WithMaxEntities bounds the number of live entities.
func WithMaxEntities(n int) Option { return func(o *options) { o.maxEntities = n } }

// WithComponentCapacity bounds each component array. It defaults to the
// entity maximum.
func WithComponentCapacity(n int) Option { return func(o *options) { o.componentCapacity = n } }

func WithLogger(log *zap.Logger) Option { return func(o *options) { o.log = log } }

// WithEventBus makes the coordinator publish lifecycle events.
func WithEventBus(bus *event.Bus) Option { return func(o *options) { o.bus = bus } }

// Coordinator is one world: it composes the entity, component, singleton,
// group and system managers and keeps them consistent. Every mutating call
// validates first, so a failed call leaves the world unchanged.
type Coordinator struct {
	entities   *EntityManager
	components *ComponentManager
	singletons *SingletonManager
	groups     *groupSet
	systems    *SystemManager
	commands   *CommandBuffer

	bus *event.Bus
	log *zap.Logger
}

func NewCoordinator(opts ...Option) *Coordinator {
	o := options{maxEntities: DefaultMaxEntities}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxEntities <= 0 {
		o.maxEntities = DefaultMaxEntities
	}
	if o.componentCapacity <= 0 {
		o.componentCapacity = o.maxEntities
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	c := &Coordinator{
		entities:   NewEntityManager(o.maxEntities),
		components: NewComponentManager(o.componentCapacity),
		singletons: NewSingletonManager(),
		groups:     newGroupSet(),
		systems:    NewSystemManager(o.log),
		bus:        o.bus,
		log:        o.log,
	}
	c.commands = newCommandBuffer(c)
	return c
}

// Close releases every manager in reverse construction order. The
// coordinator must not be used afterwards.
func (c *Coordinator) Close() error {
	c.commands.reset()
	c.systems.reset()
	c.groups.reset()
	c.singletons.reset()
	c.components.reset()
	c.entities.reset()
	return nil
}

// ---- entities ----

func (c *Coordinator) CreateEntity() (Entity, error) {
	e, err := c.entities.CreateEntity()
	if err != nil {
		return NullEntity, err
	}
	c.systems.entitySignatureChanged(e, Signature{})
	c.emit(EntityCreated{Entity: e})
	return e, nil
}

// DestroyEntity removes e from its groups, then its component arrays, then
// the query systems, and finally retires the handle.
func (c *Coordinator) DestroyEntity(e Entity) error {
	sig, err := c.entities.Signature(e)
	if err != nil {
		return err
	}
	if err := c.groups.entityDestroyed(e, sig); err != nil {
		return err
	}
	c.components.EntityDestroyed(e, sig)
	c.systems.entityDestroyed(e)
	if err := c.entities.DestroyEntity(e); err != nil {
		return err
	}
	c.emit(EntityDestroyed{Entity: e})
	return nil
}

func (c *Coordinator) IsAlive(e Entity) bool { return c.entities.IsAlive(e) }
func (c *Coordinator) LivingCount() int      { return c.entities.LivingCount() }

// LivingEntities returns a copy of the live handles.
func (c *Coordinator) LivingEntities() []Entity { return slices.Clone(c.entities.LivingEntities()) }

func (c *Coordinator) Signature(e Entity) (Signature, error) { return c.entities.Signature(e) }

// DuplicateEntity creates an entity holding a copy of every component of src.
func (c *Coordinator) DuplicateEntity(src Entity) (Entity, error) {
	sig, err := c.entities.Signature(src)
	if err != nil {
		return NullEntity, err
	}
	types := sig.Types()
	for _, t := range types {
		arr := c.components.arrays[t]
		if arr.Len() >= arr.Capacity() {
			return NullEntity, eris.Wrapf(ErrTooManyEntities, "%s array is full", c.components.infos[t].Name)
		}
	}
	dst, err := c.CreateEntity()
	if err != nil {
		return NullEntity, err
	}
	for _, t := range types {
		if err := c.components.arrays[t].Duplicate(src, dst); err != nil {
			return NullEntity, err
		}
	}
	if err := c.signatureChanged(dst, Signature{}, sig); err != nil {
		return NullEntity, err
	}
	for _, t := range types {
		c.emit(ComponentAdded{Entity: dst, Type: t})
	}
	return dst, nil
}

// EntityComponentTypes lists the component types e has, in type id order.
func (c *Coordinator) EntityComponentTypes(e Entity) ([]ComponentType, error) {
	sig, err := c.entities.Signature(e)
	if err != nil {
		return nil, err
	}
	return sig.Types(), nil
}

// EntityComponents returns a copy of each of e's components keyed by type.
// Raw components are returned as []byte.
func (c *Coordinator) EntityComponents(e Entity) (map[ComponentType]any, error) {
	sig, err := c.entities.Signature(e)
	if err != nil {
		return nil, err
	}
	out := make(map[ComponentType]any, len(sig.Types()))
	for _, t := range sig.Types() {
		v, err := c.components.arrays[t].GetAny(e)
		if err != nil {
			return nil, err
		}
		out[t] = v
	}
	return out, nil
}

// EntitiesWith scans the live entities for a signature match.
func (c *Coordinator) EntitiesWith(required, excluded Signature) []Entity {
	var out []Entity
	for _, e := range c.entities.LivingEntities() {
		if sig, _ := c.entities.Signature(e); sig.Matches(required, excluded) {
			out = append(out, e)
		}
	}
	return out
}

// ---- components ----

func (c *Coordinator) RegisterRawComponent(name string, size int) (ComponentType, error) {
	id, err := c.components.RegisterRawComponent(name, size)
	if err != nil {
		return 0, err
	}
	c.log.Debug("raw component registered", zap.String("name", name), zap.Int("size", size), zap.Uint8("id", uint8(id)))
	return id, nil
}

func RegisterComponent[T any](c *Coordinator) (ComponentType, error) {
	id, err := registerComponent[T](c.components)
	if err != nil {
		return 0, err
	}
	c.log.Debug("component registered",
		zap.String("type", reflect.TypeFor[T]().String()),
		zap.Uint8("id", uint8(id)))
	return id, nil
}

// ComponentTypeFor returns T's type id.
func ComponentTypeFor[T any](c *Coordinator) (ComponentType, error) {
	return ComponentTypeOf[T](c.components)
}

func (c *Coordinator) ComponentTypeByName(name string) (ComponentType, error) {
	return c.components.TypeByName(name)
}

func (c *Coordinator) ComponentInfo(t ComponentType) (ComponentInfo, error) { return c.components.Info(t) }

func (c *Coordinator) ComponentInfos() []ComponentInfo { return slices.Clone(c.components.Infos()) }

func (c *Coordinator) MemoryUsage() []ArrayUsage { return c.components.MemoryUsage() }

// AddComponent attaches v to e and moves e into every group and query it now
// matches.
func AddComponent[T any](c *Coordinator, e Entity, v T) error {
	if !c.entities.IsAlive(e) {
		return eris.Wrapf(ErrEntityNotAlive, "add %v to %v", reflect.TypeFor[T](), e)
	}
	set, err := setOf[T](c.components)
	if err != nil {
		return err
	}
	if err := set.Insert(e, v); err != nil {
		return err
	}
	id, _ := ComponentTypeOf[T](c.components)
	return c.componentAdded(e, id)
}

// RemoveComponent detaches e's T. Groups that stop matching release e before
// the storage slot goes away.
func RemoveComponent[T any](c *Coordinator, e Entity) error {
	id, err := ComponentTypeOf[T](c.components)
	if err != nil {
		return err
	}
	return c.RemoveComponentByType(e, id)
}

// TryRemoveComponent removes e's T if present and reports whether it did.
func TryRemoveComponent[T any](c *Coordinator, e Entity) bool {
	if !HasComponent[T](c, e) {
		return false
	}
	return RemoveComponent[T](c, e) == nil
}

// GetComponent returns a pointer to e's T, valid until the next structural
// change to T's array.
func GetComponent[T any](c *Coordinator, e Entity) (*T, error) {
	return getComponent[T](c.components, e)
}

func TryGetComponent[T any](c *Coordinator, e Entity) (*T, bool) {
	p, err := getComponent[T](c.components, e)
	return p, err == nil
}

func HasComponent[T any](c *Coordinator, e Entity) bool {
	return hasComponent[T](c.components, e)
}

// AddComponentRaw attaches a component by type id from its raw bytes.
func (c *Coordinator) AddComponentRaw(e Entity, t ComponentType, data []byte) error {
	if !c.entities.IsAlive(e) {
		return eris.Wrapf(ErrEntityNotAlive, "add type id %d to %v", t, e)
	}
	arr, err := c.components.Array(t)
	if err != nil {
		return err
	}
	if err := arr.InsertRaw(e, data); err != nil {
		return err
	}
	return c.componentAdded(e, t)
}

func (c *Coordinator) RemoveComponentByType(e Entity, t ComponentType) error {
	if !c.entities.IsAlive(e) {
		return eris.Wrapf(ErrEntityNotAlive, "remove type id %d from %v", t, e)
	}
	arr, err := c.components.Array(t)
	if err != nil {
		return err
	}
	if !arr.Has(e) {
		return eris.Wrapf(ErrComponentNotFound, "%v has no %s", e, c.components.infos[t].Name)
	}
	was, _ := c.entities.Signature(e)
	is := was.Without(t)
	if err := c.groups.transition(e, was, is); err != nil {
		return err
	}
	if err := arr.Remove(e); err != nil {
		return err
	}
	_ = c.entities.SetSignature(e, is)
	c.systems.entitySignatureChanged(e, is)
	c.emit(ComponentRemoved{Entity: e, Type: t})
	return nil
}

// GetComponentRaw returns a live view of e's component bytes.
func (c *Coordinator) GetComponentRaw(e Entity, t ComponentType) ([]byte, error) {
	arr, err := c.components.Array(t)
	if err != nil {
		return nil, err
	}
	return arr.RawBytes(e)
}

func (c *Coordinator) HasComponentByType(e Entity, t ComponentType) bool {
	arr, err := c.components.Array(t)
	return err == nil && arr.Has(e)
}

func (c *Coordinator) componentAdded(e Entity, t ComponentType) error {
	was, _ := c.entities.Signature(e)
	if err := c.signatureChanged(e, was, was.With(t)); err != nil {
		return err
	}
	c.emit(ComponentAdded{Entity: e, Type: t})
	return nil
}

func (c *Coordinator) signatureChanged(e Entity, was, is Signature) error {
	_ = c.entities.SetSignature(e, is)
	if err := c.groups.transition(e, was, is); err != nil {
		return err
	}
	c.systems.entitySignatureChanged(e, is)
	return nil
}

// ---- singletons ----

// RegisterSingleton stores the single T instance for this world.
func RegisterSingleton[T any](c *Coordinator, v T) error {
	if err := registerSingleton(c.singletons, v); err != nil {
		return err
	}
	c.log.Debug("singleton registered", zap.String("type", reflect.TypeFor[T]().String()))
	return nil
}

func GetSingleton[T any](c *Coordinator) (T, error) { return getSingleton[T](c.singletons) }

func GetSingletonMutable[T any](c *Coordinator) (*T, error) {
	return getSingletonMutable[T](c.singletons)
}

// ---- groups ----

// RegisterGroup creates a group, or returns the existing one with the same
// filter, and packs every live entity that already matches.
func (c *Coordinator) RegisterGroup(spec GroupSpec) (*Group, error) {
	g, created, err := c.groups.register(spec, c.components)
	if err != nil {
		return nil, err
	}
	if !created {
		return g, nil
	}
	for _, e := range c.entities.LivingEntities() {
		if sig, _ := c.entities.Signature(e); g.Matches(sig) {
			if err := g.add(e); err != nil {
				return nil, err
			}
		}
	}
	c.log.Debug("group registered", zap.String("name", g.Name()), zap.Int("size", g.Size()))
	return g, nil
}

func (c *Coordinator) GetGroup(name string) (*Group, error) { return c.groups.get(name) }

// ---- systems ----

func (c *Coordinator) RegisterQuerySystem(s QuerySystem) (SystemID, error) {
	if err := c.systems.checkDuplicate(s); err != nil {
		return 0, err
	}
	access := s.Access()
	scope, required, exclude, err := c.resolveAccess(access)
	if err != nil {
		return 0, eris.Wrapf(err, "register %T", s)
	}
	entry := &systemEntry{
		query:    s,
		access:   access,
		required: required,
		exclude:  exclude,
		members:  newSparseIndex(c.entities.MaxEntities()),
		scope:    scope,
	}
	if u, ok := s.(Untracked); ok && u.Untracked() {
		entry.untracked = true
		return c.systems.add(entry, s), nil
	}
	for _, e := range c.entities.LivingEntities() {
		if sig, _ := c.entities.Signature(e); sig.Matches(required, exclude) {
			_, _ = entry.members.push(e)
		}
	}
	return c.systems.add(entry, s), nil
}

func (c *Coordinator) RegisterGroupSystem(s GroupSystem) (SystemID, error) {
	if err := c.systems.checkDuplicate(s); err != nil {
		return 0, err
	}
	access := s.Access()
	named, isNamed := s.(NamedGroupSystem)
	var spec GroupSpec
	if !isNamed {
		var err error
		if spec, err = groupSpecOf(access, c.components); err != nil {
			return 0, eris.Wrapf(err, "register %T", s)
		}
	}
	scope, _, _, err := c.resolveAccess(access)
	if err != nil {
		return 0, eris.Wrapf(err, "register %T", s)
	}

	var g *Group
	if isNamed {
		g, err = c.groups.get(named.GroupName())
	} else {
		g, err = c.RegisterGroup(spec)
	}
	if err != nil {
		return 0, eris.Wrapf(err, "register %T", s)
	}
	return c.systems.add(&systemEntry{gsys: s, access: access, group: g, scope: scope}, s), nil
}

// groupSpecOf derives a group filter from accesses. Component accesses with
// no ownership marker count as non-owned. A group cannot be built over an
// unregistered type.
func groupSpecOf(access []Access, cm *ComponentManager) (GroupSpec, error) {
	var spec GroupSpec
	for _, a := range access {
		if a.Singleton {
			continue
		}
		id, err := cm.TypeOf(a.Type)
		if err != nil {
			return GroupSpec{}, eris.Wrapf(ErrInvalidGroupComponent, "%v is not registered", a.Type)
		}
		switch {
		case a.Mode == AccessExclude:
			spec.Exclude = append(spec.Exclude, id)
		case a.Ownership == OwnershipOwned:
			spec.Owned = append(spec.Owned, id)
		default:
			spec.NonOwned = append(spec.NonOwned, id)
		}
	}
	return spec, nil
}

// resolveAccess turns declared accesses into signatures and fills the
// system's singleton cache.
func (c *Coordinator) resolveAccess(access []Access) (*systemScope, Signature, Signature, error) {
	scope := &systemScope{
		c:          c,
		components: make(map[reflect.Type]AccessMode),
		singletons: make(map[reflect.Type]cachedSingleton),
	}
	var required, exclude Signature
	for _, a := range access {
		if a.Singleton {
			p, err := c.singletons.get(a.Type)
			if err != nil {
				return nil, required, exclude, err
			}
			if prev, ok := scope.singletons[a.Type]; !ok || prev.mode != AccessWrite {
				scope.singletons[a.Type] = cachedSingleton{ptr: p, mode: a.Mode}
			}
			continue
		}
		id, err := c.components.TypeOf(a.Type)
		if err != nil {
			return nil, required, exclude, err
		}
		if a.Mode == AccessExclude {
			exclude.Set(id)
		} else {
			required.Set(id)
		}
		if prev, ok := scope.components[a.Type]; !ok || prev == AccessRead && a.Mode == AccessWrite {
			scope.components[a.Type] = a.Mode
		}
	}
	return scope, required, exclude, nil
}

// UpdateSystems runs one step: every enabled system in phase and
// registration order, then the command buffer. A system error aborts the
// step; queued commands stay queued for the next flush.
func (c *Coordinator) UpdateSystems(dt time.Duration) error {
	if err := c.systems.update(dt); err != nil {
		return err
	}
	return c.commands.Flush()
}

// Commands is the world's deferred command buffer.
func (c *Coordinator) Commands() *CommandBuffer { return c.commands }

func (c *Coordinator) SetSystemEnabled(id SystemID, enabled bool) error {
	return c.systems.SetSystemEnabled(id, enabled)
}

func (c *Coordinator) SystemEntities(id SystemID) ([]Entity, error) {
	return c.systems.SystemEntities(id)
}

func (c *Coordinator) Systems() []SystemInfo { return c.systems.Systems() }

func (c *Coordinator) WriteConflicts() []WriteConflict { return c.systems.WriteConflicts() }

func (c *Coordinator) emit(ev any) {
	if c.bus == nil {
		return
	}
	switch ev := ev.(type) {
	case EntityCreated:
		event.Emit(c.bus, ev)
	case EntityDestroyed:
		event.Emit(c.bus, ev)
	case ComponentAdded:
		event.Emit(c.bus, ev)
	case ComponentRemoved:
		event.Emit(c.bus, ev)
	}
}
