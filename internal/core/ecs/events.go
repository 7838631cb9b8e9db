package ecs

// Lifecycle events published to the event bus given with WithEventBus.
// Observers receive them one tick later, when the bus swaps buffers.

type EntityCreated struct {
	Entity Entity
}

type EntityDestroyed struct {
	Entity Entity
}

type ComponentAdded struct {
	Entity Entity
	Type   ComponentType
}

type ComponentRemoved struct {
	Entity Entity
	Type   ComponentType
}
