package domain

// Store is the canonical in-memory table of current device states. It
// is always fully populated: exactly one entry per registry device,
// never more, never less. The store itself is not goroutine safe; the
// controller actor owns it and all access goes through that actor's
// mailbox.
type Store struct {
	registry *Registry
	states   map[string]DeviceState
}

func NewStore(registry *Registry) *Store {
	store := &Store{
		registry: registry,
		states:   make(map[string]DeviceState, registry.Len()),
	}
	for _, id := range registry.IDs() {
		kind, _ := registry.KindOf(id)
		store.states[id] = DefaultState(kind)
	}
	return store
}

func (s *Store) Registry() *Registry {
	return s.registry
}

// Get never fails for a registered id; the zero-value check in NewStore
// guarantees every id has an entry.
func (s *Store) Get(id string) DeviceState {
	return s.states[id]
}

// Set replaces one entry wholesale. The caller must have validated the
// state against the device's registered kind.
func (s *Store) Set(id string, state DeviceState) {
	if !s.registry.Has(id) {
		return
	}
	s.states[id] = state
}

type DeviceSnapshot struct {
	ID    string
	State DeviceState
}

// Snapshot captures the whole store in registry order. The returned
// slice is detached from the store and safe to hand to another
// goroutine.
func (s *Store) Snapshot() []DeviceSnapshot {
	snap := make([]DeviceSnapshot, 0, s.registry.Len())
	for _, id := range s.registry.IDs() {
		snap = append(snap, DeviceSnapshot{ID: id, State: s.states[id]})
	}
	return snap
}

// SnapshotDocument renders a snapshot as the device_states JSON map
// returned to command initiators and published over MQTT.
func SnapshotDocument(snapshot []DeviceSnapshot) map[string]any {
	doc := make(map[string]any, len(snapshot))
	for _, entry := range snapshot {
		doc[entry.ID] = entry.State.Document()
	}
	return doc
}
