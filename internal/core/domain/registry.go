package domain

import "fmt"

type RegistryEntry struct {
	ID   string
	Kind DeviceKind
}

// Registry is the fixed device catalog. It is built once at process
// start and read-only afterwards. Declaration order is preserved and is
// the order frames go out on the serial link.
type Registry struct {
	order []string
	kinds map[string]DeviceKind
}

func NewRegistry(entries []RegistryEntry) (*Registry, error) {
	reg := &Registry{
		kinds: make(map[string]DeviceKind, len(entries)),
	}
	for _, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("registry entry with empty id")
		}
		if _, ok := reg.kinds[e.ID]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateDevice, e.ID)
		}
		if _, err := ParseDeviceKind(string(e.Kind)); err != nil {
			return nil, fmt.Errorf("device %q: %w", e.ID, err)
		}
		reg.order = append(reg.order, e.ID)
		reg.kinds[e.ID] = e.Kind
	}
	return reg, nil
}

func (r *Registry) KindOf(id string) (DeviceKind, error) {
	kind, ok := r.kinds[id]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDevice, id)
	}
	return kind, nil
}

func (r *Registry) Has(id string) bool {
	_, ok := r.kinds[id]
	return ok
}

// IDs returns the device ids in declaration order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

func (r *Registry) Len() int {
	return len(r.order)
}
