package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *Registry {
	reg, err := NewRegistry([]RegistryEntry{
		{ID: "room 1 light", Kind: KindBinary},
		{ID: "room 2 light", Kind: KindDimmable},
		{ID: "Servo motor", Kind: KindActuator},
	})
	require.NoError(t, err)
	return reg
}

func TestRegistryRejectsBadEntries(t *testing.T) {

	_, err := NewRegistry([]RegistryEntry{
		{ID: "a", Kind: KindBinary},
		{ID: "a", Kind: KindBinary},
	})
	assert.ErrorIs(t, err, ErrDuplicateDevice)

	_, err = NewRegistry([]RegistryEntry{{ID: "a", Kind: "plasma"}})
	assert.ErrorIs(t, err, ErrInvalidDeviceKind)

	_, err = NewRegistry([]RegistryEntry{{ID: "", Kind: KindBinary}})
	assert.Error(t, err)
}

func TestRegistryOrderPreserved(t *testing.T) {

	reg := testRegistry(t)
	assert.Equal(t, []string{"room 1 light", "room 2 light", "Servo motor"}, reg.IDs())

	kind, err := reg.KindOf("Servo motor")
	require.NoError(t, err)
	assert.Equal(t, KindActuator, kind)

	_, err = reg.KindOf("toaster")
	assert.ErrorIs(t, err, ErrUnknownDevice)
}

func TestStoreStartsWithDefaults(t *testing.T) {

	store := NewStore(testRegistry(t))

	assert.Equal(t, BinaryState{}, store.Get("room 1 light"))
	assert.Equal(t, DimmableState{}, store.Get("room 2 light"))
	assert.Equal(t, ActuatorState{Direction: DirectionNone}, store.Get("Servo motor"))
}

func TestStoreSetIgnoresUnregistered(t *testing.T) {

	store := NewStore(testRegistry(t))
	store.Set("toaster", BinaryState{On: true})

	snap := store.Snapshot()
	assert.Len(t, snap, 3)
}

func TestSnapshotIsDetached(t *testing.T) {

	store := NewStore(testRegistry(t))
	snap := store.Snapshot()

	store.Set("room 1 light", BinaryState{On: true})

	assert.Equal(t, BinaryState{}, snap[0].State, "snapshot unaffected by later writes")
	assert.Equal(t, BinaryState{On: true}, store.Snapshot()[0].State)
}

func TestSnapshotDocumentShapes(t *testing.T) {

	store := NewStore(testRegistry(t))
	store.Set("room 1 light", BinaryState{On: true})
	store.Set("room 2 light", DimmableState{On: true, Intensity: 80})
	store.Set("Servo motor", ActuatorState{Direction: DirectionClock, Degrees: 90})

	doc := SnapshotDocument(store.Snapshot())

	assert.Equal(t, "on", doc["room 1 light"])
	assert.Equal(t, map[string]any{"state": "on", "intensity": 80}, doc["room 2 light"])
	assert.Equal(t, map[string]any{"direction": "clock", "degrees": 90}, doc["Servo motor"])
}

func TestWireFields(t *testing.T) {

	assert.Equal(t, []string{"off"}, BinaryState{}.WireFields())
	assert.Equal(t, []string{"on", "75"}, DimmableState{On: true, Intensity: 75}.WireFields())
	assert.Equal(t, []string{"anti", "180"}, ActuatorState{Direction: DirectionAnti, Degrees: 180}.WireFields())
}
