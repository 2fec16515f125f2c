package service

import (
	"strconv"
	"strings"

	"github.com/nvelasco/homeline/internal/core/domain"

	"go.uber.org/zap"
)

const (
	maxIntensity = 100
	maxDegrees   = 180
)

// MergeUpdate folds an untrusted update document into the store.
// Unknown devices are skipped silently, malformed fields are logged and
// skipped with the prior value retained. Whatever the input looked
// like, every per-kind invariant holds afterwards; the worst case is a
// field-level no-op. The out-of-band light_intensity map and the
// top-level servo overrides run after the per-device pass, so they win
// when the same device appears in both.
func MergeUpdate(store *domain.Store, doc domain.UpdateDocument, logger *zap.Logger) {
	registry := store.Registry()

	for id, value := range doc.DeviceStates {
		kind, err := registry.KindOf(id)
		if err != nil {
			logger.Debug("merge: skipping unknown device", zap.String("device", id))
			continue
		}
		switch kind {
		case domain.KindBinary:
			mergeBinary(store, id, value, logger)
		case domain.KindDimmable:
			mergeDimmable(store, id, value, logger)
		case domain.KindActuator:
			mergeActuator(store, id, value, logger)
		}
	}

	for id, value := range doc.LightIntensity {
		kind, err := registry.KindOf(id)
		if err != nil || kind != domain.KindDimmable {
			logger.Debug("merge: skipping intensity for non-dimmable device", zap.String("device", id))
			continue
		}
		applyIntensity(store, id, value, logger)
	}

	if doc.ServoMotorAngle != nil || doc.ServoMotorDirection != nil {
		mergeServoOverrides(store, doc, logger)
	}
}

// Delay coerces the document's delay_seconds into a non-negative number
// of seconds. Absent or unparseable values default to 0; a bad delay is
// never an error for the caller.
func Delay(doc domain.UpdateDocument) int {
	if doc.DelaySeconds == nil {
		return 0
	}
	seconds, ok := coerceInt(doc.DelaySeconds, "")
	if !ok || seconds < 0 {
		return 0
	}
	return seconds
}

func mergeBinary(store *domain.Store, id string, value any, logger *zap.Logger) {
	on, ok := coerceOnOff(value)
	if !ok {
		// tolerate an object shape carrying a nested state token
		if nested, found := nestedField(value, "state"); found {
			on, ok = coerceOnOff(nested)
		}
	}
	if !ok {
		logger.Warn("merge: unusable state for binary device", zap.String("device", id), zap.Any("value", value))
		return
	}
	store.Set(id, domain.BinaryState{On: on})
}

func mergeDimmable(store *domain.Store, id string, value any, logger *zap.Logger) {
	// Intensity drives everything: setting it re-derives on/off. A bare
	// on/off token flips the switch without touching the stored level.
	if raw, found := nestedField(value, "intensity"); found {
		applyIntensity(store, id, raw, logger)
		return
	}
	token := value
	if nested, found := nestedField(value, "state"); found {
		token = nested
	}
	on, ok := coerceOnOff(token)
	if !ok {
		logger.Warn("merge: unusable state for dimmable device", zap.String("device", id), zap.Any("value", value))
		return
	}
	prev := store.Get(id).(domain.DimmableState)
	prev.On = on
	store.Set(id, prev)
}

func mergeActuator(store *domain.Store, id string, value any, logger *zap.Logger) {
	prev := store.Get(id).(domain.ActuatorState)
	changed := false

	if raw, found := nestedField(value, "degrees"); found {
		if degrees, ok := coerceInt(raw, "°"); ok {
			prev.Degrees = clamp(degrees, 0, maxDegrees)
			changed = true
		} else {
			logger.Warn("merge: invalid actuator degrees", zap.String("device", id), zap.Any("value", raw))
		}
	}
	if raw, found := nestedField(value, "direction"); found {
		if dir, err := coerceDirection(raw); err == nil {
			prev.Direction = dir
			changed = true
		} else {
			logger.Warn("merge: invalid actuator direction", zap.String("device", id), zap.Any("value", raw))
		}
	}
	if changed {
		store.Set(id, prev)
	}
}

func mergeServoOverrides(store *domain.Store, doc domain.UpdateDocument, logger *zap.Logger) {
	for _, id := range store.Registry().IDs() {
		kind, _ := store.Registry().KindOf(id)
		if kind != domain.KindActuator {
			continue
		}
		prev := store.Get(id).(domain.ActuatorState)
		if doc.ServoMotorAngle != nil {
			if degrees, ok := coerceInt(doc.ServoMotorAngle, "°"); ok {
				prev.Degrees = clamp(degrees, 0, maxDegrees)
			} else {
				logger.Warn("merge: invalid servo angle", zap.String("device", id), zap.Any("value", doc.ServoMotorAngle))
			}
		}
		if doc.ServoMotorDirection != nil {
			if dir, err := coerceDirection(doc.ServoMotorDirection); err == nil {
				prev.Direction = dir
			} else {
				logger.Warn("merge: invalid servo direction", zap.String("device", id), zap.Any("value", doc.ServoMotorDirection))
			}
		}
		store.Set(id, prev)
	}
}

func applyIntensity(store *domain.Store, id string, value any, logger *zap.Logger) {
	intensity, ok := coerceInt(value, "%")
	if !ok {
		logger.Warn("merge: invalid intensity", zap.String("device", id), zap.Any("value", value))
		return
	}
	intensity = clamp(intensity, 0, maxIntensity)
	store.Set(id, domain.DimmableState{
		On:        intensity > 0,
		Intensity: intensity,
	})
}

// coerceOnOff accepts the "on"/"off" tokens in any letter case.
func coerceOnOff(value any) (bool, bool) {
	s, ok := value.(string)
	if !ok {
		return false, false
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on":
		return true, true
	case "off":
		return false, true
	}
	return false, false
}

// coerceInt accepts integers, JSON numbers and numeric strings with an
// optional unit suffix ("80%", "90°").
func coerceInt(value any, suffix string) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		s := strings.TrimSpace(v)
		if suffix != "" {
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func coerceDirection(value any) (domain.Direction, error) {
	s, _ := value.(string)
	return domain.ParseDirection(strings.ToLower(strings.TrimSpace(s)))
}

// nestedField pulls a field out of an object-shaped value.
func nestedField(value any, field string) (any, bool) {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, false
	}
	raw, found := obj[field]
	return raw, found
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
