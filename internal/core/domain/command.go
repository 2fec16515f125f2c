package domain

// UpdateDocument is the untrusted partial-update document produced by
// the language model (or a direct structured caller). Field values are
// deliberately loose: the model may emit a bare "on" token, a partial
// object, a number, or a suffixed string ("80%", "90°"), so anything
// that needs coercion is typed any and parsed at the merge boundary.
type UpdateDocument struct {
	DeviceStates        map[string]any `json:"device_states"`
	LightIntensity      map[string]any `json:"light_intensity,omitempty"`
	ServoMotorAngle     any            `json:"servo_motor_angle,omitempty"`
	ServoMotorDirection any            `json:"servo_motor_direction,omitempty"`
	ChatbotMessage      string         `json:"chatbot_message,omitempty"`
	DelaySeconds        any            `json:"delay_seconds,omitempty"`
}

// CommandOutcome is what the command initiator gets back: advisory
// message, the dispatch delay that was applied, and the full state
// table after the merge.
type CommandOutcome struct {
	Message      string         `json:"message"`
	DelaySeconds int            `json:"delay_seconds"`
	DeviceStates map[string]any `json:"device_states"`
}
