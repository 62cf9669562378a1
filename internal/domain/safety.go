package domain

type SafetyState string

const (
	SafetyNormal  SafetyState = "normal"
	SafetyTripped SafetyState = "tripped"
)

// ControllerState is the durable arbitration state shared by every
// wakeguard process: the last sleep-prevention value actually applied to
// the OS, and the thermal safety latch.
type ControllerState struct {
	ResourceEnabled bool
	SafetyTripped   bool
}

func (c ControllerState) SafetyState() SafetyState {
	if c.SafetyTripped {
		return SafetyTripped
	}
	return SafetyNormal
}
