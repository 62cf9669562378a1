package ports

import "context"

// ThermalSensor reports whether the machine is under thermal pressure.
type ThermalSensor interface {
	Overheating(ctx context.Context) (bool, error)
}
