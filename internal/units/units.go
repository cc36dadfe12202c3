// Package units provides shared constants and conversions for the lengths
// and speeds carried by trajectory data.
//
// Trajectory samples are recorded in feet and seconds; speeds are reported
// in mph. The renderer works in scene units.
package units

// Speed unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	FPS  = "fps"
)

// ValidUnits contains all valid speed unit values
var ValidUnits = []string{MPS, MPH, KMPH, FPS}

// Home plate to first base measures 12.644507617538927 units in the field
// model and 90 ft on a regulation diamond.
const (
	fieldModelBaseline = 12.644507617538927
	baselineFeet       = 90.0

	// SceneUnitsPerFoot converts real-world feet into scene units.
	SceneUnitsPerFoot = fieldModelBaseline / baselineFeet
)

const (
	metresPerFoot  = 0.3048
	secondsPerHour = 3600.0
	feetPerMile    = 5280.0
)

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "mps, mph, kmph, fps"
}

// FeetToScene converts a length in feet to scene units.
func FeetToScene(ft float64) float64 {
	return ft * SceneUnitsPerFoot
}

// PointToScene converts an (x, y, z) triple in feet to scene units.
func PointToScene(x, y, z float64) [3]float64 {
	return [3]float64{FeetToScene(x), FeetToScene(y), FeetToScene(z)}
}

// FeetPerSecondToMPH converts ft/s to mph.
func FeetPerSecondToMPH(fps float64) float64 {
	return fps * secondsPerHour / feetPerMile
}

// ConvertSpeed converts a speed in mph to the target units.
// Unknown units return the input unchanged.
func ConvertSpeed(speedMPH float64, targetUnits string) float64 {
	switch targetUnits {
	case MPH:
		return speedMPH
	case MPS:
		return speedMPH * feetPerMile * metresPerFoot / secondsPerHour
	case KMPH:
		return speedMPH * feetPerMile * metresPerFoot / 1000.0
	case FPS:
		return speedMPH * feetPerMile / secondsPerHour
	default:
		return speedMPH
	}
}
