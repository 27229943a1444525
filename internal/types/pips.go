package types

import "strings"

// PipValue returns the price increment of one pip for the instrument:
// 0.01 for JPY-quoted pairs, 0.0001 otherwise.
func PipValue(instrument string) float64 {
	if strings.Contains(instrument, "JPY") {
		return 0.01
	}
	return 0.0001
}

// SpreadInPips converts an absolute spread to pips for the instrument.
func SpreadInPips(instrument string, spread float64) float64 {
	return spread / PipValue(instrument)
}
