package entity

import "math"

// BrightnessToPercent converts a 0-255 hub brightness value to the 0-100 percent scale the remote protocol uses.
// Rounding is to nearest, half-up.
func BrightnessToPercent(brightness255 int) int {
	return roundHalfUp(float64(brightness255) * 100 / 255)
}

// PercentToBrightness converts a 0-100 remote brightness percentage back to the 0-255 hub scale.
func PercentToBrightness(percent int) int {
	return roundHalfUp(float64(percent) * 255 / 100)
}

// roundHalfUp rounds x to the nearest integer, with ties rounding away from zero (half-up). Used for every numeric
// attribute conversion so percentage round-trips stay within ±1.
func roundHalfUp(x float64) int {
	if x >= 0 {
		return int(math.Floor(x + 0.5))
	}
	return int(math.Ceil(x - 0.5))
}
