package entity

import "testing"

func TestBrightnessRoundTrip(t *testing.T) {
	t.Parallel()

	for _, pct := range []int{0, 25, 50, 75, 100} {
		b := PercentToBrightness(pct)
		got := BrightnessToPercent(b)
		diff := got - pct
		if diff < -1 || diff > 1 {
			t.Errorf("round-trip pct=%d -> brightness=%d -> pct=%d, diff %d exceeds ±1", pct, b, got, diff)
		}
	}
}

func TestBrightnessToPercentRoundsHalfUp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		brightness int
		want       int
	}{
		{0, 0},
		{255, 100},
		{128, 50}, // 128*100/255 = 50.196...
		{1, 0},    // 1*100/255 = 0.392
		{3, 1},    // 3*100/255 = 1.176
	}
	for _, tt := range tests {
		if got := BrightnessToPercent(tt.brightness); got != tt.want {
			t.Errorf("BrightnessToPercent(%d) = %d, want %d", tt.brightness, got, tt.want)
		}
	}
}
