// Package colorramp derives a visualization RGB triple from a point's
// intensity, matching original_source/src/laserMapping.cpp's
// RGBpointAssociateToMap color bands exactly. Output is for the
// registered-cloud publish path only; the underlying intensity value is
// never altered.
package colorramp

import "math"

// RGB is an 8-bit-per-channel color.
type RGB struct {
	R, G, B uint8
}

// FromIntensity maps intensity's fractional part onto four piecewise-linear
// bands at thresholds 30, 90, 150, 255 over the fraction scaled by 10000
// (a blue->cyan->green->yellow->red ramp).
func FromIntensity(intensity float32) RGB {
	frac := intensity - float32(math.Floor(float64(intensity)))
	reflection := int(frac * 10000)

	switch {
	case reflection < 30:
		green := reflection * 255 / 30
		return RGB{R: 0, G: uint8(green & 0xff), B: 0xff}
	case reflection < 90:
		blue := (90 - reflection) * 255 / 60
		return RGB{R: 0, G: 0xff, B: uint8(blue & 0xff)}
	case reflection < 150:
		red := (reflection - 90) * 255 / 60
		return RGB{R: uint8(red & 0xff), G: 0xff, B: 0}
	default:
		green := (255 - reflection) * 255 / (255 - 150)
		return RGB{R: 0xff, G: uint8(green & 0xff), B: 0}
	}
}
