// Package animate maps a frame index onto eased positions and opacities.
// Every function is pure so frames can be rendered in any order.
package animate

import "math"

// Ease is a cubic ease-out on [0,1].
func Ease(t float64) float64 {
	return 1 - math.Pow(1-t, 3)
}

// progress clamps frame/duration to [0,1].
func progress(frame, duration int) float64 {
	if duration <= 0 {
		return 1
	}
	p := float64(frame) / float64(duration)
	return math.Max(0, math.Min(1, p))
}

// FromLeft slides in from -size to final. A zero size defaults to final.
func FromLeft(frame, duration int, final, size float64) float64 {
	if size == 0 {
		size = final
	}
	return -size + (final+size)*Ease(progress(frame, duration))
}

// FromRight slides in from the canvas edge to final.
func FromRight(frame, duration int, final, size, canvas float64) float64 {
	if size == 0 {
		size = final
	}
	if canvas == 0 {
		canvas = size
	}
	return canvas + (final-canvas)*Ease(progress(frame, duration))
}

func FromTop(frame, duration int, final, size float64) float64 {
	return FromLeft(frame, duration, final, size)
}

func FromBottom(frame, duration int, final, size, canvas float64) float64 {
	return FromRight(frame, duration, final, size, canvas)
}

// Opacity is 0 before start and ramps to 1 over [start, duration].
func Opacity(frame, duration, start int) float64 {
	if frame < start {
		return 0
	}
	return Ease(progress(frame-start, duration-start))
}

// Up rises by distance onto final.
func Up(frame, duration int, final, distance float64) float64 {
	return final + distance - distance*Ease(progress(frame, duration))
}

// Down drops by distance onto final.
func Down(frame, duration int, final, distance float64) float64 {
	return final - distance + distance*Ease(progress(frame, duration))
}

func Width(frame, duration int, final float64) float64 {
	return final * Ease(progress(frame, duration))
}
