package tracker

import (
	"image"
)

// Rect represents a bounding box in frame coordinates with (top left x,
// top left y, width, height) format
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// NewRect creates a new Rect with given coordinates
func NewRect(x, y, width, height int) Rect {
	return Rect{
		X:      x,
		Y:      y,
		Width:  width,
		Height: height,
	}
}

// RectFromImage converts an image.Rectangle as returned by a detector into
// a Rect
func RectFromImage(r image.Rectangle) Rect {
	r = r.Canon()
	return NewRect(r.Min.X, r.Min.Y, r.Dx(), r.Dy())
}

// TLX returns the top-left x coordinate of the rectangle
func (r Rect) TLX() int {
	return r.X
}

// TLY returns the top-left y coordinate of the rectangle
func (r Rect) TLY() int {
	return r.Y
}

// BRX returns the bottom-right x coordinate of the rectangle
func (r Rect) BRX() int {
	return r.X + r.Width
}

// BRY returns the bottom-right y coordinate of the rectangle
func (r Rect) BRY() int {
	return r.Y + r.Height
}

// Center returns the center point of the rectangle
func (r Rect) Center() image.Point {
	return image.Pt(r.X+r.Width/2, r.Y+r.Height/2)
}

// Rectangle converts the rectangle to an image.Rectangle
func (r Rect) Rectangle() image.Rectangle {
	return image.Rect(r.TLX(), r.TLY(), r.BRX(), r.BRY())
}

// Empty reports whether the rectangle has no area
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Clamp returns the part of the rectangle that lies inside bounds.  Used
// before taking a sub region of a frame as detectors can return boxes that
// spill over the image edge.
func (r Rect) Clamp(bounds image.Rectangle) Rect {
	return RectFromImage(r.Rectangle().Intersect(bounds))
}
