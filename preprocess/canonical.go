package preprocess

import (
	"image/color"

	"gocv.io/x/gocv"
)

// Canonical brings camera frames into the orientation and resolution the
// rest of the pipeline works in.  The resizer is built from the first frame
// seen and rebuilt if the source resolution ever changes.
type Canonical struct {
	// Mirror flips frames horizontally so observers see a mirror image
	Mirror bool
	// Width and Height of the output frame, zero keeps the source size
	Width  int
	Height int
	// Pad is the letterbox padding color
	Pad color.RGBA

	resizer *Resizer
	flipped gocv.Mat
}

// NewCanonical returns a Canonical for the given output size
func NewCanonical(width, height int, mirror bool) *Canonical {
	return &Canonical{
		Mirror:  mirror,
		Width:   width,
		Height:  height,
		Pad:     color.RGBA{R: 0, G: 0, B: 0, A: 255},
		flipped: gocv.NewMat(),
	}
}

// Apply writes the canonical form of src into dst
func (c *Canonical) Apply(src gocv.Mat, dst *gocv.Mat) {

	in := src

	if c.Mirror {
		gocv.Flip(src, &c.flipped, 1)
		in = c.flipped
	}

	if c.Width <= 0 || c.Height <= 0 ||
		(in.Cols() == c.Width && in.Rows() == c.Height) {
		in.CopyTo(dst)
		return
	}

	if c.resizer == nil || !c.resizer.Fits(in.Cols(), in.Rows()) {
		if c.resizer != nil {
			c.resizer.Close()
		}
		c.resizer = NewResizer(in.Cols(), in.Rows(), c.Width, c.Height)
	}

	c.resizer.LetterBoxResize(in, dst, c.Pad)
}

// Close frees memory held by the Canonical
func (c *Canonical) Close() error {

	if c.resizer != nil {
		c.resizer.Close()
	}

	return c.flipped.Close()
}
