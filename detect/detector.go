package detect

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ErrEmptyImage is returned when a detector is given an empty Mat
var ErrEmptyImage = errors.New("empty image")

// Detector finds objects in a grayscale image region and returns their
// bounding boxes in the coordinates of that region.  The order of the
// returned boxes is detector defined.
type Detector interface {
	Detect(img gocv.Mat) ([]image.Rectangle, error)
}

// Func adapts an ordinary function to the Detector interface
type Func func(img gocv.Mat) ([]image.Rectangle, error)

// Detect calls f(img)
func (f Func) Detect(img gocv.Mat) ([]image.Rectangle, error) {
	return f(img)
}

// safe wraps a Detector so a panic inside it is returned as an error
type safe struct {
	det Detector
}

// Safe returns a Detector that recovers from panics raised by det and
// reports them as errors.  Classifiers fed malformed input are treated as
// having found nothing rather than taking the pipeline down.
func Safe(det Detector) Detector {
	if _, ok := det.(safe); ok {
		return det
	}
	return safe{det: det}
}

// Detect runs the wrapped detector
func (s safe) Detect(img gocv.Mat) (rects []image.Rectangle, err error) {

	defer func() {
		if r := recover(); r != nil {
			rects = nil
			err = errors.Errorf("detector panic: %v", r)
		}
	}()

	return s.det.Detect(img)
}
