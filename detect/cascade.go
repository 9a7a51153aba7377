package detect

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// CascadeParams defines the multi scale search parameters of a Haar cascade
type CascadeParams struct {
	// ScaleFactor is how much the image size is reduced at each image scale
	ScaleFactor float64
	// MinNeighbors is how many neighbouring candidates a box needs to be kept,
	// higher values give fewer false positives
	MinNeighbors int
	// MinSize is the smallest object size searched for, zero for no limit
	MinSize image.Point
	// MaxSize is the largest object size searched for, zero for no limit
	MaxSize image.Point
}

// FaceParams returns the parameters used for frontal face detection
// - ScaleFactor: 1.3
// - MinNeighbors: 5
func FaceParams() CascadeParams {
	return CascadeParams{
		ScaleFactor:  1.3,
		MinNeighbors: 5,
	}
}

// SmileParams returns the parameters used for smile detection within a face
// region
// - ScaleFactor: 1.8
// - MinNeighbors: 20
func SmileParams() CascadeParams {
	return CascadeParams{
		ScaleFactor:  1.8,
		MinNeighbors: 20,
	}
}

// Cascade is a Detector backed by an OpenCV Haar cascade classifier
type Cascade struct {
	classifier gocv.CascadeClassifier
	params     CascadeParams
	file       string
}

// NewCascade loads the cascade classifier XML file
func NewCascade(file string, params CascadeParams) (*Cascade, error) {

	classifier := gocv.NewCascadeClassifier()

	if !classifier.Load(file) {
		classifier.Close()
		return nil, errors.Errorf("failed to load cascade classifier from %s", file)
	}

	return &Cascade{
		classifier: classifier,
		params:     params,
		file:       file,
	}, nil
}

// File returns the classifier file the cascade was loaded from
func (c *Cascade) File() string {
	return c.file
}

// Detect runs the multi scale detection on a grayscale image
func (c *Cascade) Detect(img gocv.Mat) ([]image.Rectangle, error) {

	if img.Empty() {
		return nil, ErrEmptyImage
	}

	rects := c.classifier.DetectMultiScaleWithParams(img,
		c.params.ScaleFactor, c.params.MinNeighbors, 0,
		c.params.MinSize, c.params.MaxSize)

	return rects, nil
}

// Close frees the classifier
func (c *Cascade) Close() error {
	return c.classifier.Close()
}
