package pipeline

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Encoder serializes an annotated frame for transport
type Encoder interface {
	Encode(img gocv.Mat) ([]byte, error)
}

// JPEGEncoder encodes frames as JPEG images
type JPEGEncoder struct {
	// Quality of the JPEG compression, 1-100
	Quality int
}

// NewJPEGEncoder returns a JPEG encoder, quality outside 1-100 falls back to
// the OpenCV default of 95
func NewJPEGEncoder(quality int) *JPEGEncoder {
	if quality < 1 || quality > 100 {
		quality = 95
	}

	return &JPEGEncoder{Quality: quality}
}

// Encode the image to JPEG format
func (e *JPEGEncoder) Encode(img gocv.Mat) ([]byte, error) {

	if img.Empty() {
		return nil, errors.New("cannot encode empty frame")
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img,
		[]int{gocv.IMWriteJpegQuality, e.Quality})

	if err != nil {
		return nil, errors.Wrap(err, "error encoding frame")
	}

	defer buf.Close()

	// copy out of C memory before the buffer is freed
	src := buf.GetBytes()
	out := make([]byte, len(src))
	copy(out, src)

	return out, nil
}
