package pipeline

import (
	"io"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ErrNoFrame is returned by a Source when a read produced no frame
var ErrNoFrame = errors.New("no frame available")

// Source is where the pipeline acquires frames from.  Read blocks until a
// frame is written into mat or the read fails.  A Source returning io.EOF
// has no more frames and ends the pipeline.
type Source interface {
	Read(mat *gocv.Mat) error
	Close() error
}

// Camera is a Source backed by an OpenCV video capture, being either a
// camera device or a video file/stream URL
type Camera struct {
	capture *gocv.VideoCapture
	device  string
}

// OpenCamera opens the capture device.  A device that parses as an integer
// is opened as a camera index, anything else as a file or URL.
func OpenCamera(device string) (*Camera, error) {

	var capture *gocv.VideoCapture
	var err error

	if idx, perr := strconv.Atoi(device); perr == nil {
		capture, err = gocv.VideoCaptureDevice(idx)
	} else {
		capture, err = gocv.VideoCaptureFile(device)
	}

	if err != nil {
		return nil, errors.Wrapf(err, "error opening camera %s", device)
	}

	if !capture.IsOpened() {
		capture.Close()
		return nil, errors.Errorf("camera %s could not be opened", device)
	}

	return &Camera{
		capture: capture,
		device:  device,
	}, nil
}

// SetSize requests the capture resolution from the device, the device may
// ignore it
func (c *Camera) SetSize(width, height int) {
	if width > 0 && height > 0 {
		c.capture.Set(gocv.VideoCaptureFrameWidth, float64(width))
		c.capture.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}
}

// Device returns the device the camera was opened with
func (c *Camera) Device() string {
	return c.device
}

// Read the next frame from the camera
func (c *Camera) Read(mat *gocv.Mat) error {

	if ok := c.capture.Read(mat); !ok || mat.Empty() {
		return ErrNoFrame
	}

	return nil
}

// Close releases the camera
func (c *Camera) Close() error {
	return c.capture.Close()
}

// ImageSource is a Source that replays a fixed list of frames once and then
// reports io.EOF
type ImageSource struct {
	frames []gocv.Mat
	next   int
	sync.Mutex
}

// NewImageSource returns a Source over the given frames, the source takes
// ownership of the Mats
func NewImageSource(frames ...gocv.Mat) *ImageSource {
	return &ImageSource{
		frames: frames,
	}
}

// LoadImageSource reads an image file into a single frame Source
func LoadImageSource(file string) (*ImageSource, error) {

	img := gocv.IMRead(file, gocv.IMReadColor)

	if img.Empty() {
		img.Close()
		return nil, errors.Errorf("error reading image %s", file)
	}

	return NewImageSource(img), nil
}

// Read copies the next frame into mat
func (s *ImageSource) Read(mat *gocv.Mat) error {
	s.Lock()
	defer s.Unlock()

	if s.next >= len(s.frames) {
		return io.EOF
	}

	frame := s.frames[s.next]
	s.next++

	if frame.Empty() {
		return ErrNoFrame
	}

	frame.CopyTo(mat)
	return nil
}

// Close frees the frames held by the source
func (s *ImageSource) Close() error {
	s.Lock()
	defer s.Unlock()

	for _, f := range s.frames {
		f.Close()
	}

	s.frames = nil
	return nil
}
