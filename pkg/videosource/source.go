package videosource

import (
	"errors"

	"github.com/bmharper/cimg/v2"
	"gocv.io/x/gocv"
)

// Package videosource abstracts the two kinds of video input we classify:
// a live camera device, and a video file being played back.

// ErrNoFrame is returned by a live source when no frame is available right now.
// The caller should skip this tick and try again; it is not a terminal condition.
var ErrNoFrame = errors.New("no frame available")

// FrameSource yields a sequence of RGB frames.
// NextFrame returns io.EOF when the source is exhausted (file playback only),
// and ErrNoFrame for a transient capture failure on a live device.
type FrameSource interface {
	Name() string
	Live() bool
	FPS() float64 // Nominal frame rate; 0 means unknown
	NextFrame() (*cimg.Image, error)
	Close()
}

// matToRGB converts a captured BGR Mat into a packed RGB cimg image.
func matToRGB(m gocv.Mat) (*cimg.Image, error) {
	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(m, &rgb, gocv.ColorBGRToRGB)
	pixels := rgb.ToBytes()
	return cimg.WrapImage(rgb.Cols(), rgb.Rows(), cimg.PixelFormatRGB, pixels), nil
}
