package videosource

import (
	"fmt"

	"github.com/bmharper/cimg/v2"
	"gocv.io/x/gocv"
)

// CameraSource reads frames from an index-addressed local camera device.
type CameraSource struct {
	name   string
	device int
	cap    *gocv.VideoCapture
	frame  gocv.Mat
}

func OpenCamera(deviceIndex int) (*CameraSource, error) {
	cap, err := gocv.OpenVideoCapture(deviceIndex)
	if err != nil {
		return nil, fmt.Errorf("Failed to open camera %v: %w", deviceIndex, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("Camera %v is not available", deviceIndex)
	}
	return &CameraSource{
		name:   fmt.Sprintf("camera-%v", deviceIndex),
		device: deviceIndex,
		cap:    cap,
		frame:  gocv.NewMat(),
	}, nil
}

func (s *CameraSource) Name() string {
	return s.name
}

func (s *CameraSource) Live() bool {
	return true
}

func (s *CameraSource) FPS() float64 {
	return s.cap.Get(gocv.VideoCaptureFPS)
}

func (s *CameraSource) NextFrame() (*cimg.Image, error) {
	if !s.cap.Read(&s.frame) || s.frame.Empty() {
		return nil, ErrNoFrame
	}
	return matToRGB(s.frame)
}

func (s *CameraSource) Close() {
	s.frame.Close()
	s.cap.Close()
}
