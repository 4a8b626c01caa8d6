package videosource

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/bmharper/cimg/v2"
	"gocv.io/x/gocv"
)

// Container formats we accept for file playback.
var supportedVideoExtensions = map[string]bool{
	".mp4": true,
	".avi": true,
	".mov": true,
	".mkv": true,
}

// FileSource plays back a video file frame by frame.
type FileSource struct {
	path  string
	cap   *gocv.VideoCapture
	frame gocv.Mat
	fps   float64
}

func OpenFile(path string) (*FileSource, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !supportedVideoExtensions[ext] {
		return nil, fmt.Errorf("Unsupported video format %v", ext)
	}
	cap, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("Failed to open video file %v: %w", path, err)
	}
	fps := cap.Get(gocv.VideoCaptureFPS)
	if fps <= 0 {
		fps = 30
	}
	return &FileSource{
		path:  path,
		cap:   cap,
		frame: gocv.NewMat(),
		fps:   fps,
	}, nil
}

func (s *FileSource) Name() string {
	return filepath.Base(s.path)
}

func (s *FileSource) Live() bool {
	return false
}

func (s *FileSource) FPS() float64 {
	return s.fps
}

func (s *FileSource) NextFrame() (*cimg.Image, error) {
	if !s.cap.Read(&s.frame) || s.frame.Empty() {
		return nil, io.EOF
	}
	return matToRGB(s.frame)
}

func (s *FileSource) Close() {
	s.frame.Close()
	s.cap.Close()
}
