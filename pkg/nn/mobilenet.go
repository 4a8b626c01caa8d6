package nn

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// MobileNetExtractor runs a MobileNetV2 embedding network (ImageNet weights,
// classification head removed, global average pooling) through OpenCV's DNN module.
// The ONNX file is exported once, offline, and treated as opaque from here on.
type MobileNetExtractor struct {
	net    gocv.Net
	config ModelConfig
}

func NewMobileNetExtractor(modelFile string) (*MobileNetExtractor, error) {
	net := gocv.ReadNetFromONNX(modelFile)
	if net.Empty() {
		return nil, fmt.Errorf("Failed to read network from %v", modelFile)
	}
	return &MobileNetExtractor{
		net: net,
		config: ModelConfig{
			Architecture: "mobilenetv2",
			Width:        128,
			Height:       128,
			FeatureSize:  1280,
		},
	}, nil
}

func (m *MobileNetExtractor) Close() {
	m.net.Close()
}

func (m *MobileNetExtractor) Config() *ModelConfig {
	return &m.config
}

func (m *MobileNetExtractor) ExtractFeatures(nchan int, pixels []byte, width, height int) ([]float32, error) {
	if nchan != 3 {
		return nil, fmt.Errorf("Expected 3 channel RGB image, but got %v channels", nchan)
	}
	if width != m.config.Width || height != m.config.Height {
		return nil, fmt.Errorf("Expected %vx%v input, but got %vx%v", m.config.Width, m.config.Height, width, height)
	}
	mat, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, pixels)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	// MobileNetV2 input convention: scale pixels to [-1,1].
	// Our pixels are already RGB, so no R/B swap.
	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(m.config.Width, m.config.Height),
		gocv.NewScalar(127.5, 127.5, 127.5, 0), false, false)
	defer blob.Close()

	m.net.SetInput(blob, "")
	out := m.net.Forward("")
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, err
	}
	if len(data) != m.config.FeatureSize {
		return nil, fmt.Errorf("Network produced %v values, expected %v", len(data), m.config.FeatureSize)
	}
	// data is a view into the Mat, which we're about to Close
	features := make([]float32, len(data))
	copy(features, data)
	return features, nil
}
