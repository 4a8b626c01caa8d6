package dataset

import (
	"fmt"

	"github.com/bmharper/cimg/v2"
)

// toRGB normalizes a decoded image to 3-channel RGB.
// PNGs commonly decode to RGBA, and we also see the odd grayscale JPEG.
func toRGB(img *cimg.Image) (*cimg.Image, error) {
	switch img.NChan() {
	case 3:
		return img, nil
	case 4:
		rgb := cimg.NewImage(img.Width, img.Height, cimg.PixelFormatRGB)
		for y := 0; y < img.Height; y++ {
			src := img.Pixels[y*img.Stride:]
			dst := rgb.Pixels[y*rgb.Stride:]
			for x := 0; x < img.Width; x++ {
				dst[x*3] = src[x*4]
				dst[x*3+1] = src[x*4+1]
				dst[x*3+2] = src[x*4+2]
			}
		}
		return rgb, nil
	case 1:
		rgb := cimg.NewImage(img.Width, img.Height, cimg.PixelFormatRGB)
		for y := 0; y < img.Height; y++ {
			src := img.Pixels[y*img.Stride:]
			dst := rgb.Pixels[y*rgb.Stride:]
			for x := 0; x < img.Width; x++ {
				dst[x*3] = src[x]
				dst[x*3+1] = src[x]
				dst[x*3+2] = src[x]
			}
		}
		return rgb, nil
	}
	return nil, fmt.Errorf("unsupported channel count %v", img.NChan())
}

// packPixels returns a tightly packed copy of an RGB image's pixels.
func packPixels(img *cimg.Image) []byte {
	packed := make([]byte, img.Width*img.Height*3)
	if img.Stride == img.Width*3 {
		copy(packed, img.Pixels[:len(packed)])
		return packed
	}
	for y := 0; y < img.Height; y++ {
		copy(packed[y*img.Width*3:(y+1)*img.Width*3], img.Pixels[y*img.Stride:y*img.Stride+img.Width*3])
	}
	return packed
}
