package dataset

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// The dataset archive is a single zip file holding the two parallel sequences:
//   manifest.json  - shape of the data
//   images.bin     - Count packed RGB images, back to back
//   labels.bin     - Count bytes, one label per image

type archiveManifest struct {
	Count    int `json:"count"`
	Width    int `json:"width"`
	Height   int `json:"height"`
	Channels int `json:"channels"`
}

// Save writes the dataset archive.
func (d *Dataset) Save(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	zipWriter := zip.NewWriter(f)
	defer zipWriter.Close()

	manifestW, err := zipWriter.Create("manifest.json")
	if err != nil {
		return err
	}
	manifest := archiveManifest{
		Count:    d.Count(),
		Width:    d.Width,
		Height:   d.Height,
		Channels: 3,
	}
	if err := json.NewEncoder(manifestW).Encode(&manifest); err != nil {
		return err
	}

	imagesW, err := zipWriter.Create("images.bin")
	if err != nil {
		return err
	}
	for _, img := range d.Images {
		if _, err := imagesW.Write(img); err != nil {
			return err
		}
	}

	labelsW, err := zipWriter.Create("labels.bin")
	if err != nil {
		return err
	}
	_, err = labelsW.Write(d.Labels)
	return err
}

// LoadArchive reads a dataset archive written by Save.
// Shape mismatches are errors here; the trainer treats them as fatal.
func LoadArchive(filename string) (*Dataset, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	manifest := archiveManifest{}
	if err := readArchiveJSON(&zr.Reader, "manifest.json", &manifest); err != nil {
		return nil, err
	}
	if manifest.Channels != 3 {
		return nil, fmt.Errorf("Archive %v has %v channels, expected 3", filename, manifest.Channels)
	}

	images, err := readArchiveFile(&zr.Reader, "images.bin")
	if err != nil {
		return nil, err
	}
	labels, err := readArchiveFile(&zr.Reader, "labels.bin")
	if err != nil {
		return nil, err
	}

	frameSize := manifest.Width * manifest.Height * 3
	if len(images) != manifest.Count*frameSize {
		return nil, fmt.Errorf("Archive %v images.bin is %v bytes, expected %v", filename, len(images), manifest.Count*frameSize)
	}
	if len(labels) != manifest.Count {
		return nil, fmt.Errorf("Archive %v labels.bin is %v bytes, expected %v", filename, len(labels), manifest.Count)
	}

	ds := &Dataset{
		Width:  manifest.Width,
		Height: manifest.Height,
		Labels: labels,
	}
	for i := 0; i < manifest.Count; i++ {
		ds.Images = append(ds.Images, images[i*frameSize:(i+1)*frameSize])
	}
	return ds, nil
}

func readArchiveFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name == name {
			r, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer r.Close()
			return io.ReadAll(r)
		}
	}
	return nil, fmt.Errorf("Archive is missing %v", name)
}

func readArchiveJSON(zr *zip.Reader, name string, obj any) error {
	b, err := readArchiveFile(zr, name)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, obj)
}
