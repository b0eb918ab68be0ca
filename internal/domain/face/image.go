package face

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
)

// Image is a decoded face image. Images are treated as immutable once built.
type Image struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

var errEmptyImage = errors.New("image data is empty")

// DecodeImage validates raw bytes and reads the image header.
func DecodeImage(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, errEmptyImage
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	return &Image{
		Data:   data,
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}

// Digest returns the hex encoded SHA-1 of the image bytes.
func (i *Image) Digest() string {
	if i == nil {
		return ""
	}

	sum := sha1.Sum(i.Data)

	return hex.EncodeToString(sum[:])
}
