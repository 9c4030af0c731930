package validate

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // register GIF format
	_ "image/jpeg" // register JPEG format
	_ "image/png"  // register PNG format
	"strings"

	_ "golang.org/x/image/bmp"  // register BMP format
	_ "golang.org/x/image/tiff" // register TIFF format
	_ "golang.org/x/image/webp" // register WebP format

	"aitex/internal/core"
)

const dataURIScheme = "data:"

// ImageValidator guards the normalizer against oversized or unknown input.
type ImageValidator struct {
	maxBytes  int64
	maxPixels int64
}

// NewImageValidator creates a new image validator
func NewImageValidator() *ImageValidator {
	return &ImageValidator{maxBytes: core.MaxImageSizeBytes, maxPixels: core.MaxImagePixels}
}

// ValidateImageBytes checks size, format and declared dimensions from the header
// without decoding pixel data. It returns the media type, e.g. "image/png".
func (v *ImageValidator) ValidateImageBytes(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", core.ErrDecode(fmt.Errorf("image data is empty"))
	}
	if int64(len(raw)) > v.maxBytes {
		return "", core.ErrDecode(fmt.Errorf("image size %d bytes exceeds maximum allowed size %d bytes", len(raw), v.maxBytes))
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return "", core.ErrDecode(err)
	}
	mediaType := "image/" + format
	if !v.isFormatSupported(mediaType) {
		return "", core.ErrDecode(fmt.Errorf("unsupported image format: %s. Supported formats: %v", mediaType, core.SupportedImageFormats))
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return "", core.ErrDecode(fmt.Errorf("image has no pixels (%dx%d)", cfg.Width, cfg.Height))
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); v.maxPixels > 0 && pixels > v.maxPixels {
		return "", core.ErrDecode(fmt.Errorf("image dimensions %dx%d exceed maximum of %d pixels", cfg.Width, cfg.Height, v.maxPixels))
	}

	return mediaType, nil
}

// DecodeImageData decodes base64 encoded image data of the given media type.
func (v *ImageValidator) DecodeImageData(mediaType, data string) ([]byte, error) {
	if mediaType != "" && !v.isFormatSupported(mediaType) {
		return nil, core.ErrDecode(fmt.Errorf("unsupported image format: %s. Supported formats: %v",
			mediaType, core.SupportedImageFormats))
	}

	// Pre-check base64 string length to avoid OOM from decoding huge data
	estimatedSize := int64(len(data)) * 3 / 4
	if estimatedSize > v.maxBytes {
		return nil, core.ErrDecode(fmt.Errorf("image data too large: estimated %d bytes exceeds %d limit", estimatedSize, v.maxBytes))
	}

	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, core.ErrDecode(fmt.Errorf("invalid base64 data: %w", err))
	}
	return decoded, nil
}

// DecodeImageInput accepts either a data URI or bare base64 and returns the raw bytes.
func (v *ImageValidator) DecodeImageInput(input string) ([]byte, error) {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, dataURIScheme) {
		mediaType, data, ok := SplitDataURI(input)
		if !ok {
			return nil, core.ErrDecode(fmt.Errorf("malformed data URI"))
		}
		return v.DecodeImageData(mediaType, data)
	}
	return v.DecodeImageData("", input)
}

func (v *ImageValidator) isFormatSupported(mediaType string) bool {
	for _, format := range core.SupportedImageFormats {
		if strings.EqualFold(format, mediaType) {
			return true
		}
	}
	return false
}

// SplitDataURI splits "data:<media>;base64,<data>" into its media type and payload.
func SplitDataURI(uri string) (mediaType, data string, ok bool) {
	if !strings.HasPrefix(uri, dataURIScheme) {
		return "", "", false
	}
	header, payload, found := strings.Cut(uri, ",")
	if !found {
		return "", "", false
	}
	headerParts := strings.Split(strings.TrimPrefix(header, dataURIScheme), ";")
	return headerParts[0], payload, true
}
