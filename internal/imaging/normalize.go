// Package imaging prepares raster input for the recognition endpoint: it decodes
// any supported format to packed RGB, flips light-on-dark images to dark-on-light,
// and re-encodes the result as PNG.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	"image/png"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"aitex/internal/core"
)

// NormalizedImage is a packed 8-bit RGB buffer, row-major, no padding.
type NormalizedImage struct {
	Width  uint32
	Height uint32
	Pixels []byte

	// Format is the name reported by the decoder ("png", "jpeg", ...).
	Format string
	// Brightness is the average BT.601 luma of the decoded input.
	Brightness uint8
	// Inverted is set when the polarity of the input was flipped.
	Inverted bool
}

// NewNormalizedImage wraps an existing RGB buffer.
// A buffer whose length differs from width*height*3 is rejected.
func NewNormalizedImage(width, height uint32, pixels []byte) (*NormalizedImage, error) {
	want := uint64(width) * uint64(height) * core.RGBChannels
	if uint64(len(pixels)) != want {
		return nil, core.ErrEncode("image", fmt.Errorf("pixel buffer holds %d bytes, %dx%d RGB needs %d", len(pixels), width, height, want))
	}
	return &NormalizedImage{Width: width, Height: height, Pixels: pixels}, nil
}

// Normalize decodes raw, converts it to RGB and inverts it when the average
// brightness is below core.InversionThreshold.
func Normalize(raw []byte) (*NormalizedImage, error) {
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, core.ErrDecode(err)
	}

	normalized, err := FromImage(img)
	if err != nil {
		return nil, err
	}
	normalized.Format = format

	normalized.Brightness = normalized.AverageBrightness()
	if normalized.Brightness < core.InversionThreshold {
		normalized.Invert()
		normalized.Inverted = true
	}

	return normalized, nil
}

// FromImage copies img into a packed RGB buffer. Alpha is dropped; channel
// values are taken un-premultiplied.
func FromImage(img image.Image) (*NormalizedImage, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, core.ErrDecode(fmt.Errorf("image has no pixels (%dx%d)", width, height))
	}

	pixels := make([]byte, 0, width*height*core.RGBChannels)

	switch src := img.(type) {
	case *image.NRGBA:
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			row := src.Pix[src.PixOffset(bounds.Min.X, y):src.PixOffset(bounds.Max.X, y)]
			for i := 0; i < len(row); i += 4 {
				pixels = append(pixels, row[i], row[i+1], row[i+2])
			}
		}
	case *image.Gray:
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			row := src.Pix[src.PixOffset(bounds.Min.X, y):src.PixOffset(bounds.Max.X, y)]
			for _, v := range row {
				pixels = append(pixels, v, v, v)
			}
		}
	default:
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				pixels = append(pixels, c.R, c.G, c.B)
			}
		}
	}

	return NewNormalizedImage(uint32(width), uint32(height), pixels)
}

// Luma returns the BT.601 grayscale value of one pixel using integer weights.
func Luma(r, g, b uint8) uint8 {
	sum := uint32(r)*core.LumaWeightRed + uint32(g)*core.LumaWeightGreen + uint32(b)*core.LumaWeightBlue
	return uint8(sum / core.LumaWeightTotal)
}

// AverageBrightness returns the mean luma over all pixels, truncated.
func (n *NormalizedImage) AverageBrightness() uint8 {
	count := uint64(n.Width) * uint64(n.Height)
	if count == 0 {
		return 0
	}

	var sum uint64
	for i := 0; i+2 < len(n.Pixels); i += core.RGBChannels {
		sum += uint64(Luma(n.Pixels[i], n.Pixels[i+1], n.Pixels[i+2]))
	}
	return uint8(sum / count)
}

// Invert replaces every channel value v with 255-v in place.
func (n *NormalizedImage) Invert() {
	for i, v := range n.Pixels {
		n.Pixels[i] = core.MaxChannelValue - v
	}
}

// ToImage returns an opaque image backed by a copy of the RGB buffer.
func (n *NormalizedImage) ToImage() (*image.NRGBA, error) {
	if _, err := NewNormalizedImage(n.Width, n.Height, n.Pixels); err != nil {
		return nil, err
	}

	width, height := int(n.Width), int(n.Height)
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for p, i := 0, 0; i < len(n.Pixels); p, i = p+4, i+core.RGBChannels {
		img.Pix[p] = n.Pixels[i]
		img.Pix[p+1] = n.Pixels[i+1]
		img.Pix[p+2] = n.Pixels[i+2]
		img.Pix[p+3] = core.MaxChannelValue
	}
	return img, nil
}

// EncodePNG re-encodes the buffer as PNG.
func (n *NormalizedImage) EncodePNG() ([]byte, error) {
	img, err := n.ToImage()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, core.ErrEncode("png", err)
	}
	return buf.Bytes(), nil
}
