package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"golang.org/x/image/bmp"

	"aitex/internal/core"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("编码PNG失败: %v", err)
	}
	return buf.Bytes()
}

func uniformImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestLuma(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
		want    uint8
	}{
		{"黑色", 0, 0, 0, 0},
		{"白色", 255, 255, 255, 255},
		{"纯红", 255, 0, 0, 76},
		{"纯绿", 0, 255, 0, 149},
		{"纯蓝", 0, 0, 255, 29},
		{"截断除法", 10, 20, 30, 18},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Luma(tt.r, tt.g, tt.b); got != tt.want {
				t.Errorf("Luma(%d,%d,%d) = %d, want %d", tt.r, tt.g, tt.b, got, tt.want)
			}
		})
	}
}

func TestNormalize_Threshold(t *testing.T) {
	tests := []struct {
		name         string
		gray         uint8
		wantInverted bool
		wantPixel    uint8
	}{
		{"白底不反转", 255, false, 255},
		{"恰好128不反转", 128, false, 128},
		{"127反转", 127, true, 128},
		{"黑底反转", 0, true, 255},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := encodePNG(t, uniformImage(4, 3, color.NRGBA{tt.gray, tt.gray, tt.gray, 255}))

			img, err := Normalize(raw)
			if err != nil {
				t.Fatalf("Normalize失败: %v", err)
			}
			if img.Inverted != tt.wantInverted {
				t.Errorf("Inverted = %v, want %v", img.Inverted, tt.wantInverted)
			}
			if img.Brightness != tt.gray {
				t.Errorf("Brightness = %d, want %d", img.Brightness, tt.gray)
			}
			for i, v := range img.Pixels {
				if v != tt.wantPixel {
					t.Fatalf("Pixels[%d] = %d, want %d", i, v, tt.wantPixel)
				}
			}
		})
	}
}

func TestNormalize_BufferLength(t *testing.T) {
	raw := encodePNG(t, uniformImage(7, 5, color.NRGBA{200, 210, 220, 255}))

	img, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize失败: %v", err)
	}
	if img.Width != 7 || img.Height != 5 {
		t.Errorf("尺寸 = %dx%d, want 7x5", img.Width, img.Height)
	}
	if len(img.Pixels) != 7*5*3 {
		t.Errorf("len(Pixels) = %d, want %d", len(img.Pixels), 7*5*3)
	}
	if img.Format != "png" {
		t.Errorf("Format = %q, want png", img.Format)
	}
}

func TestNormalize_IdentityWhenBright(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	colors := []color.NRGBA{
		{255, 255, 255, 255}, {250, 240, 230, 255}, {30, 30, 30, 255},
		{200, 180, 255, 255}, {255, 255, 0, 255}, {190, 200, 210, 255},
	}
	var want []byte
	for i, c := range colors {
		src.SetNRGBA(i%3, i/3, c)
		want = append(want, c.R, c.G, c.B)
	}

	img, err := Normalize(encodePNG(t, src))
	if err != nil {
		t.Fatalf("Normalize失败: %v", err)
	}
	if img.Inverted {
		t.Fatal("明亮图像不应反转")
	}
	if !bytes.Equal(img.Pixels, want) {
		t.Errorf("Pixels = %v, want %v", img.Pixels, want)
	}
}

func TestNormalize_InversionProperty(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	var original []byte
	for i := 0; i < 8; i++ {
		c := color.NRGBA{uint8(i * 7), uint8(i * 11), uint8(255 - i*20), 255}
		src.SetNRGBA(i%4, i/4, c)
		original = append(original, c.R, c.G, c.B)
	}
	before, err := NewNormalizedImage(4, 2, append([]byte(nil), original...))
	if err != nil {
		t.Fatalf("NewNormalizedImage失败: %v", err)
	}
	oldAvg := before.AverageBrightness()
	if oldAvg >= core.InversionThreshold {
		t.Fatalf("测试数据应为暗图, avg=%d", oldAvg)
	}

	img, err := Normalize(encodePNG(t, src))
	if err != nil {
		t.Fatalf("Normalize失败: %v", err)
	}
	if !img.Inverted {
		t.Fatal("暗图应反转")
	}
	for i, v := range img.Pixels {
		if v != 255-original[i] {
			t.Fatalf("Pixels[%d] = %d, want %d", i, v, 255-original[i])
		}
	}

	newAvg := int(img.AverageBrightness())
	expected := 255 - int(oldAvg)
	if diff := newAvg - expected; diff < -2 || diff > 0 {
		t.Errorf("反转后平均亮度 = %d, want %d-2..%d", newAvg, expected, expected)
	}
}

func TestNormalize_AlphaDiscarded(t *testing.T) {
	raw := encodePNG(t, uniformImage(2, 2, color.NRGBA{10, 20, 30, 0}))

	img, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize失败: %v", err)
	}
	want := []byte{245, 235, 225}
	for i := 0; i < len(img.Pixels); i += 3 {
		if !bytes.Equal(img.Pixels[i:i+3], want) {
			t.Fatalf("pixel %d = %v, want %v", i/3, img.Pixels[i:i+3], want)
		}
	}
}

func TestNormalize_OtherFormats(t *testing.T) {
	src := uniformImage(6, 4, color.NRGBA{240, 240, 240, 255})

	var jpegBuf bytes.Buffer
	if err := jpeg.Encode(&jpegBuf, src, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("编码JPEG失败: %v", err)
	}
	var bmpBuf bytes.Buffer
	if err := bmp.Encode(&bmpBuf, src); err != nil {
		t.Fatalf("编码BMP失败: %v", err)
	}

	tests := []struct {
		name   string
		raw    []byte
		format string
	}{
		{"JPEG", jpegBuf.Bytes(), "jpeg"},
		{"BMP", bmpBuf.Bytes(), "bmp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Normalize(tt.raw)
			if err != nil {
				t.Fatalf("Normalize失败: %v", err)
			}
			if img.Format != tt.format {
				t.Errorf("Format = %q, want %q", img.Format, tt.format)
			}
			if len(img.Pixels) != 6*4*3 {
				t.Errorf("len(Pixels) = %d, want %d", len(img.Pixels), 6*4*3)
			}
			if img.Inverted {
				t.Error("浅色图像不应反转")
			}
		})
	}
}

func TestNormalize_DecodeError(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"空输入", nil},
		{"随机字节", []byte{0xFF, 0xFF, 0xFF, 0xFF}},
		{"截断的PNG", encodePNG(t, uniformImage(2, 2, color.NRGBA{1, 2, 3, 255}))[:20]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw)
			if core.ErrorCode(err) != core.ErrCodeDecode {
				t.Errorf("期望DECODE_ERROR, 实际: %v", err)
			}
		})
	}
}

func TestNewNormalizedImage_Mismatch(t *testing.T) {
	_, err := NewNormalizedImage(2, 2, make([]byte, 11))
	if core.ErrorCode(err) != core.ErrCodeEncode {
		t.Errorf("期望ENCODE_ERROR, 实际: %v", err)
	}

	img := &NormalizedImage{Width: 3, Height: 3, Pixels: make([]byte, 5)}
	if _, err := img.EncodePNG(); core.ErrorCode(err) != core.ErrCodeEncode {
		t.Errorf("EncodePNG期望ENCODE_ERROR, 实际: %v", err)
	}
}

func TestEncodePNG_RoundTrip(t *testing.T) {
	pixels := []byte{
		0, 0, 0, 255, 255, 255,
		10, 20, 30, 200, 100, 50,
	}
	img, err := NewNormalizedImage(2, 2, pixels)
	if err != nil {
		t.Fatalf("NewNormalizedImage失败: %v", err)
	}

	encoded, err := img.EncodePNG()
	if err != nil {
		t.Fatalf("EncodePNG失败: %v", err)
	}

	decoded, err := png.Decode(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("解码PNG失败: %v", err)
	}
	back, err := FromImage(decoded)
	if err != nil {
		t.Fatalf("FromImage失败: %v", err)
	}
	if !bytes.Equal(back.Pixels, pixels) {
		t.Errorf("往返像素不一致: %v vs %v", back.Pixels, pixels)
	}
}

func TestFromImage_Gray(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 2, 1))
	gray.SetGray(0, 0, color.Gray{Y: 40})
	gray.SetGray(1, 0, color.Gray{Y: 220})

	img, err := FromImage(gray)
	if err != nil {
		t.Fatalf("FromImage失败: %v", err)
	}
	want := []byte{40, 40, 40, 220, 220, 220}
	if !bytes.Equal(img.Pixels, want) {
		t.Errorf("Pixels = %v, want %v", img.Pixels, want)
	}
}

func TestFromImage_Empty(t *testing.T) {
	_, err := FromImage(image.NewNRGBA(image.Rect(0, 0, 0, 0)))
	if core.ErrorCode(err) != core.ErrCodeDecode {
		t.Errorf("期望DECODE_ERROR, 实际: %v", err)
	}
}
