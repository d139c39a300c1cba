package imageutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/tphakala/imagelab/internal/errors"
)

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestDecodeFormats(t *testing.T) {
	t.Parallel()

	src := solid(4, 3, color.NRGBA{R: 200, G: 10, B: 10, A: 255})

	jpg, err := EncodeJPEG(src, 90)
	require.NoError(t, err)
	pngData, err := EncodePNG(src)
	require.NoError(t, err)
	var bmpBuf bytes.Buffer
	require.NoError(t, bmp.Encode(&bmpBuf, src))

	tests := []struct {
		name   string
		data   []byte
		format string
	}{
		{"jpeg", jpg, "jpeg"},
		{"png", pngData, "png"},
		{"bmp", bmpBuf.Bytes(), "bmp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			img, format, err := Decode(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.format, format)
			assert.Equal(t, 4, img.Bounds().Dx())
			assert.Equal(t, 3, img.Bounds().Dy())
		})
	}
}

func TestDecodeInvalidData(t *testing.T) {
	t.Parallel()

	_, _, err := Decode([]byte("not an image"))
	require.Error(t, err)
	assert.True(t, errors.IsConversion(err))

	_, _, err = Decode(nil)
	require.Error(t, err)
	assert.True(t, errors.IsConversion(err))
}

func TestEncodeJPEGRejectsEmpty(t *testing.T) {
	t.Parallel()

	_, err := EncodeJPEG(image.NewRGBA(image.Rect(0, 0, 0, 0)), 80)
	require.Error(t, err)
	assert.True(t, errors.IsConversion(err))
}

func TestEncodeJPEGQualityFallback(t *testing.T) {
	t.Parallel()

	src := solid(8, 8, color.White)
	low, err := EncodeJPEG(src, 0)
	require.NoError(t, err)
	def, err := EncodeJPEG(src, DefaultJPEGQuality)
	require.NoError(t, err)
	assert.Equal(t, def, low)
}

func TestToRGBAMovesOrigin(t *testing.T) {
	t.Parallel()

	src := solid(10, 10, color.NRGBA{G: 255, A: 255}).SubImage(image.Rect(5, 5, 8, 9))
	rgba, err := ToRGBA(src)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 4), rgba.Bounds())
	assert.Equal(t, color.RGBA{G: 255, A: 255}, rgba.RGBAAt(0, 0))
}

func TestToRGBAPassthrough(t *testing.T) {
	t.Parallel()

	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	rgba, err := ToRGBA(src)
	require.NoError(t, err)
	assert.Same(t, src, rgba)
}

func TestResizeAndTensor(t *testing.T) {
	t.Parallel()

	src := solid(20, 10, color.NRGBA{R: 255, B: 51, A: 255})
	resized := Resize(src, 4, 2)
	assert.Equal(t, image.Rect(0, 0, 4, 2), resized.Bounds())

	tensor := TensorNHWC(resized)
	require.Len(t, tensor, 4*2*3)
	assert.InDelta(t, 1.0, tensor[0], 0.01)
	assert.InDelta(t, 0.0, tensor[1], 0.01)
	assert.InDelta(t, 0.2, tensor[2], 0.01)
}

func TestPNGRoundTripKeepsPixels(t *testing.T) {
	t.Parallel()

	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.SetRGBA(0, 0, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	data, err := EncodePNG(src)
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	r, g, b, _ := decoded.At(0, 0).RGBA()
	assert.Equal(t, []uint32{1, 2, 3}, []uint32{r >> 8, g >> 8, b >> 8})
}

func TestEncodeByExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ext    string
		format string
	}{
		{"jpg", "jpeg"},
		{".JPEG", "jpeg"},
		{"png", "png"},
		{"bmp", "bmp"},
		{"tif", "tiff"},
		{"tiff", "tiff"},
	}

	img := solid(6, 4, color.NRGBA{R: 10, G: 200, B: 30, A: 255})
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			t.Parallel()
			require.True(t, CanEncode(tt.ext))
			data, err := Encode(img, tt.ext, DefaultJPEGQuality)
			require.NoError(t, err)
			decoded, format, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, tt.format, format)
			assert.Equal(t, img.Bounds().Size(), decoded.Bounds().Size())
		})
	}
}

func TestEncodeRejectsDecodeOnlyFormats(t *testing.T) {
	t.Parallel()

	img := solid(2, 2, color.White)
	for _, ext := range []string{"webp", "gif", "heic", ""} {
		assert.False(t, CanEncode(ext), ext)
		_, err := Encode(img, ext, DefaultJPEGQuality)
		require.Error(t, err)
		assert.True(t, errors.IsConversion(err), ext)
	}
	assert.NotContains(t, EncodableExtensions(), "webp")
	assert.Contains(t, EncodableExtensions(), "png")
}
