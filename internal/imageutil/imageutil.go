// Package imageutil converts between encoded images, RGBA rasters and
// model input tensors.
package imageutil

import (
	"bytes"
	"image"
	_ "image/gif" // register GIF decoder
	"image/jpeg"
	"image/png"
	"io"
	"slices"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/tphakala/imagelab/internal/errors"
)

// DefaultJPEGQuality is used when a caller passes a quality outside 1-100.
const DefaultJPEGQuality = 80

// Decode decodes JPEG, PNG, GIF, BMP, TIFF or WebP data and returns the
// image with its format name.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", errors.Newf("image data is empty").
			Component("imageutil").
			Category(errors.CategoryConversion).
			Build()
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", errors.New(err).
			Component("imageutil").
			Category(errors.CategoryConversion).
			Context("operation", "decode").
			Context("size", len(data)).
			Build()
	}
	return img, format, nil
}

// EncodeJPEG encodes img as a baseline JPEG.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, errors.Newf("cannot encode an empty image").
			Component("imageutil").
			Category(errors.CategoryConversion).
			Build()
	}
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, errors.New(err).
			Component("imageutil").
			Category(errors.CategoryConversion).
			Context("operation", "encode-jpeg").
			Build()
	}
	return buf.Bytes(), nil
}

// EncodePNG encodes img losslessly.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.New(err).
			Component("imageutil").
			Category(errors.CategoryConversion).
			Context("operation", "encode-png").
			Build()
	}
	return buf.Bytes(), nil
}

// encoders maps a lowercase file extension to its encoder. WebP, GIF and
// HEIC decode only.
var encoders = map[string]func(img image.Image, quality int) ([]byte, error){
	"jpg":  EncodeJPEG,
	"jpeg": EncodeJPEG,
	"png":  func(img image.Image, _ int) ([]byte, error) { return EncodePNG(img) },
	"bmp":  func(img image.Image, _ int) ([]byte, error) { return encodeWith(img, "bmp", bmp.Encode) },
	"tif":  func(img image.Image, _ int) ([]byte, error) { return encodeWith(img, "tiff", encodeTIFF) },
	"tiff": func(img image.Image, _ int) ([]byte, error) { return encodeWith(img, "tiff", encodeTIFF) },
}

func encodeTIFF(w io.Writer, img image.Image) error {
	return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
}

// EncodableExtensions returns the sorted extensions Encode accepts.
func EncodableExtensions() []string {
	exts := make([]string, 0, len(encoders))
	for ext := range encoders {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// CanEncode reports whether Encode supports ext, with or without a dot.
func CanEncode(ext string) bool {
	_, ok := encoders[normalizeExt(ext)]
	return ok
}

// Encode encodes img in the format named by the file extension ext.
// quality applies to JPEG only.
func Encode(img image.Image, ext string, quality int) ([]byte, error) {
	enc, ok := encoders[normalizeExt(ext)]
	if !ok {
		return nil, errors.Newf("no encoder for image extension %q", ext).
			Component("imageutil").
			Category(errors.CategoryConversion).
			Context("extension", ext).
			Build()
	}
	if img == nil || img.Bounds().Empty() {
		return nil, errors.Newf("cannot encode an empty image").
			Component("imageutil").
			Category(errors.CategoryConversion).
			Build()
	}
	return enc(img, quality)
}

func encodeWith(img image.Image, format string, fn func(io.Writer, image.Image) error) ([]byte, error) {
	var buf bytes.Buffer
	if err := fn(&buf, img); err != nil {
		return nil, errors.New(err).
			Component("imageutil").
			Category(errors.CategoryConversion).
			Context("operation", "encode-"+format).
			Build()
	}
	return buf.Bytes(), nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// ToRGBA returns img as an RGBA raster with its origin at (0,0). An
// *image.RGBA already at the origin is returned as is.
func ToRGBA(img image.Image) (*image.RGBA, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, errors.Newf("cannot rasterize an empty image").
			Component("imageutil").
			Category(errors.CategoryConversion).
			Build()
	}
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba, nil
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst, nil
}

// Resize scales src to width x height with bilinear interpolation.
func Resize(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// TensorNHWC lays out rgba as float32 RGB values in NHWC order with batch
// size 1. Values are scaled to 0-1.
func TensorNHWC(rgba *image.RGBA) []float32 {
	b := rgba.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]float32, h*w*3)

	for y := range h {
		row := rgba.Pix[y*rgba.Stride:]
		for x := range w {
			p := row[x*4 : x*4+3]
			base := ((y * w) + x) * 3
			out[base+0] = float32(p[0]) / 255.0
			out[base+1] = float32(p[1]) / 255.0
			out[base+2] = float32(p[2]) / 255.0
		}
	}
	return out
}
