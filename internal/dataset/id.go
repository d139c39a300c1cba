package dataset

import (
	"encoding/hex"
	"hash/fnv"
	"path/filepath"
	"strings"

	"github.com/tphakala/imagelab/internal/layout"
)

// supportedExtensions are the image formats accepted for training.
var supportedExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"heic": {},
	"heif": {},
}

// ImageID returns the stable identifier of the image filename under label:
// lowercase hex of the 128-bit FNV-1a hash of "label/filename". It is not
// cryptographic.
func ImageID(label, filename string) string {
	h := fnv.New128a()
	_, _ = h.Write([]byte(layout.Normalize(label) + "/" + layout.Normalize(filename)))
	return hex.EncodeToString(h.Sum(nil))
}

// IsSupportedImage reports whether name has a training image extension,
// ignoring case.
func IsSupportedImage(name string) bool {
	_, ok := supportedExtensions[extOf(name)]
	return ok
}

// ImageFilter decides which files count as training images: the supported
// formats plus the extension images are stored with. Hidden files never
// match.
type ImageFilter struct {
	storedExt string
}

// NewImageFilter returns a filter that also accepts storedExt.
func NewImageFilter(storedExt string) ImageFilter {
	return ImageFilter{storedExt: strings.ToLower(strings.TrimPrefix(storedExt, "."))}
}

// Match reports whether name is a training image.
func (f ImageFilter) Match(name string) bool {
	if name == "" || name[0] == '.' {
		return false
	}
	return IsSupportedImage(name) || (f.storedExt != "" && extOf(name) == f.storedExt)
}

func extOf(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}
