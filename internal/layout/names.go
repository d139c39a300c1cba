package layout

import (
	"strings"

	"github.com/tphakala/imagelab/internal/errors"
)

// MaxNameBytes is the longest model, label or file name accepted.
const MaxNameBytes = 255

// Kinds passed to ValidateName, also used in error messages.
const (
	KindModel = "model"
	KindLabel = "label"
	KindImage = "image"
)

// ValidateName checks that name can be used as a single path element and
// returns its NFC form. kind is used in the error message.
func ValidateName(kind, name string) (string, error) {
	n := Normalize(strings.TrimSpace(name))

	var reason string
	switch {
	case n == "":
		reason = "must not be empty"
	case n == "." || n == "..":
		reason = "must not be a relative path element"
	case strings.HasPrefix(n, "."):
		reason = "must not start with a dot"
	case strings.ContainsAny(n, `/\`):
		reason = "must not contain path separators"
	case strings.ContainsRune(n, 0):
		reason = "must not contain NUL bytes"
	case len(n) > MaxNameBytes:
		reason = "is too long"
	}

	if reason != "" {
		return "", nameError(kind, name, reason).Build()
	}
	return n, nil
}

// MaxModelNameBytes returns the longest model name whose artifact,
// placeholder and legacy metadata file names all fit in MaxNameBytes.
func (l *Layout) MaxModelNameBytes() int {
	longest := len(legacyMetadataExt)
	for _, ext := range []string{l.compiledExt, l.pendingExt, l.placeholderExt} {
		longest = max(longest, len(ext))
	}
	return MaxNameBytes - longest - 1
}

// ValidateModelName is ValidateName for models that will get files named
// after them inside their directory.
func (l *Layout) ValidateModelName(name string) (string, error) {
	n, err := ValidateName(KindModel, name)
	if err != nil {
		return "", err
	}
	if len(n) > l.MaxModelNameBytes() {
		return "", nameError(KindModel, name, "is too long").
			Context("max_bytes", l.MaxModelNameBytes()).
			Build()
	}
	return n, nil
}

func nameError(kind, name, reason string) *errors.ErrorBuilder {
	return errors.Newf("%s name %q %s", kind, name, reason).
		Component("layout").
		Category(errors.CategoryValidation).
		Context("kind", kind)
}
