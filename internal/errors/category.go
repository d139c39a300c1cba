package errors

// ErrorCategory groups errors for callers, metrics and telemetry.
type ErrorCategory string

// CategorizedError is implemented by errors that carry their own category.
type CategorizedError interface {
	error
	ErrorCategory() ErrorCategory
}

const (
	CategoryNotFound          ErrorCategory = "not-found"
	CategoryAlreadyExists     ErrorCategory = "already-exists"
	CategoryValidation        ErrorCategory = "validation"
	CategoryConversion        ErrorCategory = "conversion"
	CategoryExternalOperation ErrorCategory = "external-operation"
	CategoryFileIO            ErrorCategory = "file-io"
	CategoryConfiguration     ErrorCategory = "configuration"
	CategoryDatabase          ErrorCategory = "database"
	CategoryDiskUsage         ErrorCategory = "disk-usage"
	CategoryModelLoad         ErrorCategory = "model-loading"
	CategoryCancellation      ErrorCategory = "cancellation"
	CategoryGeneric           ErrorCategory = "generic"
)

// CategoryOf returns the category of the first categorized error in err's
// tree, or CategoryGeneric.
func CategoryOf(err error) ErrorCategory {
	var ce CategorizedError
	if As(err, &ce) && ce.ErrorCategory() != "" {
		return ce.ErrorCategory()
	}
	return CategoryGeneric
}

// IsCategory reports whether err wraps an EnhancedError of category.
func IsCategory(err error, category ErrorCategory) bool {
	var ee *EnhancedError
	return As(err, &ee) && ee.Category == category
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return IsCategory(err, CategoryNotFound) }

// IsAlreadyExists reports whether err is an already-exists error.
func IsAlreadyExists(err error) bool { return IsCategory(err, CategoryAlreadyExists) }

// IsValidation reports whether err is a dataset or input validation error.
func IsValidation(err error) bool { return IsCategory(err, CategoryValidation) }

// IsConversion reports whether err is an image conversion error.
func IsConversion(err error) bool { return IsCategory(err, CategoryConversion) }

// IsExternal reports whether err came from an external tool or backend.
func IsExternal(err error) bool { return IsCategory(err, CategoryExternalOperation) }
