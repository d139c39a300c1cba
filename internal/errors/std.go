package errors

import stderrors "errors"

// NewStd returns a plain error.
func NewStd(text string) error { return stderrors.New(text) }

// Is is errors.Is.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As is errors.As.
func As(err error, target any) bool { return stderrors.As(err, target) }

// Unwrap is errors.Unwrap.
func Unwrap(err error) error { return stderrors.Unwrap(err) }

// Join is errors.Join.
func Join(errs ...error) error { return stderrors.Join(errs...) }
