package util

import "errors"

var (
	ErrNoExtractableText = errors.New("no extractable text found in PDF")
	ErrNotPDF            = errors.New("file is not a PDF document")
	ErrNotFound          = errors.New("not found")
	ErrInvalidGrading    = errors.New("invalid grading response")
	ErrSessionNotFound   = errors.New("chat session not found")
	ErrNotConfigured     = errors.New("integration not configured")
	ErrInvalidInput      = errors.New("invalid input")
)
