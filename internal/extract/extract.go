// Package extract defines the document-extraction collaborator consumed by
// the pipeline: a function from raw file bytes to structured content or a
// classified, user-facing error.
//
// The extraction algorithms themselves are pluggable; the pipeline only
// depends on the Extractor interface and the failure taxonomy below. The
// taxonomy is deliberately small and stable; it is shown to end users on the
// document row and must not leak parser internals.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/casefile-ai/claims-backend/internal/domain"
)

// Extractor turns one document's raw bytes into structured content.
//
// Implementations must classify every failure as an *Error; any other error
// returned is treated as ErrKindGeneric by the worker. Extraction failures
// are terminal for the document; the pipeline never retries them.
type Extractor interface {
	Extract(ctx context.Context, data []byte, mimeType string) (*domain.ExtractedContent, error)
}

// ErrorKind is the fixed, user-facing extraction failure taxonomy.
type ErrorKind string

const (
	ErrKindCorrupt     ErrorKind = "corrupt_file"
	ErrKindUnsupported ErrorKind = "unsupported_type"
	ErrKindOversized   ErrorKind = "oversized"
	ErrKindEncoding    ErrorKind = "encoding_error"
	ErrKindGeneric     ErrorKind = "extraction_failed"
)

// userMessages maps each kind to the message stored on the document row.
var userMessages = map[ErrorKind]string{
	ErrKindCorrupt:     "The file appears to be corrupt and could not be read.",
	ErrKindUnsupported: "This file type is not supported.",
	ErrKindOversized:   "The file is too large to process.",
	ErrKindEncoding:    "The file uses an encoding that could not be decoded.",
	ErrKindGeneric:     "The file could not be processed.",
}

// Error is a classified extraction failure.
type Error struct {
	Kind  ErrorKind
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extract: %s: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("extract: %s", e.Kind)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.Cause }

// UserMessage returns the stable, end-user-safe description of the failure.
func (e *Error) UserMessage() string {
	if msg, ok := userMessages[e.Kind]; ok {
		return msg
	}
	return userMessages[ErrKindGeneric]
}

// NewError builds a classified extraction failure.
func NewError(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

// Classify coerces an arbitrary extraction error into the taxonomy. Already
// classified errors pass through; everything else becomes generic.
func Classify(err error) *Error {
	var ee *Error
	if errors.As(err, &ee) {
		return ee
	}
	return &Error{Kind: ErrKindGeneric, Cause: err}
}

// maxTextBytes bounds a single text document. Larger inputs would blow the
// generation prompt budget long before they hit memory limits.
const maxTextBytes = 8 << 20

// TextExtractor is the built-in extractor for plain-text document types.
// Binary claim formats (scans, photos) are handled by out-of-process
// extractors that satisfy the same interface.
type TextExtractor struct{}

// Extract implements Extractor for text/* and JSON documents.
func (TextExtractor) Extract(_ context.Context, data []byte, mimeType string) (*domain.ExtractedContent, error) {
	if !isTextMime(mimeType) {
		return nil, NewError(ErrKindUnsupported, fmt.Errorf("mime type %q", mimeType))
	}
	if len(data) == 0 {
		return nil, NewError(ErrKindCorrupt, errors.New("empty file"))
	}
	if len(data) > maxTextBytes {
		return nil, NewError(ErrKindOversized, fmt.Errorf("%d bytes", len(data)))
	}
	if !utf8.Valid(data) {
		// Legacy claim exports are frequently Windows-1252. NUL bytes mean
		// binary content, not a mislabeled code page.
		if bytes.IndexByte(data, 0) >= 0 {
			return nil, NewError(ErrKindEncoding, errors.New("binary content in a text document"))
		}
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil || !utf8.Valid(decoded) {
			return nil, NewError(ErrKindEncoding, errors.New("undecodable byte sequence"))
		}
		data = decoded
	}
	body := strings.TrimSpace(string(data))
	if body == "" {
		return nil, NewError(ErrKindCorrupt, errors.New("file contains no text"))
	}
	return domain.NewTextContent(body, 0), nil
}

func isTextMime(mime string) bool {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if strings.HasPrefix(mime, "text/") {
		return true
	}
	switch mime {
	case "application/json", "application/xml":
		return true
	}
	return false
}
