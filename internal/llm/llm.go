// Package llm wraps the text-generation provider behind a small interface:
// generate, shared prompt caches, and the file side-channel for large binary
// inputs. The generation waterfall in the service layer depends only on
// Provider and on the error classification in errors.go, so tests (and any
// future provider swap) plug in fakes without touching the orchestration.
package llm

import (
	"context"
	"time"
)

// Part is one element of a prompt: either inline text or a reference to a
// file previously pushed through the provider's upload side-channel.
type Part struct {
	Text     string
	FileURI  string
	MIMEType string
}

// TextPart builds an inline text part.
func TextPart(text string) Part { return Part{Text: text} }

// FilePart builds a part referencing an uploaded provider file.
func FilePart(uri, mimeType string) Part { return Part{FileURI: uri, MIMEType: mimeType} }

// Request describes one generation call.
type Request struct {
	// Model is the provider model identifier.
	Model string
	// Parts is the prompt, in order.
	Parts []Part
	// CacheRef optionally attaches a shared prompt cache created with
	// CreateCache. Empty means no cache.
	CacheRef string
	// Temperature in [0,2].
	Temperature float64
}

// Usage is the token accounting of one call. All fields default to zero when
// the provider omits them; extraction is defensive and never fails a call.
type Usage struct {
	InputTokens  int
	OutputTokens int
	CachedTokens int
}

// Result is the outcome of a successful generation call.
type Result struct {
	Text  string
	Usage Usage
}

// FileRef identifies a file uploaded to the provider. Name addresses the file
// for deletion; URI is embedded in prompt parts.
type FileRef struct {
	Name     string
	URI      string
	MIMEType string
}

// Provider is the text-generation boundary.
//
// All methods classify provider failures into *ProviderError (see errors.go)
// before returning, so callers branch on error class, never on error text.
type Provider interface {
	// Generate runs one model call and returns the generated text with usage.
	Generate(ctx context.Context, req Request) (*Result, error)
	// CreateCache uploads shared prompt material as a provider-side cache and
	// returns its reference.
	CreateCache(ctx context.Context, model string, parts []Part, ttl time.Duration) (string, error)
	// UploadFile pushes bytes through the provider's file side-channel.
	UploadFile(ctx context.Context, data []byte, mimeType string) (*FileRef, error)
	// DeleteFile removes an uploaded file. Deleting a missing file is not an
	// error.
	DeleteFile(ctx context.Context, name string) error
}
