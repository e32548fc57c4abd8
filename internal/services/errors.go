// Package services implements the case-processing pipeline: document
// registration and extraction, fan-in completion detection, the transactional
// outbox, the generation waterfall, version bookkeeping, and the zombie
// rescue sweep. This file centralizes service-level error values so that they
// can be consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

// Case-related errors.
var (
	// ErrCaseNotFound indicates that the requested case does not exist or is
	// not visible to the calling tenant.
	ErrCaseNotFound = errors.New("case not found")

	// ErrCaseClosed is returned when an operation requires a case that has
	// not been finalized yet.
	ErrCaseClosed = errors.New("case is closed")

	// ErrEmptyReference is returned when a case is opened without a human
	// reference code.
	ErrEmptyReference = errors.New("case reference is empty")

	// ErrGenerationInProgress is returned when a retry is requested while a
	// generation trigger is already in flight for the case.
	ErrGenerationInProgress = errors.New("generation already in progress")
)

// Document-related errors.
var (
	// ErrDocumentNotFound indicates that the requested document does not
	// exist or is not visible to the calling tenant.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrEmptyFile is returned when a registration carries no file bytes.
	ErrEmptyFile = errors.New("document file is empty")

	// ErrMissingFilename is returned when a registration has no filename.
	ErrMissingFilename = errors.New("document filename is empty")
)

// Generation and version errors.
var (
	// ErrNoSuccessfulDocuments is returned when generation is requested for a
	// case without a single successfully extracted document.
	ErrNoSuccessfulDocuments = errors.New("case has no successfully extracted documents")

	// ErrVersionNotFound indicates that the requested report version does not
	// exist or is not visible to the calling tenant.
	ErrVersionNotFound = errors.New("report version not found")

	// ErrEmptyDraftText is returned when a draft version is created without
	// generated text.
	ErrEmptyDraftText = errors.New("draft text is empty")
)
