// Case HTTP handlers.
//
// This file exposes REST endpoints for claim-case resources:
//   - POST   /cases                        (create)
//   - GET    /cases                        (list, paginated)
//   - GET    /cases/{id}                   (fetch)
//   - DELETE /cases/{id}                   (soft delete)
//   - POST   /cases/{id}/documents         (upload + register a document)
//   - GET    /cases/{id}/documents         (list documents)
//   - GET    /documents/{id}/download-url  (signed artifact URL)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. All domain decisions (idempotency,
// case state guards, task dispatch) live in the services layer.
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/casefile-ai/claims-backend/internal/domain"
	"github.com/casefile-ai/claims-backend/internal/http/middleware"
	"github.com/casefile-ai/claims-backend/internal/services"
	"github.com/casefile-ai/claims-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// CaseService defines case and document lifecycle operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type CaseService interface {
	// Create opens a new case for a tenant with an external reference.
	Create(ctx context.Context, tenantID, clientRef, reference string) (*domain.Case, error)
	// Get returns a single case visible to the tenant.
	Get(ctx context.Context, tenantID, caseID string) (*domain.Case, error)
	// ListPage returns a page of the tenant's cases and the total count.
	ListPage(ctx context.Context, tenantID string, page, pageSize int) ([]domain.Case, int64, error)
	// Delete soft-deletes a case.
	Delete(ctx context.Context, tenantID, caseID string) error
	// RegisterDocument stores an uploaded file and enqueues its extraction.
	RegisterDocument(ctx context.Context, tenantID, caseID, filename, mimeType, idemKey string, data []byte) (*domain.Document, error)
	// ListDocuments returns the documents attached to a case.
	ListDocuments(ctx context.Context, tenantID, caseID string) ([]domain.Document, error)
	// DocumentDownloadURL signs a time-limited URL for the stored original.
	DocumentDownloadURL(ctx context.Context, tenantID, documentID string) (string, error)
}

// VersionService defines report-version operations consumed by HTTP handlers.
type VersionService interface {
	// List returns all report versions of a case, newest first.
	List(ctx context.Context, tenantID, caseID string) ([]domain.ReportVersion, error)
	// UploadPreliminary stores a human-edited artifact as a non-final version.
	UploadPreliminary(ctx context.Context, tenantID, caseID, filename, mimeType string, data []byte) (*domain.ReportVersion, error)
	// UploadFinal stores the approved artifact and closes the case.
	UploadFinal(ctx context.Context, tenantID, caseID, filename, mimeType string, data []byte) (*domain.ReportVersion, error)
	// DownloadURL signs a time-limited URL for a version's artifact.
	DownloadURL(ctx context.Context, tenantID, versionID string) (string, error)
}

// GenerationControl re-arms report generation for cases whose previous run
// failed or produced an unsatisfying draft.
type GenerationControl interface {
	// RetryGeneration flips the case back to GENERATING and enqueues a new run.
	RetryGeneration(ctx context.Context, caseID, tenantID string) error
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for cases, documents, and report versions.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	caseSvc    CaseService
	versionSvc VersionService
	genCtl     GenerationControl
}

// New constructs and returns a Handlers instance bound to the given services.
func New(caseSvc CaseService, versionSvc VersionService, genCtl GenerationControl) *Handlers {
	return &Handlers{caseSvc: caseSvc, versionSvc: versionSvc, genCtl: genCtl}
}

// tenantID extracts the authenticated tenant id from Gin context (set by
// upstream middleware). If absent, it falls back to "X-Tenant-ID" header
// (tests use it), and finally to "demo-tenant". It never touches c.Request if
// it's nil.
func tenantID(c *gin.Context) string {
	if v, ok := c.Get("tenantID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-Tenant-ID")); h != "" {
			return h
		}
	}
	return "demo-tenant"
}

//
// DTOs
//

// CreateCaseRequest is the JSON payload for opening a case.
type CreateCaseRequest struct {
	// ClientRef optionally identifies the claimant in the caller's system.
	ClientRef string `json:"client_ref" example:"ACME-9931"`
	// Reference is the external claim reference (required).
	Reference string `json:"reference" binding:"required,min=1,max=255" example:"CLM-2024-00017"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListCasesResponse wraps a page of cases and pagination information.
type ListCasesResponse struct {
	Cases      []domain.Case `json:"cases"`
	Pagination Pagination    `json:"pagination"`
}

// DownloadURLResponse carries a time-limited signed URL for an artifact.
type DownloadURLResponse struct {
	URL string `json:"url" example:"https://storage.example.com/signed/abc"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// failDomain maps service sentinel errors onto HTTP statuses and stable codes,
// falling back to a 500 with the supplied code for anything unclassified.
func failDomain(c *gin.Context, err error, fallbackCode string) {
	switch {
	case errors.Is(err, services.ErrCaseNotFound),
		errors.Is(err, services.ErrDocumentNotFound),
		errors.Is(err, services.ErrVersionNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrCaseClosed),
		errors.Is(err, services.ErrGenerationInProgress),
		errors.Is(err, services.ErrNoSuccessfulDocuments):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, services.ErrEmptyReference),
		errors.Is(err, services.ErrMissingFilename),
		errors.Is(err, services.ErrEmptyFile),
		errors.Is(err, services.ErrEmptyDraftText):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, fallbackCode, err.Error())
	}
}

// readUpload pulls the "file" part out of a multipart form and returns its
// name, content type and bytes. It writes the error response itself and
// returns ok=false when the part is missing or unreadable.
func readUpload(c *gin.Context) (filename, mimeType string, data []byte, ok bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "multipart form must include a 'file' part")
		return "", "", nil, false
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable upload")
		return "", "", nil, false
	}
	defer f.Close()
	data, err = io.ReadAll(f)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable upload")
		return "", "", nil, false
	}
	return fh.Filename, fh.Header.Get("Content-Type"), data, true
}

//
// Handlers
//

// CreateCase godoc
// @ID          createCase
// @Summary     Open a new claim case
// @Description Creates a case for the current tenant and returns the case resource.
// @Tags        Cases
// @Accept      json
// @Produce     json
//
// @Param       X-Tenant-ID  header  string  false "Tenant ID (demo header)"  example(tenant123)
// @Param       body         body    handlers.CreateCaseRequest  true  "Create case payload"
//
// @Success     201  {object}  domain.Case
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /cases [post]
func (h *Handlers) CreateCase(c *gin.Context) {
	var req CreateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	cs, err := h.caseSvc.Create(c.Request.Context(), tenantID(c), req.ClientRef, req.Reference)
	if err != nil {
		failDomain(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, cs)
}

// ListCases godoc
// @ID          listCases
// @Summary     List cases (paginated)
// @Description Returns a page of the tenant's cases, newest first.
// @Tags        Cases
// @Produce     json
//
// @Param       X-Tenant-ID  header  string  false "Tenant ID (demo header)"  example(tenant123)
// @Param       page         query   int     false "Page number"      minimum(1) default(1)
// @Param       page_size    query   int     false "Items per page"   minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListCasesResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /cases [get]
func (h *Handlers) ListCases(c *gin.Context) {
	page, pageSize := clampPagination(c)

	items, total, err := h.caseSvc.ListPage(c.Request.Context(), tenantID(c), page, pageSize)
	if err != nil {
		failDomain(c, err, ErrCodeListFailed)
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListCasesResponse{
		Cases: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetCase godoc
// @ID          getCase
// @Summary     Fetch a case
// @Tags        Cases
// @Produce     json
//
// @Param       X-Tenant-ID  header  string  false "Tenant ID (demo header)"
// @Param       id           path    string  true  "Case ID"
//
// @Success     200  {object}  domain.Case
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /cases/{id} [get]
func (h *Handlers) GetCase(c *gin.Context) {
	cs, err := h.caseSvc.Get(c.Request.Context(), tenantID(c), c.Param("id"))
	if err != nil {
		failDomain(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, cs)
}

// DeleteCase godoc
// @ID          deleteCase
// @Summary     Soft-delete a case
// @Tags        Cases
//
// @Param       X-Tenant-ID  header  string  false "Tenant ID (demo header)"
// @Param       id           path    string  true  "Case ID"
//
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /cases/{id} [delete]
func (h *Handlers) DeleteCase(c *gin.Context) {
	if err := h.caseSvc.Delete(c.Request.Context(), tenantID(c), c.Param("id")); err != nil {
		failDomain(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}

// RegisterDocument godoc
// @ID          registerDocument
// @Summary     Upload a document to a case
// @Description Stores the uploaded file, registers it on the case, and enqueues
// @Description its AI extraction. Supply an Idempotency-Key header to make
// @Description retries safe; a replayed key returns the original document.
// @Tags        Documents
// @Accept      multipart/form-data
// @Produce     json
//
// @Param       X-Tenant-ID      header    string  false "Tenant ID (demo header)"
// @Param       Idempotency-Key  header    string  false "Client-chosen key for safe retries"
// @Param       id               path      string  true  "Case ID"
// @Param       file             formData  file    true  "Document to process"
//
// @Success     201  {object}  domain.Document
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Case not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Case is closed"
// @Router      /cases/{id}/documents [post]
func (h *Handlers) RegisterDocument(c *gin.Context) {
	filename, mimeType, data, okUpload := readUpload(c)
	if !okUpload {
		return
	}
	idemKey, _ := middleware.GetIdempotencyKey(c)

	doc, err := h.caseSvc.RegisterDocument(c.Request.Context(), tenantID(c), c.Param("id"), filename, mimeType, idemKey, data)
	if err != nil {
		failDomain(c, err, ErrCodeUploadFailed)
		return
	}
	ok(c, http.StatusCreated, doc)
}

// ListDocuments godoc
// @ID          listDocuments
// @Summary     List a case's documents
// @Tags        Documents
// @Produce     json
//
// @Param       X-Tenant-ID  header  string  false "Tenant ID (demo header)"
// @Param       id           path    string  true  "Case ID"
//
// @Success     200  {array}   domain.Document
// @Failure     404  {object}  handlers.ErrorResponse  "Case not found"
// @Router      /cases/{id}/documents [get]
func (h *Handlers) ListDocuments(c *gin.Context) {
	docs, err := h.caseSvc.ListDocuments(c.Request.Context(), tenantID(c), c.Param("id"))
	if err != nil {
		failDomain(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, docs)
}

// DocumentDownloadURL godoc
// @ID          documentDownloadURL
// @Summary     Signed download URL for a document's original file
// @Tags        Documents
// @Produce     json
//
// @Param       X-Tenant-ID  header  string  false "Tenant ID (demo header)"
// @Param       id           path    string  true  "Document ID"
//
// @Success     200  {object}  handlers.DownloadURLResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Document not found"
// @Router      /documents/{id}/download-url [get]
func (h *Handlers) DocumentDownloadURL(c *gin.Context) {
	url, err := h.caseSvc.DocumentDownloadURL(c.Request.Context(), tenantID(c), c.Param("id"))
	if err != nil {
		failDomain(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, DownloadURLResponse{URL: url})
}
