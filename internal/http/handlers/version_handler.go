// Report-version HTTP handlers.
//
// This file exposes REST endpoints for the human review loop around generated
// reports:
//   - GET  /cases/{id}/versions              (history, newest first)
//   - POST /cases/{id}/versions/preliminary  (upload an edited working copy)
//   - POST /cases/{id}/versions/final        (upload the approved final report)
//   - POST /cases/{id}/generation/retry      (re-run report generation)
//   - GET  /versions/{id}/download-url       (signed artifact URL)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListVersions godoc
// @ID          listVersions
// @Summary     List a case's report versions
// @Tags        Versions
// @Produce     json
//
// @Param       X-Tenant-ID  header  string  false "Tenant ID (demo header)"
// @Param       id           path    string  true  "Case ID"
//
// @Success     200  {array}   domain.ReportVersion
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /cases/{id}/versions [get]
func (h *Handlers) ListVersions(c *gin.Context) {
	versions, err := h.versionSvc.List(c.Request.Context(), tenantID(c), c.Param("id"))
	if err != nil {
		failDomain(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, versions)
}

// UploadPreliminary godoc
// @ID          uploadPreliminaryVersion
// @Summary     Upload an edited working copy of the report
// @Description Records the adjuster's in-progress edit as the next non-final
// @Description version. The case stays open for further edits or regeneration.
// @Tags        Versions
// @Accept      multipart/form-data
// @Produce     json
//
// @Param       X-Tenant-ID  header    string  false "Tenant ID (demo header)"
// @Param       id           path      string  true  "Case ID"
// @Param       file         formData  file    true  "Edited report artifact"
//
// @Success     201  {object}  domain.ReportVersion
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Case not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Case is closed"
// @Router      /cases/{id}/versions/preliminary [post]
func (h *Handlers) UploadPreliminary(c *gin.Context) {
	filename, mimeType, data, okUpload := readUpload(c)
	if !okUpload {
		return
	}
	v, err := h.versionSvc.UploadPreliminary(c.Request.Context(), tenantID(c), c.Param("id"), filename, mimeType, data)
	if err != nil {
		failDomain(c, err, ErrCodeUploadFailed)
		return
	}
	ok(c, http.StatusCreated, v)
}

// UploadFinal godoc
// @ID          uploadFinalVersion
// @Summary     Upload the approved final report
// @Description Records the approved artifact as the final version, pairs it
// @Description with the latest AI draft for model training, and closes the
// @Description case. Closed cases accept no further uploads.
// @Tags        Versions
// @Accept      multipart/form-data
// @Produce     json
//
// @Param       X-Tenant-ID  header    string  false "Tenant ID (demo header)"
// @Param       id           path      string  true  "Case ID"
// @Param       file         formData  file    true  "Final report artifact"
//
// @Success     201  {object}  domain.ReportVersion
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Case not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Case already closed"
// @Router      /cases/{id}/versions/final [post]
func (h *Handlers) UploadFinal(c *gin.Context) {
	filename, mimeType, data, okUpload := readUpload(c)
	if !okUpload {
		return
	}
	v, err := h.versionSvc.UploadFinal(c.Request.Context(), tenantID(c), c.Param("id"), filename, mimeType, data)
	if err != nil {
		failDomain(c, err, ErrCodeUploadFailed)
		return
	}
	ok(c, http.StatusCreated, v)
}

// RetryGeneration godoc
// @ID          retryGeneration
// @Summary     Re-run report generation for a case
// @Description Flips the case back to GENERATING and enqueues a fresh
// @Description generation run over the successfully extracted documents.
// @Tags        Versions
// @Produce     json
//
// @Param       X-Tenant-ID  header  string  false "Tenant ID (demo header)"
// @Param       id           path    string  true  "Case ID"
//
// @Success     202  {string}  string  "Accepted"
// @Failure     404  {object}  handlers.ErrorResponse  "Case not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Generation already running, or nothing to generate from"
// @Router      /cases/{id}/generation/retry [post]
func (h *Handlers) RetryGeneration(c *gin.Context) {
	if err := h.genCtl.RetryGeneration(c.Request.Context(), c.Param("id"), tenantID(c)); err != nil {
		failDomain(c, err, ErrCodeDispatchFailed)
		return
	}
	c.Status(http.StatusAccepted)
}

// VersionDownloadURL godoc
// @ID          versionDownloadURL
// @Summary     Signed download URL for a version's artifact
// @Tags        Versions
// @Produce     json
//
// @Param       X-Tenant-ID  header  string  false "Tenant ID (demo header)"
// @Param       id           path    string  true  "Version ID"
//
// @Success     200  {object}  handlers.DownloadURLResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Version not found"
// @Router      /versions/{id}/download-url [get]
func (h *Handlers) VersionDownloadURL(c *gin.Context) {
	url, err := h.versionSvc.DownloadURL(c.Request.Context(), tenantID(c), c.Param("id"))
	if err != nil {
		failDomain(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, DownloadURLResponse{URL: url})
}
