package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/certledger/certledger/internal/api/middleware"
	"github.com/certledger/certledger/internal/api/respond"
	"github.com/certledger/certledger/internal/db/repository"
	"github.com/certledger/certledger/internal/models"
	"github.com/certledger/certledger/internal/service"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// RecordHandler handles admin operations on local records and their
// documents. Nothing here touches the ledger: deleting or editing a record
// is local bookkeeping only.
type RecordHandler struct {
	records *repository.RecordRepository
	docs    service.DocumentStore
	audit   service.AuditSink
	maxDoc  int64
}

// NewRecordHandler creates a new record handler
func NewRecordHandler(records *repository.RecordRepository, docs service.DocumentStore, audit service.AuditSink, maxDocumentBytes int64) *RecordHandler {
	return &RecordHandler{
		records: records,
		docs:    docs,
		audit:   audit,
		maxDoc:  maxDocumentBytes,
	}
}

// ListRecords lists local records with search and pagination
// GET /v1/records?q=&limit=&offset=
func (h *RecordHandler) ListRecords(c *gin.Context) {
	search := c.Query("q")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if err != nil || limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	records, err := h.records.List(search, limit, offset)
	if err != nil {
		log.Printf("Error listing records: %v", err)
		respond.Error(c, http.StatusInternalServerError, "database_error", "Failed to list records")
		return
	}

	total, err := h.records.Count(search)
	if err != nil {
		log.Printf("Error counting records: %v", err)
		respond.Error(c, http.StatusInternalServerError, "database_error", "Failed to count records")
		return
	}

	if records == nil {
		records = []*models.LocalRecord{}
	}

	respond.Success(c, gin.H{
		"records": records,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// GetRecord returns one local record
// GET /v1/records/:certId
func (h *RecordHandler) GetRecord(c *gin.Context) {
	rec, err := h.records.GetByCertID(c.Param("certId"))
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "Record not found")
			return
		}
		log.Printf("Error getting record: %v", err)
		respond.Error(c, http.StatusInternalServerError, "database_error", "Failed to get record")
		return
	}

	respond.Success(c, rec)
}

// UpdateRecordRequest represents a record update request
type UpdateRecordRequest struct {
	Notes *string `json:"notes" binding:"required"`
}

// UpdateRecord updates the notes of a record
// PATCH /v1/records/:certId
func (h *RecordHandler) UpdateRecord(c *gin.Context) {
	certID := c.Param("certId")

	var req UpdateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	err := h.records.UpdateNotes(certID, *req.Notes)

	h.auditAction(c, models.ActionRecordUpdate, certID, err)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "Record not found")
			return
		}
		log.Printf("Error updating record: %v", err)
		respond.Error(c, http.StatusInternalServerError, "database_error", "Failed to update record")
		return
	}

	respond.Success(c, gin.H{"cert_id": certID, "status": "updated"})
}

// ReplaceDocument replaces the supporting document of a record
// PUT /v1/records/:certId/document  (multipart form: document)
func (h *RecordHandler) ReplaceDocument(c *gin.Context) {
	certID := c.Param("certId")

	if _, err := h.records.GetByCertID(certID); err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "Record not found")
			return
		}
		log.Printf("Error getting record: %v", err)
		respond.Error(c, http.StatusInternalServerError, "database_error", "Failed to get record")
		return
	}

	fileHeader, err := c.FormFile("document")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "A document file is required")
		return
	}
	if fileHeader.Size > h.maxDoc {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "Document exceeds the size limit")
		return
	}
	if !service.AllowedDocumentTypes[fileHeader.Header.Get("Content-Type")] {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "Document type is not allowed")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "Unreadable document upload")
		return
	}
	defer file.Close()

	path, err := h.docs.Save(certID, fileHeader.Filename, file)
	if err == nil {
		err = h.records.SetDocument(certID, path, fileHeader.Filename)
	}

	h.auditAction(c, models.ActionDocumentReplace, certID, err)
	if err != nil {
		log.Printf("Error replacing document for %s: %v", certID, err)
		respond.Error(c, http.StatusInternalServerError, "storage_error", "Failed to store document")
		return
	}

	respond.Success(c, gin.H{"cert_id": certID, "status": "document_replaced"})
}

// DownloadDocument serves the stored supporting document
// GET /v1/records/:certId/document
func (h *RecordHandler) DownloadDocument(c *gin.Context) {
	certID := c.Param("certId")

	rec, err := h.records.GetByCertID(certID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "Record not found")
			return
		}
		log.Printf("Error getting record: %v", err)
		respond.Error(c, http.StatusInternalServerError, "database_error", "Failed to get record")
		return
	}

	path, ok := h.docs.Path(certID)
	if !ok {
		respond.Error(c, http.StatusNotFound, "not_found", "No document stored for this certificate")
		return
	}

	if rec.DocumentOriginalName != "" {
		c.Header("Content-Disposition", `attachment; filename="`+rec.DocumentOriginalName+`"`)
	}
	c.File(path)
}

// DeleteRecord deletes a local record and its document. The ledger entry
// for the certificate is untouched; it remains verifiable.
// DELETE /v1/records/:certId
func (h *RecordHandler) DeleteRecord(c *gin.Context) {
	certID := c.Param("certId")

	err := h.records.Delete(certID)
	if err == nil {
		if derr := h.docs.Delete(certID); derr != nil {
			// Row is gone; an orphaned file is an operator cleanup, not a
			// failed request.
			log.Printf("Error deleting document for %s: %v", certID, derr)
		}
	}

	h.auditAction(c, models.ActionRecordDelete, certID, err)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "Record not found")
			return
		}
		log.Printf("Error deleting record: %v", err)
		respond.Error(c, http.StatusInternalServerError, "database_error", "Failed to delete record")
		return
	}

	respond.Success(c, gin.H{"cert_id": certID, "status": "deleted"})
}

func (h *RecordHandler) auditAction(c *gin.Context, action, certID string, opErr error) {
	entry := &models.AuditLog{
		Action:    action,
		Username:  c.GetString(middleware.ContextKeyAdminUser),
		CertID:    certID,
		ClientIP:  respond.ClientIP(c),
		UserAgent: c.GetHeader("User-Agent"),
		Success:   opErr == nil,
	}
	if opErr != nil {
		entry.ErrorMsg = opErr.Error()
	}
	if err := h.audit.Create(entry); err != nil {
		log.Printf("Failed to write audit log: %v", err)
	}
}
