package handlers

import (
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/certledger/certledger/internal/api/middleware"
	"github.com/certledger/certledger/internal/api/respond"
	"github.com/certledger/certledger/internal/models"
	"github.com/certledger/certledger/internal/pdf"
	"github.com/certledger/certledger/internal/service"
)

// CertHandler handles certificate issuance, verification, and revocation
type CertHandler struct {
	issuer   *service.Issuer
	verifier *service.Verifier
	renderer *pdf.Renderer
	audit    service.AuditSink
}

// NewCertHandler creates a new certificate handler
func NewCertHandler(issuer *service.Issuer, verifier *service.Verifier, renderer *pdf.Renderer, audit service.AuditSink) *CertHandler {
	return &CertHandler{
		issuer:   issuer,
		verifier: verifier,
		renderer: renderer,
		audit:    audit,
	}
}

// IssueCertificate issues a new certificate
// POST /v1/certs  (multipart form: student_name, course, grade, document?)
func (h *CertHandler) IssueCertificate(c *gin.Context) {
	in := service.IssueInput{
		StudentName: c.PostForm("student_name"),
		Course:      c.PostForm("course"),
		Grade:       c.PostForm("grade"),
		CertID:      c.PostForm("cert_id"),
	}

	fileHeader, err := c.FormFile("document")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "Malformed multipart upload")
		return
	}
	if fileHeader != nil {
		file, err := fileHeader.Open()
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "invalid_request", "Unreadable document upload")
			return
		}
		defer file.Close()

		in.Document = &service.DocumentInput{
			Name:        fileHeader.Filename,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Size:        fileHeader.Size,
			Reader:      file,
		}
	}

	result, err := h.issuer.Issue(c.Request.Context(), in)

	h.auditAction(c, models.ActionCertIssue, certIDForAudit(result, in.CertID), err)
	if err != nil {
		respond.AppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// VerifyCertificate answers a public verification request
// GET /v1/certs/:certId/verify
func (h *CertHandler) VerifyCertificate(c *gin.Context) {
	result, err := h.verifier.Verify(c.Request.Context(), c.Param("certId"))
	if err != nil {
		respond.AppError(c, err)
		return
	}

	respond.Success(c, result)
}

// QRCode serves the verification QR as a PNG image
// GET /v1/certs/:certId/qr
func (h *CertHandler) QRCode(c *gin.Context) {
	result, err := h.verifier.Verify(c.Request.Context(), c.Param("certId"))
	if err != nil {
		respond.AppError(c, err)
		return
	}
	if len(result.QRCode) == 0 {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "QR code unavailable")
		return
	}

	c.Data(http.StatusOK, "image/png", result.QRCode)
}

// CertificatePDF renders the printable certificate
// GET /v1/certs/:certId/pdf
func (h *CertHandler) CertificatePDF(c *gin.Context) {
	result, err := h.verifier.Verify(c.Request.Context(), c.Param("certId"))
	if err != nil {
		respond.AppError(c, err)
		return
	}

	data := pdf.CertificateData{
		CertID:      result.CertID,
		StudentName: result.StudentName,
		Course:      result.Course,
		Grade:       result.Grade,
		IssueDate:   time.Unix(result.IssuedAt, 0).UTC().Format("January 2, 2006"),
		Revoked:     result.Revoked,
		VerifyURL:   result.VerifyURL,
	}
	if len(result.QRCode) > 0 {
		data.QRDataURI = pdf.DataURI("image/png", base64.StdEncoding.EncodeToString(result.QRCode))
	}

	document, err := h.renderer.Render(c.Request.Context(), data)
	if err != nil {
		log.Printf("Error rendering certificate PDF for %s: %v", result.CertID, err)
		respond.Error(c, http.StatusInternalServerError, "render_error", "Failed to render certificate PDF")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.CertID+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", document)
}

// RevokeCertificate revokes a certificate on the ledger
// POST /v1/certs/:certId/revoke
func (h *CertHandler) RevokeCertificate(c *gin.Context) {
	certID := c.Param("certId")

	txRef, err := h.issuer.Revoke(c.Request.Context(), certID)

	h.auditAction(c, models.ActionCertRevoke, certID, err)
	if err != nil {
		respond.AppError(c, err)
		return
	}

	respond.Success(c, gin.H{
		"cert_id":      certID,
		"status":       "revoked",
		"tx_reference": txRef,
	})
}

func (h *CertHandler) auditAction(c *gin.Context, action, certID string, opErr error) {
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

func certIDForAudit(result *service.IssueResult, requested string) string {
	if result != nil {
		return result.CertID
	}
	return requested
}
