package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/certledger/certledger/internal/api/handlers"
	"github.com/certledger/certledger/internal/api/middleware"
	"github.com/certledger/certledger/internal/config"
	"github.com/certledger/certledger/internal/db/repository"
	"github.com/certledger/certledger/internal/pdf"
	"github.com/certledger/certledger/internal/service"
)

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	config *config.Config
}

// NewServer creates a new API server
func NewServer(
	cfg *config.Config,
	issuer *service.Issuer,
	verifier *service.Verifier,
	renderer *pdf.Renderer,
	docs service.DocumentStore,
	recordRepo *repository.RecordRepository,
	adminRepo *repository.AdminRepository,
	auditRepo *repository.AuditRepository,
) *Server {
	// Set Gin mode
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())

	// Create handlers
	certHandler := handlers.NewCertHandler(issuer, verifier, renderer, auditRepo)
	recordHandler := handlers.NewRecordHandler(recordRepo, docs, auditRepo, cfg.MaxDocumentBytes())
	authHandler := handlers.NewAuthHandler(adminRepo, auditRepo, cfg.Auth.JWTSecret, cfg.GetTokenValidity())
	adminHandler := handlers.NewAdminHandler(adminRepo, auditRepo)

	// API v1 routes
	v1 := router.Group("/v1")
	{
		// Public verification endpoints
		public := v1.Group("/certs")
		if cfg.RateLimit.Enabled {
			public.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerMinute))
		}
		{
			public.GET("/:certId/verify", certHandler.VerifyCertificate)
			public.GET("/:certId/qr", certHandler.QRCode)
			public.GET("/:certId/pdf", certHandler.CertificatePDF)
		}

		// Admin login
		v1.POST("/auth/login", authHandler.Login)

		// Admin endpoints (require a session token)
		admin := v1.Group("")
		admin.Use(middleware.AdminAuth(cfg.Auth.JWTSecret))
		{
			admin.POST("/certs", certHandler.IssueCertificate)
			admin.POST("/certs/:certId/revoke", certHandler.RevokeCertificate)

			admin.GET("/records", recordHandler.ListRecords)
			admin.GET("/records/:certId", recordHandler.GetRecord)
			admin.PATCH("/records/:certId", recordHandler.UpdateRecord)
			admin.DELETE("/records/:certId", recordHandler.DeleteRecord)
			admin.PUT("/records/:certId/document", recordHandler.ReplaceDocument)
			admin.GET("/records/:certId/document", recordHandler.DownloadDocument)

			admin.POST("/admin/users", adminHandler.CreateUser)
			admin.GET("/admin/audit", adminHandler.ListAudit)
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &Server{
		router: router,
		config: cfg,
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	return s.router.Run(s.config.Server.ListenAddr)
}

// Router returns the underlying Gin router
func (s *Server) Router() *gin.Engine {
	return s.router
}
