package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Thedy09/nkwa-vault-sub001/internal/config"
	"github.com/Thedy09/nkwa-vault-sub001/internal/domain"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/db"
	"github.com/Thedy09/nkwa-vault-sub001/internal/usecase"
)

type Server struct {
	cfg config.Config
	r   *gin.Engine

	certifyUC *usecase.CertifyContent
	verifyUC  *usecase.VerifyContent
	queryUC   *usecase.CertificateQuery
	rewards   *usecase.RewardService

	mode  domain.Mode
	store *db.Store

	adminAPIKey string
}

type ServerDeps struct {
	Certify *usecase.CertifyContent
	Verify  *usecase.VerifyContent
	Query   *usecase.CertificateQuery
	Rewards *usecase.RewardService
	Mode    domain.Mode
	Store   *db.Store
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:         cfg,
		r:           r,
		certifyUC:   deps.Certify,
		verifyUC:    deps.Verify,
		queryUC:     deps.Query,
		rewards:     deps.Rewards,
		mode:        deps.Mode,
		store:       deps.Store,
		adminAPIKey: cfg.AdminAPIKey,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		dbMode := "no-db"
		if s.store != nil && s.store.Available() {
			dbMode = "db"
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"mode":   string(s.mode),
			"db":     dbMode,
		})
	})

	v1 := s.r.Group("/v1")
	{
		v1.POST("/contents/certify", s.handleCertify)
		v1.GET("/contents/:content_id/verify", s.handleVerify)
		v1.GET("/contents/:content_id/certificate", s.handleCertificate)
		v1.GET("/contents/:content_id/history", s.handleHistory)

		v1.POST("/rewards", s.handleAward)
		v1.GET("/contributors/:address/certificates", s.handleContributorCertificates)
		v1.GET("/contributors/:address/rewards", s.handleContributorRewards)
		v1.GET("/contributors/:address/balance", s.handleContributorBalance)
		v1.GET("/contributors/:address/level", s.handleContributorLevel)
	}

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
}

func (s *Server) Run() error {
	return s.r.Run(s.cfg.HTTPAddr)
}
