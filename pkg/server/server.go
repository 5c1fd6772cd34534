package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"backmybuild/pkg/profile"
	"backmybuild/pkg/store"
)

// Store is the persistence surface the API needs.
type Store interface {
	CreateTip(ctx context.Context, tip *store.Tip) (*store.User, error)
	CountView(ctx context.Context, identity string) (*store.User, error)
	FetchAnalytics(ctx context.Context, identity string, limit int) (*store.Analytics, error)
}

// ProfileResolver resolves identities to profile metadata.
type ProfileResolver interface {
	Resolve(ctx context.Context, identity string) (*profile.Profile, error)
}

// Config controls the HTTP server.
type Config struct {
	CORSEnabled bool
}

// Server is the backend HTTP API: profile lookup, tip recording, view
// counting and analytics.
type Server struct {
	config   Config
	logger   *zap.Logger
	store    Store
	profiles ProfileResolver
}

// New creates a server.
func New(logger *zap.Logger, db Store, profiles ProfileResolver, config Config) *Server {
	return &Server{
		config:   config,
		logger:   logger,
		store:    db,
		profiles: profiles,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if s.config.CORSEnabled {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000", "https://localhost:3000"}
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	r.GET("/health", s.handleHealth)
	r.GET("/api/profile/:identity", s.handleProfile)
	r.POST("/api/tips", s.handleCreateTip)
	r.POST("/api/views/:identity", s.handleCountView)
	r.GET("/api/analytics/:identity", s.handleAnalytics)

	return r
}

// Start runs the server on the given port. Blocks until the listener fails.
func (s *Server) Start(port string) error {
	s.logger.Info("starting API server", zap.String("port", port))
	return s.Router().Run(":" + port)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleProfile(c *gin.Context) {
	identity := c.Param("identity")

	p, err := s.profiles.Resolve(c.Request.Context(), identity)
	if errors.Is(err, profile.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	if err != nil {
		s.logger.Error("profile lookup failed", zap.String("identity", identity), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "profile lookup failed"})
		return
	}

	c.JSON(http.StatusOK, p)
}

type createTipRequest struct {
	ToUser        string          `json:"to_user" binding:"required"`
	FromUser      string          `json:"from_user"`
	Message       string          `json:"message"`
	AmountUSD     decimal.Decimal `json:"amount_usd" binding:"required"`
	TokenSymbol   string          `json:"token_symbol"`
	SourceChainID int64           `json:"source_chain_id"`
	TxHash        string          `json:"tx_hash"`
}

func (s *Server) handleCreateTip(c *gin.Context) {
	var req createTipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.AmountUSD.Sign() <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount_usd must be positive"})
		return
	}

	tip := &store.Tip{
		ToUser:        req.ToUser,
		FromUser:      req.FromUser,
		Message:       req.Message,
		AmountUSD:     req.AmountUSD,
		TokenSymbol:   req.TokenSymbol,
		SourceChainID: req.SourceChainID,
		TxHash:        req.TxHash,
	}

	user, err := s.store.CreateTip(c.Request.Context(), tip)
	if err != nil {
		s.logger.Error("failed to record tip", zap.String("to", req.ToUser), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record tip"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"tip": tip, "user": user})
}

func (s *Server) handleCountView(c *gin.Context) {
	identity := c.Param("identity")

	user, err := s.store.CountView(c.Request.Context(), identity)
	if err != nil {
		s.logger.Error("failed to count view", zap.String("identity", identity), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count view"})
		return
	}

	c.JSON(http.StatusOK, user)
}

func (s *Server) handleAnalytics(c *gin.Context) {
	identity := c.Param("identity")

	analytics, err := s.store.FetchAnalytics(c.Request.Context(), identity, store.DefaultRecentTips)
	if errors.Is(err, store.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if err != nil {
		s.logger.Error("failed to fetch analytics", zap.String("identity", identity), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch analytics"})
		return
	}

	c.JSON(http.StatusOK, analytics)
}
