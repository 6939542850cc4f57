// Package api exposes the recommendation and farmer services over HTTP.
package api

import (
	"net/http"

	"cropadvisor/internal"
	apperrors "cropadvisor/internal/errors"
	"cropadvisor/internal/farmers"
	"cropadvisor/internal/metrics"
	"cropadvisor/internal/recommend"

	"github.com/gin-gonic/gin"
)

// Server holds the HTTP handlers of the public API
type Server struct {
	recommender *recommend.Service
	farmers     *farmers.Service
	hub         *EventHub
	metrics     *metrics.Metrics
	logger      *internal.Logger
	maxRows     int
}

// Deps are the collaborators of a Server. Farmers and Hub are optional; their
// routes answer 404 when unset.
type Deps struct {
	Recommender *recommend.Service
	Farmers     *farmers.Service
	Hub         *EventHub
	Metrics     *metrics.Metrics
	Logger      *internal.Logger
	MaxRows     int
}

// NewServer creates the API server
func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = internal.DefaultLogger
	}
	if deps.MaxRows <= 0 {
		deps.MaxRows = 5000
	}
	return &Server{
		recommender: deps.Recommender,
		farmers:     deps.Farmers,
		hub:         deps.Hub,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		maxRows:     deps.MaxRows,
	}
}

// Router builds the gin engine with every route registered
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.metrics.GinMiddleware())
	router.MaxMultipartMemory = 8 << 20

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", s.handleHealth)
		v1.GET("/crops", s.handleCrops)
		v1.POST("/features", s.handleFeatures)

		recs := v1.Group("/recommendations")
		recs.POST("", s.handleRecommend)
		recs.POST("/batch", s.handleBatch)
		if s.hub != nil {
			recs.GET("/stream", s.hub.HandleStream)
		}

		if s.farmers != nil {
			f := v1.Group("/farmers")
			f.POST("/signup", s.handleSignup)
			f.POST("/signin", s.handleSignin)
			f.POST("/import", s.handleImportFarmers)
			f.GET("", s.handleListFarmers)
			f.GET("/:id", s.handleGetFarmer)
			f.GET("/:id/recommendations", s.handleFarmerHistory)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found", "code": apperrors.CodeNotFound})
	})
	return router
}

// respondError writes err as JSON with the status matching its code
func (s *Server) respondError(c *gin.Context, err error) {
	code := apperrors.GetCode(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		s.logger.Error("[API] %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": "internal server error", "code": code})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

func statusFor(code string) int {
	switch code {
	case apperrors.CodeInvalidInput:
		return http.StatusBadRequest
	case apperrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeConflict:
		return http.StatusConflict
	case apperrors.CodeModelUnavailable, apperrors.CodeExternalService:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
