package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"cassation-api/internal/metrics"
	"cassation-api/internal/service"
)

const userIDKey = "userID"

// Handler wires HTTP routes to domain services.
type Handler struct {
	users     service.UserService
	decisions service.DecisionService
	logger    *logrus.Logger
	recorder  metrics.HTTPRecorder
	gatherer  prometheus.Gatherer
}

// NewHandler builds the API handler. A nil gatherer leaves /metrics unregistered.
func NewHandler(users service.UserService, decisions service.DecisionService, logger *logrus.Logger, recorder metrics.HTTPRecorder, gatherer prometheus.Gatherer) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Handler{
		users:     users,
		decisions: decisions,
		logger:    logger,
		recorder:  recorder,
		gatherer:  gatherer,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware(), h.observe())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if h.gatherer != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler(h.gatherer)))
	}

	api := router.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
		authGroup.POST("/token/refresh", h.refresh)
		authGroup.GET("/me", h.requireAccess(), h.me)

		decisions := api.Group("/decisions")
		decisions.GET("", h.listDecisions)
		decisions.GET("/", h.listDecisions)
		decisions.GET("/search", h.searchDecisions)
		decisions.GET("/:id", h.getDecision)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// observe logs every request and records its latency under the matched route.
func (h *Handler) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		h.recorder.RecordRequest(c.Request.Method, route, status, elapsed)

		h.logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   status,
			"duration": elapsed.String(),
		}).Info("request")
	}
}

// requireAccess rejects requests without a valid bearer access token.
func (h *Handler) requireAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		id, err := h.users.Identify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// writeError maps service errors to statuses. Unexpected errors are logged and
// answered with a generic message.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Wrong credentials"})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Item not found"})
	case errors.Is(err, service.ErrUserAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
	default:
		h.logger.WithField("path", c.Request.URL.Path).Errorf("request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
