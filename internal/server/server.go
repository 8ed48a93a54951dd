package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dinhhieu2003/toeic-recommender/internal/logger"
	"github.com/dinhhieu2003/toeic-recommender/internal/model"
	"github.com/dinhhieu2003/toeic-recommender/internal/recommend"
	"github.com/dinhhieu2003/toeic-recommender/internal/servedlog"
	"github.com/dinhhieu2003/toeic-recommender/internal/task"
	"github.com/dinhhieu2003/toeic-recommender/pkg/backend"
)

const (
	defaultLimit   = 5
	requestTimeout = 30 * time.Second
)

// Recommender is the slice of the orchestrator the transport layer needs.
type Recommender interface {
	Recommend(ctx context.Context, learnerID string, count int, opts recommend.Options) (*model.RecommendationList, error)
}

// FeedbackSink forwards recommendation feedback upstream.
type FeedbackSink interface {
	SaveFeedback(ctx context.Context, fb backend.Feedback) error
}

// Server is the HTTP API around the recommendation core.
type Server struct {
	router      *gin.Engine
	recommender Recommender
	feedback    FeedbackSink
	served      servedlog.Store
	tasks       *task.Manager
	apiToken    string
}

// NewServer wires the HTTP layer. apiToken may be empty, in which case the
// API is open (the service is meant to sit on an internal network).
func NewServer(rec Recommender, fb FeedbackSink, served servedlog.Store, tasks *task.Manager, apiToken string) *Server {
	s := &Server{
		router:      gin.Default(),
		recommender: rec,
		feedback:    fb,
		served:      served,
		tasks:       tasks,
		apiToken:    apiToken,
	}
	s.router.Use(s.corsMiddleware())
	s.setupRoutes()
	return s
}

// Run starts the server.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

// authMiddleware checks the Bearer service token when one is configured.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.apiToken == "" {
			c.Next()
			return
		}
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] != s.apiToken {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    "TOEIC Practice Recommender API",
			"version": "1.0.0",
			"status":  "running",
		})
	})
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	v1 := s.router.Group("/api/v1")
	v1.Use(s.authMiddleware())

	v1.GET("/recommendations/:learnerId", s.handleRecommend)
	v1.POST("/recommendations/:learnerId/jobs", s.handleRecommendJob)
	v1.GET("/tasks/:id", s.handleGetTask)
	v1.POST("/feedback", s.handleFeedback)
	v1.GET("/learners/:learnerId/served", s.handleServed)
}

// parseOptions reads the shared recommend query parameters.
func parseOptions(c *gin.Context) (int, recommend.Options, bool) {
	limit := defaultLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return 0, recommend.Options{}, false
		}
		limit = parsed
	}

	itemType := model.ItemType(c.Query("type"))
	if !itemType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be 'test' or 'lecture'"})
		return 0, recommend.Options{}, false
	}

	includeCompleted := false
	if raw := c.Query("include_completed"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "include_completed must be a boolean"})
			return 0, recommend.Options{}, false
		}
		includeCompleted = parsed
	}

	return limit, recommend.Options{
		IncludeCompleted: includeCompleted,
		ItemType:         itemType,
	}, true
}

// handleRecommend serves GET /api/v1/recommendations/:learnerId
func (s *Server) handleRecommend(c *gin.Context) {
	learnerID := c.Param("learnerId")
	limit, opts, ok := parseOptions(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	list, err := s.recommender.Recommend(ctx, learnerID, limit, opts)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.recordServed(list, opts.ItemType)
	c.JSON(http.StatusOK, list)
}

// handleRecommendJob serves POST /api/v1/recommendations/:learnerId/jobs
func (s *Server) handleRecommendJob(c *gin.Context) {
	learnerID := c.Param("learnerId")
	limit, opts, ok := parseOptions(c)
	if !ok {
		return
	}

	job := s.tasks.Create(learnerID)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if err := s.tasks.Start(job.ID); err != nil {
			logger.Error("Failed to start job %s: %v", job.ID, err)
			return
		}
		list, err := s.recommender.Recommend(ctx, learnerID, limit, opts)
		if err != nil {
			if ferr := s.tasks.Fail(job.ID, err); ferr != nil {
				logger.Error("Failed to record job failure %s: %v", job.ID, ferr)
			}
			return
		}
		s.recordServed(list, opts.ItemType)
		if cerr := s.tasks.Complete(job.ID, list); cerr != nil {
			logger.Error("Failed to complete job %s: %v", job.ID, cerr)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"task_id": job.ID, "status": job.Status})
}

// handleGetTask serves GET /api/v1/tasks/:id
func (s *Server) handleGetTask(c *gin.Context) {
	job, err := s.tasks.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, job)
}

// handleFeedback serves POST /api/v1/feedback
func (s *Server) handleFeedback(c *gin.Context) {
	var fb backend.Feedback
	if err := c.ShouldBindJSON(&fb); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := s.feedback.SaveFeedback(ctx, fb); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

// handleServed serves GET /api/v1/learners/:learnerId/served
func (s *Server) handleServed(c *gin.Context) {
	days := 7
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
			return
		}
		days = parsed
	}
	itemType := model.ItemType(c.Query("type"))
	if !itemType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be 'test' or 'lecture'"})
		return
	}

	items, err := s.served.Recent(c.Param("learnerId"), itemType, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"learner_id": c.Param("learnerId"),
		"days":       days,
		"item_ids":   items,
	})
}

// recordServed appends to the served log asynchronously so the response is
// not delayed by disk I/O.
func (s *Server) recordServed(list *model.RecommendationList, itemType model.ItemType) {
	if s.served == nil || list == nil || len(list.Items) == 0 {
		return
	}
	ids := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		ids = append(ids, item.ItemID)
	}
	go func() {
		if err := s.served.Append(list.LearnerID, itemType, ids); err != nil {
			logger.Error("Failed to record served recommendations for %s: %v", list.LearnerID, err)
		}
	}()
}

// writeError maps the core's error taxonomy onto HTTP statuses without
// downgrading any failure into a degraded-but-successful response.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, backend.ErrUpstreamAuth):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.Is(err, backend.ErrUpstreamUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, recommend.ErrInsufficientCatalog):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, recommend.ErrInvalidFeatureDimension):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
