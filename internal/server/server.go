package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/reddit-clone/votes/internal/database"
	"github.com/emilythestrangee/reddit-clone/votes/internal/handlers"
	"github.com/emilythestrangee/reddit-clone/votes/internal/middleware"
)

// HealthFunc reports dependency health for /health.
type HealthFunc func(ctx context.Context) map[string]string

type Server struct {
	handler   *handlers.Handler
	jwtSecret []byte
	health    HealthFunc
}

// NewServer creates and configures a new server
func NewServer(port string, jwtSecret []byte, db database.Service, handler *handlers.Handler) *http.Server {
	newServer := &Server{
		handler:   handler,
		jwtSecret: jwtSecret,
		health:    db.Health,
	}

	// Configure Gin router
	router := newServer.RegisterRoutes()

	// Create HTTP server
	server := &http.Server{
		Addr:         "0.0.0.0:" + port,
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("🚀 Server starting on port %s\n", port)

	return server
}

// NewRouter builds the router without an http.Server around it.
func NewRouter(handler *handlers.Handler, jwtSecret []byte, health HealthFunc) *gin.Engine {
	s := &Server{handler: handler, jwtSecret: jwtSecret, health: health}
	return s.RegisterRoutes()
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.Default()
	r.Use(middleware.RequestID())

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		if s.health == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		stats := s.health(c.Request.Context())
		status := http.StatusOK
		if stats["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, stats)
	})

	// Voting requires a bearer token; reads accept one to personalize.
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(s.jwtSecret))
	{
		// Feed routes
		api.GET("/posts", s.handler.Post.GetPosts)
		api.GET("/posts/:id", s.handler.Post.GetPost)
		api.GET("/posts/:id/comments", s.handler.Comment.GetComments)

		// Post votes
		api.GET("/posts/:id/vote", s.handler.Vote.GetPostVote)
		api.POST("/posts/:id/vote", s.handler.Vote.VotePost)
		api.POST("/posts/:id/reconcile", s.handler.Vote.ReconcilePost)

		// Comment votes
		api.GET("/comments/:commentId/vote", s.handler.Vote.GetCommentVote)
		api.POST("/comments/:commentId/vote", s.handler.Vote.VoteComment)
		api.POST("/comments/:commentId/upvote", s.handler.Vote.UpvoteComment)
		api.POST("/comments/:commentId/downvote", s.handler.Vote.DownvoteComment)
		api.POST("/comments/:commentId/reconcile", s.handler.Vote.ReconcileComment)
	}

	return r
}
