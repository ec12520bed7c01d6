package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/movecraft/choreo-backend/internal/handlers"
)

type RouterConfig struct {
	ChoreographyHandler *handlers.ChoreographyHandler
	CorpusHandler       *handlers.CorpusHandler
	AllowOrigins        []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/choreography/generate", cfg.ChoreographyHandler.Generate)
		api.POST("/corpus/reload", cfg.CorpusHandler.Reload)
		api.GET("/corpus/stats", cfg.CorpusHandler.Stats)
	}

	return router
}
