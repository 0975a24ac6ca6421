package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lysyi3m/newsroom/app/database"
	"github.com/lysyi3m/newsroom/app/jobs"
)

// NewServer creates the HTTP engine with all routes configured. Cron routes
// require the cron secret only when one is set.
func NewServer(handler *Handler, cronSecret string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health", "/metrics"},
	}))

	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, cronSecret)

	return r
}

func setupRoutes(r *gin.Engine, h *Handler, cronSecret string) {
	r.GET("/", h.GetRoot)
	r.GET("/health", h.GetHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	cron := r.Group("/cron")
	if cronSecret != "" {
		cron.Use(cronAuthMiddleware(cronSecret))
		slog.Info("Cron endpoints require authentication")
	} else {
		slog.Warn("Cron endpoints are unauthenticated (CRON_SECRET not set)")
	}
	{
		cron.GET("/articles", h.RunCronJob(jobs.JobReporter))
		cron.GET("/edition", h.RunCronJob(jobs.JobNewspaper))
		cron.GET("/daily", h.RunCronJob(jobs.JobDaily))
		cron.GET("/events", h.RunCronJob(jobs.JobEvents))
	}

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.GET("/me", h.requireAuth(), h.GetMe)
	}

	// Published content is readable without a token.
	r.GET("/reporters", h.ListReporters)
	r.GET("/reporters/:id", h.GetReporter)
	r.GET("/reporters/:id/articles", h.ListReporterArticles)
	r.GET("/articles/:id", h.GetArticle)
	r.GET("/editions", h.ListEditions)
	r.GET("/editions/:id", h.GetEdition)
	r.GET("/daily-editions", h.ListDailyEditions)
	r.GET("/daily-editions/feed.xml", h.GetDailyFeed)
	r.GET("/daily-editions/:id", h.GetDailyEdition)
	r.GET("/events", h.ListEvents)

	staff := r.Group("/", h.requireAuth(), requireRole(database.RoleAdmin, database.RoleEditor))
	{
		staff.GET("/editor", h.GetEditor)
		staff.GET("/editor/jobs", h.ListJobs)
	}

	admin := r.Group("/", h.requireAuth(), requireRole(database.RoleAdmin))
	{
		admin.PUT("/editor", h.UpdateEditor)
		admin.POST("/editor/jobs", h.TriggerJob)

		admin.POST("/reporters", h.CreateReporter)
		admin.PUT("/reporters/:id", h.UpdateReporter)
		admin.DELETE("/reporters/:id", h.DeleteReporter)
		admin.POST("/reporters/:id/generate", h.GenerateReporterArticles)

		admin.POST("/articles/generate-from-events", h.GenerateArticlesFromEvents)
		admin.POST("/events/generate", h.GenerateEvents)

		admin.GET("/users", h.ListUsers)
		admin.PUT("/users/:id/role", h.UpdateUserRole)
	}

	ads := r.Group("/ads", h.requireAuth(), requireRole(database.RoleAdmin, database.RoleAdvertiser))
	{
		ads.GET("", h.ListAds)
		ads.POST("", h.CreateAd)
		ads.PUT("/:id", h.UpdateAd)
		ads.DELETE("/:id", h.DeleteAd)
	}
}
