package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/snapfeed/snapfeed/config"
	"github.com/snapfeed/snapfeed/controllers"
	"github.com/snapfeed/snapfeed/media"
	"github.com/snapfeed/snapfeed/middleware"
	"github.com/snapfeed/snapfeed/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, store media.Store) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Request logging goes to its own rolling file so the application log
	// stays readable.
	gl, err := utils.NewRollingFileLogger(cfg.GinLogPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.Use(middleware.PageViewRecorder(db))

	r.Static("/static", cfg.StaticDir)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticDir + "/index.html")
	})
	r.GET("/health", func(c *gin.Context) {
		utils.Success(c, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	userController := controllers.NewUserController(db)
	postController := controllers.NewPostController(db, store)
	commentController := controllers.NewCommentController(db)
	likeController := controllers.NewLikeController(db)
	statsController := controllers.NewStatsController(db)
	configController := controllers.NewConfigController()

	authed := middleware.AuthRequired(db)

	auth := r.Group("/auth")
	auth.Use(middleware.RateLimitMiddleware())
	auth.POST("/register", authController.Register)
	auth.GET("/captcha", authController.Captcha)
	auth.POST("/jwt/login", authController.Login)
	auth.POST("/jwt/logout", authed, authController.Logout)
	auth.POST("/request-verify-token", authController.RequestVerifyToken)
	auth.POST("/verify", authController.Verify)
	auth.POST("/forgot-password", authController.ForgotPassword)
	auth.POST("/reset-password", authController.ResetPassword)
	auth.GET("/oauth/:provider/login", authController.OAuthRedirect)
	auth.GET("/oauth/:provider/callback", authController.OAuthCallback)

	users := r.Group("/users")
	users.Use(authed)
	users.GET("/me", userController.Me)
	users.PATCH("/me", userController.UpdateMe)

	r.POST("/upload", authed, postController.Upload)
	r.GET("/feed", authed, postController.Feed)
	r.DELETE("/posts/:post_id", authed, postController.DeletePost)
	r.POST("/posts/:post_id/comments", authed, commentController.Create)
	// Comment listing is deliberately the only public post route.
	r.GET("/posts/:post_id/comments", commentController.List)
	r.POST("/posts/:post_id/like", authed, likeController.Toggle)

	r.GET("/stats", statsController.GetStats)
	r.GET("/config/client", configController.GetClientConfig)

	r.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/static/") {
			c.JSON(http.StatusNotFound, gin.H{"message": "static asset not found"})
			return
		}
		utils.Error(c, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
