package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/zaqqye/attendance_backend/internal/config"
	"github.com/zaqqye/attendance_backend/internal/controllers"
	"github.com/zaqqye/attendance_backend/internal/middleware"
	"github.com/zaqqye/attendance_backend/internal/models"
	"github.com/zaqqye/attendance_backend/internal/ws"
)

// Deps are the services the HTTP layer is built on.
type Deps struct {
	DB       *gorm.DB
	Config   *config.Config
	Sessions controllers.SessionStore
	Rounds   controllers.RoundService
	Hub      *ws.Hub
	Gatherer prometheus.Gatherer
}

func Register(r *gin.Engine, d Deps) {
	authCfg := middleware.AuthConfig{
		JWTSecret:    d.Config.JWTSecret,
		JWTExpiresIn: d.Config.TokenTTL(),
	}

	// Controllers
	authCtrl := &controllers.AuthController{DB: d.DB, Auth: authCfg}
	sessionCtrl := &controllers.SessionController{Store: d.Sessions}
	roundCtrl := &controllers.RoundController{Rounds: d.Rounds}
	if d.Hub != nil {
		roundCtrl.Stream = d.Hub
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// Public
	auth := r.Group("/api/v1/auth")
	{
		// Registration restricted to admin; see /api/v1/admin/users
		auth.POST("/login", authCtrl.Login)
	}

	// Protected
	api := r.Group("/api/v1", middleware.AuthMiddleware(d.DB, authCfg))
	{
		api.GET("/auth/me", authCtrl.Me)

		rounds := api.Group("/rounds")
		{
			rounds.GET("/current", roundCtrl.Current)
			rounds.POST("/current/check", middleware.RequireRoles(models.RoleMember), roundCtrl.CheckIn)
			rounds.GET("/events", roundCtrl.Events)
			rounds.GET("/ws", ws.Handler(d.Hub))
		}

		api.GET("/attendance/me", sessionCtrl.MyAttendance)

		// Admin-only
		admin := api.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
		{
			admin.POST("/users", authCtrl.Register)

			admin.GET("/sessions", sessionCtrl.ListSessions)
			admin.POST("/sessions", sessionCtrl.CreateSession)
			admin.GET("/sessions/:id", sessionCtrl.GetSession)
			admin.GET("/sessions/:id/attendance", sessionCtrl.SessionAttendance)

			admin.POST("/sessions/:id/rounds", roundCtrl.Open)
			admin.POST("/sessions/:id/rounds/:round/restart", roundCtrl.Restart)
			admin.GET("/rounds/current", roundCtrl.AdminCurrent)
			admin.DELETE("/rounds/current", roundCtrl.Close)
		}
	}
}
