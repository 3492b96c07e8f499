package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sarthaktajane07/DineFlow/controllers"
	"github.com/sarthaktajane07/DineFlow/middlewares"
	"github.com/sarthaktajane07/DineFlow/models"
	"github.com/sarthaktajane07/DineFlow/realtime"
	"github.com/sarthaktajane07/DineFlow/services"
	"github.com/sarthaktajane07/DineFlow/utils"
	"github.com/sirupsen/logrus"
)

// Dependencies are built once in main and shared by every handler.
type Dependencies struct {
	Tables      *services.TableService
	Waitlist    *services.WaitlistService
	Users       *services.UserService
	Recorder    *services.ActivityRecorder
	Hub         *realtime.Hub
	Tokens      *utils.TokenIssuer
	Log         logrus.FieldLogger
	CORSOrigins []string
	RateLimiter *middlewares.RateLimiter
}

func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(middlewares.RecoveryMiddleware(deps.Log))
	r.Use(middlewares.LoggerMiddleware(deps.Log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(deps.CORSOrigins))
	if deps.RateLimiter != nil {
		r.Use(deps.RateLimiter.RateLimit())
	}

	tableCtrl := controllers.NewTableController(deps.Tables, deps.Log)
	waitlistCtrl := controllers.NewWaitlistController(deps.Waitlist, deps.Log)
	activityCtrl := controllers.NewActivityController(deps.Recorder, deps.Log)
	userCtrl := controllers.NewUserController(deps.Users, deps.Log)
	realtimeCtrl := controllers.NewRealtimeController(deps.Hub, deps.Log)

	r.GET("/health", func(c *gin.Context) {
		utils.RespondJSON(c, http.StatusOK, "DineFlow API is running", gin.H{
			"timestamp": time.Now().UTC(),
			"observers": deps.Hub.ObserverCount(),
		})
	})

	r.GET("/ws", middlewares.AuthMiddleware(deps.Tokens, deps.Users, true), realtimeCtrl.Connect)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", userCtrl.Login)

		protected := authGroup.Group("")
		protected.Use(middlewares.AuthMiddleware(deps.Tokens, deps.Users, false))
		protected.GET("/me", userCtrl.GetProfile)
		protected.PUT("/update-profile", userCtrl.UpdateProfile)
		protected.PUT("/update-password", userCtrl.UpdatePassword)
		protected.POST("/register", middlewares.RequireRoles(models.RoleManager), userCtrl.Register)
	}

	auth := api.Group("")
	auth.Use(middlewares.AuthMiddleware(deps.Tokens, deps.Users, false))

	staff := middlewares.RequireRoles(models.RoleManager, models.RoleHost, models.RoleStaff)
	hosts := middlewares.RequireRoles(models.RoleManager, models.RoleHost)
	managers := middlewares.RequireRoles(models.RoleManager)

	tables := auth.Group("/tables")
	{
		tables.GET("", staff, tableCtrl.GetAllTables)
		tables.GET("/stats/overview", staff, tableCtrl.GetTableStats)
		tables.GET("/:id", staff, tableCtrl.GetTable)
		tables.POST("", staff, tableCtrl.CreateTable)
		tables.PUT("/:id", staff, tableCtrl.UpdateTable)
		tables.DELETE("/:id", managers, tableCtrl.DeleteTable)
	}

	waitlist := auth.Group("/waitlist")
	{
		waitlist.GET("", staff, waitlistCtrl.GetWaitlist)
		waitlist.GET("/stats/overview", staff, waitlistCtrl.GetWaitlistStats)
		waitlist.GET("/:id", staff, waitlistCtrl.GetEntry)
		waitlist.POST("", hosts, waitlistCtrl.AddToWaitlist)
		waitlist.PUT("/:id", hosts, waitlistCtrl.UpdateEntry)
		waitlist.DELETE("/:id", hosts, waitlistCtrl.RemoveFromWaitlist)
		waitlist.POST("/:id/notify", hosts, waitlistCtrl.NotifyGuest)
		waitlist.POST("/:id/seat", hosts, waitlistCtrl.SeatGuest)
	}

	auth.GET("/activities", staff, activityCtrl.GetActivities)

	r.NoRoute(func(c *gin.Context) {
		utils.RespondJSON(c, http.StatusNotFound, "Route not found", nil)
	})

	return r
}
