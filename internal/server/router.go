// Package server assembles the HTTP routes of the roster API.
package server

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-roster-api/internal/handler"
	"github.com/noah-isme/sma-roster-api/internal/middleware"
	"github.com/noah-isme/sma-roster-api/internal/service"
	"github.com/noah-isme/sma-roster-api/pkg/config"
	"github.com/noah-isme/sma-roster-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-roster-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-roster-api/pkg/middleware/requestid"
)

// Deps carries the services the router dispatches to.
type Deps struct {
	Config  *config.Config
	Logger  *zap.Logger
	Roster  *service.RosterService
	Imports *service.ImportService
	Exports *service.ExportService
	Auth    *service.AuthService
	Metrics *service.MetricsService
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(d.Logger))
	r.Use(corsmiddleware.New(d.Config.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(d.Metrics))

	metricsHandler := handler.NewMetricsHandler(d.Metrics, d.Roster.Loaded)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if d.Config.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	rosterHandler := handler.NewRosterHandler(d.Roster)
	importHandler := handler.NewImportHandler(d.Imports)
	exportHandler := handler.NewExportHandler(d.Exports)
	authHandler := handler.NewAuthHandler(d.Auth)

	api := r.Group(d.Config.APIPrefix)
	api.POST("/auth/login", authHandler.Login)
	// Signed tokens authorise downloads on their own.
	api.GET("/exports/:token", exportHandler.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(d.Auth))

	secured.GET("/behaviors", rosterHandler.Behaviors)

	classes := secured.Group("/classes")
	classes.GET("", rosterHandler.ListClasses)
	classes.POST("", rosterHandler.CreateClass)
	classes.GET("/:class/students", rosterHandler.ListStudents)
	classes.POST("/:class/students", rosterHandler.CreateStudent)
	classes.POST("/:class/students/import", importHandler.Import)
	classes.POST("/:class/students/:id/behaviors", rosterHandler.RecordBehavior)
	classes.PUT("/:class/students/:id/attendance", rosterHandler.SetAttendance)
	classes.GET("/:class/snapshot", rosterHandler.Snapshot)
	classes.POST("/:class/exports", exportHandler.Create)

	students := secured.Group("/students")
	students.GET("/:id", rosterHandler.GetStudent)
	students.GET("/:id/history", rosterHandler.History)
	students.GET("/:id/absences", rosterHandler.Absences)

	return r
}
