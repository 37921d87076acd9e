package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/TIANLI0/TissueKit/config"
	"github.com/TIANLI0/TissueKit/handler"
	"github.com/TIANLI0/TissueKit/middleware"
	"github.com/TIANLI0/TissueKit/model"
	"github.com/TIANLI0/TissueKit/service"
	"github.com/TIANLI0/TissueKit/store"
	"github.com/TIANLI0/TissueKit/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	BuildID   = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

func main() {
	cfg := config.New()

	if err := utils.InitLogger(cfg.Server.Mode); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer utils.Sync()

	utils.Logger.Info("starting TissueKit server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("git_branch", GitBranch))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := store.Open(ctx, &cfg.Database)
	if err == nil {
		err = store.Migrate(ctx, db)
	}
	cancel()
	if err != nil {
		utils.Logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()
	utils.Logger.Info("database connected")

	redisService := service.NewRedisService(&cfg.Redis)
	if err := redisService.Ping(context.Background()); err != nil {
		utils.Logger.Warn("redis connection failed, cache and grid sessions unavailable", zap.Error(err))
	} else {
		utils.Logger.Info("redis connected successfully")
	}
	defer redisService.Close()

	users := store.NewUserRepo(db)
	cases := store.NewCaseRepo(db)
	images := store.NewImageRepo(db)

	masks := service.NewMaskProcessor(cfg.Analysis.PolygonEpsilon)
	inference := service.NewInferenceClient(&cfg.Inference, masks)
	var segmenter service.Segmenter = inference
	if cfg.Inference.Segmenter == "grabcut" {
		segmenter = service.NewGrabCutSegmenter(cfg.Inference.GrabCutIterations, masks)
	}
	utils.Logger.Info("inference configured",
		zap.String("base_url", cfg.Inference.BaseURL),
		zap.String("segmenter", cfg.Inference.Segmenter))
	analysisService := service.NewAnalysisService(&cfg.Analysis,
		inference.Detector(cfg.Inference.CapsuleModel),
		inference.Detector(cfg.Inference.TissueModel),
		segmenter)
	retrievalService := service.NewRetrievalService(masks, cfg.Upload.PreviewMaxSize)
	authService := service.NewAuthService(&cfg.Auth, users)

	authHandler := handler.NewAuthHandler(authService)
	caseHandler := handler.NewCaseHandler(&cfg.Upload, cases, images, analysisService, retrievalService, redisService)
	gridHandler := handler.NewGridHandler(images, redisService, retrievalService)

	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.Logger())
	r.MaxMultipartMemory = cfg.Upload.MaxSize

	r.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		dbStatus := "ok"
		if err := db.PingContext(c.Request.Context()); err != nil {
			status = http.StatusServiceUnavailable
			dbStatus = err.Error()
		}
		c.JSON(status, gin.H{
			"status":  http.StatusText(status),
			"db":      dbStatus,
			"version": Version,
		})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"build_id":   BuildID,
			"git_commit": GitCommit,
			"git_branch": GitBranch,
		})
	})

	r.POST("/register", middleware.OptionalAuth(authService), authHandler.Register)
	r.POST("/token", authHandler.Token)
	r.POST("/logout", authHandler.Logout)

	api := r.Group("/", middleware.Auth(authService))
	{
		api.POST("/cases", middleware.RequireRoles(model.RoleAdmin), caseHandler.CreateCase)
		api.POST("/cases/:case_name/upload-image",
			middleware.RequireRoles(model.RoleAdmin, model.RoleMacroPathologist), caseHandler.UploadImage)
		api.GET("/cases/:case_name/images",
			middleware.RequireRoles(model.RoleAdmin, model.RoleDiagnosticPathologist), caseHandler.ListImages)

		grid := api.Group("/images/:id/records/:index/grid",
			middleware.RequireRoles(model.RoleAdmin, model.RoleDiagnosticPathologist, model.RoleMacroPathologist))
		{
			grid.GET("", gridHandler.Get)
			grid.DELETE("", gridHandler.Reset)
			grid.POST("/move", gridHandler.Move)
			grid.POST("/resize", gridHandler.Resize)
			grid.GET("/preview", gridHandler.Preview)
		}
	}

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	utils.Logger.Info("server starting", zap.String("port", cfg.Server.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		utils.Logger.Fatal("failed to start server", zap.Error(err))
	}
}
