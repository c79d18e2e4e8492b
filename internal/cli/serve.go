package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/talent-matcher/internal/auth"
	"alfredoptarigan/talent-matcher/internal/config"
	"alfredoptarigan/talent-matcher/internal/handlers"
	"alfredoptarigan/talent-matcher/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the matching API and the embedding worker",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(parent context.Context) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := buildDeps(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer d.close(log)

	scorer := services.NewSimilarityScorer(d.embedder, cfg.Matching.LocationBonus, log)
	matcher := services.NewBatchMatcher(scorer, cfg.Matching.Concurrency, log)
	gateway := services.NewSearchGateway(d.profiles, d.index, d.embedder, cfg.Matching.SearchCandidatePool, log)
	recommendations := services.NewRecommendationService(d.recommendations, cfg.Matching.RecommendationThreshold, log)

	storage := services.NewFileStorage(cfg.Storage.UploadPath)
	if err := storage.EnsureDir(); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}
	resumes := services.NewResumeService(d.profiles, storage, services.NewResumeParser(), log)

	worker := services.NewWorker(d.profiles, d.refresher, services.WorkerOptions{
		Concurrency:  cfg.Worker.Concurrency,
		PollInterval: cfg.Worker.PollInterval,
		BatchSize:    cfg.Worker.BatchSize,
	}, log)
	worker.Start(ctx)

	revoker := auth.NewMemoryRevoker()
	go revoker.Run(ctx, time.Minute)

	profileHandler := handlers.NewProfileHandler(d.profiles, resumes, worker)
	matchHandler := handlers.NewMatchHandler(d.profiles, scorer, matcher, recommendations)
	searchHandler := handlers.NewSearchHandler(gateway)
	recommendationHandler := handlers.NewRecommendationHandler(recommendations)

	app := newApp(cfg)

	api := app.Group("/api/v1")
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":        "healthy",
			"time":          time.Now(),
			"vector_search": d.index != nil,
			"embedding":     cfg.Gemini.APIKey != "",
		})
	})

	if cfg.Auth.JWTSecret != "" {
		api.Use(auth.Middleware([]byte(cfg.Auth.JWTSecret), revoker))
		api.Post("/auth/logout", auth.LogoutHandler(revoker))
	} else {
		log.Warn("jwt secret is not set, api authentication disabled")
	}

	api.Post("/profiles", profileHandler.HandleCreate)
	api.Get("/profiles/:id", profileHandler.HandleGet)
	api.Put("/profiles/:id", profileHandler.HandleUpdate)
	api.Post("/profiles/:id/resume", profileHandler.HandleUploadResume)

	api.Post("/match/score", matchHandler.HandleScore)
	api.Post("/match", matchHandler.HandleMatch)

	api.Post("/search", searchHandler.HandleSearch)

	api.Get("/recommendations", recommendationHandler.HandleList)
	api.Post("/recommendations/:id/viewed", recommendationHandler.HandleMarkViewed)

	go func() {
		<-ctx.Done()
		log.Info("shutting down server")
		worker.Stop()
		if err := app.Shutdown(); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Server.Env))

	if err := app.Listen(addr); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func newApp(cfg *config.Config) *fiber.App {
	bodyLimit := int(cfg.Storage.MaxFileSize) + 1<<20
	if cfg.Storage.MaxFileSize <= 0 {
		bodyLimit = int(services.MaxResumeBytes) + 1<<20
	}

	app := fiber.New(fiber.Config{
		AppName:      "Talent Matcher API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    bodyLimit,
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	return app
}
