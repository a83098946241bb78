package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	config "github.com/maheshrc27/reelflow/configs"
	"github.com/maheshrc27/reelflow/db"
	"github.com/maheshrc27/reelflow/internal/api/handlers"
	"github.com/maheshrc27/reelflow/internal/api/middleware"
	job "github.com/maheshrc27/reelflow/internal/jobs"
	"github.com/maheshrc27/reelflow/internal/queue"
	"github.com/maheshrc27/reelflow/internal/repository"
	"github.com/maheshrc27/reelflow/internal/service"
	"github.com/maheshrc27/reelflow/pkg/utils"
	"github.com/robfig/cron"
	"golang.org/x/time/rate"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	conn, err := db.Open(cfg.PostgresURI)
	if err != nil {
		log.Fatal(err)
	}

	if err := db.Migrate(conn); err != nil {
		closeDB(conn)
		log.Fatal(err)
	}

	codec, err := utils.NewSecretCodec(cfg.EncryptionKey)
	if err != nil {
		closeDB(conn)
		log.Fatalf("Invalid ENCRYPTION_KEY: %v", err)
	}

	blobs, err := newBlobStore(cfg)
	if err != nil {
		closeDB(conn)
		log.Fatalf("Failed to set up storage: %v", err)
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    int(cfg.MaxUploadBytes) + 1024*1024, // multipart overhead
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return cfg.FrontendURL == "" || origin == cfg.FrontendURL
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	userRepo := repository.NewUserRepository(conn)
	accountRepo := repository.NewAccountRepository(conn)
	pageRepo := repository.NewPageRepository(conn)
	uploadRepo := repository.NewUploadRepository(conn)
	postRepo := repository.NewPostRepository(conn)

	limiter := rate.NewLimiter(rate.Limit(cfg.GraphRatePerSec), 1)
	facebookService := service.NewFacebookService(cfg.GraphAPIURL, nil, limiter)
	publishService := service.NewPublishService(postRepo, pageRepo, uploadRepo, blobs, codec, facebookService, cfg.PublishTimeout)

	quota := service.NewQuotaGuard(accountRepo, pageRepo)
	authService := service.NewAuthService(userRepo)
	userService := service.NewUserService(userRepo)
	accountService := service.NewAccountService(conn, userRepo, accountRepo, pageRepo, quota)
	pageService := service.NewPageService(conn, accountRepo, pageRepo, quota, codec)
	uploadService := service.NewUploadService(uploadRepo, blobs, cfg.MaxUploadBytes)
	postService := service.NewPostService(postRepo, accountRepo, pageRepo, uploadRepo, publishService)

	signer := utils.NewTokenSigner(cfg.SecretKey, cfg.TokenIssuer, cfg.SessionTTL)
	authMiddleware := middleware.NewAuthMiddleware(*cfg, signer)

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := conn.PingContext(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	auth := handlers.NewAuthHandler(*cfg, authService, signer)
	app.Post("/auth/register", auth.Register)
	app.Post("/auth/login", auth.Login)
	app.Post("/auth/logout", auth.Logout)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	user := handlers.NewUserHandler(userService)
	api.Get("/me", user.GetUserInfo)

	account := handlers.NewAccountHandler(accountService)
	api.Get("/accounts", account.ListAccounts)
	api.Post("/accounts", account.CreateAccount)
	api.Put("/accounts/:id", account.UpdateAccount)
	api.Delete("/accounts/:id", account.DeleteAccount)

	page := handlers.NewPageHandler(pageService)
	api.Get("/pages", page.ListPages)
	api.Post("/pages", page.CreatePage)
	api.Put("/pages/:id", page.UpdatePage)
	api.Delete("/pages/:id", page.DeletePage)

	upload := handlers.NewUploadHandler(uploadService)
	api.Get("/uploads", upload.ListUploads)
	api.Post("/uploads", upload.CreateUpload)
	api.Delete("/uploads/:id", upload.DeleteUpload)

	post := handlers.NewPostHandler(postService)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts", post.CreatePost)
	api.Get("/posts/:id", post.GetPost)
	api.Delete("/posts/:id", post.RemovePost)

	//queue
	var (
		dispatcher  job.Dispatcher = job.NewInlineDispatcher(publishService)
		client      *asynq.Client
		queueServer *asynq.Server
	)
	if cfg.DispatchMode == config.DispatchModeQueue {
		redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
		client = asynq.NewClient(redisConn)
		dispatcher = queue.NewDispatcher(client, postRepo, cfg.PublishTimeout)

		queueServer = asynq.NewServer(redisConn, asynq.Config{
			Concurrency: cfg.Scheduler.Concurrency,
		})

		queueW := queue.NewQueue(postRepo, publishService)
		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishPost, queueW.HandlePublishPostTask)

		log.Println("Starting the Asynq server...")
		if err := queueServer.Start(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}

	// cron jobs
	schedulerJob := job.NewPostSchedulerJob(postRepo, dispatcher, cfg.Scheduler)

	c := cron.New()
	if err := c.AddFunc(cfg.Scheduler.Spec, schedulerJob.Run); err != nil {
		log.Fatalf("Invalid SCHEDULER_SPEC %q: %v", cfg.Scheduler.Spec, err)
	}
	c.Start()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on http://localhost:%s", cfg.Port)

	gracefulShutdown(app, conn, func() {
		c.Stop()
		schedulerJob.Wait()
		if queueServer != nil {
			queueServer.Shutdown()
		}
		if client != nil {
			client.Close()
		}
	})
}

func newBlobStore(cfg *config.Config) (service.BlobStore, error) {
	if cfg.StorageDriver == config.StorageDriverR2 {
		return service.NewR2Store(context.Background(), cfg.R2)
	}
	return service.NewDiskStore(cfg.UploadDir)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

// gracefulShutdown stops intake first, then lets in-flight publishes record
// their outcome before the database goes away.
func gracefulShutdown(app *fiber.App, db *sql.DB, stopWorkers func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Failed to shut down server: %v", err)
	}

	stopWorkers()
	closeDB(db)
	log.Println("Server shutdown complete.")
}
