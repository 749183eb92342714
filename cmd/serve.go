package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"schema-manager/core/config"
	"schema-manager/core/database"
	"schema-manager/core/dialect"
	"schema-manager/core/loader"
	"schema-manager/core/logger"
	"schema-manager/core/metrics"
	"schema-manager/core/middleware/auth"
	"schema-manager/core/middleware/rayid"

	"schema-manager/feature/integrity"
	"schema-manager/feature/provision"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the schema manager server",
	Long:  `Starts the HTTP server and initializes all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(configDir)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		d, err := dialect.For(cfg.Database.Driver)
		if err != nil {
			logg.Fatal("Unsupported database driver", zap.Error(err))
		}

		// 3. Connect to the default database (optional, integrity needs it)
		var db *gorm.DB
		if conn, err := database.Connect(cfg.Database); err != nil {
			logg.Warn("Optional database connection failed", zap.Error(err))
		} else {
			db = conn
			defer database.Close(db)
			logg.Info("Connected to database", zap.String("database", cfg.Database.Identity().String()))
		}

		// 4. Initialize Storage (optional)
		store, scripts, err := openStorage(cmd.Context(), cfg.Storage)
		if err != nil {
			logg.Fatal("Failed to prepare script archive", zap.Error(err))
		}

		// 5. Metrics
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		recorder, err := metrics.New("", reg)
		if err != nil {
			logg.Fatal("Failed to register metrics", zap.Error(err))
		}

		// 6. Initialize Feature Loader
		registry := provision.NewRegistry(cfg.Database, logg)
		defer registry.Close()
		sessions := provision.NewService(registry, cfg.Manager, scripts, recorder, logg)
		defer sessions.CloseAll()

		mgr := loader.NewManager()
		mgr.Register(provision.NewFeature(sessions))
		mgr.Register(integrity.NewFeature(db, cfg.Database.Identity(), d, cfg.Manager.Names(), store, cfg.Storage, logg))

		app, err := newApp(cfg, logg, mgr, reg)
		if err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 7. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(cfg.Server.Address()); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 8. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
}

// newApp builds the fiber app: middleware, the metrics endpoint and every
// enabled feature.
func newApp(cfg *config.Config, logg *zap.Logger, features *loader.Manager, reg *prometheus.Registry) (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// RayID must be first to trace everything.
	app.Use(rayid.New())

	app.Use(func(c *fiber.Ctx) error {
		l := logger.WithRayID(logg, c)
		l.Info("Request started",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
		)
		err := c.Next()
		if err != nil {
			l.Error("Request error", zap.Error(err))
		}
		return err
	})

	if cfg.Server.RequiresAuth() {
		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))
	} else {
		logg.Warn("API key is empty, requests are not authenticated")
	}

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	if err := features.LoadAll(app); err != nil {
		return nil, err
	}
	return app, nil
}
