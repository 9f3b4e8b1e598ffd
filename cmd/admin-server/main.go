package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/PaulAlexX98/safescript-admin-sub001/internal/config"
	"github.com/PaulAlexX98/safescript-admin-sub001/internal/domain/consult"
	"github.com/PaulAlexX98/safescript-admin-sub001/internal/domain/forms"
	"github.com/PaulAlexX98/safescript-admin-sub001/internal/domain/identity"
	"github.com/PaulAlexX98/safescript-admin-sub001/internal/domain/orders"
	"github.com/PaulAlexX98/safescript-admin-sub001/internal/platform/auth"
	"github.com/PaulAlexX98/safescript-admin-sub001/internal/platform/carrier"
	"github.com/PaulAlexX98/safescript-admin-sub001/internal/platform/db"
	"github.com/PaulAlexX98/safescript-admin-sub001/internal/platform/mail"
	"github.com/PaulAlexX98/safescript-admin-sub001/internal/platform/middleware"
	"github.com/PaulAlexX98/safescript-admin-sub001/internal/platform/pdfgen"
	"github.com/PaulAlexX98/safescript-admin-sub001/internal/platform/storage"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "admin-server",
		Short: "Pharmacy consultation admin API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the admin API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// File storage
	fileStore := storage.NewDiskStore(cfg.UploadDir, cfg.PublicDir)

	// External services
	extTimeout := time.Duration(cfg.ExternalTimeoutSecs) * time.Second
	var docs pdfgen.Generator
	if cfg.PDFServiceURL != "" {
		docs = pdfgen.NewHTTPGenerator(cfg.PDFServiceURL, extTimeout)
	}
	var shipper carrier.Client
	if cfg.CarrierURL != "" {
		shipper = carrier.NewHTTPClient(cfg.CarrierURL, cfg.CarrierAPIKey, extTimeout)
	}
	var mailer mail.Sender
	if cfg.SMTPHost != "" {
		mailer = mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPUsername, cfg.SMTPPassword)
	}

	// Repositories
	formRepo := forms.NewFormRepoPG(pool)
	userRepo := identity.NewUserRepoPG(pool)
	orderRepo := orders.NewOrderRepoPG(pool)
	apptRepo := orders.NewAppointmentRepoPG(pool)
	sessionRepo := consult.NewSessionRepoPG(pool)
	responseRepo := consult.NewResponseRepoPG(pool)

	// Services
	formSvc := forms.NewService(formRepo)
	orderSvc := orders.NewService(orderRepo, apptRepo)
	consultSvc := consult.NewService(sessionRepo, responseRepo, orderSvc)

	runTx := consult.PoolTxRunner(pool)
	store := consult.NewStore(sessionRepo, responseRepo, formSvc,
		uploadSaver{fileStore}, orderSvc, runTx, logger)
	completer := consult.NewOrchestrator(sessionRepo, responseRepo, orderSvc, userRepo,
		docs, shipper, mailer, fileStore, runTx, logger)
	completer.StepTimeout = extTimeout

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	secret := cfg.JWTSecret
	if cfg.IsDev() {
		secret = ""
	}
	e.Use(auth.Middleware(secret))

	api := e.Group("/api")
	forms.NewHandler(formSvc).RegisterRoutes(api)
	orders.NewHandler(orderSvc).RegisterRoutes(api)
	consult.NewHandler(consultSvc, store, completer).RegisterRoutes(api)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// uploadSaver adapts the disk store to the form engine's saver interface.
type uploadSaver struct {
	store storage.Store
}

func (s uploadSaver) SaveUpload(ctx context.Context, up forms.Upload) (forms.StoredFile, error) {
	rc, err := up.Open()
	if err != nil {
		return forms.StoredFile{}, fmt.Errorf("open upload %s: %w", up.Filename, err)
	}
	defer rc.Close()

	f, err := s.store.Save(ctx, up.Filename, up.MimeType, rc)
	if err != nil {
		return forms.StoredFile{}, err
	}
	return forms.StoredFile{Name: f.Name, Path: f.Path, MimeType: f.MimeType, Size: f.Size}, nil
}
