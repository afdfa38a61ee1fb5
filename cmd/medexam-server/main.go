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

	"github.com/medexam/medexam/internal/config"
	"github.com/medexam/medexam/internal/domain/admin"
	"github.com/medexam/medexam/internal/domain/audit"
	"github.com/medexam/medexam/internal/domain/booking"
	"github.com/medexam/medexam/internal/domain/documents"
	"github.com/medexam/medexam/internal/domain/identity"
	"github.com/medexam/medexam/internal/domain/specialist"
	"github.com/medexam/medexam/internal/platform/acuity"
	"github.com/medexam/medexam/internal/platform/apierr"
	"github.com/medexam/medexam/internal/platform/auth"
	"github.com/medexam/medexam/internal/platform/blobstore"
	"github.com/medexam/medexam/internal/platform/db"
	"github.com/medexam/medexam/internal/platform/middleware"
	"github.com/medexam/medexam/internal/platform/validate"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medexam-server",
		Short: "Medical examination booking API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tenantCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the booking API server",
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
			schema, _ := cmd.Flags().GetString("schema")
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

			migrator := db.NewMigrator(pool, dir)
			fmt.Printf("Running migrations on schema: %s\n", schema)

			count, err := migrator.Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", "tenant_default", "Target schema for migrations")
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
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

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
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
	statusCmd.Flags().String("schema", "tenant_default", "Target schema for migrations")
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new tenant schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name is required")
			}

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

			fmt.Printf("Creating tenant schema: tenant_%s\n", name)
			if err := db.CreateTenantSchema(ctx, pool, name, ""); err != nil {
				return err
			}
			fmt.Printf("Tenant created. Apply migrations with: medexam-server migrate up --schema tenant_%s\n", name)
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Tenant identifier (alphanumeric)")

	cmd.AddCommand(createCmd)
	return cmd
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	docStore, err := blobstore.NewFileStore(cfg.DocumentDir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.DocumentDir).Msg("failed to open document store")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validate.New()
	e.HTTPErrorHandler = apierr.HTTPErrorHandler(logger)

	// Global middleware. Order matters: recovery outermost, then request id
	// and logging so every later failure is tagged, auth before tenant so
	// the tenant claim is available.
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(1<<20, cfg.MaxUploadBytes))
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-Tenant-ID"},
	}))

	if cfg.IsDev() && cfg.AuthIssuer == "" && cfg.AuthSigningKey == "" {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.AuthSigningKey),
		}))
	}

	e.Use(db.TenantMiddleware(pool, cfg.DefaultTenant))

	// Repositories
	orgRepo := admin.NewOrganizationRepoPG(pool)
	examineeRepo := identity.NewExamineeRepoPG(pool)
	referrerRepo := identity.NewReferrerRepoPG(pool)
	specialistRepo := specialist.NewRepoPG(pool)
	bookingRepo := booking.NewRepoPG(pool)
	progressRepo := booking.NewProgressRepoPG(pool)
	documentRepo := documents.NewRepoPG(pool)
	auditRepo := audit.NewRepoPG(pool)

	// Services
	auditSvc := audit.NewService(auditRepo, logger)
	orgSvc := admin.NewService(orgRepo, logger)
	identitySvc := identity.NewService(examineeRepo, referrerRepo, logger)
	specialistSvc := specialist.NewService(specialistRepo, logger)
	bookingSvc := booking.NewService(bookingRepo, progressRepo, specialistSvc,
		booking.PgTxRunner(pool), logger).WithAudit(auditSvc)
	documentSvc := documents.NewService(documentRepo, docStore, bookingSvc, logger)

	var acuityClient *acuity.Client
	if cfg.AcuityEnabled() {
		acuityClient = acuity.NewClient(acuity.Config{
			BaseURL:     cfg.AcuityBaseURL,
			UserID:      cfg.AcuityUserID,
			APIKey:      cfg.AcuityAPIKey,
			MinInterval: cfg.AcuityMinInterval,
			MaxRetries:  cfg.AcuityMaxRetries,
		}, logger)
		if cfg.AcuityApptTypeID != 0 {
			bookingSvc.WithAvailability(acuity.NewSlotChecker(acuityClient, cfg.AcuityApptTypeID))
		}
		logger.Info().Msg("outbound scheduling provider enabled")
	} else {
		logger.Warn().Msg("outbound scheduling provider disabled; slot availability is not verified")
	}

	// Access log persistence for mutations.
	e.Use(middleware.Audit(logger, auditSvc))

	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Booking creation gets a stricter bucket on top of the general one.
	createLimit := middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.BookingCreateRPS,
		BurstSize:         cfg.BookingCreateBurst,
	})

	// Routes
	admin.NewHandler(orgSvc).RegisterRoutes(apiV1)
	identity.NewHandler(identitySvc).RegisterRoutes(apiV1)
	specialist.NewHandler(specialistSvc).RegisterRoutes(apiV1)
	booking.NewHandler(bookingSvc).RegisterRoutes(apiV1, createLimit)
	documents.NewHandler(documentSvc).RegisterRoutes(apiV1)
	audit.NewHandler(auditSvc).RegisterRoutes(apiV1)

	booking.NewWebhookHandler(bookingSvc, identitySvc, orgSvc, cfg.AcuityWebhookSecret, logger).RegisterRoutes(e)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

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
