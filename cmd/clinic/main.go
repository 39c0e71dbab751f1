package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"
	"github.com/zatekoja/pediatric-clinic/internal/adapters/database"
	"github.com/zatekoja/pediatric-clinic/internal/api/handlers"
	"github.com/zatekoja/pediatric-clinic/internal/api/routes"
	"github.com/zatekoja/pediatric-clinic/internal/application/services"
	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
	"github.com/zatekoja/pediatric-clinic/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/pediatric-clinic/internal/infrastructure/observability"
	"github.com/zatekoja/pediatric-clinic/pkg/config"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "clinic",
		Short:        "Pediatric clinic visit workflow server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedUsersCmd())
	rootCmd.AddCommand(dailyResetCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the clinic API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), migrate.Up)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), migrate.Down)
		},
	})
	return cmd
}

func seedUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-users",
		Short: "Create the default admin and user accounts when missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *application) error {
				created, err := app.auth.SeedDefaultUsers(ctx)
				if err != nil {
					return err
				}
				log.Info().Int("created", created).Msg("default users seeded")
				return nil
			})
		},
	}
}

func dailyResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daily-reset",
		Short: "Run the daily visit reset once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *application) error {
				result, err := app.hall.DailyReset(ctx, entities.SystemIdentity)
				if err != nil {
					return err
				}
				log.Info().
					Int("reset_count", result.ResetCount).
					Int("cleared_count", result.ClearedCount).
					Msg("daily reset completed")
				return nil
			})
		},
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env, cfg.LogLevel)
	return cfg, nil
}

func withApp(ctx context.Context, fn func(ctx context.Context, app *application) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app, err := newApplication(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(ctx, app)
}

func runMigrations(ctx context.Context, direction migrate.MigrationDirection) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer client.Close()

	applied, err := database.Migrate(ctx, client, direction)
	if err != nil {
		return err
	}
	log.Info().Int("applied", applied).Msg("migrations complete")
	return nil
}

func runServer(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.Env, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	app, err := newApplication(ctx, cfg, metrics)
	if err != nil {
		return err
	}
	defer app.Close()

	if cfg.Store.Driver == "postgres" {
		if _, err := database.Migrate(ctx, app.pg, migrate.Up); err != nil {
			return err
		}
	}
	if created, err := app.auth.SeedDefaultUsers(ctx); err != nil {
		return err
	} else if created > 0 {
		log.Warn().Int("created", created).Msg("default accounts created; change their passwords")
	}

	if cfg.Clinic.DailyResetEnabled {
		hour, minute, _ := cfg.Clinic.ResetClock()
		services.NewDailyResetScheduler(app.hall, app.clock, hour, minute).Start(ctx)
	}

	router := routes.NewRouter(
		handlers.NewAuthHandler(app.auth, cfg.Auth),
		handlers.NewUserHandler(app.users),
		handlers.NewClinicHandler(app.clinic),
		handlers.NewPatientHandler(app.patients),
		handlers.NewHallHandler(app.hall, app.stats),
		handlers.NewSSEHandler(app.events, handlers.DefaultHeartbeatInterval, metrics),
		app.auth,
		cfg.Auth.CookieName,
		cfg.Server.AllowedOrigins,
		metrics,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// no WriteTimeout: hall streams stay open
		IdleTimeout: 60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", serverAddr).Str("store", cfg.Store.Driver).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	log.Info().Msg("server shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}
	return nil
}
