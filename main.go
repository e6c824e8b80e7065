package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mediplus/internal/database"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "mediplus",
		Short:         "MediPlus patient health-tracking backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(checkMedicationsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, live alert feed and background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	a, err := newApp(context.Background())
	if err != nil {
		return err
	}
	defer a.Close()
	log := a.log

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	if a.cfg.EnableScheduler {
		a.workers.Start(ctx)
	} else {
		log.Info().Msg("⏸️ in-process scheduler disabled")
	}

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           a.server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("✅ server ready")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("🛑 shutting down server")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	stop()
	a.workers.Stop()
	log.Info().Msg("server stopped")
	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			applied, err := database.MigrateUp(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			if !applied {
				log.Info().Msg("schema already up to date")
				return nil
			}
			log.Info().Msg("✅ migrations applied")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations (default 1 step)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("steps must be a positive integer, got %q", args[0])
				}
				steps = n
			}
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if err := database.MigrateDown(cfg.DatabaseURL, steps); err != nil {
				return err
			}
			log.Info().Int("steps", steps).Msg("migrations rolled back")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			version, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
			return nil
		},
	})

	return cmd
}

func checkMedicationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-medications",
		Short: "Run one medication reminder pass and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.scheduler.Run(ctx, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "checked %d schedules, %d due, %d notifications sent\n",
				report.SchedulesChecked, report.Due, report.NotificationsSent)
			for _, r := range report.Results {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s %s %s\n", r.ScheduledTime, r.MedicationName, r.Status)
			}
			return nil
		},
	}
}
