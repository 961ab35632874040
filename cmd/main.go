package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/puzzleplan-backend/internal/app"
	"github.com/yungbote/puzzleplan-backend/internal/platform/logger"
	"github.com/yungbote/puzzleplan-backend/internal/services"
)

func main() {
	root := &cobra.Command{
		Use:           "puzzleplan",
		Short:         "Puzzle board planning backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(tokenCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadRuntime() (*app.Config, *logger.Logger, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadRuntime()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(cfg, log)
			if err != nil {
				log.Error("app init failed", "error", err)
				return err
			}
			defer a.Close()

			if err := a.Start(ctx); err != nil {
				log.Error("app start failed", "error", err)
				return err
			}
			log.Info("server starting", "addr", cfg.Addr())
			return a.Run(ctx)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadRuntime()
			if err != nil {
				return err
			}
			defer log.Sync()
			if err := app.Migrate(cfg, log); err != nil {
				log.Error("migration failed", "error", err)
				return err
			}
			log.Info("migration complete", "driver", cfg.DB.Driver)
			return nil
		},
	}
}

// tokenCmd mints a bearer token signed with the configured secret. Meant for
// local development against the API without an identity provider.
func tokenCmd() *cobra.Command {
	var (
		userID string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed development token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			uid := uuid.New()
			if userID != "" {
				if uid, err = uuid.Parse(userID); err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
			}
			tok, err := services.SignToken(services.AuthConfig{
				Secret:   cfg.Auth.JWTSecret,
				Issuer:   cfg.Auth.JWTIssuer,
				Audience: cfg.Auth.JWTAudience,
			}, uid, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user: %s\n%s\n", uid, tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id to embed (random when empty)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
