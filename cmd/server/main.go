package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"poolops/internal/app/server"
	"poolops/internal/platform/config"
	"poolops/internal/platform/db"
	"poolops/internal/platform/logging"
)

var cfg config.Config

func main() {
	rootCmd := &cobra.Command{
		Use:           "poolops",
		Short:         "Pool service field operations backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg = config.Load()
			if err := cfg.ApplyPolicyFile(); err != nil {
				return err
			}
			logging.Setup(cfg.LogLevel, cfg.Environment)
			return cfg.Validate()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(inviteCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("command failed", "err", err)
		stop()
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := server.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Run(cmd.Context())
		},
	}
}

func migrateCmd() *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := db.Connect(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			defer pool.Close()

			applied, err := db.Migrate(cmd.Context(), pool)
			if err != nil {
				return err
			}
			slog.Info("migrations complete", "applied", applied)

			if seed {
				return db.Seed(cmd.Context(), pool, cfg)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "Create the SEED_ADMIN_EMAIL administrator afterwards")
	return cmd
}

func inviteCmd() *cobra.Command {
	var emailAddr, position string
	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Issue a registration invite and print its link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := db.Connect(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			defer pool.Close()

			services, err := server.NewServices(cfg, pool)
			if err != nil {
				return err
			}
			invite, link, err := services.Users.IssueInvite(cmd.Context(), emailAddr, position, nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "code:    %s\nexpires: %s\nlink:    %s\n", invite.Code, invite.ExpiresAt.Format("2006-01-02 15:04 MST"), link)
			return nil
		},
	}
	cmd.Flags().StringVar(&emailAddr, "email", "", "Email the invite is sent to (optional)")
	cmd.Flags().StringVar(&position, "position", "", "Position pre-filled on registration")
	return cmd
}
