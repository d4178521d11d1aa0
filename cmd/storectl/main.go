package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/flicky/go-storefront/internal/config"
	"github.com/flicky/go-storefront/internal/dto"
	"github.com/flicky/go-storefront/internal/model"
	"github.com/flicky/go-storefront/internal/repository"
	"github.com/flicky/go-storefront/internal/service"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "storectl",
		Short:         "storefront operations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		migrateUpCommand(),
		migrateDownCommand(),
		migrateVersionCommand(),
		migrateCreateCommand(),
		dashboardCommand(),
		orderStatusCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func migrateUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-up",
		Short: "apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := repository.Migrate(cfg.DB.DSN()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrated up")
			return nil
		},
	}
}

func migrateDownCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-down [steps]",
		Short: "roll back migrations (default 1)",
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
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := repository.MigrateDown(cfg.DB.DSN(), steps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rolled back %d migration(s)\n", steps)
			return nil
		},
	}
}

func migrateVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-version",
		Short: "print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			version, dirty, err := repository.MigrationVersion(cfg.DB.DSN())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
			return nil
		},
	}
}

func migrateCreateCommand() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate-create [name]",
		Short: "create empty up/down migration files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			up, down, err := createMigration(dir, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Created SQL up script:", up)
			fmt.Fprintln(cmd.OutOrStdout(), "Created SQL down script:", down)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "migrations", "migrations directory")
	return cmd
}

var (
	migrationFile = regexp.MustCompile(`^(\d+)_.+\.(up|down)\.sql$`)
	migrationName = regexp.MustCompile(`^[a-z0-9_]+$`)
)

// createMigration writes the next sequentially numbered pair of files.
func createMigration(dir, name string) (string, string, error) {
	if !migrationName.MatchString(name) {
		return "", "", fmt.Errorf("migration name must match %s", migrationName)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", "", fmt.Errorf("read migrations dir: %w", err)
	}
	next := 1
	for _, e := range entries {
		m := migrationFile.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		if v, _ := strconv.Atoi(m[1]); v >= next {
			next = v + 1
		}
	}

	base := filepath.Join(dir, fmt.Sprintf("%06d_%s", next, name))
	up, down := base+".up.sql", base+".down.sql"
	for _, path := range []string{up, down} {
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			return "", "", fmt.Errorf("write %s: %w", path, err)
		}
	}
	return up, down, nil
}

func withPool(ctx context.Context, fn func(*config.Config, *pgxpool.Pool) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	pool, err := pgxpool.New(ctx, cfg.DB.DSN())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	return fn(cfg, pool)
}

func dashboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "print the sales dashboard as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), func(cfg *config.Config, pool *pgxpool.Pool) error {
				loc, err := cfg.Analytics.Location()
				if err != nil {
					return err
				}
				svc := service.NewAnalyticsService(
					repository.NewAnalyticsRepository(pool),
					cfg.Analytics.TopProducts, cfg.Analytics.LowStockThreshold, loc,
				)
				d, err := svc.Dashboard(cmd.Context())
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(dto.NewDashboardResponse(d))
			})
		},
	}
}

func orderStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "order-status [order-id] [status]",
		Short: "move an order to a new status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid order id: %w", err)
			}
			return withPool(cmd.Context(), func(_ *config.Config, pool *pgxpool.Pool) error {
				svc := service.NewOrderService(repository.NewOrderRepository(pool))
				order, err := svc.UpdateStatus(cmd.Context(), orderID, model.OrderStatus(args[1]))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", order.OrderNumber, order.Status)
				return nil
			})
		},
	}
}
