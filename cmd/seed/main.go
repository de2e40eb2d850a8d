// Command seed loads demo accounts and tickets into the helpdesk database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/deskflow/helpdesk/internal/config"
	"github.com/deskflow/helpdesk/internal/observability"
	"github.com/deskflow/helpdesk/internal/persistence"
	"github.com/deskflow/helpdesk/internal/repository"
	"github.com/deskflow/helpdesk/internal/seed"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		file          string
		bcryptCost    int
		skipMigration bool
		dryRun        bool
	)

	flags := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flags.StringVar(&file, "file", "seed/fixtures.yaml", "fixture file to load")
	flags.IntVar(&bcryptCost, "bcrypt-cost", 0, "bcrypt cost for fixture passwords (default: AUTH_BCRYPT_COST)")
	flags.BoolVar(&skipMigration, "skip-migrations", false, "do not apply pending migrations first")
	flags.BoolVar(&dryRun, "dry-run", false, "parse the fixture file and exit")
	if err := flags.Parse(args); err != nil {
		return err
	}

	fixtures, err := seed.Load(file)
	if err != nil {
		return err
	}
	if dryRun {
		fmt.Printf("%s: %d users, %d tickets\n", file, len(fixtures.Users), len(fixtures.Tickets))
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if bcryptCost == 0 {
		bcryptCost = cfg.Auth.BcryptCost
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Env)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	pool := pg.PoolHandle()
	if !skipMigration {
		if err := persistence.RunMigrations(ctx, pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	seeder := seed.NewSeeder(seed.Dependencies{
		UserRepo:    repository.NewUserRepository(pool),
		TicketRepo:  repository.NewTicketRepository(pool),
		CommentRepo: repository.NewCommentRepository(pool),
		TxManager:   persistence.NewTxManager(pool),
		Logger:      logger,
		BcryptCost:  bcryptCost,
	})
	if _, err := seeder.Apply(ctx, fixtures); err != nil {
		logger.Error("seed failed", zap.String("file", file), zap.Error(err))
		return err
	}
	return nil
}
