package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"team-governance/internal/domain"
	"team-governance/internal/repository"
	"team-governance/internal/service/auth"
	"team-governance/pkg/database"
	"team-governance/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the team-governance database",
		SilenceUsage: true,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Create tables and indexes",
			Args:  cobra.NoArgs,
			RunE: withDB(func(ctx context.Context, cmd *cobra.Command, db *database.PostgresDB, _ []string) error {
				if err := database.CreateSchema(ctx, db.Pool); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "✅ All tables created successfully")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "drop",
			Short: "Drop all tables",
			Args:  cobra.NoArgs,
			RunE: withDB(func(ctx context.Context, cmd *cobra.Command, db *database.PostgresDB, _ []string) error {
				if err := database.DropSchema(ctx, db.Pool); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "✅ All tables dropped successfully")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "fund <team-name> <team-id> <amount>",
			Short: "Deposit amount into a team's prize pool account",
			Args:  cobra.ExactArgs(3),
			RunE:  withDB(fund),
		},
		newTokenCmd(),
	)

	return root
}

type dbRunFunc func(ctx context.Context, cmd *cobra.Command, db *database.PostgresDB, args []string) error

// withDB connects to DATABASE_URL for the duration of one command
func withDB(run dbRunFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		dbURL := os.Getenv("DATABASE_URL")
		if dbURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable is not set")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		db, err := database.NewPostgresDB(ctx, dbURL)
		if err != nil {
			return err
		}
		defer db.Close()

		return run(ctx, cmd, db, args)
	}
}

func fund(ctx context.Context, cmd *cobra.Command, db *database.PostgresDB, args []string) error {
	key, err := parseTeamKey(args[0], args[1])
	if err != nil {
		return err
	}
	amount, err := strconv.ParseUint(args[2], 10, 64)
	if err != nil || amount == 0 {
		return fmt.Errorf("invalid amount %q", args[2])
	}

	ledger := repository.NewPostgresLedger(db, zap.NewNop())
	account := key.PoolAccount()
	if err := ledger.Deposit(ctx, account, amount); err != nil {
		return err
	}
	balance, err := ledger.Balance(ctx, account)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Deposited %d into %s, balance %d\n", amount, account, balance)
	return nil
}

func newTokenCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Issue a bearer token for a principal, signed with JWT_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("JWT_SECRET")
			if secret == "" {
				return fmt.Errorf("JWT_SECRET environment variable is not set")
			}

			issuer := auth.NewService(secret, os.Getenv("JWT_ISSUER"), logger.NewNop())
			token, err := issuer.IssueToken(domain.Principal{ID: args[0]}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")

	return cmd
}

func parseTeamKey(name, id string) (domain.TeamKey, error) {
	if name == "" {
		return domain.TeamKey{}, fmt.Errorf("team name is required")
	}
	parsed, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return domain.TeamKey{}, fmt.Errorf("invalid team id %q", id)
	}
	return domain.TeamKey{Name: name, ID: parsed}, nil
}
