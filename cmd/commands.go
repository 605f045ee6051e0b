package main

import (
	"fmt"

	"github.com/estatex/wallet-ledger/internal/auth"
	"github.com/estatex/wallet-ledger/internal/config"
	"github.com/estatex/wallet-ledger/internal/database"
	"github.com/estatex/wallet-ledger/internal/logger"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "create or update the ledger tables",
		Action: func(c *cli.Context) error {
			cfg := config.LoadConfig()
			log, err := logger.New(cfg.App.Environment, cfg.App.LogLevel)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			db, err := database.Open(cfg)
			if err != nil {
				return errors.Wrap(err, "connect to database")
			}
			if err := database.Migrate(db); err != nil {
				return errors.Wrap(err, "migrate")
			}
			log.Info("migrations applied", zap.String("driver", cfg.Database.Driver))
			return nil
		},
	}
}

func reconcileCommand() *cli.Command {
	return &cli.Command{
		Name:  "reconcile",
		Usage: "run one reconciliation pass and exit",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "wallet",
				Usage: "reconcile a single wallet id",
			},
			&cli.BoolFlag{
				Name:  "fail-on-issue",
				Usage: "exit non-zero when any wallet mismatches",
			},
		},
		Action: func(c *cli.Context) error {
			app, err := bootstrap(config.LoadConfig())
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := c.Context
			if walletID := c.String("wallet"); walletID != "" {
				report, err := app.useCases.Reconciliation.PerformWalletReconciliation(ctx, walletID)
				if err != nil {
					return err
				}
				app.log.Info("wallet reconciled",
					zap.String("wallet_id", report.WalletID),
					zap.String("status", string(report.Status)),
					zap.Int64("difference", report.Difference),
				)
				if c.Bool("fail-on-issue") && report.HasAnyIssue() {
					return cli.Exit(fmt.Sprintf("wallet %s: %s", walletID, report.Status), 2)
				}
				return nil
			}

			reports, err := app.useCases.Reconciliation.PerformReconciliation(ctx)
			if err != nil {
				return err
			}
			issues := 0
			for i := range reports {
				if !reports[i].HasAnyIssue() {
					continue
				}
				issues++
				app.log.Warn("reconciliation issue",
					zap.String("wallet_id", reports[i].WalletID),
					zap.String("status", string(reports[i].Status)),
					zap.String("severity", reports[i].GetSeverity()),
					zap.Int64("difference", reports[i].Difference),
				)
			}
			app.log.Info("reconciliation finished", zap.Int("checked", len(reports)), zap.Int("issues", issues))
			if c.Bool("fail-on-issue") && issues > 0 {
				return cli.Exit(fmt.Sprintf("%d wallets need attention", issues), 2)
			}
			return nil
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "mint an access token for local testing",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "user",
				Usage:    "user id placed in the token",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "role",
				Value: auth.RoleUser,
				Usage: "user or admin",
			},
		},
		Action: func(c *cli.Context) error {
			cfg := config.LoadConfig()
			token, err := auth.NewJWTService(cfg.App.JWTSecret, cfg.App.JWTIssuer).GenerateToken(c.String("user"), c.String("role"))
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, token)
			return nil
		},
	}
}
