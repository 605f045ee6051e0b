package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/estatex/wallet-ledger/docs"
	"github.com/estatex/wallet-ledger/internal/auth"
	"github.com/estatex/wallet-ledger/internal/config"
	"github.com/estatex/wallet-ledger/internal/routes"
	"github.com/estatex/wallet-ledger/internal/scheduler"
	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API and the background ledger jobs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "port",
				Usage:   "listen port, overrides SERVER_PORT",
				EnvVars: []string{"PORT"},
			},
			&cli.BoolFlag{
				Name:  "no-scheduler",
				Usage: "do not run retry, recovery and reconciliation jobs",
			},
		},
		Action: func(c *cli.Context) error {
			cfg := config.LoadConfig()
			if port := c.String("port"); port != "" {
				cfg.Server.Port = port
			}
			if c.Bool("no-scheduler") {
				cfg.Scheduler.Enabled = false
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	app, err := bootstrap(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	docs.SwaggerInfo.Host = fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	jwtService := auth.NewJWTService(cfg.App.JWTSecret, cfg.App.JWTIssuer)
	routes.SetupRoutes(router, app.useCases, jwtService, routes.Options{
		Logger:   app.log.Named("http"),
		Gatherer: app.registry,
		Ping:     app.ping,
		Swagger:  cfg.App.Environment != "production",
	})

	jobs := scheduler.NewScheduler(app.log.Named("scheduler"))
	if cfg.Scheduler.Enabled {
		scheduler.RegisterLedgerJobs(jobs, app.useCases, cfg)
		jobs.Start(ctx)
		defer jobs.Stop()
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		app.log.Info("server starting", zap.String("addr", server.Addr), zap.String("environment", cfg.App.Environment))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	app.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
