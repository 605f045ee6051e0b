package routes

import (
	"context"

	"github.com/estatex/wallet-ledger/internal/auth"
	"github.com/estatex/wallet-ledger/internal/handlers"
	"github.com/estatex/wallet-ledger/internal/metrics"
	"github.com/estatex/wallet-ledger/internal/middleware"
	"github.com/estatex/wallet-ledger/internal/usecases"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Options carries the collaborators the router needs besides the use cases
type Options struct {
	Logger   *zap.Logger
	Gatherer prometheus.Gatherer
	Ping     func(ctx context.Context) error
	Swagger  bool
}

func SetupRoutes(router *gin.Engine, useCases *usecases.UseCases, jwtService *auth.JWTService, opts Options) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	router.Use(middleware.RequestLogger(log))

	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.ReadinessCheck(opts.Ping))
	if opts.Gatherer != nil {
		router.GET("/metrics", metrics.Handler(opts.Gatherer))
	}
	if opts.Swagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authenticated := middleware.AuthMiddleware(jwtService, log)

	authHandler := handlers.NewAuthHandler(jwtService)
	router.POST("/api/v1/auth/refresh", authenticated, authHandler.RefreshToken)

	v1 := router.Group("/api/v1")
	v1.Use(authenticated)
	{
		walletHandler := handlers.NewWalletHandler(useCases.Wallet, useCases.Ledger)
		wallets := v1.Group("/wallets")
		{
			wallets.POST("", walletHandler.CreateWallet)
			wallets.GET("", walletHandler.ListWallets)
			wallets.GET("/me", walletHandler.GetWallet)
			wallets.GET("/me/stats", walletHandler.GetWalletStats)
			wallets.GET("/me/history", walletHandler.GetBalanceHistory)
			wallets.GET("/me/transactions", walletHandler.GetTransactionHistory)
			wallets.POST("/me/deposit", walletHandler.Deposit)
			wallets.POST("/me/withdraw", walletHandler.Withdraw)
			wallets.POST("/me/transfer", walletHandler.Transfer)
			wallets.POST("/me/investments", walletHandler.DebitForInvestment)
		}

		transactionHandler := handlers.NewTransactionHandler(useCases.Ledger, useCases.Retry)
		transactions := v1.Group("/transactions")
		{
			transactions.GET("/:id", transactionHandler.GetTransaction)
			transactions.POST("/:id/retry", transactionHandler.RetryTransaction)
			transactions.POST("/:id/cancel", transactionHandler.CancelTransaction)
			// refunds are issued by the platform when an investment is unwound
			transactions.POST("/:id/refund", middleware.RequireRole(auth.RoleAdmin), transactionHandler.RefundTransaction)
		}

		adminHandler := handlers.NewAdminHandler(useCases.Wallet, useCases.Reconciliation, useCases.Analytics)
		admin := v1.Group("/admin", middleware.RequireRole(auth.RoleAdmin))
		{
			admin.GET("/stats/transactions", adminHandler.GetTransactionStats)
			admin.PATCH("/wallets/:id/status", adminHandler.UpdateWalletStatus)
			admin.PUT("/wallets/:id/limits", adminHandler.UpdateWalletLimits)
			admin.POST("/reconciliation", adminHandler.PerformReconciliation)
			admin.GET("/reconciliation", adminHandler.GetReconciliationReports)
		}
	}
}
