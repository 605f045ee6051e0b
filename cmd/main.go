package main

// @title Wallet Ledger API
// @version 1.0
// @description Wallet ledger and transaction lifecycle engine for fractional real-estate investment

// @contact.name Ledger Team

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "wallet-ledger",
		Usage: "wallet ledger and transaction lifecycle engine",
		Before: func(*cli.Context) error {
			if err := godotenv.Load(); err != nil {
				log.Println("No .env file found, using environment variables")
			}
			return nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			reconcileCommand(),
			tokenCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
