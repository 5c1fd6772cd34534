package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"backmybuild/config"
	"backmybuild/pkg/profile"
	"backmybuild/pkg/server"
	"backmybuild/pkg/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tip page HTTP API",
	Long: `Run the HTTP API that backs the profile tip pages: profile resolution,
tip recording, view counting and creator analytics.

Requires BACK_DATABASE_URL to point at a Postgres instance.

Examples:
  back serve
  back serve --port 9090`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().String("port", "", "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.ServerPort = port
	}

	logger, err := zap.NewProduction()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer logger.Sync()

	db := store.New(logger)
	if err := db.Init(cfg.DatabaseURL); err != nil {
		logger.Fatal("database init failed", zap.Error(err))
	}

	resolver := profile.NewResolver(cfg.Web3BioBaseURL, cfg.RequestTimeout)

	srv := server.New(logger, db, resolver, server.Config{CORSEnabled: cfg.CORSEnabled})
	if err := srv.Start(cfg.ServerPort); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
