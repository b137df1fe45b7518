package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pharmacrm/internal/config"
	"pharmacrm/internal/database"
	"pharmacrm/internal/logger"
)

var log *zap.SugaredLogger

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pharmacrm",
		Short:         "Pharmacy CRM backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			envErr := config.Load()
			l, err := logger.New(config.AppEnv.Env, config.AppEnv.LogLevel)
			if err != nil {
				return err
			}
			log = l
			if envErr != nil {
				log.Infow("using process environment only", "error", envErr)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if log != nil {
				_ = log.Sync()
			}
		},
	}

	serve := newServeCmd()
	root.AddCommand(serve, newIndexesCmd(), newSegmentsCmd(), newStaffCmd())
	// bare `pharmacrm` starts the server
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())
	return root
}

func connectStorage() (*database.Storage, error) {
	cfg := config.AppEnv
	storage, err := database.Connect(database.Config{
		URI:          cfg.MongoURI,
		Database:     cfg.DBName,
		Timeout:      cfg.MongoTimeout,
		Transactions: cfg.MongoTransactions,
	})
	if err != nil {
		return nil, err
	}
	log.Infow("MongoDB connected", "database", cfg.DBName)
	return storage, nil
}
