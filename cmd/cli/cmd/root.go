package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/wadjakorntonsri/custom-links/pkg/config"
	"github.com/wadjakorntonsri/custom-links/pkg/core/services"
)

var (
	backend    string
	service    *services.LinkService
	logger     *slog.Logger
	closeStore func() error
)

var rootCmd = &cobra.Command{
	Use:   "links-cli",
	Short: "Maintenance CLI for the custom links store",
	Long: `links-cli operates directly on the configured link store.

It exports and imports link records for migration between backends and
runs the search and completion queries served by the API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for help commands
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if backend != "" {
			cfg.StoreBackend = backend
		}
		logger = config.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)

		store, closeFn, err := config.OpenStore(cmd.Context(), cfg, nil)
		if err != nil {
			return err
		}
		closeStore = closeFn
		service = services.NewLinkService(store, logger, cfg.ServiceOptions())
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if service == nil {
			return nil
		}
		service.Wait()
		return closeStore()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&backend, "store", "s", "", "store backend overriding STORE_BACKEND (redis, sqlite, memory)")
}
