package main

import (
	"fmt"
	"net/http"

	"edinet_qa/pkg/core/company"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var registryURL string

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Manage the EDINET code list used to resolve company names",
}

var registryFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the official EDINET code list to the registry path",
	RunE:  runRegistryFetch,
}

func init() {
	registryFetchCmd.Flags().StringVar(&registryURL, "url", "", "code list URL (default from config)")
	registryCmd.AddCommand(registryFetchCmd)
}

func runRegistryFetch(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	src := registryURL
	if src == "" {
		src = cfg.RegistryURL
	}
	rows, err := company.Download(cmd.Context(), &http.Client{Timeout: cfg.HTTPTimeout}, src, cfg.RegistryPath)
	if err != nil {
		return err
	}
	logger.Info("registry saved", zap.String("path", cfg.RegistryPath), zap.Int("organizations", rows))
	fmt.Fprintf(cmd.OutOrStdout(), "saved %d organizations to %s\n", rows, cfg.RegistryPath)
	return nil
}
