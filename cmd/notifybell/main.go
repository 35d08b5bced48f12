package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nhle/notifybell/internal/model"
)

var (
	configPath string
	logLevel   string

	rootCmd = &cobra.Command{
		Use:   "notifybell",
		Short: "Villa dashboard notifications in the terminal",
		Long: `notifybell shows the villa dashboard notification bell in a terminal UI
and keeps it in sync with the dashboard backend.`,
		SilenceUsage:      true,
		PersistentPreRunE: loadEnv,
		RunE:              runTUI,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", model.DefaultConfigPath(), "config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	rootCmd.AddCommand(listCmd, readCmd, readAllCmd, loginCmd, logoutCmd, statusCmd)
}

// loadEnv reads a .env file from the working directory when present so
// NOTIFYBELL_* overrides can be kept next to a checkout.
func loadEnv(*cobra.Command, []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
