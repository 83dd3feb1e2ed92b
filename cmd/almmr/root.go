package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"almmr/internal/app"
	"almmr/internal/config"
	"almmr/internal/db"
	"almmr/internal/db/mock"
	applog "almmr/internal/log"
)

var (
	cfgFile  string
	logLevel string
	cfg      config.Config
)

func getRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "almmr",
		Short: "almmr manages the perfume formulation records store",
		Long: `almmr manages the records of a perfume atelier: raw materials, versioned
formulas, manufacturers and registered perfumes.

Configuration precedence (highest to lowest):
  1. Environment variables (DATABASE_URL, BACKUP_DIR, OPENAI_API_KEY, ...)
  2. Config file (--config, see 'almmr config init')
  3. Built-in defaults

A .env file in the working directory is loaded before anything else.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to read .env file: %w", err)
			}
			if skipsConfig(cmd) {
				return nil
			}

			loaded, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			cfg = loaded

			level := cfg.Logging.Level
			if logLevel != "" {
				level = logLevel
			}
			if err := applog.SetLevel(level); err != nil {
				return err
			}
			return applog.SetFormat(cfg.Logging.Format)
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: environment and built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"override the configured log level (debug, info, warn, error)")

	rootCmd.Flags().BoolP("version", "V", false, "version for almmr")

	rootCmd.AddCommand(
		getServeCmd(),
		getBackupCmd(),
		getRestoreCmd(),
		getVerifyCmd(),
		getImportCmd(),
		getExportCmd(),
		getConfigCmd(),
	)

	return rootCmd
}

// skipsConfig reports whether cmd runs without a loaded configuration.
func skipsConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["config"] == "skip" {
			return true
		}
	}
	return false
}

func loadConfig() (config.Config, error) {
	if cfgFile != "" {
		return config.LoadFile(cfgFile)
	}
	return config.Load()
}

// getConfig returns the loaded configuration (for use in subcommands)
func getConfig() config.Config {
	return cfg
}

var openDatabase = func(cmd *cobra.Command, dbCfg config.DatabaseConfig) (*gorm.DB, error) {
	if dbCfg.UseMock {
		return mock.New(cmd.Context())
	}
	return db.Configure(dbCfg)
}

// openApp connects to the configured database and wires the services.
// Callers must Close the returned App.
func openApp(cmd *cobra.Command) (*app.App, error) {
	c := getConfig()
	database, err := openDatabase(cmd, c.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a, err := app.New(cmd.Context(), c, database)
	if err != nil {
		_ = db.Close(database)
		return nil, err
	}
	return a, nil
}

func closeApp(cmd *cobra.Command, a *app.App) {
	if err := a.Close(); err != nil {
		applog.Warn(cmd.Context(), "failed to close database", "error", err)
	}
}
