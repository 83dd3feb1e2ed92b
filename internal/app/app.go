// Package app assembles the store, services and backup engine from a loaded
// configuration. Both the HTTP server and the command line tool start here.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"almmr/internal/ai"
	"almmr/internal/backup"
	"almmr/internal/config"
	"almmr/internal/export"
	"almmr/internal/formula"
	"almmr/internal/handlers"
	applog "almmr/internal/log"
	"almmr/internal/manufacturer"
	"almmr/internal/material"
	"almmr/internal/registration"
	"almmr/internal/store"
	"almmr/internal/vault"
)

// App holds every long-lived component built from one configuration.
type App struct {
	Store         *store.Store
	Materials     *material.Service
	Formulas      *formula.Service
	Manufacturers *manufacturer.Service
	Perfumes      *registration.Service
	Backup        *backup.Engine
	Exporter      *export.Exporter
	Suggester     ai.Suggester

	// AI is nil unless an API key is configured.
	AI *ai.Client
}

// New wires the application over an already migrated database.
func New(ctx context.Context, cfg config.Config, database *gorm.DB) (*App, error) {
	if database == nil {
		return nil, errors.New("app: database is nil")
	}

	s, err := store.New(database)
	if err != nil {
		return nil, err
	}

	v, err := vault.New(ctx, cfg.Backup)
	if err != nil {
		return nil, fmt.Errorf("configure backup vault: %w", err)
	}
	engine, err := backup.New(s, v, nil, backup.WithPrefix(cfg.Backup.Prefix))
	if err != nil {
		return nil, err
	}

	a := &App{
		Store:         s,
		Materials:     material.NewService(s),
		Formulas:      formula.NewService(s),
		Manufacturers: manufacturer.NewService(s),
		Perfumes:      registration.NewService(s),
		Backup:        engine,
		Exporter:      export.New(s),
		Suggester:     ai.KeywordSuggester{},
	}

	if strings.TrimSpace(cfg.AI.APIKey) != "" {
		client, err := ai.NewClient(ai.Config{
			APIKey:  cfg.AI.APIKey,
			Model:   cfg.AI.Model,
			BaseURL: cfg.AI.BaseURL,
			Timeout: cfg.AI.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("configure ai client: %w", err)
		}
		a.AI = client
		a.Suggester = client
		applog.Debug(ctx, "ai client configured", "model", client.Model())
	} else {
		applog.Debug(ctx, "no ai api key, using keyword suggestions")
	}

	applog.Debug(ctx, "application wired", "vault", v.Driver())
	return a, nil
}

// Dependencies returns the services in the shape the HTTP handlers expect.
func (a *App) Dependencies() handlers.Dependencies {
	return handlers.Dependencies{
		Materials:     a.Materials,
		Formulas:      a.Formulas,
		Manufacturers: a.Manufacturers,
		Perfumes:      a.Perfumes,
		Backup:        a.Backup,
		Suggester:     a.Suggester,
	}
}

// Close releases the database connection pool.
func (a *App) Close() error {
	return a.Store.Close()
}
