package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"

	"github.com/tendant/simple-membership/pkg/bootstrap"
	"github.com/tendant/simple-membership/pkg/config"
	"github.com/tendant/simple-membership/pkg/membership"
	"github.com/tendant/simple-membership/pkg/membership/api"
	"github.com/tendant/simple-membership/pkg/notification"
)

type Config struct {
	DbConfig    config.DatabaseConfig
	AppConfig   app.AppConfig
	SeedConfig  config.SeedConfig
	EmailConfig config.EmailConfig

	EmailEnabled bool `env:"EMAIL_ENABLED" env-default:"false"`
}

func main() {
	cfg := Config{}
	cleanenv.ReadEnv(&cfg)

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	dbConfig := cfg.DbConfig.ToDbConfig()
	pool, err := dbutils.NewDbPool(context.Background(), dbConfig)
	if err != nil {
		slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User)
		os.Exit(-1)
	}

	repo := membership.NewPostgresRepository(pool)
	creds := membership.NewInMemoryCredentialStore(nil)
	service := membership.NewMembershipService(repo, creds, nil)

	var notifier notification.Notifier = notification.NoopNotifier{}
	if cfg.EmailEnabled {
		emailNotifier, err := notification.NewEmailNotifier(cfg.EmailConfig.ToSMTPConfig())
		if err != nil {
			slog.Error("Failed creating email notifier", "err", err)
			os.Exit(-1)
		}
		notifier = emailNotifier
	}

	seedCfg := bootstrap.SeedConfig{
		Roles:      config.ParseRoleNames(cfg.SeedConfig.Roles),
		Service:    service,
		Repository: repo,
	}
	if cfg.SeedConfig.AdminEmail != "" {
		seedCfg.Users = []bootstrap.SeedUser{{
			Email:     cfg.SeedConfig.AdminEmail,
			Password:  cfg.SeedConfig.AdminPassword,
			FirstName: cfg.SeedConfig.AdminFirstName,
			LastName:  cfg.SeedConfig.AdminLastName,
			Role:      cfg.SeedConfig.AdminRole,
		}}
	}

	result, err := bootstrap.Seed(context.Background(), seedCfg)
	if err != nil {
		slog.Error("Failed seeding initial data", "err", err)
		os.Exit(-1)
	}
	if !result.Skipped {
		slog.Info("Seeded initial data", "roles", result.RolesCreated, "users", result.UsersCreated)
	}

	handle := api.NewHandle(service, notifier)
	handle.RegisterRoutes(server.R)

	server.Run()
}
