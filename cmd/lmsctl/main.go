package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/SAP-F-2025/lms-service/internal/config"
	"github.com/SAP-F-2025/lms-service/internal/events"
	"github.com/SAP-F-2025/lms-service/internal/repositories/casdoor"
	"github.com/SAP-F-2025/lms-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/lms-service/internal/services"
	"github.com/SAP-F-2025/lms-service/internal/validator"
	"github.com/SAP-F-2025/lms-service/pkg"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stderr, "LMSCTL : ", log.LstdFlags)
	os.Exit(run())
}

// run returns the exit code so deferred cleanup finishes before the process exits
func run() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Printf("error: %s", err)
		return 1
	}

	// keep service logs off the terminal unless asked for
	level := slog.LevelWarn
	if cfg.LogLevel < level {
		level = cfg.LogLevel
	}
	slogLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	// the CLI never migrates; the service owns the schema
	cfg.Database.AutoMigrate = false
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Printf("error: %s", err)
		return 1
	}

	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB: db,
		CasdoorConfig: casdoor.CasdoorConfig{
			Endpoint:         cfg.Casdoor.Endpoint,
			ClientID:         cfg.Casdoor.ClientID,
			ClientSecret:     cfg.Casdoor.ClientSecret,
			Certificate:      cfg.Casdoor.Cert,
			OrganizationName: cfg.Casdoor.Organization,
			ApplicationName:  cfg.Casdoor.Application,
		},
	})
	if err := repoManager.Initialize(); err != nil {
		logger.Printf("error: %s", err)
		return 1
	}
	defer func() {
		if err := repoManager.Shutdown(context.Background()); err != nil {
			logger.Printf("error: %s", err)
		}
	}()
	repo := repoManager.GetRepository()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// account events reach the notifier only through a broker
	var (
		publisher events.EventPublisher
		closers   []io.Closer
	)
	if cfg.Kafka.Enabled() {
		kafkaPublisher, err := events.NewKafkaEventPublisher(cfg.Kafka.Brokers, slogLogger)
		if err != nil {
			logger.Printf("error: %s", err)
			return 1
		}
		publisher = kafkaPublisher
		closers = append(closers, kafkaPublisher)
	}

	v := validator.New()
	cli := &commandLine{
		accounts: services.NewAccountService(repo, slogLogger, v, publisher),
		users:    services.NewUserService(repo, slogLogger, v),
		repo:     repo,
		actorID:  os.Getenv("LMSCTL_ACTOR_ID"),
		out:      os.Stdout,
	}
	return execute(ctx, cli, os.Args, closers...)
}

// execute runs one command and flushes the closers whatever the outcome
func execute(ctx context.Context, cli *commandLine, args []string, closers ...io.Closer) int {
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logger.Printf("error: %s", err)
			}
		}
	}()

	if err := cli.run(ctx, args); err != nil {
		if !errors.Is(err, errHelp) {
			logger.Printf("error: %s", err)
		}
		return 1
	}
	return 0
}
