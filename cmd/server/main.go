package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/planora/planora/auth"
	"github.com/planora/planora/events"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	db, err := openDB(ctx, cfg.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	app, err := buildApp(cfg, db)
	if err != nil {
		log.Fatal(err)
	}

	go func() {
		if err := app.Listen(cfg.Addr); err != nil {
			log.Fatal(err)
		}
	}()

	WaitExitSignal()

	if err := app.Shutdown(); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func openDB(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	models := []any{
		(*auth.User)(nil),
		(*events.Category)(nil),
		(*events.Event)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return nil, err
		}
	}

	return db, nil
}

func buildApp(cfg *Config, db *bun.DB) (*fiber.App, error) {
	logger := auth.DefaultLogger()

	repo := auth.NewRepositoryManager(db)
	if err := repo.Validate(); err != nil {
		return nil, err
	}

	verifier := auth.NewVerifier([]byte(cfg.GetVerifierSecret()), cfg.GetVerifierTTL())
	tokens := auth.NewTokenService(cfg, logger)
	auther := auth.NewAuthenticator(repo, tokens).WithLogger(logger)

	mailer := auth.NewLogMailer(logger)

	var sink auth.AuditSink = auth.NoOpSink{}
	if cfg.AuditLogPath != "" {
		f, err := os.OpenFile(cfg.AuditLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		sink = auth.NewJSONWriterSink(f)
	}

	controller := auth.NewAuthController(
		auth.WithControllerLogger(logger),
		auth.WithHandlers(
			auther,
			auth.NewRegisterUserHandler(repo, verifier, mailer, cfg).WithLogger(logger),
			auth.NewActivateAccountHandler(repo, verifier).WithLogger(logger),
			auth.NewInitializePasswordResetHandler(repo, verifier, mailer, cfg).
				WithLogger(logger).
				WithAuditSink(sink),
			auth.NewFinalizePasswordResetHandler(repo, verifier).
				WithLogger(logger).
				WithAuditSink(sink),
			auth.NewChangePasswordHandler(repo).WithLogger(logger),
		),
	)
	controller.Debug = cfg.Debug

	app := fiber.New(fiber.Config{
		AppName:       "planora",
		StrictRouting: false,
	})

	api := app.Group("/api")
	auth.RegisterAuthRoutes(api.Group("/auth"), controller)

	eventsController := events.NewController(events.NewRepository(db), logger)
	events.RegisterRoutes(api, eventsController, controller.RequireAuth)

	return app, nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
