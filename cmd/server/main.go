package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/lmittmann/tint"

	"github.com/tendant/entity-store/pkg/entitystore"
	"github.com/tendant/entity-store/pkg/entitystore/api"
	"github.com/tendant/entity-store/pkg/entitystore/store/sqldb"
)

type Config struct {
	Port   string `env:"ENTITY_STORE_PORT" env-default:"8080"`
	Driver string `env:"ENTITY_STORE_DRIVER" env-default:"sqlite"`
	SQLite SQLiteConfig
	DB     DbConfig
}

type SQLiteConfig struct {
	Path string `env:"ENTITY_STORE_SQLITE_PATH" env-default:"entity-store.db"`
}

type DbConfig struct {
	Port     uint16 `env:"ENTITY_PG_PORT" env-default:"5432"`
	Host     string `env:"ENTITY_PG_HOST" env-default:"localhost"`
	Name     string `env:"ENTITY_PG_NAME" env-default:"entity_db"`
	User     string `env:"ENTITY_PG_USER" env-default:"entity"`
	Password string `env:"ENTITY_PG_PASSWORD" env-default:"pwd"`
}

func (c DbConfig) toDatabaseUrl() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}
	return u.String()
}

func openDatabase(cfg Config) (*sqldb.DB, error) {
	switch cfg.Driver {
	case "postgres", "pgx":
		return sqldb.OpenPostgres(cfg.DB.toDatabaseUrl())
	default:
		return sqldb.OpenSQLite(cfg.SQLite.Path)
	}
}

func main() {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		logger.Error("Failed to open database", "driver", cfg.Driver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		logger.Error("Failed to migrate schema", "error", err)
		os.Exit(1)
	}

	events := entitystore.NewDispatcher()
	events.Register(entitystore.ActionCreate, string(entitystore.TypeObject), func(ev entitystore.Event) entitystore.Result {
		if e, ok := ev.Object.(*entitystore.Entity); ok {
			logger.Info("Object created", "guid", e.GUID, "subtype", e.Subtype)
		}
		return entitystore.Abstain
	})

	svc, err := entitystore.New(
		entitystore.WithDatabase(db),
		entitystore.WithDispatcher(events),
		entitystore.WithLogger(logger),
	)
	if err != nil {
		logger.Error("Failed to build service", "error", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Mount("/api/v1", api.NewHandler(svc).Routes())

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
	}

	go func() {
		logger.Info("Entity store server starting", "port", cfg.Port, "driver", cfg.Driver)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("Server exiting")
}
