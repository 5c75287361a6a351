// Command sprintlined is the Sprintline server daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sprintline/sprintline/activity"
	"github.com/sprintline/sprintline/config"
	"github.com/sprintline/sprintline/internal/version"
	"github.com/sprintline/sprintline/project"
	"github.com/sprintline/sprintline/server"
	"github.com/sprintline/sprintline/sprint"
	"github.com/sprintline/sprintline/store"
	"github.com/sprintline/sprintline/task"
	"github.com/sprintline/sprintline/user"
)

var configPath = flag.String("config", "sprintline.yaml", "path to config file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !os.IsNotExist(err) && !errors.Is(err, os.ErrNotExist) {
			log.Fatalf("Failed to load config %s: %v", *configPath, err)
		}
		cfg = config.DefaultConfig()
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))

	logger.Info("starting sprintlined",
		"version", version.Version,
		"commit", version.Commit,
	)

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	projects, err := project.NewSQLiteStore(db)
	if err != nil {
		log.Fatalf("Failed to init project store: %v", err)
	}
	tasks, err := task.NewSQLiteStore(db)
	if err != nil {
		log.Fatalf("Failed to init task store: %v", err)
	}
	sprints, err := sprint.NewSQLiteStore(db)
	if err != nil {
		log.Fatalf("Failed to init sprint store: %v", err)
	}
	users, err := user.NewSQLiteStore(db)
	if err != nil {
		log.Fatalf("Failed to init user store: %v", err)
	}

	seedProjects(logger, projects, cfg.Projects)
	seedAdmin(logger, users, cfg.Auth)

	srv := server.New(*cfg, version.Version, logger)
	srv.SetProjectStore(projects)
	srv.SetTaskStore(tasks)
	srv.SetSprintStore(sprints)
	srv.SetUserStore(users)
	srv.SetFeed(activity.NewInMemoryFeed())

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logger.Error("server stop error", "error", err)
	}
	logger.Info("shutdown complete")
}

// seedProjects ensures the configured projects exist.
func seedProjects(logger *slog.Logger, projects project.Store, seeds []config.ProjectConfig) {
	for _, pc := range seeds {
		if _, err := projects.GetByCode(pc.Code); err == nil {
			continue
		}
		p := &project.Project{Code: pc.Code, Name: pc.Name}
		if _, err := projects.Create(p); err != nil {
			logger.Warn("seed project", "code", pc.Code, "error", err)
			continue
		}
		logger.Info("seeded project", "code", p.Code)
	}
}

// seedAdmin ensures the configured admin account exists.
func seedAdmin(logger *slog.Logger, users user.Store, auth config.AuthConfig) {
	if auth.AdminUser == "" || auth.AdminPass == "" {
		return
	}
	if _, err := users.GetByUsername(auth.AdminUser); err == nil {
		return
	}
	u := &user.User{Username: auth.AdminUser, DisplayName: "Administrator"}
	if err := users.Create(u, auth.AdminPass); err != nil {
		logger.Warn("seed admin user", "error", err)
		return
	}
	logger.Info("seeded admin user", "username", u.Username)
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
