package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/noah-isme/course-scheduling-api/internal/repository"
	"github.com/noah-isme/course-scheduling-api/internal/service"
	"github.com/noah-isme/course-scheduling-api/pkg/config"
	"github.com/noah-isme/course-scheduling-api/pkg/database"
	appErrors "github.com/noah-isme/course-scheduling-api/pkg/errors"
	"github.com/noah-isme/course-scheduling-api/pkg/logger"
)

func main() {
	semesterID := flag.String("semester", "", "semester to close")
	force := flag.Bool("force", false, "skip the end-date guard")
	flag.Parse()

	if *semesterID == "" {
		fmt.Fprintln(os.Stderr, "usage: semester-close -semester <id> [-force]")
		os.Exit(2)
	}

	if err := run(*semesterID, *force); err != nil {
		fmt.Fprintf(os.Stderr, "semester close failed: %v\n", err)
		os.Exit(1)
	}
}

func run(semesterID string, force bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	closer := service.NewSemesterCloseService(
		repository.NewSemesterRepository(db),
		repository.NewAssignmentRepository(db),
		repository.NewGradeRepository(db),
		nil,
		logr,
	)

	summary, err := closer.Close(ctx, semesterID, service.CloseOptions{Force: force})
	if err != nil {
		logr.Error("semester close failed",
			zap.String("semester_id", semesterID),
			zap.String("code", appErrors.FromError(err).Code),
			zap.Error(err),
		)
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
