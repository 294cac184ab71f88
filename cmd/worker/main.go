package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"eduai/internal/activities"
	"eduai/internal/blob"
	"eduai/internal/calendar"
	"eduai/internal/config"
	"eduai/internal/logging"
	"eduai/internal/metrics"
	"eduai/internal/providers"
	"eduai/internal/resultstore"
	"eduai/internal/sheets"
	"eduai/internal/storage"
	"eduai/internal/workflows"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load(".env")
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()
	metrics.Init()

	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		logger.Fatal("temporal dial", zap.Error(err))
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err == nil {
		err = db.Migrate(ctx)
	}
	if err != nil {
		logger.Fatal("postgres", zap.Error(err))
	}
	defer db.Close()

	blobs, err := blob.New(ctx, cfg)
	if err != nil {
		logger.Fatal("blob store", zap.Error(err))
	}
	pm, err := providers.NewManager(cfg)
	if err != nil {
		logger.Fatal("providers", zap.Error(err))
	}

	var stores []resultstore.Store
	if cfg.HasResultStore("postgres") {
		stores = append(stores, storage.NewResultRepo(db))
	}
	if cfg.HasResultStore("sheets") {
		sh, err := sheets.New(ctx, cfg.GoogleCredentials, cfg.SpreadsheetID)
		if err != nil {
			logger.Fatal("google sheets", zap.Error(err))
		}
		stores = append(stores, sh)
	}
	if len(stores) == 0 {
		stores = append(stores, storage.NewResultRepo(db))
	}

	deps := activities.Deps{
		Submissions: storage.NewSubmissionRepo(db),
		Results:     resultstore.NewFanout(stores...),
		Audit:       storage.NewLLMAuditRepo(db),
		Lessons:     storage.NewLessonRepo(db),
		Blobs:       blobs,
		Providers:   pm,
	}
	if cfg.GoogleCredentials != "" {
		cal, err := calendar.New(ctx, calendar.Options{
			CredentialsFile:    cfg.GoogleCredentials,
			CalendarID:         cfg.CalendarID,
			Timezone:           cfg.CalendarTimezone,
			LessonCalendarName: cfg.LessonCalendarName,
		})
		if err != nil {
			logger.Warn("google calendar disabled; lesson plans will fail", zap.Error(err))
		} else {
			deps.Calendar = cal
		}
	}

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)
	activities.Register(w, activities.New(cfg, deps))

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	metricsSrv := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker metrics server", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	logger.Info("eduai worker started",
		zap.String("temporal", cfg.TemporalAddress),
		zap.String("queue", cfg.TemporalTaskQueue),
		zap.String("llm_providers", cfg.LLMProviders),
		zap.String("result_stores", cfg.ResultStores),
		zap.Bool("calendar", deps.Calendar != nil))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Fatal("worker", zap.Error(err))
	}
}
