package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eduai/internal/analytics"
	"eduai/internal/api"
	"eduai/internal/blob"
	"eduai/internal/calendar"
	"eduai/internal/chat"
	"eduai/internal/config"
	"eduai/internal/logging"
	"eduai/internal/metrics"
	"eduai/internal/providers"
	"eduai/internal/pyq"
	"eduai/internal/questions"
	"eduai/internal/resultstore"
	"eduai/internal/scheduling"
	"eduai/internal/sheets"
	"eduai/internal/storage"

	"github.com/joho/godotenv"
	tclient "go.temporal.io/sdk/client"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := storage.NewDB(dbCtx, cfg.PostgresURL)
	if err == nil {
		err = db.Migrate(dbCtx)
	}
	cancel()
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
	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		logger.Fatal("temporal dial", zap.Error(err))
	}
	defer tc.Close()

	resultRepo := storage.NewResultRepo(db)
	insightRepo := storage.NewInsightRepo(db)
	var (
		stores       []resultstore.Store
		insightSinks = []analytics.InsightSink{insightRepo}
		mirror       scheduling.SyllabusMirror
	)
	if cfg.HasResultStore("postgres") {
		stores = append(stores, resultRepo)
	}
	if cfg.SpreadsheetID != "" {
		sh, err := sheets.New(ctx, cfg.GoogleCredentials, cfg.SpreadsheetID)
		if err != nil {
			logger.Fatal("google sheets", zap.Error(err))
		}
		if cfg.HasResultStore("sheets") {
			stores = append(stores, sh)
		}
		insightSinks = append(insightSinks, sh)
		mirror = sh
	}
	if len(stores) == 0 {
		stores = append(stores, resultRepo)
	}

	var sessions chat.SessionStore
	ttl := time.Duration(cfg.ChatSessionTTLMins) * time.Minute
	switch cfg.ChatBackend {
	case "redis":
		rc, err := chat.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rc.Close()
		sessions = chat.NewRedisSessions(rc, ttl, cfg.ChatHistoryLimit)
	default:
		sessions = chat.NewMemorySessions(ttl, cfg.ChatHistoryLimit)
	}

	deps := api.Deps{
		Submissions: storage.NewSubmissionRepo(db),
		Results:     resultstore.NewFanout(stores...),
		Lessons:     storage.NewLessonRepo(db),
		Banks:       storage.NewQuestionRepo(db),
		Usage:       storage.NewLLMAuditRepo(db),
		Blobs:       blobs,
		Syllabus:    scheduling.NewSyllabus(storage.NewSyllabusRepo(db), mirror),
		Chat:        chat.NewService(pm, sessions, cfg.ChatHistoryLimit),
		Questions:   questions.NewGenerator(pm, storage.NewQuestionRepo(db)),
		PYQ:         pyq.NewAnalyzer(pm),
		Insights:    analytics.NewInsightService(pm, insightSinks...),
		Providers:   pm,
		Temporal:    tc,
		Logger:      logger,
	}
	if cfg.GoogleCredentials != "" {
		cal, err := calendar.New(ctx, calendar.Options{
			CredentialsFile:    cfg.GoogleCredentials,
			CalendarID:         cfg.CalendarID,
			Timezone:           cfg.CalendarTimezone,
			LessonCalendarName: cfg.LessonCalendarName,
		})
		if err != nil {
			logger.Warn("google calendar disabled", zap.Error(err))
		} else {
			deps.Calendar = cal
		}
	}

	srv := api.NewServer(cfg, deps)
	defer srv.Close()
	httpSrv := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Info("eduai api listening",
		zap.String("addr", cfg.APIAddr),
		zap.String("llm_providers", cfg.LLMProviders),
		zap.String("result_stores", cfg.ResultStores),
		zap.String("chat_backend", cfg.ChatBackend),
		zap.Bool("calendar", deps.Calendar != nil))
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("http server", zap.Error(err))
	}
}
