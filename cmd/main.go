package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizbot/internal/auth"
	"quizbot/internal/bot"
	"quizbot/internal/config"
	"quizbot/internal/handlers"
	"quizbot/internal/logger"
	"quizbot/internal/metrics"
	"quizbot/internal/service"
	"quizbot/internal/session"
	"quizbot/internal/storage"
	"quizbot/internal/wallet"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer lg.Sync()

	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()
	lg.Info(0, "database_opened", zap.String("path", cfg.Database.Path))

	metrics.Init()

	walletSvc := wallet.New(store, lg)
	questions := service.NewQuestionService(store, lg)
	betting := service.NewBettingService(store, walletSvc, lg)
	settlement := service.NewSettlementService(store, walletSvc, lg)
	sessions := session.NewStore(1024, cfg.SessionTTL())

	b, err := bot.New(cfg, store, walletSvc, questions, betting, settlement, sessions, lg)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}
	go b.Start()
	defer b.Stop()

	worker := service.NewQuestionWorker(store, questions, cfg.WorkerInterval(), lg)
	worker.Start()
	defer worker.Stop()

	h := handlers.New(store, betting, questions, cfg, lg)
	validator := auth.NewValidator(cfg.BotToken, lg)

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/ping", h.Ping)
	apiMux.HandleFunc("/me", h.Me)
	apiMux.HandleFunc("/me/transactions", h.MyTransactions)
	apiMux.HandleFunc("/me/bets", h.MyBets)
	apiMux.HandleFunc("/questions", h.Questions)
	apiMux.HandleFunc("/bets", h.PlaceBet)

	mux := http.NewServeMux()
	mux.Handle("/api/", http.StripPrefix("/api", validator.Middleware(apiMux)))
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:    ":" + cfg.HTTP.Port,
		Handler: mux,
	}
	go func() {
		lg.Info(0, "server_started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lg.Info(0, "shutting_down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		lg.Error(0, "shutdown_failed", err)
	}
}
