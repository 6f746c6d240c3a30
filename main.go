package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"medication-tracker/internal/api"
	"medication-tracker/internal/config"
	"medication-tracker/internal/handlers"
	"medication-tracker/internal/messages"
	"medication-tracker/internal/prescription"
	"medication-tracker/internal/scheduler"
	"medication-tracker/internal/storage"
	"medication-tracker/internal/utils"
)

func main() {
	_ = godotenv.Load() // TELEGRAM_BOT_TOKEN etc.

	logger, err := config.NewLogger(os.Getenv("APP_ENV"))
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := zap.S()

	cfg, err := config.Load()
	utils.Must(err)
	log.Infow("config loaded", "env", cfg.Env, "db_path", cfg.DBPath, "ocr", cfg.OCREnabled)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.New(cfg.DBPath)
	utils.Must(err)
	defer db.Close()

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	utils.Must(err)
	log.Infow("bot authorized", "username", bot.Self.UserName)

	clock := clockwork.NewRealClock()

	scanner := scheduler.New(db, messages.NewNotifier(bot), clock, log)
	utils.Must(scanner.Start())

	h := handlers.NewHandler(bot, db, log)
	h.Files = bot
	h.Clock = clock
	h.DefaultTZ = cfg.DefaultTZ
	if cfg.OCREnabled {
		reader, err := prescription.NewVisionReader(ctx, log)
		if err != nil {
			// manual entry keeps working without OCR
			log.Errorw("label scanning disabled", "error", err)
		} else {
			defer reader.Close()
			h.OCR = reader
		}
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(api.Options{Store: db, Clock: clock, Log: log}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infow("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("http server", "error", err)
			stop()
		}
	}()

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60

	updates := bot.GetUpdatesChan(updateConfig)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case upd := <-updates:
			h.HandleUpdate(ctx, upd)
		}
	}

	log.Infow("shutting down")
	bot.StopReceivingUpdates()

	if err := scanner.Stop(); err != nil {
		log.Errorw("stop scanner", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("http shutdown", "error", err)
	}
}
