// Package main runs the background worker: notification delivery and alert evaluation.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/helicone-dashboard/backend/config"
	"github.com/helicone-dashboard/backend/internal/alerts"
	"github.com/helicone-dashboard/backend/internal/emaillogs"
	"github.com/helicone-dashboard/backend/internal/notify"
	"github.com/helicone-dashboard/backend/internal/worker"
	"github.com/helicone-dashboard/backend/pkg/database"
	"github.com/helicone-dashboard/backend/pkg/queue"
	"github.com/helicone-dashboard/backend/pkg/redis"
)

const alertInterval = time.Minute

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{
		MaxConns: int32(cfg.Database.MaxConns),
	}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jobQueue := queue.NewQueue(rdb.Client, logger)
	mailer, err := notify.NewSMTPMailer(cfg.Email)
	if err != nil {
		logger.Fatal("smtp", zap.Error(err))
	}
	slack := notify.NewSlackNotifier(cfg.Slack.BotToken, logger)
	if cfg.Email.SMTPHost == "" {
		logger.Warn("SMTP_HOST not set; email jobs will be dropped")
	}
	if cfg.Slack.BotToken == "" {
		logger.Warn("SLACK_BOT_TOKEN not set; slack jobs will be dropped")
	}

	processor := worker.NewNotificationProcessor(jobQueue, mailer, slack, emaillogs.NewRepository(pool), logger)
	checker := alerts.NewChecker(alerts.NewRepository(pool), alerts.NewRedisCooldowns(rdb.Client), jobQueue, cfg.App.BaseURL, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processor.Run(workerCtx)
	}()
	go func() {
		defer wg.Done()
		checker.Run(workerCtx, alertInterval)
	}()
	logger.Info("worker started", zap.Duration("alert_interval", alertInterval))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Warn("worker shutdown timed out")
	}
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
