package main

import (
	"context"
	"flag"
	"time"

	"go.uber.org/zap"

	"clinic_app_echo/internal/config"
	"clinic_app_echo/internal/logger"
	"clinic_app_echo/internal/services"
)

// Sends one message through the configured WAHA session, for checking
// summary delivery before enabling it in the worker.
func main() {
	phone := flag.String("phone", "", "Phone number (e.g. 628123456789 or 0812...)")
	msg := flag.String("msg", "Test message from clinic summary delivery", "Message body")
	flag.Parse()

	cfg := config.Load()
	log, err := logger.Init(logger.Options{Level: cfg.LogLevel})
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if *phone == "" {
		log.Fatal("please provide a phone number using -phone flag")
	}
	if cfg.WAHABaseURL == "" {
		log.Fatal("WAHA_BASE_URL is not set")
	}

	chatID := services.NormalizeChatID(*phone)
	log.Info("sending message", zap.String("chat_id", chatID), zap.String("message", *msg))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := services.NewWahaService(cfg).SendMessage(ctx, chatID, *msg); err != nil {
		log.Fatal("failed to send message", zap.Error(err))
	}
	log.Info("message sent")
}
