package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	"limit-book/src/command"
	"limit-book/src/config"
	"limit-book/src/engine"
	"limit-book/src/handlers"
	"limit-book/src/logger"
	"limit-book/src/routes"
)

func main() {
	cfg := config.Load()

	// stdout carries protocol output in stream mode
	logOut := os.Stdout
	if cfg.Mode == config.ModeStream {
		logOut = os.Stderr
	}
	logger.InitLogger(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		File:   cfg.LogFile,
		Out:    logOut,
	})
	defer logger.CloseLogger()

	book, err := engine.NewOrderBook(cfg.TickSize,
		engine.WithEpsilon(cfg.PriceEpsilon),
		engine.WithLogger(logger.Component("book")),
	)
	if err != nil {
		log.Fatal().
			Err(err).
			Float64("tick_size", cfg.TickSize).
			Msg("Cannot create order book")
	}

	if cfg.Mode == config.ModeHTTP {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
		defer stop()
		serve(ctx, cfg, engine.NewMatcher(book))
		return
	}

	processor := command.NewProcessor(book, os.Stdout)
	stats, err := processor.Run(context.Background(), os.Stdin)
	if err != nil {
		log.Error().Err(err).Msg("Reading commands failed")
	}
	log.Debug().
		Int("lines", stats.Lines).
		Int("rejected", stats.Rejected).
		Msg("Command stream finished")
}

func serve(ctx context.Context, cfg config.Config, matcher *engine.Matcher) {
	log.Info().
		Float64("tick_size", cfg.TickSize).
		Msg("Initializing order book service")

	orderHandler := handlers.NewOrderHandler(matcher, handlers.Config{
		DefaultDepth: cfg.DefaultDepth,
		MaxDepth:     cfg.MaxDepth,
		MaxLatencies: cfg.MaxLatencies,
	})

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}

			log.Error().
				Str("path", c.Path()).
				Str("method", c.Method()).
				Int("status", code).
				Str("error", err.Error()).
				Msg("Request error")

			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	routes.SetupRoutes(app, orderHandler, cfg)

	serverError := make(chan error, 1)
	go func() {
		if err := app.Listen(cfg.Port); err != nil {
			serverError <- err
		}
	}()

	log.Info().
		Str("port", cfg.Port).
		Msg("Order book service started")

	select {
	case err := <-serverError:
		log.Fatal().
			Err(err).
			Str("port", cfg.Port).
			Str("hint", "Port may be already in use. Try: PORT=3000").
			Msg("Server failed to start")
	case <-ctx.Done():
	}

	log.Info().Msg("Received shutdown signal, shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		// edge case: timeout during shutdown is acceptable
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn().
				Dur("timeout", cfg.ShutdownTimeout).
				Msg("Timeout exceeded, shutting down...")
		} else {
			log.Error().
				Err(err).
				Msg("Error during shutdown")
		}
		return
	}
	log.Info().Msg("Shutdown complete")
}
