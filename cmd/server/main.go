package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/babel/internal/adapters/http"
	"github.com/dkeye/babel/internal/adapters/openai"
	"github.com/dkeye/babel/internal/app"
	"github.com/dkeye/babel/internal/app/orch"
	"github.com/dkeye/babel/internal/app/translate"
	"github.com/dkeye/babel/internal/config"
	"github.com/dkeye/babel/internal/core"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg)

	var tr translate.Translator = translate.NopTranslator{}
	if cfg.OpenAIAPIKey != "" {
		tr = openai.New(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		})
	} else {
		log.Warn().Msg("no OpenAI API key, messages will not be translated")
	}

	grace := core.NewGraceRegistry(cfg.GracePeriod)
	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    app.NewRoomStore(core.RoomOptions{HistoryLimit: cfg.HistoryLimit}),
		Grace:    grace,
		Policy:   app.PolicyFor(cfg.Backpressure),
		Enricher: translate.NewPipeline(tr, cfg.TranslateTimeout),
		Options: orch.Options{
			RoomTTL:       cfg.RoomTTL,
			RecentLimit:   cfg.RecentLimit,
			MaxMessageLen: cfg.MaxMessageLen,
		},
	}

	go grace.Run(ctx)
	log.Info().Dur("grace_period", grace.Period()).Dur("room_ttl", cfg.RoomTTL).Str("backpressure", cfg.Backpressure).Msg("room lifecycle")

	r := router.SetupRouter(ctx, cfg, o)
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Babel server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	wait := gfshutdown.GracefulShutdown(context.Background(), shutdownTimeout, map[string]gfshutdown.Operation{
		"http-server": func(ctx context.Context) error {
			log.Info().Msg("Shutting down")
			return srv.Shutdown(ctx)
		},
		"background": func(context.Context) error {
			// stops the grace sweeper and every socket pump
			cancel()
			return nil
		},
	})
	code := <-wait
	log.Info().Int("code", code).Msg("Server exited")
	os.Exit(code)
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Mode == "release" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}
