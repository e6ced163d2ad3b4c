package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/misba/aimock/internal/adapters/http"
	wssignal "github.com/misba/aimock/internal/adapters/signal"
	"github.com/misba/aimock/internal/ai"
	"github.com/misba/aimock/internal/auth"
	"github.com/misba/aimock/internal/bridge"
	"github.com/misba/aimock/internal/config"
	"github.com/misba/aimock/internal/gd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	var topics gd.TopicSource
	var feedback router.FeedbackSource
	if cfg.GeminiAPIKey != "" {
		aiClient, err := ai.NewClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create gemini client")
		}
		topics = aiClient
		feedback = aiClient
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set, discussions will use the fallback topic")
		topics = noTopics{}
	}

	store, err := auth.OpenStore(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open user store")
	}
	defer store.Close()
	authSvc := auth.NewService(store, cfg.JWTSecret, cfg.JWTTTL)

	ctl := wssignal.NewController()
	reg := gd.NewRegistry(ctl, topics, gd.Config{
		Duration: cfg.DiscussionDuration,
		IdleTTL:  cfg.RoomTTL,
	})
	ctl.Attach(reg)
	reg.Start(ctx)

	b := bridge.New(cfg.AssemblyAIURL)

	srv := router.NewServer(cfg, reg, ctl, b, feedback, authSvc)
	r := router.SetupRouter(ctx, cfg, srv)
	addr := fmt.Sprintf(":%d", cfg.Port)

	httpSrv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("aimock server started")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}

// noTopics keeps rooms starting when no model is configured; the registry
// substitutes its fallback topic.
type noTopics struct{}

func (noTopics) GenerateTopic(ctx context.Context) (string, error) {
	return "", ai.ErrNoAPIKey
}
